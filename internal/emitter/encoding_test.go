package emitter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/visiona/spotter/internal/pipeline"
)

func sampleReport() pipeline.Report {
	return pipeline.Report{
		FPS:          12.5,
		PotentialFPS: 40,
		Frames:       25,
		Elapsed:      2e9,
		Stages: []pipeline.StageSummary{
			{Name: "detect", MeanSeconds: 0.02, Samples: 25},
		},
		Matches:       17,
		Width:         640,
		Height:        480,
		HaveTransform: true,
		Transform:     [9]float64{1, 0, 10, 0, 1, 20, 0, 0, 1},
	}
}

// TestJSONEncoderRoundTrip checks that the default encoding carries every
// report field.
func TestJSONEncoderRoundTrip(t *testing.T) {
	encode, err := NewEncoder("")
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	payload, err := encode(sampleReport())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var got pipeline.Report
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := sampleReport()
	if got.FPS != want.FPS || got.Matches != want.Matches ||
		got.Transform != want.Transform || len(got.Stages) != 1 {
		t.Errorf("round trip lost fields: %+v", got)
	}
}

// TestMsgpackEncoderRoundTrip checks the compact wire format.
func TestMsgpackEncoderRoundTrip(t *testing.T) {
	encode, err := NewEncoder(EncodingMsgpack)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	payload, err := encode(sampleReport())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var got pipeline.Report
	if err := msgpack.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Frames != 25 || !got.HaveTransform || got.Stages[0].Name != "detect" {
		t.Errorf("round trip lost fields: %+v", got)
	}
}

func TestUnknownEncodingRejected(t *testing.T) {
	if _, err := NewEncoder("xml"); err == nil {
		t.Error("NewEncoder(xml) succeeded")
	}
}

// TestConsoleReporter checks the one-block text rendering reaches the
// writer.
func TestConsoleReporter(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleReporter(&buf).Emit(sampleReport())

	out := buf.String()
	if !strings.Contains(out, "fps") || !strings.Contains(out, "17 good matches") {
		t.Errorf("unexpected console output: %q", out)
	}
}
