package core_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ankit-chaubey/xm-surgery/core"
)

func sampleReport(dryRun bool) *core.Report {
	return &core.Report{
		RunID:  "run-1",
		DryRun: dryRun,
		Outcomes: []core.Outcome{
			{
				Path:      "in/A.xm",
				Output:    "in/A.m4a",
				Scheme:    "keyed-sbox",
				LangWidth: "2",
				Format:    core.FmtM4A,
				Repaired:  1,
				Bytes:     340,
				Stage:     core.StageDone,
			},
			{
				Path:  "in/B.xm",
				Stage: core.StageTag,
				Err:   errors.New("tagframe: truncated frame"),
			},
		},
	}
}

func TestPrintReportText(t *testing.T) {
	tests := []struct {
		name   string
		dryRun bool
		want   string
	}{
		{
			name: "real run",
			want: "✓ in/A.xm → wrote in/A.m4a (keyed-sbox, lang 2, 1 repaired)\n" +
				"✗ in/B.xm [tag]: tagframe: truncated frame\n" +
				"2 file(s), 1 failed\n",
		},
		{
			name:   "dry run",
			dryRun: true,
			want: "✓ in/A.xm → would write in/A.m4a (keyed-sbox, lang 2, 1 repaired)\n" +
				"✗ in/B.xm [tag]: tagframe: truncated frame\n" +
				"2 file(s), 1 failed\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			p := &core.Printer{Writer: &buf}
			p.PrintReport(sampleReport(tt.dryRun))
			if diff := cmp.Diff(tt.want, buf.String()); diff != "" {
				t.Errorf("PrintReport() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPrintReportJSON(t *testing.T) {
	var buf bytes.Buffer
	p := &core.Printer{JSON: true, Writer: &buf}
	p.PrintReport(sampleReport(false))

	type file struct {
		Path      string `json:"path"`
		Output    string `json:"output"`
		Scheme    string `json:"scheme"`
		LangWidth string `json:"lang_width"`
		Format    string `json:"format"`
		Repaired  int    `json:"repaired"`
		Bytes     int    `json:"bytes"`
		Stage     string `json:"stage"`
		Error     string `json:"error"`
	}
	type report struct {
		RunID  string `json:"run_id"`
		DryRun bool   `json:"dry_run"`
		Failed int    `json:"failed"`
		Files  []file `json:"files"`
	}
	var got report
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}

	want := report{
		RunID:  "run-1",
		Failed: 1,
		Files: []file{
			{
				Path:      "in/A.xm",
				Output:    "in/A.m4a",
				Scheme:    "keyed-sbox",
				LangWidth: "2",
				Format:    string(core.FmtM4A),
				Repaired:  1,
				Bytes:     340,
				Stage:     "done",
			},
			{Path: "in/B.xm", Stage: "tag", Error: "tagframe: truncated frame"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PrintReport() JSON mismatch (-want +got):\n%s", diff)
	}

	// Failed files carry no output fields.
	var raw struct {
		Files []map[string]any `json:"files"`
	}
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"output", "scheme", "format"} {
		if _, ok := raw.Files[1][key]; ok {
			t.Errorf("failed file has %q field", key)
		}
	}
}
