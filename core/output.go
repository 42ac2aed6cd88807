package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Printer handles all display output for the CLI.
type Printer struct {
	JSON   bool
	Writer io.Writer
}

// NewPrinter creates a default Printer writing to stdout.
func NewPrinter(jsonMode bool) *Printer {
	return &Printer{JSON: jsonMode, Writer: os.Stdout}
}

// PrintMetadata renders an inspect result.
func (p *Printer) PrintMetadata(m *Metadata) {
	if p.JSON {
		p.printJSON(m)
		return
	}
	p.printText(m)
}

func (p *Printer) printText(m *Metadata) {
	fmt.Fprintf(p.Writer, "File  : %s\n", m.FilePath)
	fmt.Fprintf(p.Writer, "Format: %s\n", m.Format)
	if len(m.Fields) == 0 {
		fmt.Fprintln(p.Writer, "(nothing found)")
		return
	}
	fmt.Fprintln(p.Writer)

	// Group by category, keeping first-seen order
	groups := make(map[string][]MetaField)
	var order []string
	for _, f := range m.Fields {
		if _, ok := groups[f.Category]; !ok {
			order = append(order, f.Category)
		}
		groups[f.Category] = append(groups[f.Category], f)
	}

	for _, cat := range order {
		fmt.Fprintf(p.Writer, "── %s ──\n", cat)
		for _, f := range groups[cat] {
			fmt.Fprintf(p.Writer, "  %-24s %s\n", f.Key+":", f.Value)
		}
		fmt.Fprintln(p.Writer)
	}
}

func (p *Printer) printJSON(m *Metadata) {
	type jsonField struct {
		Key      string `json:"key"`
		Value    string `json:"value"`
		Category string `json:"category"`
	}
	out := struct {
		FilePath string      `json:"file"`
		Format   string      `json:"format"`
		Fields   []jsonField `json:"fields"`
	}{FilePath: m.FilePath, Format: m.Format}
	for _, f := range m.Fields {
		out.Fields = append(out.Fields, jsonField(f))
	}
	p.writeJSON(out)
}

// PrintReport renders the per-file diagnostics of a batch run.
func (p *Printer) PrintReport(r *Report) {
	if p.JSON {
		p.printReportJSON(r)
		return
	}
	for _, o := range r.Outcomes {
		if !o.OK() {
			fmt.Fprintf(p.Writer, "✗ %s [%s]: %v\n", o.Path, o.Stage, o.Err)
			continue
		}
		verb := "wrote"
		if r.DryRun {
			verb = "would write"
		}
		fmt.Fprintf(p.Writer, "✓ %s → %s %s (%s, lang %s", o.Path, verb, o.Output, o.Scheme, o.LangWidth)
		if o.Repaired > 0 {
			fmt.Fprintf(p.Writer, ", %d repaired", o.Repaired)
		}
		fmt.Fprintln(p.Writer, ")")
	}
	fmt.Fprintf(p.Writer, "%d file(s), %d failed\n", len(r.Outcomes), r.Failed())
}

func (p *Printer) printReportJSON(r *Report) {
	type jsonOutcome struct {
		Path      string `json:"path"`
		Output    string `json:"output,omitempty"`
		Scheme    string `json:"scheme,omitempty"`
		LangWidth string `json:"lang_width,omitempty"`
		Format    string `json:"format,omitempty"`
		Repaired  int    `json:"repaired,omitempty"`
		Bytes     int    `json:"bytes,omitempty"`
		Stage     string `json:"stage"`
		Error     string `json:"error,omitempty"`
	}
	out := struct {
		RunID    string        `json:"run_id"`
		DryRun   bool          `json:"dry_run"`
		Failed   int           `json:"failed"`
		Outcomes []jsonOutcome `json:"files"`
	}{RunID: r.RunID, DryRun: r.DryRun, Failed: r.Failed()}
	for _, o := range r.Outcomes {
		jo := jsonOutcome{
			Path:      o.Path,
			Output:    o.Output,
			Scheme:    o.Scheme,
			LangWidth: o.LangWidth,
			Format:    string(o.Format),
			Repaired:  o.Repaired,
			Bytes:     o.Bytes,
			Stage:     string(o.Stage),
		}
		if o.Err != nil {
			jo.Error = o.Err.Error()
		}
		out.Outcomes = append(out.Outcomes, jo)
	}
	p.writeJSON(out)
}

func (p *Printer) writeJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(p.Writer, string(b))
}

// PrintSuccess prints a success message.
func (p *Printer) PrintSuccess(msg string) {
	fmt.Fprintln(p.Writer, "✓ "+msg)
}

// PrintInfo prints an info line (suppressed in JSON mode).
func (p *Printer) PrintInfo(msg string) {
	if !p.JSON {
		fmt.Fprintln(p.Writer, msg)
	}
}

// PrintError prints an error to stderr.
func PrintError(msg string) {
	fmt.Fprintln(os.Stderr, "✗ Error: "+msg)
}

// ResolveOutDir returns dir if non-empty, otherwise the directory of src.
func ResolveOutDir(src, dir string) string {
	if dir == "" {
		return filepath.Dir(src)
	}
	return dir
}
