// Package core defines the shared types, audio format registry and output
// rendering for xm-surgery.
package core

// MetaField represents a single labelled value reported by inspect.
type MetaField struct {
	Key      string // Field name (e.g. "Scheme", "COMM", "Make")
	Value    string // String representation of the value
	Category string // Category label (e.g. "Container", "Tag", "Cover EXIF")
}

// Metadata holds everything inspect discovered about a single container.
type Metadata struct {
	FilePath string
	Format   string // Detected audio format name (e.g. "M4A", "MP3")
	Fields   []MetaField
}

// Add appends a field, skipping empty values.
func (m *Metadata) Add(category, key, value string) {
	if value == "" {
		return
	}
	m.Fields = append(m.Fields, MetaField{Key: key, Value: value, Category: category})
}

// Stage names the processing step a file reached or failed in.
type Stage string

const (
	StageRead      Stage = "read"
	StageHeader    Stage = "header"
	StageTransform Stage = "transform"
	StageTag       Stage = "tag"
	StageVerify    Stage = "verify"
	StageAssemble  Stage = "assemble"
	StageWrite     Stage = "write"
	StageDone      Stage = "done"
)

// Outcome is the result of processing one file in a batch.
type Outcome struct {
	Path      string
	Output    string // Target path; empty when the file failed
	Scheme    string
	LangWidth string
	Format    FormatID
	Repaired  int   // Language frames rewritten
	Bytes     int   // Size of the artifact
	Stage     Stage // StageDone on success
	Err       error
}

// OK reports whether the file was processed successfully.
func (o Outcome) OK() bool { return o.Err == nil }

// Report aggregates the outcomes of one batch run.
type Report struct {
	RunID    string
	DryRun   bool
	Outcomes []Outcome
}

// Failed returns the number of files that did not succeed.
func (r *Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.OK() {
			n++
		}
	}
	return n
}
