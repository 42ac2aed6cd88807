package batch_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ankit-chaubey/xm-surgery/core"
	"github.com/ankit-chaubey/xm-surgery/core/batch"
	"github.com/ankit-chaubey/xm-surgery/core/container"
	"github.com/ankit-chaubey/xm-surgery/core/transform"
)

func tagBlock() []byte {
	payload := "\x03zh\x00hi"
	f := make([]byte, 10, 10+len(payload))
	copy(f, "COMM")
	binary.BigEndian.PutUint32(f[4:8], uint32(len(payload)))
	f = append(f, payload...)
	return append([]byte{'I', 'D', '3', 3, 0, 0, 0, 0, 0, byte(len(f))}, f...)
}

var audio = append([]byte("fLaC\x80\x00\x00\x22"), make([]byte, 64)...)

func writeContainer(t *testing.T, dir, name string, plain []byte) string {
	t.Helper()
	c, err := container.Seal(plain, transform.Header{Scheme: transform.SchemeKeyedSBox, TrackID: 7})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, c, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.xm", "a.XM", "c.mp3", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.xm"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := batch.Collect(dir, ".xm")
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	want := []string{filepath.Join(dir, "a.XM"), filepath.Join(dir, "b.xm")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
	}

	single := filepath.Join(dir, "c.mp3")
	if got, err := batch.Collect(single, ".xm"); err != nil || len(got) != 1 || got[0] != single {
		t.Errorf("Collect(file) = %v, %v", got, err)
	}

	if _, err := batch.Collect(t.TempDir(), ".xm"); !errors.Is(err, batch.ErrNoInputs) {
		t.Errorf("Collect(empty dir) error = %v, want ErrNoInputs", err)
	}
}

func TestRunContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	plain := append(tagBlock(), audio...)
	good := writeContainer(t, dir, "good.xm", plain)
	truncated := writeContainer(t, dir, "broken.xm", tagBlock()[:12])

	r := &batch.Runner{Workers: 2, Log: quietLogger()}
	report, err := r.Run(context.Background(), []string{truncated, good})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.RunID == "" {
		t.Errorf("RunID is empty")
	}
	if report.Failed() != 1 {
		t.Fatalf("Failed() = %d, want 1", report.Failed())
	}

	bad := report.Outcomes[0]
	if bad.OK() || bad.Stage != core.StageTag {
		t.Errorf("broken outcome = %+v, want failure at stage tag", bad)
	}

	ok := report.Outcomes[1]
	wantOut := filepath.Join(dir, "good.flac")
	if !ok.OK() || ok.Output != wantOut || ok.Format != core.FmtFLAC || ok.LangWidth != "2" {
		t.Errorf("good outcome = %+v", ok)
	}
	data, err := os.ReadFile(wantOut)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if !bytes.Equal(data, plain) {
		t.Errorf("output differs from plaintext")
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "out")
	path := writeContainer(t, dir, "a.xm", append(tagBlock(), audio...))

	r := &batch.Runner{
		Options:   container.Options{DryRun: true, RepairLanguage: true},
		Workers:   1,
		OutputDir: outDir,
		Log:       quietLogger(),
	}
	report, err := r.Run(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	o := report.Outcomes[0]
	if !o.OK() || o.Output != filepath.Join(outDir, "a.flac") || o.Repaired != 1 {
		t.Errorf("outcome = %+v", o)
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Errorf("dry run created %s (err = %v)", outDir, err)
	}
}

func TestRunOutputDir(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "nested", "out")
	path := writeContainer(t, dir, "ep01.xm", audio)

	r := &batch.Runner{OutputDir: outDir, Log: quietLogger()}
	report, err := r.Run(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if o := report.Outcomes[0]; !o.OK() {
		t.Fatalf("outcome = %+v", o)
	}
	data, err := os.ReadFile(filepath.Join(outDir, "ep01.flac"))
	if err != nil || !bytes.Equal(data, audio) {
		t.Errorf("output = %d bytes, %v", len(data), err)
	}
}

func TestRunMissingFile(t *testing.T) {
	r := &batch.Runner{Log: quietLogger()}
	report, err := r.Run(context.Background(), []string{filepath.Join(t.TempDir(), "gone.xm")})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if o := report.Outcomes[0]; o.OK() || o.Stage != core.StageRead {
		t.Errorf("outcome = %+v, want failure at stage read", o)
	}
}

func TestRunCancelledCountsSkippedFiles(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeContainer(t, dir, "a.xm", append(tagBlock(), audio...)),
		writeContainer(t, dir, "b.xm", audio),
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &batch.Runner{Workers: 2, Log: quietLogger()}
	report, err := r.Run(ctx, paths)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if got := report.Failed(); got != len(paths) {
		t.Errorf("Failed() = %d, want %d", got, len(paths))
	}
	for i, o := range report.Outcomes {
		if o.Path != paths[i] || o.Stage != core.StageRead || !errors.Is(o.Err, context.Canceled) {
			t.Errorf("outcome %d = %+v, want cancelled at stage read", i, o)
		}
	}
}
