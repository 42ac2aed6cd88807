// Package batch runs the container pipeline over many files concurrently.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ankit-chaubey/xm-surgery/core"
	"github.com/ankit-chaubey/xm-surgery/core/container"
)

var ErrNoInputs = errors.New("batch: no input files")

// Collect returns path itself when it is a file, or the files directly in
// the directory path whose extension matches ext (case-insensitive).
func Collect(path, ext string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no %s files in %s", ErrNoInputs, ext, path)
	}
	return files, nil
}

// Runner processes files with a bounded number of workers. A failing file
// never stops the others.
type Runner struct {
	Options   container.Options
	Workers   int
	OutputDir string // Empty writes next to each input
	Log       *slog.Logger
}

// Run processes paths and returns one outcome per path, in input order.
// The error is non-nil only when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, paths []string) (*core.Report, error) {
	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	report := &core.Report{
		RunID:    uuid.NewString(),
		DryRun:   r.Options.DryRun,
		Outcomes: make([]core.Outcome, len(paths)),
	}
	log = log.With(slog.String("run", report.RunID))
	log.Info("batch started", slog.Int("files", len(paths)), slog.Bool("dryRun", r.Options.DryRun))

	g, ctx := errgroup.WithContext(ctx)
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				report.Outcomes[i] = core.Outcome{Path: path, Stage: core.StageRead, Err: err}
				return err
			}
			o := r.processFile(path)
			report.Outcomes[i] = o
			if o.OK() {
				log.Info("file done",
					slog.String("path", path),
					slog.String("output", o.Output),
					slog.String("scheme", o.Scheme),
					slog.Int("repaired", o.Repaired),
				)
			} else {
				log.Error("file failed",
					slog.String("path", path),
					slog.String("stage", string(o.Stage)),
					slog.Any("error", o.Err),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	log.Info("batch finished", slog.Int("files", len(paths)), slog.Int("failed", report.Failed()))
	return report, nil
}

func (r *Runner) processFile(path string) core.Outcome {
	o := core.Outcome{Path: path, Stage: core.StageRead}
	input, err := os.ReadFile(path)
	if err != nil {
		o.Err = err
		return o
	}

	res, err := container.Process(input, r.Options)
	if err != nil {
		o.Stage = container.StageOf(err)
		o.Err = err
		return o
	}
	o.Scheme = res.Scheme.String()
	o.Format = res.Format
	o.Repaired = res.Repaired
	o.Bytes = res.Size
	if res.Tag != nil {
		o.LangWidth = res.LangWidth.String()
	}

	dir := core.ResolveOutDir(path, r.OutputDir)
	out := filepath.Join(dir, filepath.Base(container.OutputName(path, res.Extension)))
	if !r.Options.DryRun {
		if err := writeOutput(dir, out, res.Data); err != nil {
			o.Stage = core.StageWrite
			o.Err = err
			return o
		}
	}
	o.Output = out
	o.Stage = core.StageDone
	return o
}

func writeOutput(dir, out string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp := out + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := os.Rename(tmp, out); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
