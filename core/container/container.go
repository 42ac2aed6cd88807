// Package container turns an .xm container into a playable audio file.
//
// Process runs a fixed sequence of stages over the whole file in memory:
// header, transform, tag, verify (optional) and assemble. Every failure is
// reported as a *PipelineError naming the stage it happened in; errors.Is
// reaches the sentinel errors of the transform and tagframe packages.
package container

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ankit-chaubey/xm-surgery/core"
	"github.com/ankit-chaubey/xm-surgery/core/audio"
	"github.com/ankit-chaubey/xm-surgery/core/tagframe"
	"github.com/ankit-chaubey/xm-surgery/core/transform"
)

// ErrNoAudio is returned when nothing follows the tag block.
var ErrNoAudio = errors.New("container: no audio after tag block")

// Options controls one Process call.
type Options struct {
	// DryRun runs every stage but leaves Result.Data nil.
	DryRun bool
	// LangWidth forces the tag's language field width; LangAuto detects it.
	LangWidth tagframe.LangWidth
	// RepairLanguage rewrites 2-byte language codes to ISO 639-2.
	RepairLanguage bool
	// Verify re-reads the tag with a standard parser and probes the audio.
	Verify bool
}

// Result is the output artifact of a successful Process call.
type Result struct {
	Data      []byte // Tag block + audio; nil on dry runs
	Size      int    // len(Data) had it been assembled
	Header    transform.Header
	Scheme    transform.Scheme
	Tag       *tagframe.Block // nil when the plaintext has no tag block
	LangWidth tagframe.LangWidth
	Repaired  int
	Format    core.FormatID
	Extension string
	// AudioOffset and AudioSize locate the audio within Data.
	AudioOffset int
	AudioSize   int
}

// Audio returns the audio region of Data.
func (r *Result) Audio() []byte {
	if r.Data == nil {
		return nil
	}
	return r.Data[r.AudioOffset : r.AudioOffset+r.AudioSize]
}

// PipelineError records the stage a file failed in.
type PipelineError struct {
	Stage core.Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// StageOf returns the stage recorded in err, or StageRead for errors that
// did not come from Process.
func StageOf(err error) core.Stage {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return core.StageRead
}

func fail(stage core.Stage, err error) error {
	return &PipelineError{Stage: stage, Err: err}
}

// Process decrypts input and rebuilds its tag block. It holds no state
// between calls and is safe for concurrent use.
func Process(input []byte, opts Options) (*Result, error) {
	hdr, err := transform.ParseHeader(input)
	if err != nil {
		return nil, fail(core.StageHeader, err)
	}

	st, err := transform.Derive(hdr)
	if err != nil {
		return nil, fail(core.StageTransform, err)
	}
	plain, err := st.Decrypt(input[transform.HeaderSize:])
	if err != nil {
		return nil, fail(core.StageTransform, err)
	}

	res := &Result{Header: hdr, Scheme: st.Scheme()}
	var tagBytes []byte
	body := plain
	if hdr.HasTagBlock() || bytes.HasPrefix(plain, []byte("ID3")) {
		blk, err := tagframe.Parse(plain, tagframe.WithLanguageWidth(opts.LangWidth))
		if err != nil {
			return nil, fail(core.StageTag, err)
		}
		body = plain[blk.Size():]
		res.LangWidth = blk.LangWidth
		if opts.RepairLanguage {
			n, err := blk.RepairLanguage()
			if err != nil {
				return nil, fail(core.StageTag, err)
			}
			res.Repaired = n
		}
		if tagBytes, err = blk.Serialize(); err != nil {
			return nil, fail(core.StageTag, err)
		}
		res.Tag = blk
	}
	if len(body) == 0 {
		return nil, fail(core.StageAssemble, ErrNoAudio)
	}
	res.Format = core.DetectAudio(body)
	res.Extension = core.Extension(res.Format)

	if opts.Verify {
		if tagBytes != nil {
			if err := tagframe.Verify(tagBytes); err != nil {
				return nil, fail(core.StageVerify, err)
			}
		}
		if _, err := audio.Probe(body, res.Format); err != nil {
			return nil, fail(core.StageVerify, err)
		}
	}

	res.AudioOffset = len(tagBytes)
	res.AudioSize = len(body)
	res.Size = len(tagBytes) + len(body)
	if opts.DryRun {
		return res, nil
	}
	res.Data = make([]byte, 0, res.Size)
	res.Data = append(res.Data, tagBytes...)
	res.Data = append(res.Data, body...)
	return res, nil
}

// Seal wraps plain audio into a container. The tag flag is set when plain
// starts with a tag block.
func Seal(plain []byte, hdr transform.Header) ([]byte, error) {
	if bytes.HasPrefix(plain, []byte("ID3")) {
		hdr.Flags |= transform.FlagTagBlock
	}
	raw := hdr.Marshal()
	payload, err := transform.Encrypt(raw, plain)
	if err != nil {
		return nil, err
	}
	return append(raw, payload...), nil
}

// OutputName swaps the extension of inputPath for ext: "dir/A.xm" becomes
// "dir/A.m4a".
func OutputName(inputPath, ext string) string {
	base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	return base + ext
}
