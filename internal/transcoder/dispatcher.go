// Package transcoder routes a stored upload to the external tool for its
// category and turns the tool's outcome into a Result or an *Error.
package transcoder

import (
	"RNChatMedia/internal/helper"
	"RNChatMedia/internal/media"
	"RNChatMedia/internal/metrics"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

const (
	ToolFFmpeg      = "ffmpeg"
	ToolImageMagick = "imagemagick"
	ToolPandoc      = "pandoc"
	ToolRename      = "rename"
)

// Result is a successfully published derived (or renamed) file.
type Result struct {
	Path      string
	MIME      string
	Extension string
	Tool      string
}

func (r *Result) FileName() string {
	return filepath.Base(r.Path)
}

type Options struct {
	FFmpegBin       string
	ImageMagickBin  string
	PandocBin       string
	PandocPDFEngine string

	VideoMaxWidth int
	ImageMaxWidth int

	// MaxConcurrent caps simultaneous tool processes; 0 means no cap.
	MaxConcurrent int
	Timeout       time.Duration

	Presets *PresetLibrary
}

func DefaultOptions() Options {
	return Options{
		FFmpegBin:      "ffmpeg",
		ImageMagickBin: "convert",
		PandocBin:      "pandoc",
		VideoMaxWidth:  360,
		ImageMaxWidth:  400,
		MaxConcurrent:  4,
		Timeout:        5 * time.Minute,
		Presets:        DefaultPresetLibrary(),
	}
}

type Dispatcher struct {
	opts     Options
	runner   Runner
	sem      *semaphore.Weighted
	recorder metrics.Recorder
	tracer   trace.Tracer
}

func NewDispatcher(opts Options, runner Runner, recorder metrics.Recorder) *Dispatcher {
	if opts.Presets == nil {
		opts.Presets = DefaultPresetLibrary()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if recorder == nil {
		recorder = metrics.Nop()
	}

	var sem *semaphore.Weighted
	if opts.MaxConcurrent > 0 {
		sem = semaphore.NewWeighted(int64(opts.MaxConcurrent))
	}

	return &Dispatcher{
		opts:     opts,
		runner:   runner,
		sem:      sem,
		recorder: recorder,
		tracer:   otel.Tracer("RNChatMedia/internal/transcoder"),
	}
}

// job is one planned tool invocation.
type job struct {
	tool       string
	binary     string
	args       []string
	outputPath string
	outputMIME string
	outputExt  string
}

var pandocReaders = map[string]string{
	media.MIMEDocx:                              "docx",
	"application/vnd.oasis.opendocument.text":   "odt",
	"application/x-vnd.oasis.opendocument.text": "odt",
	"application/epub+zip":                      "epub",
}

// Dispatch runs exactly one tool for file's category and waits for it.
// Passthrough files are renamed to carry their verified extension.
func (d *Dispatcher) Dispatch(ctx context.Context, file media.StoredFile, category media.Category) (*Result, error) {
	ctx, span := d.tracer.Start(ctx, "transcoder.Dispatch", trace.WithAttributes(
		attribute.String("media.category", string(category)),
		attribute.String("media.mime", file.Verified.MIME),
	))
	defer span.End()

	result, err := d.dispatch(ctx, file, category)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transcode failed")
	}
	return result, err
}

func (d *Dispatcher) dispatch(ctx context.Context, file media.StoredFile, category media.Category) (*Result, error) {
	if category == media.CategoryPassthrough {
		return d.passthrough(file)
	}

	j, err := d.plan(file, category)
	if err != nil {
		return nil, err
	}

	if d.sem != nil {
		if err := d.sem.Acquire(ctx, 1); err != nil {
			return nil, &Error{Category: category, Tool: j.tool, Cause: err}
		}
		defer d.sem.Release(1)
	}

	runCtx := ctx
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	logger := slog.With("upload_id", helper.UploadIDFromContext(ctx), "category", category, "tool", j.tool)
	logger.Info("Transcoding started")

	start := time.Now()
	stderr, runErr := d.runner.Run(runCtx, j.binary, j.args)
	if runErr == nil {
		runErr = checkOutput(j.outputPath)
	}
	elapsed := time.Since(start)
	d.recorder.ObserveTranscode(string(category), elapsed, runErr)

	if runErr != nil {
		logger.Error("Transcoding failed", "error", runErr, "duration", elapsed, "stderr", string(stderr))
		return nil, &Error{Category: category, Tool: j.tool, Cause: runErr, Stderr: string(stderr)}
	}

	logger.Info("Transcoding succeeded", "duration", elapsed, "output", j.outputPath)
	return &Result{
		Path:      j.outputPath,
		MIME:      j.outputMIME,
		Extension: j.outputExt,
		Tool:      j.tool,
	}, nil
}

func (d *Dispatcher) plan(file media.StoredFile, category media.Category) (*job, error) {
	in := file.Path

	switch category {
	case media.CategoryVideo:
		preset, _ := d.opts.Presets.Get(PresetVideo)
		out := in + ".mp4"
		scale := fmt.Sprintf("scale=%d:-2", d.opts.VideoMaxWidth)
		args := []string{"-y", "-i", in, "-vf", strings.Join(preset.FilterChain(scale), ",")}
		args = append(args, preset.Args()...)
		return &job{
			tool:       ToolFFmpeg,
			binary:     d.opts.FFmpegBin,
			args:       append(args, out),
			outputPath: out,
			outputMIME: "video/mp4",
			outputExt:  "mp4",
		}, nil

	case media.CategoryAudio:
		preset, _ := d.opts.Presets.Get(PresetAudio)
		out := in + ".mp3"
		args := []string{"-y", "-i", in, "-vn"}
		if filters := preset.FilterChain(); len(filters) > 0 {
			args = append(args, "-af", strings.Join(filters, ","))
		}
		args = append(args, preset.Args()...)
		return &job{
			tool:       ToolFFmpeg,
			binary:     d.opts.FFmpegBin,
			args:       append(args, out),
			outputPath: out,
			outputMIME: "audio/mpeg",
			outputExt:  "mp3",
		}, nil

	case media.CategoryImage:
		out := in + ".png"
		// [0] keeps only the first frame of animated or multi-page input.
		args := []string{in + "[0]", "-auto-orient", "-resize", strconv.Itoa(d.opts.ImageMaxWidth), out}
		return &job{
			tool:       ToolImageMagick,
			binary:     d.opts.ImageMagickBin,
			args:       args,
			outputPath: out,
			outputMIME: "image/png",
			outputExt:  "png",
		}, nil

	case media.CategoryDocument:
		reader, ok := pandocReaders[file.Verified.MIME]
		if !ok {
			return nil, fmt.Errorf("%w: no document reader for %s", media.ErrUnmappedType, file.Verified.MIME)
		}
		out := in + ".pdf"
		args := []string{"-f", reader, "-t", "html5"}
		if d.opts.PandocPDFEngine != "" {
			args = append(args, "--pdf-engine="+d.opts.PandocPDFEngine)
		}
		args = append(args, "-o", out, in)
		return &job{
			tool:       ToolPandoc,
			binary:     d.opts.PandocBin,
			args:       args,
			outputPath: out,
			outputMIME: "application/pdf",
			outputExt:  "pdf",
		}, nil
	}

	return nil, fmt.Errorf("%w: category %q", media.ErrUnmappedType, category)
}

func (d *Dispatcher) passthrough(file media.StoredFile) (*Result, error) {
	out := file.Path + "." + file.Verified.Extension
	if err := os.Rename(file.Path, out); err != nil {
		return nil, &Error{Category: media.CategoryPassthrough, Tool: ToolRename, Cause: err}
	}
	slog.Info("Passthrough published", "upload_id", file.ID, "mime", file.Verified.MIME, "output", out)
	return &Result{
		Path:      out,
		MIME:      file.Verified.MIME,
		Extension: file.Verified.Extension,
		Tool:      ToolRename,
	}, nil
}

func checkOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoOutput, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", ErrNoOutput, filepath.Base(path))
	}
	return nil
}
