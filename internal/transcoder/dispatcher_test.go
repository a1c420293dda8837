package transcoder

import (
	"RNChatMedia/internal/media"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	binary string
	args   []string
}

// fakeRunner writes a small output file where the real tool would, unless
// told to fail or to produce nothing.
type fakeRunner struct {
	mu       sync.Mutex
	calls    []call
	err      error
	stderr   []byte
	noOutput bool
	block    chan struct{}
	active   int32
	peak     int32
}

func (f *fakeRunner) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{binary: binary, args: append([]string(nil), args...)})
	f.mu.Unlock()

	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return f.stderr, ctx.Err()
		}
	}

	if f.err != nil {
		return f.stderr, f.err
	}
	if !f.noOutput {
		if err := os.WriteFile(outputArg(args), []byte("derived"), 0o644); err != nil {
			return nil, err
		}
	}
	return f.stderr, nil
}

func (f *fakeRunner) lastCall() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func outputArg(args []string) string {
	for i, a := range args {
		if a == "-o" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return args[len(args)-1]
}

type recordedTranscode struct {
	category string
	err      error
}

type fakeRecorder struct {
	mu         sync.Mutex
	transcodes []recordedTranscode
}

func (r *fakeRecorder) ObserveTranscode(category string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcodes = append(r.transcodes, recordedTranscode{category: category, err: err})
}

func (r *fakeRecorder) ObserveUpload(string) {}

func storedFile(t *testing.T, mime, ext string) media.StoredFile {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "a1b2c3")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))
	return media.StoredFile{
		ID:       "a1b2c3",
		Path:     path,
		Verified: media.Verified{MIME: mime, Extension: ext},
	}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.FFmpegBin = "/usr/bin/ffmpeg"
	opts.ImageMagickBin = "/usr/bin/convert"
	opts.PandocBin = "/usr/bin/pandoc"
	return opts
}

func TestDispatchVideo(t *testing.T) {
	runner := &fakeRunner{}
	rec := &fakeRecorder{}
	d := NewDispatcher(testOptions(), runner, rec)
	file := storedFile(t, "video/x-matroska", "mkv")

	result, err := d.Dispatch(context.Background(), file, media.CategoryVideo)
	require.NoError(t, err)

	assert.Equal(t, file.Path+".mp4", result.Path)
	assert.Equal(t, "a1b2c3.mp4", result.FileName())
	assert.Equal(t, "video/mp4", result.MIME)
	assert.Equal(t, ToolFFmpeg, result.Tool)

	c := runner.lastCall()
	assert.Equal(t, "/usr/bin/ffmpeg", c.binary)
	assert.Equal(t, []string{"-y", "-i", file.Path, "-vf", "scale=360:-2"}, c.args[:5])
	assert.Contains(t, c.args, "libx264")
	assert.Equal(t, file.Path+".mp4", c.args[len(c.args)-1])

	require.Len(t, rec.transcodes, 1)
	assert.Equal(t, "video", rec.transcodes[0].category)
	assert.NoError(t, rec.transcodes[0].err)
}

func TestDispatchAudio(t *testing.T) {
	runner := &fakeRunner{}
	d := NewDispatcher(testOptions(), runner, nil)
	file := storedFile(t, "audio/wav", "wav")

	result, err := d.Dispatch(context.Background(), file, media.CategoryAudio)
	require.NoError(t, err)

	assert.Equal(t, "audio/mpeg", result.MIME)
	assert.Equal(t, "mp3", result.Extension)

	c := runner.lastCall()
	assert.Equal(t, []string{"-y", "-i", file.Path, "-vn"}, c.args[:4])
	assert.Contains(t, c.args, "libmp3lame")
	assert.FileExists(t, file.Path+".mp3")
}

func TestDispatchImage(t *testing.T) {
	runner := &fakeRunner{}
	d := NewDispatcher(testOptions(), runner, nil)
	file := storedFile(t, "image/bmp", "bmp")

	result, err := d.Dispatch(context.Background(), file, media.CategoryImage)
	require.NoError(t, err)

	assert.Equal(t, "image/png", result.MIME)
	assert.Equal(t, ToolImageMagick, result.Tool)

	c := runner.lastCall()
	assert.Equal(t, "/usr/bin/convert", c.binary)
	assert.Equal(t, []string{file.Path + "[0]", "-auto-orient", "-resize", "400", file.Path + ".png"}, c.args)
}

func TestDispatchDocument(t *testing.T) {
	runner := &fakeRunner{}
	opts := testOptions()
	opts.PandocPDFEngine = "wkhtmltopdf"
	d := NewDispatcher(opts, runner, nil)
	file := storedFile(t, media.MIMEDocx, "docx")

	result, err := d.Dispatch(context.Background(), file, media.CategoryDocument)
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", result.MIME)
	assert.Equal(t, "a1b2c3.pdf", result.FileName())

	c := runner.lastCall()
	assert.Equal(t, []string{
		"-f", "docx", "-t", "html5", "--pdf-engine=wkhtmltopdf",
		"-o", file.Path + ".pdf", file.Path,
	}, c.args)
}

func TestDispatchDocumentUnknownReader(t *testing.T) {
	runner := &fakeRunner{}
	d := NewDispatcher(testOptions(), runner, nil)
	file := storedFile(t, "application/rtf", "rtf")

	_, err := d.Dispatch(context.Background(), file, media.CategoryDocument)
	assert.ErrorIs(t, err, media.ErrUnmappedType)
	assert.Empty(t, runner.calls)
}

func TestDispatchPassthroughRenames(t *testing.T) {
	runner := &fakeRunner{}
	d := NewDispatcher(testOptions(), runner, nil)
	file := storedFile(t, "image/png", "png")

	result, err := d.Dispatch(context.Background(), file, media.CategoryPassthrough)
	require.NoError(t, err)

	assert.Equal(t, file.Path+".png", result.Path)
	assert.Equal(t, "image/png", result.MIME)
	assert.Equal(t, ToolRename, result.Tool)
	assert.NoFileExists(t, file.Path)
	assert.Empty(t, runner.calls)

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestDispatchToolFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("ffmpeg exited with code 1"), stderr: []byte("moov atom not found")}
	rec := &fakeRecorder{}
	d := NewDispatcher(testOptions(), runner, rec)
	file := storedFile(t, "video/quicktime", "mov")

	result, err := d.Dispatch(context.Background(), file, media.CategoryVideo)
	assert.Nil(t, result)

	var tErr *Error
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, media.CategoryVideo, tErr.Category)
	assert.Equal(t, ToolFFmpeg, tErr.Tool)
	assert.Equal(t, "moov atom not found", tErr.Stderr)

	require.Len(t, rec.transcodes, 1)
	assert.Error(t, rec.transcodes[0].err)
}

func TestDispatchMissingOutputIsFailure(t *testing.T) {
	runner := &fakeRunner{noOutput: true}
	d := NewDispatcher(testOptions(), runner, nil)
	file := storedFile(t, "image/webp", "webp")

	_, err := d.Dispatch(context.Background(), file, media.CategoryImage)
	assert.ErrorIs(t, err, ErrNoOutput)
}

func TestDispatchTimeout(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	opts := testOptions()
	opts.Timeout = 20 * time.Millisecond
	d := NewDispatcher(opts, runner, nil)
	file := storedFile(t, "audio/ogg", "ogg")

	_, err := d.Dispatch(context.Background(), file, media.CategoryAudio)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDispatchBoundsConcurrency(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	opts := testOptions()
	opts.MaxConcurrent = 2
	d := NewDispatcher(opts, runner, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		file := storedFile(t, "audio/wav", "wav")
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.Dispatch(context.Background(), file, media.CategoryAudio)
		}()
	}

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&runner.active) == 2
	}, time.Second, 5*time.Millisecond)

	close(runner.block)
	wg.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&runner.peak))
	assert.Len(t, runner.calls, 5)
}

func TestDispatchCancelledWhileQueued(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	opts := testOptions()
	opts.MaxConcurrent = 1
	d := NewDispatcher(opts, runner, nil)

	first := storedFile(t, "audio/wav", "wav")
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = d.Dispatch(context.Background(), first, media.CategoryAudio)
	}()
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&runner.active) == 1
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Dispatch(ctx, storedFile(t, "audio/wav", "wav"), media.CategoryAudio)
	assert.ErrorIs(t, err, context.Canceled)

	close(runner.block)
	<-done
}
