package media

import (
	"RNChatMedia/internal/helper"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// Gate is the cheap first-pass filter. It trusts nothing it approves: a
// passed extension only means the upload is worth writing to disk.
type Gate struct {
	policy *Policy
}

func NewGate(policy *Policy) *Gate {
	return &Gate{policy: policy}
}

func (g *Gate) CheckExtension(filename string) error {
	ext := helper.FileExtension(filename)
	if ext == "" || !g.policy.AllowsExtension(ext) {
		return fmt.Errorf("%w: %q", ErrExtensionNotAllowed, ext)
	}
	return nil
}

func (g *Gate) CheckSize(size int64) error {
	if size > g.policy.MaxFileSize() {
		return fmt.Errorf("%w: %d > %d bytes", ErrFileTooLarge, size, g.policy.MaxFileSize())
	}
	return nil
}

func (g *Gate) CheckCount(n int) error {
	switch {
	case n == 0:
		return ErrMissingFile
	case n != 1:
		return fmt.Errorf("%w: got %d", ErrFileCount, n)
	}
	return nil
}

// Admit runs all three checks for an upload whose size is already known.
func (g *Gate) Admit(filename string, size int64, count int) error {
	if err := g.CheckCount(count); err != nil {
		return err
	}
	if err := g.CheckExtension(filename); err != nil {
		return err
	}
	return g.CheckSize(size)
}

// Upload is one untrusted file as received. FileName and DeclaredMIME are
// for display and logging only.
type Upload struct {
	FileName     string
	DeclaredMIME string
	Data         []byte
}

func (u *Upload) Size() int64 {
	return int64(len(u.Data))
}

// ReadUpload streams a multipart body and returns its single file part held
// in memory. The extension is checked as soon as the part header arrives and
// at most MaxFileSize+1 bytes are read, so rejected uploads never touch the
// storage root.
func (g *Gate) ReadUpload(mr *multipart.Reader, field string) (*Upload, error) {
	var upload *Upload
	files := 0

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError(err)
		}

		if part.FileName() == "" {
			_ = part.Close()
			continue
		}

		files++
		if files > 1 {
			_ = part.Close()
			return nil, g.CheckCount(files)
		}
		if part.FormName() != field {
			_ = part.Close()
			return nil, fmt.Errorf("%w: %q", ErrUnexpectedField, part.FormName())
		}
		if err := g.CheckExtension(part.FileName()); err != nil {
			_ = part.Close()
			return nil, err
		}

		var buf bytes.Buffer
		n, err := io.Copy(&buf, io.LimitReader(part, g.policy.MaxFileSize()+1))
		_ = part.Close()
		if err != nil {
			return nil, readError(err)
		}
		if err := g.CheckSize(n); err != nil {
			return nil, err
		}

		upload = &Upload{
			FileName:     part.FileName(),
			DeclaredMIME: part.Header.Get("Content-Type"),
			Data:         buf.Bytes(),
		}
	}

	if err := g.CheckCount(files); err != nil {
		return nil, err
	}
	return upload, nil
}

func readError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return fmt.Errorf("%w: request body over %d bytes", ErrFileTooLarge, maxBytesErr.Limit)
	}
	return fmt.Errorf("%w: %v", ErrMalformedForm, err)
}
