package media

import (
	"RNChatMedia/internal/helper"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Verified is a type derived from file content, never from the client.
type Verified struct {
	MIME      string
	Extension string
}

// Sniffer is the authoritative type check. Only the magic-number prefix is
// inspected.
type Sniffer struct {
	policy *Policy
}

func NewSniffer(policy *Policy) *Sniffer {
	return &Sniffer{policy: policy}
}

// SniffFile inspects bytes already persisted at path.
func (s *Sniffer) SniffFile(path string) (Verified, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return Verified{}, fmt.Errorf("sniff %s: %w", path, err)
	}
	return s.verify(mtype)
}

// CheckDeclared rejects verified content that contradicts the extension
// the client gave the file.
func (s *Sniffer) CheckDeclared(filename string, v Verified) error {
	declared := helper.FileExtension(filename)
	if !sameFamily(declared, v.Extension) {
		return fmt.Errorf("%w: named .%s, content is %s", ErrDeclaredMismatch, declared, v.MIME)
	}
	return nil
}

func (s *Sniffer) verify(mtype *mimetype.MIME) (Verified, error) {
	if mtype == nil || mtype.Is("application/octet-stream") {
		return Verified{}, fmt.Errorf("%w: indeterminate", ErrUnknownType)
	}

	ext := strings.TrimPrefix(mtype.Extension(), ".")
	mime := baseMIME(mtype.String())
	if ext == "" || !s.policy.AllowsExtension(ext) {
		return Verified{}, fmt.Errorf("%w: %s", ErrUnknownType, mime)
	}

	return Verified{MIME: mime, Extension: ext}, nil
}
