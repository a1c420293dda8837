// Package media holds the trust boundary of the upload pipeline: the cheap
// ingress gate, the byte-level type sniffer and the category table that
// routes verified files to a transcoder.
package media

import (
	"sort"
	"strings"
)

type Category string

const (
	CategoryVideo       Category = "video"
	CategoryAudio       Category = "audio"
	CategoryImage       Category = "image"
	CategoryDocument    Category = "document"
	CategoryPassthrough Category = "passthrough"
)

const DefaultMaxFileSize int64 = 30 * 1024 * 1024

// DefaultExtensions is the ingress allow-list.
var DefaultExtensions = []string{
	"mkv", "mp4", "avi", "flv", "mov", "webm", "wmv", "asf",
	"wav", "flac", "mp3", "ogg", "oga", "m4a", "m4v",
	"jpeg", "jpg", "png", "gif", "bmp", "tif", "tiff", "webp",
	"odt", "epub", "docx", "pdf",
}

const MIMEDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var categoryGroups = map[Category][]string{
	CategoryVideo: {
		"video/x-matroska", "video/x-flv", "video/quicktime", "video/webm",
		"video/x-ms-asf", "video/ms-asf", "video/asf", "video/x-ms-wmv",
		"video/x-msvideo", "video/avi", "video/msvideo",
	},
	CategoryAudio: {
		"audio/mp4", "audio/x-mp4a", "audio/x-m4a", "audio/m4a",
		"audio/ogg", "application/ogg", "application/x-ogg",
		"audio/wav", "audio/x-wav", "audio/vnd.wave", "audio/wave",
	},
	CategoryImage: {
		"image/bmp", "image/x-bmp", "image/x-ms-bmp", "image/webp", "image/tiff",
	},
	CategoryDocument: {
		"application/epub+zip", MIMEDocx,
		"application/vnd.oasis.opendocument.text", "application/x-vnd.oasis.opendocument.text",
	},
	CategoryPassthrough: {
		"image/jpeg", "image/png", "image/gif",
		"video/mp4", "video/x-m4v",
		"audio/mpeg", "audio/x-mpeg", "audio/mp3", "audio/flac", "audio/x-flac",
		"application/pdf", "application/x-pdf",
	},
}

type family uint8

const (
	familyUnknown family = iota
	// audio and video share containers (mp4, ogg, asf), so they are one family
	familyAV
	familyImage
	familyDocument
)

var extensionFamilies = map[string]family{
	"mkv": familyAV, "mp4": familyAV, "avi": familyAV, "flv": familyAV,
	"mov": familyAV, "qt": familyAV, "webm": familyAV, "wmv": familyAV,
	"asf": familyAV, "m4v": familyAV, "wav": familyAV, "flac": familyAV,
	"mp3": familyAV, "ogg": familyAV, "oga": familyAV, "ogv": familyAV,
	"m4a": familyAV,
	"jpeg": familyImage, "jpg": familyImage, "png": familyImage, "gif": familyImage,
	"bmp": familyImage, "tif": familyImage, "tiff": familyImage, "webp": familyImage,
	"odt": familyDocument, "epub": familyDocument, "docx": familyDocument, "pdf": familyDocument,
}

var webSafeImages = []string{"image/jpeg", "image/png", "image/gif"}

// Policy is the immutable set of tables the gate, sniffer and classifier
// consult. Build it once at startup and share it; nothing mutates it.
type Policy struct {
	maxFileSize int64
	extensions  map[string]struct{}
	categories  map[string]Category
}

type PolicyOption func(*policyOptions)

type policyOptions struct {
	normalizeWebImages bool
}

// WithWebImageNormalization routes jpeg/png/gif through the image
// transcoder instead of passing them through untouched.
func WithWebImageNormalization(enabled bool) PolicyOption {
	return func(o *policyOptions) {
		o.normalizeWebImages = enabled
	}
}

func NewPolicy(extensions []string, maxFileSize int64, opts ...PolicyOption) *Policy {
	options := &policyOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	p := &Policy{
		maxFileSize: maxFileSize,
		extensions:  make(map[string]struct{}, len(extensions)),
		categories:  make(map[string]Category),
	}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			p.extensions[ext] = struct{}{}
		}
	}
	for category, mimes := range categoryGroups {
		for _, m := range mimes {
			p.categories[m] = category
		}
	}
	if options.normalizeWebImages {
		for _, m := range webSafeImages {
			p.categories[m] = CategoryImage
		}
	}
	return p
}

func DefaultPolicy() *Policy {
	return NewPolicy(DefaultExtensions, DefaultMaxFileSize)
}

func (p *Policy) MaxFileSize() int64 {
	return p.maxFileSize
}

func (p *Policy) AllowsExtension(ext string) bool {
	_, ok := p.extensions[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return ok
}

// Extensions returns a sorted copy of the allow-list.
func (p *Policy) Extensions() []string {
	out := make([]string, 0, len(p.extensions))
	for ext := range p.extensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// sameFamily reports whether a declared and a sniffed extension describe
// the same kind of content. Extensions outside the family table must match
// exactly.
func sameFamily(declared, sniffed string) bool {
	if declared == sniffed {
		return true
	}
	d, s := extensionFamilies[declared], extensionFamilies[sniffed]
	return d != familyUnknown && d == s
}

func (p *Policy) category(mime string) (Category, bool) {
	c, ok := p.categories[mime]
	return c, ok
}
