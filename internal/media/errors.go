package media

import "errors"

var (
	// Gate rejections.
	ErrExtensionNotAllowed = errors.New("file extension not allowed")
	ErrFileTooLarge        = errors.New("file exceeds size limit")
	ErrFileCount           = errors.New("exactly one file is required")
	ErrMissingFile         = errors.New("no file in request")
	ErrUnexpectedField     = errors.New("unexpected file field")
	ErrMalformedForm       = errors.New("malformed multipart form")

	// ErrUnknownType means the bytes did not sniff to an allowed type.
	ErrUnknownType = errors.New("invalid file type")

	// ErrDeclaredMismatch means the content is allowed but is not what the
	// file name claims, e.g. a PNG named clip.mp4.
	ErrDeclaredMismatch = errors.New("content does not match file extension")

	// ErrUnmappedType means a verified type has no category. The allow-list
	// and the category table are out of sync.
	ErrUnmappedType = errors.New("verified type has no category")
)
