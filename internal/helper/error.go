package helper

import "net/http"

const (
	MsgInternalServerError = "Internal Server Error"
	MsgBadRequest          = "Bad Request"
	MsgNotFound            = "Not Found"
	MsgMethodNotAllowed    = "Method Not Allowed"
	MsgTooManyRequests     = "Too Many Requests"
	MsgServiceUnavailable  = "Service Unavailable"

	MsgInvalidFileType  = "Invalid file type"
	MsgTranscodeFailed  = "Failed to process the uploaded file"
	MsgFileTooLarge     = "File is too large"
	MsgSingleFileNeeded = "Exactly one file must be uploaded"
)

// Error kinds let clients tell a rejected file apart from a processing failure.
const (
	KindAdmission          = "admission_rejected"
	KindTypeMismatch       = "type_mismatch"
	KindTranscode          = "transcode_failed"
	KindInternal           = "internal_error"
	KindNotFound           = "not_found"
	KindMethodNotAllowed   = "method_not_allowed"
	KindTooManyRequests    = "too_many_requests"
	KindServiceUnavailable = "service_unavailable"
)

type AppError struct {
	Code    int
	Kind    string
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func NewAppError(code int, kind, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

func NewInternalServerError(message string) *AppError {
	if message == "" {
		message = MsgInternalServerError
	}
	return NewAppError(http.StatusInternalServerError, KindInternal, message)
}

func NewNotFoundError(message string) *AppError {
	if message == "" {
		message = MsgNotFound
	}
	return NewAppError(http.StatusNotFound, KindNotFound, message)
}

func NewMethodNotAllowedError(message string) *AppError {
	if message == "" {
		message = MsgMethodNotAllowed
	}
	return NewAppError(http.StatusMethodNotAllowed, KindMethodNotAllowed, message)
}

func NewTooManyRequestsError(message string) *AppError {
	if message == "" {
		message = MsgTooManyRequests
	}
	return NewAppError(http.StatusTooManyRequests, KindTooManyRequests, message)
}

func NewServiceUnavailableError(message string) *AppError {
	if message == "" {
		message = MsgServiceUnavailable
	}
	return NewAppError(http.StatusServiceUnavailable, KindServiceUnavailable, message)
}

// NewAdmissionError rejects an upload at the gate: bad extension, wrong
// number of files or a malformed form.
func NewAdmissionError(message string) *AppError {
	if message == "" {
		message = MsgBadRequest
	}
	return NewAppError(http.StatusBadRequest, KindAdmission, message)
}

func NewFileTooLargeError(message string) *AppError {
	if message == "" {
		message = MsgFileTooLarge
	}
	return NewAppError(http.StatusRequestEntityTooLarge, KindAdmission, message)
}

func NewTypeMismatchError(message string) *AppError {
	if message == "" {
		message = MsgInvalidFileType
	}
	return NewAppError(http.StatusUnsupportedMediaType, KindTypeMismatch, message)
}

func NewTranscodeError(message string) *AppError {
	if message == "" {
		message = MsgTranscodeFailed
	}
	return NewAppError(http.StatusInternalServerError, KindTranscode, message)
}

func NewInternalDispatchError() *AppError {
	return NewAppError(http.StatusInternalServerError, KindInternal, MsgInternalServerError)
}
