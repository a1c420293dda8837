package helper

import (
	"context"
	"strings"
)

type requestContextKey string

const uploadIDContextKey requestContextKey = "upload_id"

// WithUploadID tags ctx with the stored identifier so later stages can log it.
func WithUploadID(ctx context.Context, id string) context.Context {
	cleaned := strings.TrimSpace(id)
	if cleaned == "" {
		return ctx
	}

	return context.WithValue(ctx, uploadIDContextKey, cleaned)
}

func UploadIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	value, _ := ctx.Value(uploadIDContextKey).(string)
	return value
}
