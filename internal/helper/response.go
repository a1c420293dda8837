package helper

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type ResponseError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func WriteJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = NewInternalServerError("")
	}

	WriteJSON(w, appErr.Code, ResponseError{
		Error: appErr.Message,
		Code:  appErr.Kind,
	})
}
