package controller

import (
	"RNChatMedia/internal/helper"
	"RNChatMedia/internal/media"
	"RNChatMedia/internal/model"
	"RNChatMedia/internal/service"
	"errors"
	"log/slog"
	"net/http"
)

// multipart framing and ordinary form fields on top of the file itself
const formOverheadBytes = 1 << 20

type MediaController struct {
	mediaService *service.MediaService
	gate         *media.Gate
	fieldName    string
	maxBodySize  int64
}

func NewMediaController(mediaService *service.MediaService, policy *media.Policy, fieldName string) *MediaController {
	return &MediaController{
		mediaService: mediaService,
		gate:         media.NewGate(policy),
		fieldName:    fieldName,
		maxBodySize:  policy.MaxFileSize() + formOverheadBytes,
	}
}

// UploadMedia godoc
// @Summary      Upload Media
// @Description  Upload one file. It is verified by content, converted to a web format and published.
// @Tags         media
// @Accept       multipart/form-data
// @Produce      json
// @Param        fileData formData file true "File to upload"
// @Success      200  {object}  model.MediaReference
// @Failure      400  {object}  helper.ResponseError
// @Failure      413  {object}  helper.ResponseError
// @Failure      415  {object}  helper.ResponseError
// @Failure      429  {object}  helper.ResponseError
// @Failure      500  {object}  helper.ResponseError
// @Router       /upload [post]
// @Router       /api/media/upload [post]
func (c *MediaController) UploadMedia(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, c.maxBodySize)

	mr, err := r.MultipartReader()
	if err != nil {
		slog.Warn("Error reading multipart form", "error", err)
		helper.WriteError(w, helper.NewAdmissionError(""))
		return
	}

	upload, err := c.gate.ReadUpload(mr, c.fieldName)
	if err != nil {
		slog.Warn("Upload rejected at gate", "error", err, "remote_addr", r.RemoteAddr)
		helper.WriteError(w, gateError(err))
		return
	}

	req := model.UploadMediaRequest{
		FileName:     upload.FileName,
		DeclaredMIME: upload.DeclaredMIME,
		Size:         upload.Size(),
		Data:         upload.Data,
	}

	resp, err := c.mediaService.UploadMedia(r.Context(), r.Host, req)
	if err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteJSON(w, http.StatusOK, resp)
}

func gateError(err error) *helper.AppError {
	switch {
	case errors.Is(err, media.ErrFileTooLarge):
		return helper.NewFileTooLargeError("")
	case errors.Is(err, media.ErrFileCount), errors.Is(err, media.ErrMissingFile), errors.Is(err, media.ErrUnexpectedField):
		return helper.NewAdmissionError(helper.MsgSingleFileNeeded)
	case errors.Is(err, media.ErrExtensionNotAllowed):
		return helper.NewAdmissionError(helper.MsgInvalidFileType)
	default:
		return helper.NewAdmissionError("")
	}
}
