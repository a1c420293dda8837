package service

import (
	"RNChatMedia/internal/adapter"
	"RNChatMedia/internal/config"
	"RNChatMedia/internal/helper"
	"RNChatMedia/internal/media"
	"RNChatMedia/internal/metrics"
	"RNChatMedia/internal/model"
	"RNChatMedia/internal/transcoder"
	"bytes"
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

const maxStoreAttempts = 3

const (
	OutcomeSucceeded       = "succeeded"
	OutcomeTypeMismatch    = "type_mismatch"
	OutcomeTranscodeFailed = "transcode_failed"
	OutcomeInternal        = "internal_error"
)

type MediaService struct {
	cfg            *config.AppConfig
	validator      *validator.Validate
	storageAdapter *adapter.StorageAdapter
	sniffer        *media.Sniffer
	classifier     *media.Classifier
	dispatcher     *transcoder.Dispatcher
	recorder       metrics.Recorder
}

func NewMediaService(cfg *config.AppConfig, validator *validator.Validate, storageAdapter *adapter.StorageAdapter, policy *media.Policy, dispatcher *transcoder.Dispatcher, recorder metrics.Recorder) *MediaService {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &MediaService{
		cfg:            cfg,
		validator:      validator,
		storageAdapter: storageAdapter,
		sniffer:        media.NewSniffer(policy),
		classifier:     media.NewClassifier(policy),
		dispatcher:     dispatcher,
		recorder:       recorder,
	}
}

// UploadMedia stores an admitted upload, verifies its bytes, converts it
// to its web form and returns where it can be fetched. requestHost is used
// when no public host is configured.
func (s *MediaService) UploadMedia(ctx context.Context, requestHost string, req model.UploadMediaRequest) (*model.MediaReference, error) {
	if err := s.validator.Struct(req); err != nil {
		slog.Warn("Validation failed", "error", err)
		return nil, helper.NewAdmissionError("")
	}

	stored, err := s.store(req.Data)
	if err != nil {
		slog.Error("Failed to store upload", "error", err, "file_name", req.FileName)
		s.recorder.ObserveUpload(OutcomeInternal)
		return nil, helper.NewInternalServerError("")
	}
	ctx = helper.WithUploadID(ctx, stored.ID)
	logger := slog.With("upload_id", stored.ID)
	logger.Info("Upload stored", "file_name", req.FileName, "declared_mime", req.DeclaredMIME, "size", req.Size)

	verified, err := s.sniffer.SniffFile(stored.Path)
	if err == nil {
		err = s.sniffer.CheckDeclared(req.FileName, verified)
	}
	if err != nil {
		if errors.Is(err, media.ErrUnknownType) || errors.Is(err, media.ErrDeclaredMismatch) {
			logger.Warn("Upload rejected by content check", "error", err, "file_name", req.FileName)
			s.recorder.ObserveUpload(OutcomeTypeMismatch)
			return nil, helper.NewTypeMismatchError("")
		}
		logger.Error("Failed to inspect stored upload", "error", err)
		s.recorder.ObserveUpload(OutcomeInternal)
		return nil, helper.NewInternalServerError("")
	}
	stored.Verified = verified

	category, err := s.classifier.Classify(verified.MIME)
	if err != nil {
		logger.Error("Verified type has no category", "error", err, "mime", verified.MIME)
		s.recorder.ObserveUpload(OutcomeInternal)
		return nil, helper.NewInternalDispatchError()
	}
	logger.Info("Upload validated", "mime", verified.MIME, "category", category)

	result, err := s.dispatcher.Dispatch(ctx, *stored, category)
	if err != nil {
		if errors.Is(err, media.ErrUnmappedType) {
			logger.Error("No transcoder for verified type", "error", err, "mime", verified.MIME)
			s.recorder.ObserveUpload(OutcomeInternal)
			return nil, helper.NewInternalDispatchError()
		}
		logger.Error("Failed to transcode upload", "error", err, "category", category)
		s.recorder.ObserveUpload(OutcomeTranscodeFailed)
		return nil, helper.NewTranscodeError("")
	}

	if !s.cfg.StorageKeepOriginals && category != media.CategoryPassthrough {
		s.storageAdapter.Remove(stored.Path)
	}

	if s.cfg.StorageMode == config.StorageModeS3 {
		key := helper.MediaKey(s.cfg.MediaURLPrefix, result.FileName())
		if err := s.storageAdapter.Publish(ctx, result.Path, key, result.MIME); err != nil {
			logger.Error("Failed to publish upload to bucket", "error", err, "key", key)
			s.recorder.ObserveUpload(OutcomeInternal)
			return nil, helper.NewInternalServerError("")
		}
		s.storageAdapter.Remove(result.Path)
	}

	host := s.cfg.PublicHost
	if host == "" {
		host = requestHost
	}
	url := helper.BuildMediaURL(s.cfg.StorageMode, s.cfg.PublicScheme, host, s.storageAdapter.PublicBaseURL(), s.cfg.MediaURLPrefix, result.FileName())

	logger.Info("Upload published", "url", url, "type", result.MIME, "tool", result.Tool)
	s.recorder.ObserveUpload(OutcomeSucceeded)

	return &model.MediaReference{
		URL:  url,
		Type: result.MIME,
	}, nil
}

func (s *MediaService) store(data []byte) (*media.StoredFile, error) {
	var lastErr error
	for i := 0; i < maxStoreAttempts; i++ {
		id := helper.GenerateStoredID()
		path, err := s.storageAdapter.Save(id, bytes.NewReader(data))
		if errors.Is(err, adapter.ErrStoredIDExists) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		return &media.StoredFile{ID: id, Path: path}, nil
	}
	return nil, lastErr
}
