package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/sakif/skillshare/internal/apperror"
	"github.com/sakif/skillshare/internal/model"
)

// UploadService hands out placeholder URLs for uploaded files. Nothing is
// stored; the URL is deterministic in shape only.
type UploadService struct {
	baseURL  string
	maxBytes int64
	logger   *slog.Logger
}

func NewUploadService(baseURL string, maxBytes int64, logger *slog.Logger) *UploadService {
	return &UploadService{
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
		logger:   logger,
	}
}

type UploadResult struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

func (s *UploadService) MaxBytes() int64 { return s.maxBytes }

// Accept names the file <uuid><ext> and returns where it would live.
func (s *UploadService) Accept(_ context.Context, principal *model.User, originalName string, size int64) (*UploadResult, error) {
	if size <= 0 {
		return nil, apperror.ValidationFailed("file", "please select a file to upload")
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, apperror.ValidationFailed("file", "file is too large")
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	s.logger.Info("upload accepted",
		slog.String("userID", principal.ID),
		slog.String("filename", name),
		slog.Int64("size", size),
	)
	return &UploadResult{URL: s.baseURL + "/" + name, Filename: name}, nil
}
