package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/skillshare/internal/apperror"
	"github.com/sakif/skillshare/internal/service"
)

type UploadHandler struct {
	uploads *service.UploadService
	logger  *slog.Logger
}

func NewUploadHandler(uploads *service.UploadService, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, logger: logger}
}

// HandleUpload handles POST /upload with a multipart "file" field. The file
// body is read and discarded.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	me, ok := principal(w, r)
	if !ok {
		return
	}

	// leave room for the multipart envelope around the file
	r.Body = http.MaxBytesReader(w, r.Body, h.uploads.MaxBytes()+64<<10)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, h.logger, apperror.ValidationFailed("file", "file is too large"))
			return
		}
		writeError(w, h.logger, apperror.ValidationFailed("file", "please select a file to upload"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, h.logger, apperror.ValidationFailed("file", "please select a file to upload"))
		return
	}
	file.Close()

	res, err := h.uploads.Accept(r.Context(), me, header.Filename, header.Size)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
