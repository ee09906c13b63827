package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/adparams/internal/csvio"
	"github.com/JonMunkholm/adparams/internal/service"
)

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and the other fields.
const multipartOverhead = 1 << 20

// handleUpload validates a CSV sent as the multipart field "file". The
// optional "client_id" field selects the client whose CID prefix is enforced.
// A file that fails validation still returns 200 with the report.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	schemaKey := chi.URLParam(r, "schemaKey")
	maxSize := s.cfg.Upload.MaxFileSize

	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			err = fmt.Errorf("%w: %v", csvio.ErrFileTooLarge, err)
		} else {
			err = fmt.Errorf("%w: %v", errBadRequest, err)
		}
		respondError(w, r, err)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, errNoFile)
		return
	}
	defer file.Close()

	result, err := s.service.UploadDataset(r.Context(), service.UploadInput{
		SchemaKey: schemaKey,
		ClientID:  r.FormValue("client_id"),
		FileName:  header.Filename,
		Body:      file,
		Size:      header.Size,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
