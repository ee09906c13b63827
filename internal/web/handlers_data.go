package web

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/adparams/internal/service"
)

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.Dataset(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteDataset(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQueryRows(w http.ResponseWriter, r *http.Request) {
	var q service.RowsQuery
	if err := decodeJSON(r, &q); err != nil {
		respondError(w, r, err)
		return
	}

	rows, err := s.service.QueryRows(r.Context(), chi.URLParam(r, "id"), q)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleExportDataset writes the filtered dataset as a CSV attachment. The
// export is buffered so a failure can still be reported as JSON.
func (s *Server) handleExportDataset(w http.ResponseWriter, r *http.Request) {
	var in service.ExportInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}

	var buf bytes.Buffer
	res, err := s.service.Export(r.Context(), chi.URLParam(r, "id"), in, &buf)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(res.FileName))
	w.Header().Set("X-Export-Rows", strconv.Itoa(res.Rows))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleDownloadRequest(w http.ResponseWriter, r *http.Request) {
	var in service.DownloadInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := s.service.BuildDownloadRequest(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// attachment builds a Content-Disposition value with the file name escaped.
func attachment(name string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}
