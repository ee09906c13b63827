package web

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/adparams/internal/core"
	"github.com/JonMunkholm/adparams/internal/schema"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"uploads": s.service.Limiter().Status(),
	})
}

// schemaView is the client-facing description of an upload schema.
type schemaView struct {
	Key                 string   `json:"key"`
	Group               string   `json:"group"`
	Label               string   `json:"label"`
	Columns             []string `json:"columns"`
	RequiredColumns     []string `json:"requiredColumns"`
	RequiredCellColumns []string `json:"requiredCellColumns"`
	DefaultFilterColumn string   `json:"defaultFilterColumn"`
}

func (s *Server) handleListSchemas(w http.ResponseWriter, _ *http.Request) {
	schemas := s.service.Schemas()
	views := make([]schemaView, len(schemas))
	for i, sch := range schemas {
		views[i] = schemaView{
			Key:                 sch.Key,
			Group:               sch.Group,
			Label:               sch.Label,
			Columns:             sch.Columns,
			RequiredColumns:     sch.RequiredColumns(),
			RequiredCellColumns: sch.RequiredCellColumns(),
			DefaultFilterColumn: sch.DefaultFilterColumn,
		}
	}
	writeJSON(w, http.StatusOK, views)
}

// handleDownloadTemplate serves a header-only CSV for a schema.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	sch, err := schema.Lookup(chi.URLParam(r, "schemaKey"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := core.WriteCSVWithHeader(&buf, sch.Columns, nil); err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(sch.Key+"_template.csv"))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleListOperators(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Operators())
}

type newFilterRequest struct {
	Schema string `json:"schema"`
	Column string `json:"column"`
}

func (s *Server) handleNewFilter(w http.ResponseWriter, r *http.Request) {
	var req newFilterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	f, err := s.service.NewFilter(req.Schema, req.Column)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

type toggleRequest struct {
	Selection core.Selection `json:"selection"`
	Layer     string         `json:"layer"`
}

type toggleResponse struct {
	Selection core.Selection `json:"selection"`
	Level     core.DataLayer `json:"level"`
}

func (s *Server) handleToggleLayer(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	layer, err := core.ParseLayer(req.Layer)
	if err != nil {
		respondError(w, r, err)
		return
	}

	next := s.service.ToggleLayer(req.Selection, layer)
	writeJSON(w, http.StatusOK, toggleResponse{Selection: next, Level: next.Level()})
}
