package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/adparams/internal/audit"
	"github.com/JonMunkholm/adparams/internal/config"
	"github.com/JonMunkholm/adparams/internal/schema"
	"github.com/JonMunkholm/adparams/internal/service"
)

const accountCSV = "Action,CID,Parameter Name,Parameter Value\n" +
	"ADD,C1-001,bid,1\n" +
	"ADD,C1-002,cap,2\n"

func testConfig() *config.Config {
	return &config.Config{
		Upload:   config.UploadConfig{MaxFileSize: 1 << 20},
		Security: config.SecurityConfig{EnableCSP: true},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	auditLog := audit.NewLogger(audit.NewMemoryStore())
	svc := service.New(service.Config{MaxFileSize: cfg.Upload.MaxFileSize}, auditLog)
	s := NewServer(cfg, svc, auditLog)
	t.Cleanup(func() { _ = s.Shutdown(t.Context()) })
	return s
}

func do(t *testing.T, s *Server, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, s *Server, method, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if v != nil {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	return do(t, s, method, path, body, "application/json")
}

func uploadFile(t *testing.T, s *Server, schemaKey, clientID, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if content != "" {
		fw, err := mw.CreateFormFile("file", "params.csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("client_id", clientID))
	require.NoError(t, mw.Close())

	return do(t, s, http.MethodPost, "/api/upload/"+schemaKey, &buf, mw.FormDataContentType())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndHeaders(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig())
	do(t, s, http.MethodGet, "/api/operators", nil, "")

	rec := do(t, s, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `adparams_http_requests_total{code="200",route="/api/operators"}`)
}

func TestSchemasAndTemplate(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodGet, "/api/schemas", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	views := decode[[]schemaView](t, rec)
	keys := make([]string, len(views))
	for i, v := range views {
		keys[i] = v.Key
	}
	assert.Contains(t, keys, schema.ParametersKey)

	rec = do(t, s, http.MethodGet, "/api/schemas/account_parameters/template", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"Action","CID","Parameter Name","Parameter Value"`, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "account_parameters_template.csv")

	rec = do(t, s, http.MethodGet, "/api/schemas/nope/template", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "VAL005", decode[ErrorResponse](t, rec).Code)
}

func TestOperators(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodGet, "/api/operators", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	ops := decode[[]map[string]any](t, rec)
	assert.Len(t, ops, 14)
}

func TestNewFilterAndToggle(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := doJSON(t, s, http.MethodPost, "/api/filters/new", map[string]string{"schema": "parameters"})
	require.Equal(t, http.StatusOK, rec.Code)
	f := decode[map[string]any](t, rec)
	assert.Equal(t, "Campaign Name", f["columnName"])
	assert.Equal(t, "CASE_CONTAIN_OR", f["operator"])

	rec = doJSON(t, s, http.MethodPost, "/api/layers/toggle", map[string]any{"selection": []string{"ad"}, "layer": "keyword"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"selection":["ad_and_keyword"],"level":"ad_and_keyword"}`, rec.Body.String())

	rec = doJSON(t, s, http.MethodPost, "/api/layers/toggle", map[string]any{"selection": []string{}, "layer": "region"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FLT004", decode[ErrorResponse](t, rec).Code)

	rec = do(t, s, http.MethodPost, "/api/layers/toggle", strings.NewReader("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "REQ001", decode[ErrorResponse](t, rec).Code)
}

func TestDatasetFlow(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := uploadFile(t, s, schema.AccountParametersKey, "C1", accountCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	up := decode[service.UploadResult](t, rec)
	require.True(t, up.Report.IsValid)
	id := up.DatasetID

	rec = do(t, s, http.MethodGet, "/api/datasets/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[service.DatasetSummary](t, rec).RowCount)

	filters := []map[string]string{{"id": "1", "columnName": "Parameter Name", "operator": "CASE_EQUAL", "value": "cap"}}
	rec = doJSON(t, s, http.MethodPost, "/api/datasets/"+id+"/rows", map[string]any{"filters": filters})
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode[map[string]any](t, rec)
	assert.EqualValues(t, 1, rows["matched"])

	rec = doJSON(t, s, http.MethodPost, "/api/datasets/"+id+"/export", map[string]any{"filters": filters, "file_name": "caps.csv"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename=caps.csv`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "1", rec.Header().Get("X-Export-Rows"))
	assert.Equal(t, `"Action","CID","Parameter Name","Parameter Value"`+"\n"+`"ADD","C1-002","cap","2"`, rec.Body.String())

	rec = doJSON(t, s, http.MethodPost, "/api/download-requests", map[string]any{
		"dataset_id":  id,
		"filters":     filters,
		"account_ids": []string{"111"},
		"layers":      []string{"campaign"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{
		"request": {
			"filter_details": {
				"rules": [{"column": "PARAMETER_NAME", "condition": {"operator": "CASE_EQUAL", "value": ["cap"]}}],
				"account_id_list": ["111"]
			},
			"download_level": "campaign"
		},
		"dropped": null
	}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/audit-log?limit=10", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[audit.Page](t, rec)
	assert.EqualValues(t, 3, page.TotalCount)
	assert.Equal(t, audit.ActionDownloadRequest, page.Entries[0].Action)

	rec = do(t, s, http.MethodGet, "/api/audit-log/export?action=dataset_export", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Export-Rows"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), `"ID","Timestamp","Action"`))

	rec = do(t, s, http.MethodDelete, "/api/datasets/"+id, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/datasets/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "UPL002", decode[ErrorResponse](t, rec).Code)
}

func TestUploadErrors(t *testing.T) {
	s := newTestServer(t, testConfig())

	t.Run("no file", func(t *testing.T) {
		rec := uploadFile(t, s, schema.AccountParametersKey, "C1", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "FILE004", decode[ErrorResponse](t, rec).Code)
	})

	t.Run("unknown schema", func(t *testing.T) {
		rec := uploadFile(t, s, "nope", "C1", accountCSV)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "VAL005", decode[ErrorResponse](t, rec).Code)
	})

	t.Run("invalid file still returns report", func(t *testing.T) {
		rec := uploadFile(t, s, schema.AccountParametersKey, "C9", accountCSV)
		require.Equal(t, http.StatusOK, rec.Code)
		up := decode[service.UploadResult](t, rec)
		assert.False(t, up.Report.IsValid)
		assert.Len(t, up.Report.Errors, 2)

		rec = doJSON(t, s, http.MethodPost, "/api/download-requests", map[string]any{
			"dataset_id":  up.DatasetID,
			"account_ids": []string{"1"},
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "VAL006", decode[ErrorResponse](t, rec).Code)
	})

	t.Run("bad filter", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/api/download-requests", map[string]any{
			"account_ids": []string{"1"},
			"filters":     []map[string]string{{"id": "1", "columnName": "", "operator": "CASE_EQUAL"}},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "FLT003", decode[ErrorResponse](t, rec).Code)
	})

	t.Run("no accounts", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/api/download-requests", map[string]any{"account_ids": []string{}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "DL001", decode[ErrorResponse](t, rec).Code)
	})
}

func TestUploadTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 16
	s := newTestServer(t, cfg)

	rec := uploadFile(t, s, schema.AccountParametersKey, "C1", accountCSV)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE001", decode[ErrorResponse](t, rec).Code)
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	s := newTestServer(t, cfg)

	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/api/schemas", nil, "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", nil, "").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/schemas", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}
	s := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", nil, "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", nil, "").Code)

	rec := do(t, s, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decode[ErrorResponse](t, rec).Code)
}

func TestAuditLogBadDate(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(t, s, http.MethodGet, "/api/audit-log?from=yesterday", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "REQ001", decode[ErrorResponse](t, rec).Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrDatasetNotFound, http.StatusNotFound},
		{service.ErrTooManyUploads, http.StatusServiceUnavailable},
		{service.ErrDatasetInvalid, http.StatusConflict},
		{errRateLimited, http.StatusTooManyRequests},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
