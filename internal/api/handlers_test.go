package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"datalens/internal/ai"
	"datalens/internal/models"
	"datalens/internal/state"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestServer wires a handler against the given fake model endpoint.
func newTestServer(t *testing.T, aiBaseURL string) (*httptest.Server, *state.Store) {
	t.Helper()

	store := state.NewStore()
	svc := ai.NewService(ai.Config{BaseURL: aiBaseURL, Timeout: 2 * time.Second})
	handler := NewHandler(store, svc, zap.NewNop(), time.Millisecond)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, store
}

// fakeModel answers every generate call with the same completion.
func fakeModel(t *testing.T, completion string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"response": completion})
	}))
	t.Cleanup(server.Close)
	return server
}

func brokenModel(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)
	return server
}

func uploadCSV(t *testing.T, server *httptest.Server, filename, content string) *http.Response {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/upload", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

const salesCSV = "region,amount\nwest,10\nwest,30\neast,20\n"

func TestUploadAndStatus(t *testing.T) {
	server, store := newTestServer(t, "")

	resp := uploadCSV(t, server, "sales.csv", salesCSV)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var upload models.UploadResponse
	decode(t, resp, &upload)
	assert.Equal(t, 3, upload.Rows)
	assert.Equal(t, 3, upload.TotalRows)
	assert.Equal(t, []string{"region", "amount"}, upload.ColumnNames)
	require.NotNil(t, store.Dataset())

	statusResp, err := http.Get(server.URL + "/api/status")
	require.NoError(t, err)
	var status models.StatusResponse
	decode(t, statusResp, &status)
	assert.True(t, status.Loaded)
	assert.False(t, status.Analyzed)
	assert.Equal(t, 3, status.Rows)
}

func TestUploadRejectsNonCSV(t *testing.T) {
	server, store := newTestServer(t, "")

	resp := uploadCSV(t, server, "notes.txt", "hello")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Nil(t, store.Dataset())
}

func TestUploadEmptyFileKeepsPriorDataset(t *testing.T) {
	server, store := newTestServer(t, "")

	resp := uploadCSV(t, server, "sales.csv", salesCSV)
	resp.Body.Close()
	prior := store.Dataset()
	require.NotNil(t, prior)

	resp = uploadCSV(t, server, "empty.csv", "\n\n")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Same(t, prior, store.Dataset(), "a failed upload leaves the last good dataset in place")
}

func TestEndpointsRequireDataset(t *testing.T) {
	server, _ := newTestServer(t, "")

	for _, path := range []string{"/api/preview", "/api/columns", "/api/profile", "/api/kpis", "/api/correlation"} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

func TestPreviewLimit(t *testing.T) {
	server, _ := newTestServer(t, "")
	uploadCSV(t, server, "sales.csv", salesCSV).Body.Close()

	resp, err := http.Get(server.URL + "/api/preview?rows=2")
	require.NoError(t, err)

	var rows []models.Row
	decode(t, resp, &rows)
	assert.Len(t, rows, 2)
}

func TestPreviewNegativeLimit(t *testing.T) {
	server, _ := newTestServer(t, "")
	uploadCSV(t, server, "sales.csv", salesCSV).Body.Close()

	resp, err := http.Get(server.URL + "/api/preview?rows=-1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []models.Row
	decode(t, resp, &rows)
	assert.Empty(t, rows)
}

func TestQueryEndpoint(t *testing.T) {
	server, _ := newTestServer(t, "")
	uploadCSV(t, server, "sales.csv", salesCSV).Body.Close()

	resp := postJSON(t, server.URL+"/api/query", models.QueryIntent{
		Type:        models.IntentQuery,
		GroupBy:     "region",
		Metric:      "amount",
		Aggregation: models.AggSum,
	})

	var result models.QueryResponse
	decode(t, resp, &result)
	require.Equal(t, 2, result.Rows)
	assert.Equal(t, models.Text("west"), result.Data[0]["region"])
	assert.Equal(t, models.Number(40), result.Data[0]["amount"])
}

func TestCorrelationEndpointInsufficientData(t *testing.T) {
	server, _ := newTestServer(t, "")
	uploadCSV(t, server, "sales.csv", salesCSV).Body.Close()

	// Only one numeric column exists.
	resp, err := http.Get(server.URL + "/api/correlation")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCorrelationEndpoint(t *testing.T) {
	server, _ := newTestServer(t, "")
	uploadCSV(t, server, "m.csv", "x,y,label\n1,2,a\n2,4,b\n3,6,c\n").Body.Close()

	resp, err := http.Get(server.URL + "/api/correlation")
	require.NoError(t, err)

	var matrix models.CorrelationMatrix
	decode(t, resp, &matrix)
	assert.Equal(t, []string{"x", "y"}, matrix.Variables)
	assert.Equal(t, 1.0, matrix.Matrix[0][1])
}

func TestAnalyzeFailureKeepsPriorState(t *testing.T) {
	broken := brokenModel(t)
	server, store := newTestServer(t, broken.URL)
	uploadCSV(t, server, "sales.csv", salesCSV).Body.Close()

	resp := postJSON(t, server.URL+"/api/analyze", map[string]string{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Nil(t, store.Analysis(), "a failed analysis stores nothing")
}

func TestAnalyzeReconcilesChartKeys(t *testing.T) {
	completion := `{
  "summary": "s",
  "insights": [],
  "columns": [],
  "recommendedCharts": [
    {"id": "ok", "type": "bar", "title": "t", "xKey": "Region", "yKey": "AMOUNT"},
    {"id": "gone", "type": "pie", "title": "t", "xKey": "quarter", "yKey": "amount"}
  ]
}`
	model := fakeModel(t, completion)
	server, store := newTestServer(t, model.URL)
	uploadCSV(t, server, "sales.csv", salesCSV).Body.Close()

	resp := postJSON(t, server.URL+"/api/analyze", map[string]string{})

	var result models.AnalysisResult
	decode(t, resp, &result)
	require.Len(t, result.RecommendedCharts, 1)
	assert.Equal(t, "region", result.RecommendedCharts[0].XKey)
	assert.NotNil(t, store.Analysis())
}

func TestChatFallsBackWhenInterpreterFails(t *testing.T) {
	broken := brokenModel(t)
	server, _ := newTestServer(t, broken.URL)
	uploadCSV(t, server, "sales.csv", salesCSV).Body.Close()

	resp := postJSON(t, server.URL+"/api/chat", map[string]string{"question": "total by region?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var chat models.ChatResponse
	decode(t, resp, &chat)
	assert.Equal(t, models.IntentChat, chat.Intent.Type)
	assert.Contains(t, strings.ToLower(chat.Answer), "sorry")
	assert.Empty(t, chat.Rows)
}

func TestChatRunsQueryIntents(t *testing.T) {
	// Interpreter and summarizer share one fake endpoint; the intent JSON is
	// ignored by the summarize parse, which takes the raw completion.
	completion := `{"type": "query", "filters": [], "groupBy": "region", "metric": "amount", "aggregation": "SUM", "text": "ok"}`
	model := fakeModel(t, completion)
	server, _ := newTestServer(t, model.URL)
	uploadCSV(t, server, "sales.csv", salesCSV).Body.Close()

	resp := postJSON(t, server.URL+"/api/chat", map[string]string{"question": "totals by region"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var chat models.ChatResponse
	decode(t, resp, &chat)
	require.NotNil(t, chat.Intent)
	assert.Equal(t, models.IntentQuery, chat.Intent.Type)
	require.Len(t, chat.Rows, 2)
	assert.Equal(t, models.Number(40), chat.Rows[0]["amount"])
	assert.NotEmpty(t, chat.Answer)
}

func TestReplaceRows(t *testing.T) {
	server, store := newTestServer(t, "")
	uploadCSV(t, server, "sales.csv", salesCSV).Body.Close()
	originalID := store.Dataset().ID

	req, err := http.NewRequest(http.MethodPut, server.URL+"/api/rows",
		strings.NewReader(`{"rows": [{"region": "north", "amount": 5}]}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ds := store.Dataset()
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, models.Text("north"), ds.Rows[0]["region"])
	assert.Equal(t, models.Number(5), ds.Rows[0]["amount"])
	assert.Equal(t, originalID, ds.ID, "the dataset keeps its identity across edits")
}

func TestAIConfigRoundTrip(t *testing.T) {
	server, _ := newTestServer(t, "http://localhost:11434")

	resp := postJSON(t, server.URL+"/api/config/ai", models.AIConfig{Model: "mistral:7b"})
	resp.Body.Close()

	getResp, err := http.Get(server.URL + "/api/config/ai")
	require.NoError(t, err)

	var cfg models.AIConfig
	decode(t, getResp, &cfg)
	assert.Equal(t, "mistral:7b", cfg.Model)
	assert.Equal(t, "http://localhost:11434", cfg.BaseURL)
}
