package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"datalens/internal/ai"
	"datalens/internal/dataset"
	"datalens/internal/models"
	"datalens/internal/query"
	"datalens/internal/reconcile"
	"datalens/internal/state"
	"datalens/internal/stats"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

const (
	MaxFileSize = 100 * 1024 * 1024 // 100MB
	// analysisSampleSize is how many rows the AI collaborator sees.
	analysisSampleSize = 20
)

// Handler wires the core engines to the HTTP surface. It holds the session
// store explicitly; nothing in the core keeps state between calls.
type Handler struct {
	Store         *state.Store
	AI            *ai.Service
	Log           *zap.Logger
	AnalysisFloor time.Duration
}

func NewHandler(store *state.Store, aiService *ai.Service, log *zap.Logger, analysisFloor time.Duration) *Handler {
	return &Handler{
		Store:         store,
		AI:            aiService,
		Log:           log,
		AnalysisFloor: analysisFloor,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	r.Post("/api/upload", h.Upload)
	r.Get("/api/status", h.GetStatus)
	r.Get("/api/preview", h.GetPreview)
	r.Get("/api/columns", h.GetColumnTypes)
	r.Get("/api/profile", h.GetProfile)
	r.Get("/api/kpis", h.GetKPIs)
	r.Put("/api/rows", h.ReplaceRows)

	r.Post("/api/analyze", h.Analyze)
	r.Post("/api/query", h.RunQuery)
	r.Post("/api/chat", h.Chat)
	r.Get("/api/correlation", h.GetCorrelation)

	r.Get("/api/config/ai", h.GetAIConfig)
	r.Post("/api/config/ai", h.SaveAIConfig)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

// ============================================================================
// Upload & dataset state
// ============================================================================

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxFileSize); err != nil {
		h.fail(w, r, http.StatusBadRequest, "File too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		h.fail(w, r, http.StatusBadRequest, "Only CSV files are allowed")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, "Failed to read file")
		return
	}

	ds, err := dataset.ParseCSV(string(content), header.Filename)
	if err != nil {
		// A failed upload leaves the previous dataset untouched.
		h.fail(w, r, http.StatusBadRequest, "Failed to parse CSV: "+err.Error())
		return
	}

	h.Store.SetDataset(ds)
	h.Log.Info("dataset uploaded",
		zap.String("dataset_id", ds.ID),
		zap.String("name", ds.Name),
		zap.Int("rows", len(ds.Rows)),
		zap.Int("total_rows", ds.TotalRows))

	render.JSON(w, r, models.UploadResponse{
		Message:     "File '" + header.Filename + "' uploaded successfully",
		DatasetID:   ds.ID,
		Rows:        len(ds.Rows),
		TotalRows:   ds.TotalRows,
		Columns:     len(ds.Columns),
		ColumnNames: ds.Columns,
	})
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ds := h.Store.Dataset()

	resp := models.StatusResponse{
		Loaded:   ds != nil,
		Analyzed: h.Store.Analysis() != nil,
	}
	if ds != nil {
		resp.DatasetID = ds.ID
		resp.Name = ds.Name
		resp.Rows = len(ds.Rows)
		resp.TotalRows = ds.TotalRows
		resp.Columns = len(ds.Columns)
	}
	render.JSON(w, r, resp)
}

func (h *Handler) GetPreview(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}

	limit := getIntParam(r, "rows", 10)
	if limit < 0 {
		limit = 0
	}
	if limit > len(ds.Rows) {
		limit = len(ds.Rows)
	}
	render.JSON(w, r, ds.Rows[:limit])
}

func (h *Handler) GetColumnTypes(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, dataset.ColumnTypes(ds))
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, dataset.ProfileColumns(ds))
}

func (h *Handler) GetKPIs(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}

	kpis := []models.KPI{}
	for _, col := range ds.Columns {
		if !dataset.ColumnIsNumeric(ds.Rows, col) {
			continue
		}
		summary, err := stats.Summarize(ds.Rows, col)
		if err != nil {
			continue
		}
		kpis = append(kpis, models.KPI{
			Name:   col,
			Sum:    summary.Sum,
			Avg:    summary.Mean,
			Min:    summary.Min,
			Max:    summary.Max,
			Median: summary.Median,
		})
	}
	render.JSON(w, r, kpis)
}

// ReplaceRows swaps the dataset's rows wholesale, the way the spreadsheet
// editor commits its changes.
func (h *Handler) ReplaceRows(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rows []models.Row `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.Store.ReplaceRows(req.Rows); err != nil {
		h.fail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	h.Log.Info("dataset rows replaced", zap.Int("rows", len(req.Rows)))
	render.JSON(w, r, map[string]interface{}{
		"success": true,
		"rows":    len(req.Rows),
	})
}

// ============================================================================
// AI analysis
// ============================================================================

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}

	sample := ds.Rows
	if len(sample) > analysisSampleSize {
		sample = sample[:analysisSampleSize]
	}

	result, err := h.AI.AnalyzeWithFloor(r.Context(), h.AnalysisFloor, sample, ds.Name)
	if err != nil {
		// The session keeps its prior state; the UI shows a generic failure.
		h.Log.Warn("dataset analysis failed", zap.Error(err))
		h.fail(w, r, http.StatusBadGateway, "Analysis failed. Please try again.")
		return
	}

	result = reconcile.Repair(result, ds)
	h.Store.SetAnalysis(result)

	h.Log.Info("dataset analyzed",
		zap.String("dataset_id", ds.ID),
		zap.Int("charts", len(result.RecommendedCharts)),
		zap.Int("insights", len(result.Insights)))
	render.JSON(w, r, result)
}

// ============================================================================
// Query & chat
// ============================================================================

func (h *Handler) RunQuery(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}

	var intent models.QueryIntent
	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
		h.fail(w, r, http.StatusBadRequest, "Invalid JSON")
		return
	}

	rows := query.Run(ds.Rows, &intent)
	render.JSON(w, r, models.QueryResponse{Rows: len(rows), Data: rows})
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Question == "" {
		h.fail(w, r, http.StatusBadRequest, "Question is required")
		return
	}

	intent, err := h.AI.InterpretQuery(r.Context(), req.Question, ds.Columns)
	if err != nil {
		h.Log.Warn("query interpretation failed", zap.Error(err))
		intent = &models.QueryIntent{
			Type:    models.IntentChat,
			Filters: []models.QueryFilter{},
			Text:    "Sorry, I couldn't work out what to do with that question. Could you rephrase it?",
		}
	}

	resp := models.ChatResponse{Intent: intent, Answer: intent.Text}

	if intent.Type == models.IntentQuery {
		resp.Rows = query.Run(ds.Rows, intent)
		answer, err := h.AI.SummarizeResult(r.Context(), req.Question, resp.Rows)
		if err != nil {
			h.Log.Warn("result summarization failed", zap.Error(err))
			answer = "Here are the results I found for your question."
		}
		resp.Answer = answer
	} else if resp.Answer == "" {
		resp.Answer = "Could you tell me a bit more about what you want to see?"
	}

	render.JSON(w, r, resp)
}

// ============================================================================
// Correlation
// ============================================================================

func (h *Handler) GetCorrelation(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w, r)
	if !ok {
		return
	}

	candidates := ds.Columns
	if param := r.URL.Query().Get("columns"); param != "" {
		candidates = []string{}
		for _, col := range strings.Split(param, ",") {
			if col = strings.TrimSpace(col); col != "" {
				candidates = append(candidates, col)
			}
		}
	}

	matrix, err := stats.Correlate(ds.Rows, candidates)
	if err != nil {
		if errors.Is(err, stats.ErrInsufficientData) {
			h.fail(w, r, http.StatusUnprocessableEntity, "Not enough numeric columns to compute correlations")
			return
		}
		h.fail(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	render.JSON(w, r, matrix)
}

// ============================================================================
// AI config
// ============================================================================

func (h *Handler) GetAIConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.AI.CurrentConfig()
	render.JSON(w, r, models.AIConfig{BaseURL: cfg.BaseURL, Model: cfg.Model})
}

func (h *Handler) SaveAIConfig(w http.ResponseWriter, r *http.Request) {
	var cfg models.AIConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		h.fail(w, r, http.StatusBadRequest, "Invalid JSON")
		return
	}

	h.AI.UpdateConfig(cfg.BaseURL, cfg.Model)
	current := h.AI.CurrentConfig()

	render.JSON(w, r, map[string]interface{}{
		"success": true,
		"message": "AI configuration saved successfully",
		"config":  models.AIConfig{BaseURL: current.BaseURL, Model: current.Model},
	})
}

// ============================================================================
// Helpers
// ============================================================================

// dataset fetches the current snapshot or writes the missing-dataset error.
func (h *Handler) dataset(w http.ResponseWriter, r *http.Request) (*models.Dataset, bool) {
	ds := h.Store.Dataset()
	if ds == nil {
		h.fail(w, r, http.StatusBadRequest, "No dataset loaded. Please upload a file first.")
		return nil, false
	}
	return ds, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, models.ErrorResponse{Error: msg})
}

func getIntParam(r *http.Request, name string, defaultVal int) int {
	valStr := r.URL.Query().Get(name)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}
