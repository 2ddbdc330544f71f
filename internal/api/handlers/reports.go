package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/internal/pipeline"
	"github.com/fenghou-lab/hotpick/pkg/logger"
)

// ReportHandler handles report and pipeline API endpoints.
type ReportHandler struct {
	reports    contracts.ReportRepository
	articles   contracts.ArticleRepository
	topics     contracts.TopicRepository
	candidates contracts.CandidateRepository
	selections contracts.SelectionRepository
	orch       *pipeline.Orchestrator
	logger     *logger.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(
	reports contracts.ReportRepository,
	articles contracts.ArticleRepository,
	topics contracts.TopicRepository,
	candidates contracts.CandidateRepository,
	selections contracts.SelectionRepository,
	orch *pipeline.Orchestrator,
	log *logger.Logger,
) *ReportHandler {
	return &ReportHandler{
		reports:    reports,
		articles:   articles,
		topics:     topics,
		candidates: candidates,
		selections: selections,
		orch:       orch,
		logger:     log,
	}
}

type reportResponse struct {
	ID           int64  `json:"id"`
	Date         string `json:"date"`
	Status       string `json:"status"`
	ErrorStage   int    `json:"error_stage,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func toReportResponse(r *contracts.Report) reportResponse {
	return reportResponse{
		ID:           r.ID,
		Date:         r.Date.Format("2006-01-02"),
		Status:       string(r.Status),
		ErrorStage:   r.ErrorStage,
		ErrorMessage: r.ErrorMessage,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    r.UpdatedAt.Format(time.RFC3339),
	}
}

// Create creates (or returns) the report for a date.
// POST /api/reports {"date": "2026-08-26"}
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date format (expected YYYY-MM-DD)")
		return
	}

	report, err := h.reports.GetOrCreate(r.Context(), date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create report")
		respondError(w, http.StatusInternalServerError, "Failed to create report")
		return
	}

	respondJSON(w, http.StatusOK, toReportResponse(report))
}

// List returns recent reports.
// GET /api/reports?limit=30
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 30
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	reports, err := h.reports.List(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list reports")
		respondError(w, http.StatusInternalServerError, "Failed to list reports")
		return
	}

	out := make([]reportResponse, 0, len(reports))
	for i := range reports {
		out = append(out, toReportResponse(&reports[i]))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"reports": out})
}

// Today returns today's report, if any.
// GET /api/reports/today
func (h *ReportHandler) Today(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.GetByDate(r.Context(), time.Now())
	if err != nil {
		respondError(w, http.StatusNotFound, "No report for today")
		return
	}
	respondJSON(w, http.StatusOK, toReportResponse(report))
}

// Get returns one report.
// GET /api/reports/{id}
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}

	report, err := h.reports.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Report not found")
		return
	}
	respondJSON(w, http.StatusOK, toReportResponse(report))
}

// Delete removes a report and all its stage rows.
// DELETE /api/reports/{id}
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}

	if err := h.reports.Delete(r.Context(), id); err != nil {
		respondError(w, http.StatusNotFound, "Report not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

// Nodes returns the full pipeline view of a report: every stage's rows.
// GET /api/reports/{id}/nodes
func (h *ReportHandler) Nodes(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	report, err := h.reports.GetByID(ctx, id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Report not found")
		return
	}

	articles, err := h.articles.ListByReport(ctx, id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load articles")
		respondError(w, http.StatusInternalServerError, "Failed to load pipeline nodes")
		return
	}
	topics, err := h.topics.ListByReport(ctx, id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load topics")
		respondError(w, http.StatusInternalServerError, "Failed to load pipeline nodes")
		return
	}
	candidateCount, err := h.candidates.CountByReport(ctx, id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to count candidates")
		respondError(w, http.StatusInternalServerError, "Failed to load pipeline nodes")
		return
	}
	selections, err := h.selections.ListByReport(ctx, id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load selections")
		respondError(w, http.StatusInternalServerError, "Failed to load pipeline nodes")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"report":          toReportResponse(report),
		"articles":        toArticleViews(articles),
		"topics":          toTopicViews(topics),
		"candidate_count": candidateCount,
		"selections":      toSelectionViews(selections),
	})
}

type articleView struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	SourceAccount string `json:"source_account"`
	PublishedAt   string `json:"published_at"`
	URL           string `json:"url"`
}

type topicView struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	RelatedBoards []string `json:"related_boards"`
	Rationale     string   `json:"rationale"`
}

type selectionView struct {
	ID           int64                   `json:"id"`
	StockCode    string                  `json:"stock_code"`
	StockName    string                  `json:"stock_name"`
	TechScore    float64                 `json:"tech_score"`
	FundScore    float64                 `json:"fund_score"`
	TotalScore   float64                 `json:"total_score"`
	IsSelected   bool                    `json:"is_selected"`
	RuleOutcomes []contracts.RuleOutcome `json:"rule_outcomes"`
}

func toArticleViews(articles []contracts.Article) []articleView {
	out := make([]articleView, 0, len(articles))
	for _, a := range articles {
		out = append(out, articleView{
			ID:            a.ID,
			Title:         a.Title,
			SourceAccount: a.SourceAccount,
			PublishedAt:   a.PublishedAt.Format(time.RFC3339),
			URL:           a.URL,
		})
	}
	return out
}

func toTopicViews(topics []contracts.Topic) []topicView {
	out := make([]topicView, 0, len(topics))
	for _, t := range topics {
		out = append(out, topicView{
			ID:            t.ID,
			Name:          t.Name,
			RelatedBoards: t.RelatedBoards,
			Rationale:     t.Rationale,
		})
	}
	return out
}

func toSelectionViews(selections []contracts.Selection) []selectionView {
	out := make([]selectionView, 0, len(selections))
	for _, s := range selections {
		out = append(out, selectionView{
			ID:           s.ID,
			StockCode:    s.StockCode,
			StockName:    s.StockName,
			TechScore:    s.TechScore,
			FundScore:    s.FundScore,
			TotalScore:   s.TotalScore,
			IsSelected:   s.IsSelected,
			RuleOutcomes: s.RuleOutcomes,
		})
	}
	return out
}

type manualArticle struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	SourceAccount string `json:"source_account"`
	URL           string `json:"url"`
	PublishedAt   string `json:"published_at"`
}

// AddArticles attaches articles to a report by hand, for days when the
// upstream source is unavailable. Articles are upserted by URL.
// POST /api/reports/{id}/articles {"articles": [...]}
func (h *ReportHandler) AddArticles(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}

	var req struct {
		Articles []manualArticle `json:"articles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Articles) == 0 {
		respondError(w, http.StatusBadRequest, "articles must not be empty")
		return
	}

	sourced := make([]contracts.SourcedArticle, 0, len(req.Articles))
	for _, a := range req.Articles {
		if a.Title == "" || a.URL == "" {
			respondError(w, http.StatusBadRequest, "every article needs a title and url")
			return
		}
		publishedAt := time.Now()
		if a.PublishedAt != "" {
			parsed, err := time.Parse(time.RFC3339, a.PublishedAt)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid published_at (expected RFC3339)")
				return
			}
			publishedAt = parsed
		}
		sourced = append(sourced, contracts.SourcedArticle{
			Title:         a.Title,
			Content:       a.Content,
			SourceAccount: a.SourceAccount,
			PublishedAt:   publishedAt,
			URL:           a.URL,
		})
	}

	written, err := h.articles.Upsert(r.Context(), id, sourced)
	if err != nil {
		h.logger.WithError(err).Error("Failed to store articles")
		respondError(w, http.StatusInternalServerError, "Failed to store articles")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"written": written})
}

// Rerun replays the pipeline from a stage, cascading downstream.
// POST /api/reports/{id}/rerun {"step": 2|3|4}
func (h *ReportHandler) Rerun(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}

	var req struct {
		Step int `json:"step"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, err := h.orch.RerunFrom(r.Context(), id, req.Step)
	switch {
	case errors.Is(err, pipeline.ErrInvalidStage):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pipeline.ErrReportBusy):
		respondError(w, http.StatusConflict, "Report is already being processed")
	case err != nil && report == nil:
		respondError(w, http.StatusNotFound, "Report not found")
	case err != nil:
		// The stage failure is recorded on the report; surface both.
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  err.Error(),
			"report": toReportResponse(report),
		})
	default:
		respondJSON(w, http.StatusOK, toReportResponse(report))
	}
}

// RunStep executes one stage in isolation, clearing it and downstream first.
// POST /api/reports/{id}/steps/{step}
func (h *ReportHandler) RunStep(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}

	step, err := strconv.Atoi(mux.Vars(r)["step"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid step")
		return
	}

	report, err := h.orch.RunStage(r.Context(), id, step)
	switch {
	case errors.Is(err, pipeline.ErrInvalidStage):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pipeline.ErrReportBusy):
		respondError(w, http.StatusConflict, "Report is already being processed")
	case err != nil && report == nil:
		respondError(w, http.StatusNotFound, "Report not found")
	case err != nil:
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  err.Error(),
			"report": toReportResponse(report),
		})
	default:
		respondJSON(w, http.StatusOK, toReportResponse(report))
	}
}

// RunFull triggers a full pipeline run for a date in the background.
// POST /api/pipeline/run {"date": "2026-08-26"}
func (h *ReportHandler) RunFull(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date format (expected YYYY-MM-DD)")
		return
	}

	report, err := h.reports.GetOrCreate(r.Context(), date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create report")
		respondError(w, http.StatusInternalServerError, "Failed to create report")
		return
	}

	// The run outlives the HTTP request; progress streams over /ws.
	go func() {
		if _, err := h.orch.RunFull(context.Background(), date); err != nil {
			h.logger.WithError(err).WithField("report_id", report.ID).Error("Pipeline run failed")
		}
	}()

	respondJSON(w, http.StatusAccepted, toReportResponse(report))
}

func (h *ReportHandler) reportID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid report id")
		return 0, false
	}
	return id, true
}

// parseDate accepts YYYY-MM-DD; empty means today.
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	return time.Parse("2006-01-02", raw)
}
