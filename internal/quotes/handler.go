package quotes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-quote/internal/extract"
	"github.com/odyssey-erp/odyssey-quote/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-quote/internal/pricing"
)

// QuoteService is the behaviour the HTTP layer needs from Service.
type QuoteService interface {
	Calculate(ctx context.Context, req pricing.TripRequest) (*pricing.QuoteResult, error)
	Get(ctx context.Context, id string) (*Record, error)
	History(ctx context.Context, agency string, limit int) ([]Record, error)
}

// DocumentRenderer renders a printable quote document.
type DocumentRenderer interface {
	RenderQuote(ctx context.Context, req pricing.TripRequest, quote pricing.QuoteResult) ([]byte, error)
}

// Handler exposes the quote API.
type Handler struct {
	logger       *slog.Logger
	service      QuoteService
	extractor    extract.Extractor
	documents    DocumentRenderer
	exposeErrors bool
}

// HandlerConfig groups the optional dependencies of a Handler.
type HandlerConfig struct {
	Extractor    extract.Extractor
	Documents    DocumentRenderer
	ExposeErrors bool
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service QuoteService, cfg HandlerConfig) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:       logger,
		service:      service,
		extractor:    cfg.Extractor,
		documents:    cfg.Documents,
		exposeErrors: cfg.ExposeErrors,
	}
}

// MountRoutes registers quote routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.HandleFunc("/calculate-quote", h.calculateQuote)
	r.HandleFunc("/quote", h.calculateQuote)
	r.Post("/parse-trip", h.parseTrip)
	r.Get("/quotes", h.listQuotes)
	r.Get("/quotes/{id}", h.getQuote)
	r.Get("/quotes/{id}/pdf", h.quotePDF)
}

const allowedQuoteMethods = "POST, OPTIONS"

func (h *Handler) calculateQuote(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Allow", allowedQuoteMethods)
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		w.Header().Set("Allow", allowedQuoteMethods)
		httpx.Error(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req pricing.TripRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	quote, err := h.service.Calculate(r.Context(), req)
	if err != nil {
		h.fail(w, r, "calculate quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

type parseTripRequest struct {
	Text string `json:"text"`
}

type parseTripResponse struct {
	Request pricing.TripRequest `json:"request"`
	Issues  []string            `json:"issues"`
}

func (h *Handler) parseTrip(w http.ResponseWriter, r *http.Request) {
	if h.extractor == nil {
		httpx.Error(w, http.StatusServiceUnavailable, "text extraction is not configured")
		return
	}
	var body parseTripRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	draft, err := h.extractor.Extract(r.Context(), body.Text)
	if errors.Is(err, extract.ErrEmptyText) {
		httpx.Error(w, http.StatusBadRequest, "text is required")
		return
	}
	if err != nil {
		h.logger.Warn("extract trip request", slog.Any("error", err))
		httpx.Error(w, http.StatusBadGateway, "could not extract a trip request from the text")
		return
	}

	issues := []string{}
	var verrs pricing.ValidationErrors
	if err := pricing.ValidateAll(draft); errors.As(err, &verrs) {
		for _, fe := range verrs {
			issues = append(issues, fe.Message)
		}
	}
	httpx.JSON(w, http.StatusOK, parseTripResponse{Request: draft, Issues: issues})
}

func (h *Handler) listQuotes(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpx.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	records, err := h.service.History(r.Context(), r.URL.Query().Get("agency"), limit)
	if err != nil {
		h.fail(w, r, "list quotes", err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) getQuote(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) quotePDF(w http.ResponseWriter, r *http.Request) {
	if h.documents == nil {
		httpx.Error(w, http.StatusServiceUnavailable, "document rendering is not configured")
		return
	}
	id := chi.URLParam(r, "id")
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get quote", err)
		return
	}
	pdf, err := h.documents.RenderQuote(r.Context(), rec.Request, rec.Quote)
	if err != nil {
		h.logger.Error("render quote pdf", slog.String("quote_id", id), slog.Any("error", err))
		httpx.Error(w, http.StatusBadGateway, "could not render quote document")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename=quote-"+rec.Quote.ID+".pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if !errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrNotFound) {
		h.logger.Error(op, slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err, h.exposeErrors)
}
