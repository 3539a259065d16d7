package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-quote/internal/extract"
	"github.com/odyssey-erp/odyssey-quote/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-quote/internal/pricing"
)

type stubService struct {
	calculate func(ctx context.Context, req pricing.TripRequest) (*pricing.QuoteResult, error)
	records   map[string]Record
	history   []Record
	calls     int
}

func (s *stubService) Calculate(ctx context.Context, req pricing.TripRequest) (*pricing.QuoteResult, error) {
	s.calls++
	return s.calculate(ctx, req)
}

func (s *stubService) Get(_ context.Context, id string) (*Record, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *stubService) History(_ context.Context, agency string, limit int) ([]Record, error) {
	if agency == "" {
		return nil, errors.Join(httpx.ErrValidation, errors.New("agency is required"))
	}
	if limit < len(s.history) {
		return s.history[:limit], nil
	}
	return s.history, nil
}

func newRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api", h.MountRoutes)
	return r
}

const validBody = `{"agencyName":"Sakura Travel","paxCount":20,"travelDays":5,
	"hotelRequirement":{"stars":4,"rooms":10,"nights":4,"location":"kyoto"},
	"needsBus":true,"busType":"coach","guideLanguage":"en"}`

func TestCalculateQuoteEndToEnd(t *testing.T) {
	svc := NewService(newTestCalculator(10000), ServiceConfig{})
	router := newRouter(NewHandler(nil, svc, HandlerConfig{}))

	for _, path := range []string{"/api/calculate-quote", "/api/quote"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(validBody)))

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var quote pricing.QuoteResult
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
			assert.Equal(t, int64(1150000), quote.EstimatedTotalJPY)
			assert.Equal(t, int64(57500), quote.PerPersonJPY)
			assert.Equal(t, int64(400000), quote.Breakdown.HotelCostBasis)
			assert.Equal(t, pricing.HotelSourceExternal, quote.Breakdown.HotelSource)
			assert.Equal(t, pricing.PendingNote, quote.SystemNote)
		})
	}
}

func TestCalculateQuoteRejectsBadInput(t *testing.T) {
	svc := NewService(newTestCalculator(10000), ServiceConfig{})
	router := newRouter(NewHandler(nil, svc, HandlerConfig{}))

	cases := []struct {
		name string
		body string
		want string
	}{
		{"empty body", ``, "request body is empty"},
		{"malformed", `{"agencyName":`, "request body is not valid JSON"},
		{"zero pax", strings.Replace(validBody, `"paxCount":20`, `"paxCount":0`, 1), "paxCount must be between 1 and 1000"},
		{"markup", strings.Replace(validBody, `Sakura Travel`, `<b>Sakura</b>`, 1), "agencyName must not contain markup"},
		{"missing agency", strings.Replace(validBody, `Sakura Travel`, `  `, 1), "agencyName is required"},
		{"unknown city", strings.Replace(validBody, `"kyoto"`, `"atlantis"`, 1), "hotelRequirement.location is not a supported city"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/calculate-quote", strings.NewReader(tc.body)))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			var body httpx.ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body.Error, tc.want)
		})
	}
}

func TestCalculateQuoteMethods(t *testing.T) {
	svc := &stubService{}
	router := newRouter(NewHandler(nil, svc, HandlerConfig{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/calculate-quote", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, "/api/quote", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Allow"))
		assert.JSONEq(t, `{"error":"method not allowed"}`, rec.Body.String())
	}
	assert.Zero(t, svc.calls)
}

func TestCalculateQuoteInternalError(t *testing.T) {
	svc := &stubService{calculate: func(context.Context, pricing.TripRequest) (*pricing.QuoteResult, error) {
		return nil, errors.New("pool exhausted")
	}}

	rec := httptest.NewRecorder()
	newRouter(NewHandler(nil, svc, HandlerConfig{})).ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/api/calculate-quote", strings.NewReader(validBody)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	newRouter(NewHandler(nil, svc, HandlerConfig{ExposeErrors: true})).ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/api/calculate-quote", strings.NewReader(validBody)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "pool exhausted")
}

func TestGetAndListQuotes(t *testing.T) {
	stored := Record{Quote: pricing.QuoteResult{ID: "q-1", EstimatedTotalJPY: 1150000}}
	svc := &stubService{
		records: map[string]Record{"q-1": stored},
		history: []Record{stored, {Quote: pricing.QuoteResult{ID: "q-0"}}},
	}
	router := newRouter(NewHandler(nil, svc, HandlerConfig{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quotes/q-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(1150000), got.Quote.EstimatedTotalJPY)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quotes/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quotes?agency=Sakura&limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quotes?agency=Sakura&limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quotes", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type stubExtractor struct {
	draft pricing.TripRequest
	err   error
}

func (s stubExtractor) Extract(_ context.Context, text string) (pricing.TripRequest, error) {
	if strings.TrimSpace(text) == "" {
		return pricing.TripRequest{}, extract.ErrEmptyText
	}
	return s.draft, s.err
}

func TestParseTrip(t *testing.T) {
	draft := pricing.TripRequest{
		AgencyName: "Sakura Travel",
		PaxCount:   2000,
		TravelDays: 3,
		HotelRequirement: pricing.HotelRequirement{
			Stars: 4, Rooms: 5, Nights: 2, Location: pricing.LocationOsaka,
		},
	}
	router := newRouter(NewHandler(nil, &stubService{}, HandlerConfig{Extractor: stubExtractor{draft: draft}}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/parse-trip",
		strings.NewReader(`{"text":"2000 people to Osaka for 3 days"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp parseTripResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, pricing.LocationOsaka, resp.Request.HotelRequirement.Location)
	assert.Equal(t, []string{"paxCount must be between 1 and 1000"}, resp.Issues)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/parse-trip", strings.NewReader(`{"text":" "}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	failing := newRouter(NewHandler(nil, &stubService{}, HandlerConfig{Extractor: stubExtractor{err: errors.New("model offline")}}))
	rec = httptest.NewRecorder()
	failing.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/parse-trip", strings.NewReader(`{"text":"trip"}`)))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	unconfigured := newRouter(NewHandler(nil, &stubService{}, HandlerConfig{}))
	rec = httptest.NewRecorder()
	unconfigured.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/parse-trip", strings.NewReader(`{"text":"trip"}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type stubRenderer struct {
	gotID string
}

func (s *stubRenderer) RenderQuote(_ context.Context, _ pricing.TripRequest, quote pricing.QuoteResult) ([]byte, error) {
	s.gotID = quote.ID
	return []byte("%PDF-1.7"), nil
}

func TestQuotePDF(t *testing.T) {
	svc := &stubService{records: map[string]Record{"q-1": {Quote: pricing.QuoteResult{ID: "q-1"}}}}
	renderer := &stubRenderer{}
	router := newRouter(NewHandler(nil, svc, HandlerConfig{Documents: renderer}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quotes/q-1/pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.7", rec.Body.String())
	assert.Equal(t, "q-1", renderer.gotID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quotes/nope/pdf", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	newRouter(NewHandler(nil, svc, HandlerConfig{})).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/quotes/q-1/pdf", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
