package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-quote/internal/annotate"
	jobmetrics "github.com/odyssey-erp/odyssey-quote/internal/jobs"
	"github.com/odyssey-erp/odyssey-quote/internal/pricing"
	"github.com/odyssey-erp/odyssey-quote/internal/quotes"
)

func newQuoteService(t *testing.T) *quotes.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	calc := pricing.NewCalculator(pricing.DefaultCostTable(), pricing.FixedRate(10000), pricing.CalculatorConfig{})
	return quotes.NewService(calc, quotes.ServiceConfig{Store: quotes.NewRedisStore(client, time.Hour)})
}

func sampleTrip() pricing.TripRequest {
	return pricing.TripRequest{
		AgencyName: "Sakura Travel",
		PaxCount:   20,
		TravelDays: 5,
		NeedsBus:   true,
		BusType:    pricing.BusCoach,
		HotelRequirement: pricing.HotelRequirement{
			Stars: 4, Rooms: 10, Nights: 4, Location: pricing.LocationKyoto,
		},
	}
}

func TestQuoteAnnotateJobWritesNote(t *testing.T) {
	svc := newQuoteService(t)
	ctx := context.Background()
	quote, err := svc.Calculate(ctx, sampleTrip())
	require.NoError(t, err)

	task, err := NewQuoteAnnotateTask(quote.ID)
	require.NoError(t, err)
	job := NewQuoteAnnotateJob(svc, annotate.TemplateAnnotator{}, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, job.Handle(ctx, task))

	rec, err := svc.Get(ctx, quote.ID)
	require.NoError(t, err)
	assert.NotEqual(t, pricing.PendingNote, rec.Quote.SystemNote)
	assert.Contains(t, rec.Quote.SystemNote, "Kyoto")
}

func TestQuoteAnnotateJobSkipsRetry(t *testing.T) {
	svc := newQuoteService(t)
	job := NewQuoteAnnotateJob(svc, nil, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	err := job.Handle(context.Background(), asynq.NewTask(TaskQuoteAnnotate, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	task, err := NewQuoteAnnotateTask("expired-quote")
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	_, err = NewQuoteAnnotateTask("  ")
	assert.Error(t, err)
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls map[string]int
	fail  func(pricing.Location, int) bool
}

func (f *fakeRefresher) Refresh(_ context.Context, loc pricing.Location, stars int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[string(loc)]++
	if f.fail != nil && f.fail(loc, stars) {
		return 0, errors.New("feed unavailable")
	}
	return 10000, nil
}

func TestRatesWarmupJobCoversEveryCity(t *testing.T) {
	refresher := &fakeRefresher{}
	job := NewRatesWarmupJob(refresher, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskRatesWarmup, nil)))
	assert.Len(t, refresher.calls, len(pricing.Locations()))
	for _, loc := range pricing.Locations() {
		assert.Equal(t, len(WarmupStars), refresher.calls[string(loc)], loc)
	}
}

func TestRatesWarmupJobScopedPayload(t *testing.T) {
	refresher := &fakeRefresher{}
	job := NewRatesWarmupJob(refresher, nil, nil)

	task, err := NewRatesWarmupTask(RatesWarmupPayload{Locations: []string{"Osaka"}, Stars: []int{5}})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, map[string]int{"osaka": 1}, refresher.calls)

	bad, err := NewRatesWarmupTask(RatesWarmupPayload{Locations: []string{"atlantis"}})
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), bad), asynq.SkipRetry)
}

func TestRatesWarmupJobPartialFailure(t *testing.T) {
	partial := &fakeRefresher{fail: func(loc pricing.Location, _ int) bool { return loc == pricing.LocationOkinawa }}
	job := NewRatesWarmupJob(partial, nil, nil)
	assert.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskRatesWarmup, nil)))

	down := &fakeRefresher{fail: func(pricing.Location, int) bool { return true }}
	job = NewRatesWarmupJob(down, nil, nil)
	assert.Error(t, job.Handle(context.Background(), asynq.NewTask(TaskRatesWarmup, nil)))
}

func TestClientEnqueueAnnotationIsIdempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	require.NoError(t, client.EnqueueAnnotation(ctx, "q-1"))
	require.NoError(t, client.EnqueueAnnotation(ctx, "q-1"))
	require.NoError(t, client.EnqueueAnnotation(ctx, "q-2"))

	pending, err := mr.List("asynq:{default}:pending")
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestJobsHealth(t *testing.T) {
	serve := func(h *Handler) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Route("/jobs", h.MountRoutes)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
		return rec
	}

	rec := serve(NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Retry: 1}}, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body queueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Pending)
	assert.Equal(t, 1, body.Retry)

	rec = serve(NewHandler(stubInspector{err: errors.New("dial tcp: refused")}, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(NewHandler(nil, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0,"active":0,"scheduled":0,"retry":0,"archived":0,"paused":false}`, rec.Body.String())
}
