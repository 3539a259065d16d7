package quotes

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-quote/internal/annotate"
	"github.com/odyssey-erp/odyssey-quote/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-quote/internal/pricing"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("q-%03d", n)
	}
}

func newTestCalculator(external int64) *pricing.Calculator {
	return pricing.NewCalculator(pricing.DefaultCostTable(), pricing.FixedRate(external), pricing.CalculatorConfig{
		NewID: sequentialIDs(),
		Clock: func() time.Time { return time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC) },
	})
}

func kyotoRequest() pricing.TripRequest {
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

type recordingQueue struct {
	ids []string
	err error
}

func (q *recordingQueue) EnqueueAnnotation(_ context.Context, id string) error {
	q.ids = append(q.ids, id)
	return q.err
}

func TestServiceCalculateStoresAndEnqueues(t *testing.T) {
	store, _ := newTestStore(t)
	queue := &recordingQueue{}
	reg := prometheus.NewRegistry()
	svc := NewService(newTestCalculator(10000), ServiceConfig{
		Store:       store,
		Annotations: queue,
		Metrics:     NewMetrics(reg),
	})

	quote, err := svc.Calculate(context.Background(), kyotoRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(1150000), quote.EstimatedTotalJPY)
	assert.Equal(t, int64(57500), quote.PerPersonJPY)
	assert.Equal(t, pricing.PendingNote, quote.SystemNote)
	assert.Equal(t, []string{quote.ID}, queue.ids)

	rec, err := svc.Get(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, *quote, rec.Quote)
	assert.Equal(t, "Sakura Travel", rec.Request.AgencyName)

	assert.InDelta(t, 1, testutil.ToFloat64(svc.metrics.quotes.WithLabelValues(string(pricing.HotelSourceExternal))), 0)
}

func TestServiceCalculateRejectsInvalid(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := NewService(newTestCalculator(10000), ServiceConfig{Metrics: NewMetrics(reg)})

	req := kyotoRequest()
	req.PaxCount = 0
	_, err := svc.Calculate(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrValidation))
	assert.Equal(t, "paxCount must be between 1 and 1000", err.Error())
	assert.InDelta(t, 1, testutil.ToFloat64(svc.metrics.rejections), 0)
}

func TestServiceCalculateSurvivesStoreOutage(t *testing.T) {
	store, mr := newTestStore(t)
	queue := &recordingQueue{}
	svc := NewService(newTestCalculator(15000), ServiceConfig{Store: store, Annotations: queue})
	mr.Close()

	quote, err := svc.Calculate(context.Background(), kyotoRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(1242000), quote.EstimatedTotalJPY)
	assert.Empty(t, queue.ids, "annotation must not be scheduled for an unsaved quote")
}

func TestServiceCalculateIgnoresQueueFailure(t *testing.T) {
	store, _ := newTestStore(t)
	svc := NewService(newTestCalculator(15000), ServiceConfig{
		Store:       store,
		Annotations: &recordingQueue{err: errors.New("broker down")},
	})

	quote, err := svc.Calculate(context.Background(), kyotoRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, quote.ID)
}

func TestServiceGetWithoutStore(t *testing.T) {
	svc := NewService(newTestCalculator(10000), ServiceConfig{})
	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestServiceHistory(t *testing.T) {
	store, _ := newTestStore(t)
	svc := NewService(newTestCalculator(10000), ServiceConfig{Store: store})
	ctx := context.Background()

	for range 3 {
		_, err := svc.Calculate(ctx, kyotoRequest())
		require.NoError(t, err)
	}
	other := kyotoRequest()
	other.AgencyName = "Fuji Tours"
	_, err := svc.Calculate(ctx, other)
	require.NoError(t, err)

	records, err := svc.History(ctx, "  sakura travel ", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "q-003", records[0].Quote.ID)
	assert.Equal(t, "q-002", records[1].Quote.ID)

	_, err = svc.History(ctx, " ", 10)
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = NewService(newTestCalculator(10000), ServiceConfig{}).History(ctx, "Sakura Travel", 10)
	assert.ErrorIs(t, err, httpx.ErrUnavailable)
}

func TestServiceAnnotate(t *testing.T) {
	store, _ := newTestStore(t)
	svc := NewService(newTestCalculator(10000), ServiceConfig{Store: store})
	ctx := context.Background()

	quote, err := svc.Calculate(ctx, kyotoRequest())
	require.NoError(t, err)

	note, err := svc.Annotate(ctx, quote.ID, annotate.TemplateAnnotator{})
	require.NoError(t, err)
	assert.NotEqual(t, pricing.PendingNote, note)

	rec, err := svc.Get(ctx, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, note, rec.Quote.SystemNote)
	assert.Equal(t, quote.EstimatedTotalJPY, rec.Quote.EstimatedTotalJPY)

	_, err = svc.Annotate(ctx, "unknown", annotate.TemplateAnnotator{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	calc := newTestCalculator(10000)
	quote, err := calc.Calculate(ctx, kyotoRequest())
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, Record{Request: kyotoRequest(), Quote: quote}))
	require.NoError(t, store.SetNote(ctx, quote.ID, "ready"))
	assert.Greater(t, mr.TTL(quoteKey(quote.ID)), time.Duration(0))

	mr.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, quote.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	records, err := store.ListByAgency(ctx, "Sakura Travel", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRedisStoreHistoryCap(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	calc := newTestCalculator(10000)
	req := kyotoRequest()

	for range HistoryCap + 5 {
		quote, err := calc.Calculate(ctx, req)
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, Record{Request: req, Quote: quote}))
	}
	ids, err := mr.List(agencyKey(req.AgencyName))
	require.NoError(t, err)
	assert.Len(t, ids, HistoryCap)
}
