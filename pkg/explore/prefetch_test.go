package explore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type loadRecorder struct {
	mu    sync.Mutex
	calls []EntityType
}

func (r *loadRecorder) load(_ context.Context, _ Filter, t EntityType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, t)
	return nil
}

func (r *loadRecorder) got() []EntityType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]EntityType(nil), r.calls...)
}

func TestPrefetcherStaggersInactiveTypes(t *testing.T) {
	clock := newFakeClock()
	rec := &loadRecorder{}
	p := NewPrefetcher(clock, 100*time.Millisecond, rec.load)
	defer p.Close()

	p.Schedule(Filter{}, TypeCollaboration)
	assert.Equal(t, 2, p.Pending())

	clock.Advance(99 * time.Millisecond)
	assert.Empty(t, rec.got())

	clock.Advance(time.Millisecond)
	assert.Equal(t, []EntityType{TypeProject}, rec.got())

	clock.Advance(100 * time.Millisecond)
	assert.Equal(t, []EntityType{TypeProject, TypePartner}, rec.got())
	assert.Equal(t, 0, p.Pending())
}

func TestPrefetcherSkipsSearch(t *testing.T) {
	clock := newFakeClock()
	rec := &loadRecorder{}
	p := NewPrefetcher(clock, 0, rec.load)
	defer p.Close()

	p.Schedule(Filter{SearchQuery: "drums"}, TypeProject)
	assert.Equal(t, 0, p.Pending())
	assert.Equal(t, 0, clock.active())
}

func TestPrefetcherCancel(t *testing.T) {
	clock := newFakeClock()
	rec := &loadRecorder{}
	p := NewPrefetcher(clock, time.Second, rec.load)
	defer p.Close()

	p.Schedule(Filter{}, TypeProject)
	assert.True(t, p.CancelType(TypeCollaboration))
	assert.False(t, p.CancelType(TypeCollaboration))

	clock.Advance(5 * time.Second)
	assert.Equal(t, []EntityType{TypePartner}, rec.got())

	p.Schedule(Filter{}, TypeProject)
	p.Cancel()
	clock.Advance(5 * time.Second)
	assert.Equal(t, []EntityType{TypePartner}, rec.got())
	assert.Equal(t, 0, clock.active())
}

func TestPrefetcherNoCallbackAfterClose(t *testing.T) {
	clock := newFakeClock()
	rec := &loadRecorder{}
	p := NewPrefetcher(clock, time.Second, rec.load)

	p.Schedule(Filter{}, TypePartner)
	p.Close()
	clock.Advance(10 * time.Second)
	assert.Empty(t, rec.got())

	p.Schedule(Filter{}, TypePartner)
	assert.Equal(t, 0, p.Pending())
}

func TestPrefetcherCloseWaitsRunningLoad(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	var mu sync.Mutex
	finished := 0
	load := func(ctx context.Context, _ Filter, _ EntityType) error {
		once.Do(func() { close(started) })
		<-ctx.Done()
		mu.Lock()
		finished++
		mu.Unlock()
		return ctx.Err()
	}
	// Horloge réelle: le callback tourne dans sa propre goroutine.
	p := NewPrefetcher(SystemClock(), time.Millisecond, load)
	p.Schedule(Filter{}, TypeCollaboration)
	p.CancelType(TypePartner)

	<-started
	p.Close()
	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, finished, 1)
}

func TestAggregatorPrefetchesInactiveViews(t *testing.T) {
	src := newMemSource()
	src.seed(TypeProject, 10, StatusOpen)
	src.seed(TypeCollaboration, 10, StatusOpen)
	src.seed(TypePartner, 10, StatusActive)
	clock := newFakeClock()
	agg := newTestAggregator(src, clock, TypeProject, WithPrefetch(200*time.Millisecond))
	defer agg.Close()
	ctx := context.Background()

	_, err := agg.LoadMore(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, src.callCount())

	clock.Advance(400 * time.Millisecond)
	assert.Equal(t, 3, src.callCount())

	// La vue partenaires est déjà chaude: pas de nouveau fetch au changement.
	agg.SetView(Filter{Statuses: DefaultStatuses}, TypePartner)
	assert.Len(t, agg.Items(), 3)
	assert.Equal(t, 1, agg.Status().Pages)
	assert.Equal(t, 3, src.callCount())
}

func TestAggregatorPrefetchCancelledOnViewChange(t *testing.T) {
	src := newMemSource()
	src.seed(TypeProject, 10, StatusOpen)
	src.seed(TypeCollaboration, 10, StatusOpen)
	clock := newFakeClock()
	agg := newTestAggregator(src, clock, TypeProject, WithPrefetch(time.Second))
	ctx := context.Background()

	_, err := agg.LoadMore(ctx)
	require.NoError(t, err)
	agg.SetView(Filter{Statuses: DefaultStatuses, Category: "film"}, TypeProject)
	clock.Advance(10 * time.Second)
	assert.Equal(t, 1, src.callCount())

	agg.Close()
	assert.Equal(t, 0, clock.active())
}
