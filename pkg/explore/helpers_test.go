package explore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

var baseTime = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

// memSource est une Source en mémoire triée (created_at DESC, id DESC).
type memSource struct {
	mu    sync.Mutex
	items map[EntityType][]FeedItem
	err   error
	calls int
	block chan struct{} // si non nil, List attend la fermeture
}

func newMemSource() *memSource {
	return &memSource{items: make(map[EntityType][]FeedItem)}
}

// seed ajoute n items de type t, un par minute en remontant le temps.
func (m *memSource) seed(t EntityType, n int, status Status) []FeedItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]FeedItem, 0, n)
	for i := range n {
		it := FeedItem{
			Type:      t,
			ID:        fmt.Sprintf("%s-%03d", t, i),
			OwnerID:   fmt.Sprintf("owner-%d", i%3),
			Title:     fmt.Sprintf("%s #%d", t, i),
			Category:  "music",
			Status:    status,
			CreatedAt: baseTime.Add(-time.Duration(i) * time.Minute),
		}
		out = append(out, it)
	}
	m.items[t] = append(m.items[t], out...)
	return out
}

func (m *memSource) add(items ...FeedItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		m.items[it.Type] = append(m.items[it.Type], it)
	}
}

func (m *memSource) List(ctx context.Context, t EntityType, f Filter, after Cursor, limit int) ([]FeedItem, error) {
	m.mu.Lock()
	m.calls++
	block, err := m.block, m.err
	all := slices.Clone(m.items[t])
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	slices.SortFunc(all, func(a, b FeedItem) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	var out []FeedItem
	for _, it := range all {
		if !after.Before(it.Key()) {
			continue
		}
		if !f.Statuses.Allows(it.Status) {
			continue
		}
		if f.Category != "" && it.Category != f.Category {
			continue
		}
		if f.SearchQuery != "" && !strings.Contains(strings.ToLower(it.Title), strings.ToLower(f.SearchQuery)) {
			continue
		}
		out = append(out, it)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var errUpstream = errors.New("upstream unreachable")

// fakeClock déclenche les minuteurs de façon synchrone dans Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock { return &fakeClock{now: baseTime} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.fired && !t.stopped && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	slices.SortFunc(due, func(a, b *fakeTimer) int { return a.at.Compare(b.at) })
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

func ids(items []FeedItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
