package service

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/Strob0t/AgentShift/internal/domain"
	"github.com/Strob0t/AgentShift/internal/domain/availability"
	"github.com/Strob0t/AgentShift/internal/domain/report"
	"github.com/Strob0t/AgentShift/internal/domain/subscription"
	"github.com/Strob0t/AgentShift/internal/port/cache"
	"github.com/Strob0t/AgentShift/internal/port/chart"
	"github.com/Strob0t/AgentShift/internal/port/database"
	"github.com/Strob0t/AgentShift/internal/port/eventstore"
	"github.com/Strob0t/AgentShift/internal/port/helpdesk"
	"github.com/Strob0t/AgentShift/internal/port/mailer"
)

// fakeEvents is an in-memory eventstore.Store.
type fakeEvents struct {
	mu        sync.Mutex
	events    []availability.Event
	queries   []eventstore.Query
	queryErr  error
	insertErr error
	lookupErr error
	purgeErr  error
	purgedAt  time.Time
}

var _ eventstore.Store = (*fakeEvents)(nil)

func (f *fakeEvents) Query(_ context.Context, q eventstore.Query) ([]availability.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []availability.Event
	for _, ev := range f.events {
		if len(q.Agents) > 0 && !slices.Contains(q.Agents, ev.Agent) {
			continue
		}
		if q.ShiftDate != nil {
			if !ev.Shift.Recorded() || !ev.Shift.Date().Equal(*q.ShiftDate) {
				continue
			}
		} else if ev.Timestamp.Before(q.Start) || ev.Timestamp.After(q.End) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (f *fakeEvents) LastKnownState(_ context.Context, agent string) (availability.State, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return 0, false, f.lookupErr
	}
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].Agent == agent {
			return f.events[i].New, true, nil
		}
	}
	return 0, false, nil
}

func (f *fakeEvents) HasShiftRecord(_ context.Context, agent string, shiftDate time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return false, f.lookupErr
	}
	for _, ev := range f.events {
		if ev.Agent == agent && ev.Shift.Date().Equal(shiftDate) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEvents) Insert(_ context.Context, ev availability.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEvents) Purge(_ context.Context, olderThan time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.purgeErr != nil {
		return 0, f.purgeErr
	}
	f.purgedAt = olderThan
	kept := f.events[:0]
	var n int64
	for _, ev := range f.events {
		if ev.Timestamp.Before(olderThan) {
			n++
			continue
		}
		kept = append(kept, ev)
	}
	f.events = kept
	return n, nil
}

// fakeSubs is an in-memory database.SubscriptionStore.
type fakeSubs struct {
	mu      sync.Mutex
	subs    []subscription.Subscription
	listErr error
}

var _ database.SubscriptionStore = (*fakeSubs)(nil)

func (f *fakeSubs) CreateSubscription(_ context.Context, s subscription.Subscription) (*subscription.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.subs {
		if e.ToEmail == s.ToEmail && e.AgentList() == s.AgentList() && e.Daily == s.Daily && e.Weekly == s.Weekly {
			return nil, domain.ErrConflict
		}
	}
	s.ID = int64(len(f.subs) + 1)
	s.CreatedAt = time.Now()
	f.subs = append(f.subs, s)
	return &s, nil
}

func (f *fakeSubs) ListSubscriptions(_ context.Context, r subscription.Recurrence) ([]subscription.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []subscription.Subscription
	for _, s := range f.subs {
		if (r == subscription.Daily && s.Daily) || (r == subscription.Weekly && s.Weekly) {
			out = append(out, s)
		}
	}
	return out, nil
}

// fakeMailer records messages; failFor makes sends to that recipient fail.
type fakeMailer struct {
	mu      sync.Mutex
	sent    []mailer.Message
	failFor map[string]error
}

var _ mailer.Mailer = (*fakeMailer)(nil)

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[msg.To[0]]; err != nil {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

// fakeRenderer writes a placeholder image per period.
type fakeRenderer struct {
	err error
}

var _ chart.Renderer = (*fakeRenderer)(nil)

func (f *fakeRenderer) Render(p report.Period, dir string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(dir, chart.FileName(p))
	return path, os.WriteFile(path, []byte("\x89PNG fake"), 0o600)
}

// memCache is a cache.Cache backed by a map.
type memCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
}

var _ cache.Cache = (*memCache)(nil)

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// fakeSource serves fixed pages; errAt fails the fetch of that page.
type fakeSource struct {
	pages     [][]helpdesk.AgentStatus
	errAt     int
	err       error
	requested []int
}

var _ helpdesk.Source = (*fakeSource)(nil)

func (f *fakeSource) ListAgents(_ context.Context, page, _ int) ([]helpdesk.AgentStatus, error) {
	f.requested = append(f.requested, page)
	if f.errAt == page {
		return nil, f.err
	}
	if page > len(f.pages) {
		return nil, nil
	}
	return f.pages[page-1], nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func event(agent string, ts time.Time, shiftDay time.Time, prev, next availability.State) availability.Event {
	return availability.Event{
		Agent:     agent,
		Email:     agent + "@example.com",
		Timestamp: ts,
		Shift:     availability.RecordedShift(shiftDay),
		Previous:  prev,
		New:       next,
	}
}
