package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/AgentShift/internal/domain/availability"
	"github.com/Strob0t/AgentShift/internal/domain/shift"
	"github.com/Strob0t/AgentShift/internal/domain/subscription"
)

func newDigest(t *testing.T, subs *fakeSubs, store *fakeEvents, m *fakeMailer) (*DigestService, string) {
	t.Helper()
	dir := t.TempDir()
	svc := NewDigestService(subs, store, &fakeRenderer{}, m, DigestConfig{
		ArtifactsDir: dir,
		Shift:        shift.Options{BoundaryHour: 5},
		Cc:           []string{"ops@example.com"},
		PortalURL:    "https://agentshift.example.com/",
		MaxParallel:  2,
	}, nil)
	return svc, dir
}

func seedSubs(t *testing.T, subs *fakeSubs, list ...subscription.Subscription) {
	t.Helper()
	for _, s := range list {
		if _, err := subs.CreateSubscription(context.Background(), s); err != nil {
			t.Fatalf("seed subscription: %v", err)
		}
	}
}

func TestDigest_Daily(t *testing.T) {
	shiftDay := date(2024, 1, 16)
	store := &fakeEvents{events: []availability.Event{
		event("Ann", shiftDay.Add(9*time.Hour), shiftDay, availability.On, availability.On),
		event("Ann", shiftDay.Add(11*time.Hour), shiftDay, availability.On, availability.Off),
		event("Ann", date(2024, 1, 15).Add(9*time.Hour), date(2024, 1, 15), availability.On, availability.On),
	}}
	subs := &fakeSubs{}
	seedSubs(t, subs,
		subscription.New("jane.doe@example.com", []string{"Ann"}, subscription.Daily),
		subscription.New("bob@example.com", []string{"Cid"}, subscription.Daily),
		subscription.New("weekly@example.com", []string{"Ann"}, subscription.Weekly),
	)
	m := &fakeMailer{}
	svc, dir := newDigest(t, subs, store, m)

	summary, err := svc.Send(context.Background(), subscription.Daily, time.Date(2024, 1, 17, 8, 50, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if summary.Sent != 1 || summary.Skipped != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(m.sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(m.sent))
	}

	msg := m.sent[0]
	if msg.Subject != "AgentShift Daily Report: 2024-01-16" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if len(msg.To) != 1 || msg.To[0] != "jane.doe@example.com" || len(msg.Cc) != 1 {
		t.Errorf("unexpected recipients %v cc %v", msg.To, msg.Cc)
	}
	if len(msg.Inline) != 1 || msg.Inline[0].ContentID != "2024-01-16" {
		t.Fatalf("unexpected inline parts %+v", msg.Inline)
	}
	for _, want := range []string{"Hello Jane", "cid:2024-01-16", "daily reports", "https://agentshift.example.com/"} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("body lacks %q", want)
		}
	}
	if len(msg.Attachments) != 1 || !strings.HasPrefix(msg.Attachments[0].Filename, "filtered_data_") {
		t.Fatalf("unexpected attachments %+v", msg.Attachments)
	}
	if !strings.Contains(string(msg.Attachments[0].Data), "2:00:00") {
		t.Errorf("csv lacks the 2h total:\n%s", msg.Attachments[0].Data)
	}

	for _, q := range store.queries {
		if q.ShiftDate == nil || !q.ShiftDate.Equal(shiftDay) {
			t.Errorf("daily query must select shift date %v, got %+v", shiftDay, q)
		}
	}

	leftover, _ := filepath.Glob(filepath.Join(dir, "digests", "daily", "*"))
	if len(leftover) != 0 {
		t.Errorf("digest artifacts not cleaned up: %v", leftover)
	}
}

func TestDigest_WeeklyWindow(t *testing.T) {
	mon := date(2024, 1, 15)
	store := &fakeEvents{events: []availability.Event{
		event("Ann", mon.Add(9*time.Hour), mon, availability.On, availability.On),
		event("Ann", mon.Add(10*time.Hour), mon, availability.On, availability.Off),
		event("Ann", date(2024, 1, 16).Add(9*time.Hour), date(2024, 1, 16), availability.On, availability.On),
		event("Ann", date(2024, 1, 16).Add(11*time.Hour), date(2024, 1, 16), availability.On, availability.Off),
		event("Ann", date(2024, 1, 19).Add(22*time.Hour), date(2024, 1, 19), availability.On, availability.On),
		event("Ann", date(2024, 1, 20).Add(6*time.Hour), date(2024, 1, 20), availability.On, availability.On),
	}}
	subs := &fakeSubs{}
	seedSubs(t, subs, subscription.New("jane.doe@example.com", []string{"Ann"}, subscription.Weekly))
	m := &fakeMailer{}
	svc, _ := newDigest(t, subs, store, m)

	summary, err := svc.Send(context.Background(), subscription.Weekly, time.Date(2024, 1, 22, 8, 50, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if summary.Sent != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if got := m.sent[0].Subject; got != "AgentShift Weekly Report: 2024-01-15 --> 2024-01-19" {
		t.Errorf("subject = %q", got)
	}

	q := store.queries[0]
	if q.ShiftDate != nil {
		t.Fatal("weekly query must select by timestamp")
	}
	wantStart := time.Date(2024, 1, 15, 5, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, 1, 20, 4, 59, 59, 0, time.UTC)
	if !q.Start.Equal(wantStart) || !q.End.Equal(wantEnd) {
		t.Errorf("window %v..%v, want %v..%v", q.Start, q.End, wantStart, wantEnd)
	}

	csvData := string(m.sent[0].Attachments[0].Data)
	if !strings.Contains(csvData, "2024-01-19 22:00:00") {
		t.Error("Friday evening event missing from weekly digest")
	}
	if strings.Contains(csvData, "2024-01-20 06:00:00") {
		t.Error("Saturday event leaked into weekly digest")
	}

	inline := m.sent[0].Inline
	if len(inline) != 1 || inline[0].ContentID != "2024-01-15_2024-01-21" {
		t.Fatalf("weekly digest must carry one weekly chart, got %+v", inline)
	}
	if !strings.Contains(m.sent[0].HTML, "Hours Available from 2024-01-15 to 2024-01-19") {
		t.Errorf("weekly heading missing from body:\n%s", m.sent[0].HTML)
	}
}

func TestDigest_OneFailureDoesNotStopOthers(t *testing.T) {
	shiftDay := date(2024, 1, 16)
	store := &fakeEvents{events: []availability.Event{
		event("Ann", shiftDay.Add(9*time.Hour), shiftDay, availability.On, availability.On),
	}}
	subs := &fakeSubs{}
	seedSubs(t, subs,
		subscription.New("jane.doe@example.com", []string{"Ann"}, subscription.Daily),
		subscription.New("john.roe@example.com", []string{"Ann"}, subscription.Daily),
		subscription.New("ann.lee@example.com", []string{"Ann"}, subscription.Daily),
	)
	m := &fakeMailer{failFor: map[string]error{"john.roe@example.com": errors.New("550 mailbox unavailable")}}
	svc, _ := newDigest(t, subs, store, m)

	summary, err := svc.Send(context.Background(), subscription.Daily, time.Date(2024, 1, 17, 8, 50, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if summary.Sent != 2 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestDigest_ListFailure(t *testing.T) {
	subs := &fakeSubs{listErr: errors.New("connection refused")}
	svc, _ := newDigest(t, subs, &fakeEvents{}, &fakeMailer{})
	if _, err := svc.Send(context.Background(), subscription.Daily, time.Now()); err == nil {
		t.Fatal("expected error when subscribers cannot be listed")
	}
}

func TestDigest_StoreFailureCounted(t *testing.T) {
	subs := &fakeSubs{}
	seedSubs(t, subs, subscription.New("jane.doe@example.com", []string{"Ann"}, subscription.Daily))
	m := &fakeMailer{}
	svc, _ := newDigest(t, subs, &fakeEvents{queryErr: errors.New("timeout")}, m)

	summary, err := svc.Send(context.Background(), subscription.Daily, time.Date(2024, 1, 17, 8, 50, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if summary.Failed != 1 || len(m.sent) != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestSubject(t *testing.T) {
	w := subscription.WindowFor(subscription.Daily, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), 5)
	if got := Subject(w); got != "AgentShift Daily Report: 2024-02-29" {
		t.Errorf("Subject = %q", got)
	}
}

func TestDigestTemplateWithoutPortal(t *testing.T) {
	var sb strings.Builder
	err := digestTemplate.Execute(&sb, digestData{Recurrence: subscription.Weekly})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if strings.Contains(sb.String(), "href") {
		t.Error("portal link rendered without a URL")
	}
	if !strings.Contains(sb.String(), "Hello there") {
		t.Error("expected fallback greeting")
	}
}
