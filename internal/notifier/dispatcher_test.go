package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeChannel records envelopes and returns a fixed error.
type fakeChannel struct {
	name  string
	err   error
	sent  []Envelope
	order *[]string
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(_ context.Context, env Envelope) error {
	f.sent = append(f.sent, env)
	if f.order != nil {
		*f.order = append(*f.order, f.name)
	}
	return f.err
}

func TestDispatcher_EmptyBatch(t *testing.T) {
	primary := &fakeChannel{name: "smtp"}
	secondary := &fakeChannel{name: "api"}
	d := NewDispatcher(primary, secondary, "radar@example.com", discardLogger())

	err := d.Deliver(context.Background(), "me@example.com", nil)
	if !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
	if len(primary.sent)+len(secondary.sent) != 0 {
		t.Error("expected nothing sent for an empty batch")
	}
}

func TestDispatcher_SecondarySuccessSkipsPrimary(t *testing.T) {
	var order []string
	primary := &fakeChannel{name: "smtp", order: &order}
	secondary := &fakeChannel{name: "api", order: &order}
	d := NewDispatcher(primary, secondary, "radar@example.com", discardLogger())

	if err := d.Deliver(context.Background(), "me@example.com", samplePostings()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(order, ",") != "api" {
		t.Errorf("order = %v, want [api]", order)
	}
	env := secondary.sent[0]
	if env.From != "radar@example.com" || env.To[0] != "me@example.com" || len(env.Postings) != 2 {
		t.Errorf("unexpected envelope %+v", env)
	}
}

func TestDispatcher_FallsBackToPrimary(t *testing.T) {
	var order []string
	primary := &fakeChannel{name: "smtp", order: &order}
	secondary := &fakeChannel{name: "api", err: errors.New("503"), order: &order}
	d := NewDispatcher(primary, secondary, "radar@example.com", discardLogger())

	if err := d.Deliver(context.Background(), "me@example.com", samplePostings()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(order, ",") != "api,smtp" {
		t.Errorf("order = %v, want [api smtp]", order)
	}
}

func TestDispatcher_FallbackReachesSMTPVariants(t *testing.T) {
	var order []string
	secondary := &fakeChannel{name: "api", err: errors.New("503"), order: &order}
	transport := &scriptedTransport{results: []error{errors.New("connection refused"), nil}}
	sleeper := &recordingSleep{}
	primary := newTestSMTPChannel(transport, sleeper.sleep, 3)
	d := NewDispatcher(primary, secondary, "radar@example.com", discardLogger())

	if err := d.Deliver(context.Background(), "me@example.com", samplePostings()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(order, ",") != "api" {
		t.Errorf("order = %v, want [api]", order)
	}
	want := []Variant{{Port: 587, Mode: ModeStartTLS}, {Port: 465, Mode: ModeTLS}}
	if len(transport.calls) != len(want) || transport.calls[0] != want[0] || transport.calls[1] != want[1] {
		t.Errorf("smtp calls = %v, want %v", transport.calls, want)
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("expected no backoff within the first attempt, got %v", sleeper.delays)
	}
}

func TestDispatcher_SecondaryAuthFailureStillFallsBack(t *testing.T) {
	primary := &fakeChannel{name: "smtp"}
	secondary := &fakeChannel{name: "api", err: ErrAuthFailed}
	d := NewDispatcher(primary, secondary, "radar@example.com", discardLogger())

	if err := d.Deliver(context.Background(), "me@example.com", samplePostings()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(primary.sent) != 1 {
		t.Error("expected primary to be tried after the api key was rejected")
	}
}

func TestDispatcher_BothFail(t *testing.T) {
	primary := &fakeChannel{name: "smtp", err: ErrDeliveryExhausted}
	secondary := &fakeChannel{name: "api", err: errors.New("503")}
	d := NewDispatcher(primary, secondary, "radar@example.com", discardLogger())

	err := d.Deliver(context.Background(), "me@example.com", samplePostings())
	if !errors.Is(err, ErrDeliveryExhausted) {
		t.Fatalf("expected primary error, got %v", err)
	}
}

func TestDispatcher_PrimaryOnly(t *testing.T) {
	primary := &fakeChannel{name: "smtp"}
	d := NewDispatcher(primary, nil, "radar@example.com", discardLogger())

	if err := d.Deliver(context.Background(), "me@example.com", samplePostings()); err != nil {
		t.Fatal(err)
	}
	if len(primary.sent) != 1 {
		t.Errorf("expected 1 send, got %d", len(primary.sent))
	}
}

func TestDispatcher_SendTest(t *testing.T) {
	primary := &fakeChannel{name: "smtp"}
	d := NewDispatcher(primary, nil, "radar@example.com", discardLogger())
	d.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	if err := d.SendTest(context.Background(), "me@example.com"); err != nil {
		t.Fatal(err)
	}
	env := primary.sent[0]
	if env.Message.Subject != "Test Email - jobradar" {
		t.Errorf("subject = %q", env.Message.Subject)
	}
	if len(env.Postings) != 1 || env.Postings[0].Title != "Test Job Listing" {
		t.Errorf("postings = %+v", env.Postings)
	}
	if !strings.Contains(env.Message.HTML, "Test Source") {
		t.Error("expected sample source label in html")
	}
}
