package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

type memRepo struct {
	mu        sync.Mutex
	stored    []Notification
	insertErr error
}

func (r *memRepo) Insert(_ context.Context, n Notification) (Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return Notification{}, r.insertErr
	}
	r.stored = append(r.stored, n)
	return n, nil
}

func (r *memRepo) FindAll(_ context.Context) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.stored...), nil
}

func (r *memRepo) FindByUser(_ context.Context, userID string) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, n := range r.stored {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *memRepo) FindBroadcasts(_ context.Context) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, n := range r.stored {
		if n.UserID == "" {
			out = append(out, n)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(ns []Notification) {
	sort.Slice(ns, func(i, j int) bool { return ns[i].Timestamp.After(ns[j].Timestamp) })
}

type fakePublisher struct {
	mu     sync.Mutex
	events []any
	err    error
}

func (p *fakePublisher) PublishJSON(_ context.Context, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(new(bytes.Buffer), nil))
}

func TestCreateAndPublishStoresThenAnnounces(t *testing.T) {
	repo := &memRepo{}
	pub := &fakePublisher{}
	svc := NewService(repo, pub, WithLogger(discardLogger()))

	saved, err := svc.CreateAndPublish(context.Background(), "order shipped", KindSuccess, "user-1")
	if err != nil {
		t.Fatalf("CreateAndPublish() error = %v", err)
	}
	if saved.ID == "" {
		t.Fatal("stored notification has no id")
	}
	if saved.Read {
		t.Fatal("new notification already marked read")
	}
	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}

	// The announced payload is the stored record.
	data, err := json.Marshal(pub.events[0])
	if err != nil {
		t.Fatalf("marshal announced event: %v", err)
	}
	if !strings.Contains(string(data), saved.ID) {
		t.Fatalf("announced event %s does not carry stored id %s", data, saved.ID)
	}
}

func TestPublishFailureDoesNotRollBackInsert(t *testing.T) {
	repo := &memRepo{}
	pub := &fakePublisher{err: errors.New("relay down")}
	var buf bytes.Buffer
	svc := NewService(repo, pub, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	saved, err := svc.CreateAndPublish(context.Background(), "disk almost full", KindAlert, "")
	if err != nil {
		t.Fatalf("CreateAndPublish() error = %v, want stored record despite relay failure", err)
	}

	all, err := svc.All(context.Background())
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 1 || all[0].ID != saved.ID {
		t.Fatalf("durable record missing after publish failure: %v", all)
	}
	if !strings.Contains(buf.String(), "not announced") {
		t.Fatalf("publish failure not logged: %q", buf.String())
	}
}

func TestInsertFailurePublishesNothing(t *testing.T) {
	repo := &memRepo{insertErr: errors.New("db down")}
	pub := &fakePublisher{}
	svc := NewService(repo, pub, WithLogger(discardLogger()))

	if _, err := svc.CreateAndPublish(context.Background(), "hello", KindInfo, ""); err == nil {
		t.Fatal("CreateAndPublish() with failing repo returned nil error")
	}
	if len(pub.events) != 0 {
		t.Fatalf("published %d events for a failed insert, want 0", len(pub.events))
	}
}

func TestValidation(t *testing.T) {
	svc := NewService(&memRepo{}, &fakePublisher{}, WithLogger(discardLogger()))
	ctx := context.Background()

	if _, err := svc.CreateAndPublish(ctx, "  ", KindInfo, ""); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("blank message error = %v, want ErrEmptyMessage", err)
	}
	if _, err := svc.CreateAndPublish(ctx, "x", "URGENT", ""); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("bad kind error = %v, want ErrInvalidKind", err)
	}

	// Empty kind defaults to INFO.
	n, err := svc.CreateAndPublish(ctx, "x", "", "")
	if err != nil {
		t.Fatalf("CreateAndPublish() error = %v", err)
	}
	if n.Kind != KindInfo {
		t.Fatalf("default kind = %q, want %q", n.Kind, KindInfo)
	}
}

func TestUserAndBroadcastQueries(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, &fakePublisher{}, WithLogger(discardLogger()))
	ctx := context.Background()

	base := time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC)
	for i, spec := range []struct{ msg, user string }{
		{"for alice 1", "alice"},
		{"broadcast 1", ""},
		{"for alice 2", "alice"},
		{"for bob", "bob"},
	} {
		tick := base.Add(time.Duration(i) * time.Minute)
		svcAt := NewService(repo, &fakePublisher{}, WithLogger(discardLogger()),
			WithClock(func() time.Time { return tick }))
		if _, err := svcAt.CreateAndPublish(ctx, spec.msg, KindInfo, spec.user); err != nil {
			t.Fatalf("CreateAndPublish(%q) error = %v", spec.msg, err)
		}
	}

	alice, err := svc.ForUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ForUser() error = %v", err)
	}
	if len(alice) != 2 || alice[0].Message != "for alice 2" {
		t.Fatalf("ForUser(alice) = %v, want 2 newest-first", alice)
	}

	broadcasts, err := svc.Broadcasts(ctx)
	if err != nil {
		t.Fatalf("Broadcasts() error = %v", err)
	}
	if len(broadcasts) != 1 || broadcasts[0].Message != "broadcast 1" {
		t.Fatalf("Broadcasts() = %v", broadcasts)
	}
}
