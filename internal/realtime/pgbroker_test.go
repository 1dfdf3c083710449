package realtime

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nyashahama/counselling-portal-backend/internal/db"
)

// stubQuerier serves messages from a map and records lookups and notifies.
type stubQuerier struct {
	db.Querier // embedded to panic on unimplemented methods

	mu        sync.Mutex
	messages  map[uuid.UUID]db.Message
	lookups   int
	notified  []string
	notifyErr error
}

func (q *stubQuerier) GetMessageByID(_ context.Context, id uuid.UUID) (db.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lookups++
	m, ok := q.messages[id]
	if !ok {
		return db.Message{}, sql.ErrNoRows
	}
	return m, nil
}

func (q *stubQuerier) Notify(_ context.Context, channel, payload string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.notifyErr != nil {
		return q.notifyErr
	}
	q.notified = append(q.notified, channel+" "+payload)
	return nil
}

func (q *stubQuerier) lookupCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lookups
}

// newTestBroker builds a PGBroker without a LISTEN connection; dispatch is
// driven directly.
func newTestBroker(q *stubQuerier) *PGBroker {
	return &PGBroker{
		q:      q,
		hub:    NewHub(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func payloadFor(t *testing.T, id, sessionID uuid.UUID) string {
	t.Helper()
	raw, err := json.Marshal(notification{ID: id, SessionID: sessionID})
	if err != nil {
		t.Fatal(err)
	}
	return string(raw)
}

func expectNothing(t *testing.T, ch <-chan Message) {
	t.Helper()
	select {
	case m := <-ch:
		t.Fatalf("unexpected delivery: %+v", m)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPGBroker_DispatchLoadsAndDelivers(t *testing.T) {
	sessionID, msgID := uuid.New(), uuid.New()
	row := db.Message{ID: msgID, SessionID: sessionID, SenderID: uuid.New(), Body: "see you at 3", CreatedAt: time.Now()}
	q := &stubQuerier{messages: map[uuid.UUID]db.Message{msgID: row}}
	b := newTestBroker(q)

	ch, cancel := b.Subscribe(sessionID)
	defer cancel()

	b.dispatch(context.Background(), payloadFor(t, msgID, sessionID))

	got := recv(t, ch)
	if got.ID != msgID || got.Body != row.Body || got.SenderID != row.SenderID {
		t.Errorf("delivered %+v, want body %q from %s", got, row.Body, row.SenderID)
	}
	if q.lookupCount() != 1 {
		t.Errorf("lookups: got %d, want 1", q.lookupCount())
	}
}

func TestPGBroker_DispatchSkipsSessionsWithoutSubscribers(t *testing.T) {
	q := &stubQuerier{messages: map[uuid.UUID]db.Message{}}
	b := newTestBroker(q)

	other, cancel := b.Subscribe(uuid.New())
	defer cancel()

	b.dispatch(context.Background(), payloadFor(t, uuid.New(), uuid.New()))

	if q.lookupCount() != 0 {
		t.Errorf("no one is watching the session, expected no lookup, got %d", q.lookupCount())
	}
	expectNothing(t, other)
}

func TestPGBroker_DispatchIgnoresBadPayload(t *testing.T) {
	q := &stubQuerier{}
	b := newTestBroker(q)

	for _, payload := range []string{"", "not json", `{"id":"nope"}`} {
		b.dispatch(context.Background(), payload)
	}
	if q.lookupCount() != 0 {
		t.Errorf("bad payloads should not reach the database, got %d lookups", q.lookupCount())
	}
}

func TestPGBroker_DispatchDropsMissingMessage(t *testing.T) {
	sessionID := uuid.New()
	q := &stubQuerier{messages: map[uuid.UUID]db.Message{}}
	b := newTestBroker(q)

	ch, cancel := b.Subscribe(sessionID)
	defer cancel()

	b.dispatch(context.Background(), payloadFor(t, uuid.New(), sessionID))

	if q.lookupCount() != 1 {
		t.Errorf("lookups: got %d, want 1", q.lookupCount())
	}
	expectNothing(t, ch)
}

func TestPGBroker_PublishNotifiesIDsOnly(t *testing.T) {
	q := &stubQuerier{}
	b := newTestBroker(q)
	m := Message{ID: uuid.New(), SessionID: uuid.New(), Body: "a long body that stays in the table"}

	if err := b.Publish(context.Background(), m); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	want := Channel + " " + payloadFor(t, m.ID, m.SessionID)
	if len(q.notified) != 1 || q.notified[0] != want {
		t.Errorf("notified %v, want [%s]", q.notified, want)
	}
}

func TestPGBroker_PublishWrapsNotifyError(t *testing.T) {
	boom := errors.New("connection reset")
	b := newTestBroker(&stubQuerier{notifyErr: boom})

	err := b.Publish(context.Background(), Message{ID: uuid.New(), SessionID: uuid.New()})
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want wrapped %v", err, boom)
	}
}
