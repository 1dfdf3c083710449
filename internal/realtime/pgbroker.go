package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/nyashahama/counselling-portal-backend/internal/db"
)

// Channel is the Postgres NOTIFY channel chat messages travel on.
const Channel = "chat_messages"

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPing         = 90 * time.Second
)

// notification is the NOTIFY payload. The body is loaded from the messages
// table on receipt so long messages never hit the 8000-byte payload limit.
type notification struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
}

// PGBroker publishes with pg_notify and fans notifications received on one
// pq.Listener out through a local Hub.
type PGBroker struct {
	q        db.Querier
	hub      *Hub
	listener *pq.Listener
	logger   *slog.Logger
}

var _ Broker = (*PGBroker)(nil)

// NewPGBroker opens a dedicated LISTEN connection on dsn. Call Run to start
// receiving.
func NewPGBroker(dsn string, q db.Querier, logger *slog.Logger) (*PGBroker, error) {
	b := &PGBroker{q: q, hub: NewHub(), logger: logger}

	b.listener = pq.NewListener(dsn, listenerMinReconnect, listenerMaxReconnect,
		func(ev pq.ListenerEventType, err error) {
			switch ev {
			case pq.ListenerEventConnectionAttemptFailed:
				logger.Warn("realtime: listener connection attempt failed", "error", err)
			case pq.ListenerEventDisconnected:
				logger.Warn("realtime: listener disconnected", "error", err)
			case pq.ListenerEventReconnected:
				logger.Info("realtime: listener reconnected")
			}
		})

	if err := b.listener.Listen(Channel); err != nil {
		_ = b.listener.Close()
		return nil, fmt.Errorf("realtime: listen %s: %w", Channel, err)
	}
	return b, nil
}

// Publish sends a notification for m. It reaches local subscribers once
// Postgres echoes it back through the listener.
func (b *PGBroker) Publish(ctx context.Context, m Message) error {
	payload, err := json.Marshal(notification{ID: m.ID, SessionID: m.SessionID})
	if err != nil {
		return fmt.Errorf("realtime: marshal notification: %w", err)
	}
	if err := b.q.Notify(ctx, Channel, string(payload)); err != nil {
		return fmt.Errorf("realtime: notify: %w", err)
	}
	return nil
}

// Subscribe implements Broker.
func (b *PGBroker) Subscribe(sessionID uuid.UUID) (<-chan Message, func()) {
	return b.hub.Subscribe(sessionID)
}

// Run dispatches notifications until ctx is cancelled, then closes the
// listener. Call it in a goroutine from main.
func (b *PGBroker) Run(ctx context.Context) {
	b.logger.Info("realtime: listening", "channel", Channel)
	ticker := time.NewTicker(listenerPing)
	defer ticker.Stop()
	defer b.listener.Close()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("realtime: stopped")
			return
		case n := <-b.listener.Notify:
			// A nil notification follows a reconnect; anything sent while
			// disconnected is gone.
			if n == nil {
				continue
			}
			b.dispatch(ctx, n.Extra)
		case <-ticker.C:
			go func() {
				if err := b.listener.Ping(); err != nil {
					b.logger.Warn("realtime: listener ping failed", "error", err)
				}
			}()
		}
	}
}

func (b *PGBroker) dispatch(ctx context.Context, payload string) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		b.logger.Warn("realtime: bad notification payload", "error", err)
		return
	}
	// Nobody on this instance is watching the session; skip the lookup.
	if b.hub.Subscribers(n.SessionID) == 0 {
		return
	}

	lookupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	row, err := b.q.GetMessageByID(lookupCtx, n.ID)
	if err != nil {
		b.logger.Warn("realtime: load message", "message_id", n.ID, "error", err)
		return
	}
	b.hub.deliver(FromRow(row))
}

// FromRow converts a stored message into its wire form.
func FromRow(row db.Message) Message {
	return Message{
		ID:        row.ID,
		SessionID: row.SessionID,
		SenderID:  row.SenderID,
		Body:      row.Body,
		CreatedAt: row.CreatedAt,
	}
}
