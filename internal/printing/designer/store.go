package designer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rxdesk/rxdesk/internal/platform/httpx"
)

const (
	sessionKeyPrefix = "designer:session:"
	maxTxRetries     = 5
)

var (
	// ErrSessionNotFound indicates an expired, unknown or foreign session.
	ErrSessionNotFound = fmt.Errorf("designer session: %w", httpx.ErrNotFound)
	// ErrSessionBusy indicates repeated write conflicts on one session.
	ErrSessionBusy = fmt.Errorf("designer session busy: %w", httpx.ErrConflict)
)

// SessionStore keeps designer sessions as JSON snapshots in Redis.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionStore{client: client, ttl: ttl, now: time.Now}
}

func (st *SessionStore) key(id string) string {
	return sessionKeyPrefix + id
}

// Create persists a new session and assigns its id.
func (st *SessionStore) Create(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	sess.UpdatedAt = st.now().UTC()
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	ok, err := st.client.SetNX(ctx, st.key(sess.ID), payload, st.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("designer session %s: %w", sess.ID, httpx.ErrDuplicate)
	}
	return nil
}

// Load reads a session snapshot.
func (st *SessionStore) Load(ctx context.Context, id string) (*Session, error) {
	payload, err := st.client.Get(ctx, st.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Update applies fn to the stored session inside an optimistic transaction.
// Nothing is written when fn fails, and concurrent writers to the same
// session are serialised by retrying on conflict.
func (st *SessionStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	key := st.key(id)
	var out *Session
	txf := func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrSessionNotFound
			}
			return err
		}
		var sess Session
		if err := json.Unmarshal(payload, &sess); err != nil {
			return err
		}
		if err := fn(&sess); err != nil {
			return err
		}
		sess.Revision++
		sess.UpdatedAt = st.now().UTC()
		next, err := json.Marshal(&sess)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, st.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		out = &sess
		return nil
	}
	for i := 0; i < maxTxRetries; i++ {
		err := st.client.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, ErrSessionBusy
}

// Delete removes a session.
func (st *SessionStore) Delete(ctx context.Context, id string) error {
	if err := st.client.Del(ctx, st.key(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
