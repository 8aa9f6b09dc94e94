package service

import (
	"context"
	"sync"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
)

// SessionRegistry tracks the cart sessions of signed-in users.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*CartSession
	lastUsed map[string]time.Time
	store    repository.Store
	logger   *logging.Logger
	now      func() time.Time
}

func NewSessionRegistry(store repository.Store) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*CartSession),
		lastUsed: make(map[string]time.Time),
		store:    store,
		logger:   logging.NewLogger("sessions"),
		now:      time.Now,
	}
}

// Open starts (or resumes) the session for userID and loads its cart.
func (r *SessionRegistry) Open(ctx context.Context, userID string) (*CartSession, error) {
	if userID == "" {
		return nil, errors.ErrUnauthenticated
	}

	r.mu.Lock()
	session, ok := r.sessions[userID]
	if !ok {
		session = NewCartSession(userID, r.store)
		r.sessions[userID] = session
	}
	r.lastUsed[userID] = r.now()
	r.mu.Unlock()

	if err := session.Refresh(ctx); err != nil {
		return nil, err
	}

	if !ok {
		r.logger.Info("Session opened", logging.Fields{"user_id": userID})
	}
	return session, nil
}

// Get returns the open session for userID.
func (r *SessionRegistry) Get(userID string) (*CartSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[userID]
	if !ok {
		return nil, errors.ErrUnauthenticated
	}
	r.lastUsed[userID] = r.now()
	return session, nil
}

// Close discards the session for userID. Holders of the old session see
// ErrUnauthenticated from then on.
func (r *SessionRegistry) Close(userID string) {
	r.mu.Lock()
	session, ok := r.sessions[userID]
	delete(r.sessions, userID)
	delete(r.lastUsed, userID)
	r.mu.Unlock()

	if ok {
		session.Close()
		r.logger.Info("Session closed", logging.Fields{"user_id": userID})
	}
}

// Len returns the number of open sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Evict closes sessions not used within idle and returns how many were
// closed. The carts themselves stay in the backend; the user reopens the
// session to get them back.
func (r *SessionRegistry) Evict(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var evicted []*CartSession
	for userID, used := range r.lastUsed {
		if used.After(cutoff) {
			continue
		}
		evicted = append(evicted, r.sessions[userID])
		delete(r.sessions, userID)
		delete(r.lastUsed, userID)
	}
	r.mu.Unlock()

	for _, session := range evicted {
		session.Close()
	}
	if len(evicted) > 0 {
		r.logger.Info("Idle sessions evicted", logging.Fields{"count": len(evicted), "idle": idle.String()})
	}
	return len(evicted)
}

// StartEviction runs Evict every interval until ctx is done.
func (r *SessionRegistry) StartEviction(ctx context.Context, idle, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Evict(idle)
		}
	}
}
