package apps

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"
)

// Session is the per-request state bound by SessionApp
type Session struct {
	ID     string
	Values map[string]string
}

type sessionKey struct{}

// SessionFromContext returns the session bound to the request context
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok
}

// SessionApp binds a fresh Session to every request it serves and
// releases it when the request completes, however it completes.
type SessionApp struct {
	next   http.Handler
	active atomic.Int64
	served atomic.Int64
}

// NewSessionApp wraps next
func NewSessionApp(next http.Handler) *SessionApp {
	return &SessionApp{next: next}
}

// PushContext binds a new session to r
func (a *SessionApp) PushContext(r *http.Request) (*http.Request, error) {
	s := &Session{
		ID:     uuid.NewString(),
		Values: map[string]string{},
	}
	a.active.Add(1)
	return r.WithContext(context.WithValue(r.Context(), sessionKey{}, s)), nil
}

// PopContext releases the session bound by PushContext
func (a *SessionApp) PopContext(r *http.Request, err error) {
	if s, ok := SessionFromContext(r.Context()); ok {
		s.Values = nil
	}
	a.active.Add(-1)
	a.served.Add(1)
}

func (a *SessionApp) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s, ok := SessionFromContext(r.Context()); ok {
		w.Header().Set("X-Session-Id", s.ID)
	}
	a.next.ServeHTTP(w, r)
}

// Active returns the number of sessions currently bound
func (a *SessionApp) Active() int64 {
	return a.active.Load()
}

// Served returns the number of sessions released so far
func (a *SessionApp) Served() int64 {
	return a.served.Load()
}
