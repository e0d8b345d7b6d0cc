// Package session is the single owner of the signed-in user's local state:
// bearer token, cached user blob, theme preference and per-user keys such
// as paymentMethod_<id>.
//
// Reads and writes go through a Session backed by a pluggable Store driver
// (memory, file, redis, sql). Every change and every clear is published on
// an event bus, so all mounted views observe a logout at the same moment:
//
//	sess, _ := session.Open(ctx, bus)
//	off := sess.OnClear(func(reason string) { view.Stop() })
//	defer off()
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sync"

	"github.com/shashiranjanraj/platter/pkg/event"
	"github.com/shashiranjanraj/platter/pkg/metrics"
)

const (
	KeyToken     = "token"
	KeyUser      = "user"
	KeyThemeMode = "themeMode"
)

// Event names published on the bus.
const (
	EventChanged = "session.changed"
	EventCleared = "session.cleared"
)

// Reasons passed with EventCleared.
const (
	ReasonLogout       = "logout"
	ReasonUnauthorized = "unauthorized"
)

// DefaultThemeMode applies until the user picks one.
const DefaultThemeMode = "dark"

// Store persists the flat key/value state of one session.
type Store interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, data map[string]string) error
	Clear(ctx context.Context) error
	Driver() string
}

// Session is safe for concurrent use. Writes are persisted before the
// change is published.
type Session struct {
	mu    sync.RWMutex
	store Store
	bus   *event.Bus
	data  map[string]string
}

// New loads the current state from store. A nil bus gets a private one.
func New(ctx context.Context, store Store, bus *event.Bus) (*Session, error) {
	if bus == nil {
		bus = event.New()
	}
	data, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: load from %s: %w", store.Driver(), err)
	}
	if data == nil {
		data = map[string]string{}
	}
	metrics.SessionOps.WithLabelValues(store.Driver(), "load").Inc()
	return &Session{store: store, bus: bus, data: data}, nil
}

// Bus exposes the bus changes are published on.
func (s *Session) Bus() *event.Bus { return s.bus }

func (s *Session) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores value under key. An empty value deletes the key.
func (s *Session) Set(ctx context.Context, key, value string) error {
	return s.update(ctx, map[string]string{key: value})
}

func (s *Session) Delete(ctx context.Context, key string) error {
	return s.update(ctx, map[string]string{key: ""})
}

func (s *Session) update(ctx context.Context, kv map[string]string) error {
	s.mu.Lock()
	next := maps.Clone(s.data)
	for k, v := range kv {
		if v == "" {
			delete(next, k)
		} else {
			next[k] = v
		}
	}
	if err := s.store.Save(ctx, next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("session: save to %s: %w", s.store.Driver(), err)
	}
	s.data = next
	s.mu.Unlock()

	metrics.SessionOps.WithLabelValues(s.store.Driver(), "save").Inc()
	for k := range kv {
		s.bus.Fire(EventChanged, k)
	}
	return nil
}

// Clear wipes every key and publishes EventCleared with reason. Subscribers
// run even if the store fails to clear.
func (s *Session) Clear(ctx context.Context, reason string) error {
	s.mu.Lock()
	err := s.store.Clear(ctx)
	s.data = map[string]string{}
	s.mu.Unlock()

	metrics.SessionOps.WithLabelValues(s.store.Driver(), "clear").Inc()
	s.bus.Fire(EventCleared, reason)
	if err != nil {
		return fmt.Errorf("session: clear %s: %w", s.store.Driver(), err)
	}
	return nil
}

// OnClear subscribes to logouts. The returned func unsubscribes.
func (s *Session) OnClear(fn func(reason string)) func() {
	return s.bus.Listen(EventCleared, func(p interface{}) {
		reason, _ := p.(string)
		fn(reason)
	})
}

// OnChange subscribes to key writes. The returned func unsubscribes.
func (s *Session) OnChange(fn func(key string)) func() {
	return s.bus.Listen(EventChanged, func(p interface{}) {
		key, _ := p.(string)
		fn(key)
	})
}

// Token returns the stored bearer token or "".
func (s *Session) Token() string {
	v, _ := s.Get(KeyToken)
	return v
}

func (s *Session) Authenticated() bool { return s.Token() != "" }

// User decodes the cached user blob. A missing or malformed blob yields nil.
func (s *Session) User() map[string]interface{} {
	raw, ok := s.Get(KeyUser)
	if !ok {
		return nil
	}
	var u map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil
	}
	return u
}

// SignIn stores the token and user blob in a single write.
func (s *Session) SignIn(ctx context.Context, token string, user interface{}) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("session: marshal user: %w", err)
	}
	return s.update(ctx, map[string]string{KeyToken: token, KeyUser: string(raw)})
}

func (s *Session) ThemeMode() string {
	if v, ok := s.Get(KeyThemeMode); ok && (v == "light" || v == "dark") {
		return v
	}
	return DefaultThemeMode
}

func (s *Session) SetThemeMode(ctx context.Context, mode string) error {
	if mode != "light" && mode != "dark" {
		return fmt.Errorf("session: theme mode must be light or dark, got %q", mode)
	}
	return s.Set(ctx, KeyThemeMode, mode)
}

// PaymentMethodKey scopes the saved payment method to a storage id such as
// "user_12" or "staff_3".
func PaymentMethodKey(storageID string) string { return "paymentMethod_" + storageID }

// Snapshot returns a copy of every stored key.
func (s *Session) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data)
}
