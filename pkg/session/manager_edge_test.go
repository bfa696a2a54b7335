package session

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// captureStore records store calls so tests can assert on persistence
// behavior without a real backend.
type captureStore struct {
	mu sync.Mutex

	contents map[string][]byte

	deletes []string
	saves   []string
	saveAll map[string]SessionData
}

func (s *captureStore) Save(ctx context.Context, sessionID string, data []byte, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, sessionID)
	if s.contents == nil {
		s.contents = make(map[string][]byte)
	}
	s.contents[sessionID] = append([]byte(nil), data...)
	return nil
}

func (s *captureStore) Load(ctx context.Context, sessionID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.contents[sessionID]
	if data == nil {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (s *captureStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, sessionID)
	delete(s.contents, sessionID)
	return nil
}

func (s *captureStore) Touch(ctx context.Context, sessionID string, expiresAt time.Time) error {
	return nil
}

func (s *captureStore) SaveAll(ctx context.Context, sessions map[string]SessionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveAll = make(map[string]SessionData, len(sessions))
	for id, sd := range sessions {
		s.saveAll[id] = SessionData{
			Data:      append([]byte(nil), sd.Data...),
			ExpiresAt: sd.ExpiresAt,
		}
	}
	return nil
}

func (s *captureStore) Close() error { return nil }

func TestManager_OnReconnect_FallsBackToStore(t *testing.T) {
	store := &captureStore{
		contents: map[string][]byte{
			"s1": []byte("serialized"),
		},
	}
	cfg := DefaultManagerConfig()
	cfg.CleanupInterval = 24 * time.Hour
	manager := NewManager(store, cfg, slog.Default())
	t.Cleanup(func() { _ = manager.Shutdown(context.Background()) })

	sess, data, err := manager.OnReconnect("s1")
	if err != nil {
		t.Fatalf("OnReconnect() error: %v", err)
	}
	if sess != nil {
		t.Fatalf("OnReconnect() expected nil session for store-only hit, got %+v", sess)
	}
	if string(data) != "serialized" {
		t.Fatalf("OnReconnect() data got %q", string(data))
	}
}

func TestManager_OnReconnect_ExpiredSessionIsRemoved(t *testing.T) {
	cfg := DefaultManagerConfig()
	cfg.ResumeWindow = 10 * time.Millisecond
	cfg.CleanupInterval = 24 * time.Hour

	manager := NewManager(nil, cfg, slog.Default())
	t.Cleanup(func() { _ = manager.Shutdown(context.Background()) })

	sess := &ManagedSession{
		ID:        "s1",
		IP:        "10.0.0.1",
		CreatedAt: time.Now(),
	}
	if err := manager.Register(sess); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	manager.OnDisconnect("s1", []byte("x"))

	got := manager.Get("s1")
	if got == nil {
		t.Fatal("expected session to exist after disconnect")
	}
	got.DisconnectedAt = time.Now().Add(-time.Second)

	if _, _, err := manager.OnReconnect("s1"); err != ErrSessionExpired {
		t.Fatalf("OnReconnect() got %v, want ErrSessionExpired", err)
	}
	if manager.Get("s1") != nil {
		t.Fatal("expected expired session to be removed")
	}
}

func TestManager_TouchUpdatesLRUOrder(t *testing.T) {
	cfg := DefaultManagerConfig()
	cfg.MaxDetachedSessions = 2
	cfg.CleanupInterval = 24 * time.Hour

	manager := NewManager(nil, cfg, slog.Default())
	t.Cleanup(func() { _ = manager.Shutdown(context.Background()) })

	for _, id := range []string{"a", "b"} {
		if err := manager.Register(&ManagedSession{ID: id, IP: "10.0.0.1", CreatedAt: time.Now()}); err != nil {
			t.Fatalf("Register(%s) error: %v", id, err)
		}
		manager.OnDisconnect(id, []byte(id))
	}

	// Queue is b, a front to back. Touch a so it moves to the front
	// and b becomes the eviction candidate.
	manager.Touch("a")

	if err := manager.Register(&ManagedSession{ID: "c", IP: "10.0.0.1", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Register(c) error: %v", err)
	}
	manager.OnDisconnect("c", []byte("c"))

	if manager.Get("b") != nil {
		t.Fatal("expected session b evicted once Touch(a) promoted a")
	}
	if manager.Get("a") == nil || manager.Get("c") == nil {
		t.Fatal("expected sessions a and c to remain")
	}
}

func TestManager_CleanupExpired_SparesConnected(t *testing.T) {
	store := &captureStore{}
	cfg := DefaultManagerConfig()
	cfg.ResumeWindow = 50 * time.Millisecond
	cfg.CleanupInterval = 24 * time.Hour

	manager := NewManager(store, cfg, slog.Default())
	t.Cleanup(func() { _ = manager.Shutdown(context.Background()) })

	if err := manager.Register(&ManagedSession{ID: "live", IP: "10.0.0.1", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Register(live) error: %v", err)
	}
	if err := manager.Register(&ManagedSession{ID: "gone", IP: "10.0.0.1", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Register(gone) error: %v", err)
	}
	manager.OnDisconnect("gone", []byte("x"))

	d := manager.Get("gone")
	if d == nil {
		t.Fatal("expected detached session to exist")
	}
	d.DisconnectedAt = time.Now().Add(-time.Second)

	manager.cleanupExpired()

	if manager.Get("live") == nil {
		t.Fatal("expected connected session to survive the sweep")
	}
	if manager.Get("gone") != nil {
		t.Fatal("expected detached expired session to be swept")
	}
}

func TestManager_ShutdownStopsManager(t *testing.T) {
	cfg := DefaultManagerConfig()
	cfg.CleanupInterval = 24 * time.Hour

	manager := NewManager(nil, cfg, slog.Default())
	if err := manager.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}

	if err := manager.CheckIPLimit("1.2.3.4"); err != ErrManagerStopped {
		t.Fatalf("CheckIPLimit() after shutdown got %v, want ErrManagerStopped", err)
	}
	if err := manager.Register(&ManagedSession{ID: "s1", IP: "1.2.3.4"}); err != ErrManagerStopped {
		t.Fatalf("Register() after shutdown got %v, want ErrManagerStopped", err)
	}
	if _, _, err := manager.OnReconnect("missing"); err != ErrManagerStopped {
		t.Fatalf("OnReconnect() after shutdown got %v, want ErrManagerStopped", err)
	}
}
