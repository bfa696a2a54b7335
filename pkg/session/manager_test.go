package session

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestManagerRegister(t *testing.T) {
	store := NewMemoryStore()
	config := DefaultManagerConfig()
	config.CleanupInterval = time.Hour // keep the sweep out of the test
	manager := NewManager(store, config, slog.Default())
	defer manager.Shutdown(context.Background())

	sess := &ManagedSession{
		ID:         "sess-1",
		IP:         "192.168.1.1",
		CreatedAt:  time.Now(),
		LastActive: time.Now(),
	}

	if err := manager.Register(sess); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	got := manager.Get(sess.ID)
	if got == nil {
		t.Fatal("session missing after Register")
	}
	if !got.Connected {
		t.Error("session not marked connected after Register")
	}
}

func TestManagerIPLimit(t *testing.T) {
	store := NewMemoryStore()
	config := DefaultManagerConfig()
	config.MaxSessionsPerIP = 2
	config.CleanupInterval = time.Hour
	manager := NewManager(store, config, slog.Default())
	defer manager.Shutdown(context.Background())

	for i := 0; i < 2; i++ {
		sess := &ManagedSession{
			ID:         string(rune('a' + i)),
			IP:         "192.168.1.1",
			CreatedAt:  time.Now(),
			LastActive: time.Now(),
		}
		if err := manager.Register(sess); err != nil {
			t.Fatalf("Register() %d error: %v", i, err)
		}
	}

	over := &ManagedSession{
		ID:         "c",
		IP:         "192.168.1.1",
		CreatedAt:  time.Now(),
		LastActive: time.Now(),
	}
	if err := manager.Register(over); err != ErrTooManySessionsFromIP {
		t.Errorf("Register() over limit got %v, want ErrTooManySessionsFromIP", err)
	}

	over.IP = "192.168.1.2"
	if err := manager.Register(over); err != nil {
		t.Errorf("Register() with fresh IP error: %v", err)
	}
}

func TestManagerDisconnectReconnect(t *testing.T) {
	store := NewMemoryStore()
	config := DefaultManagerConfig()
	config.ResumeWindow = 5 * time.Minute
	config.CleanupInterval = time.Hour
	manager := NewManager(store, config, slog.Default())
	defer manager.Shutdown(context.Background())

	sess := &ManagedSession{
		ID:         "sess-1",
		IP:         "192.168.1.1",
		CreatedAt:  time.Now(),
		LastActive: time.Now(),
	}

	if err := manager.Register(sess); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	state := []byte(`{"id":"sess-1","media":{"width":1024,"height":768},"queries":["(max-width: 768px)"]}`)
	manager.OnDisconnect(sess.ID, state)

	got := manager.Get(sess.ID)
	if got == nil {
		t.Fatal("session missing after disconnect")
	}
	if got.Connected {
		t.Error("session still marked connected after disconnect")
	}
	if got.DisconnectedAt.IsZero() {
		t.Error("DisconnectedAt not set")
	}

	restored, data, err := manager.OnReconnect(sess.ID)
	if err != nil {
		t.Fatalf("OnReconnect() error: %v", err)
	}
	if restored == nil {
		t.Fatal("OnReconnect() returned nil session")
	}
	if !restored.Connected {
		t.Error("session not marked connected after reconnect")
	}
	if string(data) != string(state) {
		t.Errorf("OnReconnect() data got %s, want %s", data, state)
	}
}

func TestManagerLRUEviction(t *testing.T) {
	store := NewMemoryStore()
	config := DefaultManagerConfig()
	config.MaxDetachedSessions = 2
	config.CleanupInterval = time.Hour
	manager := NewManager(store, config, slog.Default())
	defer manager.Shutdown(context.Background())

	for i := 0; i < 3; i++ {
		sess := &ManagedSession{
			ID:         string(rune('a' + i)),
			IP:         "192.168.1.1",
			CreatedAt:  time.Now(),
			LastActive: time.Now(),
		}
		if err := manager.Register(sess); err != nil {
			t.Fatalf("Register() %d error: %v", i, err)
		}
		manager.OnDisconnect(sess.ID, []byte(`{}`))
		time.Sleep(10 * time.Millisecond)
	}

	stats := manager.Stats()
	if stats.Detached > config.MaxDetachedSessions {
		t.Errorf("Detached %d exceeds cap %d", stats.Detached, config.MaxDetachedSessions)
	}

	// First to disconnect sits at the back of the queue and goes first.
	if manager.Get("a") != nil {
		t.Error("expected session a to be evicted")
	}
	if manager.Get("b") == nil {
		t.Error("expected session b to survive")
	}
	if manager.Get("c") == nil {
		t.Error("expected session c to survive")
	}
}

func TestManagerStats(t *testing.T) {
	store := NewMemoryStore()
	config := DefaultManagerConfig()
	config.CleanupInterval = time.Hour
	manager := NewManager(store, config, slog.Default())
	defer manager.Shutdown(context.Background())

	for i := 0; i < 5; i++ {
		sess := &ManagedSession{
			ID:         string(rune('a' + i)),
			IP:         "192.168.1." + string(rune('1'+i)),
			CreatedAt:  time.Now(),
			LastActive: time.Now(),
		}
		manager.Register(sess)
	}

	manager.OnDisconnect("a", []byte(`{}`))
	manager.OnDisconnect("b", []byte(`{}`))

	stats := manager.Stats()
	if stats.Total != 5 {
		t.Errorf("Total got %d, want 5", stats.Total)
	}
	if stats.Connected != 3 {
		t.Errorf("Connected got %d, want 3", stats.Connected)
	}
	if stats.Detached != 2 {
		t.Errorf("Detached got %d, want 2", stats.Detached)
	}
	if stats.UniqueIPs != 5 {
		t.Errorf("UniqueIPs got %d, want 5", stats.UniqueIPs)
	}
}

func TestManagerShutdown(t *testing.T) {
	store := NewMemoryStore()
	config := DefaultManagerConfig()
	config.CleanupInterval = time.Hour
	manager := NewManager(store, config, slog.Default())

	sess := &ManagedSession{
		ID:         "persist-me",
		IP:         "192.168.1.1",
		CreatedAt:  time.Now(),
		LastActive: time.Now(),
	}
	manager.Register(sess)
	manager.OnDisconnect(sess.ID, []byte(`{"media":{"width":375,"height":812}}`))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := manager.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}

	data, err := store.Load(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Load() from store error: %v", err)
	}
	if data == nil {
		t.Error("session not persisted on shutdown")
	}
}
