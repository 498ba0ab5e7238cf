package presence

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken() unexpected error: %v", err)
		}
		if !strings.HasPrefix(token, "user-") {
			t.Errorf("GenerateToken() = %q, want prefix %q", token, "user-")
		}
		if len(token) != len("user-")+9 {
			t.Errorf("GenerateToken() length = %d, want %d", len(token), len("user-")+9)
		}
		for _, r := range token[len("user-"):] {
			if !strings.ContainsRune(tokenAlphabet, r) {
				t.Errorf("GenerateToken() = %q contains %q outside alphabet", token, r)
			}
		}
		seen[token] = true
	}
	if len(seen) != 100 {
		t.Errorf("GenerateToken() produced %d distinct tokens out of 100", len(seen))
	}
}

func TestRegistry_ConnectFresh(t *testing.T) {
	registry := NewRegistry()

	userID, fresh, superseded, err := registry.Connect("", "conn-1")
	if err != nil {
		t.Fatalf("Connect() unexpected error: %v", err)
	}
	if !fresh {
		t.Error("Connect() with empty token should report fresh")
	}
	if superseded != "" {
		t.Errorf("Connect() superseded = %q, want empty", superseded)
	}
	if !strings.HasPrefix(userID, "user-") {
		t.Errorf("Connect() userID = %q, want generated token", userID)
	}
	if !registry.IsBound(userID) {
		t.Error("Connect() identity should be bound afterwards")
	}
}

func TestRegistry_ConnectReattach(t *testing.T) {
	registry := NewRegistry()

	// A presented token unknown to the registry is accepted silently.
	userID, fresh, superseded, err := registry.Connect("user-returning", "conn-1")
	if err != nil {
		t.Fatalf("Connect() unexpected error: %v", err)
	}
	if fresh {
		t.Error("Connect() with presented token should not report fresh")
	}
	if superseded != "" {
		t.Errorf("Connect() superseded = %q, want empty", superseded)
	}
	if userID != "user-returning" {
		t.Errorf("Connect() userID = %q, want %q", userID, "user-returning")
	}
}

func TestRegistry_ConnectSupersedes(t *testing.T) {
	registry := NewRegistry()

	if _, _, _, err := registry.Connect("user-abc", "conn-1"); err != nil {
		t.Fatalf("Connect() unexpected error: %v", err)
	}

	userID, fresh, superseded, err := registry.Connect("user-abc", "conn-2")
	if err != nil {
		t.Fatalf("Connect() unexpected error: %v", err)
	}
	if fresh {
		t.Error("Connect() reusing a bound token should not report fresh")
	}
	if superseded != "conn-1" {
		t.Errorf("Connect() superseded = %q, want %q", superseded, "conn-1")
	}
	if userID != "user-abc" {
		t.Errorf("Connect() userID = %q, want %q", userID, "user-abc")
	}

	// The stale connection no longer resolves; the new one does.
	if _, ok := registry.LookupByConnection("conn-1"); ok {
		t.Error("LookupByConnection() resolved a superseded connection")
	}
	if id, ok := registry.LookupByConnection("conn-2"); !ok || id != "user-abc" {
		t.Errorf("LookupByConnection(conn-2) = %q, %v; want user-abc, true", id, ok)
	}

	if registry.Count() != 1 {
		t.Errorf("Count() = %d, want 1", registry.Count())
	}
}

func TestRegistry_Unbind(t *testing.T) {
	registry := NewRegistry()
	_, _, _, _ = registry.Connect("user-abc", "conn-1")

	registry.Unbind("user-abc")
	if registry.IsBound("user-abc") {
		t.Error("Unbind() identity still bound")
	}
	if registry.Count() != 0 {
		t.Errorf("Count() = %d, want 0", registry.Count())
	}

	// Double-fired disconnect cleanup must be safe.
	registry.Unbind("user-abc")
	registry.Unbind("user-never-seen")
}

func TestRegistry_UnbindIfConnection(t *testing.T) {
	registry := NewRegistry()
	_, _, _, _ = registry.Connect("user-abc", "conn-1")

	// A reconnect presenting the same token rebinds the identity before the
	// old connection's cleanup runs.
	_, _, superseded, err := registry.Connect("user-abc", "conn-2")
	if err != nil {
		t.Fatalf("Connect() unexpected error: %v", err)
	}
	if superseded != "conn-1" {
		t.Fatalf("Connect() superseded = %q, want conn-1", superseded)
	}

	// The stale connection's cleanup must not fire against the fresh binding.
	if registry.UnbindIfConnection("user-abc", "conn-1") {
		t.Error("UnbindIfConnection() fired for a superseded connection")
	}
	if !registry.IsBound("user-abc") {
		t.Error("identity lost its fresh binding to stale cleanup")
	}
	if id, ok := registry.LookupByConnection("conn-2"); !ok || id != "user-abc" {
		t.Errorf("LookupByConnection(conn-2) = %q, %v; want user-abc, true", id, ok)
	}

	// The live connection's own cleanup fires exactly once.
	if !registry.UnbindIfConnection("user-abc", "conn-2") {
		t.Error("UnbindIfConnection() did not fire for the live connection")
	}
	if registry.IsBound("user-abc") {
		t.Error("identity still bound after live cleanup")
	}
	if registry.UnbindIfConnection("user-abc", "conn-2") {
		t.Error("UnbindIfConnection() fired twice")
	}
}

func TestRegistry_ConcurrentConnectUnbind(t *testing.T) {
	registry := NewRegistry()
	const workers = 32

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := fmt.Sprintf("user-%02d", i)
			if _, _, _, err := registry.Connect(token, fmt.Sprintf("conn-%02d", i)); err != nil {
				t.Errorf("Connect() unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if registry.Count() != workers {
		t.Errorf("Count() = %d, want %d", registry.Count(), workers)
	}
	roster := registry.SnapshotRoster()
	seen := make(map[string]bool, len(roster))
	for _, entry := range roster {
		if seen[entry.UserID] {
			t.Errorf("SnapshotRoster() duplicate entry %q", entry.UserID)
		}
		seen[entry.UserID] = true
	}
	if len(seen) != workers {
		t.Errorf("SnapshotRoster() = %d identities, want %d", len(seen), workers)
	}

	// Double-fired disconnects for every identity, concurrently.
	for i := 0; i < workers*2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			registry.Unbind(fmt.Sprintf("user-%02d", i%workers))
		}(i)
	}
	wg.Wait()

	if registry.Count() != 0 {
		t.Errorf("Count() = %d after unbinds, want 0", registry.Count())
	}
	if len(registry.SnapshotRoster()) != 0 {
		t.Errorf("SnapshotRoster() not empty after unbinds")
	}
}

func TestRegistry_DisplayName(t *testing.T) {
	registry := NewRegistry()
	_, _, _, _ = registry.Connect("user-abc", "conn-1")

	if _, ok := registry.DisplayName("user-abc"); ok {
		t.Error("DisplayName() set before SetDisplayName")
	}

	if err := registry.SetDisplayName("user-abc", ""); err == nil {
		t.Error("SetDisplayName() with empty name should fail")
	}
	if err := registry.SetDisplayName("user-missing", "alice"); err == nil {
		t.Error("SetDisplayName() for unknown identity should fail")
	}

	if err := registry.SetDisplayName("user-abc", "alice"); err != nil {
		t.Fatalf("SetDisplayName() unexpected error: %v", err)
	}
	name, ok := registry.DisplayName("user-abc")
	if !ok || name != "alice" {
		t.Errorf("DisplayName() = %q, %v; want alice, true", name, ok)
	}

	// Overwrite wins.
	if err := registry.SetDisplayName("user-abc", "bob"); err != nil {
		t.Fatalf("SetDisplayName() unexpected error: %v", err)
	}
	if name, _ := registry.DisplayName("user-abc"); name != "bob" {
		t.Errorf("DisplayName() = %q, want bob", name)
	}
}

func TestRegistry_SnapshotRosterOrder(t *testing.T) {
	registry := NewRegistry()
	_, _, _, _ = registry.Connect("user-one", "conn-1")
	_, _, _, _ = registry.Connect("user-two", "conn-2")
	_, _, _, _ = registry.Connect("user-three", "conn-3")
	_ = registry.SetDisplayName("user-two", "bob")

	roster := registry.SnapshotRoster()
	if len(roster) != 3 {
		t.Fatalf("SnapshotRoster() length = %d, want 3", len(roster))
	}

	wantOrder := []string{"user-one", "user-two", "user-three"}
	for i, want := range wantOrder {
		if roster[i].UserID != want {
			t.Errorf("SnapshotRoster()[%d].UserID = %q, want %q", i, roster[i].UserID, want)
		}
	}
	if roster[0].Nickname != nil {
		t.Errorf("SnapshotRoster()[0].Nickname = %q, want nil", *roster[0].Nickname)
	}
	if roster[1].Nickname == nil || *roster[1].Nickname != "bob" {
		t.Error("SnapshotRoster()[1].Nickname should be bob")
	}

	// Unbinding the middle identity keeps the remaining order stable.
	registry.Unbind("user-two")
	roster = registry.SnapshotRoster()
	if len(roster) != 2 || roster[0].UserID != "user-one" || roster[1].UserID != "user-three" {
		t.Errorf("SnapshotRoster() after Unbind = %+v, want [user-one user-three]", roster)
	}

	// Reattaching keeps the earlier roster slot.
	_, _, _, _ = registry.Connect("user-one", "conn-9")
	roster = registry.SnapshotRoster()
	if roster[0].UserID != "user-one" {
		t.Errorf("SnapshotRoster()[0].UserID = %q after reattach, want user-one", roster[0].UserID)
	}
}
