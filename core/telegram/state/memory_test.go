package state

import "testing"

func TestMemoryManagerStates(t *testing.T) {
	m := NewMemoryManager()
	const user int64 = 7

	if m.HasState(user) {
		t.Fatal("fresh manager should have no state")
	}
	if got := m.GetState(user); got != StateIdle {
		t.Fatalf("GetState = %q, expected idle", got)
	}

	const awaiting State = "awaiting_input"
	m.SetState(user, awaiting)
	if !m.HasState(user) {
		t.Fatal("expected active state after SetState")
	}
	if !m.InProgress(user) {
		t.Fatal("expected InProgress after SetState")
	}
	if got := m.GetState(user); got != awaiting {
		t.Fatalf("GetState = %q, expected %q", got, awaiting)
	}
	if m.Count() != 1 {
		t.Fatalf("Count = %d, expected 1", m.Count())
	}

	m.ClearState(user)
	if m.HasState(user) {
		t.Fatal("state should be idle after ClearState")
	}
	if m.Count() != 1 {
		t.Fatal("ClearState must keep the session")
	}

	m.Clear(user)
	if m.Count() != 0 {
		t.Fatal("Clear must drop the session")
	}
}

func TestMemoryManagerIsolatesUsers(t *testing.T) {
	m := NewMemoryManager()
	m.SetState(1, "awaiting_input")

	if m.HasState(2) {
		t.Fatal("state of user 1 leaked to user 2")
	}
	if m.Count() != 1 {
		t.Fatalf("Count = %d, expected 1", m.Count())
	}
}
