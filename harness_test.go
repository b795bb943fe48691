package main

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeSocket records every frame written to it so tests can assert on the
// events a client would have received.
type fakeSocket struct {
	mu     sync.Mutex
	frames [][]byte
}

func (f *fakeSocket) ReadMessage() (int, []byte, error) {
	return 0, nil, errors.New("fake socket is write-only")
}

func (f *fakeSocket) WriteMessage(_ int, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	f.mu.Lock()
	f.frames = append(f.frames, cp)
	f.mu.Unlock()
	return nil
}

func (f *fakeSocket) Close() error { return nil }

// eventsOfType decodes all recorded envelopes of the given event type.
func (f *fakeSocket) eventsOfType(t *testing.T, msgType string) []json.RawMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []json.RawMessage
	for _, frame := range f.frames {
		var env struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		if env.Type == msgType {
			out = append(out, env.Data)
		}
	}
	return out
}

// lastEvent returns the most recent payload of the given type, failing the
// test if none was sent.
func (f *fakeSocket) lastEvent(t *testing.T, msgType string) json.RawMessage {
	t.Helper()
	events := f.eventsOfType(t, msgType)
	if len(events) == 0 {
		t.Fatalf("no %q event recorded", msgType)
	}
	return events[len(events)-1]
}

func (f *fakeSocket) hasEvent(t *testing.T, msgType string) bool {
	t.Helper()
	return len(f.eventsOfType(t, msgType)) > 0
}

func decodeAs[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return v
}

// newTestConn builds a connection backed by a recording fake socket.
func newTestConn(id string) (*Conn, *fakeSocket) {
	sock := &fakeSocket{}
	return &Conn{ID: id, ws: sock}, sock
}

// connectUser registers a connection and announces the user as online.
func connectUser(s *Server, connID, userID string) (*Conn, *fakeSocket) {
	conn, sock := newTestConn(connID)
	s.conns.Add(conn)
	s.handleUserOnline(conn, UserOnlineData{UserID: userID})
	return conn, sock
}

type walletOp struct {
	UserID string
	Amount int
	Reason string
}

// fakeWallet is an in-memory wallet collaborator. A user missing from
// balances has unlimited funds.
type fakeWallet struct {
	mu       sync.Mutex
	balances map[string]int
	debits   []walletOp
	credits  []walletOp
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{balances: make(map[string]int)}
}

func (w *fakeWallet) Debit(userID string, amount int, reason string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if bal, ok := w.balances[userID]; ok {
		if bal < amount {
			return bal, ErrInsufficientFunds
		}
		w.balances[userID] = bal - amount
	}
	w.debits = append(w.debits, walletOp{UserID: userID, Amount: amount, Reason: reason})
	return w.balances[userID], nil
}

func (w *fakeWallet) Credit(userID string, amount int, reason string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[userID] += amount
	w.credits = append(w.credits, walletOp{UserID: userID, Amount: amount, Reason: reason})
	return w.balances[userID], nil
}

func (w *fakeWallet) creditCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.credits)
}

// waitFor polls a condition until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
