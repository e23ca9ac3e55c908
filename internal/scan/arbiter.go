// Package scan implements the Scan Arbiter: the single
// scan-lock that guarantees at most one in-flight scan across all callers,
// and the bookkeeping needed to route SCAN_RESULT to either the user's
// callback or the STA FSM's selection pipeline.
package scan

import (
	"context"
	"sync"

	"github.com/nxp-wmsdk/wlcmgr/internal/wcmerrors"
)

// Kind distinguishes who initiated the in-flight scan.
type Kind int

const (
	KindUser Kind = iota
	KindConnect
	KindRoam
	KindReassoc
	KindRRM
	KindHidden // directed hidden-SSID follow-up probe
)

// UserCallback is invoked with the number of scan results once a user scan
// completes (user_scan(params, cb)).
type UserCallback func(count int)

// Lock is the binary semaphore of the "Scan lock": acquired by any
// code path that initiates a scan, released exclusively by the dispatcher
// after scan-result processing completes, never taken on the dispatcher
// goroutine itself.
type Lock struct {
	ch chan struct{}

	mu   sync.Mutex
	held bool
}

// NewLock returns an unheld Lock.
func NewLock() *Lock {
	l := &Lock{ch: make(chan struct{}, 1)}
	l.ch <- struct{}{}
	return l
}

// Acquire blocks indefinitely, or until ctx is canceled, until the lock is
// available.
func (l *Lock) Acquire(ctx context.Context) error {
	select {
	case <-l.ch:
		l.mu.Lock()
		l.held = true
		l.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns the lock, panicking if it was not held — every acquire
// path must release exactly once, and a double
// release would indicate that discipline broke down.
func (l *Lock) Release() {
	l.mu.Lock()
	if !l.held {
		l.mu.Unlock()
		panic("scan: Release called without a matching Acquire")
	}
	l.held = false
	l.mu.Unlock()
	l.ch <- struct{}{}
}

// Held reports whether the lock is currently held, for invariant checks in
// tests and diagnostics.
func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// pending describes the in-flight scan's routing.
type pending struct {
	kind Kind
	cb   UserCallback
}

// Arbiter serializes scan initiation and remembers how to route the next
// SCAN_RESULT event.
type Arbiter struct {
	lock *Lock

	mu      sync.Mutex
	current *pending
}

// NewArbiter creates an Arbiter with an unheld lock.
func NewArbiter() *Arbiter {
	return &Arbiter{lock: NewLock()}
}

// Lock exposes the underlying binary semaphore for callers that need to
// block on it directly.
func (a *Arbiter) Lock() *Lock { return a.lock }

// StartUser acquires the lock and records cb for delivery on the next
// SCAN_RESULT. If a scan is already in flight it blocks until the lock is
// released; it returns wcmerrors State only if ctx is canceled or its
// deadline passes first.
func (a *Arbiter) StartUser(ctx context.Context, cb UserCallback) error {
	if err := a.lock.Acquire(ctx); err != nil {
		return wcmerrors.New("scan.start_user", wcmerrors.KindState, err)
	}
	a.mu.Lock()
	a.current = &pending{kind: KindUser, cb: cb}
	a.mu.Unlock()
	return nil
}

// StartInternal acquires the lock for a non-user-initiated scan (connect,
// roam, reassoc, RRM, hidden-SSID follow-up); results flow to the
// selection pipeline instead of a user callback.
func (a *Arbiter) StartInternal(ctx context.Context, kind Kind) error {
	if kind == KindUser {
		panic("scan: StartInternal called with KindUser")
	}
	if err := a.lock.Acquire(ctx); err != nil {
		return wcmerrors.New("scan.start_internal", wcmerrors.KindState, err)
	}
	a.mu.Lock()
	a.current = &pending{kind: kind}
	a.mu.Unlock()
	return nil
}

// Current returns the in-flight scan's routing info, or ok=false if no
// scan is in flight (lock released with nothing pending).
func (a *Arbiter) Current() (kind Kind, cb UserCallback, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return 0, nil, false
	}
	return a.current.kind, a.current.cb, true
}

// Finish clears the pending routing and releases the lock. Called by the
// dispatcher exactly once per acquired scan, after SCAN_RESULT processing
// completes.
func (a *Arbiter) Finish() {
	a.mu.Lock()
	a.current = nil
	a.mu.Unlock()
	a.lock.Release()
}
