package inject

import (
	"net/http"
	"sync"
)

// AuthCallback receives the token the client confirmed out-of-band, along
// with the confirmation request for metadata enrichment.
type AuthCallback func(token string, req *http.Request)

// Pending is the process-wide table of connections awaiting their auth
// confirmation, keyed by session id. Each entry fires at most once;
// cancellation on connection close keeps the table leak-free.
type Pending struct {
	mu      sync.Mutex
	waiting map[int64]AuthCallback
}

func NewPending() *Pending {
	return &Pending{waiting: make(map[int64]AuthCallback)}
}

// Put registers the callback for sessionID, replacing any previous entry.
func (p *Pending) Put(sessionID int64, cb AuthCallback) {
	p.mu.Lock()
	p.waiting[sessionID] = cb
	p.mu.Unlock()
}

// Complete removes and fires the callback for sessionID. Returns false
// when no entry exists (unknown id, already completed, or cancelled).
func (p *Pending) Complete(sessionID int64, token string, req *http.Request) bool {
	p.mu.Lock()
	cb, ok := p.waiting[sessionID]
	if ok {
		delete(p.waiting, sessionID)
	}
	p.mu.Unlock()

	if !ok {
		return false
	}
	cb(token, req)
	return true
}

// Cancel drops the entry for sessionID. A later Complete for the same id
// has no effect.
func (p *Pending) Cancel(sessionID int64) {
	p.mu.Lock()
	delete(p.waiting, sessionID)
	p.mu.Unlock()
}

// Len reports the number of connections still awaiting confirmation.
func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiting)
}
