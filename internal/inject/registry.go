package inject

import (
	"sync"
)

// ClientInfo is the enriched connection metadata shared by every session
// under one (project, token) pair.
type ClientInfo struct {
	IP        string            `json:"ip"`
	UserAgent string            `json:"agent"`
	Platform  string            `json:"platform"`
	OS        string            `json:"os"`
	Headers   map[string]string `json:"headers"`
}

// SessionEntry is one live connection under a client aggregate. Execute
// pushes a command script to that specific connection.
type SessionEntry struct {
	ID      int64               `json:"id"`
	Debug   bool                `json:"debug"`
	Execute func(script string) `json:"-"`
}

// ClientAggregate groups all sessions authenticated with one token under
// one project. Created on the first session, destroyed with the last.
type ClientAggregate struct {
	Client   *ClientInfo     `json:"client"`
	Sessions []*SessionEntry `json:"sessions"`
}

// Registry maps project id -> token -> client aggregate. All mutations go
// through one mutex so same-key registrations can never race-create two
// aggregates.
type Registry struct {
	mu       sync.Mutex
	projects map[int64]map[string]*ClientAggregate
}

func NewRegistry() *Registry {
	return &Registry{projects: make(map[int64]map[string]*ClientAggregate)}
}

// Register adds entry under (projectID, token), creating the aggregate
// from client on first registration. Returns a snapshot of the aggregate
// after the append.
func (r *Registry) Register(projectID int64, token string, client *ClientInfo, entry *SessionEntry) *ClientAggregate {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients, ok := r.projects[projectID]
	if !ok {
		clients = make(map[string]*ClientAggregate)
		r.projects[projectID] = clients
	}

	agg, ok := clients[token]
	if !ok {
		agg = &ClientAggregate{Client: client}
		clients[token] = agg
	}
	agg.Sessions = append(agg.Sessions, entry)

	return snapshotAggregate(agg)
}

// Deregister removes the session from (projectID, token). When the last
// session goes, the aggregate goes with it.
func (r *Registry) Deregister(projectID int64, token string, sessionID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients, ok := r.projects[projectID]
	if !ok {
		return
	}
	agg, ok := clients[token]
	if !ok {
		return
	}

	kept := agg.Sessions[:0]
	for _, s := range agg.Sessions {
		if s.ID != sessionID {
			kept = append(kept, s)
		}
	}
	agg.Sessions = kept

	if len(agg.Sessions) == 0 {
		delete(clients, token)
		if len(clients) == 0 {
			delete(r.projects, projectID)
		}
	}
}

// Lookup returns a snapshot of the aggregate for (projectID, token), or
// nil when none exists.
func (r *Registry) Lookup(projectID int64, token string) *ClientAggregate {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients, ok := r.projects[projectID]
	if !ok {
		return nil
	}
	agg, ok := clients[token]
	if !ok {
		return nil
	}
	return snapshotAggregate(agg)
}

// UpdateClient applies fn to the aggregate's client metadata under the
// registry lock. No-op when the aggregate is gone.
func (r *Registry) UpdateClient(projectID int64, token string, fn func(*ClientInfo)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if clients, ok := r.projects[projectID]; ok {
		if agg, ok := clients[token]; ok {
			fn(agg.Client)
		}
	}
}

// Counts reports the number of live projects, clients and sessions.
func (r *Registry) Counts() (projects, clients, sessions int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	projects = len(r.projects)
	for _, tokens := range r.projects {
		clients += len(tokens)
		for _, agg := range tokens {
			sessions += len(agg.Sessions)
		}
	}
	return
}

// snapshotAggregate copies the aggregate so readers never observe later
// mutation. Entries are shared; they are immutable apart from Execute.
func snapshotAggregate(agg *ClientAggregate) *ClientAggregate {
	client := *agg.Client
	out := &ClientAggregate{
		Client:   &client,
		Sessions: make([]*SessionEntry, len(agg.Sessions)),
	}
	copy(out.Sessions, agg.Sessions)
	return out
}
