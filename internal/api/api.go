// Package api implements the command surface the dispatcher routes
// inbound session traffic into.
package api

import (
	"encoding/json"
	"log"

	"github.com/siphon/backend/internal/inject"
)

// API interprets dispatched topics against the shared inject core.
type API struct {
	core *inject.Core
}

func New(core *inject.Core) *API {
	return &API{core: core}
}

// Handlers returns the topic table the dispatcher routes by. Topics not
// listed here are ignored upstream.
func (a *API) Handlers() inject.HandlerTable {
	return inject.HandlerTable{
		"i":         a.handleClientInfo,
		"r":         a.handleExecResult,
		"heartbeat": a.handleHeartbeat,
	}
}

// handleClientInfo lets a client refine its own metadata after the core
// payload has run in-page (script-visible platform details beat
// header-sniffed guesses).
func (a *API) handleClientInfo(s *inject.Session, data json.RawMessage) {
	var info struct {
		Platform string `json:"platform"`
		OS       string `json:"os"`
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return
	}
	a.core.Registry().UpdateClient(s.Project().ID, s.Token(), func(c *inject.ClientInfo) {
		if info.Platform != "" {
			c.Platform = info.Platform
		}
		if info.OS != "" {
			c.OS = info.OS
		}
	})
}

// handleExecResult forwards a command execution result to the project's
// watchers.
func (a *API) handleExecResult(s *inject.Session, data json.RawMessage) {
	a.core.Watchers().Notify(inject.Event{
		Type:      inject.EventExecResult,
		ProjectID: s.Project().ID,
		Token:     s.Token(),
		SessionID: s.SessionID(),
		Data:      data,
	})
}

// handleHeartbeat is a keepalive; receipt alone resets the read deadline.
func (a *API) handleHeartbeat(_ *inject.Session, _ json.RawMessage) {
}

// Execute pushes script to every live session under (projectID, token).
// Returns the number of sessions reached.
func (a *API) Execute(projectID int64, token, script string) int {
	agg := a.core.Registry().Lookup(projectID, token)
	if agg == nil {
		return 0
	}
	n := 0
	for _, entry := range agg.Sessions {
		if entry.Execute == nil {
			log.Printf("[api] session %d has no execute binding", entry.ID)
			continue
		}
		entry.Execute(script)
		n++
	}
	return n
}
