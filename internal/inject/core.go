package inject

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/siphon/backend/internal/config"
	"github.com/siphon/backend/internal/project"
)

// Core bundles the process-wide inject state: validator, registry,
// pending-auth table, watcher notifier, templater and dispatcher. One Core
// is shared by every connection.
type Core struct {
	cfg        *config.Config
	validator  *Validator
	registry   *Registry
	pending    *Pending
	watchers   *Watchers
	templater  *Templater
	dispatcher *Dispatcher
}

func NewCore(cfg *config.Config, store project.Store, templater *Templater) *Core {
	return &Core{
		cfg:        cfg,
		validator:  NewValidator(store),
		registry:   NewRegistry(),
		pending:    NewPending(),
		watchers:   NewWatchers(),
		templater:  templater,
		dispatcher: NewDispatcher(nil),
	}
}

// SetHandlers installs the command API's topic handlers. Must be called
// before connections are accepted.
func (c *Core) SetHandlers(h HandlerTable) {
	c.dispatcher = NewDispatcher(h)
}

func (c *Core) Registry() *Registry { return c.registry }
func (c *Core) Watchers() *Watchers { return c.watchers }

// Authorize completes the pending handshake for sessionID with the
// client-supplied token. Returns false for an unknown or expired id.
func (c *Core) Authorize(sessionID int64, token string, req *http.Request) bool {
	return c.pending.Complete(sessionID, token, req)
}

// Close stops background delivery. Live connections are unaffected.
func (c *Core) Close() {
	c.watchers.Close()
}

// HandleConnection runs the full lifecycle for one upgraded connection:
// validate, handshake, register, dispatch, teardown. Blocks until the
// connection ends.
func (c *Core) HandleConnection(conn *websocket.Conn, r *http.Request) {
	desc, err := c.validator.Validate(context.Background(), r.URL.Path)
	if err != nil {
		if IsRejection(err) {
			if c.cfg.Verbose {
				log.Printf("[inject] %v, terminating", err)
			}
		} else {
			// Store failure, not a client mistake.
			log.Printf("[inject] project lookup failed: %v", err)
		}
		conn.Close()
		return
	}

	newSession(c, conn, desc).run(r)
}
