package inject

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/siphon/backend/internal/project"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	sendBuffer    = 64
	inboundBuffer = 16
)

type authGrant struct {
	token string
	req   *http.Request
}

// Session is one live connection from validation to teardown. The state
// machine is linear: awaiting auth, then authorized and registered, then
// closed. Closing at any point cancels whatever is pending.
type Session struct {
	core *Core
	conn *websocket.Conn
	desc *SessionDescriptor

	token  string
	client *ClientInfo
	entry  *SessionEntry

	inbound chan []byte
	send    chan []byte

	sendMu     sync.Mutex
	sendClosed bool
	registered bool
}

func newSession(core *Core, conn *websocket.Conn, desc *SessionDescriptor) *Session {
	return &Session{
		core:    core,
		conn:    conn,
		desc:    desc,
		inbound: make(chan []byte, inboundBuffer),
		send:    make(chan []byte, sendBuffer),
	}
}

func (s *Session) Project() *project.Project { return s.desc.Project }
func (s *Session) Token() string             { return s.token }
func (s *Session) SessionID() int64          { return s.desc.ID }
func (s *Session) Debug() bool               { return s.desc.Debug }

// Client returns the enriched metadata; nil before authorization.
func (s *Session) Client() *ClientInfo { return s.client }

// Send serializes one {t, d} envelope and queues it for the connection.
// Sends issued in order arrive in order; a send racing teardown is
// silently dropped.
func (s *Session) Send(topic string, data any) {
	env := Envelope{Topic: topic}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			log.Printf("[inject] marshal %s payload: %v", topic, err)
			return
		}
		env.Data = b
	}
	frame, err := json.Marshal(env)
	if err != nil {
		log.Printf("[inject] marshal %s envelope: %v", topic, err)
		return
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.sendClosed {
		return
	}
	select {
	case s.send <- frame:
	default:
		log.Printf("[inject] session %d send queue full, dropping %s", s.desc.ID, topic)
	}
}

func (s *Session) run(r *http.Request) {
	defer s.teardown()
	go s.writePump()
	go s.readPump()

	s.sendAuthDirective()

	authCh := make(chan authGrant, 1)
	s.core.pending.Put(s.desc.ID, func(token string, req *http.Request) {
		authCh <- authGrant{token: token, req: req}
	})
	defer s.core.pending.Cancel(s.desc.ID)

	var timeout <-chan time.Time
	if d := s.core.cfg.Inject.AuthTimeout; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	var grant authGrant
	for granted := false; !granted; {
		select {
		case grant = <-authCh:
			granted = true
		case _, ok := <-s.inbound:
			if !ok {
				// Closed before authorization; the deferred Cancel
				// removes the pending entry.
				return
			}
			// Frames before authorization carry nothing we act on.
		case <-timeout:
			if s.core.cfg.Verbose {
				log.Printf("[inject] session %d unauthenticated after %v, terminating",
					s.desc.ID, s.core.cfg.Inject.AuthTimeout)
			}
			return
		}
	}

	s.token = grant.token
	client, entry := Enrich(r, grant.req, s.desc)
	entry.Execute = func(script string) { s.Send(TopicExecute, script) }
	s.client = client
	s.entry = entry

	agg := s.core.registry.Register(s.desc.Project.ID, s.token, client, entry)
	s.registered = true
	s.core.watchers.Notify(Event{
		Type:      EventConnect,
		ProjectID: s.desc.Project.ID,
		Token:     s.token,
		SessionID: s.desc.ID,
		Client:    agg,
	})

	if s.core.cfg.Debug {
		log.Printf("[inject] new session for project %s from %s",
			s.desc.Project.Name, client.IP)
	}

	s.Send(TopicCore, s.core.templater.Render(s.desc, client))
	if script := s.desc.Project.Autoexecute; script != "" {
		s.Send(TopicExecute, script)
	}

	limiter := NewLimiter(s.core.cfg.RateLimit.Max, s.core.cfg.RateLimit.Window)
	for raw := range s.inbound {
		if !limiter.Allow() {
			s.Send(TopicError, "Too many requests! slow down")
			continue
		}
		s.core.dispatcher.Dispatch(s, raw)
	}
}

// teardown applies the close-path invariants: deregister iff registered,
// disconnect notification after deregistration, then release the
// connection. Safe to reach from any state.
func (s *Session) teardown() {
	if s.registered {
		s.core.registry.Deregister(s.desc.Project.ID, s.token, s.desc.ID)
		s.core.watchers.Notify(Event{
			Type:      EventDisconnect,
			ProjectID: s.desc.Project.ID,
			Token:     s.token,
			SessionID: s.desc.ID,
		})
	}
	s.closeSend()
	s.conn.Close()

	// Unblock the read pump if it is mid-handoff; it exits once the
	// closed connection errors out.
	go func() {
		for range s.inbound {
		}
	}()
}

func (s *Session) closeSend() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if !s.sendClosed {
		s.sendClosed = true
		close(s.send)
	}
}

// sendAuthDirective instructs the client to confirm out-of-band: a
// secondary fetch against /a carrying the session id.
func (s *Session) sendAuthDirective() {
	id := url.QueryEscape(strconv.FormatInt(s.desc.ID, 10))
	script := fmt.Sprintf(
		`var server=ws.url.split("/"),protocol="https://";"ws:"===server[0]&&(protocol="http://"),server=protocol+server[2];var auth=new Image;auth.src=server+"/a?id=%s&z=%d";auth.onload`,
		id, time.Now().UnixMilli())
	s.Send(TopicAuth, script)
}

func (s *Session) readPump() {
	defer close(s.inbound)

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.inbound <- msg
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
