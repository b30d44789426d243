// Package client runs the mirror side of the sync protocol: it keeps a
// replicated engine in lockstep with the host and resyncs itself across
// disconnects and host changes.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/hwidjaja/tabletally/internal/game/domain"
	"github.com/hwidjaja/tabletally/internal/game/engine"
	"github.com/hwidjaja/tabletally/internal/game/event"
	"github.com/hwidjaja/tabletally/internal/platform/discovery"
	perrors "github.com/hwidjaja/tabletally/internal/platform/errors"
	"github.com/hwidjaja/tabletally/internal/platform/timeouts"
	"github.com/hwidjaja/tabletally/internal/transport/wire"
)

// Status describes the client's connection lifecycle.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
	StatusHostLost     Status = "host_lost"
	StatusDisconnected Status = "disconnected"
)

// Config configures a mirror connection.
type Config struct {
	// Addr is the host's address, host:port.
	Addr string
	// JoinCode authenticates against the session.
	JoinCode string
	// ParticipantID reclaims an existing seat when set; blank joins fresh.
	ParticipantID string
	// Meta describes the participant on a fresh join.
	Meta domain.ParticipantMeta

	// OnState runs after every state change, with the new snapshot.
	OnState func(domain.Session)
	// OnStatus runs on connection lifecycle transitions.
	OnStatus func(Status)
	// OnHostLost runs when reconnect attempts are exhausted. It receives
	// the last known state and returns the address to try next; returning
	// false ends the client.
	OnHostLost func(domain.Session) (string, bool)

	// Discovery resolves the join code to a host address when Addr is
	// blank.
	Discovery discovery.Browser

	// ReconnectBaseDelay and ReconnectMaxAttempts override the shared
	// defaults when non-zero.
	ReconnectBaseDelay   time.Duration
	ReconnectMaxAttempts int
}

// Client mirrors one session.
type Client struct {
	cfg    Config
	mirror *engine.Engine

	mu            sync.Mutex
	addr          string
	participantID string
	status        Status
	conn          *websocket.Conn
	encoder       *json.Encoder
	writeMu       sync.Mutex
}

// New builds a client around a fresh mirror engine.
func New(cfg Config) *Client {
	if cfg.ReconnectBaseDelay <= 0 {
		cfg.ReconnectBaseDelay = timeouts.ReconnectBaseDelay
	}
	if cfg.ReconnectMaxAttempts <= 0 {
		cfg.ReconnectMaxAttempts = timeouts.ReconnectMaxAttempts
	}
	return &Client{
		cfg:    cfg,
		mirror: engine.New(engine.Config{}),
		addr:   cfg.Addr,
		status: StatusConnecting,
	}
}

// Status returns the current lifecycle status.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// ParticipantID returns this client's seat id, blank before the first
// welcome.
func (c *Client) ParticipantID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.participantID
}

// Snapshot returns the mirrored state. ok is false before the first sync.
func (c *Client) Snapshot() (domain.Session, bool) {
	if !c.mirror.Loaded() {
		return domain.Session{}, false
	}
	return c.mirror.Snapshot(), true
}

// SetAddr redirects future connection attempts, e.g. after a host handover.
func (c *Client) SetAddr(addr string) {
	c.mu.Lock()
	c.addr = addr
	c.mu.Unlock()
}

// Send submits an event to the host for validation. The result arrives as a
// broadcast envelope or an error frame, never as a direct return.
func (c *Client) Send(ev event.Event) error {
	payload, err := json.Marshal(wire.EventRequestPayload{Event: ev})
	if err != nil {
		return fmt.Errorf("marshal event request: %w", err)
	}
	return c.writeFrame(wire.Frame{Type: wire.TypeEventRequest, Payload: payload})
}

func (c *Client) writeFrame(frame wire.Frame) error {
	c.mu.Lock()
	conn, encoder := c.conn, c.encoder
	c.mu.Unlock()
	if conn == nil {
		return errors.New("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(timeouts.Write))
	return encoder.Encode(frame)
}

func (c *Client) setStatus(status Status) {
	c.mu.Lock()
	changed := c.status != status
	c.status = status
	c.mu.Unlock()
	if changed && c.cfg.OnStatus != nil {
		c.cfg.OnStatus(status)
	}
}

func (c *Client) notifyState(state domain.Session) {
	if c.cfg.OnState != nil {
		c.cfg.OnState(state)
	}
}

// Run connects and mirrors until ctx is canceled or the host is lost for
// good. Reconnects use a linear backoff: base delay times the attempt
// number, up to the attempt cap.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			c.setStatus(StatusDisconnected)
			return err
		}

		err := c.session(ctx)
		if err == nil {
			// Clean shutdown requested by the caller.
			c.setStatus(StatusDisconnected)
			return nil
		}
		if ctx.Err() != nil {
			c.setStatus(StatusDisconnected)
			return ctx.Err()
		}

		attempt++
		if attempt > c.cfg.ReconnectMaxAttempts {
			c.setStatus(StatusHostLost)
			addr, ok := c.hostLost()
			if !ok {
				c.setStatus(StatusDisconnected)
				return perrors.Wrap(perrors.CodeConnectionLost,
					fmt.Sprintf("host unreachable after %d attempts", c.cfg.ReconnectMaxAttempts), err)
			}
			c.SetAddr(addr)
			attempt = 0
			continue
		}

		c.setStatus(StatusReconnecting)
		delay := time.Duration(attempt) * c.cfg.ReconnectBaseDelay
		log.Printf("client: connection lost (%v), retrying in %s (attempt %d/%d)", err, delay, attempt, c.cfg.ReconnectMaxAttempts)
		select {
		case <-ctx.Done():
			c.setStatus(StatusDisconnected)
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *Client) hostLost() (string, bool) {
	if c.cfg.OnHostLost == nil {
		return "", false
	}
	state, ok := c.Snapshot()
	if !ok {
		return "", false
	}
	return c.cfg.OnHostLost(state)
}

// session runs one connection: dial, handshake, then mirror frames until
// the connection drops. A nil return means ctx asked us to stop.
func (c *Client) session(ctx context.Context) error {
	c.mu.Lock()
	addr := c.addr
	c.mu.Unlock()

	if addr == "" && c.cfg.Discovery != nil {
		announcement, ok := c.cfg.Discovery.Lookup(ctx, c.cfg.JoinCode)
		if !ok {
			return fmt.Errorf("no host announced for join code %s", c.cfg.JoinCode)
		}
		addr = announcement.Addr
		c.SetAddr(addr)
	}
	if addr == "" {
		return errors.New("no host address")
	}

	conn, err := dial(addr)
	if err != nil {
		return err
	}
	defer func() {
		_ = conn.Close()
		c.mu.Lock()
		c.conn = nil
		c.encoder = nil
		c.mu.Unlock()
	}()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	c.mu.Lock()
	c.conn = conn
	c.encoder = json.NewEncoder(conn)
	participantID := c.participantID
	if participantID == "" {
		participantID = c.cfg.ParticipantID
	}
	c.mu.Unlock()

	decoder := json.NewDecoder(conn)
	if err := c.handshake(conn, decoder, participantID); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	c.setStatus(StatusConnected)

	for {
		// The host pings on a short interval; a silent link means the
		// host is gone.
		_ = conn.SetReadDeadline(time.Now().Add(timeouts.HostLiveness))

		var frame wire.Frame
		if err := decoder.Decode(&frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		if err := c.handleFrame(frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (c *Client) handshake(conn *websocket.Conn, decoder *json.Decoder, participantID string) error {
	helloPayload, err := json.Marshal(wire.HelloPayload{
		JoinCode:      c.cfg.JoinCode,
		ParticipantID: participantID,
		Meta:          c.cfg.Meta,
	})
	if err != nil {
		return fmt.Errorf("marshal hello: %w", err)
	}

	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(timeouts.Write))
	err = c.encoder.Encode(wire.Frame{Type: wire.TypeHello, Payload: helloPayload})
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("send hello: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(timeouts.Handshake))
	var frame wire.Frame
	if err := decoder.Decode(&frame); err != nil {
		return fmt.Errorf("await welcome: %w", err)
	}

	switch frame.Type {
	case wire.TypeWelcome:
		var welcome wire.WelcomePayload
		if err := json.Unmarshal(frame.Payload, &welcome); err != nil {
			return fmt.Errorf("unmarshal welcome: %w", err)
		}
		c.mirror.LoadSession(welcome.Session)
		c.mu.Lock()
		c.participantID = welcome.ParticipantID
		c.mu.Unlock()
		c.notifyState(welcome.Session)
		return nil
	case wire.TypeStateSnapshot:
		// Reclaim path: the host answers a known seat with a bare snapshot.
		var payload wire.SnapshotPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal snapshot: %w", err)
		}
		c.mirror.LoadSession(payload.Session)
		c.mu.Lock()
		c.participantID = participantID
		c.mu.Unlock()
		c.notifyState(payload.Session)
		return nil
	case wire.TypeError:
		var payload wire.ErrorPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal error: %w", err)
		}
		return fmt.Errorf("handshake rejected: %s (%s)", payload.Message, payload.Code)
	default:
		return fmt.Errorf("unexpected handshake frame %q", frame.Type)
	}
}

func (c *Client) handleFrame(frame wire.Frame) error {
	switch frame.Type {
	case wire.TypeEventBroadcast:
		return c.handleBroadcast(frame)
	case wire.TypeStateSnapshot:
		var payload wire.SnapshotPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal snapshot: %w", err)
		}
		c.mirror.LoadSession(payload.Session)
		c.notifyState(payload.Session)
		return nil
	case wire.TypeParticipantStatus:
		var payload wire.ParticipantStatusPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal status: %w", err)
		}
		if state, ok := c.mirror.SetConnected(payload.ParticipantID, payload.Connected, ""); ok {
			c.notifyState(state)
		}
		return nil
	case wire.TypePing:
		return c.writeFrame(wire.Frame{Type: wire.TypePong, Payload: frame.Payload})
	case wire.TypeHandoverInit:
		var payload wire.HandoverInitPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal handover: %w", err)
		}
		if strings.TrimSpace(payload.Addr) != "" {
			c.SetAddr(payload.Addr)
		}
		// Drop the link; the reconnect loop follows the new host.
		return fmt.Errorf("host handover to %s (epoch %d)", payload.HostID, payload.Epoch)
	case wire.TypeError:
		var payload wire.ErrorPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal error: %w", err)
		}
		// Request rejections are surfaced to the UI layer by the absence
		// of a broadcast; the connection itself stays healthy.
		log.Printf("client: request rejected: %s (%s)", payload.Message, payload.Code)
		return nil
	default:
		log.Printf("client: ignoring unknown frame type %q", frame.Type)
		return nil
	}
}

func (c *Client) handleBroadcast(frame wire.Frame) error {
	var payload wire.EventBroadcastPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal broadcast: %w", err)
	}

	state, err := c.mirror.ApplyEnvelope(payload.Envelope)
	if err == nil {
		c.notifyState(state)
		return nil
	}

	var gap *engine.SeqGapError
	if !errors.As(err, &gap) {
		return fmt.Errorf("apply envelope: %w", err)
	}
	if gap.EpochChanged {
		// A new epoch means a new host lineage; only a fresh handshake
		// snapshot is safe.
		return fmt.Errorf("epoch changed, resync required")
	}
	if gap.Got <= gap.Have {
		// Duplicate delivery, already applied.
		return nil
	}

	log.Printf("client: sequence gap (have %d, got %d), requesting fill", gap.Have, gap.Got)
	fill, err := json.Marshal(wire.EventsSincePayload{After: gap.Have})
	if err != nil {
		return fmt.Errorf("marshal events_since: %w", err)
	}
	return c.writeFrame(wire.Frame{Type: wire.TypeEventsSince, Payload: fill})
}

// dial opens the websocket leg with a bounded TCP dial.
func dial(addr string) (*websocket.Conn, error) {
	origin := "http://" + addr
	config, err := websocket.NewConfig("ws://"+addr+"/ws", origin)
	if err != nil {
		return nil, fmt.Errorf("websocket config: %w", err)
	}
	netConn, err := net.DialTimeout("tcp", addr, timeouts.Dial)
	if err != nil {
		return nil, fmt.Errorf("dial host: %w", err)
	}
	conn, err := websocket.NewClient(config, netConn)
	if err != nil {
		_ = netConn.Close()
		return nil, fmt.Errorf("websocket handshake: %w", err)
	}
	return conn, nil
}
