// Package host serves the authoritative side of the sync protocol. One
// process runs it per session; every other participant connects as a mirror.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/hwidjaja/tabletally/internal/game/domain"
	"github.com/hwidjaja/tabletally/internal/game/engine"
	"github.com/hwidjaja/tabletally/internal/game/event"
	perrors "github.com/hwidjaja/tabletally/internal/platform/errors"
	"github.com/hwidjaja/tabletally/internal/platform/timeouts"
	"github.com/hwidjaja/tabletally/internal/storage"
	"github.com/hwidjaja/tabletally/internal/transport/wire"
)

// Server accepts mirror connections, funnels their event requests through
// the engine, and fans committed envelopes back out.
type Server struct {
	engine *engine.Engine
	store  storage.ResumeStore

	mu          sync.Mutex
	peers       map[string]*wsPeer
	handingOver bool
}

// New wraps an engine with a sync server. store may be nil to disable
// resume persistence.
func New(eng *engine.Engine, store storage.ResumeStore) *Server {
	return &Server{
		engine: eng,
		store:  store,
		peers:  make(map[string]*wsPeer),
	}
}

// outboundQueueSize bounds the frames buffered per peer. A peer stalled past
// it is dropped; reconnecting with a snapshot recovers its state.
const outboundQueueSize = 64

var errPeerClosed = errors.New("peer connection closed")

// wsPeer decouples frame writes from their callers: frames are queued and a
// dedicated writer drains them, so one stalled connection never holds up
// fanout to the rest. The single writer keeps per-peer frame order intact.
type wsPeer struct {
	conn *websocket.Conn

	mu     sync.Mutex
	out    chan wire.Frame
	closed bool
}

func newWSPeer(conn *websocket.Conn) *wsPeer {
	p := &wsPeer{conn: conn, out: make(chan wire.Frame, outboundQueueSize)}
	go p.writeLoop()
	return p
}

func (p *wsPeer) writeLoop() {
	encoder := json.NewEncoder(p.conn)
	for frame := range p.out {
		_ = p.conn.SetWriteDeadline(time.Now().Add(timeouts.Write))
		if err := encoder.Encode(frame); err != nil {
			// The peer's read loop notices the closed connection and
			// deregisters it.
			_ = p.conn.Close()
		}
	}
}

func (p *wsPeer) writeFrame(frame wire.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errPeerClosed
	}
	select {
	case p.out <- frame:
		return nil
	default:
		// Stalled past the queue depth; cut the connection loose.
		p.closed = true
		close(p.out)
		_ = p.conn.Close()
		return errPeerClosed
	}
}

// close stops the writer once its queue drains. Safe to call repeatedly.
func (p *wsPeer) close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.out)
	}
	p.mu.Unlock()
	_ = p.conn.Close()
}

// Handler returns the HTTP routes: /up for liveness probes and /ws for the
// sync protocol.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	wsHandler := websocket.Handler(s.handleConn)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})

	return mux
}

// Run serves the handler on addr until ctx is canceled, sending heartbeat
// pings for the lifetime of the server.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	go s.heartbeatLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(timeouts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.broadcast(wire.Frame{
				Type:    wire.TypePing,
				Payload: wire.MustJSON(wire.PingPayload{SentAt: time.Now().UnixMilli()}),
			}, "")
		}
	}
}

func (s *Server) handleConn(conn *websocket.Conn) {
	decoder := json.NewDecoder(conn)
	peer := newWSPeer(conn)
	defer peer.close()

	participantID, ok := s.handshake(decoder, peer, conn)
	if !ok {
		return
	}

	s.register(participantID, peer)
	defer s.dropPeer(participantID, peer)

	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var frame wire.Frame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = peer.writeFrame(wire.ErrorFrame("", perrors.New(perrors.CodeMalformedMessage, "invalid frame payload")))
			if decodeErrors >= wire.MaxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > wire.MaxFramePayloadBytes {
			_ = peer.writeFrame(wire.ErrorFrame(frame.RequestID, perrors.New(perrors.CodeMalformedMessage, "payload too large")))
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > wire.MaxFramesPerSecond {
			_ = peer.writeFrame(wire.ErrorFrame(frame.RequestID, perrors.New(perrors.CodeMalformedMessage, "rate limit exceeded")))
			return
		}

		switch frame.Type {
		case wire.TypeEventRequest:
			s.handleEventRequest(conn.Request().Context(), participantID, peer, frame)
		case wire.TypeEventsSince:
			s.handleEventsSince(peer, frame)
		case wire.TypePong:
			// Liveness acknowledged; nothing to do on the host side.
		default:
			_ = peer.writeFrame(wire.ErrorFrame(frame.RequestID, perrors.New(perrors.CodeMalformedMessage, "unsupported frame type")))
		}
	}
}

// handshake reads the hello frame and resolves the connection identity:
// either a brand new participant joining through the lobby or an existing
// one reclaiming its seat.
func (s *Server) handshake(decoder *json.Decoder, peer *wsPeer, conn *websocket.Conn) (string, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(timeouts.Handshake))
	defer func() {
		_ = conn.SetReadDeadline(time.Time{})
	}()

	var frame wire.Frame
	if err := decoder.Decode(&frame); err != nil {
		return "", false
	}
	if frame.Type != wire.TypeHello {
		_ = peer.writeFrame(wire.ErrorFrame(frame.RequestID, perrors.New(perrors.CodeMalformedMessage, "hello frame required")))
		return "", false
	}

	var hello wire.HelloPayload
	if err := json.Unmarshal(frame.Payload, &hello); err != nil {
		_ = peer.writeFrame(wire.ErrorFrame(frame.RequestID, perrors.New(perrors.CodeMalformedMessage, "invalid hello payload")))
		return "", false
	}

	if !s.engine.Loaded() {
		_ = peer.writeFrame(wire.ErrorFrame(frame.RequestID, perrors.New(perrors.CodeSessionNotFound, "no session is being hosted")))
		return "", false
	}

	snapshot := s.engine.Snapshot()
	if domain.NormalizeJoinCode(hello.JoinCode) != snapshot.JoinCode {
		_ = peer.writeFrame(wire.ErrorFrame(frame.RequestID, perrors.New(perrors.CodeInvalidJoinCode, "join code does not match this session")))
		return "", false
	}

	if participantID := strings.TrimSpace(hello.ParticipantID); participantID != "" {
		return s.handleReclaim(peer, frame.RequestID, participantID, hello)
	}
	return s.handleJoin(conn.Request().Context(), peer, frame.RequestID, hello)
}

func (s *Server) handleReclaim(peer *wsPeer, requestID, participantID string, hello wire.HelloPayload) (string, bool) {
	state, ok := s.engine.SetConnected(participantID, true, hello.Meta.NetworkHint)
	if !ok {
		_ = peer.writeFrame(wire.ErrorFrame(requestID, perrors.New(perrors.CodeParticipantNotFound, "unknown participant id")))
		return "", false
	}

	// Reconnects always get the full snapshot; a gap fill would miss
	// connectivity changes that never entered the event log. The seat is
	// already known on both sides, so no welcome is issued.
	if err := peer.writeFrame(wire.Frame{
		Type:      wire.TypeStateSnapshot,
		RequestID: requestID,
		Payload:   wire.MustJSON(wire.SnapshotPayload{Session: state}),
	}); err != nil {
		return "", false
	}

	s.broadcast(statusFrame(participantID, true), participantID)
	log.Printf("host: participant %s reclaimed its seat", participantID)
	return participantID, true
}

func (s *Server) handleJoin(ctx context.Context, peer *wsPeer, requestID string, hello wire.HelloPayload) (string, bool) {
	snapshot := s.engine.Snapshot()
	joinEvent, err := event.Event{
		Type:    event.TypeParticipantJoined,
		ActorID: snapshot.HostID,
	}.WithPayload(event.JoinedPayload{Meta: hello.Meta})
	if err != nil {
		_ = peer.writeFrame(wire.ErrorFrame(requestID, err))
		return "", false
	}

	state, envelope, err := s.engine.ProcessEvent(ctx, joinEvent)
	if err != nil {
		_ = peer.writeFrame(wire.ErrorFrame(requestID, err))
		return "", false
	}

	var joined event.JoinedPayload
	if err := envelope.Event.DecodePayload(&joined); err != nil {
		_ = peer.writeFrame(wire.ErrorFrame(requestID, err))
		return "", false
	}

	if err := peer.writeFrame(wire.Frame{
		Type:      wire.TypeWelcome,
		RequestID: requestID,
		Payload: wire.MustJSON(wire.WelcomePayload{
			ParticipantID: joined.ParticipantID,
			HostID:        state.HostID,
			Session:       state,
		}),
	}); err != nil {
		return "", false
	}

	// The welcome snapshot already contains the join, so the new peer is
	// excluded from the envelope fanout.
	s.broadcast(broadcastFrame(envelope), joined.ParticipantID)
	s.persist(ctx, state)
	log.Printf("host: participant %s joined as %q", joined.ParticipantID, hello.Meta.Name)
	return joined.ParticipantID, true
}

func (s *Server) handleEventRequest(ctx context.Context, participantID string, peer *wsPeer, frame wire.Frame) {
	var payload wire.EventRequestPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = peer.writeFrame(wire.ErrorFrame(frame.RequestID, perrors.New(perrors.CodeMalformedMessage, "invalid event request payload")))
		return
	}

	s.mu.Lock()
	handingOver := s.handingOver
	s.mu.Unlock()
	if handingOver {
		_ = peer.writeFrame(wire.ErrorFrame(frame.RequestID, perrors.New(perrors.CodeHandoverInProgress, "session is moving to a new host")))
		return
	}

	// Identity comes from the connection, never from the payload.
	ev := payload.Event
	ev.ActorID = participantID

	state, envelope, err := s.engine.ProcessEvent(ctx, ev)
	if err != nil {
		_ = peer.writeFrame(wire.ErrorFrame(frame.RequestID, err))
		return
	}

	s.broadcast(broadcastFrame(envelope), "")
	s.persist(ctx, state)

	if winners := s.engine.AtMaxLevel(); len(winners) > 0 {
		log.Printf("host: participants at max level: %v", winners)
	}
}

func (s *Server) handleEventsSince(peer *wsPeer, frame wire.Frame) {
	var payload wire.EventsSincePayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = peer.writeFrame(wire.ErrorFrame(frame.RequestID, perrors.New(perrors.CodeMalformedMessage, "invalid events_since payload")))
		return
	}

	envelopes, ok := s.engine.EventsSince(payload.After)
	if !ok {
		// The retained log no longer covers the gap; a snapshot resets
		// the mirror instead.
		_ = peer.writeFrame(wire.Frame{
			Type:      wire.TypeStateSnapshot,
			RequestID: frame.RequestID,
			Payload:   wire.MustJSON(wire.SnapshotPayload{Session: s.engine.Snapshot()}),
		})
		return
	}
	for _, envelope := range envelopes {
		_ = peer.writeFrame(broadcastFrame(envelope))
	}
}

func (s *Server) register(participantID string, peer *wsPeer) {
	s.mu.Lock()
	previous := s.peers[participantID]
	s.peers[participantID] = peer
	s.mu.Unlock()
	if previous != nil && previous != peer {
		previous.close()
	}
}

// dropPeer runs when a connection ends. Only the registered peer clears the
// seat: a reconnect may already have replaced it.
func (s *Server) dropPeer(participantID string, peer *wsPeer) {
	s.mu.Lock()
	current := s.peers[participantID]
	if current == peer {
		delete(s.peers, participantID)
	}
	s.mu.Unlock()
	if current != peer {
		return
	}

	if _, ok := s.engine.SetConnected(participantID, false, ""); ok {
		s.broadcast(statusFrame(participantID, false), participantID)
		log.Printf("host: participant %s disconnected", participantID)
	}
}

// broadcast writes a frame to every registered peer except the one named by
// exclude. Write failures are left to each peer's read loop to clean up.
func (s *Server) broadcast(frame wire.Frame, exclude string) {
	s.mu.Lock()
	targets := make([]*wsPeer, 0, len(s.peers))
	for participantID, peer := range s.peers {
		if participantID == exclude {
			continue
		}
		targets = append(targets, peer)
	}
	s.mu.Unlock()

	for _, peer := range targets {
		_ = peer.writeFrame(frame)
	}
}

// AnnounceHandover tells every connected mirror the session moved to a new
// host at a new epoch. From this point the server rejects further event
// requests: the authority is already on its way elsewhere.
func (s *Server) AnnounceHandover(hostID string, epoch uint64, addr string) {
	s.mu.Lock()
	s.handingOver = true
	s.mu.Unlock()

	s.broadcast(wire.Frame{
		Type: wire.TypeHandoverInit,
		Payload: wire.MustJSON(wire.HandoverInitPayload{
			HostID: hostID,
			Epoch:  epoch,
			Addr:   addr,
		}),
	}, "")
}

func (s *Server) persist(ctx context.Context, state domain.Session) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, state); err != nil {
		log.Printf("host: failed to persist session snapshot: %v", err)
	}
}

func broadcastFrame(envelope event.Envelope) wire.Frame {
	return wire.Frame{
		Type:    wire.TypeEventBroadcast,
		Payload: wire.MustJSON(wire.EventBroadcastPayload{Envelope: envelope}),
	}
}

func statusFrame(participantID string, connected bool) wire.Frame {
	return wire.Frame{
		Type: wire.TypeParticipantStatus,
		Payload: wire.MustJSON(wire.ParticipantStatusPayload{
			ParticipantID: participantID,
			Connected:     connected,
		}),
	}
}
