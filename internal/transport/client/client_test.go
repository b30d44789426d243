package client

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/websocket"

	"github.com/hwidjaja/tabletally/internal/game/domain"
	"github.com/hwidjaja/tabletally/internal/game/engine"
	"github.com/hwidjaja/tabletally/internal/game/event"
	"github.com/hwidjaja/tabletally/internal/platform/discovery"
	perrors "github.com/hwidjaja/tabletally/internal/platform/errors"
	"github.com/hwidjaja/tabletally/internal/transport/host"
	"github.com/hwidjaja/tabletally/internal/transport/wire"
)

func startHost(t *testing.T) (*host.Server, *engine.Engine, domain.Session, string) {
	t.Helper()
	eng := engine.New(engine.Config{})
	session, err := eng.CreateSession(domain.ParticipantMeta{Name: "Hana"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	server := host.New(eng, nil)
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return server, eng, session, strings.TrimPrefix(srv.URL, "http://")
}

func startClient(t *testing.T, ctx context.Context, cfg Config) (*Client, chan domain.Session, chan Status) {
	t.Helper()
	states := make(chan domain.Session, 64)
	statuses := make(chan Status, 16)
	cfg.OnState = func(state domain.Session) { states <- state }
	cfg.OnStatus = func(status Status) { statuses <- status }
	if cfg.ReconnectBaseDelay == 0 {
		cfg.ReconnectBaseDelay = 10 * time.Millisecond
	}

	c := New(cfg)
	go func() {
		_ = c.Run(ctx)
	}()
	return c, states, statuses
}

func awaitState(t *testing.T, states chan domain.Session, cond func(domain.Session) bool) domain.Session {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case state := <-states:
			if cond(state) {
				return state
			}
		case <-deadline:
			t.Fatal("timed out waiting for state condition")
		}
	}
}

func awaitStatus(t *testing.T, statuses chan Status, want Status) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case status := <-statuses:
			if status == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for status %q", want)
		}
	}
}

// rawPeer is a bare websocket participant used to drive traffic the client
// under test should observe.
type rawPeer struct {
	conn    *websocket.Conn
	decoder *json.Decoder
}

func joinRawPeer(t *testing.T, addr, joinCode, name string) *rawPeer {
	t.Helper()
	origin := "http://" + addr
	conn, err := websocket.Dial("ws://"+addr+"/ws", "", origin)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})

	helloPayload, _ := json.Marshal(wire.HelloPayload{
		JoinCode: joinCode,
		Meta:     domain.ParticipantMeta{Name: name},
	})
	if err := json.NewEncoder(conn).Encode(wire.Frame{Type: wire.TypeHello, Payload: helloPayload}); err != nil {
		t.Fatalf("send hello: %v", err)
	}

	peer := &rawPeer{conn: conn, decoder: json.NewDecoder(conn)}
	frame := peer.read(t)
	if frame.Type != wire.TypeWelcome {
		t.Fatalf("frame type = %q, want welcome", frame.Type)
	}
	return peer
}

func (p *rawPeer) read(t *testing.T) wire.Frame {
	t.Helper()
	_ = p.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var frame wire.Frame
		if err := p.decoder.Decode(&frame); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if frame.Type == wire.TypePing {
			continue
		}
		return frame
	}
}

func (p *rawPeer) send(t *testing.T, ev event.Event) {
	t.Helper()
	payload, _ := json.Marshal(wire.EventRequestPayload{Event: ev})
	if err := json.NewEncoder(p.conn).Encode(wire.Frame{Type: wire.TypeEventRequest, Payload: payload}); err != nil {
		t.Fatalf("send event: %v", err)
	}
}

func TestClientMirrorsHostState(t *testing.T) {
	_, eng, session, addr := startHost(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, states, _ := startClient(t, ctx, Config{
		Addr:     addr,
		JoinCode: session.JoinCode,
		Meta:     domain.ParticipantMeta{Name: "Ben"},
	})

	awaitState(t, states, func(s domain.Session) bool {
		return len(s.Participants) == 2
	})
	if c.ParticipantID() == "" {
		t.Fatal("participant id not assigned")
	}

	peer := joinRawPeer(t, addr, session.JoinCode, "Cal")
	awaitState(t, states, func(s domain.Session) bool {
		return len(s.Participants) == 3
	})

	levelUp, err := (event.Event{Type: event.TypeLevelAdjusted}).WithPayload(event.AdjustedPayload{Delta: 2})
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	peer.send(t, levelUp)

	final := awaitState(t, states, func(s domain.Session) bool {
		for _, p := range s.Participants {
			if p.Name == "Cal" && p.Level == 3 {
				return true
			}
		}
		return false
	})

	if want := eng.Snapshot(); !reflect.DeepEqual(final, want) {
		t.Errorf("mirror diverged from host:\nmirror: %+v\nhost:   %+v", final, want)
	}
}

func TestClientFillsSequenceGaps(t *testing.T) {
	_, eng, session, addr := startHost(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, states, _ := startClient(t, ctx, Config{
		Addr:     addr,
		JoinCode: session.JoinCode,
		Meta:     domain.ParticipantMeta{Name: "Ben"},
	})
	awaitState(t, states, func(s domain.Session) bool {
		return len(s.Participants) == 2
	})

	// Advance the host engine directly so no broadcast reaches the
	// mirror; the next broadcast then arrives with a sequence gap.
	rename, err := (event.Event{
		Type:    event.TypeParticipantRenamed,
		ActorID: session.HostID,
	}).WithPayload(event.RenamedPayload{Name: "Hana the Great"})
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	if _, _, err := eng.ProcessEvent(context.Background(), rename); err != nil {
		t.Fatalf("process event: %v", err)
	}

	joinRawPeer(t, addr, session.JoinCode, "Cal")

	final := awaitState(t, states, func(s domain.Session) bool {
		return len(s.Participants) == 3 && s.Participants[session.HostID].Name == "Hana the Great"
	})
	if final.Seq != eng.Snapshot().Seq {
		t.Errorf("mirror seq = %d, host seq = %d", final.Seq, eng.Snapshot().Seq)
	}
}

func TestClientResolvesHostThroughDiscovery(t *testing.T) {
	_, _, session, addr := startHost(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := discovery.NewRegistry()
	if err := registry.Announce(ctx, discovery.Announcement{
		Label:    "Friday game",
		JoinCode: session.JoinCode,
		Addr:     addr,
	}); err != nil {
		t.Fatalf("announce: %v", err)
	}

	c, states, statuses := startClient(t, ctx, Config{
		JoinCode:  session.JoinCode,
		Meta:      domain.ParticipantMeta{Name: "Ben"},
		Discovery: registry,
	})
	awaitState(t, states, func(s domain.Session) bool {
		return len(s.Participants) == 2
	})
	awaitStatus(t, statuses, StatusConnected)
	if c.ParticipantID() == "" {
		t.Error("participant id not assigned")
	}
}

func TestClientGivesUpWithoutSuccessor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := New(Config{
		Addr:                 "127.0.0.1:1",
		JoinCode:             "ABCD23",
		ReconnectBaseDelay:   time.Millisecond,
		ReconnectMaxAttempts: 2,
	})

	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx)
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Run() should fail when the host is unreachable")
		}
		if code := perrors.CodeOf(err); code != perrors.CodeConnectionLost {
			t.Errorf("CodeOf(err) = %q, want %q", code, perrors.CodeConnectionLost)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not give up")
	}
	if got := c.Status(); got != StatusDisconnected {
		t.Errorf("Status() = %q, want %q", got, StatusDisconnected)
	}
}

func TestClientFollowsHandover(t *testing.T) {
	serverA, engA, session, addrA := startHost(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, states, statuses := startClient(t, ctx, Config{
		Addr:     addrA,
		JoinCode: session.JoinCode,
		Meta:     domain.ParticipantMeta{Name: "Ben"},
	})
	awaitState(t, states, func(s domain.Session) bool {
		return len(s.Participants) == 2
	})
	awaitStatus(t, statuses, StatusConnected)

	// Stand up the successor with the same session at a new epoch.
	handed := engA.Snapshot()
	handed.Epoch++
	engB := engine.New(engine.Config{})
	engB.LoadSession(handed)
	srvB := httptest.NewServer(host.New(engB, nil).Handler())
	t.Cleanup(srvB.Close)
	addrB := strings.TrimPrefix(srvB.URL, "http://")

	serverA.AnnounceHandover(handed.HostID, handed.Epoch, addrB)

	awaitStatus(t, statuses, StatusReconnecting)
	awaitStatus(t, statuses, StatusConnected)

	snapshot, ok := c.Snapshot()
	if !ok {
		t.Fatal("no snapshot after handover")
	}
	if snapshot.Epoch != handed.Epoch {
		t.Errorf("Epoch = %d, want %d", snapshot.Epoch, handed.Epoch)
	}
	if !snapshot.Participants[c.ParticipantID()].Connected {
		t.Error("participant should hold its seat on the successor")
	}
}
