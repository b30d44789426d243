// Package engine implements the authoritative session state machine:
// event validation, deterministic application, sequencing, and the
// in-memory envelope log used for gap fills.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hwidjaja/tabletally/internal/game/domain"
	"github.com/hwidjaja/tabletally/internal/game/event"
	"github.com/hwidjaja/tabletally/internal/platform/id"
	perrors "github.com/hwidjaja/tabletally/internal/platform/errors"
)

const defaultLogLimit = 512

// Config tunes engine behavior.
type Config struct {
	// Levels clamps participant levels; zero value falls back to 1..10.
	Levels domain.LevelBounds
	// MaxParticipants caps the room size; zero falls back to 6.
	MaxParticipants int
	// LogLimit bounds the retained envelope log; zero falls back to 512.
	LogLimit int
}

func (c Config) withDefaults() Config {
	if c.Levels == (domain.LevelBounds{}) {
		c.Levels = domain.DefaultLevelBounds
	}
	if c.MaxParticipants <= 0 {
		c.MaxParticipants = domain.MaxParticipants
	}
	if c.LogLimit <= 0 {
		c.LogLimit = defaultLogLimit
	}
	return c
}

// Engine owns one session's state. ProcessEvent is the single mutating entry
// point; validation-then-application runs as one serialized critical section
// so validation decisions are never judged against a state that changes
// before application.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	state  domain.Session
	log    []event.Envelope
	loaded bool

	clock  func() time.Time
	newID  func() (string, error)
	tracer trace.Tracer
}

// New creates an engine with default dependencies and no session loaded.
func New(cfg Config) *Engine {
	return &Engine{
		cfg:    cfg.withDefaults(),
		clock:  time.Now,
		newID:  id.New,
		tracer: otel.Tracer("tabletally/engine"),
	}
}

// CreateSession allocates a new session with the creator seeded as sole
// participant and host. The session starts in the lobby at seq 0.
func (e *Engine) CreateSession(meta domain.ParticipantMeta) (domain.Session, error) {
	sessionID, err := e.newID()
	if err != nil {
		return domain.Session{}, fmt.Errorf("generate session id: %w", err)
	}
	creatorID, err := e.newID()
	if err != nil {
		return domain.Session{}, fmt.Errorf("generate participant id: %w", err)
	}
	joinCode, err := domain.NewJoinCode()
	if err != nil {
		return domain.Session{}, fmt.Errorf("generate join code: %w", err)
	}

	now := e.clock().UTC()
	creator := domain.Participant{
		ID:          creatorID,
		Name:        meta.Name,
		AvatarID:    meta.AvatarID,
		Gender:      meta.Gender,
		Level:       e.cfg.Levels.Min,
		Connected:   true,
		NetworkHint: meta.NetworkHint,
		JoinedAt:    now,
	}

	session := domain.Session{
		ID:           sessionID,
		JoinCode:     joinCode,
		Phase:        domain.PhaseLobby,
		HostID:       creatorID,
		Participants: map[string]domain.Participant{creatorID: creator},
		JoinOrder:    []string{creatorID},
		Races:        map[string]domain.CatalogEntry{},
		Classes:      map[string]domain.CatalogEntry{},
		Levels:       e.cfg.Levels,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	e.mu.Lock()
	e.state = session
	e.log = nil
	e.loaded = true
	e.mu.Unlock()

	return session.Clone(), nil
}

// LoadSession replaces current state wholesale. The input is trusted: no
// validation runs. Used for resume-from-persistence and for adopting state
// during host failover.
func (e *Engine) LoadSession(session domain.Session) {
	e.mu.Lock()
	e.state = session.Clone()
	e.log = nil
	e.loaded = true
	e.mu.Unlock()
}

// Snapshot returns a deep copy of current state.
func (e *Engine) Snapshot() domain.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Loaded reports whether the engine holds a session.
func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// ProcessEvent validates ev against current state and, on success, applies
// it, increments seq by exactly one, appends the envelope to the log, and
// returns the new state with the envelope. On validation failure nothing
// changes: no mutation, no seq increment.
func (e *Engine) ProcessEvent(ctx context.Context, ev event.Event) (domain.Session, event.Envelope, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, span := e.tracer.Start(ctx, "engine.ProcessEvent",
		trace.WithAttributes(
			attribute.String("event.type", string(ev.Type)),
			attribute.String("event.domain", ev.Type.Domain()),
			attribute.String("event.actor_id", ev.ActorID),
		))
	defer span.End()

	if !e.loaded {
		return domain.Session{}, event.Envelope{}, perrors.New(perrors.CodeSessionNotFound, "no session loaded")
	}

	if err := validate(e.cfg, e.state, ev); err != nil {
		span.SetAttributes(attribute.String("event.rejected", string(err.Code)))
		return domain.Session{}, event.Envelope{}, err
	}

	enriched, err := e.enrich(e.state, ev)
	if err != nil {
		return domain.Session{}, event.Envelope{}, err
	}

	next := e.state.Clone()
	if err := apply(&next, enriched); err != nil {
		return domain.Session{}, event.Envelope{}, err
	}

	next.Seq = e.state.Seq + 1
	next.UpdatedAt = enriched.Timestamp.UTC()

	envelope := event.Envelope{
		SessionID: next.ID,
		Epoch:     next.Epoch,
		Seq:       next.Seq,
		Event:     enriched,
	}

	e.state = next
	e.log = append(e.log, envelope)
	if len(e.log) > e.cfg.LogLimit {
		e.log = e.log[len(e.log)-e.cfg.LogLimit:]
	}

	span.SetAttributes(attribute.Int64("event.seq", int64(envelope.Seq)))
	return next.Clone(), envelope, nil
}

// ApplyEnvelope replays a broadcast envelope on a non-authoritative mirror.
// The same validate-and-apply transform runs, so mirrored state is always
// derivable from the authoritative one. It returns ErrSeqGap when the
// envelope does not continue the mirror's sequence.
func (e *Engine) ApplyEnvelope(env event.Envelope) (domain.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return domain.Session{}, perrors.New(perrors.CodeSessionNotFound, "no session loaded")
	}
	if env.Epoch != e.state.Epoch {
		return domain.Session{}, &SeqGapError{Have: e.state.Seq, Got: env.Seq, EpochChanged: true}
	}
	if env.Seq != e.state.Seq+1 {
		return domain.Session{}, &SeqGapError{Have: e.state.Seq, Got: env.Seq}
	}

	if err := validate(e.cfg, e.state, env.Event); err != nil {
		return domain.Session{}, err
	}

	next := e.state.Clone()
	if err := apply(&next, env.Event); err != nil {
		return domain.Session{}, err
	}
	next.Seq = env.Seq
	next.UpdatedAt = env.Event.Timestamp.UTC()

	e.state = next
	return next.Clone(), nil
}

// EventsSince returns all logged envelopes with seq greater than after, in
// log order. The second result is false when the retained log no longer
// covers the requested gap; callers should fall back to a snapshot.
func (e *Engine) EventsSince(after uint64) ([]event.Envelope, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if after >= e.state.Seq {
		return nil, true
	}
	if len(e.log) == 0 || e.log[0].Seq > after+1 {
		return nil, false
	}

	envelopes := make([]event.Envelope, 0, e.state.Seq-after)
	for _, env := range e.log {
		if env.Seq > after {
			envelopes = append(envelopes, env)
		}
	}
	return envelopes, true
}

// SetConnected flips a participant's connectivity flag outside the event
// pipeline. Connectivity is presentation state, not session-of-record state,
// so it carries no sequence number.
func (e *Engine) SetConnected(participantID string, connected bool, networkHint string) (domain.Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.state.Participants[participantID]
	if !ok {
		return domain.Session{}, false
	}
	p.Connected = connected
	if networkHint != "" {
		p.NetworkHint = networkHint
	}
	e.state.Participants[participantID] = p
	return e.state.Clone(), true
}

// AtMaxLevel returns the ids of participants at or above the session's max
// level. Reaching max level is a win signal only: the session does not end
// until the host issues an explicit session.ended event.
func (e *Engine) AtMaxLevel() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Loaded sessions carry their own bounds; a mirror or promoted host
	// built with a default config must judge by them, not by its config.
	bounds := e.state.Levels
	if bounds == (domain.LevelBounds{}) {
		bounds = e.cfg.Levels
	}

	var winners []string
	for _, participantID := range e.state.TurnOrder() {
		if p, ok := e.state.Participants[participantID]; ok && p.Level >= bounds.Max {
			winners = append(winners, participantID)
		}
	}
	return winners
}

// SeqGapError reports that a mirror cannot apply an envelope in order.
type SeqGapError struct {
	Have         uint64
	Got          uint64
	EpochChanged bool
}

// Error implements the error interface.
func (e *SeqGapError) Error() string {
	if e.EpochChanged {
		return fmt.Sprintf("epoch changed at seq %d", e.Got)
	}
	return fmt.Sprintf("sequence gap: have %d, got %d", e.Have, e.Got)
}
