// Package wire defines the JSON frame protocol spoken between the session
// host and its mirrors over a websocket connection.
package wire

import (
	"encoding/json"
	"log"

	"github.com/hwidjaja/tabletally/internal/game/domain"
	"github.com/hwidjaja/tabletally/internal/game/event"
	perrors "github.com/hwidjaja/tabletally/internal/platform/errors"
)

// Frame limits, enforced by the host on every inbound frame.
const (
	MaxFramePayloadBytes   = 32 * 1024
	MaxFramesPerSecond     = 40
	MaxDecodeErrorsPerConn = 3
)

// Frame is the outer envelope for every message in either direction.
type Frame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Frame types. sync.hello through sync.events_since flow client to host;
// the rest flow host to client.
const (
	TypeHello             = "sync.hello"
	TypeEventRequest      = "sync.event_request"
	TypeEventsSince       = "sync.events_since"
	TypePong              = "sync.pong"
	TypeWelcome           = "sync.welcome"
	TypeStateSnapshot     = "sync.state_snapshot"
	TypeEventBroadcast    = "sync.event_broadcast"
	TypeParticipantStatus = "sync.participant_status"
	TypePing              = "sync.ping"
	TypeHandoverInit      = "sync.handover_init"
	TypeError             = "sync.error"
)

// HelloPayload opens a connection. A blank ParticipantID with Meta set asks
// to join as a new participant; a known ParticipantID reclaims an existing
// seat.
type HelloPayload struct {
	JoinCode      string                 `json:"join_code"`
	ParticipantID string                 `json:"participant_id,omitempty"`
	Meta          domain.ParticipantMeta `json:"meta,omitempty"`
}

// WelcomePayload acknowledges a hello and carries the full current state.
type WelcomePayload struct {
	ParticipantID string         `json:"participant_id"`
	HostID        string         `json:"host_id"`
	Session       domain.Session `json:"session"`
}

// SnapshotPayload replaces the mirror's state wholesale.
type SnapshotPayload struct {
	Session domain.Session `json:"session"`
}

// EventRequestPayload asks the host to validate and apply one event. The
// actor id is taken from the connection identity, never from the payload.
type EventRequestPayload struct {
	Event event.Event `json:"event"`
}

// EventBroadcastPayload carries one committed envelope to every mirror.
type EventBroadcastPayload struct {
	Envelope event.Envelope `json:"envelope"`
}

// EventsSincePayload asks for all envelopes after a known sequence number.
type EventsSincePayload struct {
	After uint64 `json:"after"`
}

// ParticipantStatusPayload announces a connectivity change.
type ParticipantStatusPayload struct {
	ParticipantID string `json:"participant_id"`
	Connected     bool   `json:"connected"`
}

// HandoverInitPayload tells mirrors the session moved to a new host.
type HandoverInitPayload struct {
	HostID string `json:"host_id"`
	Epoch  uint64 `json:"epoch"`
	Addr   string `json:"addr,omitempty"`
}

// PingPayload carries the sender's clock; pongs echo it back unchanged so
// either side can measure round-trip latency.
type PingPayload struct {
	SentAt int64 `json:"sent_at"`
}

// ErrorPayload reports a rejected request back to its sender only.
type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// ErrorFrame builds an error frame from a platform error.
func ErrorFrame(requestID string, err error) Frame {
	code := perrors.CodeOf(err)
	return Frame{
		Type:      TypeError,
		RequestID: requestID,
		Payload: MustJSON(ErrorPayload{
			Code:      string(code),
			Message:   err.Error(),
			Retryable: code.Retryable(),
		}),
	}
}

// MustJSON marshals a frame payload, logging instead of panicking on the
// unreachable failure path.
func MustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("sync: failed to marshal frame payload: %v", err)
		return nil
	}
	return b
}
