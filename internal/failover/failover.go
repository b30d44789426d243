// Package failover decides what happens when the session host disappears.
// Every mirror runs the same deterministic election over its replicated
// state, so all survivors agree on the successor without coordinating.
package failover

import "github.com/hwidjaja/tabletally/internal/game/domain"

// Action is the move a participant makes after declaring the host lost.
type Action string

const (
	// ActionPromote means this participant is the successor and must
	// stand up a host with the adopted state.
	ActionPromote Action = "promote"
	// ActionFollow means another participant is the successor; reconnect
	// to its advertised address.
	ActionFollow Action = "follow"
	// ActionAbort means no successor can be elected; the session ends
	// here for this participant.
	ActionAbort Action = "abort"
)

// Decision is the outcome of a host-loss election.
type Decision struct {
	Action      Action
	SuccessorID string
	// Addr is the successor's advertised address, set for ActionFollow.
	Addr string
	// Adopted is the state the new host starts from, set for
	// ActionPromote: epoch bumped, host reassigned, the old host marked
	// disconnected.
	Adopted domain.Session
}

// Successor elects the replacement host: the first connected participant in
// turn order, excluding the lost one. All mirrors share the same replicated
// order and connectivity view, so the election needs no messages.
func Successor(state domain.Session, excludeID string) (string, bool) {
	for _, participantID := range state.TurnOrder() {
		if participantID == excludeID {
			continue
		}
		if p, ok := state.Participants[participantID]; ok && p.Connected {
			return participantID, true
		}
	}
	return "", false
}

// Decide runs the election from selfID's replica and says what to do next.
func Decide(state domain.Session, selfID string) Decision {
	successorID, ok := Successor(state, state.HostID)
	if !ok {
		return Decision{Action: ActionAbort}
	}

	if successorID == selfID {
		return Decision{
			Action:      ActionPromote,
			SuccessorID: successorID,
			Adopted:     Adopt(state, selfID),
		}
	}

	successor := state.Participants[successorID]
	if successor.NetworkHint == "" {
		// Elected but unreachable; nothing useful to follow.
		return Decision{Action: ActionAbort, SuccessorID: successorID}
	}
	return Decision{
		Action:      ActionFollow,
		SuccessorID: successorID,
		Addr:        successor.NetworkHint,
	}
}

// Adopt produces the state a promoted participant hosts from: a new epoch,
// reassigned host, the lost host marked disconnected, and the new host
// marked connected. Sequence numbering continues from where it was.
func Adopt(state domain.Session, newHostID string) domain.Session {
	adopted := state.Clone()
	adopted.Epoch++

	if old, ok := adopted.Participants[adopted.HostID]; ok {
		old.Connected = false
		adopted.Participants[adopted.HostID] = old
	}
	if self, ok := adopted.Participants[newHostID]; ok {
		self.Connected = true
		adopted.Participants[newHostID] = self
	}
	adopted.HostID = newHostID
	return adopted
}
