package model

// MovementWalk is the only movement action that leaves footprints.
const MovementWalk = "walk"

// Kind identifies a host notification.
type Kind string

const (
	KindMove         Kind = "move"
	KindTurnChange   Kind = "turn"
	KindEncounterEnd Kind = "encounter_end"
)

// MoveNotification is delivered when a token's position changes.
type MoveNotification struct {
	TokenID        string
	Prior          Point   // position before the move
	Waypoints      []Point // traversed waypoints, destination last
	Hidden         bool
	MovementAction string
	Elevation      float64
	// EncounterActive is the host's encounter flag at move time, if sent.
	EncounterActive *bool
}

// Path returns the full travelled path, prior position first.
func (m MoveNotification) Path() Path {
	path := make(Path, 0, len(m.Waypoints)+1)
	path = append(path, m.Prior)
	return append(path, m.Waypoints...)
}

// LeavesFootprints reports whether the move qualifies for footprints:
// visible, walking, on the ground and with at least one waypoint.
func (m MoveNotification) LeavesFootprints() bool {
	return !m.Hidden &&
		m.MovementAction == MovementWalk &&
		m.Elevation <= 0 &&
		len(m.Waypoints) > 0
}

// TurnNotification is delivered when an encounter's current turn changes.
type TurnNotification struct {
	CombatantTokenID string
}

// EncounterEndNotification is delivered when an encounter concludes.
type EncounterEndNotification struct{}

// Notification is the envelope carried on the queue.
type Notification struct {
	ID   string
	Kind Kind
	Move MoveNotification
	Turn TurnNotification
	End  EncounterEndNotification
}
