// Package hostsim drives a running footsteps service the way a tabletop host
// would: it plays combat rounds of turn changes and walks, redelivers a share
// of them, ends the encounter and checks the resulting footprints.
package hostsim

import "time"

// Config holds configuration for a simulated encounter.
type Config struct {
	BaseURL    string        // Base URL of the service
	Tokens     int           // Combatants in the encounter
	Rounds     int           // Combat rounds to play
	WalkLength float64       // Upper bound of a single walk, in pixels
	Redeliver  float64       // Share of notifications sent a second time, 0..1
	Workers    int           // Concurrent workers for redelivery
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // Wait for placements and fades to finish
	Seed       uint64        // Walk generator seed; 0 picks one at random
	Verbose    bool          // Enable verbose logging
}

// Point is a scene position in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Notification is the wire form of a host notification.
type Notification struct {
	ID               string  `json:"id"`
	Type             string  `json:"type"`
	TokenID          string  `json:"token_id,omitempty"`
	From             *Point  `json:"from,omitempty"`
	Waypoints        []Point `json:"waypoints,omitempty"`
	MovementAction   string  `json:"movement_action,omitempty"`
	EncounterActive  *bool   `json:"encounter_active,omitempty"`
	CombatantTokenID string  `json:"combatant_token_id,omitempty"`
}

// Decal is the subset of a listed decal the simulator inspects.
type Decal struct {
	ID    string  `json:"id"`
	Alpha float64 `json:"alpha"`
	Flags struct {
		OwnerTokenID string `json:"tokenId"`
	} `json:"flags"`
}

// AckResponse represents the response to a submitted notification.
type AckResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds simulation statistics
type Stats struct {
	Notifications      int
	Accepted           int
	Duplicate          int
	Failed             int
	Redelivered        int
	FootprintsInCombat int
	FootprintsAfter    int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
