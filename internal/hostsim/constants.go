package hostsim

import "time"

// Wire notification types.
const (
	TypeMove         = "move"
	TypeTurn         = "turn"
	TypeEncounterEnd = "encounter_end"
)

// Submission results.
const (
	resultAccepted  = "accepted"
	resultDuplicate = "duplicate"
	resultFailed    = "failed"
)

// Defaults applied to zero Config fields.
const (
	DefaultTokens     = 4
	DefaultRounds     = 3
	DefaultWalkLength = 500.0
	DefaultWorkers    = 4
	DefaultTimeout    = 10 * time.Second
	DefaultSettle     = 8 * time.Second

	workerChannelMultiplier = 2
	minWalkLength           = 100.0
	sceneSpacing            = 1000.0 // vertical gap between token lanes
)
