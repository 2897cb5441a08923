package hostsim

import (
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
)

// Encounter is a generated sequence of notifications in delivery order.
type Encounter struct {
	Tokens        []string
	Notifications []Notification
	Walks         int
}

// Generate builds an encounter of cfg.Rounds rounds. In every round each
// token gets the turn and walks once from where it last stood. The encounter
// ends with an encounter_end notification.
func Generate(cfg *Config) Encounter {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	tokens := make([]string, cfg.Tokens)
	positions := make([]Point, cfg.Tokens)
	for i := range tokens {
		tokens[i] = uuid.NewString()
		positions[i] = Point{Y: float64(i) * sceneSpacing}
	}

	active := true
	enc := Encounter{Tokens: tokens}
	for round := 0; round < cfg.Rounds; round++ {
		for i, token := range tokens {
			enc.Notifications = append(enc.Notifications, Notification{
				ID:               uuid.NewString(),
				Type:             TypeTurn,
				CombatantTokenID: token,
			})

			from := positions[i]
			to := walk(rng, from, cfg.WalkLength)
			positions[i] = to
			enc.Notifications = append(enc.Notifications, Notification{
				ID:              uuid.NewString(),
				Type:            TypeMove,
				TokenID:         token,
				From:            &from,
				Waypoints:       []Point{to},
				MovementAction:  "walk",
				EncounterActive: &active,
			})
			enc.Walks++
		}
	}

	enc.Notifications = append(enc.Notifications, Notification{
		ID:   uuid.NewString(),
		Type: TypeEncounterEnd,
	})
	return enc
}

// walk picks a destination at a random heading, at least minWalkLength away.
func walk(rng *rand.Rand, from Point, maxLength float64) Point {
	length := minWalkLength
	if maxLength > minWalkLength {
		length += rng.Float64() * (maxLength - minWalkLength)
	}
	heading := rng.Float64() * 2 * math.Pi
	return Point{
		X: from.X + length*math.Cos(heading),
		Y: from.Y + length*math.Sin(heading),
	}
}

// pickRedeliveries returns a share of ns, chosen at random, to send again.
func pickRedeliveries(ns []Notification, share float64, seed uint64) []Notification {
	if share <= 0 {
		return nil
	}
	rng := rand.New(rand.NewPCG(seed, seed+1))
	var out []Notification
	for _, n := range ns {
		if share >= 1 || rng.Float64() < share {
			out = append(out, n)
		}
	}
	return out
}
