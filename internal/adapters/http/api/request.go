package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/okian/footsteps/internal/domain/model"
)

// Request limits.
const (
	// maxNotificationBytes bounds a single notification body or frame.
	maxNotificationBytes = 1 << 20
	// maxCoordinate bounds the magnitude of a scene position in pixels.
	maxCoordinate = 1e7
)

// pointRequest is a scene position in pixels.
type pointRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (p *pointRequest) point() model.Point {
	return model.Point{X: *p.X, Y: *p.Y}
}

func (p *pointRequest) check() error {
	if p == nil || p.X == nil || p.Y == nil {
		return errors.New("missing coordinate")
	}
	if math.Abs(*p.X) > maxCoordinate || math.Abs(*p.Y) > maxCoordinate {
		return fmt.Errorf("coordinate out of range (%g, %g)", *p.X, *p.Y)
	}
	return nil
}

// notificationRequest is the wire shape of a host notification, shared by
// POST /notifications and the WebSocket bridge.
type notificationRequest struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	// move
	TokenID         string         `json:"token_id"`
	From            *pointRequest  `json:"from"`
	Waypoints       []pointRequest `json:"waypoints"`
	Hidden          bool           `json:"hidden"`
	MovementAction  string         `json:"movement_action"`
	Elevation       float64        `json:"elevation"`
	EncounterActive *bool          `json:"encounter_active"`

	// turn
	CombatantTokenID string `json:"combatant_token_id"`
}

func (n *notificationRequest) validate() error {
	switch model.Kind(n.Type) {
	case model.KindMove:
		if strings.TrimSpace(n.TokenID) == "" {
			return errors.New("missing token_id")
		}
		if err := n.From.check(); err != nil {
			return fmt.Errorf("from: %w", err)
		}
		for i := range n.Waypoints {
			if err := n.Waypoints[i].check(); err != nil {
				return fmt.Errorf("waypoint %d: %w", i, err)
			}
		}
	case model.KindTurnChange, model.KindEncounterEnd:
		// A turn without a combatant token is accepted; the engine ignores it.
	case "":
		return errors.New("missing type")
	default:
		return fmt.Errorf("unknown type %q", n.Type)
	}
	return nil
}

func (n *notificationRequest) notification() model.Notification {
	out := model.Notification{ID: n.ID, Kind: model.Kind(n.Type)}
	if strings.TrimSpace(out.ID) == "" {
		out.ID = uuid.NewString()
	}

	switch out.Kind {
	case model.KindMove:
		waypoints := make([]model.Point, len(n.Waypoints))
		for i := range n.Waypoints {
			waypoints[i] = n.Waypoints[i].point()
		}
		out.Move = model.MoveNotification{
			TokenID:         n.TokenID,
			Prior:           n.From.point(),
			Waypoints:       waypoints,
			Hidden:          n.Hidden,
			MovementAction:  n.MovementAction,
			Elevation:       n.Elevation,
			EncounterActive: n.EncounterActive,
		}
	case model.KindTurnChange:
		out.Turn = model.TurnNotification{CombatantTokenID: n.CombatantTokenID}
	}
	return out
}

// DecodeNotification reads one JSON notification from r and validates it.
// A missing id is replaced by a random one, which opts the notification out
// of de-duplication. Errors are of kind ErrBadRequest.
func DecodeNotification(r io.Reader) (model.Notification, error) {
	const op = "api.decode_notification"
	var req notificationRequest
	dec := json.NewDecoder(io.LimitReader(r, maxNotificationBytes))
	if err := dec.Decode(&req); err != nil {
		return model.Notification{}, WrapKind(op, ErrBadRequest, err)
	}
	if err := req.validate(); err != nil {
		return model.Notification{}, WrapKind(op, ErrBadRequest, err)
	}
	return req.notification(), nil
}
