package hostsim

import (
	"context"
	"fmt"

	"github.com/okian/footsteps/pkg/logger"
)

// verifyInCombat checks that every token still has footprints on the scene
// while the encounter is running. Returns the total footprint count.
func verifyInCombat(ctx context.Context, client *HTTPClient, tokens []string) (int, error) {
	all, err := client.decals(ctx, "")
	if err != nil {
		return 0, err
	}

	for _, token := range tokens {
		owned, err := client.decals(ctx, token)
		if err != nil {
			return len(all), err
		}
		if len(owned) == 0 {
			return len(all), fmt.Errorf("%w: token %s has no footprints during combat", ErrVerification, token)
		}
		logger.Get().Debug(ctx, "token footprints", logger.String("token", token), logger.Int("count", len(owned)))
	}
	return len(all), nil
}

// verifyCleared checks that no footprint survives the end of the encounter.
func verifyCleared(ctx context.Context, client *HTTPClient) (int, error) {
	all, err := client.decals(ctx, "")
	if err != nil {
		return 0, err
	}
	if len(all) > 0 {
		return len(all), fmt.Errorf("%w: %d footprints left after the encounter ended", ErrVerification, len(all))
	}
	return 0, nil
}
