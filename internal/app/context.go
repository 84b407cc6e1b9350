package app

import (
	"context"
	"errors"
	"fmt"

	"liftbay/internal/config"
	"liftbay/internal/repo"
)

// ResolveConfig loads the shop config from the DB, seeding the default
// config on first use so every command sees a consistent configuration.
func ResolveConfig(ctx context.Context, r repo.Repo) (*config.Config, error) {
	cfg, err := r.GetShopConfig(ctx)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	seed := config.Default()
	if err := r.UpsertShopConfig(ctx, seed); err != nil {
		return nil, fmt.Errorf("seed shop config: %w", err)
	}
	return seed, nil
}
