package storage

import (
	"context"
	"fmt"

	"github.com/hfi/waypoint/internal/config"
)

// New creates the backend selected by cfg
func New(ctx context.Context, cfg config.StorageConfig, paths *config.Paths) (Store, error) {
	switch cfg.Type {
	case "", "file":
		return NewFileStore(paths.Mappings, paths.History), nil
	case "redis":
		return NewRedisStore(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
