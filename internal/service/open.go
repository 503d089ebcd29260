package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hfi/waypoint/internal/audit"
	"github.com/hfi/waypoint/internal/config"
	"github.com/hfi/waypoint/internal/errs"
	"github.com/hfi/waypoint/internal/metrics"
	"github.com/hfi/waypoint/internal/storage"
)

// Open builds a Service from the resolved paths and loaded configuration
func Open(ctx context.Context, paths *config.Paths, cfg *config.Config, log zerolog.Logger) (*Service, error) {
	if err := paths.EnsureRoot(); err != nil {
		return nil, errs.Internal(err, "failed to prepare config root")
	}

	store, err := storage.New(ctx, cfg.Storage, paths)
	if err != nil {
		return nil, errs.Internal(err, "failed to open %s storage", cfg.Storage.Type)
	}

	opts := Options{
		Store:        store,
		Logger:       log,
		InvocationID: uuid.NewString(),
	}
	if cfg.Lock.Enabled {
		opts.LockPath = paths.Lock
	}

	if cfg.Logging.Audit.Enabled {
		a, err := audit.NewLogger(auditConfig(cfg.Logging.Audit, paths.Root))
		if err != nil {
			return nil, releaseStore(store, errs.Internal(err, "failed to open audit log"))
		}
		opts.Audit = a
	}

	if cfg.Metrics.Enabled {
		opts.Metrics = metrics.New()
		opts.MetricsTextfile = config.ResolveFile(paths.Root, cfg.Metrics.Textfile)
	}

	desc := cfg.Storage.Type
	if s, ok := store.(fmt.Stringer); ok {
		desc = s.String()
	}
	log.Debug().
		Str("root", paths.Root).
		Str("storage", desc).
		Str("invocation_id", opts.InvocationID).
		Bool("lock", opts.LockPath != "").
		Msg("service opened")

	return New(opts), nil
}

// releaseStore closes a store that Open will not hand out, keeping err's kind
func releaseStore(store storage.Store, err error) error {
	if cerr := store.Close(); cerr != nil {
		return errors.Join(err, fmt.Errorf("close store: %w", cerr))
	}
	return err
}

func auditConfig(c config.AuditConfig, root string) audit.Config {
	out := c.Output
	switch out {
	case "stdout", "stderr":
	default:
		out = config.ResolveFile(root, out)
	}
	return audit.Config{
		Enabled: c.Enabled,
		Level:   c.Level,
		Output:  out,
		Format:  c.Format,
	}
}
