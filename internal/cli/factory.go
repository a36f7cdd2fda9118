package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/convo"
	"github.com/aretw0/convo/internal/config"
	"github.com/aretw0/convo/pkg/adapters/file"
	"github.com/aretw0/convo/pkg/adapters/fs"
	"github.com/aretw0/convo/pkg/adapters/memory"
	"github.com/aretw0/convo/pkg/adapters/redis"
	"github.com/aretw0/convo/pkg/observability"
	"github.com/aretw0/convo/pkg/persistence/middleware"
	"github.com/aretw0/convo/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Stack is a fully wired Bot and the resources behind it.
type Stack struct {
	Bot      *convo.Bot
	Loader   *fs.Loader
	Store    ports.StateStore
	Registry *prometheus.Registry

	closers []func() error
}

// Close releases the store connections.
func (s *Stack) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// StoreHandle is an opened session store. Locker is set for backends shared
// between processes.
type StoreHandle struct {
	Store  ports.StateStore
	Locker ports.DistributedLocker
	Close  func() error
}

// OpenStore opens the configured backend and wraps it with the masking and
// encryption middlewares when configured. Masking runs before encryption.
func OpenStore(ctx context.Context, cfg *config.Config) (*StoreHandle, error) {
	h := &StoreHandle{Close: func() error { return nil }}

	switch cfg.Store {
	case config.StoreMemory:
		h.Store = memory.NewStore()
	case config.StoreFile:
		h.Store = file.New(cfg.SessionsDir)
	case config.StoreRedis:
		rs, err := redis.New(cfg.RedisURL, redis.WithTTL(cfg.SessionTTL))
		if err != nil {
			return nil, err
		}
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}
		h.Store = rs
		h.Locker = redis.NewLocker(rs.Client(), redis.DefaultPrefix)
		h.Close = rs.Close
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	var mws []middleware.Middleware
	if len(cfg.MaskPatterns) > 0 {
		mw, err := middleware.NewMaskMiddleware(cfg.MaskPatterns)
		if err != nil {
			_ = h.Close()
			return nil, err
		}
		mws = append(mws, mw)
	}
	if cfg.EncryptionKey != nil {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: cfg.EncryptionKey})
		if err != nil {
			_ = h.Close()
			return nil, err
		}
		mws = append(mws, mw)
	}
	h.Store = middleware.Chain(h.Store, mws...)
	return h, nil
}

// Build loads the scripts, opens the store and creates the Bot. transport may
// be nil when the caller only reads the returned messages.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, transport ports.Transport) (*Stack, error) {
	loader, err := fs.NewLoader(cfg.ScriptsDir, fs.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to load scripts: %w", err)
	}

	h, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []convo.Option{
		convo.WithStore(h.Store),
		convo.WithLogger(logger),
		convo.WithLifecycleHooks(observability.LogHooks(logger)),
		convo.WithMetrics(observability.NewMetrics(reg)),
		convo.WithRetainCompleted(cfg.RetainCompleted),
	}
	if h.Locker != nil {
		opts = append(opts, convo.WithLocker(h.Locker))
	}
	if transport != nil {
		opts = append(opts, convo.WithTransport(transport))
	}

	bot, err := convo.New(loader, opts...)
	if err != nil {
		_ = h.Close()
		return nil, err
	}
	return &Stack{
		Bot:      bot,
		Loader:   loader,
		Store:    h.Store,
		Registry: reg,
		closers:  []func() error{h.Close},
	}, nil
}
