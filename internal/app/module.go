// Package app composes the client components with fx.
package app

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/kingchat/kingchat/internal/bot"
	"github.com/kingchat/kingchat/internal/bus"
	"github.com/kingchat/kingchat/internal/chat"
	"github.com/kingchat/kingchat/internal/config"
	"github.com/kingchat/kingchat/internal/lock"
	"github.com/kingchat/kingchat/internal/logging"
	"github.com/kingchat/kingchat/internal/outbox"
	"github.com/kingchat/kingchat/internal/remote"
	"github.com/kingchat/kingchat/internal/session"
	"github.com/kingchat/kingchat/internal/status"
	"github.com/kingchat/kingchat/internal/store"
	intsync "github.com/kingchat/kingchat/internal/sync"
)

// probeTimeout bounds the API health check made at startup.
const probeTimeout = 3 * time.Second

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	Command     string
	Config      *config.Config
	// Console enables stderr logging. The TUI leaves it off.
	Console bool
}

// Module returns the fx module of the client, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	if p.Config == nil {
		p.Config = config.Default()
	}
	return fx.Module("kingchat",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideVault,
			provideDB,
			provideBackends,
			provideStore,
			provideSender,
			provideEngine,
			provideResponder,
			NewClient,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Path:    session.LogPath(p.SessionName),
		Session: p.SessionName,
		Level:   p.Config.LogLevel,
		Console: p.Console,
	})
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.LockPath(p.SessionName), p.Command)
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideVault depends on the lock so credentials are only touched by the owner.
func provideVault(p Params, _ *lock.Lock) *session.Vault {
	return session.NewVault(session.StatePath(p.SessionName))
}

func provideDB(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.DBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

// Backends is the selected chat backend. Offline means the local database
// serves every request; Remote is nil then.
type Backends struct {
	Backend chat.Backend
	Auth    chat.Authenticator
	Remote  *remote.Client
	Local   *store.Local
	Offline bool
}

func provideBackends(p Params, db *store.DB, vault *session.Vault, logger *zap.Logger) Backends {
	creds, err := vault.Load()
	if err != nil {
		logger.Warn("failed to read stored credentials", zap.Error(err))
	}
	user := store.DemoUser
	if creds.User.ID != "" {
		user = creds.User
	}
	local := db.As(user)
	offline := Backends{Backend: local, Auth: local, Local: local, Offline: true}

	cfg := p.Config
	if cfg.Offline || cfg.APIURL == "" {
		logger.Info("using local backend", zap.Bool("forced", cfg.Offline))
		return offline
	}
	client := remote.New(cfg.APIURL, cfg.RequestTimeout.Duration, logger)
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		logger.Warn("api unreachable, falling back to local backend", zap.String("api_url", cfg.APIURL), zap.Error(err))
		return offline
	}
	client.SetToken(creds.Token)
	logger.Info("using remote backend", zap.String("api_url", cfg.APIURL))
	return Backends{Backend: client, Auth: client, Remote: client, Local: local}
}

func provideStore(b *bus.Bus) *chat.Store {
	return chat.NewStore(b)
}

func provideSender(p Params, st *chat.Store, be Backends, b *bus.Bus, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(st, be.Backend, b, logger, p.Config.RequestTimeout.Duration)
}

func provideEngine(p Params, st *chat.Store, be Backends, m *status.Machine, vault *session.Vault, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(st, be.Backend, m, vault, b, logger, intsync.Options{
		PageSize: p.Config.PageSize,
		Timeout:  p.Config.RequestTimeout.Duration,
		Offline:  be.Offline,
	})
}

// provideResponder returns nil in remote mode; the server's users reply there.
func provideResponder(p Params, be Backends, b *bus.Bus, logger *zap.Logger) *bot.Responder {
	if !be.Offline {
		return nil
	}
	return bot.NewResponder(be.Local, b, logger, p.Config.BotReplyDelay.Duration)
}

func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, db *store.DB, sender *outbox.Sender, engine *intsync.Engine, responder *bot.Responder, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			sender.Start(context.Background())
			engine.Start(context.Background())
			if responder != nil {
				responder.Start(context.Background())
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			if responder != nil {
				responder.Stop()
			}
			sender.Stop()
			engine.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
