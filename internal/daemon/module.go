package daemon

import (
	"context"

	"github.com/matheus3301/chatter/internal/api"
	"github.com/matheus3301/chatter/internal/bus"
	"github.com/matheus3301/chatter/internal/calls"
	"github.com/matheus3301/chatter/internal/chat"
	"github.com/matheus3301/chatter/internal/config"
	"github.com/matheus3301/chatter/internal/contacts"
	"github.com/matheus3301/chatter/internal/docstore"
	"github.com/matheus3301/chatter/internal/lock"
	"github.com/matheus3301/chatter/internal/logging"
	"github.com/matheus3301/chatter/internal/personas"
	"github.com/matheus3301/chatter/internal/profile"
	"github.com/matheus3301/chatter/internal/replies"
	"github.com/matheus3301/chatter/internal/suggest"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
	SocketPath  string // optional override for testing; empty = use default
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideConfig,
			provideLock,
			provideStorage,
			provideChatStore,
			provideCallLog,
			provideSuggestEngine,
			providePersonas,
			provideContacts,
			provideSimulator,
			provideService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(profile.LogPath(p.ProfileName), p.ProfileName, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger.Info("config loaded",
		zap.String("backend", cfg.Storage.Backend),
		zap.Bool("replies", cfg.Replies.Enabled),
	)
	return logger, nil
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(profile.ConfigPath())
	if err != nil {
		return nil, err
	}
	config.ApplyEnv(cfg)
	return cfg, nil
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.LockPath(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired", zap.String("path", l.Path()))
	return l, nil
}

// provideStorage takes the lock so that documents are never opened by a
// daemon that does not hold it.
func provideStorage(p Params, cfg *config.Config, _ *lock.Lock, logger *zap.Logger) (docstore.Storage, error) {
	s, err := docstore.Open(cfg.Storage.Backend, profile.Dir(p.ProfileName), profile.DBPath(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("storage opened", zap.String("backend", cfg.Storage.Backend))
	return s, nil
}

func provideChatStore(s docstore.Storage, b *bus.Bus, logger *zap.Logger) *chat.Store {
	return chat.NewStore(s, b, logger.Named("chat"))
}

func provideCallLog(s docstore.Storage, b *bus.Bus, logger *zap.Logger) *calls.Log {
	return calls.NewLog(s, b, logger.Named("calls"))
}

func provideSuggestEngine(chats *chat.Store) *suggest.Engine {
	return suggest.NewEngine(chats)
}

func providePersonas() (*personas.Catalog, error) {
	return personas.Default()
}

func provideContacts() (*contacts.Directory, error) {
	return contacts.Default()
}

func provideSimulator(chats *chat.Store, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *replies.Simulator {
	return replies.NewSimulator(chats, b, logger.Named("replies"), cfg.Replies)
}

func provideService(
	p Params,
	chats *chat.Store,
	callLog *calls.Log,
	engine *suggest.Engine,
	catalog *personas.Catalog,
	directory *contacts.Directory,
	b *bus.Bus,
	logger *zap.Logger,
) *api.Service {
	return api.NewService(p.ProfileName, chats, callLog, engine, catalog, directory, b, logger.Named("api"))
}

func registerLifecycle(
	lc fx.Lifecycle,
	srv *Server,
	lk *lock.Lock,
	storage docstore.Storage,
	chats *chat.Store,
	callLog *calls.Log,
	sim *replies.Simulator,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if err := chats.Initialize(); err != nil {
				return err
			}
			if err := callLog.Initialize(); err != nil {
				return err
			}

			sim.Start(context.Background())

			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop(ctx)
			sim.Stop()
			if err := storage.Close(); err != nil {
				logger.Warn("error closing storage", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
