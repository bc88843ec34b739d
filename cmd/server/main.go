// Command server runs one platform service per invocation: the edge
// gateway, auth, profile, discovery, chat, or the notification relay.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sparkmatch/backend/internal/api"
	"sparkmatch/backend/internal/auth"
	"sparkmatch/backend/internal/chat"
	"sparkmatch/backend/internal/chathub"
	"sparkmatch/backend/internal/config"
	"sparkmatch/backend/internal/discovery"
	"sparkmatch/backend/internal/events"
	"sparkmatch/backend/internal/gateway"
	"sparkmatch/backend/internal/notify"
	"sparkmatch/backend/internal/profile"
	"sparkmatch/backend/internal/storage"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	root := &cobra.Command{
		Use:           "server",
		Short:         "sparkmatch platform services",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		gatewayCmd(log),
		authCmd(log),
		profileCmd(log),
		discoveryCmd(log),
		chatCmd(log),
		notifyCmd(log),
	)

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx
}

func newRouter(log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(api.RequestIDMiddleware())
	r.Use(api.LoggerMiddleware(log))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	return r
}

func newRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// newStorage connects, migrates, and wraps the data layer.
func newStorage(ctx context.Context, cfg *config.Config, rdb *redis.Client) (*storage.Service, error) {
	store, err := storage.New(cfg.DBURL, rdb, cfg.DBPoolMin, cfg.DBPoolMax, cfg.DBIdleTime)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// newPublisher returns the AMQP publisher, or a nop when QUEUE_URL is
// unset so a dev box can run without a broker.
func newPublisher(cfg *config.Config, log zerolog.Logger) (events.Publisher, error) {
	if cfg.QueueURL == "" {
		log.Warn().Msg("QUEUE_URL unset, notifications disabled")
		return events.NopPublisher{}, nil
	}
	return events.NewAMQPPublisher(cfg.QueueURL, log)
}

func gatewayCmd(log zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "public edge: routing, CORS, rate limits, health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate("JWT_SECRET"); err != nil {
				return err
			}

			tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
			server, err := gateway.NewServer(cfg, tokens.VerifyFunc(), log)
			if err != nil {
				return err
			}

			ctx := signalContext()
			go server.Prober.Run(ctx)

			log.Info().Str("addr", cfg.ListenAddr).Msg("gateway listening")
			return serve(ctx, server.Engine, cfg.ListenAddr)
		},
	}
}

func authCmd(log zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Telegram initData validation and bearer tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate("TELEGRAM_BOT_TOKEN", "JWT_SECRET", "DB_URL"); err != nil {
				return err
			}

			ctx := signalContext()
			store, err := newStorage(ctx, cfg, newRedis(cfg))
			if err != nil {
				return err
			}

			tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
			handler := auth.NewHandler(store, tokens, cfg.TelegramBotToken, cfg.InitDataMaxAge, log)

			r := newRouter(log)
			handler.Register(r)

			log.Info().Str("addr", cfg.ListenAddr).Msg("auth listening")
			return serve(ctx, r, cfg.ListenAddr)
		},
	}
}

func profileCmd(log zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "profile CRUD and photo metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate("JWT_SECRET", "DB_URL"); err != nil {
				return err
			}

			ctx := signalContext()
			store, err := newStorage(ctx, cfg, newRedis(cfg))
			if err != nil {
				return err
			}

			tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
			handler := profile.NewHandler(store, cfg.NSFWThreshold, log)

			r := newRouter(log)
			idem := api.NewIdempotencyCache()
			authed := r.Group("", api.AuthMiddleware(tokens.VerifyFunc()), idem.Middleware())
			handler.Register(authed)

			log.Info().Str("addr", cfg.ListenAddr).Msg("profile listening")
			return serve(ctx, r, cfg.ListenAddr)
		},
	}
}

func discoveryCmd(log zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "discovery",
		Short: "candidate ranking, swipes, matches, favorites",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate("JWT_SECRET", "DB_URL"); err != nil {
				return err
			}

			ctx := signalContext()
			store, err := newStorage(ctx, cfg, newRedis(cfg))
			if err != nil {
				return err
			}
			publisher, err := newPublisher(cfg, log)
			if err != nil {
				return err
			}
			defer publisher.Close()

			tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
			service := discovery.NewService(store, publisher, cfg.NSFWThreshold, log)
			handler := discovery.NewHandler(service)

			r := newRouter(log)
			idem := api.NewIdempotencyCache()
			authed := r.Group("", api.AuthMiddleware(tokens.VerifyFunc()), idem.Middleware())
			handler.Register(authed)

			log.Info().Str("addr", cfg.ListenAddr).Msg("discovery listening")
			return serve(ctx, r, cfg.ListenAddr)
		},
	}
}

func chatCmd(log zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "conversations, messages, WebSocket sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate("JWT_SECRET", "DB_URL"); err != nil {
				return err
			}

			ctx := signalContext()
			rdb := newRedis(cfg)
			store, err := newStorage(ctx, cfg, rdb)
			if err != nil {
				return err
			}
			publisher, err := newPublisher(cfg, log)
			if err != nil {
				return err
			}
			defer publisher.Close()

			manager := chathub.NewManager(log)
			bridge := chathub.NewBridge(manager, rdb, log)
			go bridge.Listen(ctx)

			tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
			service := chat.NewService(store, manager, bridge, publisher, log)
			handler := chat.NewHandler(service, tokens.VerifyFunc())

			// Mounted under /v1 so the gateway can proxy the public
			// paths without rewriting.
			r := newRouter(log)
			v1 := r.Group("/v1")
			idem := api.NewIdempotencyCache()
			authed := v1.Group("", api.AuthMiddleware(tokens.VerifyFunc()), idem.Middleware())
			handler.Register(authed)
			handler.RegisterWS(v1)

			log.Info().Str("addr", cfg.ListenAddr).Msg("chat listening")
			return serve(ctx, r, cfg.ListenAddr)
		},
	}
}

func notifyCmd(log zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "notification relay: queue consumer, Telegram pushes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate("TELEGRAM_BOT_TOKEN", "QUEUE_URL"); err != nil {
				return err
			}

			sender, err := notify.NewTelegramSender(cfg.TelegramBotToken)
			if err != nil {
				return err
			}

			relay := notify.NewRelay(cfg.QueueURL, sender, log)
			log.Info().Msg("relay starting")
			err = relay.Run(signalContext())
			if err == context.Canceled {
				return nil
			}
			return err
		},
	}
}
