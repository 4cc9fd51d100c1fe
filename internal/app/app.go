package app

import (
	"context"
	"fmt"
	stdhttp "net/http"

	"github.com/rs/zerolog"

	"github.com/ChristianSeip/SimpleChat-Server/internal/auth"
	"github.com/ChristianSeip/SimpleChat-Server/internal/chat"
	"github.com/ChristianSeip/SimpleChat-Server/internal/config"
	zlog "github.com/ChristianSeip/SimpleChat-Server/internal/log"
	"github.com/ChristianSeip/SimpleChat-Server/internal/store"
	"github.com/ChristianSeip/SimpleChat-Server/internal/store/sqlite"
	transporthttp "github.com/ChristianSeip/SimpleChat-Server/internal/transport/http"
)

// App wires the store, credential gate, channel, router, reaper and HTTP
// server together.
type App struct {
	cfg     config.Config
	server  *stdhttp.Server
	channel *chat.Channel
	reaper  *chat.Reaper
	store   store.Store
	log     *zerolog.Logger
}

// New constructs the application with the provided configuration. The
// configuration must already be validated.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	gate := auth.NewService(st, &auth.SessionConfig{
		Secret: []byte(cfg.SessionSecret),
		Issuer: "simplechat",
		TTL:    cfg.SessionTTL,
	}, zlog.Component(logger, "auth"))

	channel := chat.NewChannel(cfg.ChannelName, zlog.Component(logger, "channel"))
	router := chat.NewRouter(gate, channel, zlog.Component(logger, "router"))
	reaper := chat.NewReaper(channel, gate, cfg.ReapInterval, cfg.InactivityThreshold, zlog.Component(logger, "reaper"))

	server := transporthttp.NewServer(router, cfg, zlog.Component(logger, "http"))

	return &App{
		cfg:     cfg,
		server:  server,
		channel: channel,
		reaper:  reaper,
		store:   st,
		log:     logger,
	}, nil
}

// Run starts the reaper and the HTTP server and blocks until context
// cancellation or a fatal server error.
func (a *App) Run(ctx context.Context) error {
	reaperCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	go a.reaper.Run(reaperCtx)

	serverErr := make(chan error, 1)
	go func() {
		var err error
		if a.cfg.TLSEnabled() {
			err = a.server.ListenAndServeTLS(a.cfg.TLSCertFile, a.cfg.TLSKeyFile)
		} else {
			err = a.server.ListenAndServe()
		}
		if err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup tears down the channel membership and closes the store.
func (a *App) cleanup() {
	a.channel.CloseAll()

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
