package servecmder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	v1handlers "github.com/aigw/simplychat/internal/api/v1/handlers"
	v1mware "github.com/aigw/simplychat/internal/api/v1/middleware"
	"github.com/aigw/simplychat/internal/config"
	"github.com/aigw/simplychat/internal/connections"
	"github.com/aigw/simplychat/internal/services"
)

const serveLongDesc string = `Serve the chat page and API.

Configuration is read from the environment (and a .env file in the
working directory). AIGW_API_URL is required.

The session cookie is marked Secure by default, so browsers only keep it
over HTTPS or on localhost. Set SESSION_COOKIE_SECURE=false when serving
plain HTTP on another host, or every request starts a new conversation.

Examples:
  simplychat serve
  AIGW_API_URL=http://localhost:11434/v1/chat/completions simplychat serve --addr :9000`

const serveShortDesc string = "Serve the chat page"

const shutdownTimeout = 10 * time.Second

type serveCommander struct {
	addr string
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.addr, "addr", "", "Listen address; overrides LISTEN_ADDR")

	return cmd
}

// SetupRouter wires every route and the request logger.
func SetupRouter(svcs *services.Services, manager *connections.Manager) *mux.Router {
	r := mux.NewRouter()
	r.Use(v1mware.RequestLogger(log.Logger))
	v1handlers.RegisterRoutes(r, svcs, manager)
	return r
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.addr != "" {
		cfg.ListenAddr = c.addr
	}

	svcs, err := services.InitializeServices(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svcs.Close()

	manager := connections.NewManager(connections.DefaultTimeouts)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           SetupRouter(svcs, manager),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go svcs.RunJanitor(ctx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked websockets are not tracked by Shutdown.
	manager.CloseAll()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info().Msg("Server stopped")
	return nil
}
