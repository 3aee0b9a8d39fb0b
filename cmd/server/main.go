package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mfarkas/mailward/internal/api"
	"github.com/mfarkas/mailward/internal/auth"
	"github.com/mfarkas/mailward/internal/config"
	"github.com/mfarkas/mailward/internal/credentials"
	"github.com/mfarkas/mailward/internal/crypto"
	"github.com/mfarkas/mailward/internal/db"
	"github.com/mfarkas/mailward/internal/imap"
	"github.com/mfarkas/mailward/internal/oauth"
	"github.com/mfarkas/mailward/internal/prefetch"
	"github.com/mfarkas/mailward/internal/smtp"
	ws "github.com/mfarkas/mailward/internal/websocket"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.CloseConnection(pool)

	log.Printf("Successfully connected to database")

	app, err := NewApp(cfg, pool)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}
	defer app.Close()

	go app.worker.Run(ctx)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: app.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown: %v", err)
		}
	}()

	log.Printf("Mailward server starting on %s (environment: %s)", server.Addr, cfg.Environment)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// App holds the wired application services so the entrypoint can shut them
// down in order.
type App struct {
	cfg     *config.Config
	pool    *pgxpool.Pool
	mail    *imap.Service
	queue   *prefetch.Queue
	worker  *prefetch.Worker
	hub     *ws.Hub
	flow    oauth.Flow
	reslv   *credentials.Resolver
	sender  *smtp.Sender
	handler http.Handler
}

// NewApp wires the application services from the configuration.
func NewApp(cfg *config.Config, pool *pgxpool.Pool) (*App, error) {
	protector, err := crypto.NewProtector(cfg.EncryptionKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to create token protector: %w", err)
	}

	store := db.NewStore(pool, cfg.OAuthProviderID)

	var fallback *credentials.Fallback
	if cfg.HasFallbackCredentials() {
		fallback = &credentials.Fallback{
			Username: cfg.FallbackUsername,
			Password: cfg.FallbackPassword,
		}
	}

	resolver := credentials.NewResolver(store, protector, fallback)
	flow := oauth.NewFlowHandler(cfg, store, resolver)

	useTLS := cfg.Environment != "test"
	mailService := imap.NewService(resolver, store, cfg.IMAPServerHostname, useTLS)
	sender := smtp.NewSender(resolver, cfg.SMTPServerHostname, useTLS)

	hub := ws.NewHub(10)
	queue := prefetch.NewQueue()
	worker := prefetch.NewWorker(queue, mailService, hub)

	app := &App{
		cfg:    cfg,
		pool:   pool,
		mail:   mailService,
		queue:  queue,
		worker: worker,
		hub:    hub,
		flow:   flow,
		reslv:  resolver,
		sender: sender,
	}
	app.handler = app.buildRoutes()

	return app, nil
}

// Handler returns the HTTP handler for the Mailward API.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Close stops the prefetch pipeline and drops cached mail connections.
func (a *App) Close() {
	a.queue.Close()
	a.mail.Close()
}

func (a *App) buildRoutes() http.Handler {
	// Revoking credentials must also drop the user's cached IMAP connection,
	// which still holds a session opened with the old token.
	authHandler := api.NewAuthHandler(a.pool, a.flow, a.reslv, a.mail.RemoveClient)
	messagesHandler := api.NewMessagesHandler(a.pool, a.mail, a.queue)
	sendHandler := api.NewSendHandler(a.pool, a.sender)
	wsHandler := api.NewWebSocketHandler(a.pool, a.hub)

	mux := http.NewServeMux()

	mux.HandleFunc("/", handleRoot)

	mux.Handle("/api/v1/auth/url", auth.RequireAuth(http.HandlerFunc(authHandler.GetAuthorizationURL)))
	mux.Handle("/api/v1/auth/callback", auth.RequireAuth(requirePost(authHandler.HandleCallback)))
	mux.Handle("/api/v1/auth/revoke", auth.RequireAuth(requirePost(authHandler.RevokeTokens)))
	mux.Handle("/api/v1/auth/status", auth.RequireAuth(http.HandlerFunc(authHandler.GetAuthStatus)))

	mux.Handle("/api/v1/messages", auth.RequireAuth(http.HandlerFunc(messagesHandler.GetMessages)))
	mux.Handle("/api/v1/messages/send", auth.RequireAuth(requirePost(sendHandler.SendMessage)))

	// WebSocket handler handles its own authentication via query parameter
	// (since browsers can't set headers on WebSocket connections).
	mux.Handle("/api/v1/ws", http.HandlerFunc(wsHandler.Handle))

	return mux
}

func requirePost(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	})
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Mailward API is running")
}
