package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/meubles-dor/internal/api"
	"github.com/example/meubles-dor/internal/auth"
	"github.com/example/meubles-dor/internal/bootstrap"
	"github.com/example/meubles-dor/internal/config"
	"github.com/example/meubles-dor/internal/infrastructure/store"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("[API] %v", err)
	}
	if err := cfg.ValidateAPI(); err != nil {
		log.Fatalf("[API] %v", err)
	}
	if err := auth.ValidateHash(cfg.Auth.AdminPasswordHash); err != nil {
		log.Printf("[API] Admin password hash unusable, admin sign-in disabled: %v", err)
	}

	log.Println("[API] ========================================")
	log.Printf("[API] %s storefront", cfg.Store.Name)
	log.Println("[API] ========================================")
	log.Printf("[API] Realtime driver: %s", cfg.Realtime.Driver)
	log.Printf("[API] Cache TTL: %s", cfg.Cache.TTL)

	services, err := bootstrap.Open(ctx, cfg, true)
	if err != nil {
		log.Fatalf("[API] %v", err)
	}
	defer services.Close()

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, cfg.Auth.RefreshWindow)
	authenticator := auth.NewAuthenticator(cfg.Auth.AdminEmail, cfg.Auth.AdminPasswordHash, jwtService)

	live := api.NewLiveEvents(cfg.Realtime.RefreshDelay)
	defer live.Close()

	if cfg.Realtime.Driver != "none" {
		n := services.SubscribeAll(ctx, func(event store.ChangeEvent) {
			live.Handle(event)
		})
		log.Printf("[API] Realtime subscriptions active: %d/%d", n, len(store.Tables))
	}

	router := api.NewRouter(api.RouterConfig{
		Handlers:      api.NewHandlers(services.Commands, services.Queries),
		AuthHandlers:  api.NewAuthHandlers(authenticator),
		Authenticator: authenticator,
		LiveEvents:    live,
		WebDir:        cfg.Server.WebDir,
	})

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		log.Printf("[API] Server started on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[API] Server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[API] Shutting down...")
	services.Hub.UnsubscribeAll()
	live.Close()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[API] Shutdown error: %v", err)
	}
}
