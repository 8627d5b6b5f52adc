package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/meubles-dor/internal/config"
	"github.com/example/meubles-dor/internal/email"
	"github.com/example/meubles-dor/internal/relay"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("[Relay] %v", err)
	}
	if err := cfg.ValidateRelay(); err != nil {
		log.Fatalf("[Relay] %v", err)
	}

	var sender email.Sender
	switch cfg.Email.Provider {
	case "smtp":
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.Email.SMTP.Host,
			Port:     cfg.Email.SMTP.Port,
			Username: cfg.Email.SMTP.Username,
			Password: cfg.Email.SMTP.Password,
			TLS:      cfg.Email.SMTP.TLS,
		})
	default:
		sender = email.NewBrevoSender(cfg.Email.Brevo.BaseURL, cfg.Email.Brevo.APIKey, cfg.Email.Timeout)
	}

	cc := make([]email.Address, 0, len(cfg.Email.Cc))
	for _, addr := range cfg.Email.Cc {
		cc = append(cc, email.Address{Email: addr})
	}

	log.Println("[Relay] ========================================")
	log.Printf("[Relay] %s - Email Notification Relay", cfg.Store.Name)
	log.Println("[Relay] ========================================")
	log.Printf("[Relay] Provider: %s", cfg.Email.Provider)
	log.Printf("[Relay] From: %s", cfg.Email.FromAddress)
	log.Printf("[Relay] To: %s", cfg.Email.ToAddress)

	gin.SetMode(gin.ReleaseMode)
	srv := relay.NewServer(sender, relay.Config{
		Branding: email.Branding{
			StoreName:  cfg.Store.Name,
			Currency:   cfg.Store.Currency,
			Phone:      cfg.Store.Phone,
			SocialName: cfg.Store.SocialName,
			SocialURL:  cfg.Store.SocialURL,
		},
		From: email.Address{Name: cfg.Email.FromName, Email: cfg.Email.FromAddress},
		To:   email.Address{Email: cfg.Email.ToAddress},
		Cc:   cc,
	})

	server := &http.Server{
		Addr:    cfg.Relay.Addr,
		Handler: srv.Handler(),
	}

	go func() {
		log.Printf("[Relay] Listening on %s", cfg.Relay.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[Relay] Server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[Relay] Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[Relay] Shutdown error: %v", err)
	}
}
