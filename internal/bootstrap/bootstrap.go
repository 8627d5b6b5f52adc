// Package bootstrap wires the storefront services from configuration.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/example/meubles-dor/internal/cache"
	"github.com/example/meubles-dor/internal/command"
	"github.com/example/meubles-dor/internal/config"
	"github.com/example/meubles-dor/internal/gateway"
	"github.com/example/meubles-dor/internal/infrastructure/feed"
	"github.com/example/meubles-dor/internal/infrastructure/kafka"
	"github.com/example/meubles-dor/internal/infrastructure/storage"
	"github.com/example/meubles-dor/internal/infrastructure/store"
	"github.com/example/meubles-dor/internal/notification"
	"github.com/example/meubles-dor/internal/query"
	"github.com/example/meubles-dor/internal/realtime"
)

// Services is everything a binary needs to serve the storefront.
type Services struct {
	DB       *sql.DB
	Producer *kafka.Producer
	Gateway  *gateway.Gateway
	Cache    *cache.Cache
	Commands *command.Handler
	Queries  *query.Handler
	Hub      *realtime.Hub
}

// Open connects to the backend and builds the service graph. With migrate
// set the schema is created or updated first.
func Open(ctx context.Context, cfg *config.Config, migrate bool) (*Services, error) {
	db, err := store.ConnectPostgres(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	log.Println("[Bootstrap] Connected to PostgreSQL")

	if migrate {
		if err := store.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Println("[Bootstrap] Schema up to date")
	}

	s := &Services{DB: db}

	// Interface values stay nil unless a backing client exists.
	var publisher store.Publisher
	if cfg.Realtime.Driver == "kafka" {
		s.Producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		publisher = s.Producer
		log.Printf("[Bootstrap] Publishing changes to Kafka topic %s", cfg.Kafka.Topic)
	}

	var images gateway.ImageUploader
	if cfg.Storage.Endpoint != "" {
		imageStore, err := storage.NewImageStore(storage.Config{
			Endpoint:      cfg.Storage.Endpoint,
			AccessKey:     cfg.Storage.AccessKey,
			SecretKey:     cfg.Storage.SecretKey,
			Bucket:        cfg.Storage.Bucket,
			UseSSL:        cfg.Storage.UseSSL,
			PublicBaseURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			s.Close()
			return nil, err
		}
		if err := imageStore.EnsureBucket(ctx); err != nil {
			log.Printf("[Bootstrap] Image bucket not ready: %v", err)
		}
		images = imageStore
	} else {
		log.Println("[Bootstrap] No object storage configured, image uploads disabled")
	}

	var notifier command.Notifier
	if cfg.Relay.URL != "" {
		notifier = notification.NewClient(cfg.Relay.URL, cfg.Store.Currency, cfg.Relay.Timeout)
	}

	backend := store.NewPostgresStore(db, publisher)
	s.Gateway = gateway.New(backend, images, FeedSource(cfg))
	s.Cache = cache.New(s.Gateway, cfg.Cache.TTL)
	s.Commands = command.NewHandler(s.Gateway, s.Cache, notifier)
	s.Queries = query.NewHandler(s.Gateway, s.Cache)
	s.Hub = realtime.NewHub(s.Gateway, s.Cache, cfg.Realtime.Delay)
	return s, nil
}

// FeedSource picks the change-feed driver. It returns nil for "none".
func FeedSource(cfg *config.Config) feed.Source {
	switch cfg.Realtime.Driver {
	case "postgres":
		return feed.NewPostgresSource(cfg.Database.URL)
	case "kafka":
		return feed.NewKafkaSource(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	default:
		return nil
	}
}

// SubscribeAll subscribes the hub to every table with the same handler.
// A table whose feed cannot be opened is logged and skipped.
func (s *Services) SubscribeAll(ctx context.Context, handler realtime.Handler) int {
	n := 0
	for _, table := range store.Tables {
		if err := s.Hub.Subscribe(ctx, table, handler); err != nil {
			continue
		}
		n++
	}
	return n
}

func (s *Services) Close() {
	if s.Hub != nil {
		s.Hub.UnsubscribeAll()
	}
	if s.Producer != nil {
		if err := s.Producer.Close(); err != nil {
			log.Printf("[Bootstrap] Error closing Kafka producer: %v", err)
		}
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
