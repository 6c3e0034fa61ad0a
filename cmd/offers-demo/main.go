// Command offers-demo registers a product against the offers API and
// fetches its offers. Configuration comes from the environment (optionally
// a .env file); the SDK itself never reads the environment.
package main

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	offers "github.com/applifting/offers-sdk-go"
	"github.com/applifting/offers-sdk-go/internal/logger"
)

type demoConfig struct {
	RefreshToken string        `env:"OFFERS_REFRESH_TOKEN,required"`
	BaseURL      string        `env:"OFFERS_BASE_URL"`
	Timeout      time.Duration `env:"OFFERS_TIMEOUT" envDefault:"30s"`
	Backend      string        `env:"OFFERS_HTTP_BACKEND" envDefault:"pooled"`
}

func main() {
	log := logger.New()

	// Best effort: a missing .env just means the variables are already set.
	_ = godotenv.Load()

	var cfg demoConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to parse environment")
	}

	opts := []offers.Option{
		offers.WithTimeout(cfg.Timeout),
		offers.WithLogger(log),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, offers.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Backend == "basic" {
		opts = append(opts, offers.WithHTTPBackend(offers.BackendBasic))
	}

	client, err := offers.New(cfg.RefreshToken, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build client")
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	req := offers.RegisterProductRequest{
		ID:          uuid.New(),
		Name:        "Demo product",
		Description: "Registered by offers-demo",
	}

	registered, err := client.Products.Register(ctx, req)
	if err != nil {
		log.Fatal().Err(err).Msg("product registration failed")
	}
	log.Info().Stringer("product_id", registered.ID).Msg("✅ product registered")

	productOffers, err := client.Offers.Get(ctx, registered.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("fetching offers failed")
	}

	log.Info().Int("count", len(productOffers)).Msg("offers fetched")
	for _, o := range productOffers {
		log.Info().
			Stringer("offer_id", o.ID).
			Int("price", o.Price).
			Int("items_in_stock", o.ItemsInStock).
			Msg("offer")
	}
}
