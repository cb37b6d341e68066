package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"prospector/internal/accounts/authz"
	accountsHandler "prospector/internal/accounts/handler"
	accountsService "prospector/internal/accounts/service"
	authHandler "prospector/internal/auth/handler"
	authService "prospector/internal/auth/service"
	"prospector/internal/enrichment"
	"prospector/internal/geocode"
	"prospector/internal/identity"
	jwttoken "prospector/internal/jwt_token"
	"prospector/internal/platform/config"
	"prospector/internal/platform/httpserver"
	httptransport "prospector/internal/transport/http"
	"prospector/pkg/platform/audit"
)

func newServeCmd(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the enrichment pipeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*envFiles...)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	pipeline, err := a.newPipeline()
	if err != nil {
		return err
	}
	pipeline.Register(a.feed)

	router, err := a.newRouter()
	if err != nil {
		return err
	}
	srv := httpserver.New(cfg.Server.Addr, router)

	a.logger.Info("starting prospector",
		"addr", cfg.Server.Addr,
		"store_driver", cfg.StoreDriver,
		"geocode_cache", a.redis != nil,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpserver.Run(gctx, srv, a.logger) })
	g.Go(func() error { return a.feed.Run(gctx) })
	if a.relay != nil {
		g.Go(func() error { return a.relay.Run(gctx) })
	}
	return g.Wait()
}

func (a *app) newPipeline() (*enrichment.Pipeline, error) {
	client, err := geocode.NewClient(geocode.Config{
		APIKey:  a.cfg.Geocode.APIKey,
		BaseURL: a.cfg.Geocode.BaseURL,
		Timeout: a.cfg.Geocode.Timeout,
	}, geocode.WithLogger(a.logger), geocode.WithMetrics(a.metrics))
	if err != nil {
		return nil, err
	}

	var resolver enrichment.Resolver = client
	if a.redis != nil {
		resolver, err = geocode.NewCachedResolver(client, a.redis, a.cfg.Redis.GeocodeCacheTTL,
			geocode.WithCacheLogger(a.logger),
			geocode.WithCacheMetrics(a.metrics),
		)
		if err != nil {
			return nil, err
		}
	}

	return enrichment.NewPipeline(resolver, a.docs,
		[]enrichment.Kind{enrichment.Schools(), enrichment.Companies(a.cfg.CompanyLocalityField)},
		enrichment.WithLogger(a.logger),
		enrichment.WithMetrics(a.metrics),
	)
}

func (a *app) newRouter() (http.Handler, error) {
	identitySvc, err := a.newIdentity()
	if err != nil {
		return nil, err
	}
	guard, err := authz.NewGuard(a.docs)
	if err != nil {
		return nil, err
	}
	publisher, err := audit.NewPublisher(a.auditStore)
	if err != nil {
		return nil, err
	}
	accounts, err := accountsService.New(guard, identitySvc, a.docs,
		accountsService.WithLogger(a.logger),
		accountsService.WithMetrics(a.metrics),
		accountsService.WithAuditPublisher(publisher),
	)
	if err != nil {
		return nil, err
	}

	tokens := jwttoken.NewJWTService(a.cfg.Server.JWTSigningKey, a.cfg.Server.JWTIssuer, a.cfg.Server.JWTAudience)
	auth, err := authService.New(identitySvc, tokens, a.cfg.Server.TokenTTL, authService.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}

	checks := map[string]httptransport.HealthCheck{}
	if a.db != nil {
		checks["postgres"] = a.db.PingContext
	}
	if a.redis != nil {
		checks["redis"] = a.redis.Health
	}

	return httptransport.NewRouter(httptransport.Deps{
		Logger:    a.logger,
		Metrics:   a.metrics,
		Gatherer:  a.registry,
		Validator: tokens,
		Checks:    checks,
		Handlers: []httptransport.Registrar{
			authHandler.New(auth, a.logger),
			accountsHandler.New(accounts, a.logger),
		},
	}), nil
}

func (a *app) newIdentity() (*identity.Service, error) {
	return identity.NewService(a.credentials, identity.WithLogger(a.logger))
}
