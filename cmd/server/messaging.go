// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package main

import (
	"context"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/raskell-io/cloudsentry/internal/config"
	"github.com/raskell-io/cloudsentry/internal/eventprocessor"
	"github.com/raskell-io/cloudsentry/internal/logging"
	"github.com/raskell-io/cloudsentry/internal/supervisor"
)

// wireMessaging builds the NATS transport: an embedded server in
// standalone mode, the SECURITY_EVENTS stream, the batching detection
// handler consuming normalized events, and the report publisher. The
// router and the interval flusher are registered on the messaging branch
// of the supervision tree. The returned cleanup closes the transport in
// reverse construction order.
func wireMessaging(
	ctx context.Context,
	cfg *config.Config,
	engine eventprocessor.DetectionEngine,
	tree *supervisor.Tree,
) (func(), error) {
	logger := eventprocessor.NewLoggerAdapter()
	natsURL := cfg.NATS.URL

	var embedded *eventprocessor.EmbeddedServer
	if cfg.NATS.EmbeddedServer {
		serverCfg := eventprocessor.ServerConfigFrom(cfg.NATS)
		var err error
		embedded, err = eventprocessor.NewEmbeddedServer(&serverCfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		natsURL = embedded.ClientURL()
		logging.Info().Str("url", natsURL).Msg("embedded NATS server started")
	}

	if err := ensureStream(ctx, cfg, natsURL); err != nil {
		shutdownEmbedded(embedded)
		return nil, err
	}

	subCfg := eventprocessor.SubscriberConfigFrom(cfg.NATS)
	subCfg.URL = natsURL
	subscriber, err := eventprocessor.NewSubscriber(&subCfg, logger)
	if err != nil {
		shutdownEmbedded(embedded)
		return nil, fmt.Errorf("create subscriber: %w", err)
	}

	pubCfg := eventprocessor.PublisherConfigFrom(cfg.NATS)
	pubCfg.URL = natsURL
	publisher, err := eventprocessor.NewPublisher(pubCfg, logger)
	if err != nil {
		subscriber.Close()
		shutdownEmbedded(embedded)
		return nil, fmt.Errorf("create publisher: %w", err)
	}

	routerCfg := eventprocessor.DefaultRouterConfig()
	routerCfg.CloseTimeout = cfg.NATS.CloseTimeout
	routerCfg.PoisonTopic = cfg.NATS.PoisonTopic
	router, err := eventprocessor.NewRouter(&routerCfg, publisher, logger)
	if err != nil {
		publisher.Close()
		subscriber.Close()
		shutdownEmbedded(embedded)
		return nil, fmt.Errorf("create router: %w", err)
	}

	handler, err := eventprocessor.NewDetectionHandler(engine, publisher, eventprocessor.HandlerConfigFrom(cfg.NATS), logger)
	if err != nil {
		router.Close()
		publisher.Close()
		subscriber.Close()
		shutdownEmbedded(embedded)
		return nil, fmt.Errorf("create detection handler: %w", err)
	}

	router.AddConsumerHandler("detection-consumer", cfg.NATS.EventsTopic, subscriber, handler.Handle)

	tree.AddMessagingService(supervisor.NewRouterService(router))
	tree.AddMessagingService(supervisor.NewFlusherService(handler))

	cleanup := func() {
		if err := router.Close(); err != nil {
			logging.Warn().Err(err).Msg("router close")
		}
		if err := publisher.Close(); err != nil {
			logging.Warn().Err(err).Msg("publisher close")
		}
		if err := subscriber.Close(); err != nil {
			logging.Warn().Err(err).Msg("subscriber close")
		}
		shutdownEmbedded(embedded)
	}
	return cleanup, nil
}

// ensureStream provisions the JetStream stream over a short-lived
// connection so the subscriber can bind to it.
func ensureStream(ctx context.Context, cfg *config.Config, natsURL string) error {
	nc, err := natsgo.Connect(natsURL,
		natsgo.MaxReconnects(cfg.NATS.MaxReconnects),
		natsgo.ReconnectWait(cfg.NATS.ReconnectWait),
	)
	if err != nil {
		return fmt.Errorf("connect for stream provisioning: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create jetstream context: %w", err)
	}

	streamCfg := eventprocessor.StreamConfigFrom(cfg.NATS)
	initializer, err := eventprocessor.NewStreamInitializer(js, &streamCfg)
	if err != nil {
		return fmt.Errorf("create stream initializer: %w", err)
	}

	provisionCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := initializer.EnsureStream(provisionCtx); err != nil {
		return fmt.Errorf("ensure stream %s: %w", cfg.NATS.StreamName, err)
	}
	return nil
}

func shutdownEmbedded(embedded *eventprocessor.EmbeddedServer) {
	if embedded == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := embedded.Shutdown(ctx); err != nil {
		logging.Warn().Err(err).Msg("embedded NATS shutdown")
	}
}
