// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package eventprocessor

import (
	"time"

	"github.com/raskell-io/cloudsentry/internal/config"
)

// SubscriberConfig holds JetStream subscriber settings.
type SubscriberConfig struct {
	URL              string
	StreamName       string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	MaxDeliver       int
	MaxAckPending    int
	MaxReconnects    int
	ReconnectWait    time.Duration
	AckWaitTimeout   time.Duration
	CloseTimeout     time.Duration
}

// PublisherConfig holds JetStream publisher settings.
type PublisherConfig struct {
	URL             string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
	EnableTrackMsgID bool
}

// StreamConfig holds the JetStream stream definition for security events.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// ServerConfig holds embedded NATS server settings for standalone mode.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// RouterConfig holds the message-router middleware settings.
type RouterConfig struct {
	CloseTimeout         time.Duration
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64
	PoisonTopic          string
}

// HandlerConfig holds batching settings for the detection handler.
type HandlerConfig struct {
	// BatchSize flushes the accumulated batch when reached.
	BatchSize int

	// FlushInterval bounds how long an undersized batch may wait.
	FlushInterval time.Duration

	// EventsTopic is the subject the handler consumes from.
	EventsTopic string

	// ReportsTopic receives the rendered threat report of each pass.
	ReportsTopic string
}

// DefaultRouterConfig returns production middleware defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      5,
		RetryInitialInterval: time.Second,
		RetryMaxInterval:     time.Minute,
		RetryMultiplier:      2.0,
		PoisonTopic:          "events.poison",
	}
}

// SubscriberConfigFrom derives subscriber settings from the root config.
func SubscriberConfigFrom(cfg config.NATSConfig) SubscriberConfig {
	return SubscriberConfig{
		URL:              cfg.URL,
		StreamName:       cfg.StreamName,
		DurableName:      cfg.DurableName,
		QueueGroup:       cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		MaxDeliver:       5,
		MaxAckPending:    1024,
		MaxReconnects:    cfg.MaxReconnects,
		ReconnectWait:    cfg.ReconnectWait,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
	}
}

// PublisherConfigFrom derives publisher settings from the root config.
func PublisherConfigFrom(cfg config.NATSConfig) PublisherConfig {
	return PublisherConfig{
		URL:              cfg.URL,
		MaxReconnects:    cfg.MaxReconnects,
		ReconnectWait:    cfg.ReconnectWait,
		ReconnectBuffer:  8 * 1024 * 1024,
		EnableTrackMsgID: true,
	}
}

// StreamConfigFrom derives the stream definition from the root config.
func StreamConfigFrom(cfg config.NATSConfig) StreamConfig {
	return StreamConfig{
		Name:            cfg.StreamName,
		Subjects:        []string{cfg.EventsTopic, cfg.ReportsTopic, cfg.PoisonTopic},
		MaxAge:          7 * 24 * time.Hour,
		MaxBytes:        10 << 30,
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// ServerConfigFrom derives embedded-server settings from the root config.
func ServerConfigFrom(cfg config.NATSConfig) ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          cfg.StoreDir,
		JetStreamMaxMem:   1 << 30,
		JetStreamMaxStore: 10 << 30,
	}
}

// HandlerConfigFrom derives detection-handler settings from the root config.
func HandlerConfigFrom(cfg config.NATSConfig) HandlerConfig {
	return HandlerConfig{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		EventsTopic:   cfg.EventsTopic,
		ReportsTopic:  cfg.ReportsTopic,
	}
}
