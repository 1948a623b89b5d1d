// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package config

import "time"

// Config is the root configuration for the CloudSentry server.
type Config struct {
	Logging   LoggingConfig   `koanf:"logging"`
	Server    ServerConfig    `koanf:"server"`
	NATS      NATSConfig      `koanf:"nats"`
	Detection DetectionConfig `koanf:"detection"`
	Profile   ProfileConfig   `koanf:"profile"`
	Intel     IntelConfig     `koanf:"intel"`
	Features  FeaturesConfig  `koanf:"features"`
	Webhook   WebhookConfig   `koanf:"webhook"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host             string        `koanf:"host"`
	Port             int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout          time.Duration `koanf:"timeout"`
	RateLimitPerMin  int           `koanf:"rate_limit_per_min" validate:"min=0"`
	MaxDetectEvents  int           `koanf:"max_detect_events" validate:"min=1"`
}

// NATSConfig configures the event transport. When EmbeddedServer is true a
// JetStream-enabled NATS server is started in-process for standalone mode.
type NATSConfig struct {
	Enabled          bool          `koanf:"enabled"`
	URL              string        `koanf:"url"`
	EmbeddedServer   bool          `koanf:"embedded_server"`
	StoreDir         string        `koanf:"store_dir"`
	StreamName       string        `koanf:"stream_name"`
	EventsTopic      string        `koanf:"events_topic"`
	ReportsTopic     string        `koanf:"reports_topic"`
	PoisonTopic      string        `koanf:"poison_topic"`
	DurableName      string        `koanf:"durable_name"`
	QueueGroup       string        `koanf:"queue_group"`
	SubscribersCount int           `koanf:"subscribers_count" validate:"min=1"`
	BatchSize        int           `koanf:"batch_size" validate:"min=1"`
	FlushInterval    time.Duration `koanf:"flush_interval"`
	MaxReconnects    int           `koanf:"max_reconnects"`
	ReconnectWait    time.Duration `koanf:"reconnect_wait"`
	AckWaitTimeout   time.Duration `koanf:"ack_wait_timeout"`
	CloseTimeout     time.Duration `koanf:"close_timeout"`
}

// DetectionConfig holds the parameters of the anomaly scorer and the
// detection pipeline.
type DetectionConfig struct {
	// EnsembleSize is the number of partition trees to build per train.
	EnsembleSize int `koanf:"ensemble_size" validate:"min=1"`

	// SubsampleSize is the per-tree training subsample size psi.
	SubsampleSize int `koanf:"subsample_size" validate:"min=2"`

	// SubsampleCap bounds SubsampleSize regardless of configuration.
	SubsampleCap int `koanf:"subsample_cap" validate:"min=2"`

	// Seed feeds the deterministic RNG used for subsampling and splits.
	Seed int64 `koanf:"seed"`

	// ConfidenceThreshold filters which scored events count as
	// high-confidence anomalies, in [0,1].
	ConfidenceThreshold float64 `koanf:"confidence_threshold" validate:"min=0,max=1"`

	// AnomalySeverity is the severity attached to statistical-anomaly
	// signals emitted above the confidence threshold.
	AnomalySeverity string `koanf:"anomaly_severity" validate:"oneof=HIGH MEDIUM LOW"`

	// BruteForceThreshold: error-bearing events in a batch must exceed
	// this (strict >) to raise possible-brute-force.
	BruteForceThreshold int `koanf:"brute_force_threshold" validate:"min=0"`

	// OffHoursThreshold: events in the [0,5] hour window must exceed this
	// (strict >) to raise unusual-time-activity.
	OffHoursThreshold int `koanf:"off_hours_threshold" validate:"min=0"`

	// RegionThreshold: distinct regions must exceed this (strict >) to
	// raise geographic-anomaly.
	RegionThreshold int `koanf:"region_threshold" validate:"min=0"`

	// HistoryCapacity bounds the rolling report history (FIFO eviction).
	HistoryCapacity int `koanf:"history_capacity" validate:"min=1"`

	// PassTimeout bounds one detection pass; 0 disables the deadline.
	PassTimeout time.Duration `koanf:"pass_timeout"`
}

// ProfileConfig holds behavioral-profile rule parameters.
type ProfileConfig struct {
	// UnusualHoursTolerance is the circular 24h distance from the modal
	// hour beyond which an event is flagged (strict >).
	UnusualHoursTolerance int `koanf:"unusual_hours_tolerance" validate:"min=0,max=12"`

	// UnusualHoursConfidence is attached to unusual-hours signals.
	UnusualHoursConfidence float64 `koanf:"unusual_hours_confidence" validate:"min=0,max=1"`

	// RareEventConfidence is attached to rare-event signals.
	RareEventConfidence float64 `koanf:"rare_event_confidence" validate:"min=0,max=1"`

	// TopK is the size of the frequent event/resource tables per entity.
	TopK int `koanf:"top_k" validate:"min=1"`
}

// SequencePattern is an ordered event-name subsequence with its signal
// classification. The steps need not be contiguous in the entity's stream.
type SequencePattern struct {
	Kind       string   `koanf:"kind" validate:"required"`
	Steps      []string `koanf:"steps" validate:"min=2"`
	Severity   string   `koanf:"severity" validate:"oneof=HIGH MEDIUM LOW"`
	Confidence float64  `koanf:"confidence" validate:"min=0,max=1"`
}

// IntelConfig holds the static threat-intelligence tables consumed by the
// pattern correlator.
type IntelConfig struct {
	KnownMaliciousIPs    []string          `koanf:"known_malicious_ips"`
	SuspiciousUserAgents []string          `koanf:"suspicious_user_agents"`
	CriticalOperations   []string          `koanf:"critical_operations"`
	SequencePatterns     []SequencePattern `koanf:"sequence_patterns" validate:"dive"`

	MaliciousIPConfidence  float64 `koanf:"malicious_ip_confidence" validate:"min=0,max=1"`
	UserAgentConfidence    float64 `koanf:"user_agent_confidence" validate:"min=0,max=1"`
	CriticalOpConfidence   float64 `koanf:"critical_op_confidence" validate:"min=0,max=1"`
	BruteForceConfidence   float64 `koanf:"brute_force_confidence" validate:"min=0,max=1"`
	OffHoursConfidence     float64 `koanf:"off_hours_confidence" validate:"min=0,max=1"`
	GeoAnomalyConfidence   float64 `koanf:"geo_anomaly_confidence" validate:"min=0,max=1"`
}

// FeaturesConfig holds feature-extraction policy.
type FeaturesConfig struct {
	// UsualRegion is the region treated as the home baseline for the
	// is_usual_region feature. Empty disables the feature (always 0).
	// This is a policy knob, deliberately not hardcoded.
	UsualRegion string `koanf:"usual_region"`
}

// WebhookConfig configures the outbound threat-report webhook notifier.
type WebhookConfig struct {
	Enabled     bool              `koanf:"enabled"`
	URL         string            `koanf:"url"`
	Headers     map[string]string `koanf:"headers"`
	MinSeverity string            `koanf:"min_severity" validate:"oneof=HIGH MEDIUM LOW"`
	RateLimit   time.Duration     `koanf:"rate_limit"`
	Timeout     time.Duration     `koanf:"timeout"`
}

// Default returns a Config with all default values applied. The detection
// defaults mirror the thresholds the engine was originally tuned with.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8418,
			Timeout:         30 * time.Second,
			RateLimitPerMin: 120,
			MaxDetectEvents: 10000,
		},
		NATS: NATSConfig{
			Enabled:          false,
			URL:              "nats://127.0.0.1:4222",
			EmbeddedServer:   true,
			StoreDir:         "/data/cloudsentry/jetstream",
			StreamName:       "SECURITY_EVENTS",
			EventsTopic:      "events.normalized",
			ReportsTopic:     "threats.reports",
			PoisonTopic:      "events.poison",
			DurableName:      "detection-engine",
			QueueGroup:       "detectors",
			SubscribersCount: 4,
			BatchSize:        1000,
			FlushInterval:    5 * time.Second,
			MaxReconnects:    60,
			ReconnectWait:    2 * time.Second,
			AckWaitTimeout:   30 * time.Second,
			CloseTimeout:     30 * time.Second,
		},
		Detection: DetectionConfig{
			EnsembleSize:        100,
			SubsampleSize:       256,
			SubsampleCap:        256,
			Seed:                42,
			ConfidenceThreshold: 0.85,
			AnomalySeverity:     "MEDIUM",
			BruteForceThreshold: 10,
			OffHoursThreshold:   5,
			RegionThreshold:     3,
			HistoryCapacity:     1000,
			PassTimeout:         0,
		},
		Profile: ProfileConfig{
			UnusualHoursTolerance:  4,
			UnusualHoursConfidence: 0.8,
			RareEventConfidence:    0.7,
			TopK:                   5,
		},
		Intel: IntelConfig{
			KnownMaliciousIPs:    []string{"192.168.1.100", "10.0.0.50"},
			SuspiciousUserAgents: []string{"nmap", "sqlmap", "metasploit"},
			CriticalOperations: []string{
				"CreateUser", "DeleteUser", "ModifySecurityGroup",
				"CreateAccessKey", "DeleteLogGroup", "StopLogging",
				"AttachUserPolicy",
			},
			SequencePatterns: []SequencePattern{
				{Kind: "privilege_escalation", Steps: []string{"CreateUser", "CreateAccessKey"}, Severity: "HIGH", Confidence: 0.80},
				{Kind: "data_exfiltration", Steps: []string{"GetObject", "CopyObject"}, Severity: "HIGH", Confidence: 0.80},
				{Kind: "data_exfiltration", Steps: []string{"ListBuckets", "GetObject"}, Severity: "HIGH", Confidence: 0.80},
				{Kind: "persistence", Steps: []string{"CreateTrail", "StopLogging"}, Severity: "MEDIUM", Confidence: 0.80},
				{Kind: "persistence", Steps: []string{"CreateAlarm", "DeleteAlarm"}, Severity: "MEDIUM", Confidence: 0.80},
			},
			MaliciousIPConfidence: 0.95,
			UserAgentConfidence:   0.75,
			CriticalOpConfidence:  0.85,
			BruteForceConfidence:  0.90,
			OffHoursConfidence:    0.70,
			GeoAnomalyConfidence:  0.65,
		},
		Features: FeaturesConfig{
			UsualRegion: "us-east-1",
		},
		Webhook: WebhookConfig{
			Enabled:     false,
			URL:         "",
			MinSeverity: "HIGH",
			RateLimit:   500 * time.Millisecond,
			Timeout:     10 * time.Second,
		},
	}
}
