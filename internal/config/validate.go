// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ConfigurationError indicates an out-of-range or inconsistent parameter.
// It is fatal at startup; no event data is processed past a failed
// validation.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and the cross-field constraints the tags
// cannot express. It returns a *ConfigurationError on the first violation.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return &ConfigurationError{
				Field:  errs[0].Namespace(),
				Reason: fmt.Sprintf("failed %q constraint", errs[0].Tag()),
			}
		}
		return &ConfigurationError{Field: "config", Reason: err.Error()}
	}

	if c.Detection.SubsampleSize > c.Detection.SubsampleCap {
		return &ConfigurationError{
			Field:  "detection.subsample_size",
			Reason: fmt.Sprintf("exceeds subsample_cap %d", c.Detection.SubsampleCap),
		}
	}

	for i, p := range c.Intel.SequencePatterns {
		for _, step := range p.Steps {
			if step == "" {
				return &ConfigurationError{
					Field:  fmt.Sprintf("intel.sequence_patterns[%d]", i),
					Reason: "empty step name",
				}
			}
		}
	}

	if c.NATS.Enabled && c.NATS.URL == "" && !c.NATS.EmbeddedServer {
		return &ConfigurationError{
			Field:  "nats.url",
			Reason: "required when NATS is enabled without an embedded server",
		}
	}

	if c.Webhook.Enabled && c.Webhook.URL == "" {
		return &ConfigurationError{
			Field:  "webhook.url",
			Reason: "required when the webhook notifier is enabled",
		}
	}

	return nil
}
