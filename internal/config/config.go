package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config represents the complete engine configuration
type Config struct {
	Stripe     StripeConfig     `toml:"stripe"`
	Checkout   CheckoutConfig   `toml:"checkout"`
	Plans      PlansConfig      `toml:"plans"`
	Reconciler ReconcilerConfig `toml:"reconciler"`
	Archive    ArchiveConfig    `toml:"archive"`
}

// StripeConfig contains the payment provider credentials. The webhook secret
// is shared out-of-band and used to verify event signatures.
type StripeConfig struct {
	APIKey        string `toml:"api_key"`
	WebhookSecret string `toml:"webhook_secret"`
}

// CheckoutConfig contains the redirect targets embedded in hosted checkout
// sessions.
type CheckoutConfig struct {
	SuccessURL string `toml:"success_url"`
	CancelURL  string `toml:"cancel_url"`
}

// PlansConfig maps plan codes to the provider's price references.
type PlansConfig struct {
	TrialPriceRef  string `toml:"trial_price_ref"`
	AnnualPriceRef string `toml:"annual_price_ref"`
}

// ReconcilerConfig contains cadence settings for the orphan-link repair job.
type ReconcilerConfig struct {
	IntervalMinutes int `toml:"interval_minutes"`
	GraceMinutes    int `toml:"grace_minutes"`
	BatchSize       int `toml:"batch_size"`
}

// ArchiveConfig contains the object-storage bucket for raw webhook payloads.
type ArchiveConfig struct {
	Bucket string `toml:"bucket"`
}

// Load loads configuration from a TOML file
func Load(filename string) (*Config, error) {
	config := &Config{}
	_, err := toml.DecodeFile(filename, config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	config.applyDefaults()
	return config, nil
}

// Default returns a configuration with only the defaults applied, for
// deployments that configure everything through the environment.
func Default() *Config {
	config := &Config{}
	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	if c.Reconciler.IntervalMinutes <= 0 {
		c.Reconciler.IntervalMinutes = 5
	}
	if c.Reconciler.GraceMinutes <= 0 {
		c.Reconciler.GraceMinutes = 10
	}
	if c.Reconciler.BatchSize <= 0 {
		c.Reconciler.BatchSize = 100
	}
	if c.Archive.Bucket == "" {
		c.Archive.Bucket = "sellerhub-webhook-events"
	}
}
