// Package config loads partnerflow settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/estatedesk/partnerflow/pkg/models"
)

type Config struct {
	Engine           EngineConfig  `json:"engine"            envPrefix:"ENGINE_"`
	Worker           WorkerConfig  `json:"worker"            envPrefix:"WORKER_"`
	Credits          CreditsConfig `json:"credits"           envPrefix:"CREDITS_"`
	DirectResilience bool          `json:"direct_resilience" env:"DIRECT_RESILIENCE" envDefault:"false"`
	DatabaseURL      string        `json:"database_url"      env:"DATABASE_URL"      envDefault:"file://./data"`
	NotifyBus        string        `json:"notify_bus"        env:"NOTIFY_BUS"        envDefault:"log"`
	KafkaBrokers     []string      `json:"kafka_brokers"     env:"KAFKA_BROKERS"     envSeparator:","`
	RedisURL         string        `json:"redis_url"         env:"REDIS_URL"`
	LogLevel         string        `json:"log_level"         env:"LOG_LEVEL"         envDefault:"info"`
	TracingEnabled   bool          `json:"tracing_enabled"   env:"TRACING_ENABLED"   envDefault:"false"`
}

// EngineConfig describes how to reach the durable execution engine.
type EngineConfig struct {
	Enabled           bool          `json:"enabled"             env:"ENABLED"             envDefault:"true"`
	Address           string        `json:"address"             env:"ADDRESS"             envDefault:"localhost:7233"`
	Namespace         string        `json:"namespace"           env:"NAMESPACE"           envDefault:"default"`
	TaskQueue         string        `json:"task_queue"          env:"TASK_QUEUE"          envDefault:"partnerflow"`
	ConnectTimeout    time.Duration `json:"connect_timeout"     env:"CONNECT_TIMEOUT"     envDefault:"5s"`
	RetryMaxAttempts  int           `json:"retry_max_attempts"  env:"RETRY_MAX_ATTEMPTS"  envDefault:"5"`
	RetryInitialDelay time.Duration `json:"retry_initial_delay" env:"RETRY_INITIAL_DELAY" envDefault:"1s"`
	FailureCooldown   time.Duration `json:"failure_cooldown"    env:"FAILURE_COOLDOWN"    envDefault:"10s"`
	HealthSchedule    string        `json:"health_schedule"     env:"HEALTH_SCHEDULE"     envDefault:"@every 30s"`
}

type WorkerConfig struct {
	MaxConcurrentActivities    int           `json:"max_concurrent_activities"     env:"MAX_CONCURRENT_ACTIVITIES"     envDefault:"10"`
	MaxConcurrentWorkflowTasks int           `json:"max_concurrent_workflow_tasks" env:"MAX_CONCURRENT_WORKFLOW_TASKS" envDefault:"10"`
	StopTimeout                time.Duration `json:"stop_timeout"                  env:"STOP_TIMEOUT"                  envDefault:"30s"`
}

// CreditsConfig holds the publish price and welcome grant per entity kind.
type CreditsConfig struct {
	PropertyPublishCost  int64 `json:"property_publish_cost"  env:"PROPERTY_PUBLISH_COST"  envDefault:"10"`
	ProjectPublishCost   int64 `json:"project_publish_cost"   env:"PROJECT_PUBLISH_COST"   envDefault:"25"`
	PGHostelPublishCost  int64 `json:"pg_hostel_publish_cost" env:"PG_HOSTEL_PUBLISH_COST" envDefault:"10"`
	DeveloperPublishCost int64 `json:"developer_publish_cost" env:"DEVELOPER_PUBLISH_COST" envDefault:"15"`
	PartnerWelcomeGrant  int64 `json:"partner_welcome_grant"  env:"PARTNER_WELCOME_GRANT"  envDefault:"50"`
	BusinessWelcomeGrant int64 `json:"business_welcome_grant" env:"BUSINESS_WELCOME_GRANT" envDefault:"100"`
}

var ErrInvalidConfig = errors.New("invalid configuration")

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Engine.Enabled && c.Engine.Address == "" {
		return fmt.Errorf("%w: engine address is required when the engine is enabled", ErrInvalidConfig)
	}

	if c.Engine.RetryMaxAttempts < 1 {
		return fmt.Errorf("%w: engine retry max attempts must be at least 1", ErrInvalidConfig)
	}

	if c.Engine.FailureCooldown < 0 {
		return fmt.Errorf("%w: engine failure cooldown must not be negative", ErrInvalidConfig)
	}

	switch c.NotifyBus {
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("%w: KAFKA_BROKERS is required for the kafka notification bus", ErrInvalidConfig)
		}
	case "gochannel", "log":
	default:
		return fmt.Errorf("%w: unsupported notification bus %q", ErrInvalidConfig, c.NotifyBus)
	}

	return nil
}

// PublishCost returns the credits charged for publishing an entity of the given kind.
func (c CreditsConfig) PublishCost(kind models.EntityKind) int64 {
	switch kind {
	case models.KindProperty:
		return c.PropertyPublishCost
	case models.KindProject:
		return c.ProjectPublishCost
	case models.KindPGHostel:
		return c.PGHostelPublishCost
	case models.KindDeveloper:
		return c.DeveloperPublishCost
	default:
		return 0
	}
}

// WelcomeGrant returns the credits granted when a profile of the given kind is onboarded.
func (c CreditsConfig) WelcomeGrant(kind models.EntityKind) int64 {
	switch kind {
	case models.KindPartner:
		return c.PartnerWelcomeGrant
	case models.KindBusiness:
		return c.BusinessWelcomeGrant
	default:
		return 0
	}
}
