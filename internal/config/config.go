package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	// DBStatementTimeout and DBLockTimeout are applied as session parameters
	// on every pooled connection; they cap how long a ledger write may run or
	// wait on a patient row lock before the database aborts it.
	DBStatementTimeout time.Duration `mapstructure:"DB_STATEMENT_TIMEOUT"`
	DBLockTimeout      time.Duration `mapstructure:"DB_LOCK_TIMEOUT"`

	AuthSecret   string `mapstructure:"AUTH_SECRET"`
	AuthIssuer   string `mapstructure:"AUTH_ISSUER"`
	AuthAudience string `mapstructure:"AUTH_AUDIENCE"`

	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Admission ledger knobs. AdmitClockSkew is how far in the future an
	// admission timestamp may sit before it is rejected; AdmitPastHorizon is
	// how far back a late-entered admission may be dated.
	AdmitClockSkew   time.Duration `mapstructure:"ADMIT_CLOCK_SKEW"`
	AdmitPastHorizon time.Duration `mapstructure:"ADMIT_PAST_HORIZON"`

	MigrationsDir string `mapstructure:"MIGRATIONS_DIR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DB_STATEMENT_TIMEOUT", "30s")
	v.SetDefault("DB_LOCK_TIMEOUT", "5s")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("ADMIT_CLOCK_SKEW", "5m")
	v.SetDefault("ADMIT_PAST_HORIZON", "8760h") // one year
	v.SetDefault("MIGRATIONS_DIR", "./migrations")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("DB_STATEMENT_TIMEOUT")
	v.BindEnv("DB_LOCK_TIMEOUT")
	v.BindEnv("AUTH_SECRET")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("ADMIT_CLOCK_SKEW")
	v.BindEnv("ADMIT_PAST_HORIZON")
	v.BindEnv("MIGRATIONS_DIR")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development
// an AUTH_SECRET must be set so the bearer-token gate actually verifies
// signatures, and the admission window knobs must be sane.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSecret == "" {
		return fmt.Errorf("AUTH_SECRET is required when ENV=%q; refusing to start with an unverified token gate", c.Env)
	}
	if c.AdmitClockSkew < 0 {
		return fmt.Errorf("ADMIT_CLOCK_SKEW must not be negative, got %s", c.AdmitClockSkew)
	}
	if c.AdmitPastHorizon <= 0 {
		return fmt.Errorf("ADMIT_PAST_HORIZON must be positive, got %s", c.AdmitPastHorizon)
	}
	return nil
}
