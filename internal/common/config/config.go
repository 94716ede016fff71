package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Resolver struct {
		BaseURL     string        `env:"RESOLVER_BASE_URL" envDefault:"https://www.imvu.com"`
		Timeout     time.Duration `env:"RESOLVER_TIMEOUT" envDefault:"10s"`
		Concurrency int64         `env:"RESOLVER_CONCURRENCY" envDefault:"4"`
	}

	Cache struct {
		// TTL for successful token->sponsor resolutions.
		TokenTTL time.Duration `env:"TOKEN_CACHE_TTL" envDefault:"168h"`
		// Independent, short TTL for definitive "no sponsor found" results.
		NegativeTTL time.Duration `env:"NEGATIVE_CACHE_TTL" envDefault:"15m"`
	}

	Draw struct {
		TickInterval       time.Duration `env:"TICK_INTERVAL" envDefault:"30s"`
		MaxConcurrentDraws int           `env:"MAX_CONCURRENT_DRAWS" envDefault:"10"`
		// Strict mode leaves unmatched winner slots empty instead of
		// filling them from the unconstrained pool.
		Strict bool `env:"STRICT_ALLOCATION" envDefault:"false"`
	}

	WinHistory struct {
		Mode         string `env:"WIN_POLICY" envDefault:"cooldown"` // cooldown | lifetime
		CooldownDays int    `env:"WIN_COOLDOWN_DAYS" envDefault:"7"`
	}

	Entry struct {
		MinTokens int `env:"MIN_TOKENS" envDefault:"1"`
	}
}

func Load() *Config {
	// .env is optional; in production the variables are set directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}
