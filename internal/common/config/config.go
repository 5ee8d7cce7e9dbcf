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

	Storage struct {
		// Backend selects the persistence gateway: file, redis or database.
		Backend  string `env:"STORAGE_BACKEND" envDefault:"file"`
		FilePath string `env:"STORAGE_FILE_PATH" envDefault:"giveaways.json"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Database struct {
		Driver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
		DSN    string `env:"DATABASE_DSN" envDefault:"giveaways.db"`
	}

	Giveaway struct {
		// SweepInterval is the authoritative scheduler tick.
		SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"10s"`

		// EndedRetention keeps ended giveaways around past their end
		// time before they are garbage collected.
		EndedRetention time.Duration `env:"ENDED_RETENTION" envDefault:"336h"`

		ReactionPageSize int    `env:"REACTION_PAGE_SIZE" envDefault:"100"`
		BotUserID        string `env:"BOT_USER_ID" envDefault:""`
		DefaultReaction  string `env:"DEFAULT_REACTION" envDefault:"🎉"`
	}
}

func Load() *Config {
	// Missing .env is fine; variables may be set directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}
