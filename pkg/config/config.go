// Package config loads typed configuration structs from environment
// variables. A local .env file, when present, is loaded once before the
// first parse; real environment variables always win over .env values.
//
// Example:
//
//	type MongoConfig struct {
//		URI      string `env:"MONGO_URI,required"`
//		Database string `env:"MONGO_DB" envDefault:"brokerpad"`
//	}
//
//	var cfg MongoConfig
//	config.MustLoad(&cfg)
package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrNilPointer is returned when Load receives a nil destination.
	ErrNilPointer = errors.New("config: nil pointer provided")

	// ErrParsingConfig is returned when environment variables cannot be
	// parsed into the destination struct.
	ErrParsingConfig = errors.New("config: failed to parse environment variables")
)

var dotenvOnce sync.Once

// Load parses environment variables into the provided struct based on
// its env tags. Missing required variables fail with ErrParsingConfig.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	dotenvOnce.Do(func() {
		// The .env file is optional.
		_ = godotenv.Load()
	})

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad works like Load but panics on failure. Intended for startup
// configuration without which the process cannot run.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}
