package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// loadEnvFile loads .env and .env.local from dir when present.
// godotenv.Load never overrides variables already set in the process environment.
func loadEnvFile(dir string) error {
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "load environment file").
				Fatal().WithContext("path", path).Build()
		}
	}
	return nil
}
