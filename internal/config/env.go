package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// DotEnvFile is read from the config file's directory for secret overrides.
const DotEnvFile = ".env"

// secretsLookup returns an environment lookup that consults the process
// environment first and then the .env file next to configPath. The .env file
// is optional and never modifies the process environment.
func secretsLookup(configPath string) (envLookup, error) {
	if configPath == "" {
		return os.LookupEnv, nil
	}
	path := filepath.Join(filepath.Dir(configPath), DotEnvFile)
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return os.LookupEnv, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
		value, ok := values[key]
		return value, ok
	}, nil
}
