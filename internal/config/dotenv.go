package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the given files (default ".env").
// A missing file is reported as loaded=false, not as an error.
func LoadDotEnv(paths ...string) (bool, error) {
	err := godotenv.Load(paths...)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
