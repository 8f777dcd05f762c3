// config/overlay.go
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const envPrefix = "JOBAGG_"

// OverlayEnv loads .env files (missing ones are ignored) and applies JOBAGG_*
// variables on top of cfg. Variables already set in the process win over
// .env entries.
func OverlayEnv(cfg *Config, envFiles ...string) error {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	if v, ok := lookup("DATA_DIR"); ok {
		cfg.App.DataDir = v
	}
	if v, ok := lookup("PORT"); ok {
		p, err := strconv.Atoi(v)
		if err != nil {
			return errors.New(envPrefix + "PORT must be an integer")
		}
		cfg.App.Port = p
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.App.LogLevel = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok {
		cfg.App.LogFormat = v
	}
	if v, ok := lookup("USER_AGENT"); ok {
		cfg.Fetch.UserAgent = v
	}
	if v, ok := lookup("PROXIES"); ok {
		cfg.Fetch.Proxies = strings.Split(v, ",")
	}
	if v, ok := lookup("DESCRIPTORS_PATH"); ok {
		cfg.Sources.DescriptorsPath = v
	}
	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
