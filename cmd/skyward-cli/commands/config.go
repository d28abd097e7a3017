package commands

import (
	"fmt"
	"skyward-backend/lib/configutil"
	"skyward-backend/lib/notify"
	"skyward-backend/lib/skyward/session"
)

// Config is read from the --config json5 file, SKYWARD_* environment variables take
// priority over the file.
type Config struct {
	BaseUrl string        `json:"base_url" env:"SKYWARD_BASE_URL"`
	Codes   session.Codes `json:"codes"`
	// User keys the snapshots of this portal account in the grade store.
	User string `json:"user" env:"SKYWARD_USER" env-default:"default"`
	// Store is a sqlite path, it may use the `<dev_state>` prefix, or a libsql url.
	Store    string `json:"store" env:"SKYWARD_STORE" env-default:"<dev_state>/grades.db"`
	Timezone string `json:"timezone" env:"SKYWARD_TIMEZONE"`
	DumpDir  string `json:"dump_dir" env:"SKYWARD_DUMP_DIR"`

	Smtp     notify.SmtpConfig `json:"smtp"`
	NotifyTo []string          `json:"notify_to" env:"SKYWARD_NOTIFY_TO" env-separator:","`
}

func loadConfig() (Config, error) {
	config, err := configutil.ReadWithEnv[Config](configPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", configPath, err)
	}
	return config, nil
}
