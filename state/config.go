package state

import (
	"errors"
	"fmt"
	"io"
	"os"

	"relaybridge/relay"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultConfigPath = "config.yaml"

const (
	EnvBotToken = "BOT_TOKEN"
	EnvAdminIDs = "ADMIN_ID"
)

type Config struct {
	Path         string `yaml:"-"`
	TimeZone     string `yaml:"time_zone"`
	TimeFormat   string `yaml:"time_format"`
	DebugMode    bool   `yaml:"debug_mode"`
	SilentDbLogs bool   `yaml:"silent_db_logs"`

	Telegram struct {
		BotToken             string  `yaml:"bot_token"`
		APIURL               string  `yaml:"api_url"`
		AdminIDs             []int64 `yaml:"admin_ids"`
		OwnerID              int64   `yaml:"owner_id"`
		SkipStartupMessage   bool    `yaml:"skip_startup_message"`
		RemoveBotCommands    bool    `yaml:"remove_bot_commands"`
		DropPendingUpdates   bool    `yaml:"drop_pending_updates"`
		BroadcastConcurrency int     `yaml:"broadcast_concurrency"`

		// Deprecated: use admin_ids.
		SudoUsersID []int64 `yaml:"sudo_users_id,omitempty"`
	} `yaml:"telegram"`

	Database struct {
		Type string `yaml:"type"`
		URL  string `yaml:"url"`
	} `yaml:"database"`
}

// LoadConfig reads the yaml file at cfg.Path. A missing file is not an error
// when the path is the default one, so the bridge can run from the
// environment alone.
func (cfg *Config) LoadConfig() error {
	configFilePath := cfg.Path

	if _, err := os.Stat(configFilePath); err != nil {
		if errors.Is(err, os.ErrNotExist) && configFilePath == DefaultConfigPath {
			return nil
		}
		return fmt.Errorf("error with config file path : %s", err)
	}

	configFile, err := os.Open(configFilePath)
	if err != nil {
		return fmt.Errorf("could not open config file : %s", err)
	}
	defer configFile.Close()

	configBody, err := io.ReadAll(configFile)
	if err != nil {
		return fmt.Errorf("could not read config file : %s", err)
	}

	err = yaml.Unmarshal(configBody, cfg)
	if err != nil {
		return fmt.Errorf("could not parse config file : %s", err)
	}

	deprecatedOptions := GetDeprecatedConfigOptions(cfg)
	if deprecatedOptions != nil {
		fmt.Println("The following options have been deprecated/removed:")
		for num, opt := range deprecatedOptions {
			fmt.Printf("%d. %s: %s\n", num+1, opt.Name, opt.Description)
		}
	}

	return nil
}

// LoadEnv applies overrides from the process environment, after loading
// envFiles (default ".env") if they exist.
func (cfg *Config) LoadEnv(envFiles ...string) error {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not load env file : %s", err)
	}

	if token := os.Getenv(EnvBotToken); token != "" {
		cfg.Telegram.BotToken = token
	}

	ids, err := relay.ParseIDList(os.Getenv(EnvAdminIDs))
	if err != nil {
		return fmt.Errorf("could not parse %s : %w", EnvAdminIDs, err)
	}
	cfg.Telegram.AdminIDs = append(cfg.Telegram.AdminIDs, ids...)

	return nil
}

func (cfg *Config) Validate() error {
	if cfg.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token is not set (config telegram.bot_token or %s)", EnvBotToken)
	}
	return nil
}

func (cfg *Config) SetDefaults() {
	cfg.Path = DefaultConfigPath
	cfg.TimeZone = "UTC"
	cfg.TimeFormat = "2006-01-02 15:04:05"

	cfg.Telegram.APIURL = gotgbot.DefaultAPIURL
	cfg.Telegram.BroadcastConcurrency = relay.DefaultBroadcastConcurrency

	cfg.Database.Type = "sqlite3"
	cfg.Database.URL = "file::memory:?cache=shared"
}
