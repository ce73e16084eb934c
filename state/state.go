package state

import (
	"fmt"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const RELAYBRIDGE_VERSION = "1.0.0"

// State holds everything the bridge builds at startup. It is created once in
// main and handed to the components that need it.
type State struct {
	Config *Config
	Logger *zap.Logger

	Database *gorm.DB

	TelegramBot        *gotgbot.Bot
	TelegramDispatcher *ext.Dispatcher
	TelegramUpdater    *ext.Updater
	TelegramCommands   []gotgbot.BotCommand

	StartTime     time.Time
	LocalLocation *time.Location
}

func New(cfg *Config) *State {
	return &State{
		Config:        cfg,
		Logger:        zap.NewNop(),
		StartTime:     time.Now().UTC(),
		LocalLocation: time.UTC,
	}
}

// Uptime describes when the bridge started and how long it has been running.
func (s *State) Uptime() string {
	var (
		loc     = s.LocalLocation
		format  = s.Config.TimeFormat
		upTime  = time.Now().UTC().Sub(s.StartTime).Round(time.Second)
		message string
	)
	if loc == nil {
		loc = time.UTC
	}
	if format == "" {
		format = time.RFC1123
	}

	message += fmt.Sprintf("• <b>Up Since</b>: %s [ %s ]\n",
		s.StartTime.In(loc).Format(format),
		upTime.String(),
	)
	message += fmt.Sprintf("• <b>Version</b>: <code>%s</code>", RELAYBRIDGE_VERSION)
	return message
}
