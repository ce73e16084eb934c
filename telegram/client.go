package telegram

import (
	"fmt"
	"net/http"
	"time"

	"relaybridge/state"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"go.uber.org/zap"
)

const requestTimeout = 30 * time.Second

// NewTelegramClient creates the bot, dispatcher and updater and stores them
// in st. Handlers are added separately with Bridge.AddTelegramHandlers.
func NewTelegramClient(st *state.State) error {
	cfg := st.Config
	logger := st.Logger.Named("telegram")

	bot, err := gotgbot.NewBot(cfg.Telegram.BotToken, &gotgbot.BotOpts{
		BotClient: &gotgbot.BaseBotClient{
			Client: http.Client{},
			DefaultRequestOpts: &gotgbot.RequestOpts{
				Timeout: requestTimeout,
				APIURL:  cfg.Telegram.APIURL,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create bot : %w", err)
	}

	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *gotgbot.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			fields := []zap.Field{zap.Error(err)}
			if ctx.EffectiveSender != nil {
				fields = append(fields, zap.Int64("sender_id", ctx.EffectiveSender.Id()))
			}
			logger.Error("failed to handle update", fields...)
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})

	st.TelegramBot = bot
	st.TelegramDispatcher = dispatcher
	st.TelegramUpdater = ext.NewUpdater(dispatcher, nil)

	logger.Info("successfully logged into telegram",
		zap.Int64("id", bot.Id),
		zap.String("username", bot.Username),
	)
	return nil
}

// StartPolling begins fetching updates for the bot in st.
func StartPolling(st *state.State) error {
	cfg := st.Config
	return st.TelegramUpdater.StartPolling(st.TelegramBot, &ext.PollingOpts{
		DropPendingUpdates: cfg.Telegram.DropPendingUpdates,
		GetUpdatesOpts: &gotgbot.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &gotgbot.RequestOpts{
				Timeout: 10 * time.Second,
				APIURL:  cfg.Telegram.APIURL,
			},
			AllowedUpdates: []string{"message", "callback_query"},
		},
	})
}
