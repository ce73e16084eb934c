package telegram

import (
	"context"

	"relaybridge/relay"
	"relaybridge/utils"

	"github.com/PaulSonOfLars/gotgbot/v2"
)

// BotSender delivers relay messages through the Telegram Bot API.
type BotSender struct {
	bot *gotgbot.Bot
}

func NewBotSender(b *gotgbot.Bot) *BotSender {
	return &BotSender{bot: b}
}

func (s *BotSender) SendText(ctx context.Context, chatID int64, text string, action *relay.ReplyAction) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	opts := &gotgbot.SendMessageOpts{ParseMode: utils.ParseModeHTML}
	if action != nil {
		opts.ReplyMarkup = ReplyKeyboard(action)
	}

	msg, err := s.bot.SendMessage(chatID, text, opts)
	if err != nil {
		return 0, err
	}
	return msg.MessageId, nil
}

func ReplyKeyboard(action *relay.ReplyAction) gotgbot.InlineKeyboardMarkup {
	return gotgbot.InlineKeyboardMarkup{
		InlineKeyboard: [][]gotgbot.InlineKeyboardButton{{
			{
				Text:         action.Text,
				CallbackData: action.Payload,
			},
		}},
	}
}
