package utils

import (
	"fmt"
	"html"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

const ParseModeHTML = "HTML"

func TgRegisterBotCommands(b *gotgbot.Bot, commands ...gotgbot.BotCommand) error {
	if len(commands) == 0 {
		_, err := b.DeleteMyCommands(nil)
		return err
	}
	_, err := b.SetMyCommands(commands, nil)
	return err
}

func TgReplyTextByContext(b *gotgbot.Bot, c *ext.Context, text string, buttons *gotgbot.InlineKeyboardMarkup, silent bool) (*gotgbot.Message, error) {
	opts := &gotgbot.SendMessageOpts{
		ParseMode:           ParseModeHTML,
		DisableNotification: silent,
		ReplyParameters: &gotgbot.ReplyParameters{
			MessageId:                c.EffectiveMessage.MessageId,
			AllowSendingWithoutReply: true,
		},
	}
	if buttons != nil {
		opts.ReplyMarkup = *buttons
	}
	return b.SendMessage(c.EffectiveChat.Id, text, opts)
}

func TgReplyWithErrorByContext(b *gotgbot.Bot, c *ext.Context, eMessage string, e error) error {
	_, err := TgReplyTextByContext(b, c,
		fmt.Sprintf("%s:\n\n<code>%s</code>", eMessage, html.EscapeString(e.Error())), nil, false)
	return err
}
