package telegram

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"relaybridge/database"
	"relaybridge/relay"
	"relaybridge/state"
	"relaybridge/utils"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"go.uber.org/zap"
)

const (
	DispatcherCommandHandlerGroup  = 0
	DispatcherCallbackHandlerGroup = 1
)

type relayBridgeCommand struct {
	command     handlers.Command
	description string
}

// Bridge wires Telegram updates to the relay router.
type Bridge struct {
	state    *state.State
	router   *relay.Router
	store    *database.Store
	logger   *zap.Logger
	commands []relayBridgeCommand
}

func NewBridge(st *state.State, router *relay.Router, store *database.Store) *Bridge {
	return &Bridge{
		state:  st,
		router: router,
		store:  store,
		logger: st.Logger.Named("telegram"),
	}
}

func (br *Bridge) AddTelegramHandlers(dispatcher *ext.Dispatcher) {
	br.commands = append(br.commands,
		relayBridgeCommand{
			handlers.NewCommand("start", br.StartCommandHandler),
			"Start the bot",
		},
		relayBridgeCommand{
			handlers.NewCommand("help", br.HelpCommandHandler),
			"Get all the available commands",
		},
		relayBridgeCommand{
			handlers.NewCommand("add_admin", br.AddAdminCommandHandler),
			"Add an administrator by user ID",
		},
		relayBridgeCommand{
			handlers.NewCommand("admins", br.ListAdminsHandler),
			"List the current administrators",
		},
		relayBridgeCommand{
			handlers.NewCommand("finduser", br.FindUserHandler),
			"Fuzzy find users who wrote in by name",
		},
	)

	for _, command := range br.commands {
		dispatcher.AddHandlerToGroup(command.command, DispatcherCommandHandlerGroup)
		if command.description != "" {
			br.state.TelegramCommands = append(br.state.TelegramCommands,
				gotgbot.BotCommand{
					Command:     command.command.Command,
					Description: command.description,
				},
			)
		}
	}

	// Registered after the commands so that they take precedence within the group.
	dispatcher.AddHandlerToGroup(handlers.NewMessage(
		func(msg *gotgbot.Message) bool {
			return msg.Chat.Type == "private" && msg.Text != ""
		}, br.TextMessageHandler,
	), DispatcherCommandHandlerGroup)

	dispatcher.AddHandlerToGroup(handlers.NewCallback(
		func(cq *gotgbot.CallbackQuery) bool {
			return strings.HasPrefix(cq.Data, relay.ReplyActionPrefix)
		}, br.ReplyCallbackHandler), DispatcherCallbackHandlerGroup)
}

func (br *Bridge) StartCommandHandler(b *gotgbot.Bot, c *ext.Context) error {
	return br.handled(c, br.router.HandleStart(context.Background(), c.EffectiveSender.Id()))
}

func (br *Bridge) AddAdminCommandHandler(b *gotgbot.Bot, c *ext.Context) error {
	return br.handled(c, br.router.HandleAddAdmin(context.Background(), c.EffectiveSender.Id(), c.Args()))
}

func (br *Bridge) TextMessageHandler(b *gotgbot.Bot, c *ext.Context) error {
	var (
		ctx    = context.Background()
		sender = c.EffectiveSender.Id()
		msg    = c.EffectiveMessage
	)

	if !br.router.IsAdmin(sender) {
		br.saveContact(c.EffectiveUser)
	} else if msg.ReplyToMessage != nil {
		if userId, found := br.envelopeTarget(msg.Chat.Id, msg.ReplyToMessage.MessageId); found {
			res, err := br.router.ReplyTo(ctx, sender, userId, msg.Text)
			br.logResult(sender, res)
			return br.handled(c, err)
		}
	}

	res, err := br.router.HandleText(ctx, sender, msg.Text)
	br.logResult(sender, res)
	return br.handled(c, err)
}

func (br *Bridge) ReplyCallbackHandler(b *gotgbot.Bot, c *ext.Context) error {
	cq := c.CallbackQuery

	err := br.router.HandleReplyAction(context.Background(), cq.From.Id, cq.Data)

	answer := &gotgbot.AnswerCallbackQueryOpts{}
	if err != nil {
		answer.Text = "Unable to start a reply"
	}
	if _, answerErr := cq.Answer(b, answer); answerErr != nil {
		br.logger.Warn("failed to answer callback query",
			zap.String("callback_id", cq.Id),
			zap.Error(answerErr),
		)
	}

	return br.handled(c, err)
}

func (br *Bridge) HelpCommandHandler(b *gotgbot.Bot, c *ext.Context) error {
	isAdmin := br.router.IsAdmin(c.EffectiveSender.Id())

	helpString := "Here are the available commands:\n\n"
	for _, command := range br.commands {
		name := command.command.Command
		if !isAdmin && name != "start" && name != "help" {
			continue
		}
		helpString += fmt.Sprintf("- <code>/%s</code> : %s\n",
			name, html.EscapeString(command.description))
	}

	_, err := utils.TgReplyTextByContext(b, c, helpString, nil, false)
	return err
}

func (br *Bridge) ListAdminsHandler(b *gotgbot.Bot, c *ext.Context) error {
	if !br.router.IsAdmin(c.EffectiveSender.Id()) {
		_, err := utils.TgReplyTextByContext(b, c, relay.MsgUnauthorized, nil, false)
		return err
	}

	admins := br.router.Admins()
	outputString := fmt.Sprintf("There are %d administrators:\n\n", len(admins))
	for _, id := range admins {
		outputString += fmt.Sprintf("- <code>%d</code>\n", id)
	}

	_, err := utils.TgReplyTextByContext(b, c, outputString, nil, false)
	return err
}

func (br *Bridge) FindUserHandler(b *gotgbot.Bot, c *ext.Context) error {
	if !br.router.IsAdmin(c.EffectiveSender.Id()) {
		_, err := utils.TgReplyTextByContext(b, c, relay.MsgUnauthorized, nil, false)
		return err
	}

	usageString := "Usage : <code>" + html.EscapeString("/finduser <search_string|user_id>") + "</code>\n"
	usageString += "Example : <code>/finduser ivan</code>"

	args := c.Args()
	if len(args) <= 1 {
		_, err := utils.TgReplyTextByContext(b, c, usageString, nil, false)
		return err
	}
	query := strings.Join(args[1:], " ")

	if userId, err := strconv.ParseInt(query, 10, 64); err == nil {
		if contact, found := br.store.ContactGet(userId); found {
			_, err = utils.TgReplyTextByContext(b, c, "- "+utils.ContactLabel(contact), nil, false)
			return err
		}
	}

	contacts, err := br.store.ContactGetAll()
	if err != nil {
		return utils.TgReplyWithErrorByContext(b, c, "Encountered error while finding users", err)
	}

	results := utils.FuzzyFindContacts(contacts, query)
	if len(results) == 0 {
		_, err = utils.TgReplyTextByContext(b, c, "No matching results found :(", nil, false)
		return err
	}

	outputString := fmt.Sprintf("Here are the %v matching users:\n\n", len(results))
	for _, contact := range results {
		outputString += "- " + utils.ContactLabel(contact) + "\n"

		if len(outputString) >= 1800 {
			if _, err := utils.TgReplyTextByContext(b, c, outputString, nil, false); err != nil {
				br.logger.Warn("failed to send finduser results",
					zap.Int64("chat_id", c.EffectiveChat.Id),
					zap.Error(err),
				)
			}
			time.Sleep(500 * time.Millisecond)
			outputString = ""
		}
	}

	if len(outputString) > 0 {
		_, err = utils.TgReplyTextByContext(b, c, outputString, nil, false)
		return err
	}
	return nil
}

// SendStartupMessage tells the seeded admins and the owner that the bridge is up.
func (br *Bridge) SendStartupMessage(ctx context.Context, sender relay.Sender) {
	recipients := br.router.Admins()
	if owner := br.state.Config.Telegram.OwnerID; owner != 0 && !br.router.IsAdmin(owner) {
		recipients = append(recipients, owner)
	}

	text := "Successfully started the relay bridge\n\n" + br.state.Uptime()
	for _, id := range recipients {
		if _, err := sender.SendText(ctx, id, text, nil); err != nil {
			br.logger.Warn("failed to send startup message",
				zap.Int64("chat_id", id),
				zap.Error(err),
			)
		}
	}
}

func (br *Bridge) saveContact(user *gotgbot.User) {
	if br.store == nil || user == nil {
		return
	}
	err := br.store.ContactAddOrUpdate(database.Contact{
		UserId:    user.Id,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Username:  user.Username,
	})
	if err != nil {
		br.logger.Error("failed to save contact",
			zap.Int64("user_id", user.Id),
			zap.Error(err),
		)
	}
}

func (br *Bridge) envelopeTarget(chatId, msgId int64) (int64, bool) {
	if br.store == nil {
		return 0, false
	}
	userId, found, err := br.store.EnvelopeGetUser(chatId, msgId)
	if err != nil {
		br.logger.Error("failed to look up envelope",
			zap.Int64("chat_id", chatId),
			zap.Int64("message_id", msgId),
			zap.Error(err),
		)
		return 0, false
	}
	return userId, found
}

func (br *Bridge) logResult(sender int64, res relay.RouteResult) {
	fields := []zap.Field{
		zap.Int64("sender_id", sender),
		zap.Stringer("outcome", res.Outcome),
	}
	if res.Target != 0 {
		fields = append(fields, zap.Int64("user_id", res.Target))
	}
	if res.Report != nil {
		fields = append(fields,
			zap.Int("sent", res.Report.Sent()),
			zap.Int("failed", res.Report.Failed()),
		)
	}
	if res.Err != nil {
		fields = append(fields, zap.NamedError("route_error", res.Err))
	}
	br.logger.Debug("routed message", fields...)
}

// handled drops conditions the router already answered, so that only
// transport failures reach the dispatcher's error handler.
func (br *Bridge) handled(c *ext.Context, err error) error {
	if err == nil {
		return nil
	}
	if relay.IsReported(err) {
		br.logger.Debug("request rejected",
			zap.Int64("sender_id", c.EffectiveSender.Id()),
			zap.Error(err),
		)
		return nil
	}
	return err
}
