package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"relaybridge/database"
	"relaybridge/relay"
	"relaybridge/state"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"go.uber.org/zap"
)

type apiCall struct {
	method string
	params map[string]string
}

// fakeBotAPI is a minimal Telegram Bot API server that records calls.
type fakeBotAPI struct {
	mu      sync.Mutex
	calls   []apiCall
	blocked map[string]bool
	nextID  int64
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	params := readParams(r)

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{method: method, params: params})
	blocked := f.blocked[params["chat_id"]]
	f.nextID++
	msgID := f.nextID
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case blocked:
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`)
	case method == "sendMessage":
		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d,"date":0,"chat":{"id":%s,"type":"private"}}}`, msgID, params["chat_id"])
	default:
		io.WriteString(w, `{"ok":true,"result":true}`)
	}
}

func readParams(r *http.Request) map[string]string {
	params := make(map[string]string)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		body, _ := io.ReadAll(r.Body)
		var raw map[string]any
		decoder := json.NewDecoder(bytes.NewReader(body))
		decoder.UseNumber()
		if err := decoder.Decode(&raw); err == nil {
			for k, v := range raw {
				switch v := v.(type) {
				case string:
					params[k] = v
				case json.Number:
					params[k] = v.String()
				default:
					encoded, _ := json.Marshal(v)
					params[k] = string(encoded)
				}
			}
		}
		return params
	}

	if mediaType == "multipart/form-data" {
		r.ParseMultipartForm(1 << 20)
	} else {
		r.ParseForm()
	}
	for k, v := range r.Form {
		params[k] = v[0]
	}
	return params
}

func (f *fakeBotAPI) sent(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeBotAPI) messagesTo(chatID int64) []apiCall {
	var out []apiCall
	for _, c := range f.sent("sendMessage") {
		if c.params["chat_id"] == fmt.Sprint(chatID) {
			out = append(out, c)
		}
	}
	return out
}

type testBridge struct {
	api        *fakeBotAPI
	bot        *gotgbot.Bot
	dispatcher *ext.Dispatcher
	bridge     *Bridge
	store      *database.Store
	pending    *relay.PendingTable
}

func newTestBridge(t *testing.T, admins ...int64) *testBridge {
	t.Helper()

	api := &fakeBotAPI{blocked: make(map[string]bool)}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	b, err := gotgbot.NewBot("123456:test-token", &gotgbot.BotOpts{
		DisableTokenCheck: true,
		BotClient: &gotgbot.BaseBotClient{
			Client: http.Client{},
			DefaultRequestOpts: &gotgbot.RequestOpts{
				Timeout: 5 * time.Second,
				APIURL:  server.URL,
			},
		},
	})
	if err != nil {
		t.Fatalf("NewBot: %v", err)
	}

	var cfg state.Config
	cfg.SetDefaults()
	cfg.SilentDbLogs = true
	cfg.Database.URL = fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	st := state.New(&cfg)

	db, err := database.Connect(&cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })
	store := database.NewStore(db)
	if err := store.AutoMigrate(); err != nil {
		t.Fatal(err)
	}

	pending := relay.NewPendingTable()
	router := relay.NewRouter(relay.RouterOpts{
		Registry:  relay.NewRegistry(admins...),
		Pending:   pending,
		Sender:    NewBotSender(b),
		Envelopes: store,
	})

	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{})
	bridge := NewBridge(st, router, store)
	bridge.AddTelegramHandlers(dispatcher)

	return &testBridge{
		api:        api,
		bot:        b,
		dispatcher: dispatcher,
		bridge:     bridge,
		store:      store,
		pending:    pending,
	}
}

func (tb *testBridge) text(t *testing.T, from int64, text string, replyTo int64) {
	t.Helper()
	msg := &gotgbot.Message{
		MessageId: 1000,
		Date:      time.Now().Unix(),
		Chat:      gotgbot.Chat{Id: from, Type: "private"},
		From:      &gotgbot.User{Id: from, FirstName: fmt.Sprintf("User%d", from)},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		command, _, _ := strings.Cut(text, " ")
		msg.Entities = []gotgbot.MessageEntity{{Type: "bot_command", Offset: 0, Length: int64(len(command))}}
	}
	if replyTo != 0 {
		msg.ReplyToMessage = &gotgbot.Message{
			MessageId: replyTo,
			Chat:      gotgbot.Chat{Id: from, Type: "private"},
		}
	}
	if err := tb.dispatcher.ProcessUpdate(tb.bot, &gotgbot.Update{UpdateId: 1, Message: msg}, nil); err != nil {
		t.Fatalf("ProcessUpdate(%q): %v", text, err)
	}
}

func (tb *testBridge) callback(t *testing.T, from int64, data string) {
	t.Helper()
	update := &gotgbot.Update{
		UpdateId: 2,
		CallbackQuery: &gotgbot.CallbackQuery{
			Id:   "cb-1",
			From: gotgbot.User{Id: from, FirstName: "Admin"},
			Data: data,
		},
	}
	if err := tb.dispatcher.ProcessUpdate(tb.bot, update, nil); err != nil {
		t.Fatalf("ProcessUpdate(callback %q): %v", data, err)
	}
}

func TestBridgeComplaintAndReply(t *testing.T) {
	tb := newTestBridge(t, 100)

	tb.text(t, 7, "hello", 0)

	if msgs := tb.api.messagesTo(7); len(msgs) != 1 || msgs[0].params["text"] != relay.MsgUserAck {
		t.Fatalf("user 7 received %+v", msgs)
	}
	envelopes := tb.api.messagesTo(100)
	if len(envelopes) != 1 {
		t.Fatalf("admin received %d messages, want 1", len(envelopes))
	}
	envelope := envelopes[0].params
	if !strings.Contains(envelope["text"], "hello") || envelope["parse_mode"] != "HTML" {
		t.Errorf("envelope = %+v", envelope)
	}
	var markup gotgbot.InlineKeyboardMarkup
	if err := json.Unmarshal([]byte(envelope["reply_markup"]), &markup); err != nil {
		t.Fatalf("reply_markup %q: %v", envelope["reply_markup"], err)
	}
	if got := markup.InlineKeyboard[0][0].CallbackData; got != "reply_7" {
		t.Errorf("callback data = %q, want reply_7", got)
	}

	contact, found := tb.store.ContactGet(7)
	if !found || contact.FirstName != "User7" {
		t.Errorf("contact not saved: %+v", contact)
	}

	tb.callback(t, 100, "reply_7")
	if len(tb.api.sent("answerCallbackQuery")) != 1 {
		t.Error("callback query was not answered")
	}
	if tb.pending.Len() != 1 {
		t.Fatal("reply action did not record a pending reply")
	}

	tb.text(t, 100, "ok, fixed", 0)
	userMsgs := tb.api.messagesTo(7)
	if len(userMsgs) != 2 || !strings.Contains(userMsgs[1].params["text"], "ok, fixed") {
		t.Fatalf("user 7 messages = %+v", userMsgs)
	}
	adminMsgs := tb.api.messagesTo(100)
	if last := adminMsgs[len(adminMsgs)-1].params["text"]; last != relay.FormatReplySent(7) {
		t.Errorf("admin confirmation = %q", last)
	}
}

func TestBridgeQuotedEnvelopeReply(t *testing.T) {
	tb := newTestBridge(t, 100)

	tb.text(t, 7, "hello", 0)

	// The fake server numbers messages in call order: ack is 1, envelope is 2.
	userId, found, err := tb.store.EnvelopeGetUser(100, 2)
	if err != nil || !found || userId != 7 {
		t.Fatalf("envelope not recorded: (%d, %v, %v)", userId, found, err)
	}

	tb.text(t, 100, "answer by quote", 2)

	userMsgs := tb.api.messagesTo(7)
	if len(userMsgs) != 2 || !strings.Contains(userMsgs[1].params["text"], "answer by quote") {
		t.Fatalf("user 7 messages = %+v", userMsgs)
	}
	if tb.pending.Len() != 0 {
		t.Error("quoted reply must not touch pending replies")
	}
}

func TestBridgeNothingPending(t *testing.T) {
	tb := newTestBridge(t, 100)

	tb.text(t, 100, "anything", 0)

	calls := tb.api.sent("sendMessage")
	if len(calls) != 1 || calls[0].params["text"] != relay.MsgNothingPending {
		t.Fatalf("calls = %+v", calls)
	}
}

func TestBridgeAddAdminCommand(t *testing.T) {
	tb := newTestBridge(t, 100)

	tb.text(t, 200, "/add_admin 300", 0)
	if msgs := tb.api.messagesTo(200); len(msgs) != 1 || msgs[0].params["text"] != relay.MsgUnauthorized {
		t.Fatalf("non-admin received %+v", msgs)
	}
	if len(tb.api.messagesTo(100)) != 0 {
		t.Error("a command must not be relayed as a complaint")
	}

	tb.text(t, 100, "/add_admin 300", 0)
	if msgs := tb.api.messagesTo(100); len(msgs) != 1 || msgs[0].params["text"] != relay.MsgAdminAdded {
		t.Fatalf("admin received %+v", msgs)
	}

	tb.text(t, 7, "new complaint", 0)
	if len(tb.api.messagesTo(300)) != 1 {
		t.Error("new admin did not receive the envelope")
	}
}

func TestBridgeBlockedAdmin(t *testing.T) {
	tb := newTestBridge(t, 100, 101)
	tb.api.blocked["101"] = true

	tb.text(t, 7, "hello", 0)

	if len(tb.api.messagesTo(100)) != 1 {
		t.Error("healthy admin did not receive the envelope")
	}
	if msgs := tb.api.messagesTo(7); len(msgs) != 1 {
		t.Errorf("user received %d messages, want the acknowledgment", len(msgs))
	}
}

func TestBridgeMalformedCallback(t *testing.T) {
	tb := newTestBridge(t, 100)

	tb.callback(t, 100, "reply_oops")

	if tb.pending.Len() != 0 {
		t.Error("malformed payload created a pending reply")
	}
	answers := tb.api.sent("answerCallbackQuery")
	if len(answers) != 1 || answers[0].params["text"] == "" {
		t.Errorf("answers = %+v, want an explanatory answer", answers)
	}
	if msgs := tb.api.messagesTo(100); len(msgs) != 1 || msgs[0].params["text"] != relay.MsgInvalidReplyAction {
		t.Errorf("admin received %+v", msgs)
	}
}

func lastText(calls []apiCall) string {
	if len(calls) == 0 {
		return ""
	}
	return calls[len(calls)-1].params["text"]
}

func TestBridgeFindUser(t *testing.T) {
	tb := newTestBridge(t, 100)
	tb.text(t, 7, "hello", 0)
	tb.text(t, 8, "hi", 0)

	tests := []struct {
		name   string
		from   int64
		text   string
		want   []string
		absent []string
	}{
		{"fuzzy name", 100, "/finduser user7", []string{"<code>7</code>"}, []string{"<code>8</code>"}},
		{"user id", 100, "/finduser 8", []string{"<code>8</code>"}, []string{"<code>7</code>"}},
		{"no match", 100, "/finduser zzz", []string{"No matching results"}, nil},
		{"missing query", 100, "/finduser", []string{"Usage", "/finduser"}, nil},
		{"non-admin", 7, "/finduser user7", []string{relay.MsgUnauthorized}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb.text(t, tt.from, tt.text, 0)
			got := lastText(tb.api.messagesTo(tt.from))
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("reply %q does not contain %q", got, want)
				}
			}
			for _, absent := range tt.absent {
				if strings.Contains(got, absent) {
					t.Errorf("reply %q contains %q", got, absent)
				}
			}
		})
	}
}

func TestBridgeHelp(t *testing.T) {
	tb := newTestBridge(t, 100, 50)
	adminOnly := []string{"/add_admin", "/admins", "/finduser"}

	tb.text(t, 7, "/help", 0)
	userHelp := lastText(tb.api.messagesTo(7))
	for _, cmd := range []string{"/start", "/help"} {
		if !strings.Contains(userHelp, cmd) {
			t.Errorf("user help %q misses %s", userHelp, cmd)
		}
	}
	for _, cmd := range adminOnly {
		if strings.Contains(userHelp, cmd) {
			t.Errorf("user help %q lists admin command %s", userHelp, cmd)
		}
	}

	tb.text(t, 100, "/help", 0)
	adminHelp := lastText(tb.api.messagesTo(100))
	for _, cmd := range append([]string{"/start", "/help"}, adminOnly...) {
		if !strings.Contains(adminHelp, cmd) {
			t.Errorf("admin help %q misses %s", adminHelp, cmd)
		}
	}
}

func TestBridgeListAdmins(t *testing.T) {
	tb := newTestBridge(t, 100, 50)

	tb.text(t, 7, "/admins", 0)
	if got := lastText(tb.api.messagesTo(7)); got != relay.MsgUnauthorized {
		t.Errorf("non-admin /admins reply = %q", got)
	}

	tb.text(t, 100, "/admins", 0)
	got := lastText(tb.api.messagesTo(100))
	if !strings.Contains(got, "There are 2 administrators") {
		t.Errorf("admin /admins reply = %q", got)
	}
	first, second := strings.Index(got, "<code>50</code>"), strings.Index(got, "<code>100</code>")
	if first < 0 || second < 0 || first > second {
		t.Errorf("admins not listed in order: %q", got)
	}
}

func TestBridgeCommandsRegistered(t *testing.T) {
	tb := newTestBridge(t, 100)

	names := make(map[string]bool)
	for _, c := range tb.bridge.state.TelegramCommands {
		names[c.Command] = true
	}
	for _, want := range []string{"start", "help", "add_admin", "admins", "finduser"} {
		if !names[want] {
			t.Errorf("command %q not registered", want)
		}
	}
}

func TestSendStartupMessage(t *testing.T) {
	tb := newTestBridge(t, 100, 101)
	tb.bridge.state.Config.Telegram.OwnerID = 5
	tb.api.blocked["101"] = true

	tb.bridge.SendStartupMessage(context.Background(), NewBotSender(tb.bot))

	for _, id := range []int64{100, 5} {
		if len(tb.api.messagesTo(id)) != 1 {
			t.Errorf("chat %d did not get the startup message", id)
		}
	}
}
