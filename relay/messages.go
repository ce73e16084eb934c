package relay

import (
	"fmt"
	"html"
)

// Texts are sent with HTML parse mode.
const (
	MsgStartAdmin         = "🔹 You are an administrator. You can reply to users' messages."
	MsgStartUser          = "Hello!\n\nPlease send your complaint or suggestion in a single message and wait for confirmation."
	MsgUserAck            = "✅ Your message has been received.\n\nThank you!"
	MsgNothingPending     = "❌ No pending replies."
	MsgUnauthorized       = "❌ You do not have permission to use this command."
	MsgAlreadyAdmin       = "⚠ This user is already an administrator."
	MsgAdminAdded         = "✅ Administrator added!"
	MsgInvalidReplyAction = "❌ This reply button is no longer valid."

	ReplyButtonText = "Reply"
)

var MsgAddAdminUsage = "❌ Use the command in the format: <code>" + html.EscapeString("/add_admin <ID>") + "</code>"

func FormatEnvelope(userID int64, text string) string {
	return fmt.Sprintf("📩 <b>New message from user <code>%d</code>:</b>\n\n%s", userID, html.EscapeString(text))
}

func FormatAdminReply(text string) string {
	return "📩 <b>Reply from the administration:</b>\n\n" + html.EscapeString(text)
}

func FormatReplySent(userID int64) string {
	return fmt.Sprintf("✅ Reply sent to user <code>%d</code>.", userID)
}

func FormatReplyFailed(userID int64, err error) string {
	return fmt.Sprintf("❌ Failed to deliver the reply to user <code>%d</code>: %s", userID, html.EscapeString(err.Error()))
}

func FormatReplyPrompt(userID int64) string {
	return fmt.Sprintf("✍ Type your reply for user <code>%d</code>.", userID)
}
