package relay

import (
	"fmt"
	"strconv"
	"strings"
)

// ReplyActionPrefix starts every reply callback payload, e.g. "reply_42".
const ReplyActionPrefix = "reply_"

// ReplyPayload builds the callback payload for a reply to userID.
func ReplyPayload(userID int64) string {
	return ReplyActionPrefix + strconv.FormatInt(userID, 10)
}

// ParseReplyPayload extracts the user identity from a reply callback payload.
func ParseReplyPayload(payload string) (int64, error) {
	raw, ok := strings.CutPrefix(payload, ReplyActionPrefix)
	if !ok || raw == "" {
		return 0, fmt.Errorf("%w: reply payload %q", ErrInvalidArgument, payload)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: reply payload %q", ErrInvalidArgument, payload)
	}
	return id, nil
}

// ParseAdminID reads the identity argument of /add_admin. args is the
// whitespace split command text, command name included.
func ParseAdminID(args []string) (int64, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%w: missing admin id", ErrInvalidArgument)
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: admin id %q is not an integer", ErrInvalidArgument, args[1])
	}
	return id, nil
}

// ParseIDList parses whitespace separated integer identities.
func ParseIDList(s string) ([]int64, error) {
	fields := strings.Fields(s)
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: identity %q is not an integer", ErrInvalidArgument, f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
