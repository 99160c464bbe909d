package intake

import (
	"strconv"
	"strings"
)

// ChatFilter enforces that processing happens only for messages originating
// from one configured target chat.
type ChatFilter struct {
	target string
}

func NewChatFilter(target string) *ChatFilter {
	return &ChatFilter{target: strings.TrimSpace(target)}
}

// Allow reports whether a message from the given chat may be processed.
// A target starting with '-' is a numeric chat id and is compared for exact
// string equality; anything else is treated as a public username, with a
// leading '@' stripped, compared case-sensitively. A username target denies
// chats that expose no username.
func (f *ChatFilter) Allow(chatID int64, username string) bool {
	if f.target == "" {
		return false
	}

	if strings.HasPrefix(f.target, "-") {
		return strconv.FormatInt(chatID, 10) == f.target
	}

	want := strings.TrimPrefix(f.target, "@")
	if username == "" {
		return false
	}
	return username == want
}

// Target returns the configured target specifier.
func (f *ChatFilter) Target() string {
	return f.target
}
