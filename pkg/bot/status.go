package bot

import (
	"context"

	"github.com/virallabs/viralbot/pkg/logger"
)

// statusMessage is the single editable reply tracking one request. It is
// posted once and then only edited in place; the user sees one message whose
// text changes as the pipeline advances.
type statusMessage struct {
	msgr      messenger
	chatID    int64
	messageID int
	posted    bool
}

func newStatusMessage(msgr messenger, chatID int64) *statusMessage {
	return &statusMessage{msgr: msgr, chatID: chatID}
}

// post sends the initial status text. Failure is logged and the pipeline
// proceeds without a visible status surface.
func (s *statusMessage) post(ctx context.Context, text string) {
	id, err := s.msgr.sendMessage(ctx, s.chatID, text)
	if err != nil {
		logger.WarnCF("bot", "Failed to post status message", map[string]interface{}{
			"chat_id": s.chatID,
			"error":   err.Error(),
		})
		return
	}
	s.messageID = id
	s.posted = true
}

// edit replaces the status text in place. Edit failures (message deleted,
// permissions revoked, rate limit) are logged and never fatal.
func (s *statusMessage) edit(ctx context.Context, text string) {
	if !s.posted {
		return
	}
	if err := s.msgr.editMessageText(ctx, s.chatID, s.messageID, text); err != nil {
		logger.WarnCF("bot", "Failed to edit status message", map[string]interface{}{
			"chat_id":    s.chatID,
			"message_id": s.messageID,
			"error":      err.Error(),
		})
	}
}
