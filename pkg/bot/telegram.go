package bot

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/virallabs/viralbot/pkg/analyzer"
	"github.com/virallabs/viralbot/pkg/config"
	"github.com/virallabs/viralbot/pkg/extractor"
	"github.com/virallabs/viralbot/pkg/intake"
	"github.com/virallabs/viralbot/pkg/logger"
	"github.com/virallabs/viralbot/pkg/storage"
	"github.com/virallabs/viralbot/pkg/utils"
)

// Bot subscribes to Telegram updates, filters them down to videos from the
// target chat, and hands each one to the processing pipeline.
type Bot struct {
	bot      *telego.Bot
	config   config.TelegramConfig
	filter   *intake.ChatFilter
	pipeline *Pipeline
}

func New(cfg config.TelegramConfig, store *storage.Store, frames *extractor.Extractor, insights *analyzer.Analyzer) (*Bot, error) {
	tgBot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	b := &Bot{
		bot:    tgBot,
		config: cfg,
		filter: intake.NewChatFilter(cfg.TargetChat),
	}
	b.pipeline = NewPipeline(b, b, store, frames, insights)

	return b, nil
}

// Start begins long polling and dispatches updates until the context is
// cancelled. Each accepted video is processed in its own goroutine so a slow
// download or inference call never stalls intake.
func (b *Bot) Start(ctx context.Context) error {
	logger.InfoC("telegram", "Starting Telegram bot (polling mode)...")

	updates, err := b.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: 30,
	})
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	logger.InfoCF("telegram", "Telegram bot connected", map[string]interface{}{
		"username":    b.bot.Username(),
		"target_chat": b.filter.Target(),
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					logger.InfoC("telegram", "Updates channel closed")
					return
				}
				if update.Message != nil {
					b.handleMessage(ctx, update.Message)
				}
			}
		}
	}()

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, message *telego.Message) {
	kind := intake.Classify(message)

	fields := map[string]interface{}{
		"kind":    kind.String(),
		"chat_id": message.Chat.ID,
	}
	if message.Chat.Title != "" {
		fields["chat_title"] = message.Chat.Title
	}
	if message.Chat.Username != "" {
		fields["chat_username"] = message.Chat.Username
	}
	logger.DebugCF("telegram", "Received message", fields)

	if !b.filter.Allow(message.Chat.ID, message.Chat.Username) {
		logger.DebugCF("telegram", "Ignoring message from non-target chat", map[string]interface{}{
			"chat_id": message.Chat.ID,
		})
		return
	}

	ref, ok := intake.SelectVideo(message)
	if !ok {
		// No video, video note, or video-mime document: nothing to do.
		return
	}

	logger.InfoCF("telegram", "Processing video message", map[string]interface{}{
		"chat_id":  message.Chat.ID,
		"file_id":  ref.FileID,
		"duration": ref.Info.Duration,
		"size":     ref.Info.FileSize,
	})

	go b.pipeline.Process(ctx, message.Chat.ID, ref)
}

// sendMessage posts a new Markdown message and returns its message id.
func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	params := tu.Message(tu.ID(chatID), text)
	params.ParseMode = telego.ModeMarkdown

	msg, err := b.bot.SendMessage(ctx, params)
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// editMessageText mutates an already-sent message in place.
func (b *Bot) editMessageText(ctx context.Context, chatID int64, messageID int, text string) error {
	params := tu.EditMessageText(tu.ID(chatID), messageID, text)
	params.ParseMode = telego.ModeMarkdown

	_, err := b.bot.EditMessageText(ctx, params)
	return err
}

// fetchFile downloads the remote media into a private temp directory and
// returns the local path. The caller owns the file.
func (b *Bot) fetchFile(ctx context.Context, fileID string) (string, error) {
	file, err := b.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("get file info: %w", err)
	}
	if file.FilePath == "" {
		return "", fmt.Errorf("file %s has no download path", fileID)
	}

	url := b.bot.FileDownloadURL(file.FilePath)

	filename := filepath.Base(file.FilePath)
	if filepath.Ext(filename) == "" {
		filename += ".mp4"
	}

	return utils.DownloadFile(url, filename, utils.DownloadOptions{
		LoggerPrefix: "telegram",
	})
}

// DiscoverChats polls updates and logs each chat's identity instead of
// processing anything. Useful once at setup time to find the numeric id of a
// group or channel for the target chat setting.
func (b *Bot) DiscoverChats(ctx context.Context) error {
	logger.InfoC("telegram", "Chat discovery mode: send a message in the target chat, ids are logged here")

	updates, err := b.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: 30,
	})
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			chat := update.Message.Chat
			logger.InfoCF("telegram", "Chat seen", map[string]interface{}{
				"chat_id":  chat.ID,
				"type":     chat.Type,
				"title":    chat.Title,
				"username": chat.Username,
			})
		}
	}
}
