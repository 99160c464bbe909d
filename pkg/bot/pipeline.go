package bot

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/virallabs/viralbot/pkg/analyzer"
	"github.com/virallabs/viralbot/pkg/intake"
	"github.com/virallabs/viralbot/pkg/logger"
	"github.com/virallabs/viralbot/pkg/storage"
)

// stage is the orchestrator's position in one request's lifecycle. The
// progression is linear; failure stages are terminal.
type stage int

const (
	stageReceived stage = iota
	stageStatusPosted
	stageDownloading
	stageDownloaded
	stageDownloadFailed
	stageExtracting
	stageExtracted
	stageExtractFailed
	stageAnalyzing
	stageAnalyzed
	stageAnalyzeFailed
	stageReplied
)

var stageNames = map[stage]string{
	stageReceived:       "received",
	stageStatusPosted:   "status_posted",
	stageDownloading:    "downloading",
	stageDownloaded:     "downloaded",
	stageDownloadFailed: "download_failed",
	stageExtracting:     "extracting",
	stageExtracted:      "extracted",
	stageAnalyzing:      "analyzing",
	stageAnalyzed:       "analyzed",
	stageAnalyzeFailed:  "analyze_failed",
	stageExtractFailed:  "extract_failed",
	stageReplied:        "replied",
}

func (s stage) String() string {
	return stageNames[s]
}

// Narrow collaborator interfaces so the pipeline can be driven by fakes in
// tests. The Telegram bot implements messenger and fileFetcher.

type messenger interface {
	sendMessage(ctx context.Context, chatID int64, text string) (int, error)
	editMessageText(ctx context.Context, chatID int64, messageID int, text string) error
}

type fileFetcher interface {
	fetchFile(ctx context.Context, fileID string) (string, error)
}

type coverExtractor interface {
	ExtractCover(ctx context.Context, videoPath, coverPath string) error
}

type insightClient interface {
	Describe(ctx context.Context, imagePath string) (string, error)
}

// Pipeline drives one video message through download, frame extraction,
// analysis and reply, with a single status message edited in place.
type Pipeline struct {
	msgr     messenger
	fetcher  fileFetcher
	store    *storage.Store
	frames   coverExtractor
	insights insightClient
}

func NewPipeline(msgr messenger, fetcher fileFetcher, store *storage.Store, frames coverExtractor, insights insightClient) *Pipeline {
	return &Pipeline{
		msgr:     msgr,
		fetcher:  fetcher,
		store:    store,
		frames:   frames,
		insights: insights,
	}
}

// Process handles one video end to end. All failures terminate this request
// only; nothing propagates to the update loop. The downloaded temp file is
// removed on every exit path.
func (p *Pipeline) Process(ctx context.Context, chatID int64, ref intake.MediaRef) {
	st := newStatusMessage(p.msgr, chatID)
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCF("pipeline", "Panic while processing video", map[string]interface{}{
				"chat_id": chatID,
				"file_id": ref.FileID,
				"panic":   fmt.Sprintf("%v", r),
			})
			st.edit(ctx, fmt.Sprintf("❌ Error processing video: %v", r))
		}
	}()

	p.logStage(chatID, ref.FileID, stageReceived)

	st.post(ctx, "🔄 Processing video... Please wait.")
	p.logStage(chatID, ref.FileID, stageStatusPosted)

	p.logStage(chatID, ref.FileID, stageDownloading)
	tmpPath, err := p.fetcher.fetchFile(ctx, ref.FileID)
	if err != nil {
		p.logStage(chatID, ref.FileID, stageDownloadFailed)
		st.edit(ctx, fmt.Sprintf("❌ Failed to download video file: %s", err))
		return
	}
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			logger.WarnCF("pipeline", "Failed to remove temp file", map[string]interface{}{
				"path":  tmpPath,
				"error": err.Error(),
			})
		}
	}()

	videoPath, err := p.store.SaveVideo(ref.FileID, tmpPath)
	if err != nil {
		// Size policy rejection surfaces here and reads as a download
		// failure, with the limit violation echoed in the message.
		p.logStage(chatID, ref.FileID, stageDownloadFailed)
		if errors.Is(err, storage.ErrVideoTooLarge) {
			logger.WarnCF("pipeline", "Video rejected by size policy", map[string]interface{}{
				"chat_id": chatID,
				"file_id": ref.FileID,
				"error":   err.Error(),
			})
		}
		st.edit(ctx, fmt.Sprintf("❌ Failed to download video file: %s", err))
		return
	}
	p.logStage(chatID, ref.FileID, stageDownloaded)

	p.logStage(chatID, ref.FileID, stageExtracting)
	coverPath := p.store.CoverPath(videoPath)
	if err := p.frames.ExtractCover(ctx, videoPath, coverPath); err != nil {
		p.logStage(chatID, ref.FileID, stageExtractFailed)
		st.edit(ctx, fmt.Sprintf("❌ Failed to extract cover image: %s", err))
		return
	}
	p.logStage(chatID, ref.FileID, stageExtracted)

	p.logStage(chatID, ref.FileID, stageAnalyzing)
	st.edit(ctx, "🤖 Analyzing video content...")
	analysis, err := p.insights.Describe(ctx, coverPath)
	if err != nil {
		p.logStage(chatID, ref.FileID, stageAnalyzeFailed)
		st.edit(ctx, fmt.Sprintf("❌ Failed to analyze video content: %s", err))
		return
	}
	p.logStage(chatID, ref.FileID, stageAnalyzed)

	st.edit(ctx, analyzer.FormatReport(analysis, ref.Info))
	p.logStage(chatID, ref.FileID, stageReplied)

	logger.InfoCF("pipeline", "Successfully processed video", map[string]interface{}{
		"chat_id": chatID,
		"file_id": ref.FileID,
		"video":   videoPath,
	})
}

func (p *Pipeline) logStage(chatID int64, fileID string, s stage) {
	logger.DebugCF("pipeline", "Stage transition", map[string]interface{}{
		"chat_id": chatID,
		"file_id": fileID,
		"stage":   s.String(),
	})
}
