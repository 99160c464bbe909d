package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/virallabs/viralbot/pkg/intake"
	"github.com/virallabs/viralbot/pkg/storage"
)

type fakeMessenger struct {
	mu      sync.Mutex
	sendErr error
	editErr error

	sentTexts []string
	editIDs   []int
	editTexts []string
}

func (f *fakeMessenger) sendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.sentTexts = append(f.sentTexts, text)
	return 100, nil
}

func (f *fakeMessenger) editMessageText(ctx context.Context, chatID int64, messageID int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editIDs = append(f.editIDs, messageID)
	f.editTexts = append(f.editTexts, text)
	return f.editErr
}

func (f *fakeMessenger) posts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sentTexts)
}

func (f *fakeMessenger) edits() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.editTexts...)
}

type fakeFetcher struct {
	mu       sync.Mutex
	err      error
	fileSize int
	dir      string

	fetched string
}

func (f *fakeFetcher) fetchFile(ctx context.Context, fileID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(f.dir, "download_"+fileID+".mp4")
	if err := os.WriteFile(path, make([]byte, f.fileSize), 0644); err != nil {
		return "", err
	}
	f.fetched = path
	return path, nil
}

func (f *fakeFetcher) fetchedPath() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetched
}

type fakeExtractor struct {
	mu     sync.Mutex
	err    error
	called bool
}

func (f *fakeExtractor) ExtractCover(ctx context.Context, videoPath, coverPath string) error {
	f.mu.Lock()
	f.called = true
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(coverPath, []byte("jpeg"), 0644)
}

func (f *fakeExtractor) wasCalled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.called
}

type fakeInsights struct {
	text  string
	err   error
	panic bool
}

func (f *fakeInsights) Describe(ctx context.Context, imagePath string) (string, error) {
	if f.panic {
		panic("inference client blew up")
	}
	return f.text, f.err
}

type pipelineFixture struct {
	msgr     *fakeMessenger
	fetcher  *fakeFetcher
	frames   *fakeExtractor
	insights *fakeInsights
	pipeline *Pipeline
}

func newFixture(t *testing.T, maxSizeMB int) *pipelineFixture {
	t.Helper()

	dir := t.TempDir()
	store, err := storage.NewStore(filepath.Join(dir, "videos"), filepath.Join(dir, "images"), maxSizeMB, []string{"mp4"})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	fx := &pipelineFixture{
		msgr:     &fakeMessenger{},
		fetcher:  &fakeFetcher{dir: t.TempDir(), fileSize: 1024},
		frames:   &fakeExtractor{},
		insights: &fakeInsights{text: "A dramatic skateboarding fail."},
	}
	fx.pipeline = NewPipeline(fx.msgr, fx.fetcher, store, fx.frames, fx.insights)
	return fx
}

func (fx *pipelineFixture) run() {
	fx.pipeline.Process(context.Background(), -100123, intake.MediaRef{
		FileID: "file-1",
		Info:   intake.VideoInfo{Duration: 30, FileSize: 1024},
	})
}

func (fx *pipelineFixture) lastEdit(t *testing.T) string {
	t.Helper()
	if len(fx.msgr.editTexts) == 0 {
		t.Fatal("expected at least one status edit")
	}
	return fx.msgr.editTexts[len(fx.msgr.editTexts)-1]
}

func TestProcess_SuccessEndToEnd(t *testing.T) {
	fx := newFixture(t, 50)
	fx.run()

	if len(fx.msgr.sentTexts) != 1 {
		t.Fatalf("expected exactly one posted status message, got %d", len(fx.msgr.sentTexts))
	}
	if !strings.Contains(fx.msgr.sentTexts[0], "Processing video") {
		t.Errorf("unexpected initial status %q", fx.msgr.sentTexts[0])
	}

	final := fx.lastEdit(t)
	if !strings.Contains(final, "Video Analysis Report") {
		t.Errorf("final edit should carry the report, got %q", final)
	}
	if !strings.Contains(final, "A dramatic skateboarding fail.") {
		t.Errorf("final edit missing analysis text: %q", final)
	}

	// The progress edit happened before the reply.
	if len(fx.msgr.editTexts) < 2 || !strings.Contains(fx.msgr.editTexts[0], "Analyzing video content") {
		t.Errorf("expected analyzing progress edit first, got %v", fx.msgr.editTexts)
	}
}

func TestProcess_StatusEditsTargetOneMessage(t *testing.T) {
	fx := newFixture(t, 50)
	fx.run()

	for _, id := range fx.msgr.editIDs {
		if id != 100 {
			t.Errorf("all edits must target the posted status message, got id %d", id)
		}
	}
	if len(fx.msgr.sentTexts) != 1 {
		t.Errorf("status must never be re-posted, got %d posts", len(fx.msgr.sentTexts))
	}
}

func TestProcess_TempFileRemovedOnEveryOutcome(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(fx *pipelineFixture)
	}{
		{"success", func(fx *pipelineFixture) {}},
		{"oversized video", func(fx *pipelineFixture) { fx.fetcher.fileSize = 2 * 1024 * 1024 }},
		{"extraction failure", func(fx *pipelineFixture) { fx.frames.err = errors.New("boom") }},
		{"analysis failure", func(fx *pipelineFixture) { fx.insights.err = errors.New("boom") }},
		{"analysis panic", func(fx *pipelineFixture) { fx.insights.panic = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, 1)
			fx.fetcher.fileSize = 1024
			tt.prepare(fx)
			fx.run()

			if fx.fetcher.fetchedPath() == "" {
				t.Fatal("fetcher was not called")
			}
			if _, err := os.Stat(fx.fetcher.fetchedPath()); !os.IsNotExist(err) {
				t.Errorf("downloaded temp file should be removed, stat err = %v", err)
			}
		})
	}
}

func TestProcess_DownloadFailure(t *testing.T) {
	fx := newFixture(t, 50)
	fx.fetcher.err = errors.New("connection reset")
	fx.run()

	final := fx.lastEdit(t)
	if !strings.Contains(final, "Failed to download video file") {
		t.Errorf("unexpected failure text %q", final)
	}
	if !strings.Contains(final, "connection reset") {
		t.Errorf("failure should echo the underlying error, got %q", final)
	}
	if fx.frames.wasCalled() {
		t.Error("extractor must not run after a download failure")
	}
}

func TestProcess_SizePolicyReportsAsDownloadFailure(t *testing.T) {
	fx := newFixture(t, 1)
	fx.fetcher.fileSize = 2 * 1024 * 1024
	fx.run()

	final := fx.lastEdit(t)
	if !strings.Contains(final, "Failed to download video file") {
		t.Errorf("size rejection should read as a download failure, got %q", final)
	}
	if !strings.Contains(final, "size limit") {
		t.Errorf("failure should name the size violation, got %q", final)
	}
	if fx.frames.wasCalled() {
		t.Error("extractor must not run for rejected videos")
	}
}

func TestProcess_ExtractionFailure(t *testing.T) {
	fx := newFixture(t, 50)
	fx.frames.err = errors.New("ffmpeg exit status 1: moov atom not found")
	fx.run()

	final := fx.lastEdit(t)
	if !strings.Contains(final, "Failed to extract cover image") {
		t.Errorf("unexpected failure text %q", final)
	}
	if !strings.Contains(final, "moov atom not found") {
		t.Errorf("failure should echo decoder diagnostics, got %q", final)
	}
}

func TestProcess_AnalysisFailure(t *testing.T) {
	fx := newFixture(t, 50)
	fx.insights.err = errors.New("model returned an empty analysis")
	fx.run()

	final := fx.lastEdit(t)
	if !strings.Contains(final, "Failed to analyze video content") {
		t.Errorf("unexpected failure text %q", final)
	}
}

func TestProcess_StatusPostFailureDoesNotAbort(t *testing.T) {
	fx := newFixture(t, 50)
	fx.msgr.sendErr = errors.New("rate limited")
	fx.run()

	// No status surface, but the pipeline still ran to completion.
	if fx.fetcher.fetchedPath() == "" {
		t.Error("pipeline should proceed without a status message")
	}
	if !fx.frames.wasCalled() {
		t.Error("extraction should still happen")
	}
	if len(fx.msgr.editTexts) != 0 {
		t.Errorf("nothing to edit when the post failed, got %v", fx.msgr.editTexts)
	}
}

func TestProcess_EditFailureIsNeverFatal(t *testing.T) {
	fx := newFixture(t, 50)
	fx.msgr.editErr = errors.New("message to edit not found")
	fx.run()

	if !fx.frames.wasCalled() {
		t.Error("pipeline should run to completion despite edit failures")
	}
}

func TestProcess_PanicIsContained(t *testing.T) {
	fx := newFixture(t, 50)
	fx.insights.panic = true

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic escaped the pipeline: %v", r)
		}
	}()
	fx.run()

	// The status message must not stay stuck on the last progress text.
	final := fx.lastEdit(t)
	if !strings.Contains(final, "Error processing video") {
		t.Errorf("status should end on a generic error after a panic, got %q", final)
	}
	if !strings.Contains(final, "inference client blew up") {
		t.Errorf("error edit should carry the panic value, got %q", final)
	}
}

func TestProcess_ReportCarriesMetadata(t *testing.T) {
	fx := newFixture(t, 50)
	fx.pipeline.Process(context.Background(), -100123, intake.MediaRef{
		FileID: "file-2",
		Info:   intake.VideoInfo{Duration: 61, FileSize: 3 * 1024 * 1024},
	})

	final := fx.lastEdit(t)
	if !strings.Contains(final, "61 seconds") {
		t.Errorf("report should include duration, got %q", final)
	}
	if !strings.Contains(final, fmt.Sprintf("%.2f MB", 3.0)) {
		t.Errorf("report should include size, got %q", final)
	}
}
