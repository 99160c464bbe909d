package extractor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeDecoder writes a shell script standing in for ffmpeg. The script
// receives the real argument pattern; the output path is the last argument.
func fakeDecoder(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub decoder requires a unix shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg-stub")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestExtractCover_Success(t *testing.T) {
	bin := fakeDecoder(t, `for a; do out=$a; done; printf jpeg > "$out"`)
	e := NewWithBinary(bin)

	video := filepath.Join(t.TempDir(), "in.mp4")
	if err := os.WriteFile(video, []byte("vid"), 0644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	cover := filepath.Join(t.TempDir(), "cover.jpg")

	if err := e.ExtractCover(context.Background(), video, cover); err != nil {
		t.Fatalf("ExtractCover failed: %v", err)
	}
	if _, err := os.Stat(cover); err != nil {
		t.Fatalf("cover missing: %v", err)
	}
}

func TestExtractCover_NonZeroExit(t *testing.T) {
	bin := fakeDecoder(t, `echo "moov atom not found" >&2; exit 1`)
	e := NewWithBinary(bin)

	err := e.ExtractCover(context.Background(), "in.mp4", filepath.Join(t.TempDir(), "cover.jpg"))
	if err == nil {
		t.Fatal("expected failure for non-zero exit")
	}
	if !strings.Contains(err.Error(), "moov atom not found") {
		t.Errorf("error should carry decoder diagnostics, got %q", err.Error())
	}
}

func TestExtractCover_MissingOutput(t *testing.T) {
	// Zero exit but no file written is still a failure.
	bin := fakeDecoder(t, `exit 0`)
	e := NewWithBinary(bin)

	err := e.ExtractCover(context.Background(), "in.mp4", filepath.Join(t.TempDir(), "cover.jpg"))
	if err == nil {
		t.Fatal("expected failure when decoder produces no output")
	}
	if !strings.Contains(err.Error(), "no output") {
		t.Errorf("unexpected error %q", err.Error())
	}
}

func TestCheck_MissingBinary(t *testing.T) {
	e := NewWithBinary("definitely-not-a-real-decoder-binary")
	if err := e.Check(); err == nil {
		t.Fatal("expected Check to fail for missing binary")
	}
}

func TestCheck_PresentBinary(t *testing.T) {
	bin := fakeDecoder(t, `exit 0`)
	e := NewWithBinary(bin)
	if err := e.Check(); err != nil {
		t.Fatalf("Check failed for existing binary: %v", err)
	}
}
