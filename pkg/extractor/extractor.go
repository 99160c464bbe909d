package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/virallabs/viralbot/pkg/logger"
)

// DefaultBinary is the decoder invoked for frame extraction.
const DefaultBinary = "ffmpeg"

// Extractor pulls a single representative frame out of a video file by
// shelling out to ffmpeg.
type Extractor struct {
	bin string
}

func New() *Extractor {
	return &Extractor{bin: DefaultBinary}
}

// NewWithBinary uses an explicit decoder path instead of resolving
// DefaultBinary from PATH.
func NewWithBinary(bin string) *Extractor {
	return &Extractor{bin: bin}
}

// Check verifies the decoder binary is available.
func (e *Extractor) Check() error {
	if _, err := exec.LookPath(e.bin); err != nil {
		return fmt.Errorf("decoder %q not found: %w", e.bin, err)
	}
	return nil
}

// ExtractCover writes the first frame of videoPath to coverPath as JPEG.
// Success requires both a zero exit status and the output file existing;
// failures carry the decoder's diagnostic output.
func (e *Extractor) ExtractCover(ctx context.Context, videoPath, coverPath string) error {
	cmd := exec.CommandContext(ctx, e.bin,
		"-i", videoPath,
		"-vframes", "1",
		"-q:v", "2",
		"-y",
		coverPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", e.bin, err, strings.TrimSpace(stderr.String()))
	}

	if _, err := os.Stat(coverPath); err != nil {
		return fmt.Errorf("%s produced no output at %s", e.bin, coverPath)
	}

	logger.InfoCF("extractor", "Cover image extracted", map[string]interface{}{
		"video": videoPath,
		"cover": coverPath,
	})

	return nil
}
