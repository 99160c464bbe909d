package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/virallabs/viralbot/pkg/logger"
	"github.com/virallabs/viralbot/pkg/utils"
)

// ErrVideoTooLarge is returned when a downloaded file exceeds the configured
// size limit. The caller reports it as a download failure.
var ErrVideoTooLarge = errors.New("video exceeds size limit")

// Store owns the videos and images directories. Filenames are derived from
// the media's file id plus a timestamp, so concurrent handlers never write
// the same path.
type Store struct {
	videosDir string
	imagesDir string
	maxBytes  int64
	formats   map[string]bool
}

func NewStore(videosDir, imagesDir string, maxSizeMB int, formats []string) (*Store, error) {
	if err := os.MkdirAll(videosDir, 0755); err != nil {
		return nil, fmt.Errorf("create videos dir: %w", err)
	}
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return nil, fmt.Errorf("create images dir: %w", err)
	}

	fm := make(map[string]bool, len(formats))
	for _, f := range formats {
		fm[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(f), "."))] = true
	}

	return &Store{
		videosDir: videosDir,
		imagesDir: imagesDir,
		maxBytes:  int64(maxSizeMB) * 1024 * 1024,
		formats:   fm,
	}, nil
}

// SaveVideo copies a downloaded file into the videos directory under a
// collision-free name. Files over the size limit are rejected with
// ErrVideoTooLarge before any copy happens.
func (s *Store) SaveVideo(fileID, srcPath string) (string, error) {
	info, err := os.Stat(srcPath)
	if err != nil {
		return "", fmt.Errorf("stat downloaded file: %w", err)
	}

	if info.Size() > s.maxBytes {
		return "", fmt.Errorf("%w: %.2fMB > %dMB",
			ErrVideoTooLarge,
			float64(info.Size())/(1024*1024),
			s.maxBytes/(1024*1024),
		)
	}

	name := fmt.Sprintf("video_%s_%d%s",
		utils.SanitizeFilename(fileID),
		time.Now().Unix(),
		s.videoExt(srcPath),
	)
	destPath := filepath.Join(s.videosDir, name)

	size, sum, err := copyWithHash(srcPath, destPath)
	if err != nil {
		return "", err
	}

	logger.InfoCF("storage", "Video stored", map[string]interface{}{
		"path":   destPath,
		"size":   size,
		"sha256": sum[:12],
	})

	return destPath, nil
}

// CoverPath derives the cover image path for a stored video.
func (s *Store) CoverPath(videoPath string) string {
	base := filepath.Base(videoPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(s.imagesDir, fmt.Sprintf("cover_%s.jpg", name))
}

// ImagesDir returns the cover image directory.
func (s *Store) ImagesDir() string {
	return s.imagesDir
}

// CleanupOld removes stored videos and cover images older than maxAge.
// Returns the number of files removed.
func (s *Store) CleanupOld(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, dir := range []string{s.videosDir, s.imagesDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return removed, fmt.Errorf("read %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().Before(cutoff) {
				path := filepath.Join(dir, entry.Name())
				if err := os.Remove(path); err != nil {
					logger.WarnCF("storage", "Failed to remove old file", map[string]interface{}{
						"path":  path,
						"error": err.Error(),
					})
					continue
				}
				removed++
			}
		}
	}

	if removed > 0 {
		logger.InfoCF("storage", "Cleaned up old files", map[string]interface{}{
			"removed": removed,
		})
	}

	return removed, nil
}

// videoExt keeps the source extension when it is a configured format,
// falling back to mp4 (Telegram's default container).
func (s *Store) videoExt(srcPath string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(srcPath), "."))
	if s.formats[ext] {
		return "." + ext
	}
	return ".mp4"
}

func copyWithHash(srcPath, dstPath string) (int64, string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return 0, "", fmt.Errorf("open source file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return 0, "", fmt.Errorf("create destination file: %w", err)
	}
	defer dst.Close()

	hasher := sha256.New()
	w := io.MultiWriter(dst, hasher)
	n, err := io.Copy(w, src)
	if err != nil {
		_ = os.Remove(dstPath)
		return 0, "", fmt.Errorf("copy file: %w", err)
	}
	return n, hex.EncodeToString(hasher.Sum(nil)), nil
}
