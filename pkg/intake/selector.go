package intake

import (
	"strings"

	"github.com/mymmrac/telego"
)

// MediaRef identifies a remote video payload and carries whatever metadata
// the carrier field declared.
type MediaRef struct {
	FileID   string
	FileName string
	MimeType string
	Info     VideoInfo
}

// VideoInfo is the metadata record attached to a selected video. Video notes
// and documents supply a subset; zero values mean "not declared".
type VideoInfo struct {
	Duration int
	FileSize int64
	Width    int
	Height   int
}

// SelectVideo locates the video payload of a message, checking the carrier
// fields in priority order: native video, video note, then a document whose
// MIME type contains "video". Returns false when none is present.
func SelectVideo(msg *telego.Message) (MediaRef, bool) {
	if msg == nil {
		return MediaRef{}, false
	}

	if v := msg.Video; v != nil {
		return MediaRef{
			FileID:   v.FileID,
			FileName: v.FileName,
			MimeType: v.MimeType,
			Info: VideoInfo{
				Duration: v.Duration,
				FileSize: v.FileSize,
				Width:    v.Width,
				Height:   v.Height,
			},
		}, true
	}

	if vn := msg.VideoNote; vn != nil {
		return MediaRef{
			FileID: vn.FileID,
			Info: VideoInfo{
				Duration: vn.Duration,
				FileSize: int64(vn.FileSize),
			},
		}, true
	}

	if d := msg.Document; d != nil && strings.Contains(d.MimeType, "video") {
		return MediaRef{
			FileID:   d.FileID,
			FileName: d.FileName,
			MimeType: d.MimeType,
			Info: VideoInfo{
				FileSize: d.FileSize,
			},
		}, true
	}

	return MediaRef{}, false
}
