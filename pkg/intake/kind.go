package intake

import "github.com/mymmrac/telego"

// Kind is the classified payload type of one inbound message.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindVideo
	KindPhoto
	KindDocument
	KindAudio
	KindVoice
	KindVideoNote
)

var kindNames = map[Kind]string{
	KindUnknown:   "unknown",
	KindText:      "text",
	KindVideo:     "video",
	KindPhoto:     "photo",
	KindDocument:  "document",
	KindAudio:     "audio",
	KindVoice:     "voice",
	KindVideoNote: "video_note",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Classify determines the message kind, first match wins. The order mirrors
// the payload fields a Telegram message can carry; a message with several
// populated fields is reported as the highest-priority one.
func Classify(msg *telego.Message) Kind {
	switch {
	case msg == nil:
		return KindUnknown
	case msg.Text != "":
		return KindText
	case msg.Video != nil:
		return KindVideo
	case len(msg.Photo) > 0:
		return KindPhoto
	case msg.Document != nil:
		return KindDocument
	case msg.Audio != nil:
		return KindAudio
	case msg.Voice != nil:
		return KindVoice
	case msg.VideoNote != nil:
		return KindVideoNote
	}
	return KindUnknown
}
