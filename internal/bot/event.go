package bot

import (
	"context"
	"strconv"
)

type EventKind int

const (
	EventCommand EventKind = iota
	EventDocument
	EventCallback
	EventText
)

// DocumentRef points at a file uploaded to the chat service
type DocumentRef struct {
	FileID   string
	FileName string
	Size     int64
}

// Event is one incoming chat update, independent of the transport that
// delivered it.
type Event struct {
	Kind   EventKind
	ChatID int64
	UserID int64

	// Command is the command name without the leading slash
	Command string
	Text    string

	Document *DocumentRef

	CallbackID string
	Data       string
	// MessageID is the message carrying the keyboard a callback came from
	MessageID int
}

// Button is one inline keyboard button
type Button struct {
	Text string
	Data string
}

// Menu is an inline keyboard, row by row
type Menu struct {
	Rows [][]Button
}

// Messenger is the outbound side of a chat transport
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, menu *Menu) (int, error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, menu *Menu) error
	AnswerCallback(ctx context.Context, callbackID string, text string) error
	SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string) error
	DownloadFile(ctx context.Context, fileID string, maxBytes int64) ([]byte, error)
}

// SessionKey maps a chat to the key of its session
func SessionKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func chatIDFromKey(key string) (int64, error) {
	return strconv.ParseInt(key, 10, 64)
}
