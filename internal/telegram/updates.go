package telegram

import (
	"context"
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/MimeLyc/srt-translate-bot/internal/bot"
	"github.com/MimeLyc/srt-translate-bot/pkg/log"
)

// HandleFunc consumes one converted update
type HandleFunc func(ctx context.Context, ev bot.Event)

// ToEvent converts a Telegram update into a bot event. Updates the bot does
// not react to yield false.
func ToEvent(update tgbotapi.Update) (bot.Event, bool) {
	if cq := update.CallbackQuery; cq != nil {
		ev := bot.Event{
			Kind:       bot.EventCallback,
			CallbackID: cq.ID,
			Data:       cq.Data,
		}
		if cq.From != nil {
			ev.UserID = cq.From.ID
			ev.ChatID = cq.From.ID
		}
		if cq.Message != nil {
			ev.MessageID = cq.Message.MessageID
			if cq.Message.Chat != nil {
				ev.ChatID = cq.Message.Chat.ID
			}
		}
		return ev, ev.ChatID != 0
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return bot.Event{}, false
	}
	ev := bot.Event{ChatID: msg.Chat.ID}
	if msg.From != nil {
		ev.UserID = msg.From.ID
	}

	switch {
	case msg.IsCommand():
		ev.Kind = bot.EventCommand
		ev.Command = msg.Command()
		ev.Text = msg.CommandArguments()
	case msg.Document != nil:
		ev.Kind = bot.EventDocument
		ev.Document = &bot.DocumentRef{
			FileID:   msg.Document.FileID,
			FileName: msg.Document.FileName,
			Size:     int64(msg.Document.FileSize),
		}
	case msg.Text != "":
		ev.Kind = bot.EventText
		ev.Text = msg.Text
	default:
		return bot.Event{}, false
	}
	return ev, true
}

// Poll receives updates by long polling until ctx is done. Updates of one
// chat are handled in order, different chats in parallel. Poll waits for
// pending updates before returning.
func (c *Client) Poll(ctx context.Context, handle HandleFunc) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.pollTimeout
	updates := c.api.GetUpdatesChan(u)

	dispatcher := newChatDispatcher(handle)
	defer dispatcher.wait()

	c.logger.Info("Polling for updates")
	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			ev, ok := ToEvent(update)
			if !ok {
				continue
			}
			dispatcher.dispatch(ctx, ev)
		}
	}
}

// WebhookHandler accepts updates pushed by Telegram. The update is
// acknowledged right away and handled in the background, in order per chat.
func WebhookHandler(handle HandleFunc) http.Handler {
	dispatcher := newChatDispatcher(handle)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			log.Warn("Malformed webhook update: %v", err)
			http.Error(w, "invalid update", http.StatusBadRequest)
			return
		}

		if ev, ok := ToEvent(update); ok {
			dispatcher.dispatch(context.WithoutCancel(r.Context()), ev)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
