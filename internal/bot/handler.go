package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/MimeLyc/srt-translate-bot/internal/apperr"
	"github.com/MimeLyc/srt-translate-bot/internal/jobs"
	"github.com/MimeLyc/srt-translate-bot/internal/service"
	"github.com/MimeLyc/srt-translate-bot/internal/session"
	"github.com/MimeLyc/srt-translate-bot/internal/subtitle"
	"github.com/MimeLyc/srt-translate-bot/pkg/log"
)

const (
	greetingText = "Hi! Send me an .srt subtitle file and I will translate it into the languages you pick."
	helpText     = "Send an .srt file, pick target languages from the menu (or type a language code or name), then press Translate.\n\n" +
		"/translate - start translating the current file\n" +
		"/languages - list available languages\n" +
		"/cancel - drop the current file and start over\n" +
		"/help - show this message"
	cancelledText = "Cancelled. Send a new .srt file whenever you are ready."
	doneText      = "Done. Send another .srt file to translate more."
	noFileText    = "Send me an .srt subtitle file first."
)

// Runner translates a session snapshot into all of its selected languages
type Runner interface {
	Run(ctx context.Context, sess session.Session) (*service.RunResult, error)
}

// Enqueuer schedules translation jobs
type Enqueuer interface {
	Enqueue(req jobs.EnqueueRequest) (*jobs.TranslationJob, bool)
}

// Handler drives the conversation for every chat. It is safe for concurrent
// use; events of one chat are serialized by the session store.
type Handler struct {
	messenger    Messenger
	sessions     *session.Store
	catalog      *Catalog
	runner       Runner
	queue        Enqueuer
	maxFileBytes int64
	logger       *log.Logger
}

func NewHandler(
	messenger Messenger,
	sessions *session.Store,
	catalog *Catalog,
	runner Runner,
	queue Enqueuer,
	maxFileBytes int64,
) *Handler {
	return &Handler{
		messenger:    messenger,
		sessions:     sessions,
		catalog:      catalog,
		runner:       runner,
		queue:        queue,
		maxFileBytes: maxFileBytes,
		logger:       log.GetLogger().With("bot"),
	}
}

// Handle processes one event. Problems caused by the user are answered in
// the chat; the returned error only reports transport failures.
func (h *Handler) Handle(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventCommand:
		return h.handleCommand(ctx, ev)
	case EventDocument:
		return h.handleDocument(ctx, ev)
	case EventCallback:
		return h.handleCallback(ctx, ev)
	case EventText:
		return h.handleText(ctx, ev)
	default:
		return nil
	}
}

func (h *Handler) handleCommand(ctx context.Context, ev Event) error {
	key := SessionKey(ev.ChatID)

	switch strings.ToLower(ev.Command) {
	case "start":
		h.reset(key)
		return h.reply(ctx, ev.ChatID, greetingText)
	case "cancel":
		h.reset(key)
		return h.reply(ctx, ev.ChatID, cancelledText)
	case "translate":
		return h.startTranslation(ctx, ev)
	case "languages":
		sess, ok := h.sessions.Get(key)
		var selected []string
		if ok {
			selected = sess.Languages
		}
		if !ok || sess.Phase != session.PhaseSelectingLanguages {
			return h.reply(ctx, ev.ChatID, languageListText(h.catalog, selected)+"\n\n"+noFileText)
		}
		_, err := h.messenger.SendMessage(ctx, ev.ChatID, languageListText(h.catalog, selected), LanguageMenu(h.catalog, selected))
		return err
	default:
		return h.reply(ctx, ev.ChatID, helpText)
	}
}

func (h *Handler) handleDocument(ctx context.Context, ev Event) error {
	doc := ev.Document
	if doc == nil {
		return nil
	}
	if !subtitle.HasSRTExtension(doc.FileName) {
		return h.replyError(ctx, ev.ChatID, apperr.New(apperr.ErrInvalidFile, "not an .srt file").
			WithContext("file", doc.FileName))
	}
	if h.maxFileBytes > 0 && doc.Size > h.maxFileBytes {
		return h.reply(ctx, ev.ChatID, fmt.Sprintf("The file is too large. The limit is %d KiB.", h.maxFileBytes/1024))
	}

	data, err := h.messenger.DownloadFile(ctx, doc.FileID, h.maxFileBytes)
	if err != nil {
		h.logger.Error("Download of %s for chat %d failed: %v", doc.FileName, ev.ChatID, err)
		return h.replyError(ctx, ev.ChatID, err)
	}

	sess, err := h.sessions.Update(SessionKey(ev.ChatID), func(s *session.Session) error {
		return s.ReceiveFile(doc.FileName, data)
	})
	if err != nil {
		h.logger.Warn("Rejected file %s from chat %d: %v", doc.FileName, ev.ChatID, err)
		return h.replyError(ctx, ev.ChatID, err)
	}

	h.logger.Info("Chat %d uploaded %s with %d cues", ev.ChatID, doc.FileName, sess.Document.Len())
	text := fmt.Sprintf("Got %s: %d cues, source language %s.\n%s",
		doc.FileName, sess.Document.Len(), sourceName(sess.Document.SourceLanguage), selectionText(h.catalog, nil))
	_, err = h.messenger.SendMessage(ctx, ev.ChatID, text, LanguageMenu(h.catalog, nil))
	return err
}

func (h *Handler) handleCallback(ctx context.Context, ev Event) error {
	if err := h.messenger.AnswerCallback(ctx, ev.CallbackID, ""); err != nil {
		h.logger.Warn("Answering callback %s failed: %v", ev.CallbackID, err)
	}

	switch {
	case strings.HasPrefix(ev.Data, callbackLanguagePrefix):
		code := strings.TrimPrefix(ev.Data, callbackLanguagePrefix)
		if _, ok := h.catalog.Lookup(code); !ok {
			return h.reply(ctx, ev.ChatID, fmt.Sprintf("Unknown language %q.", code))
		}
		sess, err := h.toggle(ev.ChatID, code)
		if err != nil {
			return h.replyError(ctx, ev.ChatID, err)
		}
		return h.messenger.EditMessage(ctx, ev.ChatID, ev.MessageID,
			selectionText(h.catalog, sess.Languages), LanguageMenu(h.catalog, sess.Languages))
	case ev.Data == callbackTranslate:
		return h.startTranslation(ctx, ev)
	case ev.Data == callbackCancel:
		h.reset(SessionKey(ev.ChatID))
		return h.messenger.EditMessage(ctx, ev.ChatID, ev.MessageID, cancelledText, nil)
	default:
		h.logger.Warn("Unknown callback data %q from chat %d", ev.Data, ev.ChatID)
		return nil
	}
}

func (h *Handler) handleText(ctx context.Context, ev Event) error {
	sess, ok := h.sessions.Get(SessionKey(ev.ChatID))
	if !ok || sess.Phase != session.PhaseSelectingLanguages {
		return h.reply(ctx, ev.ChatID, noFileText)
	}

	code, ok := h.catalog.Lookup(ev.Text)
	if !ok {
		return h.reply(ctx, ev.ChatID, fmt.Sprintf("Unknown language %q. Send /languages to see the list.", strings.TrimSpace(ev.Text)))
	}
	sess, err := h.toggle(ev.ChatID, code)
	if err != nil {
		return h.replyError(ctx, ev.ChatID, err)
	}
	_, err = h.messenger.SendMessage(ctx, ev.ChatID, selectionText(h.catalog, sess.Languages), LanguageMenu(h.catalog, sess.Languages))
	return err
}

func (h *Handler) toggle(chatID int64, code string) (session.Session, error) {
	return h.sessions.Update(SessionKey(chatID), func(s *session.Session) error {
		_, err := s.Toggle(code)
		return err
	})
}

func (h *Handler) startTranslation(ctx context.Context, ev Event) error {
	key := SessionKey(ev.ChatID)
	sess, err := h.sessions.Update(key, func(s *session.Session) error {
		return s.BeginTranslation()
	})
	if err != nil {
		if apperr.IsType(err, apperr.ErrNoLanguageSelected) {
			_, sendErr := h.messenger.SendMessage(ctx, ev.ChatID,
				apperr.UserMessage(err)+"\n"+selectionText(h.catalog, nil), LanguageMenu(h.catalog, nil))
			return sendErr
		}
		return h.replyError(ctx, ev.ChatID, err)
	}

	job, created := h.queue.Enqueue(jobs.EnqueueRequest{
		SessionKey: key,
		Epoch:      sess.Epoch,
		FileName:   sess.FileName,
		Languages:  sess.Languages,
	})
	if !created {
		h.logger.Warn("Session %s already has job %s in flight", key, job.ID)
	}

	text := fmt.Sprintf("Translating into: %s", strings.Join(h.catalog.Names(sess.Languages), ", "))
	if ev.Kind == EventCallback && ev.MessageID != 0 {
		return h.messenger.EditMessage(ctx, ev.ChatID, ev.MessageID, text, nil)
	}
	return h.reply(ctx, ev.ChatID, text)
}

// Execute is the job executor. It translates the session the job was
// created for and delivers the results, unless the session moved on to a
// new file or was reset in the meantime.
func (h *Handler) Execute(ctx context.Context, job *jobs.TranslationJob) error {
	chatID, err := chatIDFromKey(job.SessionKey)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrInvalidState, "invalid session key").
			WithContext("session", job.SessionKey)
	}

	sess, ok := h.sessions.Get(job.SessionKey)
	if !ok || sess.Epoch != job.Epoch {
		h.logger.Info("Dropping job %s: session %s changed", job.ID, job.SessionKey)
		return nil
	}

	result, runErr := h.runner.Run(ctx, sess)

	_, err = h.sessions.Update(job.SessionKey, func(s *session.Session) error {
		return s.Complete(job.Epoch)
	})
	if err != nil {
		h.logger.Info("Discarding results of job %s: %v", job.ID, err)
		return nil
	}

	if runErr != nil {
		_ = h.reply(ctx, chatID, apperr.UserMessage(runErr))
		return runErr
	}

	var sendErrs []error
	for _, out := range result.Outputs {
		caption := h.catalog.Name(out.Language)
		if out.Fallbacks > 0 {
			caption = fmt.Sprintf("%s (%d of %d cues kept the original text)", caption, out.Fallbacks, out.CueCount)
		}
		if err := h.messenger.SendDocument(ctx, chatID, out.FileName, out.Data, caption); err != nil {
			h.logger.Error("Sending %s to chat %d failed: %v", out.FileName, chatID, err)
			sendErrs = append(sendErrs, err)
		}
	}

	if failed := result.FailedLanguages(); len(failed) > 0 {
		_ = h.reply(ctx, chatID, fmt.Sprintf("Could not translate into: %s", strings.Join(h.catalog.Names(failed), ", ")))
	}
	if ctx.Err() == nil {
		_ = h.reply(ctx, chatID, doneText)
	}

	if len(result.Outputs) == 0 {
		return apperr.New(apperr.ErrTranslation, "no language produced output").
			WithContext("session", job.SessionKey)
	}
	return errors.Join(sendErrs...)
}

func (h *Handler) reset(key string) {
	_, _ = h.sessions.Update(key, func(s *session.Session) error {
		s.Reset()
		return nil
	})
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) error {
	_, err := h.messenger.SendMessage(ctx, chatID, text, nil)
	if err != nil {
		h.logger.Error("Sending message to chat %d failed: %v", chatID, err)
	}
	return err
}

func (h *Handler) replyError(ctx context.Context, chatID int64, err error) error {
	return h.reply(ctx, chatID, apperr.UserMessage(err))
}

func sourceName(tag language.Tag) string {
	if tag == language.Und {
		return "unknown"
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return tag.String()
}
