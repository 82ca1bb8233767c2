package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/MimeLyc/srt-translate-bot/internal/apperr"
	"github.com/MimeLyc/srt-translate-bot/internal/bot"
	"github.com/MimeLyc/srt-translate-bot/pkg/log"
)

const (
	defaultPollTimeout = 30
	defaultAttempts    = 3
	defaultRetryDelay  = 500 * time.Millisecond
)

// Client talks to the Telegram Bot API and implements bot.Messenger
type Client struct {
	api          *tgbotapi.BotAPI
	httpClient   *http.Client
	apiEndpoint  string
	fileEndpoint string
	pollTimeout  int
	attempts     uint
	retryDelay   time.Duration
	logger       *log.Logger
}

type Option func(*Client)

// WithEndpoints overrides the API and file download endpoints. Both are
// format strings taking the token, then the method or file path.
func WithEndpoints(apiEndpoint, fileEndpoint string) Option {
	return func(c *Client) {
		c.apiEndpoint = apiEndpoint
		c.fileEndpoint = fileEndpoint
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRetry sets how often a failed request is attempted and the base delay
// between attempts.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		c.attempts = attempts
		c.retryDelay = delay
	}
}

// New connects to the Bot API and verifies the token
func New(token string, opts ...Option) (*Client, error) {
	c := &Client{
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		apiEndpoint:  tgbotapi.APIEndpoint,
		fileEndpoint: tgbotapi.FileEndpoint,
		pollTimeout:  defaultPollTimeout,
		attempts:     defaultAttempts,
		retryDelay:   defaultRetryDelay,
		logger:       log.GetLogger().With("telegram"),
	}
	for _, opt := range opts {
		opt(c)
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, c.apiEndpoint, c.httpClient)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrNetwork, "failed to connect to telegram")
	}
	c.api = api
	c.logger.Info("Authorized as @%s", api.Self.UserName)
	return c, nil
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, menu *bot.Menu) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if menu != nil {
		msg.ReplyMarkup = keyboard(menu)
	}
	var sent tgbotapi.Message
	err := c.do(ctx, "sendMessage", func() error {
		var err error
		sent, err = c.api.Send(msg)
		return err
	})
	return sent.MessageID, err
}

func (c *Client) EditMessage(ctx context.Context, chatID int64, messageID int, text string, menu *bot.Menu) error {
	var edit tgbotapi.Chattable
	if menu != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard(menu))
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	return c.request(ctx, "editMessageText", edit)
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID string, text string) error {
	return c.request(ctx, "answerCallbackQuery", tgbotapi.NewCallback(callbackID, text))
}

func (c *Client) SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	return c.do(ctx, "sendDocument", func() error {
		_, err := c.api.Send(doc)
		return err
	})
}

// DownloadFile fetches an uploaded file. Files larger than maxBytes are
// rejected as invalid; maxBytes <= 0 disables the cap.
func (c *Client) DownloadFile(ctx context.Context, fileID string, maxBytes int64) ([]byte, error) {
	var file tgbotapi.File
	err := c.do(ctx, "getFile", func() error {
		var err error
		file, err = c.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
		return err
	})
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && int64(file.FileSize) > maxBytes {
		return nil, tooLarge(fileID, maxBytes)
	}

	url := fmt.Sprintf(c.fileEndpoint, c.api.Token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrNetwork, "failed to build download request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, networkError("download", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Newf(apperr.ErrNetwork, "file download returned status %d", resp.StatusCode).
			WithContext("file_id", fileID)
	}

	var body io.Reader = resp.Body
	if maxBytes > 0 {
		body = io.LimitReader(resp.Body, maxBytes+1)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		return nil, networkError("download", err)
	}
	if maxBytes > 0 && int64(buf.Len()) > maxBytes {
		return nil, tooLarge(fileID, maxBytes)
	}
	return buf.Bytes(), nil
}

// RegisterWebhook points Telegram at url for update delivery
func (c *Client) RegisterWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrConfig, "invalid webhook url").WithContext("url", url)
	}
	if err := c.request(context.Background(), "setWebhook", wh); err != nil {
		return err
	}
	c.logger.Info("Webhook registered at %s", url)
	return nil
}

// RemoveWebhook switches the bot back to long polling
func (c *Client) RemoveWebhook() error {
	return c.request(context.Background(), "deleteWebhook", tgbotapi.DeleteWebhookConfig{})
}

func (c *Client) request(ctx context.Context, method string, cfg tgbotapi.Chattable) error {
	return c.do(ctx, method, func() error {
		_, err := c.api.Request(cfg)
		return err
	})
}

// do runs fn until it succeeds, fails permanently or runs out of attempts
func (c *Client) do(ctx context.Context, method string, fn func() error) error {
	err := retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("%s attempt %d failed: %v", method, n+1, err)
		}),
	)
	if err != nil {
		return networkError(method, err)
	}
	return nil
}

// retryable reports whether a failed call may succeed when repeated. Bot API
// rejections other than rate limiting and server errors are permanent.
func retryable(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return true
}

func keyboard(menu *bot.Menu) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(menu.Rows))
	for _, row := range menu.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func networkError(method string, err error) error {
	return apperr.Wrap(err, apperr.ErrNetwork, "telegram request failed").WithContext("method", method)
}

func tooLarge(fileID string, maxBytes int64) error {
	return apperr.Newf(apperr.ErrInvalidFile, "file exceeds %d bytes", maxBytes).WithContext("file_id", fileID)
}
