package translator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/MimeLyc/srt-translate-bot/internal/apperr"
)

// Translator is the external translation capability. Implementations must be
// safe for concurrent use.
type Translator interface {
	Translate(ctx context.Context, text string, targetLang string) (string, error)
	Name() string
}

// Func adapts a plain function to the Translator interface
type Func func(ctx context.Context, text string, targetLang string) (string, error)

func (f Func) Translate(ctx context.Context, text string, targetLang string) (string, error) {
	return f(ctx, text, targetLang)
}

func (f Func) Name() string {
	return "func"
}

// Provider names a translation backend
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderDeepL  Provider = "deepl"
	ProviderOpenAI Provider = "openai"
)

type Options struct {
	APIKey     string
	APIURL     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &http.Client{Timeout: timeout}
}

// Factory creates the Translator for provider
func Factory(provider Provider, opts Options) (Translator, error) {
	switch Provider(strings.ToLower(string(provider))) {
	case ProviderGoogle, "":
		return NewGoogleTranslator(opts), nil
	case ProviderDeepL:
		t, err := NewDeepLTranslator(opts)
		if err != nil {
			return nil, err
		}
		return t, nil
	case ProviderOpenAI:
		t, err := NewOpenAITranslator(opts)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, apperr.Newf(apperr.ErrConfig, "unsupported translation provider: %s", provider)
	}
}

// languageName returns the English display name of code, or code itself
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

func translationError(provider string, targetLang string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Type == apperr.ErrTranslation {
		return err
	}
	return apperr.Wrap(err, apperr.ErrTranslation, fmt.Sprintf("%s translation failed", provider)).
		WithContext("lang", targetLang)
}
