package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MimeLyc/srt-translate-bot/internal/apperr"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAITranslator translates text through an OpenAI compatible chat completion API
type OpenAITranslator struct {
	client openai.Client
	model  string
}

func NewOpenAITranslator(opts Options) (*OpenAITranslator, error) {
	if opts.APIKey == "" {
		return nil, apperr.New(apperr.ErrConfig, "OpenAI API key not configured")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithHTTPClient(opts.httpClient()),
	}
	if opts.APIURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.APIURL))
	}

	model := opts.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAITranslator{
		client: openai.NewClient(reqOpts...),
		model:  model,
	}, nil
}

func (t *OpenAITranslator) Name() string {
	return string(ProviderOpenAI)
}

func (t *OpenAITranslator) Translate(ctx context.Context, text string, targetLang string) (string, error) {
	completion, err := t.client.Chat.Completions.New(
		ctx,
		openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(buildPrompt(targetLang)),
				openai.UserMessage(text),
			},
			Model: t.model,
		},
	)
	if err != nil {
		return "", translationError(t.Name(), targetLang, err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", translationError(t.Name(), targetLang, fmt.Errorf("empty response from OpenAI"))
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", translationError(t.Name(), targetLang, fmt.Errorf("no text in OpenAI response"))
	}
	return content, nil
}

func buildPrompt(targetLang string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Translate the subtitle text sent by the user into %s.\n", languageName(targetLang)))
	sb.WriteString("1. Keep the same number of lines and the same line breaks.\n")
	sb.WriteString("2. Keep formatting tags such as <i> or {\\an8} unchanged.\n")
	sb.WriteString("3. Reply with the translation only, without quotes or explanations.\n")
	return sb.String()
}
