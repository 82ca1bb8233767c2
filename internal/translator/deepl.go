package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/MimeLyc/srt-translate-bot/internal/apperr"
)

const deeplAPIURL = "https://api-free.deepl.com/v2/translate"

// DeepLTranslator translates text using the DeepL API
type DeepLTranslator struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

func NewDeepLTranslator(opts Options) (*DeepLTranslator, error) {
	if opts.APIKey == "" {
		return nil, apperr.New(apperr.ErrConfig, "DeepL API key not configured")
	}
	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = deeplAPIURL
	}
	return &DeepLTranslator{
		apiKey:     opts.APIKey,
		apiURL:     apiURL,
		httpClient: opts.httpClient(),
	}, nil
}

func (d *DeepLTranslator) Name() string {
	return string(ProviderDeepL)
}

func (d *DeepLTranslator) Translate(ctx context.Context, text string, targetLang string) (string, error) {
	translated, err := d.translate(ctx, text, targetLang)
	if err != nil {
		return "", translationError(d.Name(), targetLang, err)
	}
	return translated, nil
}

func (d *DeepLTranslator) translate(ctx context.Context, text string, targetLang string) (string, error) {
	form := url.Values{}
	form.Add("text", text)
	form.Set("target_lang", deeplLangCode(targetLang))
	form.Set("preserve_formatting", "1")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.apiURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("DeepL API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("DeepL API error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	var deeplResp struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &deeplResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(deeplResp.Translations) == 0 {
		return "", fmt.Errorf("no translations in response")
	}

	return deeplResp.Translations[0].Text, nil
}

// deeplLangCode converts bot language codes to DeepL target codes
func deeplLangCode(code string) string {
	mapping := map[string]string{
		"en":    "EN-US",
		"pt":    "PT-BR",
		"zh-cn": "ZH",
		"zh-tw": "ZH",
		"zh":    "ZH",
	}
	if mapped, ok := mapping[strings.ToLower(code)]; ok {
		return mapped
	}
	return strings.ToUpper(code)
}
