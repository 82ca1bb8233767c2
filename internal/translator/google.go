package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const googleAPIURL = "https://translate.googleapis.com/translate_a/single"

// GoogleTranslator uses the keyless Google Translate web endpoint
type GoogleTranslator struct {
	apiURL     string
	httpClient *http.Client
}

func NewGoogleTranslator(opts Options) *GoogleTranslator {
	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = googleAPIURL
	}
	return &GoogleTranslator{
		apiURL:     apiURL,
		httpClient: opts.httpClient(),
	}
}

func (g *GoogleTranslator) Name() string {
	return string(ProviderGoogle)
}

func (g *GoogleTranslator) Translate(ctx context.Context, text string, targetLang string) (string, error) {
	translated, err := g.translate(ctx, text, targetLang)
	if err != nil {
		return "", translationError(g.Name(), targetLang, err)
	}
	return translated, nil
}

func (g *GoogleTranslator) translate(ctx context.Context, text string, targetLang string) (string, error) {
	query := url.Values{}
	query.Set("client", "gtx")
	query.Set("sl", "auto")
	query.Set("tl", targetLang)
	query.Set("dt", "t")
	query.Set("q", text)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("google API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google API error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	return parseGoogleResponse(body)
}

// parseGoogleResponse joins the translated segments of a gtx response:
// [[["Hola","Hello",null,null,10],...],null,"en",...]
func parseGoogleResponse(body []byte) (string, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty response")
	}

	var segments [][]any
	if err := json.Unmarshal(payload[0], &segments); err != nil {
		return "", fmt.Errorf("parse segments: %w", err)
	}

	var sb strings.Builder
	for _, segment := range segments {
		if len(segment) == 0 {
			continue
		}
		if part, ok := segment[0].(string); ok {
			sb.WriteString(part)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no translated text in response")
	}
	return sb.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
