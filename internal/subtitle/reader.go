package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"

	"github.com/MimeLyc/srt-translate-bot/internal/apperr"
)

// HasSRTExtension reports whether name ends with .srt, ignoring case
func HasSRTExtension(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".srt")
}

// ReadBytes decodes and parses an uploaded subtitle file. The name is the
// declared file name and must carry the .srt extension.
func ReadBytes(name string, data []byte) (*Document, error) {
	if !HasSRTExtension(name) {
		return nil, apperr.New(apperr.ErrInvalidFile, "only SRT subtitle files are supported").
			WithContext("file", name)
	}

	text, err := decodeText(data)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrInvalidFile, "failed to decode subtitle file").
			WithContext("file", name)
	}

	cues := Parse(text)
	if len(cues) == 0 {
		return nil, apperr.New(apperr.ErrInvalidFile, "no subtitle cues found").
			WithContext("file", name)
	}

	return &Document{
		Cues:           cues,
		SourceLanguage: detectLanguage(cues),
		Name:           name,
	}, nil
}

// ReadFile reads and parses the SRT file at path
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subtitle file: %w", err)
	}
	return ReadBytes(filepath.Base(path), data)
}

// decodeText honours UTF-8 and UTF-16 byte order marks and defaults to UTF-8
func decodeText(data []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(out) {
		return strings.ToValidUTF8(string(out), "\uFFFD"), nil
	}
	return string(out), nil
}

// detectLanguage returns the most common language across cue texts
func detectLanguage(cues []Cue) language.Tag {
	if len(cues) == 0 {
		return language.Und
	}

	counts := make(map[string]int)
	for _, cue := range cues {
		lang := whatlanggo.DetectLang(cue.JoinedText()).Iso6391()
		if lang == "" {
			continue
		}
		counts[lang]++
	}

	var topLang string
	var topCount int
	for lang, count := range counts {
		if count > topCount || (count == topCount && lang < topLang) {
			topLang = lang
			topCount = count
		}
	}
	if topLang == "" {
		return language.Und
	}

	tag, err := language.Parse(topLang)
	if err != nil {
		return language.Und
	}
	return tag
}
