package service

import (
	"context"
	"fmt"
	"time"

	"github.com/MimeLyc/srt-translate-bot/internal/subtitle"
	"github.com/MimeLyc/srt-translate-bot/internal/translator"
)

// CueTranslator translates the cues of one document into one language
type CueTranslator interface {
	Translate(ctx context.Context, cues []subtitle.Cue, targetLang string) translator.Outcome
}

// Output is one translated subtitle file
type Output struct {
	Language  string
	FileName  string
	Data      []byte
	CueCount  int
	Fallbacks int // cues that kept their original text
}

// LanguageFailure records a language that produced no output
type LanguageFailure struct {
	Language string
	Err      error
}

// RunResult is the outcome of translating one session into every selected
// language. Outputs and Failures follow selection order.
type RunResult struct {
	Outputs  []Output
	Failures []LanguageFailure
	Elapsed  time.Duration
}

// FailedLanguages returns the codes of languages that produced no output
func (r *RunResult) FailedLanguages() []string {
	ret := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		ret = append(ret, f.Language)
	}
	return ret
}

// OutputFileName names the translated file for lang
func OutputFileName(lang string) string {
	return fmt.Sprintf("translated_%s.srt", lang)
}
