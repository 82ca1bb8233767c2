package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MimeLyc/srt-translate-bot/internal/apperr"
	"github.com/MimeLyc/srt-translate-bot/internal/subtitle"
	"github.com/MimeLyc/srt-translate-bot/pkg/log"
)

// Granularity controls how much text goes into one translation request
type Granularity string

const (
	// GranularityCue sends each run of text lines of a cue as one request
	GranularityCue Granularity = "cue"
	// GranularityLine sends every text line as its own request
	GranularityLine Granularity = "line"
)

const (
	defaultCueConcurrency = 4
	defaultCallTimeout    = 15 * time.Second
)

type CueTranslatorConfig struct {
	Granularity Granularity
	Concurrency int
	CallTimeout time.Duration
}

// CueTranslator applies a Translator to the text of subtitle cues. Index and
// timing lines are never touched.
type CueTranslator struct {
	translator Translator
	config     CueTranslatorConfig
}

func NewCueTranslator(t Translator, config CueTranslatorConfig) *CueTranslator {
	if config.Granularity != GranularityLine {
		config.Granularity = GranularityCue
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaultCueConcurrency
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = defaultCallTimeout
	}
	return &CueTranslator{
		translator: t,
		config:     config,
	}
}

// CueResult is the outcome of translating one cue. Cue holds the translated
// cue when Err is nil.
type CueResult struct {
	Cue subtitle.Cue
	Err error
}

// CueFailure records a cue that kept its original text
type CueFailure struct {
	Position int
	Index    string
	Err      error
}

// Outcome is the translated cue sequence plus the cues that fell back to
// their original text.
type Outcome struct {
	Cues     []subtitle.Cue
	Failures []CueFailure
}

// AllFailed reports whether there was something to translate and nothing succeeded
func (o Outcome) AllFailed() bool {
	return len(o.Cues) > 0 && len(o.Failures) == len(o.Cues)
}

// Translate translates every cue into targetLang. Cues are processed
// concurrently but the output keeps input order. A failed cue keeps its
// original text; failures never abort the batch.
func (t *CueTranslator) Translate(ctx context.Context, cues []subtitle.Cue, targetLang string) Outcome {
	results := make([]CueResult, len(cues))

	var g errgroup.Group
	g.SetLimit(t.config.Concurrency)
	for i, cue := range cues {
		g.Go(func() error {
			results[i] = t.translateCue(ctx, cue, targetLang)
			return nil
		})
	}
	_ = g.Wait()

	return resolve(cues, results, targetLang)
}

// resolve applies the fallback policy: a failed cue keeps its original text
func resolve(cues []subtitle.Cue, results []CueResult, targetLang string) Outcome {
	out := Outcome{
		Cues: make([]subtitle.Cue, len(cues)),
	}
	for i, res := range results {
		if res.Err == nil {
			out.Cues[i] = res.Cue
			continue
		}
		log.Warn("Cue %s kept original text for %s: %v", cues[i].Index, targetLang, res.Err)
		out.Cues[i] = cues[i].Clone()
		out.Failures = append(out.Failures, CueFailure{
			Position: i,
			Index:    cues[i].Index,
			Err:      res.Err,
		})
	}
	return out
}

func (t *CueTranslator) translateCue(ctx context.Context, cue subtitle.Cue, targetLang string) CueResult {
	if err := ctx.Err(); err != nil {
		return CueResult{Err: err}
	}

	text := make([]string, 0, len(cue.Text))
	var run []string

	flush := func() error {
		if len(run) == 0 {
			return nil
		}
		translated, err := t.call(ctx, strings.Join(run, "\n"), targetLang)
		if err != nil {
			return err
		}
		text = append(text, translated...)
		run = run[:0]
		return nil
	}

	for _, line := range cue.Text {
		if subtitle.IsStructuralLine(line) {
			if err := flush(); err != nil {
				return CueResult{Err: err}
			}
			text = append(text, line)
			continue
		}

		run = append(run, strings.TrimSpace(line))
		if t.config.Granularity == GranularityLine {
			if err := flush(); err != nil {
				return CueResult{Err: err}
			}
		}
	}
	if err := flush(); err != nil {
		return CueResult{Err: err}
	}

	return CueResult{
		Cue: subtitle.Cue{
			Index:  cue.Index,
			Timing: cue.Timing,
			Text:   text,
		},
	}
}

// call performs one time-bounded request and splits the answer into
// non-blank lines
func (t *CueTranslator) call(ctx context.Context, text string, targetLang string) ([]string, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.config.CallTimeout)
	defer cancel()

	translated, err := t.translator.Translate(callCtx, text, targetLang)
	if err != nil {
		return nil, translationError(t.translator.Name(), targetLang, err)
	}

	lines := sanitize(translated)
	if len(lines) == 0 {
		return nil, apperr.New(apperr.ErrTranslation, fmt.Sprintf("%s returned an empty translation", t.translator.Name())).
			WithContext("lang", targetLang)
	}
	return lines, nil
}

// sanitize drops blank lines, which would otherwise split the cue in two
func sanitize(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := make([]string, 0, strings.Count(text, "\n")+1)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
