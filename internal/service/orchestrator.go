package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MimeLyc/srt-translate-bot/internal/apperr"
	"github.com/MimeLyc/srt-translate-bot/internal/session"
	"github.com/MimeLyc/srt-translate-bot/pkg/log"
)

const defaultLanguageConcurrency = 3

// Orchestrator fans a session's document out to every selected language
type Orchestrator struct {
	cues        CueTranslator
	concurrency int
}

func NewOrchestrator(cues CueTranslator, languageConcurrency int) *Orchestrator {
	if languageConcurrency <= 0 {
		languageConcurrency = defaultLanguageConcurrency
	}
	return &Orchestrator{
		cues:        cues,
		concurrency: languageConcurrency,
	}
}

type languageResult struct {
	output *Output
	err    error
}

// Run translates sess.Document into each of sess.Languages. Languages are
// independent: a language that fails is reported in RunResult.Failures and
// the others still produce output.
func (o *Orchestrator) Run(ctx context.Context, sess session.Session) (*RunResult, error) {
	if len(sess.Languages) == 0 {
		return nil, apperr.New(apperr.ErrNoLanguageSelected, "no target language selected").
			WithContext("session", sess.Key)
	}
	if sess.Document == nil || sess.Document.Len() == 0 {
		return nil, apperr.New(apperr.ErrInvalidState, "session has no subtitle document").
			WithContext("session", sess.Key)
	}

	start := time.Now()
	results := make([]languageResult, len(sess.Languages))

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, lang := range sess.Languages {
		g.Go(func() error {
			output, err := o.runLanguage(ctx, sess, lang)
			results[i] = languageResult{output: output, err: err}
			return nil
		})
	}
	_ = g.Wait()

	ret := &RunResult{}
	for i, res := range results {
		lang := sess.Languages[i]
		if res.err != nil {
			log.Error("Translation of session %s into %s failed: %v", sess.Key, lang, res.err)
			ret.Failures = append(ret.Failures, LanguageFailure{Language: lang, Err: res.err})
			continue
		}
		ret.Outputs = append(ret.Outputs, *res.output)
	}
	ret.Elapsed = time.Since(start)

	log.Info("Session %s translated into %d/%d languages in %v",
		sess.Key, len(ret.Outputs), len(sess.Languages), ret.Elapsed)
	return ret, nil
}

func (o *Orchestrator) runLanguage(ctx context.Context, sess session.Session, lang string) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := sess.Document
	outcome := o.cues.Translate(ctx, doc.Cues, lang)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if outcome.AllFailed() {
		return nil, apperr.Wrap(outcome.Failures[0].Err, apperr.ErrTranslation, "every cue failed to translate").
			WithContext("lang", lang).
			WithContext("cues", len(outcome.Cues))
	}

	translated := doc.WithCues(outcome.Cues)
	if len(outcome.Failures) > 0 {
		log.Warn("Session %s: %d of %d cues kept original text for %s",
			sess.Key, len(outcome.Failures), len(outcome.Cues), lang)
	}

	return &Output{
		Language:  lang,
		FileName:  OutputFileName(lang),
		Data:      translated.Bytes(),
		CueCount:  len(outcome.Cues),
		Fallbacks: len(outcome.Failures),
	}, nil
}
