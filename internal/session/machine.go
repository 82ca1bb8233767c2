package session

import (
	"slices"
	"strings"
	"time"

	"github.com/MimeLyc/srt-translate-bot/internal/apperr"
	"github.com/MimeLyc/srt-translate-bot/internal/subtitle"
)

// ReceiveFile validates and attaches an uploaded subtitle file. A valid file
// clears the previous selection and moves the session to SelectingLanguages;
// an invalid one leaves the session untouched.
func (s *Session) ReceiveFile(name string, data []byte) error {
	if s.Phase == PhaseTranslating {
		return apperr.New(apperr.ErrSessionBusy, "a translation is already in flight").
			WithContext("session", s.Key)
	}

	doc, err := subtitle.ReadBytes(name, data)
	if err != nil {
		return err
	}

	s.Document = doc
	s.FileName = name
	s.Languages = nil
	s.Epoch++
	s.Phase = PhaseSelectingLanguages
	s.touch()
	return nil
}

// Toggle adds code to the selection, or removes it when already selected.
// It returns whether code is selected afterwards.
func (s *Session) Toggle(code string) (bool, error) {
	if err := s.expect(PhaseSelectingLanguages, "toggle language"); err != nil {
		return false, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return false, apperr.New(apperr.ErrInvalidState, "empty language code")
	}

	defer s.touch()
	if i := slices.Index(s.Languages, code); i >= 0 {
		s.Languages = slices.Delete(s.Languages, i, i+1)
		return false, nil
	}
	s.Languages = append(s.Languages, code)
	return true, nil
}

// BeginTranslation moves the session to Translating when at least one
// language is selected.
func (s *Session) BeginTranslation() error {
	if err := s.expect(PhaseSelectingLanguages, "begin translation"); err != nil {
		return err
	}
	if len(s.Languages) == 0 {
		return apperr.New(apperr.ErrNoLanguageSelected, "no target language selected").
			WithContext("session", s.Key)
	}
	s.Phase = PhaseTranslating
	s.touch()
	return nil
}

// Complete marks the in-flight translation of epoch as finished. A stale
// epoch means the session was reset or got a new file meanwhile.
func (s *Session) Complete(epoch uint64) error {
	if s.Epoch != epoch {
		return apperr.New(apperr.ErrInvalidState, "session changed while translating").
			WithContext("session", s.Key)
	}
	if err := s.expect(PhaseTranslating, "complete translation"); err != nil {
		return err
	}
	s.Phase = PhaseDone
	s.touch()
	return nil
}

// Reset discards the document and selection from any phase
func (s *Session) Reset() {
	s.Phase = PhaseAwaitingFile
	s.Document = nil
	s.FileName = ""
	s.Languages = nil
	s.Epoch++
	s.touch()
}

func (s *Session) expect(phase Phase, action string) error {
	if s.Phase != phase {
		return apperr.Newf(apperr.ErrInvalidState, "cannot %s in phase %s", action, s.Phase).
			WithContext("session", s.Key)
	}
	return nil
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now()
}
