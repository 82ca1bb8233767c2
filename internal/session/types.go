package session

import (
	"slices"
	"time"

	"github.com/MimeLyc/srt-translate-bot/internal/subtitle"
)

type Phase string

const (
	PhaseAwaitingFile       Phase = "awaiting_file"
	PhaseSelectingLanguages Phase = "selecting_languages"
	PhaseTranslating        Phase = "translating"
	PhaseDone               Phase = "done"
)

// Session is the conversational state of one chat
type Session struct {
	Key       string
	Phase     Phase
	Document  *subtitle.Document
	FileName  string
	Languages []string // selection order, unique
	Epoch     uint64
	UpdatedAt time.Time
}

// New returns an empty session awaiting a file
func New(key string) *Session {
	return &Session{
		Key:       key,
		Phase:     PhaseAwaitingFile,
		UpdatedAt: time.Now(),
	}
}

// IsSelected reports whether code is in the current selection
func (s *Session) IsSelected(code string) bool {
	return slices.Contains(s.Languages, code)
}

// Snapshot returns a copy safe to hand to other goroutines. The document is
// shared because it is never mutated after parsing.
func (s *Session) Snapshot() Session {
	cp := *s
	cp.Languages = slices.Clone(s.Languages)
	return cp
}
