package subtitle

import (
	"strings"

	"golang.org/x/text/language"
)

// Cue is one subtitle entry. Index and Timing are kept verbatim.
type Cue struct {
	Index  string   // index line
	Timing string   // timing line, e.g. "00:00:01,000 --> 00:00:02,000"
	Text   []string // one or more text lines
}

// JoinedText returns the cue text lines joined by newlines
func (c Cue) JoinedText() string {
	return strings.Join(c.Text, "\n")
}

// Clone returns a copy of the cue that shares no memory with c
func (c Cue) Clone() Cue {
	text := make([]string, len(c.Text))
	copy(text, c.Text)
	return Cue{
		Index:  c.Index,
		Timing: c.Timing,
		Text:   text,
	}
}

// Document is an ordered sequence of cues in file order
type Document struct {
	Cues           []Cue
	SourceLanguage language.Tag
	Name           string
}

func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Cues)
}

// WithCues returns a new document carrying d's metadata and the given cues
func (d *Document) WithCues(cues []Cue) *Document {
	return &Document{
		Cues:           cues,
		SourceLanguage: d.SourceLanguage,
		Name:           d.Name,
	}
}
