package subtitle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSRT = "1\n00:00:01,000 --> 00:00:02,000\nHello\n\n2\n00:00:03,000 --> 00:00:04,000\nHow are you?\nFine, thanks.\n"

func TestParse_MultiLineCues(t *testing.T) {
	cues := Parse(sampleSRT)

	require.Len(t, cues, 2)
	assert.Equal(t, "1", cues[0].Index)
	assert.Equal(t, "00:00:01,000 --> 00:00:02,000", cues[0].Timing)
	assert.Equal(t, []string{"Hello"}, cues[0].Text)
	assert.Equal(t, []string{"How are you?", "Fine, thanks."}, cues[1].Text)
}

func TestParse_SkipsMalformedBlocks(t *testing.T) {
	raw := "1\n00:00:01,000 --> 00:00:02,000\nHello\n\n\nbroken\n\n3\n00:00:05,000 --> 00:00:06,000\nWorld\n"

	cues := Parse(raw)

	require.Len(t, cues, 2)
	assert.Equal(t, "1", cues[0].Index)
	assert.Equal(t, "3", cues[1].Index)
	assert.Equal(t, []string{"World"}, cues[1].Text)
}

func TestParse_NormalizesLineEndingsAndBOM(t *testing.T) {
	raw := "\ufeff1\r\n00:00:01,000 --> 00:00:02,000\r\nHello  \r\n \r\n\t\r\n2\r\n00:00:03,000 --> 00:00:04,000\r\nWorld\r\n"

	cues := Parse(raw)

	require.Len(t, cues, 2)
	assert.Equal(t, "1", cues[0].Index)
	assert.Equal(t, []string{"Hello"}, cues[0].Text)
	assert.Equal(t, "2", cues[1].Index)
}

func TestParse_KeepsTimingMetadataVerbatim(t *testing.T) {
	raw := "7\n00:01:02,003 --> 00:01:04,500 X1:100 X2:200 Y1:10 Y2:20\n<i>Quiet</i>\n"

	cues := Parse(raw)

	require.Len(t, cues, 1)
	assert.Equal(t, "00:01:02,003 --> 00:01:04,500 X1:100 X2:200 Y1:10 Y2:20", cues[0].Timing)
	assert.Equal(t, []string{"<i>Quiet</i>"}, cues[0].Text)
}

func TestParse_EmptyInput(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("\n\n  \n"))
}

func TestSerialize_Format(t *testing.T) {
	cues := []Cue{
		{Index: "1", Timing: "00:00:01,000 --> 00:00:02,000", Text: []string{"Hello"}},
		{Index: "2", Timing: "00:00:03,000 --> 00:00:04,000", Text: []string{"a", "b"}},
	}

	got := Serialize(cues)

	assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,000\nHello\n\n2\n00:00:03,000 --> 00:00:04,000\na\nb", got)
}

func TestSerialize_RoundTripIsIdempotent(t *testing.T) {
	inputs := []string{
		sampleSRT,
		"1\n00:00:01,000 --> 00:00:02,000\nHello\n\n\n\n2\n00:00:03,000 --> 00:00:04,000\nWorld\n\n",
		"orphan\n\n5\n00:00:05,000 --> 00:00:06,000\nline one\n1984\nline three\n",
		"1\r\n00:00:01,000 --> 00:00:02,000\r\n- Hi.\r\n- Hey.\r\n",
	}

	for _, raw := range inputs {
		first := Serialize(Parse(raw))
		second := Serialize(Parse(first))
		assert.Equal(t, first, second)
	}
}

func TestSerialize_ReproducesCleanInput(t *testing.T) {
	clean := "1\n00:00:01,000 --> 00:00:02,000\nHello\n\n2\n00:00:03,000 --> 00:00:04,000\nHow are you?\nFine, thanks."

	assert.Equal(t, clean, Serialize(Parse(clean)))
}

func TestIsStructuralLine(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{line: "", want: true},
		{line: "   ", want: true},
		{line: "12", want: true},
		{line: " 42 ", want: true},
		{line: "00:00:01,000 --> 00:00:02,000", want: true},
		{line: "see you --> there", want: true},
		{line: "Hello", want: false},
		{line: "12 monkeys", want: false},
		{line: "-1", want: false},
		{line: "١٢", want: false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsStructuralLine(tt.line), "line %q", tt.line)
	}
}
