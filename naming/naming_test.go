package naming

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock(ts string) Namer {
	return Namer{Now: func() time.Time {
		t, err := time.Parse(TimestampLayout, ts)
		if err != nil {
			panic(err)
		}
		return t
	}}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"deck", "deck"},
		{"deck_insertion_20240101_120000", "deck"},
		{"deck_insertion_20240101_120000_deletion_20240102_130000", "deck"},
		{"deck__v2", "deck_v2"},
		{"deck-_-v2", "deck-v2"},
		{"deck_", "deck"},
		{"deck_-", "deck"},
		{"q3_report_output_20241231_235959_final", "q3_report_final"},
		{"deck_insertion_2024_120000", "deck_insertion_2024_120000"},
		{"deck_Insertion_20240101_120000", "deck_Insertion_20240101_120000"},
		{"", ""},
		// decomposed e + combining acute comes back composed
		{"cafe\u0301_creation_20240101_000000", "caf\u00e9"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
			assert.Equal(t, Sanitize(tt.in), Sanitize(Sanitize(tt.in)))
		})
	}
}

func TestSanitizeSynthesizedNames(t *testing.T) {
	n := fixedClock("20240315_093000")
	name := n.Synthesize(n.Synthesize("deck", Insertion), Deletion)
	assert.Equal(t, "deck_deletion_20240315_093000", name)

	once := Sanitize(name)
	assert.Equal(t, "deck", once)
	assert.Equal(t, once, Sanitize(once))
}

func TestSynthesize(t *testing.T) {
	n := fixedClock("20240102_030405")
	assert.Equal(t, "deck_creation_20240102_030405", n.Synthesize("deck", Creation))
	assert.Equal(t, "deck_output_20240102_030405", n.Synthesize("deck_output_20200101_000000", Output))
}

func TestSynthesizePath(t *testing.T) {
	n := fixedClock("20240102_030405")
	got := n.SynthesizePath(filepath.Join("out", "deck_insertion_20230101_000000.pptx"), Insertion)
	assert.Equal(t, filepath.Join("out", "deck_insertion_20240102_030405.pptx"), got)

	assert.Equal(t, "plain_deletion_20240102_030405", n.SynthesizePath("plain", Deletion))
}

func TestZeroNamerUsesWallClock(t *testing.T) {
	name := Namer{}.Synthesize("deck", Output)
	assert.Regexp(t, `^deck_output_\d{8}_\d{6}$`, name)
	assert.Equal(t, "deck", Sanitize(name))
}
