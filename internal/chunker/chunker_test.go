package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{name: "defaults", size: DefaultSize, overlap: DefaultOverlap, wantErr: false},
		{name: "zero overlap", size: 100, overlap: 0, wantErr: false},
		{name: "zero size", size: 0, overlap: 0, wantErr: true},
		{name: "negative size", size: -1, overlap: 0, wantErr: true},
		{name: "negative overlap", size: 100, overlap: -1, wantErr: true},
		{name: "overlap equals size", size: 100, overlap: 100, wantErr: true},
		{name: "overlap exceeds size", size: 100, overlap: 150, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.size, tt.overlap)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, c)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, c)
			}
		})
	}
}

func TestSplitEmptyInput(t *testing.T) {
	c, err := New(DefaultSize, DefaultOverlap)
	require.NoError(t, err)

	assert.Empty(t, c.Split(""))
}

func TestSplitShortText(t *testing.T) {
	c, err := New(DefaultSize, DefaultOverlap)
	require.NoError(t, err)

	text := "This contract is short. It fits in one chunk."
	segments := c.Split(text)

	require.Len(t, segments, 1)
	assert.Equal(t, 0, segments[0].Index)
	assert.Equal(t, text, segments[0].Text)
	assert.Equal(t, 0, segments[0].Start)
	assert.Equal(t, len(text), segments[0].End)
}

func TestSplitWhitespaceOnly(t *testing.T) {
	c, err := New(100, 20)
	require.NoError(t, err)

	assert.Empty(t, c.Split(strings.Repeat(" ", 500)))
}

func TestSplitCoversWholeText(t *testing.T) {
	c, err := New(200, 50)
	require.NoError(t, err)

	text := strings.TrimSpace(strings.Repeat("The vendor shall deliver the goods on time. ", 60))
	segments := c.Split(text)

	require.NotEmpty(t, segments)
	assert.Equal(t, 0, segments[0].Start)
	assert.Equal(t, len(text), segments[len(segments)-1].End)

	for i, seg := range segments {
		assert.Equal(t, i, seg.Index)
		assert.NotEmpty(t, seg.Text)
		assert.Equal(t, strings.TrimSpace(seg.Text), seg.Text)
		assert.GreaterOrEqual(t, seg.Start, 0)
		assert.LessOrEqual(t, seg.End, len(text))
		assert.Less(t, seg.Start, seg.End)
	}

	// No gap between adjacent segments: each starts at or before the
	// previous end, and never further back than the overlap allows.
	for i := 1; i < len(segments); i++ {
		assert.LessOrEqual(t, segments[i].Start, segments[i-1].End)
		assert.GreaterOrEqual(t, segments[i].Start, segments[i-1].End-50)
		assert.Greater(t, segments[i].Start, segments[i-1].Start)
	}
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	c, err := New(1000, 0)
	require.NoError(t, err)

	// The only sentence boundary near the 1000-char candidate cut ends
	// at position 952; the chunker should cut there.
	text := strings.Repeat("a", 950) + ". " + strings.Repeat("b", 500)
	segments := c.Split(text)

	require.NotEmpty(t, segments)
	assert.Equal(t, 952, segments[0].End)
	assert.True(t, strings.HasSuffix(segments[0].Text, "."))
}

func TestSplitParagraphBoundary(t *testing.T) {
	c, err := New(1000, 0)
	require.NoError(t, err)

	// No sentence punctuation anywhere, but a blank line near the cut.
	text := strings.Repeat("a", 960) + "\n\n" + strings.Repeat("b", 500)
	segments := c.Split(text)

	require.NotEmpty(t, segments)
	assert.Equal(t, 962, segments[0].End)
}

func TestSplitTerminatesOnEarlyBoundary(t *testing.T) {
	// A boundary cut landing inside the overlap region must not stall
	// the cursor.
	c, err := New(150, 140)
	require.NoError(t, err)

	text := strings.Repeat("a", 50) + ". " + strings.Repeat("x", 1000)
	segments := c.Split(text)

	require.NotEmpty(t, segments)
	for i := 1; i < len(segments); i++ {
		assert.Greater(t, segments[i].Start, segments[i-1].Start)
	}
	assert.Equal(t, len(text), segments[len(segments)-1].End)
}

func TestStrings(t *testing.T) {
	c, err := New(DefaultSize, DefaultOverlap)
	require.NoError(t, err)

	text := "First sentence here. Second sentence there."
	out := c.Strings(text)

	require.Len(t, out, 1)
	assert.Equal(t, text, out[0])
}

func TestSplitDeterministic(t *testing.T) {
	c, err := New(300, 60)
	require.NoError(t, err)

	text := strings.Repeat("Each party shall keep the terms confidential. ", 40)
	assert.Equal(t, c.Split(text), c.Split(text))
}
