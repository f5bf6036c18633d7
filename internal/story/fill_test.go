package story

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTemplate() *Template {
	return &Template{
		ID:          "t1",
		Title:       "Test",
		TotalBlanks: 3,
		Paragraphs: []Paragraph{
			{
				Text: "The {{0}} jumped over the {{1}}.",
				Blanks: []Blank{
					{ID: "b1", Type: TypeNoun, Position: 0},
					{ID: "b2", Type: TypeNoun, Position: 1},
				},
			},
			{
				Text:   "Then it started to {{0}} loudly.",
				Blanks: []Blank{{ID: "b3", Type: TypeVerb, Position: 0}},
			},
		},
	}
}

func sub(blankID, playerID, word string) *Submission {
	return &Submission{
		BlankID:     blankID,
		PlayerID:    playerID,
		PlayerName:  "Player " + playerID,
		Word:        word,
		SubmittedAt: time.Now().UTC(),
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(testTemplate()))

	mismatch := testTemplate()
	mismatch.TotalBlanks = 5
	assert.Error(t, Validate(mismatch))

	missingBlank := testTemplate()
	missingBlank.Paragraphs[0].Blanks = missingBlank.Paragraphs[0].Blanks[:1]
	assert.Error(t, Validate(missingBlank))

	badPosition := testTemplate()
	badPosition.Paragraphs[0].Blanks[1].Position = 7
	assert.Error(t, Validate(badPosition))

	assert.Error(t, Validate(nil))
}

func TestFallbackIsValid(t *testing.T) {
	for _, n := range []int{1, 2, 4, 8} {
		assert.NoError(t, Validate(Fallback(n)))
	}
}

func TestFillReplacesAndHighlights(t *testing.T) {
	st := Fill(testTemplate(), []*Submission{
		sub("b1", "p1", "cow"),
		sub("b2", "p2", "moon"),
		sub("b3", "p1", "sing"),
	})
	require.Len(t, st.Paragraphs, 2)
	assert.Equal(t, "The cow jumped over the moon.", st.Paragraphs[0].Text)
	assert.Equal(t, "Then it started to sing loudly.", st.Paragraphs[1].Text)

	require.Len(t, st.Paragraphs[0].Highlights, 2)
	h := st.Paragraphs[0].Highlights[0]
	assert.Equal(t, "cow", st.Paragraphs[0].Text[h.Start:h.End])
	assert.Equal(t, "p1", h.PlayerID)
	h = st.Paragraphs[0].Highlights[1]
	assert.Equal(t, "moon", st.Paragraphs[0].Text[h.Start:h.End])
	assert.Equal(t, "p2", h.PlayerID)
}

func TestFillLeavesUnfilledMarker(t *testing.T) {
	st := Fill(testTemplate(), []*Submission{sub("b1", "p1", "cow")})
	assert.Equal(t, "The cow jumped over the {{1}}.", st.Paragraphs[0].Text)
	assert.Len(t, st.Paragraphs[0].Highlights, 1)
}

func TestFillIgnoresUnknownBlankID(t *testing.T) {
	st := Fill(testTemplate(), []*Submission{
		sub("nope", "p1", "ghost"),
		sub("b3", "p2", "dance"),
	})
	assert.Equal(t, "Then it started to dance loudly.", st.Paragraphs[1].Text)
	require.Len(t, st.Contributions, 1)
	assert.Equal(t, "p2", st.Contributions[0].PlayerID)
}

func TestFillContributions(t *testing.T) {
	st := Fill(testTemplate(), []*Submission{
		sub("b1", "p1", "cow"),
		sub("b2", "p2", "moon"),
		sub("b3", "p1", "sing"),
	})
	require.Len(t, st.Contributions, 2)
	assert.Equal(t, []string{"cow", "sing"}, st.Contributions[0].Words)
	assert.Equal(t, []string{"moon"}, st.Contributions[1].Words)
}

func TestCountMarkers(t *testing.T) {
	assert.Equal(t, 3, CountMarkers(testTemplate()))
	assert.Equal(t, 0, CountMarkers(&Template{Paragraphs: []Paragraph{{Text: "no blanks"}}}))
}
