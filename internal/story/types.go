package story

import (
    "time"
)

type WordType string

const (
    TypeNoun        WordType = "noun"
    TypePluralNoun  WordType = "plural-noun"
    TypeVerb        WordType = "verb"
    TypeAdjective   WordType = "adjective"
    TypeAdverb      WordType = "adverb"
    TypeNumber      WordType = "number"
    TypePlace       WordType = "place"
    TypeName        WordType = "name"
    TypeExclamation WordType = "exclamation"
)

// Blank is a single fill-in slot inside a paragraph. Position is the
// zero-based marker index within its paragraph, matching a {{N}} marker
// in the paragraph text.
type Blank struct {
    ID               string   `json:"id"`
    Type             WordType `json:"type"`
    Position         int      `json:"position"`
    AssignedPlayerID string   `json:"assignedPlayerId,omitempty"`
}

type Paragraph struct {
    Text        string  `json:"text"`
    ImagePrompt string  `json:"imagePrompt,omitempty"`
    Blanks      []Blank `json:"blanks"`
}

type Template struct {
    ID          string      `json:"id"`
    Title       string      `json:"title"`
    Theme       string      `json:"theme,omitempty"`
    TotalBlanks int         `json:"totalBlanks"`
    Paragraphs  []Paragraph `json:"paragraphs"`
}

type Submission struct {
    BlankID     string    `json:"blankId"`
    PlayerID    string    `json:"playerId"`
    PlayerName  string    `json:"playerName"`
    Word        string    `json:"word"`
    Type        WordType  `json:"type"`
    SubmittedAt time.Time `json:"submittedAt"`
}

// Highlight marks the rune span a submitted word occupies in the filled
// paragraph text.
type Highlight struct {
    Start    int    `json:"start"`
    End      int    `json:"end"`
    BlankID  string `json:"blankId"`
    PlayerID string `json:"playerId"`
}

type FilledParagraph struct {
    Text       string      `json:"text"`
    Highlights []Highlight `json:"highlights"`
    ImageURL   string      `json:"imageUrl,omitempty"`
}

type Contribution struct {
    PlayerID   string   `json:"playerId"`
    PlayerName string   `json:"playerName"`
    Words      []string `json:"words"`
}

type CompletedStory struct {
    Title         string            `json:"title"`
    Paragraphs    []FilledParagraph `json:"paragraphs"`
    Contributions []Contribution    `json:"contributions"`
}
