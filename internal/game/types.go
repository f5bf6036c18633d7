package game

import (
    "time"

    "github.com/fablefill/fablefill/internal/story"
)

type Phase string

const (
    PhaseWaitingForPlayers Phase = "WaitingForPlayers"
    PhaseCollectingWords   Phase = "CollectingWords"
    PhaseGeneratingStory   Phase = "GeneratingStory"
    PhaseDisplayingStory   Phase = "DisplayingStory"
    PhaseCompleted         Phase = "Completed"
)

const (
    MaxPlayers = 8
    MinPlayers = 2

    maxCodeAttempts = 100
    codeLength      = 6

    // SessionMaxAge is the hard expiry for a room regardless of activity.
    SessionMaxAge = 2 * time.Hour
    // EmptyGrace is how long a room with zero connected players survives
    // before a sweep may collect it.
    EmptyGrace = 30 * time.Second
    // SweepInterval is how often the registry looks for dead rooms.
    SweepInterval = 2 * time.Minute
)

type Player struct {
    ID               string    `json:"id"`
    Name             string    `json:"name"`
    IsHost           bool      `json:"isHost"`
    Connected        bool      `json:"connected"`
    WordsContributed int       `json:"wordsContributed"`
    JoinedAt         time.Time `json:"joinedAt"`
}

// Prompt is the next blank a player should fill.
type Prompt struct {
    BlankID   string         `json:"blankId"`
    Type      story.WordType `json:"type"`
    Remaining int            `json:"remaining"`
}

type PlayerProgress struct {
    PlayerID  string `json:"playerId"`
    Name      string `json:"name"`
    Collected int    `json:"collected"`
    Assigned  int    `json:"assigned"`
}

type Progress struct {
    Collected int              `json:"collected"`
    Total     int              `json:"total"`
    Players   []PlayerProgress `json:"players"`
}

// RoomState is the full snapshot broadcast to every client after a
// mutation. Clients resynchronize from any snapshot they receive.
type RoomState struct {
    Code      string                `json:"code"`
    Phase     Phase                 `json:"phase"`
    Players   []*Player             `json:"players"`
    Progress  *Progress             `json:"progress,omitempty"`
    Story     *story.CompletedStory `json:"story,omitempty"`
    CanStart  bool                  `json:"canStart"`
    CreatedAt time.Time             `json:"createdAt"`
    UpdatedAt time.Time             `json:"updatedAt"`
}
