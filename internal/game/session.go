package game

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "sync"
    "time"

    "github.com/fablefill/fablefill/internal/story"
    "github.com/fablefill/fablefill/internal/validate"
    "github.com/google/uuid"
)

var (
    ErrRoomNotFound   = errors.New("room not found")
    ErrPlayerNotFound = errors.New("player not found")
    ErrRoomFull       = errors.New("room full")
    ErrNameTaken      = errors.New("name already taken")
    ErrInvalidPhase   = errors.New("invalid phase for action")
    ErrNotHost        = errors.New("not host")
    ErrNoPendingBlank = errors.New("no unfilled blank assigned to player")
    ErrTooFewPlayers  = errors.New("not enough connected players")
    ErrStartInFlight  = errors.New("start already in progress")
    ErrGenerating     = errors.New("story generation already running")
)

// Session is one game room. Every mutation goes through the session mutex;
// provider calls happen off-lock and commit their result by reacquiring it.
// Sessions never touch each other's state.
type Session struct {
    ID        string
    Code      string
    CreatedAt time.Time

    mu          sync.Mutex
    updatedAt   time.Time
    hostID      string
    players     []*Player // join order
    phase       Phase
    template    *story.Template
    submissions map[string]*story.Submission // blank id -> submission
    result      *story.CompletedStory
    starting    bool
    generating  bool
    emptySince  time.Time // set while zero players are connected
    expiry      *time.Timer
}

func newSession(code, hostID, hostName string) *Session {
    now := time.Now().UTC()
    return &Session{
        ID:        uuid.NewString(),
        Code:      code,
        CreatedAt: now,
        updatedAt: now,
        hostID:    hostID,
        players: []*Player{{
            ID:        hostID,
            Name:      hostName,
            IsHost:    true,
            Connected: true,
            JoinedAt:  now,
        }},
        phase:       PhaseWaitingForPlayers,
        submissions: make(map[string]*story.Submission),
    }
}

func (s *Session) touch() { s.updatedAt = time.Now().UTC() }

func (s *Session) playerByID(id string) *Player {
    for _, p := range s.players {
        if p.ID == id {
            return p
        }
    }
    return nil
}

// claimHostLocked hands the host flag to p when the room lost its host
// while nobody was connected. Keeps exactly one host whenever a connected
// player exists.
func (s *Session) claimHostLocked(p *Player) {
    if s.hostID == "" {
        p.IsHost = true
        s.hostID = p.ID
    }
}

func (s *Session) connectedCount() int {
    n := 0
    for _, p := range s.players {
        if p.Connected {
            n++
        }
    }
    return n
}

func (s *Session) Phase() Phase {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.phase
}

func (s *Session) HostID() string {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.hostID
}

// Join adds a player, or reconnects one whose id is already known. A
// reconnect updates the display name in place and never duplicates the
// record. The returned bool is true for reconnects.
func (s *Session) Join(playerID, name string) (*Player, bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()

    if p := s.playerByID(playerID); p != nil {
        p.Name = name
        p.Connected = true
        s.claimHostLocked(p)
        s.emptySince = time.Time{}
        s.touch()
        return p, true, nil
    }
    if s.connectedCount() >= MaxPlayers {
        return nil, false, ErrRoomFull
    }
    for _, p := range s.players {
        if p.Connected && strings.EqualFold(p.Name, name) {
            return nil, false, ErrNameTaken
        }
    }
    p := &Player{ID: playerID, Name: name, Connected: true, JoinedAt: time.Now().UTC()}
    s.players = append(s.players, p)
    s.emptySince = time.Time{}
    s.touch()
    return p, false, nil
}

// Reconnect flips a known player back to connected without changing the
// name, for clients resuming with a stored player id.
func (s *Session) Reconnect(playerID string) (*Player, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    p := s.playerByID(playerID)
    if p == nil {
        return nil, ErrPlayerNotFound
    }
    p.Connected = true
    s.claimHostLocked(p)
    s.emptySince = time.Time{}
    s.touch()
    return p, nil
}

// SetConnected updates the connection flag only. It never removes the
// player or changes phase.
func (s *Session) SetConnected(playerID string, connected bool) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    p := s.playerByID(playerID)
    if p == nil {
        return ErrPlayerNotFound
    }
    p.Connected = connected
    if connected {
        s.claimHostLocked(p)
        s.emptySince = time.Time{}
    } else if s.connectedCount() == 0 {
        s.emptySince = time.Now().UTC()
    }
    s.touch()
    return nil
}

// RemovePlayer handles an explicit leave. While waiting the record is
// deleted; in any later phase the player is only marked disconnected, so
// issued blank assignments stay valid. Returns the id of the new host when
// the host flag moved.
func (s *Session) RemovePlayer(playerID string) (newHostID string, err error) {
    s.mu.Lock()
    defer s.mu.Unlock()

    p := s.playerByID(playerID)
    if p == nil {
        return "", ErrPlayerNotFound
    }
    wasHost := p.IsHost

    if s.phase == PhaseWaitingForPlayers {
        for i, q := range s.players {
            if q.ID == playerID {
                s.players = append(s.players[:i], s.players[i+1:]...)
                break
            }
        }
    } else {
        p.Connected = false
        p.IsHost = false
    }

    if wasHost {
        s.hostID = ""
        p.IsHost = false
        for _, q := range s.players {
            if q.Connected {
                q.IsHost = true
                s.hostID = q.ID
                newHostID = q.ID
                break
            }
        }
    }
    if s.connectedCount() == 0 {
        s.emptySince = time.Now().UTC()
    }
    s.touch()
    return newHostID, nil
}

// CanStart reports whether enough players are connected to begin.
func (s *Session) CanStart() bool {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.phase == PhaseWaitingForPlayers && s.connectedCount() >= MinPlayers
}

// StartWordCollection obtains a template from the provider, validates it,
// assigns its blanks round-robin over the currently connected players and
// moves the room to CollectingWords. The provider call runs without the
// session lock; the template, assignment and phase commit together. A
// failed or structurally invalid template is replaced by the fallback.
func (s *Session) StartWordCollection(ctx context.Context, provider story.TemplateProvider, theme string) error {
    s.mu.Lock()
    if s.phase != PhaseWaitingForPlayers {
        s.mu.Unlock()
        return ErrInvalidPhase
    }
    if s.starting {
        s.mu.Unlock()
        return ErrStartInFlight
    }
    playerCount := s.connectedCount()
    if playerCount < MinPlayers {
        s.mu.Unlock()
        return ErrTooFewPlayers
    }
    s.starting = true
    s.mu.Unlock()

    var tmpl *story.Template
    if provider != nil {
        err := story.Retry(ctx, func(ctx context.Context) error {
            t, err := provider.GenerateTemplate(ctx, theme, playerCount)
            if err != nil {
                return err
            }
            tmpl = t
            return nil
        })
        if err != nil || story.Validate(tmpl) != nil {
            tmpl = nil
        }
    }
    if tmpl == nil {
        tmpl = story.Fallback(playerCount)
    }

    s.mu.Lock()
    defer s.mu.Unlock()
    s.starting = false
    if s.phase != PhaseWaitingForPlayers {
        return ErrInvalidPhase
    }
    var connected []*Player
    for _, p := range s.players {
        if p.Connected {
            connected = append(connected, p)
        }
    }
    if err := assignBlanks(tmpl, connected); err != nil {
        return err
    }
    s.template = tmpl
    s.submissions = make(map[string]*story.Submission)
    s.phase = PhaseCollectingWords
    s.touch()
    return nil
}

// nextBlankFor walks blanks in paragraph-then-position order and returns
// the player's first assigned blank without a submission.
func (s *Session) nextBlankFor(playerID string) (*story.Blank, int) {
    var first *story.Blank
    remaining := 0
    for pi := range s.template.Paragraphs {
        blanks := s.template.Paragraphs[pi].Blanks
        for bi := range blanks {
            b := &blanks[bi]
            if b.AssignedPlayerID != playerID || s.submissions[b.ID] != nil {
                continue
            }
            if first == nil {
                first = b
            }
            remaining++
        }
    }
    return first, remaining
}

// SubmitWord accepts one word for the submitting player's next unfilled
// blank. The "all blanks collected" check runs under the same lock as the
// accepting submission, so the returned done flag is true for exactly one
// call even when last words race.
func (s *Session) SubmitWord(playerID, word string) (*story.Submission, bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()

    if s.phase != PhaseCollectingWords {
        return nil, false, ErrInvalidPhase
    }
    p := s.playerByID(playerID)
    if p == nil {
        return nil, false, ErrPlayerNotFound
    }
    blank, _ := s.nextBlankFor(playerID)
    if blank == nil {
        return nil, false, ErrNoPendingBlank
    }
    clean, err := validate.Word(blank.Type, word)
    if err != nil {
        return nil, false, err
    }
    sub := &story.Submission{
        BlankID:     blank.ID,
        PlayerID:    p.ID,
        PlayerName:  p.Name,
        Word:        clean,
        Type:        blank.Type,
        SubmittedAt: time.Now().UTC(),
    }
    s.submissions[blank.ID] = sub
    p.WordsContributed++
    s.touch()
    if len(s.submissions) == s.template.TotalBlanks {
        s.phase = PhaseGeneratingStory
        return sub, true, nil
    }
    return sub, false, nil
}

// GenerateStory fills the template with the collected words and fetches
// one illustration per paragraph. The fill and image calls run without the
// lock; the finished story and the DisplayingStory transition commit
// together. One failed image degrades to a paragraph without one, but a
// fully failed batch leaves the room in GeneratingStory and returns the
// error for the caller to surface.
func (s *Session) GenerateStory(ctx context.Context, images story.ImageProvider) (*story.CompletedStory, error) {
    s.mu.Lock()
    if s.phase != PhaseGeneratingStory {
        s.mu.Unlock()
        return nil, ErrInvalidPhase
    }
    if s.generating {
        s.mu.Unlock()
        return nil, ErrGenerating
    }
    s.generating = true
    tmpl := s.template
    subs := make([]*story.Submission, 0, len(s.submissions))
    for _, sub := range s.submissions {
        subs = append(subs, sub)
    }
    s.mu.Unlock()

    st := story.Fill(tmpl, subs)

    if images != nil {
        prompts, failures := 0, 0
        for i := range tmpl.Paragraphs {
            prompt := tmpl.Paragraphs[i].ImagePrompt
            if prompt == "" {
                continue
            }
            prompts++
            var url string
            err := story.Retry(ctx, func(ctx context.Context) error {
                u, err := images.GenerateImage(ctx, prompt)
                if err != nil {
                    return err
                }
                url = u
                return nil
            })
            if err != nil {
                failures++
                continue
            }
            st.Paragraphs[i].ImageURL = url
        }
        if prompts > 0 && failures == prompts {
            s.mu.Lock()
            s.generating = false
            s.mu.Unlock()
            return nil, fmt.Errorf("image generation failed for all %d paragraphs", prompts)
        }
    }

    s.mu.Lock()
    defer s.mu.Unlock()
    s.generating = false
    if s.phase != PhaseGeneratingStory {
        return nil, ErrInvalidPhase
    }
    s.result = st
    s.phase = PhaseDisplayingStory
    s.touch()
    return st, nil
}

// Complete is the host acknowledging the displayed story. The room cannot
// be replayed; a new one is required.
func (s *Session) Complete(playerID string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if playerID != s.hostID {
        return ErrNotHost
    }
    if s.phase != PhaseDisplayingStory {
        return ErrInvalidPhase
    }
    s.phase = PhaseCompleted
    s.touch()
    return nil
}

// CurrentPrompt returns the player's next unfilled blank, or nil when they
// have none pending.
func (s *Session) CurrentPrompt(playerID string) (*Prompt, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.phase != PhaseCollectingWords {
        return nil, ErrInvalidPhase
    }
    if s.playerByID(playerID) == nil {
        return nil, ErrPlayerNotFound
    }
    blank, remaining := s.nextBlankFor(playerID)
    if blank == nil {
        return nil, nil
    }
    return &Prompt{BlankID: blank.ID, Type: blank.Type, Remaining: remaining}, nil
}

// Progress reports collected versus total blanks, per player.
func (s *Session) Progress() *Progress {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.progressLocked()
}

func (s *Session) progressLocked() *Progress {
    if s.template == nil {
        return nil
    }
    pr := &Progress{Collected: len(s.submissions), Total: s.template.TotalBlanks}
    assigned := make(map[string]int)
    collected := make(map[string]int)
    for _, para := range s.template.Paragraphs {
        for _, b := range para.Blanks {
            assigned[b.AssignedPlayerID]++
            if s.submissions[b.ID] != nil {
                collected[b.AssignedPlayerID]++
            }
        }
    }
    for _, p := range s.players {
        if assigned[p.ID] == 0 {
            continue
        }
        pr.Players = append(pr.Players, PlayerProgress{
            PlayerID:  p.ID,
            Name:      p.Name,
            Collected: collected[p.ID],
            Assigned:  assigned[p.ID],
        })
    }
    return pr
}

// Snapshot builds the full room state for broadcast.
func (s *Session) Snapshot() *RoomState {
    s.mu.Lock()
    defer s.mu.Unlock()
    players := make([]*Player, 0, len(s.players))
    for _, p := range s.players {
        cp := *p
        players = append(players, &cp)
    }
    return &RoomState{
        Code:      s.Code,
        Phase:     s.phase,
        Players:   players,
        Progress:  s.progressLocked(),
        Story:     s.result,
        CanStart:  s.phase == PhaseWaitingForPlayers && s.connectedCount() >= MinPlayers,
        CreatedAt: s.CreatedAt,
        UpdatedAt: s.updatedAt,
    }
}

// expired reports whether a sweep may collect this session.
func (s *Session) expired(now time.Time) bool {
    s.mu.Lock()
    defer s.mu.Unlock()
    if now.Sub(s.CreatedAt) > SessionMaxAge {
        return true
    }
    return s.connectedCount() == 0 && !s.emptySince.IsZero() && now.Sub(s.emptySince) > EmptyGrace
}

func (s *Session) stopTimers() {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.expiry != nil {
        s.expiry.Stop()
        s.expiry = nil
    }
}
