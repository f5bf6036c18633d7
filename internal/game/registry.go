package game

import (
    "context"
    "errors"
    "math/rand"
    "sync"
    "time"
)

// ErrCodeSpaceExhausted means code generation kept colliding. This is the
// one fatal condition here: it signals a configuration problem, not a
// transient fault.
var ErrCodeSpaceExhausted = errors.New("room code space exhausted")

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Registry owns the map from room code to session. The map is the only
// state shared across rooms; operations on different sessions run fully in
// parallel.
type Registry struct {
    mu     sync.RWMutex
    rooms  map[string]*Session
    used   map[string]struct{} // every code ever issued, so stale links never hit a new room
    codeFn func(int) string    // swapped in tests
}

func NewRegistry() *Registry {
    return &Registry{
        rooms:  make(map[string]*Session),
        used:   make(map[string]struct{}),
        codeFn: randomCode,
    }
}

// CreateRoom makes a session with the given player as connected host and
// schedules its absolute-age expiry.
func (r *Registry) CreateRoom(hostID, hostName string) (*Session, error) {
    r.mu.Lock()
    defer r.mu.Unlock()

    code := ""
    for i := 0; i < maxCodeAttempts; i++ {
        c := r.codeFn(codeLength)
        if _, taken := r.used[c]; !taken {
            code = c
            break
        }
    }
    if code == "" {
        return nil, ErrCodeSpaceExhausted
    }
    s := newSession(code, hostID, hostName)
    s.expiry = time.AfterFunc(SessionMaxAge, func() { r.Remove(code) })
    r.used[code] = struct{}{}
    r.rooms[code] = s
    return s, nil
}

func (r *Registry) Get(code string) (*Session, error) {
    r.mu.RLock()
    defer r.mu.RUnlock()
    s := r.rooms[code]
    if s == nil {
        return nil, ErrRoomNotFound
    }
    return s, nil
}

func (r *Registry) Remove(code string) {
    r.mu.Lock()
    s := r.rooms[code]
    delete(r.rooms, code)
    r.mu.Unlock()
    if s != nil {
        s.stopTimers()
    }
}

// Sweep removes sessions past their age or empty-room grace. Advisory
// cleanup: a session missed by one sweep is caught by the next.
func (r *Registry) Sweep() int {
    now := time.Now().UTC()
    r.mu.RLock()
    var dead []string
    for code, s := range r.rooms {
        if s.expired(now) {
            dead = append(dead, code)
        }
    }
    r.mu.RUnlock()
    for _, code := range dead {
        r.Remove(code)
    }
    return len(dead)
}

// Run sweeps periodically until the context ends.
func (r *Registry) Run(ctx context.Context) {
    t := time.NewTicker(SweepInterval)
    defer t.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-t.C:
            r.Sweep()
        }
    }
}

func randomCode(n int) string {
    b := make([]byte, n)
    for i := range b {
        b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
    }
    return string(b)
}
