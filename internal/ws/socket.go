package ws

import (
    "context"
    "errors"
    "net/http"

    "github.com/fablefill/fablefill/internal/config"
    "github.com/fablefill/fablefill/internal/game"
    "github.com/fablefill/fablefill/internal/story"
    "github.com/fablefill/fablefill/internal/validate"
    "github.com/gin-gonic/gin"
    "github.com/google/uuid"
    socketio "github.com/googollee/go-socket.io"
    "github.com/rs/zerolog/log"
    "golang.org/x/time/rate"
)

// ConnCtx is the per-connection state: which room the socket is in, who it
// is, and its command rate limiter.
type ConnCtx struct {
    Code     string
    PlayerID string
    limiter  *rate.Limiter
}

type Server struct {
    Registry  *game.Registry
    templates story.TemplateProvider
    images    story.ImageProvider
    config    config.Config
}

func New(reg *game.Registry, cfg config.Config) *Server {
    return &Server{Registry: reg, config: cfg}
}

func (srv *Server) SetTemplateProvider(p story.TemplateProvider) { srv.templates = p }
func (srv *Server) SetImageProvider(p story.ImageProvider)       { srv.images = p }

// Mount attaches the Socket.IO server with all room handlers to the given
// Gin engine. Commands return their result in the ack; state changes are
// broadcast to the whole room with a full snapshot attached.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
    io := socketio.NewServer(nil)

    state := func(code string) map[string]any {
        sess, err := srv.Registry.Get(code)
        if err != nil {
            return nil
        }
        return map[string]any{"room": sess.Snapshot()}
    }
    broadcast := func(code, event string, extra map[string]any) {
        payload := state(code)
        if payload == nil {
            return
        }
        for k, v := range extra {
            payload[k] = v
        }
        io.BroadcastToRoom("/", code, event, payload)
        io.BroadcastToRoom("/", code, "room:state", payload)
    }

    io.OnConnect("/", func(s socketio.Conn) error {
        s.SetContext(&ConnCtx{limiter: rate.NewLimiter(5, 10)})
        log.Info().Str("sid", s.ID()).Msg("socket connected")
        return nil
    })

    // room:create
    io.OnEvent("/", "room:create", func(s socketio.Conn, payload struct {
        Name string `json:"name"`
    }) map[string]any {
        ctx, ok := srv.allow(s)
        if !ok {
            return srv.err(s, "rate_limited", "Too many requests")
        }
        name, err := validate.PlayerName(payload.Name)
        if err != nil {
            return srv.err(s, "invalid_input", err.Error())
        }
        hostID := uuid.NewString()
        sess, err := srv.Registry.CreateRoom(hostID, name)
        if err != nil {
            log.Error().Err(err).Msg("room:create failed")
            return srv.err(s, "internal", err.Error())
        }
        ctx.Code = sess.Code
        ctx.PlayerID = hostID
        s.Join(sess.Code)
        log.Info().Str("sid", s.ID()).Str("code", sess.Code).Msg("room:create")
        broadcast(sess.Code, "room:created", nil)
        return map[string]any{"roomCode": sess.Code, "playerId": hostID}
    })

    // room:join — playerId is optional; sending a known one reconnects
    // instead of adding a duplicate player.
    io.OnEvent("/", "room:join", func(s socketio.Conn, payload struct {
        RoomCode string `json:"roomCode"`
        Name     string `json:"name"`
        PlayerID string `json:"playerId"`
    }) map[string]any {
        ctx, ok := srv.allow(s)
        if !ok {
            return srv.err(s, "rate_limited", "Too many requests")
        }
        if !validate.RoomCode(payload.RoomCode) {
            return srv.err(s, "invalid_input", "Malformed room code")
        }
        name, err := validate.PlayerName(payload.Name)
        if err != nil {
            return srv.err(s, "invalid_input", err.Error())
        }
        sess, err := srv.Registry.Get(payload.RoomCode)
        if err != nil {
            return srv.err(s, "not_found", "Room not found")
        }
        playerID := payload.PlayerID
        if playerID == "" {
            playerID = uuid.NewString()
        }
        _, reconnected, err := sess.Join(playerID, name)
        if err != nil {
            return srv.joinErr(s, err)
        }
        ctx.Code = sess.Code
        ctx.PlayerID = playerID
        s.Join(sess.Code)
        event := "player:joined"
        if reconnected {
            event = "player:reconnected"
        }
        log.Info().Str("sid", s.ID()).Str("code", sess.Code).Str("playerId", playerID).Bool("reconnect", reconnected).Msg("room:join")
        broadcast(sess.Code, event, map[string]any{"playerId": playerID, "name": name})
        return map[string]any{"playerId": playerID, "roomCode": sess.Code}
    })

    // room:resume — reconnect with a stored player id, keeping the name.
    io.OnEvent("/", "room:resume", func(s socketio.Conn, payload struct {
        RoomCode string `json:"roomCode"`
        PlayerID string `json:"playerId"`
    }) map[string]any {
        ctx, ok := srv.allow(s)
        if !ok {
            return srv.err(s, "rate_limited", "Too many requests")
        }
        sess, err := srv.Registry.Get(payload.RoomCode)
        if err != nil {
            return srv.err(s, "not_found", "Room not found")
        }
        p, err := sess.Reconnect(payload.PlayerID)
        if err != nil {
            return srv.err(s, "not_found", "Unknown player")
        }
        ctx.Code = sess.Code
        ctx.PlayerID = p.ID
        s.Join(sess.Code)
        log.Info().Str("sid", s.ID()).Str("code", sess.Code).Str("playerId", p.ID).Msg("room:resume")
        broadcast(sess.Code, "player:reconnected", map[string]any{"playerId": p.ID, "name": p.Name})
        return map[string]any{"ok": true, "playerId": p.ID}
    })

    // game:start — host only. Template generation can take a while, so it
    // runs in the background and the phase change is broadcast when done.
    io.OnEvent("/", "game:start", func(s socketio.Conn, payload struct {
        Theme string `json:"theme"`
    }) map[string]any {
        ctx, fail := srv.bound(s)
        if fail != nil {
            return fail
        }
        sess, err := srv.Registry.Get(ctx.Code)
        if err != nil {
            return srv.err(s, "not_found", "Room not found")
        }
        if sess.HostID() != ctx.PlayerID {
            return srv.err(s, "conflict", "Only the host can start")
        }
        if !sess.CanStart() {
            return srv.err(s, "conflict", "Need at least 2 connected players")
        }
        go func(code string) {
            if err := sess.StartWordCollection(context.Background(), srv.templates, payload.Theme); err != nil {
                log.Warn().Err(err).Str("code", code).Msg("game:start failed")
                s.Emit("error", map[string]any{"code": "conflict", "message": err.Error()})
                return
            }
            log.Info().Str("code", code).Msg("game:started")
            broadcast(code, "game:started", nil)
        }(ctx.Code)
        return map[string]any{"ok": true}
    })

    // word:submit
    io.OnEvent("/", "word:submit", func(s socketio.Conn, payload struct {
        Word string `json:"word"`
    }) map[string]any {
        ctx, fail := srv.bound(s)
        if fail != nil {
            return fail
        }
        sess, err := srv.Registry.Get(ctx.Code)
        if err != nil {
            return srv.err(s, "not_found", "Room not found")
        }
        sub, done, err := sess.SubmitWord(ctx.PlayerID, payload.Word)
        if err != nil {
            return srv.submitErr(s, err)
        }
        log.Info().Str("code", ctx.Code).Str("blankId", sub.BlankID).Bool("allCollected", done).Msg("word:submit")
        broadcast(ctx.Code, "word:submitted", map[string]any{"playerId": sub.PlayerID, "blankId": sub.BlankID})
        if done {
            broadcast(ctx.Code, "words:collected", nil)
            broadcast(ctx.Code, "story:generating", nil)
            go srv.generate(broadcast, ctx.Code, sess)
        }
        return map[string]any{"blankId": sub.BlankID, "allCollected": done}
    })

    // word:prompt — query, no broadcast.
    io.OnEvent("/", "word:prompt", func(s socketio.Conn) map[string]any {
        ctx, fail := srv.bound(s)
        if fail != nil {
            return fail
        }
        sess, err := srv.Registry.Get(ctx.Code)
        if err != nil {
            return srv.err(s, "not_found", "Room not found")
        }
        prompt, err := sess.CurrentPrompt(ctx.PlayerID)
        if err != nil {
            return srv.err(s, "conflict", err.Error())
        }
        return map[string]any{"prompt": prompt}
    })

    // story:retry — host only. Kicks off generation again after a failed
    // attempt left the room in the generating phase.
    io.OnEvent("/", "story:retry", func(s socketio.Conn) map[string]any {
        ctx, fail := srv.bound(s)
        if fail != nil {
            return fail
        }
        sess, err := srv.Registry.Get(ctx.Code)
        if err != nil {
            return srv.err(s, "not_found", "Room not found")
        }
        if sess.HostID() != ctx.PlayerID {
            return srv.err(s, "conflict", "Only the host can retry")
        }
        if sess.Phase() != game.PhaseGeneratingStory {
            return srv.err(s, "conflict", "Nothing to retry")
        }
        log.Info().Str("code", ctx.Code).Msg("story:retry")
        broadcast(ctx.Code, "story:generating", nil)
        go srv.generate(broadcast, ctx.Code, sess)
        return map[string]any{"ok": true}
    })

    // game:complete — host acknowledges the displayed story.
    io.OnEvent("/", "game:complete", func(s socketio.Conn) map[string]any {
        ctx, fail := srv.bound(s)
        if fail != nil {
            return fail
        }
        sess, err := srv.Registry.Get(ctx.Code)
        if err != nil {
            return srv.err(s, "not_found", "Room not found")
        }
        if err := sess.Complete(ctx.PlayerID); err != nil {
            return srv.err(s, "conflict", err.Error())
        }
        log.Info().Str("code", ctx.Code).Msg("game:complete")
        broadcast(ctx.Code, "room:completed", nil)
        return map[string]any{"ok": true}
    })

    // room:leave
    io.OnEvent("/", "room:leave", func(s socketio.Conn) map[string]any {
        ctx, fail := srv.bound(s)
        if fail != nil {
            return fail
        }
        sess, err := srv.Registry.Get(ctx.Code)
        if err != nil {
            return srv.err(s, "not_found", "Room not found")
        }
        code, playerID := ctx.Code, ctx.PlayerID
        newHost, err := sess.RemovePlayer(playerID)
        if err != nil {
            return srv.err(s, "not_found", "Unknown player")
        }
        s.Leave(code)
        ctx.Code, ctx.PlayerID = "", ""
        log.Info().Str("code", code).Str("playerId", playerID).Str("newHost", newHost).Msg("room:leave")
        extra := map[string]any{"playerId": playerID}
        if newHost != "" {
            extra["newHostId"] = newHost
        }
        broadcast(code, "player:left", extra)
        return map[string]any{"ok": true}
    })

    io.OnError("/", func(s socketio.Conn, e error) {
        log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
    })

    io.OnDisconnect("/", func(s socketio.Conn, reason string) {
        if ctx, ok := s.Context().(*ConnCtx); ok && ctx.Code != "" && ctx.PlayerID != "" {
            if sess, err := srv.Registry.Get(ctx.Code); err == nil {
                if err := sess.SetConnected(ctx.PlayerID, false); err == nil {
                    broadcast(ctx.Code, "player:disconnected", map[string]any{"playerId": ctx.PlayerID})
                }
            }
        }
        log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
    })

    go io.Serve()

    r.GET("/socket.io/*any", gin.WrapH(io))
    r.POST("/socket.io/*any", gin.WrapH(io))
    r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
        c.Status(http.StatusNoContent)
    })

    return io
}

// generate runs the story fill and image batch. Failure is a room-wide
// operation:failed so every client shows the same retry state instead of a
// stuck spinner; the phase stays at GeneratingStory.
func (srv *Server) generate(broadcast func(string, string, map[string]any), code string, sess *game.Session) {
    st, err := sess.GenerateStory(context.Background(), srv.images)
    if err != nil {
        log.Error().Err(err).Str("code", code).Msg("story generation failed")
        broadcast(code, "operation:failed", map[string]any{"message": "Story generation failed, please retry"})
        return
    }
    log.Info().Str("code", code).Int("paragraphs", len(st.Paragraphs)).Msg("story generated")
    broadcast(code, "story:generated", nil)
    if srv.config.ExportEnabled {
        if err := game.ExportTranscript(sess, srv.config.ExportFile); err != nil {
            log.Error().Err(err).Str("code", code).Msg("failed to export story")
        }
    }
}

func (srv *Server) allow(s socketio.Conn) (*ConnCtx, bool) {
    ctx, ok := s.Context().(*ConnCtx)
    if !ok || !ctx.limiter.Allow() {
        return nil, false
    }
    return ctx, true
}

// bound checks that the connection is rate-limit clean and attached to a
// room; on failure it emits the error and returns the ack to hand back.
func (srv *Server) bound(s socketio.Conn) (*ConnCtx, map[string]any) {
    ctx, ok := s.Context().(*ConnCtx)
    if !ok || ctx.Code == "" || ctx.PlayerID == "" {
        return nil, srv.err(s, "not_found", "Not in a room")
    }
    if !ctx.limiter.Allow() {
        return nil, srv.err(s, "rate_limited", "Too many requests")
    }
    return ctx, nil
}

func (srv *Server) joinErr(s socketio.Conn, err error) map[string]any {
    switch {
    case errors.Is(err, game.ErrRoomFull):
        return srv.err(s, "conflict", "Room is full")
    case errors.Is(err, game.ErrNameTaken):
        return srv.err(s, "conflict", "Name already taken")
    default:
        return srv.err(s, "conflict", err.Error())
    }
}

func (srv *Server) submitErr(s socketio.Conn, err error) map[string]any {
    switch {
    case errors.Is(err, game.ErrInvalidPhase):
        return srv.err(s, "conflict", "Not collecting words right now")
    case errors.Is(err, game.ErrPlayerNotFound):
        return srv.err(s, "not_found", "Unknown player")
    case errors.Is(err, game.ErrNoPendingBlank):
        return srv.err(s, "conflict", "No blank left for you")
    default:
        return srv.err(s, "invalid_input", err.Error())
    }
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
    s.Emit("error", map[string]any{"code": code, "message": message})
    return map[string]any{"error": message, "code": code}
}
