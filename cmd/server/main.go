package main

import (
    "context"
    "flag"
    "fmt"
    "log"
    "net/http"
    "os"
    "strings"
    "time"

    "github.com/fablefill/fablefill/internal/config"
    "github.com/fablefill/fablefill/internal/game"
    "github.com/fablefill/fablefill/internal/story"
    "github.com/fablefill/fablefill/internal/story/ollama"
    "github.com/fablefill/fablefill/internal/story/openai"
    "github.com/fablefill/fablefill/internal/ws"
    staticserver "github.com/fablefill/fablefill/static"
    "github.com/gin-contrib/cors"
    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"
    zerologlog "github.com/rs/zerolog/log"
)

const version = "v1.0.0-dev"

func main() {
    var (
        showHelp    = flag.Bool("help", false, "Show help message")
        showVersion = flag.Bool("version", false, "Show version information")
        portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
    )
    flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
    flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
    flag.Parse()

    if *showHelp {
        fmt.Printf(`Fablefill - Fill-the-blanks AI story party game

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                Port to listen on (default: 8080)
  STORY_PROVIDER      Template provider: "openai" or "ollama" (default: openai)
  TEXT_MODEL          Model for story templates (default: gpt-4o-mini)
  IMAGE_MODEL         Model for illustrations (default: dall-e-3)
  OPENAI_API_KEY      OpenAI API key (required for OpenAI provider and images)
  OPENAI_BASE_URL     Custom OpenAI API base URL (optional)
  OLLAMA_HOST         Ollama host URL (default: http://localhost:11434)
  OLLAMA_MODEL        Ollama model (default: llama3.1)
  EXPORT_ENABLED      Append finished stories to a file (default: true)
  EXPORT_FILE         Path of the story export file (default: ./fablefill-stories.txt)

Visit http://localhost:8080 after starting the server.
`, os.Args[0])
        return
    }

    if *showVersion {
        fmt.Printf("Fablefill %s\n", version)
        return
    }

    cfg := config.FromEnv()

    port := *portFlag
    if port == "" {
        port = cfg.Port
    }

    // zerolog setup (human-friendly console)
    zerolog.TimeFieldFormat = time.RFC3339
    cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
    zerologlog.Logger = zerologlog.Output(cw)

    // Gin setup with custom logger (skip /socket.io noise)
    gin.SetMode(gin.ReleaseMode)
    r := gin.New()
    r.Use(gin.Recovery())
    r.Use(cors.New(cors.Config{
        AllowOrigins: []string{"*"},
        AllowMethods: []string{"GET", "POST", "OPTIONS"},
        AllowHeaders: []string{"Origin", "Content-Type"},
    }))
    r.Use(func(c *gin.Context) {
        start := time.Now()
        c.Next()
        path := c.Request.URL.Path
        if strings.HasPrefix(path, "/socket.io") {
            return
        }
        zerologlog.Info().Str("path", path).Int("status", c.Writer.Status()).Dur("dur", time.Since(start)).Msg("http")
    })

    r.GET("/health", func(c *gin.Context) {
        c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
    })

    // Registry + background sweep
    registry := game.NewRegistry()
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    go registry.Run(ctx)

    // Collaborators
    oa := openai.New(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.TextModel, cfg.ImageModel)
    var templates story.TemplateProvider = oa
    if cfg.Provider == "ollama" {
        templates = ollama.New(cfg.OllamaHost, cfg.OllamaModel)
    }
    var images story.ImageProvider
    if cfg.OpenAIKey != "" {
        images = oa
    }

    // Socket server
    sock := ws.New(registry, cfg)
    sock.SetTemplateProvider(templates)
    sock.SetImageProvider(images)
    io := sock.Mount(r)
    defer io.Close()

    // Serve frontend (if embedded build is present) for all other routes
    r.NoRoute(func(c *gin.Context) {
        staticserver.Handler().ServeHTTP(c.Writer, c.Request)
    })

    log.Printf("listening on :%s", port)
    if err := r.Run(":" + port); err != nil {
        log.Fatal(err)
    }
}
