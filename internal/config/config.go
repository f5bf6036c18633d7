package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	Provider      string
	TextModel     string
	ImageModel    string
	OpenAIKey     string
	OpenAIBaseURL string
	OllamaHost    string
	OllamaModel   string
	ExportEnabled bool
	ExportFile    string
}

func FromEnv() Config {
	_ = godotenv.Load()
	c := Config{}
	c.Port = getenv("PORT", "8080")
	c.Provider = getenv("STORY_PROVIDER", "openai")
	c.TextModel = getenv("TEXT_MODEL", "gpt-4o-mini")
	c.ImageModel = getenv("IMAGE_MODEL", "dall-e-3")
	c.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	c.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	c.OllamaHost = getenv("OLLAMA_HOST", "http://localhost:11434")
	c.OllamaModel = getenv("OLLAMA_MODEL", "llama3.1")
	c.ExportEnabled = getenv("EXPORT_ENABLED", "true") == "true"
	c.ExportFile = getenv("EXPORT_FILE", "./fablefill-stories.txt")
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
