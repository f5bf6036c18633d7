package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fablefill/fablefill/internal/story"
	"github.com/google/uuid"
)

// Client generates story templates from a local Ollama instance. It does not
// do images.
type Client struct {
	Host  string
	Model string
	http  *http.Client
}

func New(host, model string) *Client {
	if host == "" {
		host = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.1"
	}
	return &Client{Host: strings.TrimRight(host, "/"), Model: model, http: &http.Client{Timeout: 60 * time.Second}}
}

const templateSystemPrompt = `You write short fill-in-the-blank party game stories. ` +
	`Respond with JSON only: {"title": string, "paragraphs": [{"text": string, ` +
	`"imagePrompt": string, "blanks": [{"type": string, "position": int}]}]}. ` +
	`Blanks appear in the text as {{N}} markers numbered from 0 within each paragraph. ` +
	`Allowed types: noun, plural-noun, verb, adjective, adverb, number, place, name, exclamation.`

func (c *Client) GenerateTemplate(ctx context.Context, theme string, playerCount int) (*story.Template, error) {
	userPrompt := fmt.Sprintf("Write a story with 3 short paragraphs and roughly %d blanks total.", 3*playerCount)
	if theme != "" {
		userPrompt += " Theme: " + theme
	}
	payload := map[string]any{
		"model": c.Model,
		"messages": []map[string]string{
			{"role": "system", "content": templateSystemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"format": "json",
		"stream": false,
	}
	b, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, "POST", c.Host+"/api/chat", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("ollama status %d", resp.StatusCode)
	}
	var out struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return parseTemplate(out.Message.Content, theme)
}

func parseTemplate(content, theme string) (*story.Template, error) {
	var wire struct {
		Title      string `json:"title"`
		Paragraphs []struct {
			Text        string `json:"text"`
			ImagePrompt string `json:"imagePrompt"`
			Blanks      []struct {
				Type     string `json:"type"`
				Position int    `json:"position"`
			} `json:"blanks"`
		} `json:"paragraphs"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &wire); err != nil {
		return nil, fmt.Errorf("bad template json: %w", err)
	}
	t := &story.Template{ID: uuid.NewString(), Title: wire.Title, Theme: theme}
	for _, p := range wire.Paragraphs {
		para := story.Paragraph{Text: p.Text, ImagePrompt: p.ImagePrompt}
		for _, bl := range p.Blanks {
			para.Blanks = append(para.Blanks, story.Blank{
				ID:       uuid.NewString(),
				Type:     story.WordType(bl.Type),
				Position: bl.Position,
			})
		}
		t.Paragraphs = append(t.Paragraphs, para)
	}
	t.TotalBlanks = story.CountMarkers(t)
	return t, nil
}
