package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fablefill/fablefill/internal/story"
	"github.com/google/uuid"
)

type Client struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
	http       *http.Client
}

func New(apiKey, baseURL, textModel, imageModel string) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if textModel == "" {
		textModel = "gpt-4o-mini"
	}
	if imageModel == "" {
		imageModel = "dall-e-3"
	}
	return &Client{
		APIKey:     apiKey,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		TextModel:  textModel,
		ImageModel: imageModel,
		http:       &http.Client{Timeout: 60 * time.Second},
	}
}

const templateSystemPrompt = `You write short fill-in-the-blank party game stories. ` +
	`Respond with JSON only: {"title": string, "paragraphs": [{"text": string, ` +
	`"imagePrompt": string, "blanks": [{"type": string, "position": int}]}]}. ` +
	`Blanks appear in the text as {{N}} markers numbered from 0 within each paragraph. ` +
	`Allowed types: noun, plural-noun, verb, adjective, adverb, number, place, name, exclamation.`

func (c *Client) GenerateTemplate(ctx context.Context, theme string, playerCount int) (*story.Template, error) {
	if c.APIKey == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}
	userPrompt := fmt.Sprintf("Write a story with 3 short paragraphs and roughly %d blanks total.", 3*playerCount)
	if theme != "" {
		userPrompt += " Theme: " + theme
	}
	payload := map[string]any{
		"model": c.TextModel,
		"messages": []map[string]string{
			{"role": "system", "content": templateSystemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"temperature":     0.9,
		"response_format": map[string]string{"type": "json_object"},
	}
	b, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/chat/completions", bytes.NewReader(b))
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("openai status 429: %w", story.ErrRateLimited)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("openai status %d", resp.StatusCode)
	}
	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("no choices")
	}
	return parseTemplate(out.Choices[0].Message.Content, theme)
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

func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if c.APIKey == "" {
		return "", errors.New("missing OPENAI_API_KEY")
	}
	payload := map[string]any{
		"model":           c.ImageModel,
		"prompt":          prompt,
		"n":               1,
		"size":            "1024x1024",
		"response_format": "url",
	}
	b, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/images/generations", bytes.NewReader(b))
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("openai status 429: %w", story.ErrRateLimited)
	}
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("openai status %d", resp.StatusCode)
	}
	var out struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Data) == 0 {
		return "", errors.New("no image data")
	}
	return out.Data[0].URL, nil
}
