package game

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExportTranscript appends a finished story to a plain-text results file.
func ExportTranscript(s *Session, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		return fmt.Errorf("no story to export")
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s — room %s\n", s.result.Title, s.Code))
	sb.WriteString(fmt.Sprintf("Finished: %s\n", time.Now().Format("2006-01-02 15:04:05")))
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")

	for _, p := range s.result.Paragraphs {
		sb.WriteString(p.Text + "\n")
		if p.ImageURL != "" {
			sb.WriteString("[image] " + p.ImageURL + "\n")
		}
		sb.WriteString("\n")
	}

	if len(s.result.Contributions) > 0 {
		sb.WriteString("Words by player:\n")
		for _, c := range s.result.Contributions {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", c.PlayerName, strings.Join(c.Words, ", ")))
		}
	}
	sb.WriteString("\n")

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}
