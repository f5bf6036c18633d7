package story

import (
    "fmt"
    "regexp"
    "strconv"
    "strings"
)

var markerRe = regexp.MustCompile(`\{\{(\d+)\}\}`)

// CountMarkers returns the number of {{N}} markers embedded across all
// paragraph texts.
func CountMarkers(t *Template) int {
    n := 0
    for _, p := range t.Paragraphs {
        n += len(markerRe.FindAllString(p.Text, -1))
    }
    return n
}

// Validate checks the structural invariant of a template: the declared
// blank total matches the markers actually embedded in the text, and each
// paragraph's blank list lines up with its own markers.
func Validate(t *Template) error {
    if t == nil {
        return fmt.Errorf("nil template")
    }
    total := 0
    for i, p := range t.Paragraphs {
        markers := markerRe.FindAllStringSubmatch(p.Text, -1)
        if len(markers) != len(p.Blanks) {
            return fmt.Errorf("paragraph %d: %d markers but %d blanks", i, len(markers), len(p.Blanks))
        }
        seen := make(map[int]bool, len(p.Blanks))
        for _, b := range p.Blanks {
            if b.Position < 0 || b.Position >= len(p.Blanks) || seen[b.Position] {
                return fmt.Errorf("paragraph %d: bad blank position %d", i, b.Position)
            }
            seen[b.Position] = true
        }
        total += len(p.Blanks)
    }
    if total != t.TotalBlanks {
        return fmt.Errorf("declared %d blanks but found %d", t.TotalBlanks, total)
    }
    return nil
}

// Fill replaces the markers in a template with the submitted words and
// records a highlight span (byte offsets into the filled text) for every
// replacement. A submission whose blank id matches nothing is ignored; a
// blank nobody filled keeps its literal marker in the output.
func Fill(t *Template, subs []*Submission) *CompletedStory {
    byBlank := make(map[string]*Submission, len(subs))
    known := make(map[string]bool)
    for _, p := range t.Paragraphs {
        for _, b := range p.Blanks {
            known[b.ID] = true
        }
    }
    for _, sub := range subs {
        if known[sub.BlankID] {
            byBlank[sub.BlankID] = sub
        }
    }

    out := &CompletedStory{Title: t.Title}
    contribIx := make(map[string]int)

    for _, p := range t.Paragraphs {
        byPos := make(map[int]Blank, len(p.Blanks))
        for _, b := range p.Blanks {
            byPos[b.Position] = b
        }

        var sb strings.Builder
        var spans []Highlight
        last := 0
        for _, loc := range markerRe.FindAllStringSubmatchIndex(p.Text, -1) {
            sb.WriteString(p.Text[last:loc[0]])
            last = loc[1]
            pos, _ := strconv.Atoi(p.Text[loc[2]:loc[3]])
            blank, ok := byPos[pos]
            if !ok {
                sb.WriteString(p.Text[loc[0]:loc[1]])
                continue
            }
            sub := byBlank[blank.ID]
            if sub == nil {
                sb.WriteString(p.Text[loc[0]:loc[1]])
                continue
            }
            start := sb.Len()
            sb.WriteString(sub.Word)
            spans = append(spans, Highlight{
                Start:    start,
                End:      sb.Len(),
                BlankID:  blank.ID,
                PlayerID: sub.PlayerID,
            })
            ix, ok := contribIx[sub.PlayerID]
            if !ok {
                ix = len(out.Contributions)
                contribIx[sub.PlayerID] = ix
                out.Contributions = append(out.Contributions, Contribution{
                    PlayerID:   sub.PlayerID,
                    PlayerName: sub.PlayerName,
                })
            }
            out.Contributions[ix].Words = append(out.Contributions[ix].Words, sub.Word)
        }
        sb.WriteString(p.Text[last:])
        out.Paragraphs = append(out.Paragraphs, FilledParagraph{Text: sb.String(), Highlights: spans})
    }
    return out
}
