package game

import (
    "github.com/fablefill/fablefill/internal/story"
)

// assignBlanks distributes a template's blanks round-robin over players in
// join order: flattened blank i goes to players[i mod N]. Every prior
// assignment is overwritten, so a re-run after a template swap is a full
// replacement and counts stay within one of each other.
func assignBlanks(t *story.Template, players []*Player) error {
    if len(players) == 0 {
        return ErrTooFewPlayers
    }
    i := 0
    for pi := range t.Paragraphs {
        blanks := t.Paragraphs[pi].Blanks
        for bi := range blanks {
            blanks[bi].AssignedPlayerID = players[i%len(players)].ID
            i++
        }
    }
    return nil
}
