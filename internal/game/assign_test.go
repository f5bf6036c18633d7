package game

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/fablefill/fablefill/internal/story"
)

func templateWithBlanks(n int) *story.Template {
	// spread blanks over two paragraphs to exercise the flattening order
	t := &story.Template{ID: "t", TotalBlanks: n, Paragraphs: []story.Paragraph{{}, {}}}
	for i := 0; i < n; i++ {
		pi := 0
		if i >= (n+1)/2 {
			pi = 1
		}
		p := &t.Paragraphs[pi]
		p.Text += fmt.Sprintf("{{%d}} ", len(p.Blanks))
		p.Blanks = append(p.Blanks, story.Blank{
			ID:       fmt.Sprintf("b%d", i),
			Type:     story.TypeNoun,
			Position: len(p.Blanks),
		})
	}
	return t
}

func makePlayers(n int) []*Player {
	out := make([]*Player, n)
	for i := range out {
		out[i] = &Player{ID: fmt.Sprintf("p%d", i), Connected: true}
	}
	return out
}

func countsByPlayer(t *story.Template) map[string]int {
	counts := make(map[string]int)
	for _, p := range t.Paragraphs {
		for _, b := range p.Blanks {
			counts[b.AssignedPlayerID]++
		}
	}
	return counts
}

func TestAssignEvenDistribution(t *testing.T) {
	for players := 1; players <= 8; players++ {
		for blanks := 0; blanks <= 13; blanks++ {
			tmpl := templateWithBlanks(blanks)
			if err := assignBlanks(tmpl, makePlayers(players)); err != nil {
				t.Fatalf("players=%d blanks=%d: %v", players, blanks, err)
			}
			counts := countsByPlayer(tmpl)
			min, max := blanks, 0
			for _, c := range counts {
				if c < min {
					min = c
				}
				if c > max {
					max = c
				}
			}
			if len(counts) > 0 && max-min > 1 {
				t.Fatalf("players=%d blanks=%d: uneven distribution %v", players, blanks, counts)
			}
		}
	}
}

func TestAssignDeterministic(t *testing.T) {
	a := templateWithBlanks(9)
	b := templateWithBlanks(9)
	players := makePlayers(4)
	if err := assignBlanks(a, players); err != nil {
		t.Fatal(err)
	}
	if err := assignBlanks(b, players); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Paragraphs, b.Paragraphs) {
		t.Fatal("same players in the same order must produce the same assignment")
	}
	// first blank to first player, round-robin from there
	if a.Paragraphs[0].Blanks[0].AssignedPlayerID != "p0" {
		t.Fatalf("expected first blank on p0, got %s", a.Paragraphs[0].Blanks[0].AssignedPlayerID)
	}
}

func TestAssignOverwritesCompletely(t *testing.T) {
	tmpl := templateWithBlanks(6)
	if err := assignBlanks(tmpl, makePlayers(3)); err != nil {
		t.Fatal(err)
	}
	if err := assignBlanks(tmpl, makePlayers(2)); err != nil {
		t.Fatal(err)
	}
	counts := countsByPlayer(tmpl)
	if len(counts) != 2 || counts["p0"] != 3 || counts["p1"] != 3 {
		t.Fatalf("re-run must fully overwrite prior assignments, got %v", counts)
	}
}

func TestAssignNoPlayers(t *testing.T) {
	tmpl := templateWithBlanks(3)
	if err := assignBlanks(tmpl, nil); err == nil {
		t.Fatal("assignment with zero players must fail")
	}
}
