package overview

import (
	"testing"

	"github.com/skimsearch/skim/pkg/corpus"
)

func TestHeuristicStitchesTitles(t *testing.T) {
	pages := []corpus.Page{
		{Title: "Solar Basics | Energy Site"},
		{Title: "Wind Power"},
	}

	got := Heuristic(pages)
	want := "Solar Basics [1]; Wind Power [2]."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestHeuristicCapsAtFourSources(t *testing.T) {
	pages := []corpus.Page{
		{Title: "One"}, {Title: "Two"}, {Title: "Three"}, {Title: "Four"}, {Title: "Five"},
	}

	got := Heuristic(pages)
	want := "One [1]; Two [2]; Three [3]; Four [4]."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestHeuristicEmptyCorpus(t *testing.T) {
	if got := Heuristic(nil); got != "No relevant content found." {
		t.Errorf("got %q", got)
	}
}

func TestHeuristicMissingTitle(t *testing.T) {
	got := Heuristic([]corpus.Page{{Name: "page.html"}})
	if got != "source [1]." {
		t.Errorf("got %q", got)
	}
}

func TestHeuristicDeterministic(t *testing.T) {
	pages := []corpus.Page{
		{Title: "Alpha | Site"},
		{Title: "Beta"},
		{Title: "Gamma"},
	}
	first := Heuristic(pages)
	for i := 0; i < 10; i++ {
		if got := Heuristic(pages); got != first {
			t.Fatalf("call %d produced %q, first call produced %q", i, got, first)
		}
	}
}
