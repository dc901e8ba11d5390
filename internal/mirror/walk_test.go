package mirror

import "testing"

func TestLineOverlapScore(t *testing.T) {
	a := "package foo\n\nfunc Bar() {}\n"
	b := "package foo\n\nfunc Bar() {}\n\nfunc Baz() {}\n"

	score := lineOverlapScore(a, b)
	if score < 50 {
		t.Errorf("expected a high overlap score for near-identical content, got %d", score)
	}

	score = lineOverlapScore(a, "totally unrelated content\nwith no shared lines\n")
	if score != 0 {
		t.Errorf("expected 0 overlap for disjoint content, got %d", score)
	}
}

func TestLineOverlapScoreEmpty(t *testing.T) {
	if got := lineOverlapScore("", "anything"); got != 0 {
		t.Errorf("expected 0 for empty input, got %d", got)
	}
}

func TestPairRenames(t *testing.T) {
	adds := []RawChange{{Path: "new/name.go", Kind: RawAdded}}
	dels := []RawChange{{Path: "old/name.go", Kind: RawDeleted}}
	content := "package sample\n\nfunc Widget() int { return 1 }\n"

	renamed, remAdds, remDels := pairRenames(adds, dels,
		map[string]string{"new/name.go": content},
		map[string]string{"old/name.go": content},
		80,
	)

	if len(renamed) != 1 {
		t.Fatalf("expected 1 renamed pair, got %d", len(renamed))
	}
	if renamed[0].OldPath != "old/name.go" || renamed[0].Path != "new/name.go" {
		t.Errorf("unexpected rename pairing: %+v", renamed[0])
	}
	if len(remAdds) != 0 || len(remDels) != 0 {
		t.Errorf("expected no leftover adds/dels, got %d/%d", len(remAdds), len(remDels))
	}
}

func TestPairRenamesBelowThreshold(t *testing.T) {
	adds := []RawChange{{Path: "new.go", Kind: RawAdded}}
	dels := []RawChange{{Path: "old.go", Kind: RawDeleted}}

	renamed, remAdds, remDels := pairRenames(adds, dels,
		map[string]string{"new.go": "totally different content here\n"},
		map[string]string{"old.go": "nothing at all alike\n"},
		80,
	)

	if len(renamed) != 0 {
		t.Fatalf("expected no rename pairing below threshold, got %d", len(renamed))
	}
	if len(remAdds) != 1 || len(remDels) != 1 {
		t.Errorf("expected leftover add/del, got %d/%d", len(remAdds), len(remDels))
	}
}
