package extractor

import (
	"testing"
	"time"

	"github.com/lfca/lfca/internal/mirror"
	"github.com/lfca/lfca/internal/models"
)

func chanOf(commits ...mirror.RawCommit) (<-chan mirror.RawCommit, <-chan error) {
	out := make(chan mirror.RawCommit, len(commits))
	errc := make(chan error, 1)
	for _, c := range commits {
		out <- c
	}
	close(out)
	close(errc)
	return out, errc
}

func TestExtractSimpleCommit(t *testing.T) {
	e := New(DefaultOptions(), nil)
	raw, errc := chanOf(mirror.RawCommit{
		ID:          "c1",
		Timestamp:   time.Now(),
		AuthorName:  "a",
		AuthorEmail: "a@example.com",
		ParentCount: 1,
		Changes: []mirror.RawChange{
			{Path: "a.go", Kind: mirror.RawAdded},
			{Path: "b.go", Kind: mirror.RawModified},
		},
	})

	extracted, renames, err := e.Extract(raw, errc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(extracted) != 1 {
		t.Fatalf("expected 1 extracted commit, got %d", len(extracted))
	}
	if len(extracted[0].Changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(extracted[0].Changes))
	}
	if len(renames) != 0 {
		t.Errorf("expected no renames, got %d", len(renames))
	}
}

func TestExtractRejectsChangeKindTokenAsPath(t *testing.T) {
	e := New(DefaultOptions(), nil)
	raw, errc := chanOf(mirror.RawCommit{
		ID:          "c1",
		ParentCount: 1,
		Changes:     []mirror.RawChange{{Path: "M", Kind: mirror.RawAdded}},
	}, mirror.RawCommit{
		ID:          "c2",
		ParentCount: 1,
		Changes:     []mirror.RawChange{{Path: "ok.go", Kind: mirror.RawAdded}},
	})

	extracted, _, err := e.Extract(raw, errc)
	if err != nil {
		t.Fatalf("single parse error should not abort the run: %v", err)
	}
	if len(extracted) != 1 {
		t.Fatalf("expected the bad commit to be skipped, kept commit count got %d", len(extracted))
	}
}

func TestExtractAbortsOnThreeConsecutiveParseErrors(t *testing.T) {
	e := New(DefaultOptions(), nil)
	bad := mirror.RawCommit{ID: "bad", ParentCount: 1, Changes: []mirror.RawChange{{Path: "M", Kind: mirror.RawAdded}}}
	raw, errc := chanOf(bad, bad, bad)

	_, _, err := e.Extract(raw, errc)
	if err == nil {
		t.Fatal("expected an error after three consecutive parse failures")
	}
}

func TestExtractRenameBelowThresholdBecomesAdd(t *testing.T) {
	opts := DefaultOptions()
	opts.RenameSimilarityThreshold = 80
	e := New(opts, nil)
	raw, errc := chanOf(mirror.RawCommit{
		ID:          "c1",
		ParentCount: 1,
		Changes: []mirror.RawChange{
			{Path: "new.go", Kind: mirror.RawRenamed, OldPath: "old.go", Similarity: 50},
		},
	})

	extracted, renames, err := e.Extract(raw, errc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(renames) != 0 {
		t.Errorf("expected no rename events below threshold, got %d", len(renames))
	}
	if extracted[0].Changes[0].Kind != models.ChangeKindAdded {
		t.Errorf("expected low-similarity rename to degrade to Added, got %v", extracted[0].Changes[0].Kind)
	}
}

func TestExtractMergeExcludePolicyDropsChanges(t *testing.T) {
	opts := DefaultOptions()
	opts.MergePolicy = MergeExclude
	e := New(opts, nil)
	raw, errc := chanOf(mirror.RawCommit{
		ID:          "m1",
		ParentCount: 2,
		Changes:     []mirror.RawChange{{Path: "a.go", Kind: mirror.RawModified}},
	})

	extracted, _, err := e.Extract(raw, errc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(extracted[0].Changes) != 0 {
		t.Errorf("expected merge-exclude to drop Change records, got %d", len(extracted[0].Changes))
	}
}

func TestExtractBulkDropPolicy(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxChangesetSize = 1
	opts.BulkPolicy = BulkDrop
	e := New(opts, nil)
	raw, errc := chanOf(mirror.RawCommit{
		ID:          "big",
		ParentCount: 1,
		Changes: []mirror.RawChange{
			{Path: "a.go", Kind: mirror.RawModified},
			{Path: "b.go", Kind: mirror.RawModified},
		},
	})

	extracted, _, err := e.Extract(raw, errc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if extracted[0].Weight != 0 {
		t.Errorf("expected bulk-drop commit to carry zero weight, got %f", extracted[0].Weight)
	}
}

func TestParseMergePolicyRejectsUnknown(t *testing.T) {
	if _, err := ParseMergePolicy("bogus"); err == nil {
		t.Error("expected an error for an unknown merge policy")
	}
}
