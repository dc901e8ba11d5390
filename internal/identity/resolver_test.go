package identity

import (
	"testing"
	"time"

	"github.com/lfca/lfca/internal/models"
)

func TestIdentityMintedOnFirstObservation(t *testing.T) {
	r := New()
	ch := &models.Change{Path: "a.go", Kind: models.ChangeKindAdded}
	r.Observe(ch, time.Now())

	if ch.IdentityID == 0 {
		t.Fatal("expected a non-zero identity id")
	}
	id, ok := r.Resolve("a.go")
	if !ok || id != ch.IdentityID {
		t.Fatalf("expected a.go to resolve to %d, got %d (ok=%v)", ch.IdentityID, id, ok)
	}
}

func TestRenameChainResolvesToSameIdentity(t *testing.T) {
	r := New()
	now := time.Now()

	add := &models.Change{Path: "a.go", Kind: models.ChangeKindAdded}
	r.Observe(add, now)
	original := add.IdentityID

	rename1 := &models.Change{Path: "b.go", Kind: models.ChangeKindRenamed, Rename: &models.RenameDetail{OldPath: "a.go", Similarity: 95}}
	if rej := r.Observe(rename1, now.Add(time.Minute)); rej != nil {
		t.Fatalf("unexpected cycle rejection: %+v", rej)
	}

	rename2 := &models.Change{Path: "c.go", Kind: models.ChangeKindRenamed, Rename: &models.RenameDetail{OldPath: "b.go", Similarity: 90}}
	if rej := r.Observe(rename2, now.Add(2*time.Minute)); rej != nil {
		t.Fatalf("unexpected cycle rejection: %+v", rej)
	}

	if rename1.IdentityID != original || rename2.IdentityID != original {
		t.Fatalf("expected a->b->c to all resolve to identity %d, got %d and %d", original, rename1.IdentityID, rename2.IdentityID)
	}

	id, ok := r.Resolve("c.go")
	if !ok || id != original {
		t.Fatalf("expected c.go to resolve to %d, got %d (ok=%v)", original, id, ok)
	}
}

func TestCyclicRenameTreatedAsIndependent(t *testing.T) {
	r := New()
	now := time.Now()

	add := &models.Change{Path: "a.go", Kind: models.ChangeKindAdded}
	r.Observe(add, now)

	toB := &models.Change{Path: "b.go", Kind: models.ChangeKindRenamed, Rename: &models.RenameDetail{OldPath: "a.go", Similarity: 95}}
	r.Observe(toB, now.Add(time.Minute))

	backToA := &models.Change{Path: "a.go", Kind: models.ChangeKindRenamed, Rename: &models.RenameDetail{OldPath: "b.go", Similarity: 95}}
	rej := r.Observe(backToA, now.Add(2*time.Minute))
	if rej == nil {
		t.Fatal("expected a cycle rejection for b.go -> a.go after a.go -> b.go")
	}
	if rej.OldPath != "b.go" || rej.NewPath != "a.go" {
		t.Errorf("unexpected rejection details: %+v", rej)
	}
	if backToA.IdentityID == toB.IdentityID {
		t.Error("expected the rejected rename to mint an independent identity, not reuse b.go's")
	}
}

func TestDeleteThenRecreatePreservesIdentity(t *testing.T) {
	r := New()
	now := time.Now()

	add := &models.Change{Path: "a.go", Kind: models.ChangeKindAdded}
	r.Observe(add, now)
	original := add.IdentityID

	del := &models.Change{Path: "a.go", Kind: models.ChangeKindDeleted}
	r.Observe(del, now.Add(time.Minute))

	recreate := &models.Change{Path: "a.go", Kind: models.ChangeKindAdded}
	r.Observe(recreate, now.Add(2*time.Minute))

	if recreate.IdentityID != original {
		t.Fatalf("expected delete-then-recreate to preserve identity %d, got %d", original, recreate.IdentityID)
	}
	if r.Identities()[original].UnfilteredRevisions != 3 {
		t.Errorf("expected 3 unfiltered revisions, got %d", r.Identities()[original].UnfilteredRevisions)
	}
}

func TestReconcileHeadsOverridesExistsAtHead(t *testing.T) {
	r := New()
	now := time.Now()
	add := &models.Change{Path: "a.go", Kind: models.ChangeKindAdded}
	r.Observe(add, now)

	r.ReconcileHeads(map[string]struct{}{})
	if r.Identities()[add.IdentityID].ExistsAtHead {
		t.Error("expected exists_at_head to be false once reconciled against an empty HEAD listing")
	}

	r.ReconcileHeads(map[string]struct{}{"a.go": {}})
	if !r.Identities()[add.IdentityID].ExistsAtHead {
		t.Error("expected exists_at_head to be true once reconciled against a HEAD listing containing a.go")
	}
}
