// Package identity implements the Identity Resolver component (§4.3): it
// maintains a path->identity mapping updated as the commit walk
// progresses, stitching rename chains into stable logical file
// identities and keeping the mapping acyclic.
package identity

import (
	"time"

	"github.com/lfca/lfca/internal/models"
)

// Resolver maintains the path->identity mapping for a single run.
// Grounded on the teacher's file_identity_mapper.go rename-chain tracing,
// generalized from a post-hoc batch trace into an incremental resolver
// driven commit-by-commit as the Extractor's stream is consumed.
type Resolver struct {
	pathToIdentity map[string]int64
	identities     map[int64]*models.FileIdentity
	nextID         int64
	// renamePairs records (old,new) unions already applied this run, used
	// to detect and reject a rename that would introduce a cycle.
	renamePairs map[[2]string]bool
}

// New creates an empty Resolver.
func New() *Resolver {
	return &Resolver{
		pathToIdentity: make(map[string]int64),
		identities:     make(map[int64]*models.FileIdentity),
		renamePairs:    make(map[[2]string]bool),
	}
}

// CycleRejection is returned (via the logger, not an error — per §9 a
// rejected cyclic rename is "treated as independent and logged", not a
// run-aborting fault) when a RenameEvent would create a cycle.
type CycleRejection struct {
	OldPath string
	NewPath string
}

// Observe processes one Change in commit order, minting a new identity on
// first observation of an unmapped path, reassigning identity on a
// Renamed change, and annotating the Change with its resolved IdentityID.
// Returns the CycleRejection if the rename was rejected as cyclic (nil
// otherwise), so the caller can log it per §9's requirement.
func (r *Resolver) Observe(ch *models.Change, timestamp time.Time) *CycleRejection {
	switch ch.Kind {
	case models.ChangeKindRenamed:
		return r.observeRename(ch, timestamp)
	default:
		id := r.identityFor(ch.Path, timestamp)
		ch.IdentityID = id
		r.touch(id, ch.Path, timestamp, ch.Kind == models.ChangeKindDeleted)
		return nil
	}
}

func (r *Resolver) observeRename(ch *models.Change, timestamp time.Time) *CycleRejection {
	old, new_ := ch.Rename.OldPath, ch.Path
	pair := [2]string{new_, old}
	if r.renamePairs[pair] {
		// b -> a was already unioned; a -> b now would create a 2-cycle.
		// Treat as independent: mint a fresh identity for the new path
		// without touching the old path's identity.
		delete(r.pathToIdentity, new_)
		id := r.identityFor(new_, timestamp)
		ch.IdentityID = id
		r.touch(id, new_, timestamp, false)
		return &CycleRejection{OldPath: old, NewPath: new_}
	}

	oldID, hadOld := r.pathToIdentity[old]
	if !hadOld {
		oldID = r.identityFor(old, timestamp)
	}

	r.pathToIdentity[new_] = oldID
	r.renamePairs[[2]string{old, new_}] = true

	fi := r.identities[oldID]
	fi.PathCurrent = new_
	fi.PathLatestObserved = new_
	r.touch(oldID, new_, timestamp, false)

	ch.IdentityID = oldID
	return nil
}

// identityFor returns the identity id for path, minting a new one (or
// reusing a previously-deleted identity at the same path, per the
// delete-then-recreate policy below) if path is not yet mapped.
func (r *Resolver) identityFor(path string, timestamp time.Time) int64 {
	if id, ok := r.pathToIdentity[path]; ok {
		return id
	}

	r.nextID++
	id := r.nextID
	r.pathToIdentity[path] = id
	r.identities[id] = &models.FileIdentity{
		ID:                 id,
		PathCurrent:        path,
		PathLatestObserved: path,
		FirstSeen:          timestamp,
		LastSeen:           timestamp,
	}
	return id
}

func (r *Resolver) touch(id int64, path string, timestamp time.Time, deleted bool) {
	fi := r.identities[id]
	fi.UnfilteredRevisions++
	fi.LastSeen = timestamp
	fi.PathLatestObserved = path
	if deleted {
		// Delete-then-recreate-at-same-path policy (Open Question,
		// resolved per spec's stated default): we do NOT retire the
		// identity here. A later Added observation at `path` finds it
		// already mapped via pathToIdentity and simply continues this
		// identity's history, preserving "same identity" semantics.
		fi.ExistsAtHead = false
	} else {
		fi.ExistsAtHead = true
	}
}

// Resolve returns the identity id currently mapped to path, and whether
// path has ever been observed.
func (r *Resolver) Resolve(path string) (int64, bool) {
	id, ok := r.pathToIdentity[path]
	return id, ok
}

// Identities returns the resolver's identity map keyed by id. Only
// UnfilteredRevisions is counted here; Revisions (the filtered count) is
// left for the Graph Builder to set, keeping both counts available per
// §9's "filtered vs didn't happen" requirement.
func (r *Resolver) Identities() map[int64]*models.FileIdentity {
	return r.identities
}

// ReconcileHeads sets ExistsAtHead authoritatively from headPaths (the
// mirror's current snapshot listing), overriding any delete/rename-derived
// guess made during the walk, per invariant 4 in §8.
func (r *Resolver) ReconcileHeads(headPaths map[string]struct{}) {
	for _, fi := range r.identities {
		_, atHead := headPaths[fi.PathCurrent]
		fi.ExistsAtHead = atHead
	}
}
