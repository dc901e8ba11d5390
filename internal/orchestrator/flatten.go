package orchestrator

import (
	"github.com/lfca/lfca/internal/extractor"
	"github.com/lfca/lfca/internal/models"
)

func flattenCommits(commits []extractor.ExtractedCommit) []models.Commit {
	out := make([]models.Commit, 0, len(commits))
	for _, ec := range commits {
		out = append(out, ec.Commit)
	}
	return out
}

func flattenChanges(commits []extractor.ExtractedCommit) []models.Change {
	var total int
	for _, ec := range commits {
		total += len(ec.Changes)
	}
	out := make([]models.Change, 0, total)
	for _, ec := range commits {
		out = append(out, ec.Changes...)
	}
	return out
}

func flattenIdentities(identities map[int64]*models.FileIdentity) []*models.FileIdentity {
	out := make([]*models.FileIdentity, 0, len(identities))
	for _, fi := range identities {
		out = append(out, fi)
	}
	return out
}
