// Package sqlxrepos implements the domain repositories against Postgres.
package sqlxrepos

import (
	"sort"

	"github.com/lib/pq"

	"github.com/muddyapp/muddy/core/submission"
)

// pgUniqueViolation is the Postgres error code for a uniqueness constraint hit.
const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == pgUniqueViolation
}

// sortPatternsByCount orders aggregated patterns most-reported first; stable
// so equal counts keep their per-query order.
func sortPatternsByCount(patterns []submission.ConfusionPattern) {
	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Count > patterns[j].Count
	})
}
