// Package rank holds the single ranking formula shared by every read path.
//
// Ordering: score DESC, then last-event time ASC (whoever reached the score
// first wins the tie), then user id ASC. The ordering is total because user
// ids are unique, so "rank = 1 + number of strictly better users" and
// "position after sorting" always agree. Both the cached top-N view and the
// live single-user query must go through this package; a second comparator
// anywhere else is a bug.
package rank

import (
	"sort"

	"github.com/okian/tally/internal/domain/model"
)

// Less reports whether a ranks strictly better than b.
func Less(a, b model.UserScore) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.LastEventAt.Equal(b.LastEventAt) {
		return a.LastEventAt.Before(b.LastEventAt)
	}
	return a.UserID < b.UserID
}

// Sort orders sums best-first in place.
func Sort(sums []model.UserScore) {
	sort.Slice(sums, func(i, j int) bool {
		return Less(sums[i], sums[j])
	})
}

// Top returns the n best entries of sums without mutating the input.
func Top(sums []model.UserScore, n int) []model.UserScore {
	if n < 0 {
		n = 0
	}
	sorted := make([]model.UserScore, len(sums))
	copy(sorted, sums)
	Sort(sorted)
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// Of returns the 1-based rank of userID within sums, defined as one plus
// the number of strictly better users. A user absent from sums ranks as a
// zero-score achiever with a zero last-event time.
func Of(sums []model.UserScore, userID string) int {
	target := model.UserScore{UserID: userID}
	for _, s := range sums {
		if s.UserID == userID {
			target = s
			break
		}
	}

	r := 1
	for _, s := range sums {
		if s.UserID == userID {
			continue
		}
		if Less(s, target) {
			r++
		}
	}
	return r
}
