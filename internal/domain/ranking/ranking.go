// Package ranking orders the live bids of one listing and decides which of
// them is currently winning.
package ranking

import (
	"sort"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/bid"
)

// Change is a status a bid has to move to for the ranking to hold
type Change struct {
	Bid  *bid.Bid
	From bid.Status
	To   bid.Status
}

// Demoted returns true if the change took a winning bid to outbid
func (c Change) Demoted() bool {
	return c.From == bid.StatusWinning && c.To == bid.StatusOutbid
}

// Result is the outcome of ranking a listing
type Result struct {
	Winner  *bid.Bid
	Ordered []*bid.Bid
	Changes []Change
}

// Less reports whether a ranks ahead of b: higher price first, then the
// earlier submission, then the smaller id so the order is total.
func Less(a, b *bid.Bid) bool {
	if c := a.Price.Cmp(b.Price); c != 0 {
		return c > 0
	}
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.Before(b.SubmittedAt)
	}
	return a.ID.String() < b.ID.String()
}

// Rank computes the winner among the live bids and the status changes
// needed to get there. It does not modify the bids; ranking an already
// ranked set yields no changes.
func Rank(bids []*bid.Bid) Result {
	live := make([]*bid.Bid, 0, len(bids))
	for _, b := range bids {
		if b.IsLive() {
			live = append(live, b)
		}
	}
	sort.SliceStable(live, func(i, j int) bool { return Less(live[i], live[j]) })

	result := Result{Ordered: live}
	for i, b := range live {
		want := bid.StatusOutbid
		if i == 0 {
			want = bid.StatusWinning
			result.Winner = b
		}
		if b.Status != want {
			result.Changes = append(result.Changes, Change{Bid: b, From: b.Status, To: want})
		}
	}
	return result
}

// Apply moves every bid to its ranked status and returns the bids that lost
// the winning position.
func (r Result) Apply(apply func(c Change)) []*bid.Bid {
	var demoted []*bid.Bid
	for _, c := range r.Changes {
		apply(c)
		if c.Demoted() {
			demoted = append(demoted, c.Bid)
		}
	}
	return demoted
}
