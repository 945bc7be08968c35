package db

import (
	"errors"
	"strings"
	"testing"

	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/bid"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/shared"
	"github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

func TestListQuery(t *testing.T) {
	listingID, bidderID := uuid.New(), uuid.New()

	tests := []struct {
		name      string
		filter    outbound.BidFilter
		wantWhere string
		wantArgs  int
	}{
		{
			name:     "no filter",
			filter:   outbound.BidFilter{},
			wantArgs: 0,
		},
		{
			name:      "listing",
			filter:    outbound.BidFilter{ListingID: &listingID},
			wantWhere: " WHERE listing_id = $1 ORDER BY",
			wantArgs:  1,
		},
		{
			name: "everything",
			filter: outbound.BidFilter{
				ListingID: &listingID,
				BidderID:  &bidderID,
				Statuses:  []bid.Status{bid.StatusWon, bid.StatusPaid},
				Limit:     20,
			},
			wantWhere: " WHERE listing_id = $1 AND bidder_id = $2 AND status = ANY($3) ORDER BY",
			wantArgs:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := listQuery(tt.filter)
			if len(args) != tt.wantArgs {
				t.Errorf("args = %d, want %d", len(args), tt.wantArgs)
			}
			if tt.wantWhere == "" && strings.Contains(query, "WHERE") {
				t.Errorf("unexpected WHERE in %q", query)
			}
			if tt.wantWhere != "" && !strings.Contains(query, tt.wantWhere) {
				t.Errorf("query %q does not contain %q", query, tt.wantWhere)
			}
			if tt.filter.Limit > 0 && !strings.HasSuffix(query, " LIMIT $4") {
				t.Errorf("query %q does not end with the limit", query)
			}
		})
	}
}

func TestMapClosureError(t *testing.T) {
	err := mapClosureError(&pq.Error{Code: uniqueViolation})
	if !errors.Is(err, shared.ErrAuctionClosed) {
		t.Errorf("unique violation mapped to %v, want auction closed", err)
	}

	other := errors.New("connection reset")
	if err := mapClosureError(other); !errors.Is(err, other) || errors.Is(err, shared.ErrAuctionClosed) {
		t.Errorf("other error mapped to %v", err)
	}
}
