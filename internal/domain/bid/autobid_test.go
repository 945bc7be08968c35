package bid

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func testBid(price string, ceiling *decimal.Decimal) *Bid {
	return New(uuid.New(), uuid.New(), Terms{
		Price:           dec(price),
		Volume:          dec("1"),
		VolumeKind:      VolumePartial,
		MaxAutoBidPrice: ceiling,
	}, time.Now())
}

func TestNextAutoBidPrice(t *testing.T) {
	tests := []struct {
		name          string
		ceiling       *decimal.Decimal
		winnerPrice   string
		winnerCeiling *decimal.Decimal
		increment     string
		want          string
		ok            bool
	}{
		{name: "no ceiling", winnerPrice: "60", increment: "1", ok: false},
		{name: "one increment above plain winner", ceiling: decPtr("65"), winnerPrice: "60", increment: "1", want: "61", ok: true},
		{name: "ceiling equals next price", ceiling: decPtr("61"), winnerPrice: "60", increment: "1", want: "61", ok: true},
		{name: "ceiling below next price", ceiling: decPtr("60.5"), winnerPrice: "60", increment: "1", ok: false},
		{name: "ceiling reached", ceiling: decPtr("60"), winnerPrice: "60", increment: "1", ok: false},
		{name: "fractional increment", ceiling: decPtr("10"), winnerPrice: "9.50", increment: "0.25", want: "9.75", ok: true},
		{name: "winner ceiling higher settles at own last round", ceiling: decPtr("65"), winnerPrice: "60", winnerCeiling: decPtr("100"), increment: "1", want: "65", ok: true},
		{name: "winner ceiling lower jumps just past it", ceiling: decPtr("80"), winnerPrice: "60", winnerCeiling: decPtr("70"), increment: "1", want: "71", ok: true},
		{name: "winner ceiling equals winner price", ceiling: decPtr("80"), winnerPrice: "60", winnerCeiling: decPtr("60"), increment: "1", want: "61", ok: true},
		{name: "zero increment", ceiling: decPtr("80"), winnerPrice: "60", increment: "0", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outbid := testBid("55", tt.ceiling)
			winner := testBid(tt.winnerPrice, tt.winnerCeiling)

			got, ok := NextAutoBidPrice(outbid, winner, dec(tt.increment))
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v (price %s)", ok, tt.ok, got)
			}
			if ok && !got.Equal(dec(tt.want)) {
				t.Errorf("price = %s, want %s", got, tt.want)
			}
		})
	}
}

// Replays the exchange one increment at a time and checks the closed form
// lands where the slow exchange would.
func TestNextAutoBidPriceMatchesStepwiseExchange(t *testing.T) {
	increment := dec("1")
	for winnerCeiling := 60; winnerCeiling <= 75; winnerCeiling++ {
		for ownCeiling := 58; ownCeiling <= 75; ownCeiling++ {
			price := dec("60")
			wc, oc := decimal.NewFromInt(int64(winnerCeiling)), decimal.NewFromInt(int64(ownCeiling))

			// stepwise: own side moves first
			ownTurn := true
			var ownLast decimal.Decimal
			ownMoved := false
			for {
				next := price.Add(increment)
				if ownTurn {
					if next.GreaterThan(oc) {
						break
					}
					ownLast, ownMoved = next, true
				} else if next.GreaterThan(wc) {
					break
				}
				price = next
				ownTurn = !ownTurn
			}

			outbid := testBid("50", &oc)
			winner := testBid("60", &wc)
			got, ok := NextAutoBidPrice(outbid, winner, increment)
			if ok != ownMoved {
				t.Fatalf("own=%d winner=%d: ok = %v, want %v", ownCeiling, winnerCeiling, ok, ownMoved)
			}
			if ok && !got.Equal(ownLast) {
				t.Errorf("own=%d winner=%d: price = %s, want %s", ownCeiling, winnerCeiling, got, ownLast)
			}
		}
	}
}
