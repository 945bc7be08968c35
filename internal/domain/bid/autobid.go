package bid

import "github.com/shopspring/decimal"

var two = decimal.NewFromInt(2)

// NextAutoBidPrice returns the price an outbid bid should automatically move
// to against the current winner, or false if its ceiling does not allow it.
//
// Without a ceiling on the winner the answer is winner price + increment.
// When the winner also holds a ceiling, the two would keep outbidding each
// other by one increment; the loser's final price in that exchange is
// returned directly so the exchange settles in at most two steps. The
// intermediate prices of that exchange are never emitted as events or ledger
// entries.
func NextAutoBidPrice(outbid, winner *Bid, increment decimal.Decimal) (decimal.Decimal, bool) {
	if outbid.MaxAutoBidPrice == nil || !increment.IsPositive() {
		return decimal.Zero, false
	}
	ceiling := *outbid.MaxAutoBidPrice
	current := winner.Price
	step2 := increment.Mul(two)

	// Rounds this bid can still take, each one increment above the winner's
	// previous answer.
	ownRounds := ceiling.Sub(current).Add(increment).Div(step2).Floor().IntPart()
	if ownRounds <= 0 {
		return decimal.Zero, false
	}

	var winnerRounds int64
	if winner.MaxAutoBidPrice != nil {
		winnerRounds = winner.MaxAutoBidPrice.Sub(current).Div(step2).Floor().IntPart()
		if winnerRounds < 0 {
			winnerRounds = 0
		}
	}

	rounds := ownRounds
	if winnerRounds+1 < rounds {
		rounds = winnerRounds + 1
	}

	next := current.Add(increment.Mul(decimal.NewFromInt(2*rounds - 1)))
	if next.GreaterThan(ceiling) {
		return decimal.Zero, false
	}
	return next, true
}
