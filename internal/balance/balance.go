// Package balance computes who owes whom from a pool of shared line items.
// It is pure: callers load items and the roster, the functions here only
// transform them. All arithmetic uses decimals; amounts are rounded to cents
// only at the edges (see RoundCurrency).
package balance

import "github.com/shopspring/decimal"

// sharePrecision is the scale kept for per-member shares mid-calculation.
// Persisted and serialized amounts are rounded to 2 with RoundCurrency.
const sharePrecision = 4

// MemberShare is one member's slice of an item.
type MemberShare struct {
	UserID int64
	Paid   bool
}

// Item carries the minimal line-item fields balance calculations need.
type Item struct {
	ID       int64
	Name     string
	AuthorID int64
	Price    decimal.Decimal
	Members  []MemberShare
}

// Share returns the per-member share: price divided evenly by member count.
func (it Item) Share() decimal.Decimal {
	if len(it.Members) == 0 {
		return decimal.Zero
	}
	return it.Price.DivRound(decimal.NewFromInt(int64(len(it.Members))), sharePrecision)
}

// RoundCurrency rounds an amount to cents with banker's rounding. Applied
// when an amount is persisted or serialized, never mid-calculation.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

// Directional builds the pre-netting debt table: debts[debtor][creditor] is
// the sum of unpaid shares the debtor owes the creditor. A member owes the
// item's author their share while their paid flag is false; the author never
// owes themselves.
func Directional(items []Item) map[int64]map[int64]decimal.Decimal {
	debts := make(map[int64]map[int64]decimal.Decimal)
	for _, it := range items {
		share := it.Share()
		for _, m := range it.Members {
			if m.Paid || m.UserID == it.AuthorID {
				continue
			}
			if debts[m.UserID] == nil {
				debts[m.UserID] = make(map[int64]decimal.Decimal)
			}
			debts[m.UserID][it.AuthorID] = debts[m.UserID][it.AuthorID].Add(share)
		}
	}
	return debts
}

// Net collapses opposite directional debts between every pair into a single
// direction. If both directions are equal the pair fully offsets; otherwise
// the larger direction keeps the difference and the smaller is zeroed. The
// result preserves the signed difference of every pair.
func Net(directional map[int64]map[int64]decimal.Decimal) map[int64]map[int64]decimal.Decimal {
	netted := make(map[int64]map[int64]decimal.Decimal, len(directional))
	for debtor, creditors := range directional {
		netted[debtor] = make(map[int64]decimal.Decimal, len(creditors))
		for creditor, amount := range creditors {
			netted[debtor][creditor] = amount
		}
	}

	for a, creditors := range netted {
		for b := range creditors {
			ab := netted[a][b]
			ba := decimal.Zero
			if netted[b] != nil {
				ba = netted[b][a]
			}
			if ab.IsZero() || ba.IsZero() {
				continue
			}
			switch ab.Cmp(ba) {
			case 1:
				netted[a][b] = ab.Sub(ba)
				netted[b][a] = decimal.Zero
			case -1:
				netted[b][a] = ba.Sub(ab)
				netted[a][b] = decimal.Zero
			default:
				netted[a][b] = decimal.Zero
				netted[b][a] = decimal.Zero
			}
		}
	}
	return netted
}

// Summary is the balance view for one user against the whole house.
type Summary struct {
	// NetPerMember maps counterparty to the netted balance: positive means
	// they owe the user, negative means the user owes them.
	NetPerMember map[int64]decimal.Decimal

	TotalOwed  decimal.Decimal // sum of positive contributions
	TotalOwing decimal.Decimal // sum of what the user owes, as a positive number
	Net        decimal.Decimal // TotalOwed - TotalOwing
}

// ForUser computes the netted per-counterparty balances and aggregate totals
// for one user.
func ForUser(userID int64, items []Item) *Summary {
	netted := Net(Directional(items))

	summary := &Summary{NetPerMember: make(map[int64]decimal.Decimal)}

	// What counterparties owe the user after netting.
	for debtor, creditors := range netted {
		if debtor == userID {
			continue
		}
		if amount := creditors[userID]; !amount.IsZero() {
			summary.NetPerMember[debtor] = summary.NetPerMember[debtor].Add(amount)
		}
	}
	// What the user owes counterparties after netting.
	for creditor, amount := range netted[userID] {
		if !amount.IsZero() {
			summary.NetPerMember[creditor] = summary.NetPerMember[creditor].Sub(amount)
		}
	}

	for _, amount := range summary.NetPerMember {
		if amount.IsPositive() {
			summary.TotalOwed = summary.TotalOwed.Add(amount)
		} else {
			summary.TotalOwing = summary.TotalOwing.Add(amount.Neg())
		}
	}
	summary.Net = summary.TotalOwed.Sub(summary.TotalOwing)
	return summary
}

// Pair is the gross bilateral breakdown between the user and one
// counterparty, deliberately not netted so the detail view can show both
// directions.
type Pair struct {
	TheyOwe decimal.Decimal // counterparty owes user
	YouOwe  decimal.Decimal // user owes counterparty
	Total   decimal.Decimal // TheyOwe - YouOwe
}

// Bilateral computes the pre-netting directional pair between two users.
func Bilateral(userID, otherID int64, items []Item) Pair {
	directional := Directional(items)

	var pair Pair
	if m := directional[otherID]; m != nil {
		pair.TheyOwe = m[userID]
	}
	if m := directional[userID]; m != nil {
		pair.YouOwe = m[otherID]
	}
	pair.Total = pair.TheyOwe.Sub(pair.YouOwe)
	return pair
}

// BilateralItems returns the items connecting users a and b: authored by one
// of them with the other as an unpaid member, in either direction. This is
// the authoritative item set a settlement between the two touches.
func BilateralItems(a, b int64, items []Item) []Item {
	var out []Item
	for _, it := range items {
		var counterpart int64
		switch it.AuthorID {
		case a:
			counterpart = b
		case b:
			counterpart = a
		default:
			continue
		}
		for _, m := range it.Members {
			if m.UserID == counterpart && !m.Paid {
				out = append(out, it)
				break
			}
		}
	}
	return out
}
