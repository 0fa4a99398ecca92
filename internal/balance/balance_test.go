package balance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func item(id, author int64, price string, members ...MemberShare) Item {
	return Item{ID: id, AuthorID: author, Price: dec(price), Members: members}
}

const (
	alice int64 = 1
	bob   int64 = 2
	carol int64 = 3
)

func TestShare(t *testing.T) {
	it := item(1, alice, "100", MemberShare{UserID: alice, Paid: true}, MemberShare{UserID: bob})
	assert.True(t, it.Share().Equal(dec("50")), "share = %s", it.Share())

	odd := item(2, alice, "10",
		MemberShare{UserID: alice}, MemberShare{UserID: bob}, MemberShare{UserID: carol})
	assert.True(t, odd.Share().Equal(dec("3.3333")), "share = %s", odd.Share())

	empty := Item{ID: 3, AuthorID: alice, Price: dec("10")}
	assert.True(t, empty.Share().IsZero())
}

func TestDirectional(t *testing.T) {
	items := []Item{
		// Rent: Alice paid, Bob owes half.
		item(1, alice, "100", MemberShare{UserID: alice, Paid: true}, MemberShare{UserID: bob}),
		// Utilities: Bob paid, Alice owes half.
		item(2, bob, "40", MemberShare{UserID: alice}, MemberShare{UserID: bob, Paid: true}),
	}

	debts := Directional(items)
	assert.True(t, debts[bob][alice].Equal(dec("50")))
	assert.True(t, debts[alice][bob].Equal(dec("20")))
}

func TestDirectionalSkipsPaidAndAuthor(t *testing.T) {
	items := []Item{
		// Author listed as unpaid member of their own item must not owe themselves.
		item(1, alice, "60",
			MemberShare{UserID: alice}, MemberShare{UserID: bob, Paid: true}, MemberShare{UserID: carol}),
	}

	debts := Directional(items)
	assert.Nil(t, debts[alice])
	assert.Nil(t, debts[bob])
	assert.True(t, debts[carol][alice].Equal(dec("20")))
}

func TestNet(t *testing.T) {
	tests := []struct {
		name   string
		ab, ba string // directional a->b, b->a
		wantAB string
		wantBA string
	}{
		{"larger direction keeps difference", "20", "50", "0", "30"},
		{"equal amounts fully offset", "35", "35", "0", "0"},
		{"one-sided debt untouched", "15", "0", "15", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			directional := map[int64]map[int64]decimal.Decimal{}
			if !dec(tt.ab).IsZero() {
				directional[alice] = map[int64]decimal.Decimal{bob: dec(tt.ab)}
			}
			if !dec(tt.ba).IsZero() {
				directional[bob] = map[int64]decimal.Decimal{alice: dec(tt.ba)}
			}

			netted := Net(directional)

			gotAB, gotBA := decimal.Zero, decimal.Zero
			if m := netted[alice]; m != nil {
				gotAB = m[bob]
			}
			if m := netted[bob]; m != nil {
				gotBA = m[alice]
			}
			assert.True(t, gotAB.Equal(dec(tt.wantAB)), "a->b = %s, want %s", gotAB, tt.wantAB)
			assert.True(t, gotBA.Equal(dec(tt.wantBA)), "b->a = %s, want %s", gotBA, tt.wantBA)

			// Net-preserving: d'(a->b) - d'(b->a) == d(a->b) - d(b->a).
			assert.True(t, gotAB.Sub(gotBA).Equal(dec(tt.ab).Sub(dec(tt.ba))))
			// At most one non-zero direction per pair.
			assert.False(t, gotAB.IsPositive() && gotBA.IsPositive())
		})
	}
}

func TestNetDoesNotMutateInput(t *testing.T) {
	directional := map[int64]map[int64]decimal.Decimal{
		alice: {bob: dec("20")},
		bob:   {alice: dec("50")},
	}
	Net(directional)
	assert.True(t, directional[alice][bob].Equal(dec("20")))
	assert.True(t, directional[bob][alice].Equal(dec("50")))
}

func TestForUser(t *testing.T) {
	// The worked scenario: Rent 100 by Alice (Bob unpaid), Utilities 40 by
	// Bob (Alice unpaid). Netted, Bob owes Alice 30.
	items := []Item{
		item(1, alice, "100", MemberShare{UserID: alice, Paid: true}, MemberShare{UserID: bob}),
		item(2, bob, "40", MemberShare{UserID: alice}, MemberShare{UserID: bob, Paid: true}),
	}

	summary := ForUser(alice, items)
	require.Len(t, summary.NetPerMember, 1)
	assert.True(t, summary.NetPerMember[bob].Equal(dec("30")))
	assert.True(t, summary.TotalOwed.Equal(dec("30")))
	assert.True(t, summary.TotalOwing.IsZero())
	assert.True(t, summary.Net.Equal(dec("30")))

	// Same pool from Bob's side mirrors the sign.
	bobSummary := ForUser(bob, items)
	assert.True(t, bobSummary.NetPerMember[alice].Equal(dec("-30")))
	assert.True(t, bobSummary.TotalOwing.Equal(dec("30")))
	assert.True(t, bobSummary.Net.Equal(dec("-30")))
}

func TestForUserMultipleCounterparties(t *testing.T) {
	items := []Item{
		item(1, alice, "90",
			MemberShare{UserID: alice, Paid: true}, MemberShare{UserID: bob}, MemberShare{UserID: carol}),
		item(2, carol, "30",
			MemberShare{UserID: alice}, MemberShare{UserID: bob, Paid: true}, MemberShare{UserID: carol, Paid: true}),
	}

	summary := ForUser(alice, items)
	// Bob owes Alice 30; Carol owes 30 but Alice owes Carol 10, netted 20.
	assert.True(t, summary.NetPerMember[bob].Equal(dec("30")))
	assert.True(t, summary.NetPerMember[carol].Equal(dec("20")))
	assert.True(t, summary.TotalOwed.Equal(dec("50")))
	assert.True(t, summary.TotalOwing.IsZero())
}

func TestBilateral(t *testing.T) {
	items := []Item{
		item(1, alice, "100", MemberShare{UserID: alice, Paid: true}, MemberShare{UserID: bob}),
		item(2, bob, "40", MemberShare{UserID: alice}, MemberShare{UserID: bob, Paid: true}),
		// Carol's item must not leak into the Alice/Bob pair.
		item(3, carol, "60", MemberShare{UserID: alice}, MemberShare{UserID: carol, Paid: true}),
	}

	pair := Bilateral(alice, bob, items)
	assert.True(t, pair.TheyOwe.Equal(dec("50")))
	assert.True(t, pair.YouOwe.Equal(dec("20")))
	assert.True(t, pair.Total.Equal(dec("30")))
}

func TestBilateralItems(t *testing.T) {
	rent := item(1, alice, "100", MemberShare{UserID: alice, Paid: true}, MemberShare{UserID: bob})
	utilities := item(2, bob, "40", MemberShare{UserID: alice}, MemberShare{UserID: bob, Paid: true})
	// Bob already settled his share: not part of the bilateral set.
	groceries := item(3, alice, "30", MemberShare{UserID: alice, Paid: true}, MemberShare{UserID: bob, Paid: true})
	// Different pair entirely.
	internet := item(4, carol, "80", MemberShare{UserID: alice}, MemberShare{UserID: carol, Paid: true})

	set := BilateralItems(alice, bob, []Item{rent, utilities, groceries, internet})
	require.Len(t, set, 2)
	assert.Equal(t, int64(1), set[0].ID)
	assert.Equal(t, int64(2), set[1].ID)

	// Symmetric regardless of argument order.
	mirrored := BilateralItems(bob, alice, []Item{rent, utilities, groceries, internet})
	require.Len(t, mirrored, 2)
}

func TestRoundCurrency(t *testing.T) {
	assert.Equal(t, "3.33", RoundCurrency(dec("3.3333")).StringFixed(2))
	// Banker's rounding on the half-cent.
	assert.Equal(t, "0.12", RoundCurrency(dec("0.125")).StringFixed(2))
	assert.Equal(t, "0.14", RoundCurrency(dec("0.135")).StringFixed(2))
}
