package settle

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonatato/routeit-sub001/internal/models"
	"github.com/jonatato/routeit-sub001/internal/money"
)

func member(id string) models.Member {
	return models.Member{ID: id, LedgerID: "ledger-1", Name: id}
}

func dec(value string) decimal.Decimal {
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return parsed
}

func TestComputeBalancesEqualSplit(t *testing.T) {
	members := []models.Member{member("alice"), member("bob"), member("carol")}
	expenses := []models.Expense{
		{ID: "e1", LedgerID: "ledger-1", PayerID: "alice", Amount: dec("90"), Division: models.DivideEqual},
	}
	shares := []models.Share{
		{ID: "s1", ExpenseID: "e1", MemberID: "alice", Amount: dec("30")},
		{ID: "s2", ExpenseID: "e1", MemberID: "bob", Amount: dec("30")},
		{ID: "s3", ExpenseID: "e1", MemberID: "carol", Amount: dec("30")},
	}

	balances := ComputeBalances(members, expenses, shares, nil)

	assert.True(t, balances["alice"].Equal(dec("60")), "alice: %s", balances["alice"])
	assert.True(t, balances["bob"].Equal(dec("-30")), "bob: %s", balances["bob"])
	assert.True(t, balances["carol"].Equal(dec("-30")), "carol: %s", balances["carol"])
}

func TestComputeBalancesWithDirectPayment(t *testing.T) {
	members := []models.Member{member("alice"), member("bob"), member("carol")}
	expenses := []models.Expense{
		{ID: "e1", PayerID: "alice", Amount: dec("90")},
	}
	shares := []models.Share{
		{ID: "s1", ExpenseID: "e1", MemberID: "alice", Amount: dec("30")},
		{ID: "s2", ExpenseID: "e1", MemberID: "bob", Amount: dec("30")},
		{ID: "s3", ExpenseID: "e1", MemberID: "carol", Amount: dec("30")},
	}
	payments := []models.Payment{
		{ID: "p1", PayerID: "bob", PayeeID: "alice", Amount: dec("30")},
	}

	balances := ComputeBalances(members, expenses, shares, payments)

	assert.True(t, balances["alice"].Equal(dec("30")))
	assert.True(t, balances["bob"].IsZero())
	assert.True(t, balances["carol"].Equal(dec("-30")))

	transfers := SimplifyDebts(balances)
	require.Len(t, transfers, 1)
	assert.Equal(t, "carol", transfers[0].FromMemberID)
	assert.Equal(t, "alice", transfers[0].ToMemberID)
	assert.True(t, transfers[0].Amount.Equal(dec("30")))
}

func TestComputeBalancesDeletedMemberStillCounted(t *testing.T) {
	// A payer removed from the member list keeps an implicit balance entry so
	// the ledger stays conserved.
	members := []models.Member{member("bob")}
	expenses := []models.Expense{{ID: "e1", PayerID: "ghost", Amount: dec("10")}}
	shares := []models.Share{{ID: "s1", ExpenseID: "e1", MemberID: "bob", Amount: dec("10")}}

	balances := ComputeBalances(members, expenses, shares, nil)

	assert.True(t, balances["ghost"].Equal(dec("10")))
	assert.True(t, balances["bob"].Equal(dec("-10")))
}

func TestSimplifyDebtsTwoDebtorsOneCreditor(t *testing.T) {
	balances := map[string]decimal.Decimal{
		"alice": dec("60"),
		"bob":   dec("-30"),
		"carol": dec("-30"),
	}

	transfers := SimplifyDebts(balances)

	require.Len(t, transfers, 2)
	assert.Equal(t, "bob", transfers[0].FromMemberID)
	assert.Equal(t, "alice", transfers[0].ToMemberID)
	assert.True(t, transfers[0].Amount.Equal(dec("30")))
	assert.Equal(t, "carol", transfers[1].FromMemberID)
	assert.Equal(t, "alice", transfers[1].ToMemberID)
	assert.True(t, transfers[1].Amount.Equal(dec("30")))
}

func TestSimplifyDebtsDeterministicTieBreak(t *testing.T) {
	balances := map[string]decimal.Decimal{
		"zoe": dec("-25"),
		"amy": dec("-25"),
		"pat": dec("50"),
	}

	first := SimplifyDebts(balances)
	second := SimplifyDebts(balances)

	require.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, "amy", first[0].FromMemberID)
	assert.Equal(t, "zoe", first[1].FromMemberID)
}

func TestSimplifyDebtsRoundingResidualEmitsNothing(t *testing.T) {
	// Three-way equal split of 100 leaves a cent-level residual; it must not
	// produce a transfer at or below the epsilon.
	balances := map[string]decimal.Decimal{
		"alice": dec("66.67"),
		"bob":   dec("-33.33"),
		"carol": dec("-33.34"),
	}

	transfers := SimplifyDebts(balances)

	require.Len(t, transfers, 2)
	for _, transfer := range transfers {
		assert.True(t, transfer.Amount.GreaterThan(money.Epsilon))
	}
	residual := map[string]decimal.Decimal{
		"alice": dec("0.01"),
		"bob":   dec("-0.01"),
	}
	assert.Empty(t, SimplifyDebts(residual))
}

func TestSimplifyDebtsNoSelfTransfers(t *testing.T) {
	balances := map[string]decimal.Decimal{
		"a": dec("12.50"),
		"b": dec("-7.25"),
		"c": dec("-5.25"),
		"d": dec("0"),
	}
	for _, transfer := range SimplifyDebts(balances) {
		assert.NotEqual(t, transfer.FromMemberID, transfer.ToMemberID)
	}
}

func TestSettlementProperties(t *testing.T) {
	cases := []struct {
		name     string
		balances map[string]decimal.Decimal
	}{
		{
			name: "even",
			balances: map[string]decimal.Decimal{
				"a": dec("60"), "b": dec("-30"), "c": dec("-30"),
			},
		},
		{
			name: "residual",
			balances: map[string]decimal.Decimal{
				"a": dec("66.67"), "b": dec("-33.33"), "c": dec("-33.34"),
			},
		},
		{
			name: "many",
			balances: map[string]decimal.Decimal{
				"a": dec("105.40"), "b": dec("-22.15"), "c": dec("-13.25"),
				"d": dec("-70"), "e": dec("0"), "f": dec("17.80"), "g": dec("-17.80"),
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			total := decimal.Zero
			positive := decimal.Zero
			for _, balance := range tc.balances {
				total = total.Add(balance)
				if balance.IsPositive() {
					positive = positive.Add(balance)
				}
			}
			require.True(t, total.Abs().LessThanOrEqual(money.Epsilon), "fixture must conserve")

			transfers := SimplifyDebts(tc.balances)

			// Never more than members-1 transfers.
			assert.LessOrEqual(t, len(transfers), len(tc.balances)-1)

			// Emitted total matches the positive side within the epsilon.
			emitted := decimal.Zero
			for _, transfer := range transfers {
				emitted = emitted.Add(transfer.Amount)
			}
			assert.True(t, emitted.Sub(positive).Abs().LessThanOrEqual(money.Epsilon.Mul(decimal.NewFromInt(int64(len(tc.balances))))),
				"emitted %s vs positive %s", emitted, positive)

			// Applying the plan clears every balance, and re-simplifying the
			// result yields nothing.
			applied := ApplyTransfers(tc.balances, transfers)
			for memberID, balance := range applied {
				assert.True(t, money.IsNegligible(balance), "member %s left at %s", memberID, balance)
			}
			assert.Empty(t, SimplifyDebts(applied))
		})
	}
}
