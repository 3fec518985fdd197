package service

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jonatato/routeit-sub001/internal/models"
	"github.com/jonatato/routeit-sub001/internal/money"
)

var (
	ErrNoMembers       = errors.New("no members in ledger")
	ErrMemberNotFound  = errors.New("member referenced by share not found")
	ErrInvalidDivision = errors.New("unsupported division strategy")
	ErrInvalidPortions = errors.New("portions do not match the division strategy")
)

// Portion is one member's slice of an expense. Its meaning depends on the
// division strategy: a percentage, an exact amount, or a relative weight.
// Equal division takes no portions.
type Portion struct {
	MemberID string          `json:"member_id"`
	Value    decimal.Decimal `json:"value"`
}

var oneHundred = decimal.NewFromInt(100)

// divideExpense turns a total amount into one share per participating
// member. Every emitted share is rounded to two decimals and the shares
// always sum to exactly the total: cent-level rounding residue is spread one
// cent at a time over the first members, so no residue ever leaks into the
// balances.
func divideExpense(expenseID string, amount decimal.Decimal, strategy models.DivisionStrategy, memberIDs []string, portions []Portion) ([]models.Share, error) {
	switch strategy {
	case models.DivideEqual:
		if len(memberIDs) == 0 {
			return nil, ErrNoMembers
		}
		weights := make([]Portion, len(memberIDs))
		for i, memberID := range memberIDs {
			weights[i] = Portion{MemberID: memberID, Value: decimal.NewFromInt(1)}
		}
		return divideByWeight(expenseID, amount, weights)

	case models.DividePercentage:
		if len(portions) == 0 {
			return nil, ErrInvalidPortions
		}
		total := decimal.Zero
		for _, portion := range portions {
			total = total.Add(portion.Value)
		}
		if !total.Sub(oneHundred).Abs().LessThanOrEqual(money.Epsilon) {
			return nil, ErrInvalidPortions
		}
		return divideByWeight(expenseID, amount, portions)

	case models.DivideShares:
		if len(portions) == 0 {
			return nil, ErrInvalidPortions
		}
		return divideByWeight(expenseID, amount, portions)

	case models.DivideExact:
		if len(portions) == 0 {
			return nil, ErrInvalidPortions
		}
		total := decimal.Zero
		shares := make([]models.Share, 0, len(portions))
		for _, portion := range portions {
			share := money.Round2(portion.Value)
			total = total.Add(share)
			shares = append(shares, models.Share{
				ID:        uuid.NewString(),
				ExpenseID: expenseID,
				MemberID:  portion.MemberID,
				Amount:    share,
			})
		}
		if !total.Sub(amount).Abs().LessThanOrEqual(money.Epsilon) {
			return nil, ErrInvalidPortions
		}
		return shares, nil

	default:
		return nil, ErrInvalidDivision
	}
}

// divideByWeight splits amount proportionally to each portion's weight,
// working in cents so the remainder can be handed out one cent at a time.
func divideByWeight(expenseID string, amount decimal.Decimal, portions []Portion) ([]models.Share, error) {
	totalWeight := decimal.Zero
	for _, portion := range portions {
		if portion.Value.IsNegative() {
			return nil, ErrInvalidPortions
		}
		totalWeight = totalWeight.Add(portion.Value)
	}
	if totalWeight.IsZero() {
		return nil, ErrInvalidPortions
	}

	totalCents := money.Round2(amount).Mul(oneHundred).IntPart()
	cents := make([]int64, len(portions))
	var assigned int64
	for i, portion := range portions {
		cents[i] = decimal.NewFromInt(totalCents).Mul(portion.Value).Div(totalWeight).Floor().IntPart()
		assigned += cents[i]
	}
	for i := 0; assigned < totalCents; i = (i + 1) % len(portions) {
		cents[i]++
		assigned++
	}

	shares := make([]models.Share, len(portions))
	for i, portion := range portions {
		shares[i] = models.Share{
			ID:        uuid.NewString(),
			ExpenseID: expenseID,
			MemberID:  portion.MemberID,
			Amount:    decimal.New(cents[i], -2),
		}
	}
	return shares, nil
}
