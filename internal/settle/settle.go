// Package settle computes per-member net balances for a ledger and reduces
// outstanding debts to a short list of settling transfers. It is pure
// computation over in-memory snapshots; nothing here touches storage and the
// outputs are recomputed on demand, never persisted.
package settle

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jonatato/routeit-sub001/internal/models"
	"github.com/jonatato/routeit-sub001/internal/money"
)

// Transfer is one settling transaction: From pays To the given amount.
type Transfer struct {
	FromMemberID string          `json:"from_member_id"`
	ToMemberID   string          `json:"to_member_id"`
	Amount       decimal.Decimal `json:"amount"`
}

// ComputeBalances reduces one ledger's members, expenses, shares and payments
// to a net balance per member.
//
// For each member: paid = expenses they paid for, plus payments they sent,
// minus payments they received; owed = the sum of their shares. The balance is
// paid minus owed. Positive means the group owes the member, negative means
// the member owes the group.
//
// Members referenced by an expense, share or payment but absent from members
// still get an entry, so balances stay conserved when a member was deleted
// after their expenses were recorded.
func ComputeBalances(members []models.Member, expenses []models.Expense, shares []models.Share, payments []models.Payment) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal, len(members))
	for _, member := range members {
		balances[member.ID] = decimal.Zero
	}
	for _, expense := range expenses {
		balances[expense.PayerID] = balances[expense.PayerID].Add(expense.Amount)
	}
	for _, share := range shares {
		balances[share.MemberID] = balances[share.MemberID].Sub(share.Amount)
	}
	for _, payment := range payments {
		balances[payment.PayerID] = balances[payment.PayerID].Add(payment.Amount)
		balances[payment.PayeeID] = balances[payment.PayeeID].Sub(payment.Amount)
	}
	return balances
}

type party struct {
	memberID  string
	remaining decimal.Decimal
}

// SimplifyDebts turns a balance map into settling transfers that zero all
// balances, matching the largest remaining creditor against the largest
// remaining debtor until one side is exhausted. The result is a practical
// minimum, not the graph-theoretic one: it never exceeds len(balances)-1
// transfers and never emits an amount at or below the settlement epsilon.
//
// Ties are broken by member id, so the output is deterministic for a given
// balance map regardless of map iteration order.
func SimplifyDebts(balances map[string]decimal.Decimal) []Transfer {
	var creditors, debtors []party
	for memberID, balance := range balances {
		switch {
		case money.IsNegligible(balance):
		case balance.IsPositive():
			creditors = append(creditors, party{memberID: memberID, remaining: balance})
		default:
			debtors = append(debtors, party{memberID: memberID, remaining: balance.Neg()})
		}
	}
	sortParties(creditors)
	sortParties(debtors)

	transfers := []Transfer{}
	i, j := 0, 0
	for i < len(creditors) && j < len(debtors) {
		creditor := &creditors[i]
		debtor := &debtors[j]
		amount := money.Round2(decimal.Min(creditor.remaining, debtor.remaining))
		if amount.GreaterThan(money.Epsilon) {
			transfers = append(transfers, Transfer{
				FromMemberID: debtor.memberID,
				ToMemberID:   creditor.memberID,
				Amount:       amount,
			})
		}
		creditor.remaining = creditor.remaining.Sub(amount)
		debtor.remaining = debtor.remaining.Sub(amount)
		if money.IsNegligible(creditor.remaining) {
			i++
		}
		if money.IsNegligible(debtor.remaining) {
			j++
		}
	}
	return transfers
}

func sortParties(parties []party) {
	sort.Slice(parties, func(a, b int) bool {
		if !parties[a].remaining.Equal(parties[b].remaining) {
			return parties[a].remaining.GreaterThan(parties[b].remaining)
		}
		return parties[a].memberID < parties[b].memberID
	})
}

// ApplyTransfers returns the balances that result from executing every
// transfer against the given balances. Exporters and tests use it to verify a
// settlement plan actually clears the ledger.
func ApplyTransfers(balances map[string]decimal.Decimal, transfers []Transfer) map[string]decimal.Decimal {
	applied := make(map[string]decimal.Decimal, len(balances))
	for memberID, balance := range balances {
		applied[memberID] = balance
	}
	for _, transfer := range transfers {
		applied[transfer.FromMemberID] = applied[transfer.FromMemberID].Add(transfer.Amount)
		applied[transfer.ToMemberID] = applied[transfer.ToMemberID].Sub(transfer.Amount)
	}
	return applied
}
