package service

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jonatato/routeit-sub001/internal/settle"
)

// MemberBalance pairs a member id with its net balance and a display name
// resolved from the snapshot, "Unknown" when the member was deleted.
type MemberBalance struct {
	MemberID string          `json:"member_id"`
	Name     string          `json:"name"`
	Balance  decimal.Decimal `json:"balance"`
}

// Balances computes the current net balance per member from a live or
// cached snapshot. Derived on every call, never persisted: this output and
// Settlement are the canonical "who owes whom" for every exporter.
func (s *LedgerService) Balances(ctx context.Context, ledgerID string) ([]MemberBalance, error) {
	snapshot, err := s.Snapshot(ctx, ledgerID)
	if err != nil {
		return nil, err
	}

	balances := settle.ComputeBalances(snapshot.Members, snapshot.Expenses, snapshot.Shares, snapshot.Payments)
	names := make(map[string]string, len(snapshot.Members))
	for _, member := range snapshot.Members {
		names[member.ID] = member.Name
	}

	result := make([]MemberBalance, 0, len(balances))
	for memberID, balance := range balances {
		name := names[memberID]
		if name == "" {
			name = "Unknown"
		}
		result = append(result, MemberBalance{MemberID: memberID, Name: name, Balance: balance})
	}
	sort.Slice(result, func(a, b int) bool { return result[a].MemberID < result[b].MemberID })
	return result, nil
}

// Settlement reduces the current balances to the settling transfer list.
func (s *LedgerService) Settlement(ctx context.Context, ledgerID string) ([]settle.Transfer, error) {
	snapshot, err := s.Snapshot(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if len(snapshot.Members) == 0 {
		return nil, ErrNoMembers
	}
	balances := settle.ComputeBalances(snapshot.Members, snapshot.Expenses, snapshot.Shares, snapshot.Payments)
	return settle.SimplifyDebts(balances), nil
}
