package store

import "context"

// ActivityStore is the cross-link touchpoint with itinerary activities. The
// only contract this subsystem has with activities: when a linked expense is
// deleted, the activity's cost fields are cleared so the two records agree
// that no cost exists.
type ActivityStore struct {
	db DB
}

func NewActivityStore(db DB) *ActivityStore {
	return &ActivityStore{db: db}
}

func (s *ActivityStore) ClearCost(ctx context.Context, tx Execer, activityID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE activities
		SET cost_amount = NULL, cost_currency = NULL
		WHERE id = $1
	`, activityID)
	return err
}
