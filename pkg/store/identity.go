package store

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// IdentityMapper resolves channel visitor ids to internal chat user ids.
type IdentityMapper struct {
	db      *stdsql.DB
	channel string
}

// NewIdentityMapper creates a mapper for one channel.
func NewIdentityMapper(db *stdsql.DB, channel string) *IdentityMapper {
	return &IdentityMapper{db: db, channel: channel}
}

// ResolveTarget returns the user id mapped to visitorID.
// A visitor without a mapping yields ok == false and no error.
func (m *IdentityMapper) ResolveTarget(ctx context.Context, botID, visitorID string) (string, bool, error) {
	query, args := builder().Select("user_id").
		From(entsql.Table("user_mappings")).
		Where(entsql.And(
			entsql.EQ("bot_id", botID),
			entsql.EQ("channel", m.channel),
			entsql.EQ("visitor_id", visitorID),
		)).
		Query()

	var userID string
	err := m.db.QueryRowContext(ctx, query, args...).Scan(&userID)
	if errors.Is(err, stdsql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve visitor %s: %w", visitorID, err)
	}
	return userID, true, nil
}
