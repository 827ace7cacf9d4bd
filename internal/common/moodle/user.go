package moodle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type UserProfile struct {
	UserID int64
	// PIN is the personal identification number sent as "pin".
	PIN string
}

type UserProfileLookup interface {
	UserProfile(ctx context.Context, userID int64) (*UserProfile, error)
}

func (s *Store) UserProfile(ctx context.Context, userID int64) (*UserProfile, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND deleted = 0)`, s.table("user")),
		userID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to read user %d: %w", userID, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %d", ErrUserNotFound, userID)
	}

	profile := &UserProfile{UserID: userID}

	var pin sql.NullString
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT d.data
		FROM %s d
		JOIN %s f ON f.id = d.fieldid
		WHERE d.userid = $1 AND f.shortname = $2`,
		s.table("user_info_data"), s.table("user_info_field")),
		userID, s.fields.PIN,
	).Scan(&pin)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return profile, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read profile of user %d: %w", userID, err)
	}

	profile.PIN = pin.String
	return profile, nil
}
