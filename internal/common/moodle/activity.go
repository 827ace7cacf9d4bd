package moodle

import (
	"context"
	"fmt"

	"github.com/lib/pq"
)

// CertificateActivityCheck answers whether a course issues certificates at all.
type CertificateActivityCheck interface {
	HasCertificateActivity(ctx context.Context, courseID int64) (bool, error)
}

func (s *Store) HasCertificateActivity(ctx context.Context, courseID int64) (bool, error) {
	if len(s.modules) == 0 {
		return false, nil
	}

	var exists bool
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1
			FROM %s cm
			JOIN %s m ON m.id = cm.module
			WHERE cm.course = $1
			  AND cm.deletioninprogress = 0
			  AND m.name = ANY($2)
		)`, s.table("course_modules"), s.table("modules")),
		courseID, pq.Array(s.modules),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check certificate activity of course %d: %w", courseID, err)
	}
	return exists, nil
}
