// Package moodle reads the host learning platform's tables the transfer
// pipeline depends on and writes the transfer log.
package moodle

import (
	"database/sql"
	"errors"
	"time"

	"ehealth-workers/internal/common/config"
	"ehealth-workers/internal/common/database"
)

var (
	ErrCourseNotFound = errors.New("course not found")
	ErrUserNotFound   = errors.New("user not found")
)

// Store implements the host lookups over the Moodle database.
type Store struct {
	db     *sql.DB
	prefix string
	fields config.FieldMapping
	// modules are the activity module names that issue certificates.
	modules []string
	// loc is the site timezone date fields are rendered in.
	loc *time.Location
}

func NewStore(pg *database.PostgresClient, fields config.FieldMapping, certificateModules []string, loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{
		db:      pg.DB,
		prefix:  pg.Prefix,
		fields:  fields,
		modules: certificateModules,
		loc:     loc,
	}
}

func (s *Store) table(name string) string {
	return s.prefix + name
}
