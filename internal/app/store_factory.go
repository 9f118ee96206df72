package app

import (
	"fmt"
	"strings"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/store"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/store/postgres"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/store/sqlite"
)

func DatabaseType(dsn string) store.DatabaseType {
	if strings.HasPrefix(dsn, "postgres") {
		return store.DBTypePostgres
	}
	return store.DBTypeSQLite
}

func NewStore(dsn, migrationsDir string) (store.SubcourseStore, error) {
	config := &store.DBConfig{
		DSN:           dsn,
		Type:          DatabaseType(dsn),
		MigrationsDir: migrationsDir,
	}

	switch config.Type {
	case store.DBTypePostgres:
		st, err := postgres.NewPostgresStore(config)
		if err != nil {
			return nil, err
		}
		return st, nil
	case store.DBTypeSQLite:
		st, err := sqlite.NewSQLiteStore(config)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unable to determine database type from DSN: %s", dsn)
	}
}
