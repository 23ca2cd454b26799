package sqlite

import (
	"database/sql"

	"github.com/ternarybob/arbor"
)

// Manager owns the shared *sql.DB and the Job Store built on top of it,
// mirroring the teacher's storage.Manager wiring pattern but scoped to the
// single Job entity this domain needs.
type Manager struct {
	db  *sql.DB
	Job *JobStorage
}

func NewManager(logger arbor.ILogger, path string) (*Manager, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Manager{
		db:  db,
		Job: NewJobStorage(db, logger),
	}, nil
}

// DB exposes the shared connection so the Task Broker (goqite) can share it.
func (m *Manager) DB() *sql.DB { return m.db }

func (m *Manager) Close() error {
	return m.db.Close()
}
