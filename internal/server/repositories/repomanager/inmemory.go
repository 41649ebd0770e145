package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/learnquest/internal/dbx"
	"github.com/dmitrijs2005/learnquest/internal/server/repositories/users"
)

// InMemoryRepositoryManager serves one shared in-memory store regardless of
// the handle it is given. It needs no database and has no migrations.
type InMemoryRepositoryManager struct {
	users *users.MemoryRepository
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *InMemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return m.users
}

func NewInMemoryRepositoryManager() RepositoryManager {
	return &InMemoryRepositoryManager{users: users.NewMemoryRepository()}
}
