package persistence

import (
	"github.com/taskflow-io/taskflow/internal/lifecycle/domain"
	"github.com/taskflow-io/taskflow/internal/shared/infrastructure/database"
)

// NewRepository returns the lifecycle repository matching the connection's
// driver.
func NewRepository(conn database.Connection) domain.Repository {
	if conn.Driver() == database.DriverPostgres {
		return NewPostgresRepository(conn)
	}
	return NewSQLiteRepository(conn)
}
