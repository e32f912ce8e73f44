// Package repository persists forecast runs to PostgreSQL.
package repository

import (
	"fmt"

	"github.com/yourusername/voter-power/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Forecast ForecastRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &Repositories{
		Forecast: NewPostgresForecastRepository(db),
	}, nil
}
