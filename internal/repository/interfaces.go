package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/voter-power/internal/forecast"
	"github.com/yourusername/voter-power/internal/models"
)

// ForecastRepository defines the interface for forecast result persistence
type ForecastRepository interface {
	SaveRun(ctx context.Context, run *forecast.Run) error
	GetLatestRun(ctx context.Context, mode forecast.Mode) (*RunSummary, error)
	GetStateResults(ctx context.Context, runID uuid.UUID) ([]models.StateResult, error)
	GetTopRacePowers(ctx context.Context, runID uuid.UUID, limit int) ([]models.RacePower, error)
}
