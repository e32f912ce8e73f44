package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/voter-power/internal/database"
	"github.com/yourusername/voter-power/internal/forecast"
	"github.com/yourusername/voter-power/internal/models"
)

const errScanStateResult = "failed to scan state result: %w"

var racePowerColumns = []string{
	"run_id", "state", "district", "office", "favored", "confidence",
	"margin", "voters", "voter_power", "redistricting_voter_power",
}

// RunSummary is the persisted header of a forecast run
type RunSummary struct {
	ID           uuid.UUID
	Mode         forecast.Mode
	TailScale    float64
	StartedAt    time.Time
	CompletedAt  time.Time
	FailedStates []string
}

// PostgresForecastRepository implements ForecastRepository for PostgreSQL
type PostgresForecastRepository struct {
	db *database.DB
}

// NewPostgresForecastRepository creates a new forecast repository
func NewPostgresForecastRepository(db *database.DB) *PostgresForecastRepository {
	return &PostgresForecastRepository{db: db}
}

// SaveRun stores a run, its state probabilities and its race powers in one transaction
func (r *PostgresForecastRepository) SaveRun(ctx context.Context, run *forecast.Run) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO forecast_runs (id, mode, tail_scale, started_at, completed_at, failed_states)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			run.ID, string(run.Mode), run.TailScale, run.StartedAt, run.CompletedAt, failedStates(run),
		)
		if err != nil {
			return fmt.Errorf("failed to save forecast run: %w", err)
		}

		batch := &pgx.Batch{}
		for _, row := range stateRows(run) {
			batch.Queue(`
				INSERT INTO state_probabilities (
					run_id, state, bipartisan_prob, lower_prob, upper_prob, lower_meta_margin, upper_meta_margin
				) VALUES ($1, $2, $3, $4, $5, $6, $7)`, row...)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to save state probabilities: %w", err)
		}

		rows := racePowerRows(run)
		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"race_powers"}, racePowerColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("failed to save race powers: %w", err)
		}
		return nil
	})
}

// GetLatestRun retrieves the most recent run of a mode
func (r *PostgresForecastRepository) GetLatestRun(ctx context.Context, mode forecast.Mode) (*RunSummary, error) {
	row := r.db.GetPool().QueryRow(ctx, `
		SELECT id, mode, tail_scale, started_at, completed_at, failed_states
		FROM forecast_runs WHERE mode = $1 ORDER BY started_at DESC LIMIT 1`, string(mode))

	s := &RunSummary{}
	var m string
	if err := row.Scan(&s.ID, &m, &s.TailScale, &s.StartedAt, &s.CompletedAt, &s.FailedStates); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	s.Mode = forecast.Mode(m)
	return s, nil
}

// GetStateResults retrieves the state probabilities of a run
func (r *PostgresForecastRepository) GetStateResults(ctx context.Context, runID uuid.UUID) ([]models.StateResult, error) {
	rows, err := r.db.GetPool().Query(ctx, `
		SELECT state, bipartisan_prob, lower_prob, upper_prob, lower_meta_margin, upper_meta_margin
		FROM state_probabilities WHERE run_id = $1 ORDER BY state`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query state results: %w", err)
	}
	defer rows.Close()

	var results []models.StateResult
	for rows.Next() {
		res := models.StateResult{
			ChamberProbabilities: make(map[models.Chamber]float64, 2),
			MetaMargins:          make(map[models.Chamber]float64, 2),
		}
		var lower, upper, lowerMeta, upperMeta *float64
		if err := rows.Scan(&res.State, &res.BipartisanProbability, &lower, &upper, &lowerMeta, &upperMeta); err != nil {
			return nil, fmt.Errorf(errScanStateResult, err)
		}
		setIfPresent(res.ChamberProbabilities, models.ChamberLower, lower)
		setIfPresent(res.ChamberProbabilities, models.ChamberUpper, upper)
		setIfPresent(res.MetaMargins, models.ChamberLower, lowerMeta)
		setIfPresent(res.MetaMargins, models.ChamberUpper, upperMeta)
		results = append(results, res)
	}
	return results, rows.Err()
}

// GetTopRacePowers retrieves the races of a run with the highest voter power
func (r *PostgresForecastRepository) GetTopRacePowers(ctx context.Context, runID uuid.UUID, limit int) ([]models.RacePower, error) {
	rows, err := r.db.GetPool().Query(ctx, `
		SELECT state, district, office, favored, confidence, margin, voters, voter_power, redistricting_voter_power
		FROM race_powers WHERE run_id = $1 ORDER BY voter_power DESC LIMIT $2`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query race powers: %w", err)
	}
	defer rows.Close()

	var powers []models.RacePower
	for rows.Next() {
		var rp models.RacePower
		var office, favored, confidence string
		if err := rows.Scan(&rp.State, &rp.District, &office, &favored, &confidence,
			&rp.Margin, &rp.Voters, &rp.VoterPower, &rp.RedistrictingVoterPower); err != nil {
			return nil, fmt.Errorf("failed to scan race power: %w", err)
		}
		rp.Chamber = models.Chamber(office)
		rp.Favored = models.Party(favored)
		rp.Confidence = models.Rating(confidence)
		rp.HasMargin = true
		powers = append(powers, rp)
	}
	return powers, rows.Err()
}

func failedStates(run *forecast.Run) []string {
	out := make([]string, 0, len(run.Failures))
	for _, f := range run.Failures {
		out = append(out, f.State)
	}
	return out
}

func optional(m map[models.Chamber]float64, c models.Chamber) *float64 {
	if v, ok := m[c]; ok {
		return &v
	}
	return nil
}

func setIfPresent(m map[models.Chamber]float64, c models.Chamber, v *float64) {
	if v != nil {
		m[c] = *v
	}
}

func stateRows(run *forecast.Run) [][]any {
	rows := make([][]any, 0, len(run.Results))
	for _, res := range run.Results {
		rows = append(rows, []any{
			run.ID,
			res.State,
			res.BipartisanProbability,
			optional(res.ChamberProbabilities, models.ChamberLower),
			optional(res.ChamberProbabilities, models.ChamberUpper),
			optional(res.MetaMargins, models.ChamberLower),
			optional(res.MetaMargins, models.ChamberUpper),
		})
	}
	return rows
}

func racePowerRows(run *forecast.Run) [][]any {
	var rows [][]any
	for _, res := range run.Results {
		for _, rp := range res.Races {
			rows = append(rows, []any{
				run.ID,
				rp.State,
				rp.District,
				string(rp.Chamber),
				string(rp.Favored),
				string(rp.Confidence),
				rp.Margin,
				int32(rp.Voters),
				rp.VoterPower,
				rp.RedistrictingVoterPower,
			})
		}
	}
	return rows
}
