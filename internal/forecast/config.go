package forecast

import (
	"fmt"
	"runtime"
	"time"

	"github.com/yourusername/voter-power/internal/config"
	"github.com/yourusername/voter-power/internal/models"
	"github.com/yourusername/voter-power/internal/power"
	"github.com/yourusername/voter-power/internal/probability"
)

// Settings is the engine view of the application configuration with the
// time-to-election tail scaling already applied
type Settings struct {
	RaceSigma            float64
	RaceDegreesOfFreedom float64
	TableSize            int
	TableDomain          float64
	MassTolerance        float64
	Workers              int
	StateWorkers         int
	LinearVoteScaling    bool
	TailScale            float64
	Sources              []models.ErrorSource
	Ratings              models.RatingMargins
	Blending             *power.Blending
}

// FromConfig converts app config to engine settings
func FromConfig(cfg *config.Config, now time.Time) (Settings, error) {
	if cfg == nil {
		return Settings{}, fmt.Errorf("%w: config is required", models.ErrConfiguration)
	}
	scale, err := cfg.Model.TailScale(now)
	if err != nil {
		return Settings{}, fmt.Errorf("%w: %v", models.ErrConfiguration, err)
	}

	s := Settings{
		RaceSigma:            cfg.Model.RaceSigma,
		RaceDegreesOfFreedom: cfg.Model.RaceDegreesOfFreedom / scale,
		TableSize:            cfg.Model.CDFTableSize,
		TableDomain:          cfg.Model.CDFDomain,
		MassTolerance:        cfg.Model.MassTolerance,
		Workers:              cfg.Model.Workers,
		StateWorkers:         cfg.Model.StateWorkers,
		LinearVoteScaling:    cfg.Model.LinearVoteScaling,
		TailScale:            scale,
		Sources:              cfg.Sources(scale),
		Ratings:              cfg.RatingMargins(),
	}
	if s.TableDomain == 0 {
		s.TableDomain = probability.DefaultTableDomain
	}
	if cfg.Blending.Enabled {
		s.Blending = &power.Blending{
			Clip:           cfg.Blending.Clip,
			SafeWeight:     cfg.Blending.Safe,
			OtherWeight:    cfg.Blending.Other,
			ExcludedStates: cfg.Blending.ExcludeStates,
		}
	}
	return s, s.Validate()
}

// Validate validates engine settings
func (s Settings) Validate() error {
	if s.RaceSigma <= 0 {
		return fmt.Errorf("%w: race sigma must be positive", models.ErrConfiguration)
	}
	if s.RaceDegreesOfFreedom <= 0 {
		return fmt.Errorf("%w: race degrees of freedom must be positive", models.ErrConfiguration)
	}
	if s.TableSize < 0 {
		return fmt.Errorf("%w: cdf table size cannot be negative", models.ErrConfiguration)
	}
	if s.Workers < 0 || s.StateWorkers < 0 {
		return fmt.Errorf("%w: worker counts cannot be negative", models.ErrConfiguration)
	}
	return models.ValidateSources(s.Sources)
}

func (s Settings) stateWorkers() int {
	if s.StateWorkers > 0 {
		return s.StateWorkers
	}
	return runtime.GOMAXPROCS(0)
}

func (s Settings) prepareOptions() power.PrepareOptions {
	return power.PrepareOptions{
		Sources:  s.Sources,
		Ratings:  s.Ratings,
		Blending: s.Blending,
	}
}
