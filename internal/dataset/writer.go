package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/yourusername/voter-power/internal/models"
)

// Output columns
const (
	ColBipartisan    = "bipartisan_prob"
	ColVoterPower    = "voter_power"
	ColRedistricting = "redistricting_voter_power"
)

var probabilityHeader = []string{
	ColState, ColBipartisan,
	"lower_prob", "upper_prob",
	"lower_meta_margin", "upper_meta_margin",
}

var powerHeader = []string{
	ColState, ColDistrict, ColOffice, ColFavored, ColConfidence,
	ColMargin, ColVoters, ColVoterPower, ColRedistricting,
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// optional formats a map entry, leaving absent values blank
func optional(m map[models.Chamber]float64, c models.Chamber) string {
	if v, ok := m[c]; ok {
		return formatFloat(v)
	}
	return ""
}

// WriteProbabilities writes one row per state
func WriteProbabilities(w io.Writer, results []models.StateResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(probabilityHeader); err != nil {
		return err
	}
	for _, res := range results {
		record := []string{
			res.State,
			formatFloat(res.BipartisanProbability),
			optional(res.ChamberProbabilities, models.ChamberLower),
			optional(res.ChamberProbabilities, models.ChamberUpper),
			optional(res.MetaMargins, models.ChamberLower),
			optional(res.MetaMargins, models.ChamberUpper),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePowers writes one row per contested race
func WritePowers(w io.Writer, results []models.StateResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(powerHeader); err != nil {
		return err
	}
	for _, res := range results {
		for _, rp := range res.Races {
			record := []string{
				rp.State,
				rp.District,
				string(rp.Chamber),
				string(rp.Favored),
				string(rp.Confidence),
				formatFloat(rp.Margin),
				strconv.Itoa(rp.Voters),
				formatFloat(rp.VoterPower),
				formatFloat(rp.RedistrictingVoterPower),
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV creates path, including missing parent directories, and fills it with write
func SaveCSV(path string, results []models.StateResult, write func(io.Writer, []models.StateResult) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f, results); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
