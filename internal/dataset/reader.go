// Package dataset reads forecast inputs from CSV and writes results back.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/voter-power/internal/models"
)

var raceValidator = validator.New()

// Race table columns
const (
	ColState            = "state"
	ColDistrict         = "district"
	ColOffice           = "office"
	ColFavored          = "favored"
	ColConfidence       = "confidence"
	ColMargin           = "margin"
	ColFoundationMargin = "found_margin"
	ColVoters           = "cvap"
)

// State table columns
const (
	ColThreshold  = "d_threshold"
	ColTie        = "tie_dem"
	ColBothBad    = "both_bad"
	ColNeitherBad = "neither_bad"
	ColSeats      = "seats"
)

// table is a CSV file indexed by lower-cased header name
type table struct {
	name    string
	columns map[string]int
	rows    [][]string
}

func readTable(r io.Reader, name string) (*table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", models.ErrConfiguration, name)
	}
	t := &table{name: name, columns: make(map[string]int, len(records[0])), rows: records[1:]}
	for i, h := range records[0] {
		t.columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return t, nil
}

func (t *table) require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if _, ok := t.columns[strings.ToLower(c)]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s is missing columns %s", models.ErrConfiguration, t.name, strings.Join(missing, ", "))
	}
	return nil
}

func (t *table) has(col string) bool {
	_, ok := t.columns[strings.ToLower(col)]
	return ok
}

func (t *table) get(row []string, col string) string {
	i, ok := t.columns[strings.ToLower(col)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// rowError names the 1-based file line of data row i
func (t *table) rowError(i int, err error) error {
	return fmt.Errorf("%s line %d: %w", t.name, i+2, err)
}

func parseFloat(s, col string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: invalid %s %q", models.ErrConfiguration, col, s)
	}
	return v, nil
}

func parseBool(s, col string) (bool, error) {
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%w: invalid %s %q", models.ErrConfiguration, col, s)
	}
	return v, nil
}

func open(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return fn(f)
}

// ReadRaces parses the race table. Every non-uniform error source needs a
// column named after it holding the race's sensitivity; uniform sources
// weigh every race by 1.
func ReadRaces(r io.Reader, sources []models.ErrorSource) ([]models.Race, error) {
	t, err := readTable(r, "races")
	if err != nil {
		return nil, err
	}
	required := []string{ColState, ColDistrict, ColOffice, ColFavored, ColConfidence, ColVoters}
	for _, s := range sources {
		if !s.Uniform {
			required = append(required, s.Name)
		}
	}
	if err := t.require(required...); err != nil {
		return nil, err
	}

	races := make([]models.Race, 0, len(t.rows))
	for i, row := range t.rows {
		race, err := parseRace(t, row, sources)
		if err != nil {
			return nil, t.rowError(i, err)
		}
		races = append(races, race)
	}
	return races, nil
}

func parseRace(t *table, row []string, sources []models.ErrorSource) (models.Race, error) {
	chamber, err := models.ParseChamber(strings.ToLower(t.get(row, ColOffice)))
	if err != nil {
		return models.Race{}, err
	}
	confidence, err := models.ParseRating(t.get(row, ColConfidence))
	if err != nil {
		return models.Race{}, err
	}
	race := models.Race{
		State:      strings.ToUpper(t.get(row, ColState)),
		District:   t.get(row, ColDistrict),
		Chamber:    chamber,
		Favored:    models.ParseParty(t.get(row, ColFavored)),
		Confidence: confidence,
	}
	if s := t.get(row, ColVoters); s != "" {
		voters, err := parseFloat(s, ColVoters)
		if err != nil {
			return models.Race{}, err
		}
		race.Voters = int(math.Round(voters))
	}
	if s := t.get(row, ColMargin); s != "" {
		if race.Margin, err = parseFloat(s, ColMargin); err != nil {
			return models.Race{}, err
		}
		race.HasMargin = true
	}
	if s := t.get(row, ColFoundationMargin); s != "" {
		found, err := parseFloat(s, ColFoundationMargin)
		if err != nil {
			return models.Race{}, err
		}
		race.FoundationMargin = &found
	}

	race.ErrorWeights = make([]float64, len(sources))
	for k, src := range sources {
		if src.Uniform {
			race.ErrorWeights[k] = 1
			continue
		}
		s := t.get(row, src.Name)
		if s == "" {
			if race.IsUncontested() {
				continue
			}
			return models.Race{}, fmt.Errorf("%w: missing %s weight", models.ErrConfiguration, src.Name)
		}
		if race.ErrorWeights[k], err = parseFloat(s, src.Name); err != nil {
			return models.Race{}, err
		}
	}
	if err := validateRace(race); err != nil {
		return models.Race{}, err
	}
	return race, nil
}

// validateRace checks the struct tags on models.Race
func validateRace(race models.Race) error {
	err := raceValidator.Struct(race)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", models.ErrConfiguration, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", models.ErrConfiguration, strings.Join(msgs, ", "))
}

// LoadRaces reads the race table from a file
func LoadRaces(path string, sources []models.ErrorSource) ([]models.Race, error) {
	var races []models.Race
	err := open(path, func(r io.Reader) (err error) {
		races, err = ReadRaces(r, sources)
		return err
	})
	return races, err
}

// ReadStates parses the per-chamber threshold table into state configs
// sorted by state. Chambers with a blank threshold are not forecast.
func ReadStates(r io.Reader) ([]models.StateConfig, error) {
	t, err := readTable(r, "states")
	if err != nil {
		return nil, err
	}
	if err := t.require(ColState, ColOffice, ColThreshold); err != nil {
		return nil, err
	}

	byState := make(map[string]*models.StateConfig)
	for i, row := range t.rows {
		if t.get(row, ColThreshold) == "" {
			continue
		}
		if err := addStateRow(t, row, byState); err != nil {
			return nil, t.rowError(i, err)
		}
	}

	states := make([]models.StateConfig, 0, len(byState))
	for _, cfg := range byState {
		states = append(states, *cfg)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].State < states[j].State })
	return states, nil
}

func addStateRow(t *table, row []string, byState map[string]*models.StateConfig) error {
	state := strings.ToUpper(t.get(row, ColState))
	chamber, err := models.ParseChamber(strings.ToLower(t.get(row, ColOffice)))
	if err != nil {
		return err
	}
	threshold, err := parseFloat(t.get(row, ColThreshold), ColThreshold)
	if err != nil {
		return err
	}
	if threshold != math.Trunc(threshold) {
		return fmt.Errorf("%w: %s threshold %v is not a whole number of seats", models.ErrConfiguration, chamber, threshold)
	}
	tie := 0.0
	if s := t.get(row, ColTie); s != "" {
		if tie, err = parseFloat(s, ColTie); err != nil {
			return err
		}
	}
	bothBad, err := parseBool(t.get(row, ColBothBad), ColBothBad)
	if err != nil {
		return err
	}
	neitherBad, err := parseBool(t.get(row, ColNeitherBad), ColNeitherBad)
	if err != nil {
		return err
	}

	cfg, ok := byState[state]
	if !ok {
		cfg = &models.StateConfig{
			State:      state,
			Chambers:   make(map[models.Chamber]models.ChamberConfig, 2),
			BothBad:    bothBad,
			NeitherBad: neitherBad,
		}
		byState[state] = cfg
	} else if cfg.BothBad != bothBad || cfg.NeitherBad != neitherBad {
		return fmt.Errorf("%w: state %s has conflicting outcome flags", models.ErrConfiguration, state)
	}
	if _, dup := cfg.Chambers[chamber]; dup {
		return fmt.Errorf("%w: state %s lists the %s chamber twice", models.ErrConfiguration, state, chamber)
	}
	cfg.Chambers[chamber] = models.ChamberConfig{
		Chamber:        chamber,
		SeatThreshold:  int(threshold),
		TieProbability: tie,
	}
	return nil
}

// LoadStates reads the state table from a file
func LoadStates(path string) ([]models.StateConfig, error) {
	var states []models.StateConfig
	err := open(path, func(r io.Reader) (err error) {
		states, err = ReadStates(r)
		return err
	})
	return states, err
}

// ReadCongressionalSeats parses a state,seats table
func ReadCongressionalSeats(r io.Reader) (map[string]int, error) {
	t, err := readTable(r, "congressional seats")
	if err != nil {
		return nil, err
	}
	if err := t.require(ColState, ColSeats); err != nil {
		return nil, err
	}
	seats := make(map[string]int, len(t.rows))
	for i, row := range t.rows {
		n, err := strconv.Atoi(t.get(row, ColSeats))
		if err != nil || n < 0 {
			return nil, t.rowError(i, fmt.Errorf("%w: invalid seats %q", models.ErrConfiguration, t.get(row, ColSeats)))
		}
		seats[strings.ToUpper(t.get(row, ColState))] = n
	}
	return seats, nil
}

// LoadCongressionalSeats reads the seat table from a file. An empty path
// yields no seats.
func LoadCongressionalSeats(path string) (map[string]int, error) {
	if path == "" {
		return map[string]int{}, nil
	}
	var seats map[string]int
	err := open(path, func(r io.Reader) (err error) {
		seats, err = ReadCongressionalSeats(r)
		return err
	})
	if errors.Is(err, os.ErrNotExist) {
		return map[string]int{}, nil
	}
	return seats, err
}

// ApplySeats sets each state's congressional seat count
func ApplySeats(states []models.StateConfig, seats map[string]int) {
	for i := range states {
		states[i].CongressionalSeats = seats[states[i].State]
	}
}
