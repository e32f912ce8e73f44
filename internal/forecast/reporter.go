package forecast

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yourusername/voter-power/internal/models"
)

// TopRaces returns up to n races across the run ordered by voter power
func TopRaces(run *Run, n int) []models.RacePower {
	var all []models.RacePower
	for _, res := range run.Results {
		all = append(all, res.Races...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].VoterPower > all[j].VoterPower })
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// GenerateConsoleReport formats a run for terminal output
func GenerateConsoleReport(run *Run, topN int) string {
	var builder strings.Builder
	builder.WriteString("Forecast Report\n")
	builder.WriteString("===============\n")
	builder.WriteString(fmt.Sprintf("Run: %s (%s)\n", run.ID, run.Mode))
	builder.WriteString(fmt.Sprintf("Tail Scale: %.3f\n", run.TailScale))
	builder.WriteString(fmt.Sprintf("Duration: %s\n", run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond)))
	builder.WriteString(fmt.Sprintf("States: %d computed, %d failed\n\n", len(run.Results), len(run.Failures)))

	builder.WriteString(fmt.Sprintf("%-6s %10s %10s %10s\n", "State", "Good", "Lower", "Upper"))
	for _, res := range run.Results {
		builder.WriteString(fmt.Sprintf("%-6s %9.2f%% %10s %10s\n",
			res.State,
			res.BipartisanProbability*100,
			percent(res.ChamberProbabilities, models.ChamberLower),
			percent(res.ChamberProbabilities, models.ChamberUpper),
		))
	}

	for _, f := range run.Failures {
		builder.WriteString(fmt.Sprintf("FAILED %s: %v\n", f.State, f.Err))
	}

	if run.Mode == ModePower && topN > 0 {
		builder.WriteString("\nHighest Voter Power\n")
		for _, rp := range TopRaces(run, topN) {
			builder.WriteString(fmt.Sprintf("%-3s %-6s %-8s %.3e\n", rp.State, string(rp.Chamber), rp.District, rp.VoterPower))
		}
	}
	return builder.String()
}

func percent(m map[models.Chamber]float64, c models.Chamber) string {
	v, ok := m[c]
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}
