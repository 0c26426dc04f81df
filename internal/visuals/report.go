package visuals

import (
	"fmt"
	"strings"
	"time"

	"flowcast/internal/backlog"
	"flowcast/internal/stats"
)

// ReportOptions controls what GenerateReport renders.
type ReportOptions struct {
	Title          string
	Today          time.Time
	Charts         bool
	ThroughputDays int
}

// GenerateReport renders a Markdown report of the feature forecasts in the snapshot.
func GenerateReport(snap *backlog.Snapshot, opts ReportOptions) string {
	title := opts.Title
	if title == "" {
		title = "Delivery Forecast"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("Generated %s\n\n", opts.Today.Format(time.DateOnly)))

	sb.WriteString("## Features\n\n")
	sb.WriteString("| Feature | Remaining | Slowest Team | 50% | 70% | 85% | 95% |\n")
	sb.WriteString("|---|---|---|---|---|---|---|\n")

	for _, f := range snap.Features {
		fc, ok := f.Forecast()
		if !ok {
			sb.WriteString(fmt.Sprintf("| %s | %d | - | - | - | - | - |\n", featureName(f), f.RemainingWork()))
			continue
		}

		cells := make([]string, 0, 4)
		for _, pt := range fc.Summary() {
			cells = append(cells, opts.Today.AddDate(0, 0, pt.Value).Format(time.DateOnly))
		}
		sb.WriteString(fmt.Sprintf("| %s | %d | %s | %s |\n", featureName(f), f.RemainingWork(), fc.TeamID, strings.Join(cells, " | ")))
	}

	if !opts.Charts {
		return sb.String()
	}

	for _, f := range snap.Features {
		fc, ok := f.Forecast()
		if !ok || fc.RemainingItems == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n### %s\n\n", featureName(f)))
		sb.WriteString(GenerateWhenChart(fc))
		sb.WriteString("\n\n")
		sb.WriteString(GenerateDistributionChart(fc.Distribution(), "Completion Probability", "Day"))
		sb.WriteString("\n")
	}

	sb.WriteString("\n## Team Throughput\n")
	for _, t := range snap.Teams {
		th := t.CurrentThroughput(opts.Today, opts.ThroughputDays)
		chart := GenerateThroughputChart(th.Counts(), stats.TrailingWindow(opts.Today, th.History()))
		if chart == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n### %s\n\n", teamName(t)))
		sb.WriteString(chart)
		sb.WriteString("\n")
	}

	return sb.String()
}

func featureName(f *backlog.Feature) string {
	if f.Name == "" {
		return f.ID
	}
	return fmt.Sprintf("%s (%s)", f.Name, f.ID)
}

func teamName(t backlog.Team) string {
	if t.Name == "" {
		return t.ID
	}
	return t.Name
}
