package visuals

import (
	"fmt"
	"math"
	"strings"

	"flowcast/internal/forecast"
	"flowcast/internal/simulation"
	"flowcast/internal/stats"
)

// maxPoints is roughly where xychart-beta starts overlapping its axis labels.
const maxPoints = 60

var confidenceNames = map[float64]string{
	50: "Coin Toss",
	70: "Probable",
	85: "Likely",
	95: "Safe",
}

func confidenceLabel(p float64) string {
	if name, ok := confidenceNames[p]; ok {
		return fmt.Sprintf("\"%.0f%% (%s)\"", p, name)
	}
	return fmt.Sprintf("\"%.0f%%\"", p)
}

// GenerateWhenChart creates a Mermaid bar chart of the completion day per confidence level.
func GenerateWhenChart(fc forecast.WhenForecast) string {
	if fc.IsEmpty() {
		return ""
	}

	title := fmt.Sprintf("When (%d items, team %s)", fc.RemainingItems, fc.TeamID)
	return summaryChart(title, "Days", fc.Summary())
}

// GenerateHowManyChart creates a Mermaid bar chart of the items delivered per confidence level.
func GenerateHowManyChart(fc forecast.HowManyForecast) string {
	if fc.IsEmpty() {
		return ""
	}

	title := fmt.Sprintf("How Many (next %d days)", fc.Days)
	return summaryChart(title, "Items Delivered", fc.Summary())
}

func summaryChart(title, yAxisLabel string, points []forecast.Point) string {
	var labels []string
	var values []string
	maxVal := 0

	for _, pt := range points {
		labels = append(labels, confidenceLabel(pt.Probability))
		values = append(values, fmt.Sprintf("%d", pt.Value))
		maxVal = max(maxVal, pt.Value)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"%s\"\n", title))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"%s\" 0 --> %d\n", yAxisLabel, axisMax(maxVal)))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateDistributionChart plots the cumulative probability over the outcomes of a histogram.
func GenerateDistributionChart(dist simulation.Histogram, title, xAxisLabel string) string {
	keys := dist.Keys()
	total := dist.Total()
	if total == 0 {
		return ""
	}

	// Subsample wide distributions but always keep the last outcome.
	step := 1
	if len(keys) > maxPoints {
		step = int(math.Ceil(float64(len(keys)) / maxPoints))
	}

	var labels []string
	var values []string
	cumulative := 0
	for i, k := range keys {
		cumulative += dist[k]
		if i%step == 0 || i == len(keys)-1 {
			labels = append(labels, fmt.Sprintf("%d", k))
			values = append(values, fmt.Sprintf("%.1f", float64(cumulative)*100/float64(total)))
		}
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"%s\"\n", title))
	sb.WriteString(fmt.Sprintf("    x-axis \"%s\" [%s]\n", xAxisLabel, strings.Join(labels, ", ")))
	sb.WriteString("    y-axis \"Probability (%)\" 0 --> 100\n")
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateThroughputChart creates a Mermaid bar chart for delivery cadence over the window buckets.
func GenerateThroughputChart(throughput []int, window stats.AnalysisWindow) string {
	buckets := window.Subdivide()
	if len(throughput) == 0 || len(buckets) == 0 {
		return ""
	}

	var labels []string
	var values []string
	maxVal := 0
	for i, count := range throughput {
		if i >= len(buckets) {
			break
		}
		labels = append(labels, fmt.Sprintf("\"%s\"", window.GenerateLabel(buckets[i])))
		values = append(values, fmt.Sprintf("%d", count))
		maxVal = max(maxVal, count)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Delivery Cadence (Throughput)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Items Delivered\" 0 --> %d\n", axisMax(maxVal)))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// axisMax leaves some room above the tallest bar.
func axisMax(maxVal int) int {
	return maxVal + int(math.Max(1, float64(maxVal)*0.2))
}
