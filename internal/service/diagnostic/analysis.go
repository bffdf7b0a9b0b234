package diagnostic

import (
	"fmt"
	"math"
	"sort"

	"cpg-insights/internal/domain"
)

// stableBandPct is the absolute percent change under which a trend counts as
// stable rather than moving.
const stableBandPct = 1.0

// maxContributors caps how many segments a breakdown reports.
const maxContributors = 5

// TrendPoint is one period of the trend leg.
type TrendPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// TrendAnalysis summarizes the metric's movement over the window.
type TrendAnalysis struct {
	Direction string       `json:"direction"`
	ChangePct float64      `json:"change_pct"`
	Peak      TrendPoint   `json:"peak"`
	Trough    TrendPoint   `json:"trough"`
	Points    []TrendPoint `json:"points"`
}

// Contributor is one segment's share of the metric total.
type Contributor struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Share float64 `json:"share"`
}

// DimensionBreakdown decomposes the metric along one analysis dimension.
type DimensionBreakdown struct {
	Dimension    string        `json:"dimension"`
	Total        float64       `json:"total"`
	Contributors []Contributor `json:"contributors"`
}

// synthesize combines executed sub-query results into a report.
func synthesize(base domain.SemanticQuery, results []*subResult, diag domain.Diagnostics) *Report {
	metric := base.MetricRequest.PrimaryMetric
	report := &Report{
		Metric: metric,
		Window: base.TimeContext.Window,
	}

	for _, r := range results {
		if r == nil {
			continue
		}
		if r.dimension == "" {
			report.Trend = analyzeTrend(trendPoints(r, metric))
			continue
		}
		report.Breakdowns = append(report.Breakdowns, breakdown(r, metric))
	}

	sort.Slice(report.Breakdowns, func(i, j int) bool {
		return report.Breakdowns[i].Dimension < report.Breakdowns[j].Dimension
	})

	report.Insights = buildInsights(report, diag.Threshold)
	report.Recommendations = buildRecommendations(report)
	return report
}

func trendPoints(r *subResult, metric string) []TrendPoint {
	points := make([]TrendPoint, 0, r.result.RowCount)
	labelIdx := r.result.ColumnIndex(r.timeDim)
	for i := range r.result.Rows {
		label := ""
		if labelIdx >= 0 {
			label = fmt.Sprint(r.result.Rows[i][labelIdx])
		}
		points = append(points, TrendPoint{Label: label, Value: r.result.Float(i, metric)})
	}
	return points
}

// analyzeTrend computes direction, percent change, and extremes from a
// chronologically ordered series. A direction needs at least two periods.
func analyzeTrend(points []TrendPoint) TrendAnalysis {
	out := TrendAnalysis{Direction: "insufficient_data", Points: points}
	if len(points) < 2 {
		if len(points) == 1 {
			out.Peak, out.Trough = points[0], points[0]
		}
		return out
	}

	first, last := points[0].Value, points[len(points)-1].Value
	if first != 0 {
		out.ChangePct = (last - first) / first * 100
	}
	switch {
	case math.Abs(out.ChangePct) < stableBandPct:
		out.Direction = "stable"
	case out.ChangePct > 0:
		out.Direction = "increasing"
	default:
		out.Direction = "decreasing"
	}

	out.Peak, out.Trough = points[0], points[0]
	for _, p := range points[1:] {
		if p.Value > out.Peak.Value {
			out.Peak = p
		}
		if p.Value < out.Trough.Value {
			out.Trough = p
		}
	}
	return out
}

// breakdown turns a contribution ranking result into shares of the total.
func breakdown(r *subResult, metric string) DimensionBreakdown {
	out := DimensionBreakdown{Dimension: r.dimension}
	nameIdx := r.result.ColumnIndex(r.dimension)

	for i := range r.result.Rows {
		name := ""
		if nameIdx >= 0 {
			name = fmt.Sprint(r.result.Rows[i][nameIdx])
		}
		value := r.result.Float(i, metric)
		out.Total += value
		out.Contributors = append(out.Contributors, Contributor{Name: name, Value: value})
	}

	if out.Total != 0 {
		for i := range out.Contributors {
			out.Contributors[i].Share = out.Contributors[i].Value / out.Total
		}
	}
	if len(out.Contributors) > maxContributors {
		out.Contributors = out.Contributors[:maxContributors]
	}
	return out
}

func buildInsights(report *Report, threshold float64) []string {
	var insights []string

	t := report.Trend
	switch t.Direction {
	case "insufficient_data":
		insights = append(insights, fmt.Sprintf(
			"Not enough trend data for %s over %s to call a direction", report.Metric, report.Window))
	case "stable":
		insights = append(insights, fmt.Sprintf(
			"%s held steady over %s (%.1f%% change)", report.Metric, report.Window, t.ChangePct))
	default:
		insights = append(insights, fmt.Sprintf(
			"%s is %s by %.1f%% over %s (peak %s, trough %s)",
			report.Metric, t.Direction, math.Abs(t.ChangePct), report.Window, t.Peak.Label, t.Trough.Label))
	}

	limit := 3
	for _, b := range report.Breakdowns {
		if limit == 0 {
			break
		}
		if len(b.Contributors) == 0 {
			continue
		}
		top := b.Contributors[0]
		if top.Share < threshold {
			continue
		}
		insights = append(insights, fmt.Sprintf(
			"Top %s contributor: %s with %.1f%% of %s", b.Dimension, top.Name, top.Share*100, report.Metric))
		limit--
	}
	return insights
}

func buildRecommendations(report *Report) []string {
	var recs []string
	t := report.Trend

	switch {
	case t.Direction == "insufficient_data":
		recs = append(recs, fmt.Sprintf(
			"Widen the window: %s has too few periods in %s to assess movement", report.Metric, report.Window))
	case t.Direction == "decreasing" && t.ChangePct < -5:
		recs = append(recs, fmt.Sprintf(
			"Immediate action: %s dropped %.1f%%; review the top contributing segments for supply or demand issues",
			report.Metric, math.Abs(t.ChangePct)))
	case t.Direction == "increasing" && t.ChangePct > 10:
		recs = append(recs, fmt.Sprintf(
			"Scale what works: %s grew %.1f%%; increase allocation to the leading segments",
			report.Metric, t.ChangePct))
	default:
		recs = append(recs, fmt.Sprintf(
			"Continue monitoring: %s shows no significant movement over %s", report.Metric, report.Window))
	}

	if dim := mostConcentrated(report.Breakdowns); dim != nil && len(dim.Contributors) > 0 {
		recs = append(recs, fmt.Sprintf(
			"Concentration risk: %s is dominated by %s (%.1f%% share); diversify or protect that segment",
			dim.Dimension, dim.Contributors[0].Name, dim.Contributors[0].Share*100))
	}
	return recs
}

// mostConcentrated returns the breakdown whose top contributor holds the
// largest share, or nil.
func mostConcentrated(breakdowns []DimensionBreakdown) *DimensionBreakdown {
	var best *DimensionBreakdown
	bestShare := 0.0
	for i := range breakdowns {
		b := &breakdowns[i]
		if len(b.Contributors) == 0 {
			continue
		}
		if b.Contributors[0].Share > bestShare {
			bestShare = b.Contributors[0].Share
			best = b
		}
	}
	return best
}
