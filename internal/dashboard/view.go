package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/seo-dashboard/internal/seo"
)

// TimestampLayout formats snapshot times on the dashboard.
const TimestampLayout = "02-01-2006 15:04"

// NoAnalysisText replaces a missing analysis.
const NoAnalysisText = "No analysis text found."

// KPI is one headline metric card.
type KPI struct {
	Key        seo.MetricKey  `json:"key"`
	Label      string         `json:"label"`
	Value      string         `json:"value"`
	Delta      *int64         `json:"delta,omitempty"`
	DeltaColor seo.DeltaColor `json:"delta_color"`
	Help       string         `json:"help,omitempty"`
}

// TaskCard is a pending task prepared for display.
type TaskCard struct {
	seo.Task
	Marker string `json:"marker"`
	Title  string `json:"title"`
}

// Point is one chart sample.
type Point struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
}

// Series is one chart line, oldest point first.
type Series struct {
	Key    seo.MetricKey `json:"key"`
	Label  string        `json:"label"`
	Points []Point       `json:"points"`
}

// Analysis is the latest free-text assessment.
type Analysis struct {
	Text      string `json:"text"`
	Found     bool   `json:"found"`
	UpdatedAt string `json:"updated_at"`
}

// View is everything one render cycle shows.
type View struct {
	Empty     bool              `json:"empty"`
	Latest    *seo.Snapshot     `json:"latest,omitempty"`
	Snapshots []seo.Snapshot    `json:"snapshots"`
	Deltas    seo.Deltas        `json:"deltas"`
	KPIs      []KPI             `json:"kpis"`
	Tasks     []TaskCard        `json:"tasks"`
	Analysis  Analysis          `json:"analysis"`
	Traffic   []Series          `json:"traffic"`
	Technical []Series          `json:"technical"`
	Pages     []seo.PageHistory `json:"pages"`
}

// BuildView assembles a View from already fetched data. snapshots must be
// newest first; tasks must be pending only.
func BuildView(snapshots []seo.Snapshot, tasks []seo.Task, pages []seo.PagePerformance, policy seo.ThresholdPolicy) View {
	v := View{
		Empty:     len(snapshots) == 0,
		Snapshots: snapshots,
		Deltas:    seo.ComputeDeltas(snapshots),
		Tasks:     taskCards(tasks),
		Pages:     seo.GroupByPage(pages),
	}
	if v.Snapshots == nil {
		v.Snapshots = []seo.Snapshot{}
	}
	if v.Empty {
		return v
	}

	latest := snapshots[0]
	v.Latest = &latest
	v.KPIs = kpis(latest, v.Deltas, policy)
	v.Analysis = analysis(latest)
	v.Traffic = []Series{
		series(snapshots, seo.MetricClicks, "Clicks"),
		series(snapshots, seo.MetricImpressions, "Impressions"),
	}
	v.Technical = []Series{
		series(snapshots, seo.MetricMobileScore, "Mobile score"),
		series(snapshots, seo.MetricOverallScore, "Overall score"),
	}
	return v
}

func kpis(latest seo.Snapshot, deltas seo.Deltas, policy seo.ThresholdPolicy) []KPI {
	score := deltas.Get(seo.MetricOverallScore)
	clicks := deltas.Get(seo.MetricClicks)

	lcpHelp := ""
	if limit, ok := policy.Limit(seo.MetricLCP); ok {
		lcpHelp = fmt.Sprintf("Target: <%gs", limit)
	}

	return []KPI{
		{
			Key:        seo.MetricOverallScore,
			Label:      "Overall SEO score",
			Value:      metricValue(latest.OverallScore, "%d/100"),
			Delta:      &score,
			DeltaColor: seo.DeltaNormal,
		},
		{
			Key:        seo.MetricClicks,
			Label:      "Organic traffic (30 days)",
			Value:      metricValue(latest.GSCClicks, "%d clicks"),
			Delta:      &clicks,
			DeltaColor: seo.DeltaNormal,
		},
		{
			Key:        seo.MetricMobileScore,
			Label:      "PageSpeed (mobile)",
			Value:      metricValue(latest.PSIMobileScore, "%d/100"),
			DeltaColor: seo.DeltaNormal,
			Help:       "Target: >90",
		},
		{
			Key:        seo.MetricLCP,
			Label:      "LCP (load time)",
			Value:      metricValue(latest.PSILCP, "%s s"),
			DeltaColor: policy.Classify(seo.MetricLCP, latest.PSILCP),
			Help:       lcpHelp,
		},
	}
}

// metricValue formats m for a KPI card. %d takes the truncated integer, %s
// the exact value. A missing metric renders as "-".
func metricValue(m seo.Metric, format string) string {
	if !m.Valid {
		return m.String()
	}
	if strings.Contains(format, "%d") {
		return fmt.Sprintf(format, m.Int())
	}
	return fmt.Sprintf(format, m.String())
}

func taskCards(tasks []seo.Task) []TaskCard {
	cards := make([]TaskCard, 0, len(tasks))
	for _, t := range tasks {
		title := t.Name
		if t.Type != "" {
			title = fmt.Sprintf("%s (%s)", t.Name, t.Type)
		}
		cards = append(cards, TaskCard{Task: t, Marker: Marker(t.Priority), Title: title})
	}
	return cards
}

// Marker maps a priority tier to its card color.
func Marker(p seo.Priority) string {
	switch p {
	case seo.PriorityHigh:
		return "red"
	case seo.PriorityMedium:
		return "yellow"
	default:
		return "blue"
	}
}

func analysis(latest seo.Snapshot) Analysis {
	a := Analysis{Text: NoAnalysisText}
	if latest.Analysis != "" {
		a.Text = latest.Analysis
		a.Found = true
	}
	if !latest.CreatedAt.IsZero() {
		a.UpdatedAt = latest.CreatedAt.Format(TimestampLayout)
	}
	return a
}

func series(snapshots []seo.Snapshot, key seo.MetricKey, label string) Series {
	points := make([]Point, 0, len(snapshots))
	for i := len(snapshots) - 1; i >= 0; i-- {
		points = append(points, Point{At: snapshots[i].CreatedAt, Value: snapshots[i].Metric(key).Float()})
	}
	return Series{Key: key, Label: label, Points: points}
}
