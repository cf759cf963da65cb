package aggregator

import (
	"context"
	"sort"
	"time"

	"github.com/jeffreyouni/life-butler/server/queryengine"
	"github.com/jeffreyouni/life-butler/store"
)

// Bucket is the grouping granularity for time-bucketed aggregations.
type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
)

// CategoryTotal is one category's share of spending.
type CategoryTotal struct {
	Category string
	Total    float64
	Count    int
}

// CalculateSpendingByCategory groups finance expenses by category,
// sorted by descending total.
func (a *Aggregator) CalculateSpendingByCategory(ctx context.Context, filters map[string]string, timeRange *queryengine.TimeRange) ([]CategoryTotal, error) {
	points, err := a.collect(ctx, []store.Domain{store.DomainFinance}, filters, timeRange, true)
	if err != nil {
		return nil, err
	}

	byCategory := map[string]*CategoryTotal{}
	for _, p := range points {
		category := p.Category
		if category == "" {
			category = "uncategorized"
		}
		entry, ok := byCategory[category]
		if !ok {
			entry = &CategoryTotal{Category: category}
			byCategory[category] = entry
		}
		entry.Total += p.Value
		entry.Count++
	}

	totals := make([]CategoryTotal, 0, len(byCategory))
	for _, entry := range byCategory {
		totals = append(totals, *entry)
	}
	sort.Slice(totals, func(i, j int) bool {
		return totals[i].Total > totals[j].Total
	})
	return totals, nil
}

// DailyAverage is one bucket's mean value.
type DailyAverage struct {
	Bucket  string // truncated date key, e.g. "2026-08-12"
	Average float64
	Count   int
}

// CalculateDailyAverages buckets matching records by truncated date and
// averages each bucket. Buckets come back in chronological order.
func (a *Aggregator) CalculateDailyAverages(ctx context.Context, domains []store.Domain, bucket Bucket, filters map[string]string, timeRange *queryengine.TimeRange) ([]DailyAverage, error) {
	points, err := a.collect(ctx, domains, filters, timeRange, true)
	if err != nil {
		return nil, err
	}

	sums := map[string]float64{}
	counts := map[string]int{}
	for _, p := range points {
		key := bucketKey(p.Timestamp, bucket)
		sums[key] += p.Value
		counts[key]++
	}

	averages := make([]DailyAverage, 0, len(sums))
	for key, sum := range sums {
		averages = append(averages, DailyAverage{
			Bucket:  key,
			Average: sum / float64(counts[key]),
			Count:   counts[key],
		})
	}
	sort.Slice(averages, func(i, j int) bool {
		return averages[i].Bucket < averages[j].Bucket
	})
	return averages, nil
}

// bucketKey truncates a timestamp to its bucket's date key.
func bucketKey(t time.Time, bucket Bucket) string {
	t = t.UTC()
	switch bucket {
	case BucketWeek:
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		return t.AddDate(0, 0, -(weekday - 1)).Format("2006-01-02")
	case BucketMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

// Trend compares the first and second halves of the filtered record set.
type Trend struct {
	Direction     string // increasing, decreasing, stable
	ChangePercent float64
	FirstHalfAvg  float64
	SecondHalfAvg float64
	Points        []DataPoint
}

// trendStableBand is the relative change below which a trend counts as
// stable.
const trendStableBand = 0.05

// CalculateTrends splits the chronologically ordered points in half and
// compares the mean of each half.
func (a *Aggregator) CalculateTrends(ctx context.Context, domains []store.Domain, filters map[string]string, timeRange *queryengine.TimeRange) (*Trend, error) {
	points, err := a.collect(ctx, domains, filters, timeRange, true)
	if err != nil {
		return nil, err
	}

	trend := &Trend{Direction: "stable", Points: points}
	if len(points) < 2 {
		return trend, nil
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})

	mid := len(points) / 2
	trend.FirstHalfAvg = mean(points[:mid])
	trend.SecondHalfAvg = mean(points[mid:])

	if trend.FirstHalfAvg != 0 {
		trend.ChangePercent = (trend.SecondHalfAvg - trend.FirstHalfAvg) / trend.FirstHalfAvg * 100
	}

	switch {
	case trend.FirstHalfAvg == 0 && trend.SecondHalfAvg > 0:
		trend.Direction = "increasing"
	case trend.SecondHalfAvg > trend.FirstHalfAvg*(1+trendStableBand):
		trend.Direction = "increasing"
	case trend.SecondHalfAvg < trend.FirstHalfAvg*(1-trendStableBand):
		trend.Direction = "decreasing"
	}
	return trend, nil
}

func mean(points []DataPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range points {
		sum += p.Value
	}
	return sum / float64(len(points))
}
