// Package aggregator computes sums, averages, counts and trends over
// heterogeneous domain records.
package aggregator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jeffreyouni/life-butler/server/queryengine"
	"github.com/jeffreyouni/life-butler/store"
)

// RecordSource is the read-only domain data access the aggregator consumes.
type RecordSource interface {
	ListRecords(ctx context.Context, find *store.FindRecord) ([]*store.Record, error)
}

// DataPoint is one contributing record in an aggregation. Constructed
// fresh per call, never persisted.
type DataPoint struct {
	ID          string
	Value       float64
	Description string
	Timestamp   time.Time
	Category    string
	Metadata    map[string]string
}

// Result is one computed aggregation with its contributing points.
type Result struct {
	Operation string // sum, average, count
	Value     float64
	Points    []DataPoint
}

// Aggregator folds filtered domain records into scalars.
type Aggregator struct {
	records RecordSource
}

// New creates an Aggregator.
func New(records RecordSource) *Aggregator {
	return &Aggregator{records: records}
}

// CalculateSum sums the numeric value of every matching record.
// Empty domains default to finance.
func (a *Aggregator) CalculateSum(ctx context.Context, domains []store.Domain, filters map[string]string, timeRange *queryengine.TimeRange) (*Result, error) {
	points, err := a.collect(ctx, domains, filters, timeRange, true)
	if err != nil {
		return nil, err
	}
	total := 0.0
	for _, p := range points {
		total += p.Value
	}
	return &Result{Operation: "sum", Value: total, Points: points}, nil
}

// CalculateAverage is the sum divided by the number of contributing
// points; an empty filtered set averages to 0.
func (a *Aggregator) CalculateAverage(ctx context.Context, domains []store.Domain, filters map[string]string, timeRange *queryengine.TimeRange) (*Result, error) {
	sum, err := a.CalculateSum(ctx, domains, filters, timeRange)
	if err != nil {
		return nil, err
	}
	result := &Result{Operation: "average", Points: sum.Points}
	if len(sum.Points) > 0 {
		result.Value = sum.Value / float64(len(sum.Points))
	}
	return result, nil
}

// CalculateCount counts matching records. It can span multiple domains at
// once, unioning their data points.
func (a *Aggregator) CalculateCount(ctx context.Context, domains []store.Domain, filters map[string]string, timeRange *queryengine.TimeRange) (*Result, error) {
	points, err := a.collect(ctx, domains, filters, timeRange, false)
	if err != nil {
		return nil, err
	}
	return &Result{Operation: "count", Value: float64(len(points)), Points: points}, nil
}

// collect pulls and filters records, converting each into a DataPoint.
// numericOnly drops records without a numeric value (sum/average);
// count keeps every match.
func (a *Aggregator) collect(ctx context.Context, domains []store.Domain, filters map[string]string, timeRange *queryengine.TimeRange, numericOnly bool) ([]DataPoint, error) {
	if len(domains) == 0 {
		domains = []store.Domain{store.DomainFinance}
	}

	find := &store.FindRecord{}
	if timeRange != nil {
		find.Start, find.End = &timeRange.Start, &timeRange.End
	}

	points := []DataPoint{}
	for _, domain := range domains {
		domain := domain
		scoped := *find
		scoped.Domain = &domain
		records, err := a.records.ListRecords(ctx, &scoped)
		if err != nil {
			return nil, err
		}
		for _, record := range records {
			if !matchesFilters(record, filters) {
				continue
			}
			value, ok := recordValue(record)
			if numericOnly && !ok {
				continue
			}
			points = append(points, toDataPoint(record, value))
		}
	}
	return points, nil
}

// matchesFilters applies equality filters against the record's data.
func matchesFilters(record *store.Record, filters map[string]string) bool {
	for key, want := range filters {
		if record.Data[key] != want {
			return false
		}
	}
	return true
}

// recordValue extracts the numeric value a domain record contributes.
func recordValue(record *store.Record) (float64, bool) {
	var field string
	switch record.Domain {
	case store.DomainFinance:
		field = "amount"
	case store.DomainMeals:
		field = "calories"
	case store.DomainHealth:
		field = "value"
	default:
		return 0, false
	}
	raw, ok := record.Data[field]
	if !ok {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func toDataPoint(record *store.Record, value float64) DataPoint {
	category := record.Data["category"]
	description := record.Data["notes"]
	if description == "" {
		description = record.Data["name"]
	}
	if description == "" {
		description = record.Data["title"]
	}
	if description == "" && category != "" {
		description = category
	}
	if description == "" {
		description = string(record.Domain)
	}
	return DataPoint{
		ID:          record.ID,
		Value:       value,
		Description: fmt.Sprintf("%s (%s)", description, record.Timestamp.Format("2006-01-02")),
		Timestamp:   record.Timestamp,
		Category:    category,
		Metadata:    record.Data,
	}
}
