// Package engine is the single entry point the presentation layer needs:
// plan, route and process one query end to end.
package engine

import (
	"context"
	"time"

	"github.com/jeffreyouni/life-butler/plugin/ai/router"
	"github.com/jeffreyouni/life-butler/server/internal/observability"
	"github.com/jeffreyouni/life-butler/server/processor"
	"github.com/jeffreyouni/life-butler/server/queryengine"
	"github.com/jeffreyouni/life-butler/store"
)

// Engine wires the planner, classifier and processor together.
type Engine struct {
	planner   queryengine.Planner
	router    *router.Service
	processor *processor.Processor
}

// New creates an Engine.
func New(planner queryengine.Planner, routerService *router.Service, proc *processor.Processor) *Engine {
	return &Engine{
		planner:   planner,
		router:    routerService,
		processor: proc,
	}
}

// RouteAndProcess answers one query. It never fails: every error path
// degrades inside the processor.
func (e *Engine) RouteAndProcess(ctx context.Context, query string) processor.ProcessingResult {
	rc := observability.NewRequestContext(nil)
	ctx = observability.WithRequestContext(ctx, rc)

	qc, err := e.planner.Plan(ctx, query)
	if err != nil {
		rc.Logger.Warn("query planning failed, routing without context", "error", err)
		qc = &queryengine.QueryContext{}
	}

	routing, err := e.router.Route(ctx, query, qc)
	if err != nil {
		rc.Logger.Warn("routing failed, defaulting to retrieval", "error", err)
		routing = &router.Routing{
			Path:      router.PathRetrieval,
			Retrieval: &router.RetrievalSpecs{ContextNeeds: router.ContextModerate, GenerationType: router.GenFactual},
		}
	}

	result := e.processor.Process(ctx, query, routing)

	rc.Logger.Info("query processed",
		observability.LogFieldQueryLen, len(query),
		observability.LogFieldPath, string(routing.Path),
		"confidence", result.ResultMeta().Confidence,
		observability.LogFieldDuration, rc.ElapsedMs())
	return result
}

// ResponseText renders a result for display.
func (e *Engine) ResponseText(result processor.ProcessingResult) string {
	return processor.ResponseText(result)
}

// AvailabilityChecker reports the fraction of requested domains that have
// at least one record. The router penalizes aggregation when the data it
// would aggregate over is missing.
type AvailabilityChecker struct {
	Records interface {
		ListDomainRecords(ctx context.Context, domain store.Domain, start, end *time.Time) ([]*store.Record, error)
	}
}

// Availability implements router.DataChecker.
func (c *AvailabilityChecker) Availability(ctx context.Context, domains []string) float64 {
	if len(domains) == 0 {
		return 1.0
	}
	available := 0
	for _, name := range domains {
		records, err := c.Records.ListDomainRecords(ctx, store.Domain(name), nil, nil)
		if err == nil && len(records) > 0 {
			available++
		}
	}
	return float64(available) / float64(len(domains))
}

var _ router.DataChecker = (*AvailabilityChecker)(nil)
