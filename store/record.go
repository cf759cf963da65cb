package store

import (
	"context"
	"time"
)

// Domain identifies which life domain a record belongs to.
type Domain string

const (
	DomainFinance  Domain = "finance"
	DomainMeals    Domain = "meals"
	DomainEvents   Domain = "events"
	DomainJournals Domain = "journals"
	DomainHealth   Domain = "health"
)

// AllDomains lists every domain with stored records.
var AllDomains = []Domain{
	DomainFinance,
	DomainMeals,
	DomainEvents,
	DomainJournals,
	DomainHealth,
}

// Record is one domain record (a finance entry, a meal, a journal entry, ...).
// Data holds the structured fields of the record as flat key/value pairs,
// e.g. {"type": "expense", "amount": "35.50", "category": "takeout"}.
type Record struct {
	ID        string
	Domain    Domain
	Timestamp time.Time
	Data      map[string]string
}

// FindRecord is the find condition for records.
type FindRecord struct {
	Domain *Domain
	Start  *time.Time
	End    *time.Time
}

// CreateRecord creates a new record.
func (s *Store) CreateRecord(ctx context.Context, create *Record) (*Record, error) {
	return s.driver.CreateRecord(ctx, create)
}

// ListRecords lists records matching the find condition.
func (s *Store) ListRecords(ctx context.Context, find *FindRecord) ([]*Record, error) {
	return s.driver.ListRecords(ctx, find)
}

// ListDomainRecords lists records for one domain within an optional time range.
func (s *Store) ListDomainRecords(ctx context.Context, domain Domain, start, end *time.Time) ([]*Record, error) {
	return s.driver.ListRecords(ctx, &FindRecord{
		Domain: &domain,
		Start:  start,
		End:    end,
	})
}

// DeleteRecord deletes a record and cascades to its embeddings.
func (s *Store) DeleteRecord(ctx context.Context, domain Domain, id string) error {
	if err := s.driver.DeleteRecord(ctx, domain, id); err != nil {
		return err
	}
	return s.driver.DeleteEmbeddingsByObject(ctx, string(domain), id)
}
