package store

import (
	"context"
	"sync"

	"github.com/estigate/estigate/internal/db_model"
)

// InMemoryStore is a map-backed EstimateStore used in local development and
// tests. Seed it with PutProject / PutEstimate.
type InMemoryStore struct {
	mu        sync.RWMutex
	estimates map[int64]db_model.Estimate
	projects  map[int64]db_model.Project
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		estimates: make(map[int64]db_model.Estimate),
		projects:  make(map[int64]db_model.Project),
	}
}

func (s *InMemoryStore) PutProject(p db_model.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = p
}

func (s *InMemoryStore) PutEstimate(e db_model.Estimate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.estimates[e.ID] = e
}

// GetEstimateWithProject applies the same left-join semantics as the
// postgres store: the estimate row is returned even when its project_id is
// null or dangling, with the project columns set to nil.
func (s *InMemoryStore) GetEstimateWithProject(ctx context.Context, id int64) (db_model.EstimateWithProject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.estimates[id]
	if !ok {
		return nil, ErrEstimateNotFound
	}

	row := db_model.EstimateWithProject{
		"id":            e.ID,
		"title":         e.Title,
		"status":        e.Status,
		"subtotal":      e.Subtotal,
		"tax_rate":      e.TaxRate,
		"total":         e.Total,
		"created_at":    e.CreatedAt,
		"updated_at":    e.UpdatedAt,
		"project_id":    nil,
		"project_name":  nil,
		"client_name":   nil,
		"contact_email": nil,
	}

	if e.ProjectID.Valid {
		row["project_id"] = e.ProjectID.Int64
		if p, ok := s.projects[e.ProjectID.Int64]; ok {
			row["project_name"] = p.Name
			row["client_name"] = p.ClientName
			row["contact_email"] = p.ContactEmail
		}
	}

	return row, nil
}
