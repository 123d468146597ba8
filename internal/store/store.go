package store

import (
	"context"

	"github.com/estigate/estigate/internal/db_model"
	"github.com/estigate/estigate/internal/store/shared"
)

// ErrEstimateNotFound is returned when no estimate row matches the
// requested id.
var ErrEstimateNotFound = shared.ErrEstimateNotFound

// EstimateStore is the read side of the estimates database. The join is
// read-only; there is no mutation path through this interface.
type EstimateStore interface {
	// GetEstimateWithProject returns the estimate row identified by id,
	// left-joined with its project's name, client_name and contact_email.
	// Returns ErrEstimateNotFound when no estimate matches.
	GetEstimateWithProject(ctx context.Context, id int64) (db_model.EstimateWithProject, error)
}
