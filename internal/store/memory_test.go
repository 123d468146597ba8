package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/estigate/estigate/internal/db_model"
)

func TestInMemoryStore_JoinSemantics(t *testing.T) {
	s := NewInMemoryStore()
	now := time.Now()

	s.PutProject(db_model.Project{ID: 1, Name: "Harbor", ClientName: "Harbor Ltd", ContactEmail: "hi@harbor.test"})
	s.PutEstimate(db_model.Estimate{ID: 10, ProjectID: sql.NullInt64{Int64: 1, Valid: true}, Title: "Dock survey", Status: "sent", CreatedAt: now, UpdatedAt: now})
	s.PutEstimate(db_model.Estimate{ID: 11, Title: "Unattached", Status: "draft", CreatedAt: now, UpdatedAt: now})

	row, err := s.GetEstimateWithProject(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, "Harbor", row["project_name"])
	require.Equal(t, "Harbor Ltd", row["client_name"])
	require.Equal(t, "hi@harbor.test", row["contact_email"])
	require.Equal(t, int64(1), row["project_id"])
	require.Equal(t, "Dock survey", row["title"])

	row, err = s.GetEstimateWithProject(context.Background(), 11)
	require.NoError(t, err)
	require.Nil(t, row["project_name"])
	require.Nil(t, row["client_name"])
	require.Nil(t, row["contact_email"])
	require.Nil(t, row["project_id"])
}

func TestInMemoryStore_NotFound(t *testing.T) {
	s := NewInMemoryStore()

	_, err := s.GetEstimateWithProject(context.Background(), 42)
	require.ErrorIs(t, err, ErrEstimateNotFound)
}

func TestInMemoryStore_DanglingProjectReference(t *testing.T) {
	s := NewInMemoryStore()

	s.PutEstimate(db_model.Estimate{ID: 3, ProjectID: sql.NullInt64{Int64: 77, Valid: true}, Title: "Orphan", Status: "draft"})

	row, err := s.GetEstimateWithProject(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, int64(77), row["project_id"], "dangling reference passes through")
	require.Nil(t, row["project_name"], "left join yields null project columns")
}
