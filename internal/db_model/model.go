package db_model

import (
	"database/sql"
	"time"
)

// Project represents a client project an estimate may belong to.
type Project struct {
	ID           int64  `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	ClientName   string `db:"client_name" json:"client_name"`
	ContactEmail string `db:"contact_email" json:"contact_email"`
}

// Estimate represents a single estimate row. ProjectID is nullable: an
// estimate may exist before it is attached to a project.
type Estimate struct {
	ID        int64         `db:"id" json:"id"`
	ProjectID sql.NullInt64 `db:"project_id" json:"project_id"`
	Title     string        `db:"title" json:"title"`
	Status    string        `db:"status" json:"status"`
	Subtotal  float64       `db:"subtotal" json:"subtotal"`
	TaxRate   float64       `db:"tax_rate" json:"tax_rate"`
	Total     float64       `db:"total" json:"total"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// EstimateWithProject is an estimate row joined with its project's
// identifying fields, keyed by column name. The estimate's own columns are
// passed through as the store returns them; project_name, client_name and
// contact_email are nil when the estimate has no matching project.
type EstimateWithProject map[string]interface{}

// Schema is the SQL schema for the projects and estimates tables
const Schema = `
CREATE TABLE IF NOT EXISTS projects (
    id SERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    client_name TEXT NOT NULL,
    contact_email TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS estimates (
    id SERIAL PRIMARY KEY,
    project_id INTEGER REFERENCES projects(id) ON DELETE SET NULL,
    title TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft',
    subtotal NUMERIC NOT NULL DEFAULT 0,
    tax_rate NUMERIC NOT NULL DEFAULT 0,
    total NUMERIC NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT now(),
    updated_at TIMESTAMP NOT NULL DEFAULT now()
);
`
