package shared

import "errors"

// ErrEstimateNotFound is returned when no estimate row matches the
// requested id. Defined here so the store providers and the store package
// share one sentinel without an import cycle.
var ErrEstimateNotFound = errors.New("estimate not found")

// DbType identifies a supported estimate store backend.
type DbType string

const (
	DbTypePostgres DbType = "postgres"
	DbTypeMemory   DbType = "memory"
	// Add more database types here as you implement them
)

func (t DbType) String() string {
	return string(t)
}

func (t DbType) IsValid() bool {
	switch t {
	case DbTypePostgres, DbTypeMemory:
		return true
	}
	return false
}

// DbProviderConfig is the parsed form of the ESTIMATE_DB_CONFIG JSON
// document.
type DbProviderConfig struct {
	DbType       DbType                 `json:"db_type"`
	ExtraDetails map[string]interface{} `json:"extra_details"`
}
