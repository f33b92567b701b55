// Package sharedmemory implements SharedMemory (spec §4.14, §3): the
// process-wide, JSON-persisted store of known-good schemas, identity
// columns, error→solution associations, successful translation patterns,
// and the Oracle→SQL Server name mapping. Every distinct record kind is a
// member of a single tagged-union list on disk (spec §9 "shared memory as
// a tagged variant"), which keeps the format extensible without a schema
// migration every time a new record kind is added.
package sharedmemory

// Tag discriminates one on-disk record's kind.
type Tag string

const (
	TagSchema        Tag = "schema"
	TagIdentity      Tag = "identity_column"
	TagErrorSolution Tag = "error_solution"
	TagPattern       Tag = "pattern"
	TagTableMapping  Tag = "table_mapping"
)

// Record is one tagged entry in the on-disk list. Only the fields
// relevant to Tag are populated; the rest are omitted from the JSON
// encoding.
type Record struct {
	Tag Tag `json:"tag"`

	// TagSchema
	SchemaName string `json:"schema_name,omitempty"`

	// TagIdentity
	Table        string `json:"table,omitempty"`
	Column       string `json:"column,omitempty"`
	CurrentValue int64  `json:"current_value,omitempty"`

	// TagErrorSolution
	ErrorSignature string `json:"error_signature,omitempty"`
	FixSummary     string `json:"fix_summary,omitempty"`
	SuccessCount   int    `json:"success_count,omitempty"`

	// TagPattern
	SourceSnippet string `json:"source_snippet,omitempty"`
	TargetSnippet string `json:"target_snippet,omitempty"`
	Quality       string `json:"quality,omitempty"`

	// TagTableMapping
	OracleFQName    string `json:"oracle_fqname,omitempty"`
	SQLServerFQName string `json:"sqlserver_fqname,omitempty"`
}
