// Package fkmanager implements the two-phase foreign-key strategy (spec
// §4.5): stripping FK constraint clauses out of table DDL during
// translation, storing them, and re-emitting them as ALTER TABLE statements
// once every selected table exists.
package fkmanager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/oramigrate/oracle-to-mssql/pkg/model"
	"github.com/oramigrate/oracle-to-mssql/pkg/shared/logging"
	"github.com/oramigrate/oracle-to-mssql/pkg/targetdb"
	"go.uber.org/zap"
)

// identPattern matches an identifier that may be bracket-quoted:
// T, [T].
const identPattern = `(?:\[[^\]]+\]|[A-Za-z_][A-Za-z0-9_$#]*)`

// refPattern matches `<ref>` in all forms named by spec §8:
// T, [T], S.T, [S].[T], [S].T, S.[T].
var refPattern = regexp.MustCompile(`(?i)^(?:(` + identPattern + `)\.)?(` + identPattern + `)$`)

// constraintPattern matches one CONSTRAINT ... FOREIGN KEY (...) REFERENCES
// ... clause inside a CREATE/ALTER TABLE statement, case-insensitively,
// across newlines.
var constraintPattern = regexp.MustCompile(`(?is)CONSTRAINT\s+(` + identPattern + `)\s+FOREIGN\s+KEY\s*\(([^)]+)\)\s*REFERENCES\s+(` + identPattern + `(?:\.` + identPattern + `)?)\s*\(([^)]+)\)(\s+ON\s+DELETE\s+(CASCADE|SET\s+NULL|SET\s+DEFAULT|NO\s+ACTION|RESTRICT))?(\s+ON\s+UPDATE\s+(CASCADE|SET\s+NULL|SET\s+DEFAULT|NO\s+ACTION|RESTRICT))?`)

func unquote(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
}

func splitColumns(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, unquote(p))
	}
	return out
}

// parseRef splits a possibly schema-qualified, possibly bracket-quoted
// reference into (schema, table); schema is "" when unqualified.
func parseRef(ref string, defaultSchema string) (schema, table string, err error) {
	m := refPattern.FindStringSubmatch(strings.TrimSpace(ref))
	if m == nil {
		return "", "", fmt.Errorf("unrecognized table reference: %q", ref)
	}
	if m[1] != "" {
		return unquote(m[1]), unquote(m[2]), nil
	}
	return defaultSchema, unquote(m[2]), nil
}

// Manager owns the FK store for the run's lifetime (spec §3 Ownership); it
// is discarded after scripts are emitted.
type Manager struct {
	defaultSchema string
	logger        *zap.Logger

	fks map[string][]model.ForeignKeyDef // keyed by "schema.table"
}

// New constructs an FK Manager for one run.
func New(defaultSchema string, logger *zap.Logger) *Manager {
	return &Manager{
		defaultSchema: defaultSchema,
		logger:        logger,
		fks:           make(map[string][]model.ForeignKeyDef),
	}
}

// StripResult is the table DDL with FK clauses removed, plus the
// ForeignKeyDefs that were extracted.
type StripResult struct {
	DDL             string
	ForeignKeys     []model.ForeignKeyDef
}

// Strip removes every CONSTRAINT ... FOREIGN KEY (...) REFERENCES ... clause
// from a table's DDL, stores the resulting ForeignKeyDefs keyed by
// "schema.table", and returns the cleaned DDL (spec §4.5).
func (m *Manager) Strip(tableSchema, tableName, ddl string) StripResult {
	var fks []model.ForeignKeyDef

	cleaned := constraintPattern.ReplaceAllStringFunc(ddl, func(match string) string {
		sub := constraintPattern.FindStringSubmatch(match)
		constraintName := unquote(sub[1])
		srcCols := splitColumns(sub[2])
		refSchema, refTable, err := parseRef(sub[3], m.defaultSchema)
		if err != nil {
			m.logger.Warn("failed to parse FK reference, leaving constraint in place",
				zap.String("constraint", constraintName), zap.Error(err))
			return match
		}
		refCols := splitColumns(sub[4])
		onDelete := strings.ToUpper(strings.TrimSpace(sub[6]))
		onUpdate := strings.ToUpper(strings.TrimSpace(sub[8]))

		fk := model.ForeignKeyDef{
			ConstraintName:    constraintName,
			SourceSchema:      tableSchema,
			SourceTable:       tableName,
			SourceColumns:     srcCols,
			ReferencedSchema:  refSchema,
			ReferencedTable:   refTable,
			ReferencedColumns: refCols,
			OnDelete:          onDelete,
			OnUpdate:          onUpdate,
		}
		fks = append(fks, fk)
		return "" // strip the clause; a trailing/leading comma cleanup pass follows
	})

	cleaned = cleanupDanglingCommas(cleaned)

	key := tableSchema + "." + tableName
	m.fks[key] = append(m.fks[key], fks...)

	return StripResult{DDL: cleaned, ForeignKeys: fks}
}

// cleanupDanglingCommas collapses ",\s*)" and ",\s*," left behind once a
// constraint clause is removed from a column list.
func cleanupDanglingCommas(ddl string) string {
	ddl = regexp.MustCompile(`,(\s*,)+`).ReplaceAllString(ddl, ",")
	ddl = regexp.MustCompile(`,\s*\)`).ReplaceAllString(ddl, "\n)")
	ddl = regexp.MustCompile(`\(\s*,`).ReplaceAllString(ddl, "(")
	return ddl
}

// All returns every ForeignKeyDef stored across all tables in this run.
func (m *Manager) All() []model.ForeignKeyDef {
	var out []model.ForeignKeyDef
	for _, fks := range m.fks {
		out = append(out, fks...)
	}
	return out
}

// FKResult is the outcome of applying one FK.
type FKResult struct {
	FK      model.ForeignKeyDef
	Success bool
	Error   string
}

// Apply emits `ALTER TABLE ... ADD CONSTRAINT ...` statements ordered so
// that (a) FKs referencing tables with no outgoing FKs go first, (b)
// general FKs next, (c) self-referencing FKs last (§4.5). It persists the
// full script to disk for audit before execution, then executes each
// statement independently — one failure never aborts the rest.
func (m *Manager) Apply(ctx context.Context, driver targetdb.Driver, scriptPath string) ([]FKResult, error) {
	ordered := m.orderedFKs()

	script := renderScript(ordered)
	if scriptPath != "" {
		if err := os.MkdirAll(filepath.Dir(scriptPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for FK script: %w", err)
		}
		if err := os.WriteFile(scriptPath, []byte(script), 0o644); err != nil {
			return nil, fmt.Errorf("failed to persist FK script: %w", err)
		}
	}

	results := make([]FKResult, 0, len(ordered))
	for _, fk := range ordered {
		if err := fk.Validate(); err != nil {
			results = append(results, FKResult{FK: fk, Success: false, Error: err.Error()})
			continue
		}
		stmt := alterStatement(fk)
		if err := driver.Execute(ctx, stmt); err != nil {
			m.logger.Warn("foreign key application failed",
				logging.NewFields().Component("fkmanager").Operation("apply").Resource("fk", fk.ConstraintName).Error(err).KV()...)
			results = append(results, FKResult{FK: fk, Success: false, Error: err.Error()})
			continue
		}
		results = append(results, FKResult{FK: fk, Success: true})
	}
	return results, nil
}

// outgoingFKCount counts, per referenced table, how many FKs that table
// itself has as a source (used to rank "no outgoing FKs" first).
func (m *Manager) outgoingFKCount() map[string]int {
	counts := make(map[string]int)
	for key, fks := range m.fks {
		counts[key] += len(fks)
	}
	return counts
}

func (m *Manager) orderedFKs() []model.ForeignKeyDef {
	all := m.All()
	outgoing := m.outgoingFKCount()

	noOutgoing := make([]model.ForeignKeyDef, 0)
	general := make([]model.ForeignKeyDef, 0)
	selfRef := make([]model.ForeignKeyDef, 0)

	for _, fk := range all {
		switch {
		case fk.IsSelfReferencing():
			selfRef = append(selfRef, fk)
		case outgoing[fk.ReferencedFQTable()] == 0:
			noOutgoing = append(noOutgoing, fk)
		default:
			general = append(general, fk)
		}
	}

	ordered := make([]model.ForeignKeyDef, 0, len(all))
	ordered = append(ordered, noOutgoing...)
	ordered = append(ordered, general...)
	ordered = append(ordered, selfRef...)
	return ordered
}

func alterStatement(fk model.ForeignKeyDef) string {
	stmt := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		fk.SourceFQTable(), fk.ConstraintName, strings.Join(fk.SourceColumns, ", "),
		fk.ReferencedFQTable(), strings.Join(fk.ReferencedColumns, ", "))
	if fk.OnDelete != "" {
		stmt += " ON DELETE " + fk.OnDelete
	}
	if fk.OnUpdate != "" {
		stmt += " ON UPDATE " + fk.OnUpdate
	}
	return stmt + ";"
}

func renderScript(fks []model.ForeignKeyDef) string {
	var b strings.Builder
	b.WriteString("-- Foreign key application script (audit copy)\n")
	for _, fk := range fks {
		b.WriteString(alterStatement(fk))
		b.WriteString("\nGO\n")
	}
	return b.String()
}
