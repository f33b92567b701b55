// Package discovery implements Discovery (spec §4.2): it enumerates every
// object eligible for migration in a schema and groups the result into a
// single document, serving both as the Orchestrator's in-memory work feed
// and as a serialized JSON artifact for the external UI.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/oramigrate/oracle-to-mssql/pkg/model"
	"github.com/oramigrate/oracle-to-mssql/pkg/source"
)

// Entry is one discovered object as it appears in the serialized
// discovery_result.json artifact.
type Entry struct {
	Schema   string `json:"schema"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	RowCount int64  `json:"row_count,omitempty"`
	ByteSize int64  `json:"byte_size,omitempty"`
	Valid    bool   `json:"valid"`
}

// Document is the single discovery document, grouped by kind (spec §4.2).
type Document struct {
	Tables     []Entry `json:"tables"`
	Views      []Entry `json:"views"`
	Sequences  []Entry `json:"sequences"`
	Procedures []Entry `json:"procedures"`
	Functions  []Entry `json:"functions"`
	Triggers   []Entry `json:"triggers"`
	Packages   []Entry `json:"packages"`
}

// Discover enumerates every migratable object reachable from reader and
// returns both the grouped document and the equivalent in-memory
// MigratableObjects the Orchestrator schedules work against. Objects are
// returned with empty SourceText; fetching DDL/code text is deferred to
// the phase that actually needs it, so Discovery itself stays a cheap
// catalog scan.
func Discover(ctx context.Context, reader *source.Reader) (Document, []*model.MigratableObject, error) {
	var doc Document
	var objects []*model.MigratableObject

	groups := []struct {
		kind model.Kind
		list func(context.Context) ([]source.ObjectRef, error)
		dest *[]Entry
	}{
		{model.KindTable, reader.ListTables, &doc.Tables},
		{model.KindView, reader.ListViews, &doc.Views},
		{model.KindSequence, reader.ListSequences, &doc.Sequences},
		{model.KindProcedure, reader.ListProcedures, &doc.Procedures},
		{model.KindFunction, reader.ListFunctions, &doc.Functions},
		{model.KindTrigger, reader.ListTriggers, &doc.Triggers},
		{model.KindPackage, reader.ListPackages, &doc.Packages},
	}

	for _, g := range groups {
		refs, err := g.list(ctx)
		if err != nil {
			return Document{}, nil, fmt.Errorf("discovery failed listing %s objects: %w", g.kind, err)
		}
		entries := make([]Entry, 0, len(refs))
		for _, ref := range refs {
			entries = append(entries, Entry{
				Schema:   ref.Schema,
				Name:     ref.Name,
				Kind:     string(g.kind),
				RowCount: ref.RowCount,
				ByteSize: ref.ByteSize,
				Valid:    ref.Valid,
			})
			obj := model.NewMigratableObject(model.Identity{Schema: ref.Schema, Name: ref.Name, Kind: g.kind}, "")
			obj.RowCount = ref.RowCount
			obj.ByteSize = ref.ByteSize
			obj.Valid = ref.Valid
			objects = append(objects, obj)
		}
		*g.dest = entries
	}

	return doc, objects, nil
}

// WriteArtifact serializes doc to path as discovery_result.json (spec §6's
// named output artifact), so the external UI can render the same document
// Discovery handed the Orchestrator.
func WriteArtifact(doc Document, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal discovery document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write discovery artifact to %s: %w", path, err)
	}
	return nil
}
