package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/oramigrate/oracle-to-mssql/pkg/orchestrator"
	"github.com/oramigrate/oracle-to-mssql/pkg/source"
)

// resolveSelection loads the user's chosen scope from --selection, or
// defaults to every object the Oracle reader can see, with no row data
// included (copying a table's rows is opt-in, per migration_selection.json's
// include_data map).
func resolveSelection(ctx context.Context, reader *source.Reader) (orchestrator.Selection, error) {
	if migrateSelectionPath != "" {
		return loadSelectionFile(migrateSelectionPath)
	}
	return discoverFullSelection(ctx, reader)
}

func loadSelectionFile(path string) (orchestrator.Selection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return orchestrator.Selection{}, fmt.Errorf("reading selection file: %w", err)
	}
	var sel orchestrator.Selection
	if err := json.Unmarshal(data, &sel); err != nil {
		return orchestrator.Selection{}, fmt.Errorf("parsing selection file: %w", err)
	}
	return sel, nil
}

type objectLister struct {
	list func(context.Context) ([]source.ObjectRef, error)
	dest *[]string
}

func discoverFullSelection(ctx context.Context, reader *source.Reader) (orchestrator.Selection, error) {
	var sel orchestrator.Selection
	groups := []objectLister{
		{reader.ListTables, &sel.Tables},
		{reader.ListViews, &sel.Views},
		{reader.ListSequences, &sel.Sequences},
		{reader.ListProcedures, &sel.Procedures},
		{reader.ListFunctions, &sel.Functions},
		{reader.ListTriggers, &sel.Triggers},
		{reader.ListPackages, &sel.Packages},
	}

	for _, g := range groups {
		refs, err := g.list(ctx)
		if err != nil {
			return orchestrator.Selection{}, err
		}
		names := make([]string, 0, len(refs))
		for _, ref := range refs {
			names = append(names, ref.Name)
		}
		*g.dest = names
	}
	sel.IncludeData = map[string]bool{}
	return sel, nil
}
