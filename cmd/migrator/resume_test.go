package main

import (
	"testing"

	"github.com/oramigrate/oracle-to-mssql/internal/config"
	"github.com/oramigrate/oracle-to-mssql/pkg/orchestrator"
	"github.com/stretchr/testify/assert"
)

func TestRemainingSelection_ExcludesPreviouslyDeployedObjects(t *testing.T) {
	orig := cfg
	cfg = &config.Config{}
	cfg.Migration.DefaultSchema = "HR"
	defer func() { cfg = orig }()

	sel := orchestrator.Selection{
		Tables: []string{"EMPLOYEES", "DEPARTMENTS", "JOBS"},
		Views:  []string{"EMP_VIEW"},
	}
	prior := &orchestrator.Report{
		Deployed: []string{"HR.EMPLOYEES", "HR.EMP_VIEW"},
	}

	remaining := remainingSelection(sel, prior)

	assert.Equal(t, []string{"DEPARTMENTS", "JOBS"}, remaining.Tables)
	assert.Empty(t, remaining.Views)
}

func TestRemainingSelection_PreservesIncludeData(t *testing.T) {
	orig := cfg
	cfg = &config.Config{}
	cfg.Migration.DefaultSchema = "HR"
	defer func() { cfg = orig }()

	sel := orchestrator.Selection{
		Tables:      []string{"EMPLOYEES"},
		IncludeData: map[string]bool{"EMPLOYEES": true},
	}
	prior := &orchestrator.Report{}

	remaining := remainingSelection(sel, prior)

	assert.Equal(t, []string{"EMPLOYEES"}, remaining.Tables)
	assert.True(t, remaining.IncludeData["EMPLOYEES"])
}
