package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ForeignKeyDef describes one Oracle FK constraint stripped from a table's
// DDL by the FK Manager. Identity = (ConstraintName, SourceSchema,
// SourceTable).
type ForeignKeyDef struct {
	ConstraintName string `validate:"required"`
	SourceSchema   string `validate:"required"`
	SourceTable    string `validate:"required"`

	SourceColumns []string `validate:"required,min=1,dive,required"`

	ReferencedSchema  string   `validate:"required"`
	ReferencedTable   string   `validate:"required"`
	ReferencedColumns []string `validate:"required,min=1,dive,required"`

	OnDelete string
	OnUpdate string
}

var fkValidator = newFKValidator()

func newFKValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateColumnParity, ForeignKeyDef{})
	return v
}

// validateColumnParity enforces the one invariant struct tags can't express:
// a composite FK's source and referenced column lists must be the same
// length, position for position.
func validateColumnParity(sl validator.StructLevel) {
	fk := sl.Current().Interface().(ForeignKeyDef)
	if len(fk.SourceColumns) != len(fk.ReferencedColumns) {
		sl.ReportError(fk.ReferencedColumns, "ReferencedColumns", "ReferencedColumns", "columnparity", "")
	}
}

// SourceFQTable is the fully qualified name of the owning table.
func (f ForeignKeyDef) SourceFQTable() string {
	return f.SourceSchema + "." + f.SourceTable
}

// ReferencedFQTable is the fully qualified name of the referenced table.
func (f ForeignKeyDef) ReferencedFQTable() string {
	return f.ReferencedSchema + "." + f.ReferencedTable
}

// IsSelfReferencing reports whether the FK references its own table.
func (f ForeignKeyDef) IsSelfReferencing() bool {
	return f.SourceFQTable() == f.ReferencedFQTable()
}

// Validate enforces the invariants in spec §3: column count parity and all
// identifying name fields non-empty. It must pass before the FK is emitted
// as an ALTER TABLE.
func (f ForeignKeyDef) Validate() error {
	err := fkValidator.Struct(f)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(fieldErrs) == 0 {
		return fmt.Errorf("foreign key %s: %w", f.ConstraintName, err)
	}
	fe := fieldErrs[0]
	if fe.Tag() == "columnparity" {
		return fmt.Errorf("foreign key %s: %d source columns but %d referenced columns",
			f.ConstraintName, len(f.SourceColumns), len(f.ReferencedColumns))
	}
	return fmt.Errorf("foreign key %s: field %s failed %s validation", f.ConstraintName, fe.Field(), fe.Tag())
}
