package rootcause

import (
	"context"

	"github.com/oramigrate/oracle-to-mssql/pkg/targetdb"
)

// TargetMetadata is step 3's artifact: the live state of the object(s)
// implicated by the failure.
type TargetMetadata struct {
	// ReferencedObject is the fully qualified name resolveReferencedObject
	// extracted from the error text, kept here so a FAILED_DEPENDENCY
	// outcome can tell the Dependency Manager what it is waiting on.
	ReferencedObject string
	Exists           bool
	Columns          []targetdb.ColumnMeta
}

// queryTargetMetadata is step 3: ask the target driver whether the
// referenced object exists and, if so, its columns.
func queryTargetMetadata(ctx context.Context, driver targetdb.Driver, schema, name, kind string) TargetMetadata {
	var fqName string
	if schema != "" && name != "" {
		fqName = schema + "." + name
	}
	if driver == nil {
		return TargetMetadata{ReferencedObject: fqName}
	}
	exists, err := driver.ObjectExists(ctx, schema, name, kind)
	if err != nil || !exists {
		return TargetMetadata{ReferencedObject: fqName, Exists: exists}
	}
	columns, err := driver.GetColumns(ctx, fqName)
	if err != nil {
		return TargetMetadata{ReferencedObject: fqName, Exists: true}
	}
	return TargetMetadata{ReferencedObject: fqName, Exists: true, Columns: columns}
}
