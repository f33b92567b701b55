package logging

import (
	"errors"
	"testing"
	"time"
)

func TestNewFields(t *testing.T) {
	fields := NewFields()
	if fields == nil {
		t.Fatal("NewFields() returned nil")
	}
	if len(fields) != 0 {
		t.Errorf("NewFields() should be empty, got %d fields", len(fields))
	}
}

func TestFields_Component(t *testing.T) {
	fields := NewFields().Component("translator")
	if fields["component"] != "translator" {
		t.Errorf("Component() = %v, want %v", fields["component"], "translator")
	}
}

func TestFields_Resource(t *testing.T) {
	fields := NewFields().Resource("table", "dbo.EMPLOYEES")
	if fields["resource_type"] != "table" {
		t.Errorf("resource_type = %v, want %v", fields["resource_type"], "table")
	}
	if fields["resource_name"] != "dbo.EMPLOYEES" {
		t.Errorf("resource_name = %v, want %v", fields["resource_name"], "dbo.EMPLOYEES")
	}
}

func TestFields_ResourceWithoutName(t *testing.T) {
	fields := NewFields().Resource("table", "")
	if _, exists := fields["resource_name"]; exists {
		t.Error("Resource() should not set resource_name when empty")
	}
}

func TestFields_Duration(t *testing.T) {
	fields := NewFields().Duration(150 * time.Millisecond)
	if fields["duration_ms"] != int64(150) {
		t.Errorf("Duration() = %v, want 150", fields["duration_ms"])
	}
}

func TestFields_Error(t *testing.T) {
	fields := NewFields().Error(errors.New("boom"))
	if fields["error"] != "boom" {
		t.Errorf("Error() = %v, want boom", fields["error"])
	}
}

func TestFields_ErrorNil(t *testing.T) {
	fields := NewFields().Error(nil)
	if _, exists := fields["error"]; exists {
		t.Error("Error(nil) should not set error field")
	}
}

func TestFields_KV(t *testing.T) {
	fields := NewFields().Component("c").Operation("op")
	kv := fields.KV()
	if len(kv) != 4 {
		t.Fatalf("KV() returned %d elements, want 4", len(kv))
	}
}
