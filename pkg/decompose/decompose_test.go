package decompose

import (
	"strings"
	"testing"
)

const pkgSpec = `
CREATE OR REPLACE PACKAGE PKG_X IS
  PROCEDURE process(p_id NUMBER);
  PROCEDURE process(p_name VARCHAR2);
  PROCEDURE process(p_id NUMBER, p_date DATE);
END PKG_X;
`

const pkgBody = `
CREATE OR REPLACE PACKAGE BODY PKG_X IS
  PROCEDURE audit(p_msg VARCHAR2) IS
  BEGIN
    NULL;
  END audit;

  PROCEDURE process(p_id NUMBER) IS
  BEGIN
    audit('single id');
  END process;

  PROCEDURE process(p_name VARCHAR2) IS
  BEGIN
    audit('by name');
  END process;

  PROCEDURE process(p_id NUMBER, p_date DATE) IS
  BEGIN
    audit('id and date');
  END process;
END PKG_X;
`

func TestDecompose_OverloadsAndPrivateMember(t *testing.T) {
	res := Decompose("PKG_X", pkgSpec, pkgBody)

	if len(res.Units) != 4 {
		t.Fatalf("got %d units, want 4 (3 overloads + 1 private helper): %+v", len(res.Units), res.Units)
	}

	names := make(map[string]bool)
	for _, u := range res.Units {
		names[u.TargetName()] = true
	}

	for _, want := range []string{"PKG_X_process_v0", "PKG_X_process_v1", "PKG_X_process_v2", "PKG_X__internal_audit"} {
		if !names[want] {
			t.Errorf("expected unit named %q, got %v", want, names)
		}
	}
}

func TestDecompose_RewritesInternalCalls(t *testing.T) {
	res := Decompose("PKG_X", pkgSpec, pkgBody)
	for _, u := range res.Units {
		if u.MemberName == "process" && strings.Contains(u.Body, "audit(") && !strings.Contains(u.Body, "PKG_X__internal_audit(") {
			t.Errorf("unit %s did not have its call to audit() rewritten: %s", u.TargetName(), u.Body)
		}
	}
}

func TestDecompose_NestedParenParams(t *testing.T) {
	spec := "CREATE OR REPLACE PACKAGE PKG_Y IS\n  FUNCTION fmt(p_val VARCHAR2(100)) RETURN VARCHAR2;\nEND PKG_Y;"
	body := "CREATE OR REPLACE PACKAGE BODY PKG_Y IS\n  FUNCTION fmt(p_val VARCHAR2(100)) RETURN VARCHAR2 IS\n  BEGIN\n    RETURN p_val;\n  END fmt;\nEND PKG_Y;"
	res := Decompose("PKG_Y", spec, body)
	if len(res.Units) != 1 {
		t.Fatalf("got %d units, want 1", len(res.Units))
	}
	if len(res.Units[0].Params) != 1 || res.Units[0].Params[0].Name != "p_val" {
		t.Errorf("params = %+v", res.Units[0].Params)
	}
}

func TestDecompose_NestedBeginEnd(t *testing.T) {
	body := `CREATE OR REPLACE PACKAGE BODY PKG_Z IS
  PROCEDURE run(p_id NUMBER) IS
  BEGIN
    IF p_id > 0 THEN
      BEGIN
        NULL;
      END;
    END IF;
  END run;
END PKG_Z;`
	res := Decompose("PKG_Z", "", body)
	if len(res.Units) != 1 {
		t.Fatalf("got %d units, want 1", len(res.Units))
	}
	if !strings.Contains(res.Units[0].Body, "IF p_id > 0") {
		t.Errorf("body truncated too early: %q", res.Units[0].Body)
	}
}

func TestDecompose_FaultTolerantOnMalformedMember(t *testing.T) {
	body := `CREATE OR REPLACE PACKAGE BODY PKG_W IS
  PROCEDURE broken(p_id NUMBER
  PROCEDURE ok_one(p_id NUMBER) IS
  BEGIN
    NULL;
  END ok_one;
END PKG_W;`
	res := Decompose("PKG_W", "", body)
	found := false
	for _, u := range res.Units {
		if u.MemberName == "ok_one" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected ok_one to still be decomposed despite a malformed sibling: %+v", res.Units)
	}
}
