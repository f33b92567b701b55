package review

import "testing"

func TestReview_CleanDDLIsApprovedExcellent(t *testing.T) {
	result := Review("CREATE TABLE dbo.EMPLOYEES (id INT, name VARCHAR(100))")
	if result.Approval != ApprovalApproved {
		t.Errorf("expected approved, got %s", result.Approval)
	}
	if result.OverallQuality != QualityExcellent {
		t.Errorf("expected excellent, got %s", result.OverallQuality)
	}
	if len(result.Issues) != 0 {
		t.Errorf("expected no issues, got %v", result.Issues)
	}
}

func TestReview_LeftoverOracleTokenRequiresChanges(t *testing.T) {
	result := Review("CREATE TABLE dbo.T (id NUMBER(10), created DATE DEFAULT SYSDATE)")
	if result.Approval != ApprovalRequiresChanges {
		t.Errorf("expected requires_changes, got %s", result.Approval)
	}
	if result.OverallQuality == QualityExcellent {
		t.Errorf("expected degraded quality, got %s", result.OverallQuality)
	}
	found := false
	for _, issue := range result.Issues {
		if issue.Severity == SeverityError {
			found = true
		}
	}
	if !found {
		t.Errorf("expected at least one error-severity issue, got %v", result.Issues)
	}
}

func TestReview_ConnectByHasNoEquivalent(t *testing.T) {
	result := Review("SELECT id FROM t START WITH id = 1 CONNECT BY PRIOR id = parent_id")
	if result.Approval != ApprovalRequiresChanges {
		t.Errorf("expected requires_changes for CONNECT BY, got %s", result.Approval)
	}
}

func TestReview_EmbeddedGoSeparatorIsWarningOnly(t *testing.T) {
	result := Review("CREATE TABLE dbo.T (id INT)\nGO\nCREATE TABLE dbo.U (id INT)")
	if result.Approval != ApprovalApproved {
		t.Errorf("a warning-only issue should not require changes, got %s", result.Approval)
	}
	if result.OverallQuality != QualityGood {
		t.Errorf("expected good quality with one warning, got %s", result.OverallQuality)
	}
}

func TestReview_EmptyOutputNeedsImprovement(t *testing.T) {
	result := Review("   \n\t  ")
	if result.Approval != ApprovalRequiresChanges {
		t.Errorf("expected requires_changes for empty output, got %s", result.Approval)
	}
	if result.OverallQuality != QualityNeedsImprovement {
		t.Errorf("expected needs_improvement for a single error, got %s", result.OverallQuality)
	}
}

func TestReview_MultipleErrorsIsPoor(t *testing.T) {
	result := Review("CREATE TABLE dbo.T (id NUMBER(10), name VARCHAR2(100) DEFAULT SYSDATE)")
	errCount := 0
	for _, issue := range result.Issues {
		if issue.Severity == SeverityError {
			errCount++
		}
	}
	if errCount < 2 {
		t.Fatalf("expected multiple error issues from this fixture, got %d: %v", errCount, result.Issues)
	}
	if result.OverallQuality != QualityPoor {
		t.Errorf("expected poor quality with multiple errors, got %s", result.OverallQuality)
	}
}
