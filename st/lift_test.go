package st

import (
	"strings"
	"testing"

	"github.com/lagarcia38/l5x2st/ir"
)

func tagNames(tags []*ir.Tag) []string {
	var out []string
	for _, t := range tags {
		out = append(out, t.Name)
	}
	return out
}

func TestLiftScopePartition(t *testing.T) {
	src := `
PROGRAM MainProgram
VAR
	HMI_Status : INT;
	Global_Mode : DINT;
	Local_Flag : BOOL;
END_VAR
Local_Flag := TRUE;
END_PROGRAM
`
	proj, _ := Lift(src)
	ctrlNames := tagNames(proj.Controller.Tags)
	if len(ctrlNames) != 2 || ctrlNames[0] != "HMI_Status" || ctrlNames[1] != "Global_Mode" {
		t.Fatalf("controller tags = %v, want [HMI_Status Global_Mode]", ctrlNames)
	}
	progNames := tagNames(proj.Programs[0].Tags)
	if len(progNames) != 1 || progNames[0] != "Local_Flag" {
		t.Fatalf("program tags = %v, want [Local_Flag]", progNames)
	}
	if proj.Programs[0].Name != "MainProgram" {
		t.Fatalf("program name = %q", proj.Programs[0].Name)
	}
}

func TestLiftArrayDeclaration(t *testing.T) {
	src := `
VAR
	x : ARRAY [0..9] OF INT := 0;
END_VAR
x[0] := 1;
`
	proj, _ := Lift(src)
	tags := proj.Programs[0].Tags
	if len(tags) != 1 {
		t.Fatalf("got %d tags, want 1", len(tags))
	}
	tag := tags[0]
	if tag.Dimensions != "0..9" {
		t.Errorf("Dimensions = %q, want 0..9", tag.Dimensions)
	}
	if tag.BaseType != "INT" {
		t.Errorf("BaseType = %q, want INT", tag.BaseType)
	}
	if tag.Value != "0" {
		t.Errorf("Value = %q, want 0", tag.Value)
	}
}

func TestLiftStripsComments(t *testing.T) {
	src := `
VAR
	// a single-line comment
	A : BOOL; (* inline block comment *)
	(* a
	   multi-line
	   block comment *)
	B : BOOL;
END_VAR
A := TRUE; // trailing
`
	proj, _ := Lift(src)
	tags := proj.Programs[0].Tags
	if len(tags) != 2 {
		t.Fatalf("got %d tags, want 2 (comments should not produce declarations): %+v", len(tags), tags)
	}
	if strings.Contains(proj.Programs[0].Routines[0].Content, "//") {
		t.Errorf("body retains a comment: %q", proj.Programs[0].Routines[0].Content)
	}
}

func TestLiftRoutineKindIsST(t *testing.T) {
	proj, _ := Lift("VAR\n\tA : BOOL;\nEND_VAR\nA := TRUE;")
	r := proj.Programs[0].Routines[0]
	if r.Kind != ir.RoutineST {
		t.Errorf("Kind = %v, want RoutineST", r.Kind)
	}
	if r.Name != "MainRoutine" {
		t.Errorf("Name = %q, want MainRoutine", r.Name)
	}
}

func TestLiftUserDefinedTypeWarning(t *testing.T) {
	_, meta := Lift("VAR\n\tM : MESSAGE;\nEND_VAR\n")
	found := false
	for _, w := range meta.Warnings {
		if strings.Contains(w, "MESSAGE") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a warning about the user-defined type MESSAGE, got %v", meta.Warnings)
	}
}
