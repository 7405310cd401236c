package fidelity

import (
	"testing"

	"github.com/lagarcia38/l5x2st/ir"
)

func projectFor(tags int, userTypeMemberCounts []int, routinesPerProgram int) *ir.Project {
	p := ir.NewProject("")
	for i := 0; i < tags; i++ {
		p.Controller.Tags = append(p.Controller.Tags, &ir.Tag{
			Name: "Tag" + string(rune('A'+i)), BaseType: "INT", Scope: ir.ScopeController,
		})
	}
	for i, count := range userTypeMemberCounts {
		ut := &ir.UserType{Name: "Type" + string(rune('A'+i))}
		for m := 0; m < count; m++ {
			ut.Members = append(ut.Members, &ir.UserTypeMember{Name: "m"})
		}
		p.Controller.UserTypes = append(p.Controller.UserTypes, ut)
	}
	prog := &ir.Program{Name: "MainProgram"}
	for i := 0; i < routinesPerProgram; i++ {
		prog.Routines = append(prog.Routines, &ir.Routine{Name: "R" + string(rune('A'+i))})
	}
	p.Programs = append(p.Programs, prog)
	return p
}

func TestScoreIdenticalProjectsIsOne(t *testing.T) {
	p := projectFor(3, []int{4, 4}, 2)
	if got := Score(p, p); got != 1.0 {
		t.Fatalf("Score() = %v, want 1.0", got)
	}
}

func TestScoreEmptyOriginalIsOne(t *testing.T) {
	empty := ir.NewProject("")
	if got := Score(empty, empty); got != 1.0 {
		t.Fatalf("Score() = %v, want 1.0 for an empty original", got)
	}
}

func TestScoreMutatedUserTypeDropsByExpectedFraction(t *testing.T) {
	original := projectFor(3, []int{4, 4}, 2)
	converted := projectFor(3, []int{4, 4}, 2)
	converted.Controller.UserTypes[0].Members = converted.Controller.UserTypes[0].Members[:3]

	got := Score(original, converted)
	// total components = 3 tags + 2 user types + 1 program = 6; one user type
	// now mismatches on member count, dropping the score by exactly 1/6.
	want := 1.0 - 1.0/6.0
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("Score() = %v, want %v", got, want)
	}
}

func TestScoreMismatchedTagScopeDoesNotMatch(t *testing.T) {
	original := &ir.Project{Controller: &ir.Controller{Tags: []*ir.Tag{
		{Name: "X", BaseType: "INT", Scope: ir.ScopeController},
	}}}
	converted := &ir.Project{Controller: &ir.Controller{Tags: []*ir.Tag{
		{Name: "X", BaseType: "INT", Scope: ir.ScopeProgram},
	}}}
	if got := Score(original, converted); got != 0 {
		t.Fatalf("Score() = %v, want 0 for a scope mismatch", got)
	}
}

func TestScoreNilOriginalIsOne(t *testing.T) {
	if got := Score(nil, nil); got != 1.0 {
		t.Fatalf("Score() = %v, want 1.0", got)
	}
}
