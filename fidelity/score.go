// Package fidelity scores how well a converted IR Project preserves the
// structure of the Project it was derived from.
package fidelity

import "github.com/lagarcia38/l5x2st/ir"

// Score returns the fraction of original's components that have a matching
// counterpart in converted, per spec.md §4.7:
//
//   - tags match on name, base type, and scope
//   - user types match on name and member count
//   - programs match on name and routine count
//
// The denominator is the total component count of original; when that is
// zero the score is defined to be 1.
func Score(original, converted *ir.Project) float64 {
	if original == nil {
		return 1
	}

	total := 0
	matched := 0

	if original.Controller != nil {
		total += len(original.Controller.Tags) + len(original.Controller.UserTypes)
		matched += matchTags(original.Controller.Tags, convertedTags(converted))
		matched += matchUserTypes(original.Controller.UserTypes, convertedUserTypes(converted))
	}
	total += len(original.Programs)
	matched += matchPrograms(original.Programs, converted)

	if total == 0 {
		return 1
	}
	return float64(matched) / float64(total)
}

func convertedTags(p *ir.Project) []*ir.Tag {
	if p == nil || p.Controller == nil {
		return nil
	}
	return p.Controller.Tags
}

func convertedUserTypes(p *ir.Project) []*ir.UserType {
	if p == nil || p.Controller == nil {
		return nil
	}
	return p.Controller.UserTypes
}

func matchTags(origTags, convTags []*ir.Tag) int {
	n := 0
	for _, o := range origTags {
		for _, c := range convTags {
			if o.Name == c.Name && o.BaseType == c.BaseType && o.Scope == c.Scope {
				n++
				break
			}
		}
	}
	return n
}

func matchUserTypes(origTypes, convTypes []*ir.UserType) int {
	n := 0
	for _, o := range origTypes {
		for _, c := range convTypes {
			if o.Name == c.Name && len(o.Members) == len(c.Members) {
				n++
				break
			}
		}
	}
	return n
}

func matchPrograms(origPrograms []*ir.Program, converted *ir.Project) int {
	var convPrograms []*ir.Program
	if converted != nil {
		convPrograms = converted.Programs
	}
	n := 0
	for _, o := range origPrograms {
		for _, c := range convPrograms {
			if o.Name == c.Name && len(o.Routines) == len(c.Routines) {
				n++
				break
			}
		}
	}
	return n
}
