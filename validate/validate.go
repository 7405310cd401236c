// Package validate runs structural checks over an IR Project.
package validate

import "github.com/lagarcia38/l5x2st/ir"

// Check returns a diagnostic for each structural rule that fails: a missing
// or unnamed controller, no controller tags, no programs, and any program
// with no routines, per spec.md §4.8.
func Check(p *ir.Project) []string {
	var errs []string

	if p == nil || p.Controller == nil || p.Controller.Name == "" {
		errs = append(errs, "Controller missing or unnamed.")
		return errs
	}
	if len(p.Controller.Tags) == 0 {
		errs = append(errs, "No controller tags found.")
	}
	if len(p.Programs) == 0 {
		errs = append(errs, "No programs found.")
	}
	for _, prog := range p.Programs {
		if len(prog.Routines) == 0 {
			errs = append(errs, "Program '"+prog.Name+"' has no routines.")
		}
	}
	return errs
}
