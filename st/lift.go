// Package st lifts a plain Structured Text source back into the
// intermediate representation, the reverse direction of the L5X extractor.
package st

import (
	"strings"

	"github.com/lagarcia38/l5x2st/internal/diag"
	"github.com/lagarcia38/l5x2st/internal/ident"
	"github.com/lagarcia38/l5x2st/ir"
)

// baseTypes is the fixed set of built-in IEC types; anything else appearing
// as a declaration's type is a user-defined type name.
var baseTypes = map[string]bool{
	"BOOL": true, "SINT": true, "INT": true, "DINT": true, "LINT": true,
	"USINT": true, "UINT": true, "UDINT": true, "ULINT": true,
	"REAL": true, "LREAL": true,
	"TIME": true, "DATE": true, "TOD": true, "DT": true,
	"STRING": true, "BYTE": true, "WORD": true, "DWORD": true, "LWORD": true,
}

// controlFlowKeywords is recognized purely to classify body lines; the body
// is otherwise carried through verbatim as the routine's ST content.
var controlFlowKeywords = map[string]bool{
	"IF": true, "ELSIF": true, "ELSE": true, "END_IF": true,
	"FOR": true, "END_FOR": true, "WHILE": true, "END_WHILE": true,
	"CASE": true, "END_CASE": true, "REPEAT": true, "END_REPEAT": true,
	"EXIT": true, "RETURN": true, "CONTINUE": true,
	"THEN": true, "DO": true, "TO": true, "BY": true, "OF": true,
	"UNTIL": true, "AND": true, "OR": true, "NOT": true, "TRUE": true, "FALSE": true,
}

// decl is one parsed VAR-block line.
type decl struct {
	name       string
	baseType   string
	dimensions string // "lo..hi", empty when not an array
	init       string
}

// Lift parses src and returns a synthetic single-program IR Project
// together with accumulated diagnostics, per spec.md §4.5.
func Lift(src string) (*ir.Project, *ir.ConversionMetadata) {
	meta := &ir.ConversionMetadata{}
	proj := ir.NewProject("")
	proj.Controller.Name = "Generated_Controller"

	stripped := stripComments(src)
	varStart, varEnd, decls := parseVarBlock(stripped, meta)

	var controllerTags, programTags []*ir.Tag
	var userTypeNames []string
	for _, d := range decls {
		tag := &ir.Tag{
			Name:       ident.Sanitize(d.name),
			BaseType:   d.baseType,
			Value:      d.init,
			Dimensions: d.dimensions,
		}
		if !baseTypes[strings.ToUpper(ident.BaseType(d.baseType))] {
			userTypeNames = append(userTypeNames, d.baseType)
		}
		if isControllerScoped(d.name) {
			tag.Scope = ir.ScopeController
			controllerTags = append(controllerTags, tag)
		} else {
			tag.Scope = ir.ScopeProgram
			programTags = append(programTags, tag)
		}
	}
	if len(userTypeNames) > 0 {
		meta.Warn("referenced user-defined type(s) with no local definition: %s", strings.Join(userTypeNames, ", "))
		proj.Controller.UserTypes = append(proj.Controller.UserTypes, stubUserTypes(userTypeNames)...)
	}

	proj.Controller.Tags = controllerTags

	body := bodyOutsideVarBlock(stripped, varStart, varEnd)
	logStatementKinds(body)
	proj.Programs = []*ir.Program{{
		Name:        "MainProgram",
		Tags:        programTags,
		MainRoutine: "MainRoutine",
		Routines: []*ir.Routine{{
			Name:    "MainRoutine",
			Kind:    ir.RoutineST,
			Content: body,
		}},
	}}
	proj.Metadata = meta
	return proj, meta
}

// stubUserTypes records each referenced user-defined type name as a
// member-less ir.UserType so it has a DataType element to round-trip
// through the serializer (spec.md §4.6); the ST source only names the type,
// never its member layout, so the stub carries no Members.
func stubUserTypes(names []string) []*ir.UserType {
	seen := map[string]bool{}
	var out []*ir.UserType
	for _, n := range names {
		base := ident.BaseType(n)
		if seen[base] {
			continue
		}
		seen[base] = true
		out = append(out, &ir.UserType{Name: base})
	}
	return out
}

// isControllerScoped applies the fixed, lossy name-prefix heuristic
// mandated by spec.md §4.5 and §9: HMI_/Global_ prefixed or fully
// uppercase names are controller-scope; everything else is program-scope.
func isControllerScoped(name string) bool {
	if strings.HasPrefix(name, "HMI_") || strings.HasPrefix(name, "Global_") {
		return true
	}
	return name == strings.ToUpper(name) && strings.ToUpper(name) != strings.ToLower(name)
}

// stripComments removes single-line "//" comments and bracketed "(* ... *)"
// comments, including ones spanning multiple lines.
func stripComments(src string) string {
	var b strings.Builder
	i := 0
	for i < len(src) {
		if strings.HasPrefix(src[i:], "(*") {
			end := strings.Index(src[i+2:], "*)")
			if end < 0 {
				break
			}
			i += 2 + end + 2
			continue
		}
		if strings.HasPrefix(src[i:], "//") {
			nl := strings.IndexByte(src[i:], '\n')
			if nl < 0 {
				break
			}
			i += nl
			continue
		}
		b.WriteByte(src[i])
		i++
	}
	return b.String()
}

// parseVarBlock locates the first VAR ... END_VAR block and parses its
// declaration lines. It returns the line indices of the VAR and END_VAR
// lines so the caller can exclude them from the body.
func parseVarBlock(src string, meta *ir.ConversionMetadata) (startLine, endLine int, decls []decl) {
	lines := strings.Split(src, "\n")
	startLine, endLine = -1, -1
	for i, line := range lines {
		u := strings.ToUpper(strings.TrimSpace(line))
		if startLine < 0 && (u == "VAR" || strings.HasPrefix(u, "VAR ")) {
			startLine = i
			continue
		}
		if startLine >= 0 && endLine < 0 {
			if u == "END_VAR" {
				endLine = i
				continue
			}
			if d, ok := parseDeclLine(line); ok {
				decls = append(decls, d)
			} else if strings.TrimSpace(line) != "" {
				meta.Warn("unrecognized declaration line: %q", strings.TrimSpace(line))
			}
		}
	}
	return startLine, endLine, decls
}

// parseDeclLine parses one "name : type [:= init];" or
// "name : ARRAY [a..b] OF type [:= init];" declaration line.
func parseDeclLine(line string) (decl, bool) {
	t := strings.TrimSpace(line)
	t = strings.TrimSuffix(t, ";")
	t = strings.TrimSpace(t)
	if t == "" {
		return decl{}, false
	}
	colon := strings.IndexByte(t, ':')
	if colon < 0 {
		return decl{}, false
	}
	name := strings.TrimSpace(t[:colon])
	rest := strings.TrimSpace(t[colon+1:])
	if name == "" || rest == "" {
		return decl{}, false
	}

	init := ""
	if idx := strings.Index(rest, ":="); idx >= 0 {
		init = strings.TrimSpace(rest[idx+2:])
		rest = strings.TrimSpace(rest[:idx])
	}

	d := decl{name: name, init: init}
	if strings.HasPrefix(strings.ToUpper(rest), "ARRAY") {
		lo, hi, base := parseArrayType(rest)
		d.dimensions = lo + ".." + hi
		d.baseType = base
	} else {
		d.baseType = rest
	}
	return d, true
}

// parseArrayType splits "ARRAY [lo..hi] OF base" into its components.
func parseArrayType(typeName string) (lo, hi, base string) {
	upper := strings.ToUpper(typeName)
	ofIdx := strings.Index(upper, "] OF ")
	bracketStart := strings.IndexByte(typeName, '[')
	if ofIdx < 0 || bracketStart < 0 {
		return "", "", typeName
	}
	rangeStr := typeName[bracketStart+1 : ofIdx]
	dotIdx := strings.Index(rangeStr, "..")
	if dotIdx < 0 {
		return "", "", typeName
	}
	lo = strings.TrimSpace(rangeStr[:dotIdx])
	hi = strings.TrimSpace(rangeStr[dotIdx+2:])
	base = strings.TrimSpace(typeName[ofIdx+5:])
	return lo, hi, base
}

// logStatementKinds classifies each body line as control-flow, assignment,
// call, or passthrough, and logs a line count per kind at debug level. Lines
// are otherwise carried through verbatim; this classification is diagnostic
// only, per spec.md §4.5's "unclassified lines are passed through verbatim".
func logStatementKinds(body string) {
	counts := map[string]int{}
	for _, line := range strings.Split(body, "\n") {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		first := strings.ToUpper(strings.Fields(t)[0])
		switch {
		case controlFlowKeywords[first]:
			counts["control"]++
		case strings.Contains(t, ":="):
			counts["assignment"]++
		case strings.Contains(t, "("):
			counts["call"]++
		default:
			counts["other"]++
		}
	}
	diag.Log.Debugf("st: lifted body line kinds: %v", counts)
}

// bodyOutsideVarBlock returns every non-comment line outside the VAR block,
// joined back into a single ST source fragment.
func bodyOutsideVarBlock(src string, varStart, varEnd int) string {
	lines := strings.Split(src, "\n")
	var out []string
	for i, line := range lines {
		if varStart >= 0 && i >= varStart && (varEnd < 0 || i <= varEnd) {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
