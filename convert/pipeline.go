// Package convert orchestrates the L5X/ST boundaries, the IR, and the
// validator into the operations behind the two CLIs (L5X to ST, directory
// consolidation, ST to L5X), plus a round-trip fidelity check and IR
// validation.
package convert

import (
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/lagarcia38/l5x2st/fidelity"
	"github.com/lagarcia38/l5x2st/internal/auxlib"
	"github.com/lagarcia38/l5x2st/internal/diag"
	"github.com/lagarcia38/l5x2st/internal/xmlelem"
	"github.com/lagarcia38/l5x2st/ir"
	"github.com/lagarcia38/l5x2st/l5x"
	"github.com/lagarcia38/l5x2st/st"
	"github.com/lagarcia38/l5x2st/validate"
)

// L5XToST reads an L5X document from r and renders it as a single ST text.
// When useIR is true, the extracted IR is validated first; any validation
// error aborts the conversion with that error and the ST is not rendered.
func L5XToST(r io.Reader, useIR bool) (string, *ir.ConversionMetadata, error) {
	root, err := xmlelem.Parse(r)
	if err != nil {
		return "", nil, errors.Wrap(err, "convert: l5x2st")
	}
	proj, meta := l5x.Extract(root)
	if proj.Controller.Name == "" {
		return "", meta, errors.New("convert: l5x2st: document has no Controller element")
	}
	if useIR {
		if errs := validate.Check(proj); len(errs) > 0 {
			return "", meta, errors.Errorf("validation failed: %s", strings.Join(errs, "; "))
		}
	}
	return renderST(proj), meta, nil
}

// STToL5X lifts an ST source into IR and serializes it as L5X text. When
// useIR is true, the serialized document is re-extracted and that IR is
// validated — the pipeline is ST -> L5X -> extractor -> validator, per
// spec.md §6 — and a validation failure aborts the conversion without
// writing the L5X output.
func STToL5X(src string, useIR bool) (string, *ir.ConversionMetadata, error) {
	proj, meta := st.Lift(src)
	root, err := l5x.Serialize(proj)
	if err != nil {
		return "", meta, errors.Wrap(err, "convert: st2l5x")
	}
	if useIR {
		reextracted, _ := l5x.Extract(root)
		if errs := validate.Check(reextracted); len(errs) > 0 {
			return "", meta, errors.Errorf("validation failed: %s", strings.Join(errs, "; "))
		}
	}
	var b strings.Builder
	if err := xmlelem.NewWriter(&b, "\t").WriteDocument(root); err != nil {
		return "", meta, errors.Wrap(err, "convert: st2l5x")
	}
	return b.String(), meta, nil
}

// RoundTrip extracts r, serializes the result, re-extracts that, and scores
// the fidelity between the first and second extraction — exercising the
// extractor and serializer against each other without any file on disk.
func RoundTrip(r io.Reader) (float64, error) {
	root, err := xmlelem.Parse(r)
	if err != nil {
		return 0, errors.Wrap(err, "convert: round trip")
	}
	original, _ := l5x.Extract(root)
	if original.Controller.Name == "" {
		return 0, errors.New("convert: round trip: document has no Controller element")
	}
	serialized, err := l5x.Serialize(original)
	if err != nil {
		return 0, errors.Wrap(err, "convert: round trip")
	}
	converted, _ := l5x.Extract(serialized)
	return fidelity.Score(original, converted), nil
}

// ValidateIR re-exposes the structural validator so callers that only need
// the `convert` package don't also have to import `validate` directly.
func ValidateIR(p *ir.Project) []string {
	return validate.Check(p)
}

// consolidationState mirrors the reference compiler's CompilerState reset
// between controllers in a directory sweep: the current controller's
// message tags are tracked only within that file and discarded once the
// next one starts, while auxiliary struct/function references accumulate
// across the whole directory so they can be emitted once, deduplicated, at
// the end.
type consolidationState struct {
	controllerIndex int
	messageTags     []string
	auxFunctions    map[string]bool
	auxStructs      map[string]bool
}

func newConsolidationState() *consolidationState {
	return &consolidationState{
		controllerIndex: 1,
		auxFunctions:    map[string]bool{},
		auxStructs:      map[string]bool{},
	}
}

func (s *consolidationState) resetForNewController() {
	s.controllerIndex++
	s.messageTags = nil
}

// ConsolidateDirectory discovers every .L5X file under dir recursively,
// sorts them case-insensitively by name, converts each to ST with
// per-controller state reset between files, and concatenates the results
// into a single ST document with a trailing CONFIGURATION block, per
// spec.md §6's directory-mode behavior.
func ConsolidateDirectory(dirFS fs.FS, dir string) (string, error) {
	var files []string
	err := fs.WalkDir(dirFS, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".l5x") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "convert: consolidate directory")
	}
	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(files[i]) < strings.ToLower(files[j])
	})

	state := newConsolidationState()
	var bodies []string
	for _, path := range files {
		f, err := dirFS.Open(path)
		if err != nil {
			diag.Log.Warnf("convert: skipping %s: %v", path, err)
			continue
		}
		body, err := consolidateOne(f, state, path)
		f.Close()
		if err != nil {
			diag.Log.Warnf("convert: skipping %s: %v", path, err)
			state.resetForNewController()
			continue
		}
		bodies = append(bodies, body)
		state.resetForNewController()
	}

	var out strings.Builder
	// Auxiliary struct/function definitions are deduplicated across the
	// whole directory: emitting one per referencing file would redeclare the
	// same FUNCTION_BLOCK or TYPE every time two controllers share it.
	for name := range state.auxStructs {
		out.WriteString(auxlib.Structs[name])
		out.WriteString("\n\n")
	}
	for name := range state.auxFunctions {
		out.WriteString(auxlib.Functions[name])
		out.WriteString("\n\n")
	}
	for _, body := range bodies {
		out.WriteString(body)
		out.WriteString("\n")
	}
	out.WriteString(auxlib.Configuration)
	out.WriteString("\n")
	return out.String(), nil
}

// consolidateOne renders one file's body without its own auxiliary
// struct/function definitions — those are collected into state and emitted
// once, deduplicated, by the caller after every file has been scanned.
func consolidateOne(r io.Reader, state *consolidationState, path string) (string, error) {
	root, err := xmlelem.Parse(r)
	if err != nil {
		return "", err
	}
	proj, _ := l5x.Extract(root)
	if proj.Controller.Name == "" {
		return "", errors.New("document has no Controller element")
	}
	collectAuxReferences(proj, state)
	var b strings.Builder
	fmt.Fprintf(&b, "(* Controller #%d: %s *)\n", state.controllerIndex, path)
	b.WriteString(renderSTBody(proj, state.messageTags))
	return b.String(), nil
}

func collectAuxReferences(p *ir.Project, state *consolidationState) {
	if p == nil || p.Controller == nil {
		return
	}
	for _, t := range p.Controller.Tags {
		if strings.EqualFold(t.BaseType, "MESSAGE") {
			state.messageTags = append(state.messageTags, t.Name)
			state.auxStructs["MESSAGE"] = true
		}
		if strings.EqualFold(t.BaseType, "DOMINANT_SET") {
			state.auxStructs["DOMINANT_SET"] = true
		}
	}
	for name := range auxlib.Functions {
		for _, prog := range p.Programs {
			for _, r := range prog.Routines {
				if strings.Contains(r.Content, name+"(") {
					state.auxFunctions[name] = true
				}
			}
		}
	}
}

// renderST produces a single-file ST text for proj, including any auxiliary
// struct/function definitions its own tags and routines reference and the
// trailing CONFIGURATION block. Used by L5XToST, where each conversion is
// independent and there is nothing to deduplicate against.
func renderST(p *ir.Project) string {
	if p == nil {
		return ""
	}
	var messageTags []string
	for _, t := range p.Controller.Tags {
		if strings.EqualFold(t.BaseType, "MESSAGE") {
			messageTags = append(messageTags, t.Name)
		}
	}

	var b strings.Builder
	for name, body := range auxlib.Structs {
		if typeReferenced(p, name) {
			b.WriteString(body)
			b.WriteString("\n\n")
		}
	}
	for name, body := range auxlib.Functions {
		if functionReferenced(p, name) {
			b.WriteString(body)
			b.WriteString("\n\n")
		}
	}
	b.WriteString(renderSTBody(p, messageTags))
	b.WriteString(auxlib.Configuration)
	b.WriteString("\n")
	return b.String()
}

func functionReferenced(p *ir.Project, name string) bool {
	for _, prog := range p.Programs {
		for _, r := range prog.Routines {
			if strings.Contains(r.Content, name+"(") {
				return true
			}
		}
	}
	return false
}

// renderSTBody produces proj's VAR blocks and PROGRAM bodies without any
// auxiliary struct/function definitions, so a directory-consolidation pass
// can emit those once, deduplicated, across every file instead of per-file.
func renderSTBody(p *ir.Project, messageTags []string) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	if len(p.Controller.Tags) > 0 {
		b.WriteString("VAR\n")
		for _, t := range p.Controller.Tags {
			writeTagDecl(&b, t)
		}
		b.WriteString("END_VAR\n\n")
	}

	for _, prog := range p.Programs {
		b.WriteString("PROGRAM " + prog.Name + "\n")
		if len(prog.Tags) > 0 {
			b.WriteString("VAR\n")
			for _, t := range prog.Tags {
				writeTagDecl(&b, t)
			}
			b.WriteString("END_VAR\n")
		}
		if init := auxlib.InitMessages(messageTags); init != "" {
			b.WriteString(init)
		}
		for _, r := range prog.Routines {
			b.WriteString("// Routine " + r.Name + " (" + r.Kind.String() + ")\n")
			b.WriteString(r.Content)
			b.WriteString("\n")
		}
		b.WriteString("END_PROGRAM\n\n")
	}
	return b.String()
}

func typeReferenced(p *ir.Project, typeName string) bool {
	for _, t := range p.Controller.Tags {
		if strings.EqualFold(t.BaseType, typeName) {
			return true
		}
	}
	for _, prog := range p.Programs {
		for _, t := range prog.Tags {
			if strings.EqualFold(t.BaseType, typeName) {
				return true
			}
		}
	}
	return false
}

func writeTagDecl(b *strings.Builder, t *ir.Tag) {
	b.WriteString("\t" + t.Name + " : ")
	if t.Dimensions != "" {
		b.WriteString("ARRAY [" + t.Dimensions + "] OF " + t.BaseType)
	} else {
		b.WriteString(t.BaseType)
	}
	if t.Value != "" {
		b.WriteString(" := " + t.Value)
	}
	b.WriteString(";\n")
}
