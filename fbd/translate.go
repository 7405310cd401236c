// Package fbd translates a Rockwell function block diagram sheet into
// Structured Text by resolving its wire graph into ordered function block
// calls followed by output assignments.
package fbd

import (
	"fmt"
	"strings"

	"github.com/lagarcia38/l5x2st/internal/diag"
	"github.com/lagarcia38/l5x2st/internal/xmlelem"
)

// fbInfo is the resolved shape of one AddOnInstruction element on a sheet.
type fbInfo struct {
	id      string
	name    string
	operand string
	inputs  map[string]string // bound InOutParameter name -> argument expression
}

type wire struct {
	fromID, toID       string
	fromParam, toParam string
}

// sheet holds one FBD sheet's parsed graph, mirroring the reference
// translator's per-sheet working state. It is rebuilt fresh for each sheet;
// none of its fields are shared across sheets.
type sheet struct {
	inputRefs  map[string]string // ID -> operand
	outputRefs map[string]string // ID -> operand
	blocks     map[string]fbInfo // ID -> resolved block
	wires      []wire
}

// Translate converts every Sheet child of the given FBD routine content into
// an ST fragment, one "// Sheet N" section per sheet. It never returns an
// error: a malformed sheet degrades to an inline "// ERROR: ..." comment so
// translation of the remaining sheets and routines can proceed.
func Translate(fbdContent *xmlelem.Element) string {
	sheets := fbdContent.FindAll("Sheet")
	if len(sheets) == 0 {
		return "// No FBD content to translate"
	}
	var parts []string
	for i, sh := range sheets {
		num := i + 1
		code := translateSheet(sh, num)
		if code != "" {
			parts = append(parts, fmt.Sprintf("// Sheet %d", num), code)
		}
	}
	if len(parts) == 0 {
		return "// No FBD content to translate"
	}
	return strings.Join(parts, "\n")
}

func translateSheet(sheetEl *xmlelem.Element, num int) (code string) {
	defer func() {
		if r := recover(); r != nil {
			code = fmt.Sprintf("// ERROR: Failed to parse FBD sheet %d - %v", num, r)
		}
	}()
	s := &sheet{
		inputRefs:  map[string]string{},
		outputRefs: map[string]string{},
		blocks:     map[string]fbInfo{},
	}
	s.parseInputRefs(sheetEl)
	s.parseOutputRefs(sheetEl)
	s.parseFunctionBlocks(sheetEl)
	s.parseWires(sheetEl)

	order, cyclic := s.executionOrder()
	for _, id := range cyclic {
		diag.Log.Warnf("fbd: circular dependency detected involving %s", id)
	}
	return s.generateSTCode(order)
}

func (s *sheet) parseInputRefs(sheetEl *xmlelem.Element) {
	for _, iref := range sheetEl.FindAll("IRef") {
		id, operand := iref.Attr("ID"), iref.Attr("Operand")
		if id != "" && operand != "" {
			s.inputRefs[id] = operand
		}
	}
}

func (s *sheet) parseOutputRefs(sheetEl *xmlelem.Element) {
	for _, oref := range sheetEl.FindAll("ORef") {
		id, operand := oref.Attr("ID"), oref.Attr("Operand")
		if id != "" && operand != "" {
			s.outputRefs[id] = operand
		}
	}
}

func (s *sheet) parseFunctionBlocks(sheetEl *xmlelem.Element) {
	for _, fb := range sheetEl.FindAll("AddOnInstruction") {
		id, name := fb.Attr("ID"), fb.Attr("Name")
		if id == "" || name == "" {
			continue
		}
		info := fbInfo{
			id:      id,
			name:    name,
			operand: fb.Attr("Operand"),
			inputs:  map[string]string{},
		}
		for _, p := range fb.FindAll("InOutParameter") {
			pname, arg := p.Attr("Name"), p.Attr("Argument")
			if pname != "" && arg != "" {
				info.inputs[pname] = arg
			}
		}
		s.blocks[id] = info
	}
}

func (s *sheet) parseWires(sheetEl *xmlelem.Element) {
	for _, w := range sheetEl.FindAll("Wire") {
		fromID, toID := w.Attr("FromID"), w.Attr("ToID")
		if fromID == "" || toID == "" {
			continue
		}
		s.wires = append(s.wires, wire{
			fromID:    fromID,
			toID:      toID,
			fromParam: w.Attr("FromParam"),
			toParam:   w.Attr("ToParam"),
		})
	}
}

// executionOrder performs a depth-first topological sort over the
// block-to-block dependency graph induced by the wires, reproducing the
// reference translator's cycle handling: a detected cycle is diagnosed and
// the offending edge is simply not followed further, rather than aborting.
func (s *sheet) executionOrder() (order []string, cyclic []string) {
	deps := map[string]map[string]bool{}
	for id := range s.blocks {
		deps[id] = map[string]bool{}
	}
	for _, w := range s.wires {
		if _, fromIsFB := s.blocks[w.fromID]; fromIsFB {
			if _, toIsFB := s.blocks[w.toID]; toIsFB {
				deps[w.toID][w.fromID] = true
			}
		}
	}

	visited := map[string]bool{}
	onStack := map[string]bool{}

	var visit func(id string)
	visit = func(id string) {
		if onStack[id] {
			cyclic = append(cyclic, id)
			return
		}
		if visited[id] {
			return
		}
		onStack[id] = true
		for dep := range deps[id] {
			visit(dep)
		}
		onStack[id] = false
		visited[id] = true
		order = append(order, id)
	}

	for id := range s.blocks {
		if !visited[id] {
			visit(id)
		}
	}
	return order, cyclic
}

func (s *sheet) generateSTCode(order []string) string {
	var lines []string
	for _, id := range order {
		if code := s.generateFBCode(id, s.blocks[id]); code != "" {
			lines = append(lines, code)
		}
	}
	lines = append(lines, s.generateOutputAssignments()...)
	return strings.Join(lines, "\n")
}

func (s *sheet) generateFBCode(id string, fb fbInfo) string {
	var params []string
	for _, w := range s.wires {
		if w.toID != id || w.toParam == "" {
			continue
		}
		if src := s.sourceValue(w.fromID, w.fromParam); src != "" {
			params = append(params, fmt.Sprintf("%s := %s", w.toParam, src))
		}
	}
	if len(params) == 0 {
		return fmt.Sprintf("%s();", fb.operand)
	}
	return fmt.Sprintf("%s(%s);", fb.operand, strings.Join(params, ", "))
}

// sourceValue resolves what feeds a wire's origin pin: a sheet input
// reference, a sheet output reference (pass-through), a bound pin on
// another function block instance, or that instance's dotted pin name.
func (s *sheet) sourceValue(fromID, fromParam string) string {
	if v, ok := s.inputRefs[fromID]; ok {
		return v
	}
	if v, ok := s.outputRefs[fromID]; ok {
		return v
	}
	if fb, ok := s.blocks[fromID]; ok {
		if fromParam != "" {
			if bound, ok := fb.inputs[fromParam]; ok {
				return bound
			}
			return fmt.Sprintf("%s.%s", fb.operand, fromParam)
		}
	}
	diag.Log.Warnf("fbd: unknown wire source ID: %s", fromID)
	return ""
}

func (s *sheet) generateOutputAssignments() []string {
	var out []string
	for _, w := range s.wires {
		fb, fromIsFB := s.blocks[w.fromID]
		outputRef, toIsOutput := s.outputRefs[w.toID]
		if !fromIsFB || !toIsOutput || w.fromParam == "" {
			continue
		}
		out = append(out, fmt.Sprintf("%s := %s.%s;", outputRef, fb.operand, w.fromParam))
	}
	return out
}
