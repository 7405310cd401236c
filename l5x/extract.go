// Package l5x implements both directions of the L5X boundary: extracting an
// IR Project from a parsed L5X element tree, and serializing an IR Project
// back into one.
package l5x

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/lagarcia38/l5x2st/fbd"
	"github.com/lagarcia38/l5x2st/internal/ident"
	"github.com/lagarcia38/l5x2st/internal/xmlelem"
	"github.com/lagarcia38/l5x2st/ir"
	"github.com/lagarcia38/l5x2st/ld"
)

// defaultControllerName is used when the Controller element carries no Name
// attribute, per spec.md §4.2.
const defaultControllerName = "Unknown_Controller"

// Extract walks root (the document's top-level wrapper element, containing
// exactly one Controller child) and builds an IR Project. Only a missing
// root or missing Controller element is fatal; every other failure is
// recorded as a diagnostic on the returned metadata and extraction
// continues.
func Extract(root *xmlelem.Element) (*ir.Project, *ir.ConversionMetadata) {
	proj := ir.NewProject("")
	meta := proj.Metadata
	if root == nil {
		meta.Error("l5x: empty document")
		return proj, meta
	}
	ctrlEl := findController(root)
	if ctrlEl == nil {
		meta.Error("l5x: document has no Controller element")
		return proj, meta
	}

	name := ctrlEl.AttrOr("Name", defaultControllerName)
	proj.Controller.Name = name
	proj.Controller.Description = childText(ctrlEl, "Description")

	proj.Controller.Tags = extractTags(ctrlEl.Find("Tags"), meta)
	proj.Controller.UserTypes = extractUserTypes(ctrlEl.Find("DataTypes"), meta)
	proj.Controller.FunctionBlocks = extractFunctionBlocks(ctrlEl.Find("AddOnInstructionDefinitions"), meta)
	proj.Programs = extractPrograms(ctrlEl.Find("Programs"), meta)

	return proj, meta
}

// findController locates the Controller element either as a direct child of
// root or, failing that, anywhere in the tree — a high-level accessor
// (direct child) with a fallback to a direct walk, mirroring the reference
// extractor's two extraction paths.
func findController(root *xmlelem.Element) *xmlelem.Element {
	if c := root.Find("Controller"); c != nil {
		return c
	}
	if root.Name == "Controller" {
		return root
	}
	return findDescendant(root, "Controller")
}

func findDescendant(e *xmlelem.Element, name string) *xmlelem.Element {
	for _, c := range e.Children {
		if c.Name == name {
			return c
		}
		if found := findDescendant(c, name); found != nil {
			return found
		}
	}
	return nil
}

func childText(e *xmlelem.Element, name string) string {
	if c := e.Find(name); c != nil {
		return c.Text
	}
	return ""
}

// extractTags converts each Tag element under tagsEl, recovering from any
// single tag's failure without aborting the remainder.
func extractTags(tagsEl *xmlelem.Element, meta *ir.ConversionMetadata) []*ir.Tag {
	if tagsEl == nil {
		return nil
	}
	var out []*ir.Tag
	for _, te := range tagsEl.FindAll("Tag") {
		tag, err := extractOneTag(te)
		if err != nil {
			meta.Error("tag %q: %v", te.Attr("Name"), err)
			continue
		}
		out = append(out, tag)
	}
	return out
}

func extractOneTag(te *xmlelem.Element) (tag *ir.Tag, err error) {
	defer func() {
		if r := recover(); r != nil {
			tag, err = nil, errors.Errorf("panic extracting tag: %v", r)
		}
	}()
	name := te.Attr("Name")
	if name == "" {
		return nil, errors.New("tag has no Name attribute")
	}
	value := childText(te, "Value")
	return &ir.Tag{
		Name:        ident.Sanitize(name),
		BaseType:    ident.BaseType(te.Attr("DataType")),
		Scope:       ir.ScopeController,
		Value:       decodeTagValue(value),
		Radix:       te.Attr("Radix"),
		Constant:    strings.EqualFold(te.Attr("Constant"), "true"),
		AliasFor:    te.Attr("AliasFor"),
		Dimensions:  te.Attr("Dimension"),
		Description: childText(te, "Description"),
	}, nil
}

// decodeTagValue decodes a Rockwell hex literal of the form
// "'$hh$hh$hh$hh'" into its decimal integer string; any other value is
// preserved verbatim.
func decodeTagValue(value string) string {
	if !strings.HasPrefix(value, "'$") || !strings.HasSuffix(value, "'") {
		return value
	}
	hexStr := strings.ReplaceAll(value[2:len(value)-1], "$", "")
	n, err := strconv.ParseUint(hexStr, 16, 64)
	if err != nil {
		return value
	}
	return strconv.FormatUint(n, 10)
}

func extractUserTypes(dataTypesEl *xmlelem.Element, meta *ir.ConversionMetadata) []*ir.UserType {
	if dataTypesEl == nil {
		return nil
	}
	var out []*ir.UserType
	for _, dt := range dataTypesEl.FindAll("DataType") {
		ut, err := extractOneUserType(dt)
		if err != nil {
			meta.Error("data type %q: %v", dt.Attr("Name"), err)
			continue
		}
		out = append(out, ut)
	}
	return out
}

func extractOneUserType(dt *xmlelem.Element) (ut *ir.UserType, err error) {
	defer func() {
		if r := recover(); r != nil {
			ut, err = nil, errors.Errorf("panic extracting data type: %v", r)
		}
	}()
	name := dt.Attr("Name")
	if name == "" {
		return nil, errors.New("data type has no Name attribute")
	}
	var members []*ir.UserTypeMember
	if ms := dt.Find("Members"); ms != nil {
		for _, m := range ms.FindAll("Member") {
			mName := m.Attr("Name")
			if mName == "" {
				continue
			}
			members = append(members, &ir.UserTypeMember{
				Name:           ident.Sanitize(mName),
				DataType:       ident.BaseType(m.Attr("DataType")),
				Radix:          m.Attr("Radix"),
				ExternalAccess: m.Attr("ExternalAccess"),
				Description:    childText(m, "Description"),
			})
		}
	}
	return &ir.UserType{
		Name:        ident.Sanitize(name),
		BaseType:    dt.AttrOr("Family", "STRUCT"),
		Members:     members,
		Description: childText(dt, "Description"),
	}, nil
}

func extractFunctionBlocks(aoiEl *xmlelem.Element, meta *ir.ConversionMetadata) []*ir.FunctionBlock {
	if aoiEl == nil {
		return nil
	}
	var out []*ir.FunctionBlock
	for _, aoi := range aoiEl.FindAll("AddOnInstructionDefinition") {
		fb, err := extractOneFunctionBlock(aoi)
		if err != nil {
			meta.Error("function block %q: %v", aoi.Attr("Name"), err)
			continue
		}
		out = append(out, fb)
	}
	return out
}

func extractOneFunctionBlock(aoi *xmlelem.Element) (fb *ir.FunctionBlock, err error) {
	defer func() {
		if r := recover(); r != nil {
			fb, err = nil, errors.Errorf("panic extracting function block: %v", r)
		}
	}()
	name := aoi.Attr("Name")
	if name == "" {
		return nil, errors.New("function block has no Name attribute")
	}
	var params []*ir.FunctionBlockParameter
	if ps := aoi.Find("Parameters"); ps != nil {
		for _, p := range ps.FindAll("Parameter") {
			pName := p.Attr("Name")
			if pName == "" {
				continue
			}
			params = append(params, &ir.FunctionBlockParameter{
				Name:      ident.Sanitize(pName),
				DataType:  ident.BaseType(p.Attr("DataType")),
				Direction: parseDirection(p.AttrOr("Usage", "Input")),
				Required:  strings.EqualFold(p.Attr("Required"), "true"),
			})
		}
	}
	var locals []*ir.Tag
	if lts := aoi.Find("LocalTags"); lts != nil {
		for _, t := range lts.FindAll("Tag") {
			tName := t.Attr("Name")
			if tName == "" {
				continue
			}
			locals = append(locals, &ir.Tag{
				Name:     ident.Sanitize(tName),
				BaseType: ident.BaseType(t.Attr("DataType")),
				Scope:    ir.ScopeProgram,
			})
		}
	}
	impl := ""
	if routines := aoi.Find("Routines"); routines != nil {
		for _, r := range routines.FindAll("Routine") {
			if r.Attr("Name") == "Logic" {
				impl = extractRoutineContent(r, &ir.ConversionMetadata{})
			}
		}
	}
	return &ir.FunctionBlock{
		Name:           ident.Sanitize(name),
		Description:    aoi.AttrOr("Description", ""),
		Parameters:     params,
		LocalVariables: locals,
		Implementation: impl,
	}, nil
}

func parseDirection(usage string) ir.ParamDirection {
	switch usage {
	case "Output":
		return ir.DirOutput
	case "InOut":
		return ir.DirInOut
	default:
		return ir.DirInput
	}
}

func extractPrograms(programsEl *xmlelem.Element, meta *ir.ConversionMetadata) []*ir.Program {
	if programsEl == nil {
		return nil
	}
	var out []*ir.Program
	for _, pe := range programsEl.FindAll("Program") {
		p, err := extractOneProgram(pe, meta)
		if err != nil {
			meta.Error("program %q: %v", pe.Attr("Name"), err)
			continue
		}
		out = append(out, p)
	}
	return out
}

func extractOneProgram(pe *xmlelem.Element, meta *ir.ConversionMetadata) (prog *ir.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			prog, err = nil, errors.Errorf("panic extracting program: %v", r)
		}
	}()
	name := pe.Attr("Name")
	if name == "" {
		return nil, errors.New("program has no Name attribute")
	}
	p := &ir.Program{
		Name:        name,
		Description: childText(pe, "Description"),
		MainRoutine: pe.Attr("MainRoutineName"),
	}
	if tagsEl := pe.Find("Tags"); tagsEl != nil {
		for _, te := range tagsEl.FindAll("Tag") {
			tag, tErr := extractOneTag(te)
			if tErr != nil {
				meta.Error("program %q tag %q: %v", name, te.Attr("Name"), tErr)
				continue
			}
			tag.Scope = ir.ScopeProgram
			p.Tags = append(p.Tags, tag)
		}
	}
	if routinesEl := pe.Find("Routines"); routinesEl != nil {
		for _, re := range routinesEl.FindAll("Routine") {
			r := extractOneRoutine(re, meta)
			p.Routines = append(p.Routines, r)
		}
	}
	return p, nil
}

func extractOneRoutine(re *xmlelem.Element, meta *ir.ConversionMetadata) *ir.Routine {
	rName := re.AttrOr("Name", "Unknown")
	kind := routineKind(re.Attr("Type"))
	return &ir.Routine{
		Name:    rName,
		Kind:    kind,
		Content: extractRoutineContent(re, meta),
	}
}

func routineKind(typ string) ir.RoutineKind {
	switch typ {
	case "RLL":
		return ir.RoutineLD
	case "FBD":
		return ir.RoutineFBD
	case "SFC":
		return ir.RoutineSFC
	default:
		return ir.RoutineST
	}
}

// extractRoutineContent dispatches on routine kind and lowers LD/FBD content
// to ST, per spec.md §4.2's routine behavior.
func extractRoutineContent(re *xmlelem.Element, meta *ir.ConversionMetadata) (content string) {
	defer func() {
		if r := recover(); r != nil {
			meta.Error("routine %q: panic extracting content: %v", re.Attr("Name"), r)
			content = ""
		}
	}()
	switch re.Attr("Type") {
	case "RLL":
		if content := extractLadderContent(re); content != "" {
			return content
		}
		return directTextContent(re)
	case "FBD":
		fbdContent := re.Find("FBDContent")
		if fbdContent == nil {
			meta.Warn("routine %q: FBD has no FBDContent", re.Attr("Name"))
			return directTextContent(re)
		}
		return fbd.Translate(fbdContent)
	case "SFC":
		meta.Warn("routine %q: SFC routines are not translated", re.Attr("Name"))
		return ""
	default:
		if st := re.Find("STContent"); st != nil {
			return strings.TrimSpace(st.Text)
		}
		return directTextContent(re)
	}
}

// directTextContent is the fallback content source used when a routine
// carries a plain Text child instead of the kind-specific structure (RLL's
// RLLContent/Rung, FBD's FBDContent, ST's STContent) — the shape this
// package's own serializer emits, since the IR only ever holds already-ST
// content regardless of the kind it was lowered from.
func directTextContent(re *xmlelem.Element) string {
	if t := re.Find("Text"); t != nil {
		text := strings.TrimSpace(t.Text)
		if t.RawText {
			// Built in memory by xmlelem.CDATAChild: the CDATA markers are
			// still part of Text, not yet consumed by an XML parser.
			text = strings.TrimSuffix(strings.TrimPrefix(text, "<![CDATA["), "]]>")
		}
		return strings.TrimSpace(text)
	}
	return ""
}

func extractLadderContent(re *xmlelem.Element) string {
	rll := re.Find("RLLContent")
	if rll == nil {
		return ""
	}
	var lines []string
	for _, rung := range rll.FindAll("Rung") {
		num := rung.AttrOr("Number", "Unknown")
		text := findRungText(rung)
		if text == "" {
			lines = append(lines, "// Rung "+num+" - No content")
			continue
		}
		st := ld.Translate(text)
		lines = append(lines, "// Rung "+num, st)
	}
	return strings.Join(lines, "\n")
}

func findRungText(rung *xmlelem.Element) string {
	textEl := rung.Find("Text")
	if textEl == nil {
		return ""
	}
	return strings.TrimSpace(textEl.Text)
}
