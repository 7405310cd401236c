package l5x

import (
	"strings"
	"testing"

	"github.com/lagarcia38/l5x2st/internal/xmlelem"
	"github.com/lagarcia38/l5x2st/ir"
)

func el(name string, attrs ...xmlelem.Attr) *xmlelem.Element {
	return xmlelem.NewElement(name, attrs...)
}

func textChild(name, text string) *xmlelem.Element {
	return &xmlelem.Element{Name: name, Text: text}
}

func TestExtractHexValueDecoding(t *testing.T) {
	tag := el("Tag", xmlelem.A("Name", "Preset"), xmlelem.A("DataType", "DINT"))
	tag.AddChild(textChild("Value", "'$00$00$00$1E'"))

	tags := el("Tags")
	tags.AddChild(tag)
	ctrl := el("Controller", xmlelem.A("Name", "TestController"))
	ctrl.AddChild(tags)
	root := el("RSLogix5000Content")
	root.AddChild(ctrl)

	proj, meta := Extract(root)
	if len(meta.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", meta.Errors)
	}
	if len(proj.Controller.Tags) != 1 {
		t.Fatalf("got %d tags, want 1", len(proj.Controller.Tags))
	}
	if got := proj.Controller.Tags[0].Value; got != "30" {
		t.Errorf("Value = %q, want 30", got)
	}
}

func TestExtractControllerNameDefault(t *testing.T) {
	root := el("RSLogix5000Content")
	root.AddChild(el("Controller"))
	proj, _ := Extract(root)
	if proj.Controller.Name != defaultControllerName {
		t.Errorf("Name = %q, want %q", proj.Controller.Name, defaultControllerName)
	}
}

func TestExtractMissingControllerRecordsError(t *testing.T) {
	root := el("RSLogix5000Content")
	proj, meta := Extract(root)
	if proj == nil {
		t.Fatal("Extract returned nil project")
	}
	if len(meta.Errors) == 0 {
		t.Fatal("expected an error diagnostic for a missing Controller element")
	}
}

func TestExtractDataTypeWithMembers(t *testing.T) {
	dt := el("DataType", xmlelem.A("Name", "MyStruct"), xmlelem.A("Family", "STRUCT"))
	members := el("Members")
	members.AddChild(el("Member", xmlelem.A("Name", "a"), xmlelem.A("DataType", "BOOL")))
	members.AddChild(el("Member", xmlelem.A("Name", "b"), xmlelem.A("DataType", "DINT")))
	dt.AddChild(members)
	dataTypes := el("DataTypes")
	dataTypes.AddChild(dt)
	ctrl := el("Controller", xmlelem.A("Name", "C"))
	ctrl.AddChild(dataTypes)
	root := el("RSLogix5000Content")
	root.AddChild(ctrl)

	proj, _ := Extract(root)
	if len(proj.Controller.UserTypes) != 1 {
		t.Fatalf("got %d user types, want 1", len(proj.Controller.UserTypes))
	}
	ut := proj.Controller.UserTypes[0]
	if len(ut.Members) != 2 {
		t.Fatalf("got %d members, want 2", len(ut.Members))
	}
}

func TestExtractFunctionBlockParameters(t *testing.T) {
	aoi := el("AddOnInstructionDefinition", xmlelem.A("Name", "MyAOI"))
	params := el("Parameters")
	params.AddChild(el("Parameter", xmlelem.A("Name", "In1"), xmlelem.A("DataType", "BOOL"), xmlelem.A("Usage", "Input")))
	params.AddChild(el("Parameter", xmlelem.A("Name", "Out1"), xmlelem.A("DataType", "BOOL"), xmlelem.A("Usage", "Output")))
	aoi.AddChild(params)
	aois := el("AddOnInstructionDefinitions")
	aois.AddChild(aoi)
	ctrl := el("Controller", xmlelem.A("Name", "C"))
	ctrl.AddChild(aois)
	root := el("RSLogix5000Content")
	root.AddChild(ctrl)

	proj, _ := Extract(root)
	if len(proj.Controller.FunctionBlocks) != 1 {
		t.Fatalf("got %d function blocks, want 1", len(proj.Controller.FunctionBlocks))
	}
	fb := proj.Controller.FunctionBlocks[0]
	if len(fb.Parameters) != 2 {
		t.Fatalf("got %d parameters, want 2", len(fb.Parameters))
	}
	if fb.Parameters[1].Direction != ir.DirOutput {
		t.Errorf("second parameter direction = %v, want DirOutput", fb.Parameters[1].Direction)
	}
}

func TestExtractAllProgramsNotJustMainProgram(t *testing.T) {
	progs := el("Programs")
	progs.AddChild(el("Program", xmlelem.A("Name", "MainProgram")))
	progs.AddChild(el("Program", xmlelem.A("Name", "AuxProgram")))
	ctrl := el("Controller", xmlelem.A("Name", "C"))
	ctrl.AddChild(progs)
	root := el("RSLogix5000Content")
	root.AddChild(ctrl)

	proj, _ := Extract(root)
	if len(proj.Programs) != 2 {
		t.Fatalf("got %d programs, want 2 (every Program element, not just MainProgram)", len(proj.Programs))
	}
}

func TestExtractRLLRoutineTranslatesRungs(t *testing.T) {
	rung := el("Rung", xmlelem.A("Number", "0"))
	text := &xmlelem.Element{Name: "Text", Text: "XIC(Start)OTE(Run);"}
	rung.AddChild(text)
	rll := el("RLLContent")
	rll.AddChild(rung)
	routine := el("Routine", xmlelem.A("Name", "MainRoutine"), xmlelem.A("Type", "RLL"))
	routine.AddChild(rll)
	routines := el("Routines")
	routines.AddChild(routine)
	prog := el("Program", xmlelem.A("Name", "MainProgram"))
	prog.AddChild(routines)
	progs := el("Programs")
	progs.AddChild(prog)
	ctrl := el("Controller", xmlelem.A("Name", "C"))
	ctrl.AddChild(progs)
	root := el("RSLogix5000Content")
	root.AddChild(ctrl)

	proj, _ := Extract(root)
	r := proj.Programs[0].Routines[0]
	if r.Kind != ir.RoutineLD {
		t.Errorf("Kind = %v, want RoutineLD", r.Kind)
	}
	if !strings.Contains(r.Content, "Run := 1;") {
		t.Errorf("Content = %q, want a translated OTE assignment", r.Content)
	}
}

func TestExtractSTRoutineCapturesContentVerbatim(t *testing.T) {
	stContent := el("STContent")
	stContent.Text = "IF A THEN\n\tB := TRUE;\nEND_IF;"
	routine := el("Routine", xmlelem.A("Name", "MainRoutine"), xmlelem.A("Type", "ST"))
	routine.AddChild(stContent)
	routines := el("Routines")
	routines.AddChild(routine)
	prog := el("Program", xmlelem.A("Name", "MainProgram"))
	prog.AddChild(routines)
	progs := el("Programs")
	progs.AddChild(prog)
	ctrl := el("Controller", xmlelem.A("Name", "C"))
	ctrl.AddChild(progs)
	root := el("RSLogix5000Content")
	root.AddChild(ctrl)

	proj, _ := Extract(root)
	r := proj.Programs[0].Routines[0]
	if r.Kind != ir.RoutineST {
		t.Errorf("Kind = %v, want RoutineST", r.Kind)
	}
	if r.Content != "IF A THEN\n\tB := TRUE;\nEND_IF;" {
		t.Errorf("Content = %q, want the ST text captured verbatim", r.Content)
	}
}

func TestExtractSFCRoutineProducesDiagnostic(t *testing.T) {
	routine := el("Routine", xmlelem.A("Name", "MainRoutine"), xmlelem.A("Type", "SFC"))
	routines := el("Routines")
	routines.AddChild(routine)
	prog := el("Program", xmlelem.A("Name", "MainProgram"))
	prog.AddChild(routines)
	progs := el("Programs")
	progs.AddChild(prog)
	ctrl := el("Controller", xmlelem.A("Name", "C"))
	ctrl.AddChild(progs)
	root := el("RSLogix5000Content")
	root.AddChild(ctrl)

	_, meta := Extract(root)
	found := false
	for _, w := range meta.Warnings {
		if strings.Contains(w, "SFC") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a warning about the untranslated SFC routine, got %v", meta.Warnings)
	}
}

func TestExtractRLLRoutineFallsBackToPlainText(t *testing.T) {
	routine := el("Routine", xmlelem.A("Name", "MainRoutine"), xmlelem.A("Type", "RLL"))
	routine.AddChild(&xmlelem.Element{Name: "Text", Text: "A := TRUE;"})
	routines := el("Routines")
	routines.AddChild(routine)
	prog := el("Program", xmlelem.A("Name", "MainProgram"))
	prog.AddChild(routines)
	progs := el("Programs")
	progs.AddChild(prog)
	ctrl := el("Controller", xmlelem.A("Name", "C"))
	ctrl.AddChild(progs)
	root := el("RSLogix5000Content")
	root.AddChild(ctrl)

	proj, _ := Extract(root)
	r := proj.Programs[0].Routines[0]
	if r.Content != "A := TRUE;" {
		t.Errorf("Content = %q, want the fallback Text content", r.Content)
	}
}

func TestExtractMalformedTagDoesNotAbortSiblings(t *testing.T) {
	tags := el("Tags")
	tags.AddChild(el("Tag", xmlelem.A("DataType", "BOOL"))) // no Name: fails
	tags.AddChild(el("Tag", xmlelem.A("Name", "Good"), xmlelem.A("DataType", "BOOL")))
	ctrl := el("Controller", xmlelem.A("Name", "C"))
	ctrl.AddChild(tags)
	root := el("RSLogix5000Content")
	root.AddChild(ctrl)

	proj, meta := Extract(root)
	if len(proj.Controller.Tags) != 1 || proj.Controller.Tags[0].Name != "Good" {
		t.Fatalf("Tags = %+v, want exactly the well-formed tag", proj.Controller.Tags)
	}
	if len(meta.Errors) != 1 {
		t.Fatalf("got %d errors, want 1 for the malformed tag", len(meta.Errors))
	}
}
