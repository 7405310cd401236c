package convert

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/lagarcia38/l5x2st/ir"
)

const sampleL5X = `<?xml version="1.0" encoding="UTF-8"?>
<RSLogix5000Content SchemaRevision="1.0" SoftwareRevision="32.11">
	<Controller Name="TestController">
		<Tags>
			<Tag Name="Run" DataType="BOOL" Radix="Decimal"/>
		</Tags>
		<Programs>
			<Program Name="MainProgram" MainRoutineName="MainRoutine">
				<Routines>
					<Routine Name="MainRoutine" Type="ST">
						<STContent><![CDATA[Run := 1;]]></STContent>
					</Routine>
				</Routines>
			</Program>
		</Programs>
	</Controller>
</RSLogix5000Content>`

func TestL5XToSTRendersControllerAndProgram(t *testing.T) {
	out, meta, err := L5XToST(strings.NewReader(sampleL5X), false)
	if err != nil {
		t.Fatalf("L5XToST() error = %v", err)
	}
	if meta == nil {
		t.Fatal("L5XToST() meta = nil")
	}
	if !strings.Contains(out, "Run : BOOL;") {
		t.Errorf("output missing controller tag decl:\n%s", out)
	}
	if !strings.Contains(out, "PROGRAM MainProgram") || !strings.Contains(out, "END_PROGRAM") {
		t.Errorf("output missing program block:\n%s", out)
	}
	if !strings.Contains(out, "Run := 1;") {
		t.Errorf("output missing routine content:\n%s", out)
	}
}

func TestL5XToSTValidationFailureAborts(t *testing.T) {
	badL5X := `<RSLogix5000Content><Controller Name="C"></Controller></RSLogix5000Content>`
	out, _, err := L5XToST(strings.NewReader(badL5X), true)
	if err == nil {
		t.Fatal("L5XToST() error = nil, want validation failure")
	}
	if out != "" {
		t.Errorf("L5XToST() output = %q, want empty on validation failure", out)
	}
}

func TestSTToL5XProducesDocument(t *testing.T) {
	src := `
PROGRAM MainProgram
VAR
	Run : BOOL;
END_VAR
Run := 1;
END_PROGRAM
`
	out, meta, err := STToL5X(src, false)
	if err != nil {
		t.Fatalf("STToL5X() error = %v", err)
	}
	if meta == nil {
		t.Fatal("STToL5X() meta = nil")
	}
	if !strings.Contains(out, "<RSLogix5000Content") {
		t.Errorf("output missing root element:\n%s", out)
	}
	if !strings.Contains(out, "MainProgram") {
		t.Errorf("output missing program name:\n%s", out)
	}
}

func TestRoundTripScoresOne(t *testing.T) {
	score, err := RoundTrip(strings.NewReader(sampleL5X))
	if err != nil {
		t.Fatalf("RoundTrip() error = %v", err)
	}
	if score != 1.0 {
		t.Errorf("RoundTrip() score = %v, want 1.0", score)
	}
}

func TestValidateIRReportsMissingController(t *testing.T) {
	errs := ValidateIR(nil)
	if len(errs) != 1 {
		t.Fatalf("ValidateIR(nil) = %v, want a single diagnostic", errs)
	}
}

func TestValidateIRAcceptsWellFormedProject(t *testing.T) {
	p := ir.NewProject("")
	p.Controller.Name = "C"
	p.Controller.Tags = []*ir.Tag{{Name: "T", BaseType: "BOOL"}}
	p.Programs = []*ir.Program{{Name: "MainProgram", Routines: []*ir.Routine{{Name: "R"}}}}
	if errs := ValidateIR(p); len(errs) != 0 {
		t.Fatalf("ValidateIR() = %v, want no errors", errs)
	}
}

func TestConsolidateDirectoryOrdersAndDedupesAuxiliaries(t *testing.T) {
	messageL5X := func(controllerName, tagName string) string {
		return `<?xml version="1.0" encoding="UTF-8"?>
<RSLogix5000Content SchemaRevision="1.0" SoftwareRevision="32.11">
	<Controller Name="` + controllerName + `">
		<Tags>
			<Tag Name="` + tagName + `" DataType="MESSAGE" Radix="Decimal"/>
		</Tags>
		<Programs>
			<Program Name="MainProgram" MainRoutineName="MainRoutine">
				<Routines>
					<Routine Name="MainRoutine" Type="ST">
						<STContent><![CDATA[SETD(Set := TRUE, Reset := FALSE);]]></STContent>
					</Routine>
				</Routines>
			</Program>
		</Programs>
	</Controller>
</RSLogix5000Content>`
	}

	fsys := fstest.MapFS{
		"plant/B_Line.L5X": &fstest.MapFile{Data: []byte(messageL5X("B_Line", "MsgB"))},
		"plant/A_Line.L5X": &fstest.MapFile{Data: []byte(messageL5X("A_Line", "MsgA"))},
		"plant/notes.txt":  &fstest.MapFile{Data: []byte("not an L5X file")},
	}

	out, err := ConsolidateDirectory(fsys, "plant")
	if err != nil {
		t.Fatalf("ConsolidateDirectory() error = %v", err)
	}

	idxA := strings.Index(out, "A_Line.L5X")
	idxB := strings.Index(out, "B_Line.L5X")
	if idxA == -1 || idxB == -1 || idxA > idxB {
		t.Fatalf("expected A_Line before B_Line, got:\n%s", out)
	}

	if n := strings.Count(out, "TYPE MESSAGE :"); n != 1 {
		t.Errorf("MESSAGE struct emitted %d times, want 1:\n%s", n, out)
	}
	if n := strings.Count(out, "FUNCTION_BLOCK SETD"); n != 1 {
		t.Errorf("SETD function emitted %d times, want 1:\n%s", n, out)
	}
	if !strings.Contains(out, "CONFIGURATION Config0") {
		t.Errorf("output missing trailing configuration block:\n%s", out)
	}
	if !strings.Contains(out, "MsgA.EN1 := 0;") || !strings.Contains(out, "MsgB.EN1 := 0;") {
		t.Errorf("output missing per-controller message initialization:\n%s", out)
	}
}

func TestConsolidateDirectorySkipsUnparsableFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"plant/Bad.L5X":  &fstest.MapFile{Data: []byte("not xml at all <<<")},
		"plant/Good.L5X": &fstest.MapFile{Data: []byte(sampleL5X)},
	}
	out, err := ConsolidateDirectory(fsys, "plant")
	if err != nil {
		t.Fatalf("ConsolidateDirectory() error = %v", err)
	}
	if !strings.Contains(out, "Good.L5X") {
		t.Errorf("output missing surviving file's body:\n%s", out)
	}
}
