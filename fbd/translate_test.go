package fbd

import (
	"strings"
	"testing"

	"github.com/lagarcia38/l5x2st/internal/xmlelem"
)

func irefEl(id, operand string) *xmlelem.Element {
	return xmlelem.NewElement("IRef", xmlelem.A("ID", id), xmlelem.A("Operand", operand))
}

func orefEl(id, operand string) *xmlelem.Element {
	return xmlelem.NewElement("ORef", xmlelem.A("ID", id), xmlelem.A("Operand", operand))
}

func fbEl(id, name, operand string, params map[string]string) *xmlelem.Element {
	fb := xmlelem.NewElement("AddOnInstruction", xmlelem.A("ID", id), xmlelem.A("Name", name), xmlelem.A("Operand", operand))
	for k, v := range params {
		fb.AddChild(xmlelem.NewElement("InOutParameter", xmlelem.A("Name", k), xmlelem.A("Argument", v)))
	}
	return fb
}

func wireEl(fromID, toID, fromParam, toParam string) *xmlelem.Element {
	return xmlelem.NewElement("Wire",
		xmlelem.A("FromID", fromID), xmlelem.A("ToID", toID),
		xmlelem.A("FromParam", fromParam), xmlelem.A("ToParam", toParam))
}

func sheetEl(children ...*xmlelem.Element) *xmlelem.Element {
	s := xmlelem.NewElement("Sheet")
	for _, c := range children {
		s.AddChild(c)
	}
	return s
}

func fbdEl(sheets ...*xmlelem.Element) *xmlelem.Element {
	f := xmlelem.NewElement("FBDContent")
	for _, s := range sheets {
		f.AddChild(s)
	}
	return f
}

func TestTranslateNoSheets(t *testing.T) {
	got := Translate(xmlelem.NewElement("FBDContent"))
	if got != "// No FBD content to translate" {
		t.Fatalf("Translate() = %q", got)
	}
}

func TestTranslateSingleBlockCall(t *testing.T) {
	sh := sheetEl(
		irefEl("1", "Start"),
		fbEl("2", "TON", "Timer0", nil),
		wireEl("1", "2", "", "IN"),
	)
	got := Translate(fbdEl(sh))
	if !strings.Contains(got, "// Sheet 1") {
		t.Fatalf("Translate() missing sheet header: %q", got)
	}
	if !strings.Contains(got, "Timer0(IN := Start);") {
		t.Fatalf("Translate() = %q, want a bound call to Timer0", got)
	}
}

func TestTranslateOutputAssignment(t *testing.T) {
	sh := sheetEl(
		irefEl("1", "Start"),
		fbEl("2", "TON", "Timer0", nil),
		orefEl("3", "Done"),
		wireEl("1", "2", "", "IN"),
		wireEl("2", "3", "Q", ""),
	)
	got := Translate(fbdEl(sh))
	if !strings.Contains(got, "Done := Timer0.Q;") {
		t.Fatalf("Translate() = %q, want output assignment from Timer0.Q", got)
	}
}

func TestTranslateTopologicalOrder(t *testing.T) {
	// Block B depends on Block A's output; A must be called before B.
	sh := sheetEl(
		irefEl("1", "In1"),
		fbEl("A", "ALM", "Alarm0", nil),
		fbEl("B", "AND", "And0", nil),
		wireEl("1", "A", "", "In"),
		wireEl("A", "B", "Alarm", "X"),
	)
	got := Translate(fbdEl(sh))
	aIdx := strings.Index(got, "Alarm0(")
	bIdx := strings.Index(got, "And0(")
	if aIdx == -1 || bIdx == -1 {
		t.Fatalf("Translate() missing expected calls: %q", got)
	}
	if aIdx > bIdx {
		t.Fatalf("Translate() called And0 before its dependency Alarm0: %q", got)
	}
	if !strings.Contains(got, "And0(X := Alarm0.Alarm);") {
		t.Fatalf("Translate() = %q, want B's pin resolved to A's output", got)
	}
}

func TestTranslateCycleDoesNotPanic(t *testing.T) {
	sh := sheetEl(
		fbEl("A", "AND", "And0", nil),
		fbEl("B", "OR", "Or0", nil),
		wireEl("A", "B", "Q", "X"),
		wireEl("B", "A", "Q", "X"),
	)
	got := Translate(fbdEl(sh))
	if got == "" {
		t.Fatalf("Translate() returned empty output for a cyclic graph")
	}
}

func TestTranslateUnboundPinFallsBackToDottedName(t *testing.T) {
	sh := sheetEl(
		fbEl("A", "ALM", "Alarm0", nil),
		fbEl("B", "AND", "And0", nil),
		wireEl("A", "B", "Alarm", "X"),
	)
	got := Translate(fbdEl(sh))
	if !strings.Contains(got, "And0(X := Alarm0.Alarm);") {
		t.Fatalf("Translate() = %q", got)
	}
}
