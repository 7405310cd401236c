// Package auxlib carries the small library of fixed Structured Text bodies
// that the reference compiler always emits alongside a converted program:
// helper function blocks, two commonly-referenced struct shapes, the
// trailing CONFIGURATION block, and MESSAGE-tag initialization. None of this
// is described as a worked example in spec.md, but spec.md §1 mentions a
// configuration block and the reference implementation carries all of it, so
// it is supplemented here per the "original_source may supplement dropped
// features" rule.
package auxlib

import (
	"fmt"
	"strings"
)

// Functions maps an auxiliary function-block name to its fixed ST
// declaration, emitted once per output file, only when referenced.
var Functions = map[string]string{
	"SETD": `FUNCTION_BLOCK SETD
VAR_INPUT
	Set : BOOL;
	Reset : BOOL;
END_VAR
VAR_OUTPUT
	Q : BOOL;
END_VAR
IF Set THEN
	Q := TRUE;
ELSIF Reset THEN
	Q := FALSE;
END_IF;
END_FUNCTION_BLOCK`,

	"SCL": `FUNCTION SCL : REAL
VAR_INPUT
	RawValue : REAL;
	RawMin : REAL;
	RawMax : REAL;
	ScaledMin : REAL;
	ScaledMax : REAL;
END_VAR
SCL := ScaledMin + (RawValue - RawMin) * (ScaledMax - ScaledMin) / (RawMax - RawMin);
END_FUNCTION`,

	"ALM": `FUNCTION_BLOCK ALM
VAR_INPUT
	In : BOOL;
END_VAR
VAR_OUTPUT
	Alarm : BOOL;
END_VAR
Alarm := In;
END_FUNCTION_BLOCK`,

	"OSRI": `FUNCTION_BLOCK OSRI
VAR_INPUT
	InputBit : BOOL;
END_VAR
VAR_OUTPUT
	OutputBit : BOOL;
END_VAR
VAR
	Stored : BOOL;
END_VAR
OutputBit := InputBit AND NOT Stored;
Stored := InputBit;
END_FUNCTION_BLOCK`,
}

// Structs maps an auxiliary struct-type name to its fixed ST TYPE
// declaration.
var Structs = map[string]string{
	"DOMINANT_SET": `TYPE DOMINANT_SET :
STRUCT
	Set : BOOL;
	Reset : BOOL;
	Q : BOOL;
END_STRUCT
END_TYPE`,

	"MESSAGE": `TYPE MESSAGE :
STRUCT
	EN1 : BOOL;
	EW : BOOL;
	ST : BOOL;
	DN : BOOL;
	ER : BOOL;
END_STRUCT
END_TYPE`,
}

// Configuration is the fixed trailing block every consolidated ST output
// carries, binding the synthesized program to a resource and task.
const Configuration = `CONFIGURATION Config0
	RESOURCE Resource0 ON PLC
		TASK MainTask(INTERVAL := T#10ms, PRIORITY := 0);
		PROGRAM Main WITH MainTask : MainProgram;
	END_RESOURCE
END_CONFIGURATION`

// InitMessages returns initialization statements for every tag name whose
// base type is MESSAGE, zeroing the status bits the reference compiler
// always resets ahead of the program body.
func InitMessages(messageTagNames []string) string {
	if len(messageTagNames) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("(*Initialize Messages*)\n")
	for _, name := range messageTagNames {
		fmt.Fprintf(&b, "%s.EN1 := 0;\n", name)
		fmt.Fprintf(&b, "%s.EW := 0;\n", name)
		fmt.Fprintf(&b, "%s.ST := 0;\n", name)
		fmt.Fprintf(&b, "%s.DN := 0;\n", name)
		fmt.Fprintf(&b, "%s.ER := 0;\n", name)
	}
	return b.String()
}
