// Package ir defines the language-neutral intermediate representation
// shared by the L5X extractor/serializer, the LD and FBD translators, the
// ST lifter, the fidelity scorer, and the validator.
package ir

import "fmt"

// RoutineKind is the closed set of routine encodings a Program may contain.
// Non-ST kinds are lowered to ST during extraction; the IR itself only ever
// carries ST content, tagged with the kind it came from.
type RoutineKind int

const (
	RoutineST RoutineKind = iota
	RoutineLD
	RoutineFBD
	RoutineSFC
)

func (k RoutineKind) String() string {
	switch k {
	case RoutineST:
		return "ST"
	case RoutineLD:
		return "RLL"
	case RoutineFBD:
		return "FBD"
	case RoutineSFC:
		return "SFC"
	default:
		return "Unknown"
	}
}

// TagScope distinguishes controller-wide tags from program-local ones.
type TagScope int

const (
	ScopeController TagScope = iota
	ScopeProgram
)

func (s TagScope) String() string {
	if s == ScopeController {
		return "Controller"
	}
	return "Program"
}

// ParamDirection is the usage of a function-block parameter.
type ParamDirection int

const (
	DirInput ParamDirection = iota
	DirOutput
	DirInOut
	DirLocal
)

func (d ParamDirection) String() string {
	switch d {
	case DirInput:
		return "Input"
	case DirOutput:
		return "Output"
	case DirInOut:
		return "InOut"
	default:
		return "Local"
	}
}

// Tag is a single tagged variable, at controller or program scope.
type Tag struct {
	Name        string
	BaseType    string
	Scope       TagScope
	Value       string
	Radix       string
	Constant    bool
	AliasFor    string
	Dimensions  string // "a..b" form; empty when the tag is scalar.
	Description string
}

// UserTypeMember is one field of a user-defined structured type.
type UserTypeMember struct {
	Name           string
	DataType       string
	Radix          string
	ExternalAccess string
	Description    string
}

// UserType is a user-defined structured data type.
type UserType struct {
	Name        string
	BaseType    string
	Members     []*UserTypeMember
	Description string
}

// FunctionBlockParameter is one parameter or local variable of a function
// block (Add-On Instruction) definition.
type FunctionBlockParameter struct {
	Name      string
	DataType  string
	Direction ParamDirection
	Required  bool
}

// FunctionBlock is a user-defined function block (Add-On Instruction)
// definition: its parameter list, local variables, and ST implementation.
type FunctionBlock struct {
	Name           string
	Description    string
	Parameters     []*FunctionBlockParameter
	LocalVariables []*Tag
	Implementation string
}

// Routine is one unit of executable logic. Content is always ST in the IR;
// Kind records the encoding it was lowered from.
type Routine struct {
	Name    string
	Kind    RoutineKind
	Content string
	Locals  []*Tag
}

// Program is a named collection of program-scope tags and routines.
type Program struct {
	Name        string
	Description string
	Tags        []*Tag
	Routines    []*Routine
	MainRoutine string
}

// Controller owns controller-scope tags, user types, and function blocks.
type Controller struct {
	Name           string
	Description    string
	Tags           []*Tag
	UserTypes      []*UserType
	FunctionBlocks []*FunctionBlock
}

// ConversionMetadata carries non-fatal diagnostics accumulated during a
// single extraction, translation, or lifting pass.
type ConversionMetadata struct {
	SourceFile string
	Warnings   []string
	Errors     []string
}

// Warn appends a warning-level diagnostic.
func (m *ConversionMetadata) Warn(format string, args ...interface{}) {
	m.Warnings = append(m.Warnings, fmt.Sprintf(format, args...))
}

// Error appends an error-level diagnostic. Errors here are the "per-entity"
// and "translation" categories: the operation that recorded them continues.
func (m *ConversionMetadata) Error(format string, args ...interface{}) {
	m.Errors = append(m.Errors, fmt.Sprintf(format, args...))
}

// Project is the root of the intermediate representation: exactly one
// controller and an ordered list of programs.
type Project struct {
	Controller *Controller
	Programs   []*Program
	Metadata   *ConversionMetadata
}

// NewProject returns an empty Project with initialized metadata, ready to
// be populated by an extractor or lifter.
func NewProject(sourceFile string) *Project {
	return &Project{
		Controller: &Controller{},
		Metadata:   &ConversionMetadata{SourceFile: sourceFile},
	}
}
