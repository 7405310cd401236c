package l5x

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/lagarcia38/l5x2st/internal/xmlelem"
	"github.com/lagarcia38/l5x2st/ir"
)

// fixedBaseTypes is the canonical set of IEC elementary types emitted ahead
// of any user-defined type, per spec.md §4.6.
var fixedBaseTypes = []string{
	"BOOL", "SINT", "INT", "DINT", "LINT", "USINT", "UINT", "UDINT", "ULINT",
	"REAL", "LREAL", "TIME", "DATE", "TOD", "DT", "STRING", "BYTE", "WORD", "DWORD", "LWORD",
}

type serializeConfig struct {
	schemaRevision   string
	softwareRevision string
	processorType    string
	timestamp        string
}

func defaultSerializeConfig() *serializeConfig {
	return &serializeConfig{
		schemaRevision:   "1.0",
		softwareRevision: "32.11",
		processorType:    "1756-L83E",
		timestamp:        time.Now().UTC().Format("Mon Jan 2 15:04:05 2006"),
	}
}

// Option configures one aspect of Serialize's output, following the
// teacher's functional-options convention (vm.Option in vm/vm.go).
type Option func(*serializeConfig)

// WithSchemaRevision overrides the root element's SchemaRevision attribute.
func WithSchemaRevision(v string) Option { return func(c *serializeConfig) { c.schemaRevision = v } }

// WithSoftwareRevision overrides the root element's SoftwareRevision attribute.
func WithSoftwareRevision(v string) Option {
	return func(c *serializeConfig) { c.softwareRevision = v }
}

// WithProcessorType overrides the Controller element's ProcessorType attribute.
func WithProcessorType(v string) Option { return func(c *serializeConfig) { c.processorType = v } }

// WithTimestamp fixes the creation/modification timestamps instead of
// sampling the current time; useful for reproducible output.
func WithTimestamp(v string) Option { return func(c *serializeConfig) { c.timestamp = v } }

// Serialize renders p as an L5X element tree, per spec.md §4.6's fixed
// element order: root wrapper, Controller with fixed processor metadata,
// DataTypes, AddOnInstructionDefinitions, controller Tags, Programs, Tasks.
func Serialize(p *ir.Project, opts ...Option) (*xmlelem.Element, error) {
	if p == nil || p.Controller == nil {
		return nil, errors.New("l5x: cannot serialize a project with no controller")
	}
	cfg := defaultSerializeConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	root := xmlelem.NewElement("RSLogix5000Content",
		xmlelem.A("SchemaRevision", cfg.schemaRevision),
		xmlelem.A("SoftwareRevision", cfg.softwareRevision),
		xmlelem.A("TargetName", p.Controller.Name),
		xmlelem.A("TargetType", "Controller"),
	)
	root.AddChild(serializeController(p, cfg))
	return root, nil
}

func serializeController(p *ir.Project, cfg *serializeConfig) *xmlelem.Element {
	ctrl := xmlelem.NewElement("Controller",
		xmlelem.A("Name", p.Controller.Name),
		xmlelem.A("ProcessorType", cfg.processorType),
		xmlelem.A("TimeSlice", "20"),
		xmlelem.A("ShareUnusedTimeSlice", "1"),
		xmlelem.A("ProjectCreationDate", cfg.timestamp),
		xmlelem.A("LastModifiedDate", cfg.timestamp),
		xmlelem.A("SFCExecutionControl", "CurrentActive"),
		xmlelem.A("SFCRestartPosition", "MostRecent"),
		xmlelem.A("SFCLastScan", "DontScan"),
		xmlelem.A("ProjectSN", uuid.New().String()),
	)
	if p.Controller.Description != "" {
		ctrl.AddChild(&xmlelem.Element{Name: "Description", Text: p.Controller.Description})
	}
	ctrl.AddChild(serializeDataTypes(p.Controller.UserTypes))
	ctrl.AddChild(serializeFunctionBlocks(p.Controller.FunctionBlocks))
	ctrl.AddChild(serializeTags(p.Controller.Tags))
	ctrl.AddChild(serializePrograms(p.Programs))
	ctrl.AddChild(serializeTasks(p.Programs))
	return ctrl
}

func serializeDataTypes(userTypes []*ir.UserType) *xmlelem.Element {
	dts := xmlelem.NewElement("DataTypes")
	for _, bt := range fixedBaseTypes {
		dts.AddChild(xmlelem.NewElement("DataType", xmlelem.A("Name", bt), xmlelem.A("Family", "ElementaryTypes")))
	}
	for _, ut := range userTypes {
		dt := xmlelem.NewElement("DataType", xmlelem.A("Name", ut.Name), xmlelem.A("Family", ut.BaseType))
		if ut.Description != "" {
			dt.AddChild(&xmlelem.Element{Name: "Description", Text: ut.Description})
		}
		members := xmlelem.NewElement("Members")
		for _, m := range ut.Members {
			members.AddChild(xmlelem.NewElement("Member",
				xmlelem.A("Name", m.Name),
				xmlelem.A("DataType", m.DataType),
				xmlelem.A("Radix", m.Radix),
				xmlelem.A("ExternalAccess", m.ExternalAccess),
			))
		}
		dt.AddChild(members)
		dts.AddChild(dt)
	}
	return dts
}

func serializeFunctionBlocks(fbs []*ir.FunctionBlock) *xmlelem.Element {
	aois := xmlelem.NewElement("AddOnInstructionDefinitions")
	for _, fb := range fbs {
		aoi := xmlelem.NewElement("AddOnInstructionDefinition",
			xmlelem.A("Name", fb.Name),
			xmlelem.A("Description", fb.Description),
		)
		params := xmlelem.NewElement("Parameters")
		var locals *xmlelem.Element
		for _, p := range fb.Parameters {
			params.AddChild(xmlelem.NewElement("Parameter",
				xmlelem.A("Name", p.Name),
				xmlelem.A("DataType", p.DataType),
				xmlelem.A("Usage", p.Direction.String()),
				xmlelem.A("Required", boolAttr(p.Required)),
			))
		}
		aoi.AddChild(params)
		if len(fb.LocalVariables) > 0 {
			locals = xmlelem.NewElement("LocalTags")
			for _, t := range fb.LocalVariables {
				locals.AddChild(xmlelem.NewElement("Tag", xmlelem.A("Name", t.Name), xmlelem.A("DataType", t.BaseType)))
			}
			aoi.AddChild(locals)
		}
		routines := xmlelem.NewElement("Routines")
		logic := xmlelem.NewElement("Routine", xmlelem.A("Name", "Logic"), xmlelem.A("Type", "ST"))
		logic.AddChild(xmlelem.CDATAChild("Text", fb.Implementation))
		routines.AddChild(logic)
		aoi.AddChild(routines)
		aois.AddChild(aoi)
	}
	return aois
}

func boolAttr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func serializeTags(tags []*ir.Tag) *xmlelem.Element {
	tagsEl := xmlelem.NewElement("Tags")
	for _, t := range tags {
		tagsEl.AddChild(serializeOneTag(t))
	}
	return tagsEl
}

func serializeOneTag(t *ir.Tag) *xmlelem.Element {
	attrs := []xmlelem.Attr{
		xmlelem.A("Name", t.Name),
		xmlelem.A("DataType", t.BaseType),
		xmlelem.A("Radix", t.Radix),
		xmlelem.A("Constant", boolAttr(t.Constant)),
	}
	if t.AliasFor != "" {
		attrs = append(attrs, xmlelem.A("AliasFor", t.AliasFor))
	}
	if t.Dimensions != "" {
		attrs = append(attrs, xmlelem.A("Dimension", t.Dimensions))
	}
	tagEl := xmlelem.NewElement("Tag", attrs...)
	if t.Description != "" {
		tagEl.AddChild(&xmlelem.Element{Name: "Description", Text: t.Description})
	}
	tagEl.AddChild(xmlelem.NewElement("Data", xmlelem.A("Format", "Decorated")))
	tagEl.AddChild(&xmlelem.Element{Name: "Value", Text: t.Value})
	return tagEl
}

func serializePrograms(programs []*ir.Program) *xmlelem.Element {
	progsEl := xmlelem.NewElement("Programs")
	for _, p := range programs {
		progEl := xmlelem.NewElement("Program",
			xmlelem.A("Name", p.Name),
			xmlelem.A("MainRoutineName", p.MainRoutine),
		)
		if p.Description != "" {
			progEl.AddChild(&xmlelem.Element{Name: "Description", Text: p.Description})
		}
		progEl.AddChild(serializeTags(p.Tags))
		routinesEl := xmlelem.NewElement("Routines")
		for _, r := range p.Routines {
			routineEl := xmlelem.NewElement("Routine", xmlelem.A("Name", r.Name), xmlelem.A("Type", r.Kind.String()))
			routineEl.AddChild(xmlelem.CDATAChild("Text", r.Content))
			routinesEl.AddChild(routineEl)
		}
		progEl.AddChild(routinesEl)
		progsEl.AddChild(progEl)
	}
	return progsEl
}

// serializeTasks emits a single continuous MainTask scheduling MainProgram
// when present, or the first program otherwise, per spec.md §4.6.
func serializeTasks(programs []*ir.Program) *xmlelem.Element {
	tasks := xmlelem.NewElement("Tasks")
	task := xmlelem.NewElement("Task", xmlelem.A("Name", "MainTask"), xmlelem.A("Type", "CONTINUOUS"))
	scheduled := xmlelem.NewElement("ScheduledPrograms")
	if name := mainTaskProgramName(programs); name != "" {
		scheduled.AddChild(xmlelem.NewElement("ScheduledProgram", xmlelem.A("Name", name)))
	}
	task.AddChild(scheduled)
	tasks.AddChild(task)
	return tasks
}

func mainTaskProgramName(programs []*ir.Program) string {
	for _, p := range programs {
		if p.Name == "MainProgram" {
			return p.Name
		}
	}
	if len(programs) > 0 {
		return programs[0].Name
	}
	return ""
}
