// Package prisma emits Prisma schema DSL fragments from a validated entity
// schema (spec §4.1, component C13): datasource/generator blocks, one model
// per entity, one enum per enum-typed field, and relation/index annotations.
// It writes fragments, not files — the caller decides where the DSL ends up
// (original_source's PrismaFileWriter always wrote to a fixed temp path,
// which this module's boundary contract leaves to the orchestrator instead).
package prisma

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"dbal/internal/obs"
	"dbal/internal/schema"
)

// Generator renders Prisma DSL fragments. The zero value is usable; New only
// exists to inject a logger for the unknown-field-type warning.
type Generator struct {
	log *zerolog.Logger
}

// New builds a Generator that logs fallback warnings through logger. A nil
// logger falls back to obs.L().
func New(logger *zerolog.Logger) *Generator {
	return &Generator{log: logger}
}

func (g *Generator) logger() *zerolog.Logger {
	if g.log != nil {
		return g.log
	}
	return obs.L()
}

// Datasource renders the `datasource db { ... }` block. provider is the
// Prisma provider name ("postgresql", "mysql", or "sqlite") — the original
// generator hard-coded "postgresql"; this module supports all three dialects
// (spec §5) so the provider is threaded through from the caller's dialect
// instead.
func (g *Generator) Datasource(provider string) string {
	return fmt.Sprintf("datasource db {\n  provider = %q\n  url      = env(\"DATABASE_URL\")\n}", provider)
}

// Client renders the `generator client { ... }` block.
func (g *Generator) Client(output string) string {
	if output == "" {
		output = "../node_modules/.prisma/client"
	}
	return fmt.Sprintf("generator client {\n  provider = \"prisma-client-js\"\n  output   = %q\n}", output)
}

var fieldTypeMap = map[schema.FieldType]string{
	schema.TypeUUID:      "String",
	schema.TypeCUID:      "String",
	schema.TypeString:    "String",
	schema.TypeText:      "String",
	schema.TypeEmail:     "String",
	schema.TypeInteger:   "Int",
	schema.TypeNumber:    "Int",
	schema.TypeBigInt:    "BigInt",
	schema.TypeFloat:     "Float",
	schema.TypeDouble:    "Float",
	schema.TypeBoolean:   "Boolean",
	schema.TypeTimestamp: "DateTime",
	schema.TypeDate:      "DateTime",
	schema.TypeDatetime:  "DateTime",
	schema.TypeJSON:      "Json",
	schema.TypeEnum:      "String", // overridden with the enum name in fieldPrismaType
}

// fieldPrismaType resolves a field's Prisma type name. Enum fields resolve to
// a dedicated enum type named after the model and field; unrecognized types
// fall back to String with a logged warning (spec §4.1).
func (g *Generator) fieldPrismaType(modelName string, f schema.Field) string {
	if f.Type == schema.TypeEnum {
		return enumTypeName(modelName, f.Name)
	}
	if t, ok := fieldTypeMap[f.Type]; ok {
		return t
	}
	g.logger().Warn().Str("type", string(f.Type)).Str("field", f.Name).Msg("unknown field type, using String")
	return "String"
}

// enumTypeName names the Prisma enum generated for an enum-typed field:
// <Model><Field> in PascalCase, e.g. Document.status -> DocumentStatus.
func enumTypeName(modelName, fieldName string) string {
	return capitalize(modelName) + capitalize(fieldName)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// toSnakeCase mirrors the original generator's char-by-char conversion:
// every uppercase letter other than the first character gets a preceding
// underscore before being lowercased.
func toSnakeCase(name string) string {
	var out strings.Builder
	for i, c := range name {
		if c >= 'A' && c <= 'Z' {
			if i > 0 {
				out.WriteByte('_')
			}
			out.WriteRune(c - 'A' + 'a')
		} else {
			out.WriteRune(c)
		}
	}
	return out.String()
}

// fieldAttributes renders the `@id`/`@default(...)`/`@unique`/`@map(...)`
// attribute list for one field, in the original generator's fixed order.
func fieldAttributes(f schema.Field) string {
	var attrs []string

	if f.Primary {
		attrs = append(attrs, "@id")
	}

	if f.Generated {
		switch f.Type {
		case schema.TypeUUID:
			attrs = append(attrs, "@default(uuid())")
		case schema.TypeCUID:
			attrs = append(attrs, "@default(cuid())")
		case schema.TypeBigInt, schema.TypeTimestamp:
			attrs = append(attrs, "@default(now())")
		case schema.TypeInteger, schema.TypeNumber:
			attrs = append(attrs, "@default(autoincrement())")
		}
	}

	if f.Default != nil && !f.Generated {
		def := *f.Default
		switch f.Type {
		case schema.TypeString, schema.TypeText, schema.TypeEmail:
			attrs = append(attrs, fmt.Sprintf("@default(%q)", def))
		case schema.TypeBoolean, schema.TypeInteger, schema.TypeNumber, schema.TypeBigInt, schema.TypeFloat, schema.TypeDouble:
			attrs = append(attrs, fmt.Sprintf("@default(%s)", def))
		}
	}

	if f.Unique {
		attrs = append(attrs, "@unique")
	}

	if strings.Contains(f.Name, "Id") && f.Name != "id" {
		if mapped := toSnakeCase(f.Name); mapped != f.Name {
			attrs = append(attrs, fmt.Sprintf("@map(%q)", mapped))
		}
	}

	return strings.Join(attrs, " ")
}

// Field renders a single `name Type[?] [attrs]` line, without the leading
// indentation the enclosing model block adds.
func (g *Generator) Field(modelName string, f schema.Field) string {
	var out strings.Builder
	out.WriteString(f.Name)
	out.WriteByte(' ')
	out.WriteString(g.fieldPrismaType(modelName, f))
	if f.Nullable {
		out.WriteByte('?')
	}
	if attrs := fieldAttributes(f); attrs != "" {
		out.WriteByte(' ')
		out.WriteString(attrs)
	}
	return out.String()
}

// Indexes renders the `@@index(...)` block attribute lines for a schema, one
// per declared index, indented for inclusion inside a model block.
func Indexes(s *schema.Schema) string {
	if len(s.Indexes) == 0 {
		return ""
	}
	var out strings.Builder
	for _, idx := range s.Indexes {
		out.WriteString("  @@index([")
		out.WriteString(strings.Join(idx.Fields, ", "))
		out.WriteByte(']')
		if idx.Unique {
			out.WriteString(", type: Unique")
		}
		if idx.Name != "" {
			out.WriteString(fmt.Sprintf(", name: %q", idx.Name))
		}
		out.WriteString(")\n")
	}
	return out.String()
}

// onDeleteAction maps a referential action to its Prisma @relation keyword.
func onDeleteAction(a schema.ReferentialAction) string {
	switch a {
	case schema.ActionCascade:
		return "Cascade"
	case schema.ActionSetNull:
		return "SetNull"
	case schema.ActionRestrict:
		return "Restrict"
	default:
		return "NoAction"
	}
}

// Relation renders a single relation field line per relation kind. Prisma has
// no native representation for polymorphic associations, so those render as
// a plain optional Json column, matching the original generator's fallback.
func Relation(r schema.Relation) string {
	entity := capitalize(r.Entity)
	switch r.Kind {
	case schema.RelationBelongsTo:
		var out strings.Builder
		out.WriteString(r.Name)
		out.WriteByte(' ')
		out.WriteString(entity)
		if r.Nullable {
			out.WriteByte('?')
		}
		out.WriteString(fmt.Sprintf(" @relation(fields: [%s], references: [id]", r.ForeignKey))
		if r.OnDelete != "" && r.OnDelete != schema.ActionNoAction {
			out.WriteString(", onDelete: " + onDeleteAction(r.OnDelete))
		}
		if r.OnUpdate != "" && r.OnUpdate != schema.ActionNoAction {
			out.WriteString(", onUpdate: " + onDeleteAction(r.OnUpdate))
		}
		out.WriteByte(')')
		return out.String()
	case schema.RelationHasOne:
		return fmt.Sprintf("%s %s?", r.Name, entity)
	case schema.RelationHasMany, schema.RelationManyToMany:
		return fmt.Sprintf("%s %s[]", r.Name, entity)
	case schema.RelationPolymorphic:
		return fmt.Sprintf("%s Json?", r.Name)
	default:
		return fmt.Sprintf("%s %s?", r.Name, entity)
	}
}

// Enum renders an `enum Name { values... }` block.
func Enum(name string, values []string) string {
	var out strings.Builder
	out.WriteString("enum " + name + " {\n")
	for _, v := range values {
		out.WriteString("  " + v + "\n")
	}
	out.WriteString("}")
	return out.String()
}

// Model renders a full `model Name { ... }` block: fields, then relations,
// then index block attributes.
func (g *Generator) Model(s *schema.Schema) string {
	modelName := capitalize(s.Name)

	var out strings.Builder
	out.WriteString("model " + modelName + " {\n")

	for _, f := range s.Fields {
		out.WriteString("  " + g.Field(modelName, f) + "\n")
	}

	for _, r := range s.Relations {
		out.WriteString("  " + Relation(r) + "\n")
	}

	if idx := Indexes(s); idx != "" {
		out.WriteString("\n" + idx)
	}

	out.WriteString("}")
	return out.String()
}

// Enums collects the enum blocks implied by a schema's enum-typed fields, in
// field declaration order.
func (g *Generator) Enums(s *schema.Schema) []string {
	modelName := capitalize(s.Name)
	var out []string
	for _, f := range s.Fields {
		if f.Type != schema.TypeEnum || len(f.EnumValues) == 0 {
			continue
		}
		out = append(out, Enum(enumTypeName(modelName, f.Name), f.EnumValues))
	}
	return out
}

// SchemaDocument assembles a complete .prisma document for a set of entity
// schemas: one datasource block, one generator block, then each model's enum
// blocks followed by the model block, entities sorted by name for
// deterministic output (spec §4.1's ordering-determinism goal).
func (g *Generator) SchemaDocument(provider, clientOutput string, schemas []*schema.Schema) string {
	sorted := make([]*schema.Schema, len(schemas))
	copy(sorted, schemas)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	parts := []string{g.Datasource(provider), g.Client(clientOutput)}
	for _, s := range sorted {
		parts = append(parts, g.Enums(s)...)
		parts = append(parts, g.Model(s))
	}
	return strings.Join(parts, "\n\n")
}
