// Package schema is the single source of truth for entity shapes: it
// discovers, parses, validates, and caches declarative YAML entity schemas
// (spec §4.1, component C3). The SQL query builder, type converter, result
// parser, and Prisma-fragment generator all read their contract from the
// types defined here.
package schema

// FieldType is the closed set of field types spec §3.1 allows.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeText     FieldType = "text"
	TypeEmail    FieldType = "email"
	TypeUUID     FieldType = "uuid"
	TypeCUID     FieldType = "cuid"
	TypeNumber   FieldType = "number"
	TypeBigInt   FieldType = "bigint"
	TypeBoolean  FieldType = "boolean"
	TypeTimestamp FieldType = "timestamp"
	TypeDate     FieldType = "date"
	TypeDatetime FieldType = "datetime"
	TypeJSON     FieldType = "json"
	TypeEnum     FieldType = "enum"
	TypeInteger  FieldType = "integer"
	TypeFloat    FieldType = "float"
	TypeDouble   FieldType = "double"
)

var validFieldTypes = map[FieldType]bool{
	TypeString: true, TypeText: true, TypeEmail: true, TypeUUID: true,
	TypeCUID: true, TypeNumber: true, TypeBigInt: true, TypeBoolean: true,
	TypeTimestamp: true, TypeDate: true, TypeDatetime: true, TypeJSON: true,
	TypeEnum: true, TypeInteger: true, TypeFloat: true, TypeDouble: true,
}

// IsValidFieldType reports whether t is one of the closed set of field
// types spec §3.1 allows.
func IsValidFieldType(t FieldType) bool { return validFieldTypes[t] }

// IntegerLike reports whether a field of this type is bound and read back
// as a 64-bit integer (spec §4.2 C7: "type ∈ {number, bigint} → JSON number
// from the engine's 64-bit integer read").
func (t FieldType) IntegerLike() bool {
	return t == TypeNumber || t == TypeBigInt || t == TypeInteger
}

// Field is a single column-equivalent in an entity schema (spec §3.1).
type Field struct {
	Name        string
	Type        FieldType
	Required    bool
	Unique      bool
	Primary     bool
	Generated   bool
	Nullable    bool
	Index       bool
	ReadOnly    bool // from original_source field_parser.cpp: rejected on write, allowed on read
	Default     *string
	References  *string
	MinLength   *int
	MaxLength   *int
	Pattern     *string
	Description string
	EnumValues  []string
}

// Index is a (possibly composite) index over fields in the same schema.
type Index struct {
	Fields []string
	Unique bool
	Name   string
}

// RelationKind is the closed set of relation kinds spec §3.1 allows.
type RelationKind string

const (
	RelationBelongsTo   RelationKind = "belongs-to"
	RelationHasOne      RelationKind = "has-one"
	RelationHasMany     RelationKind = "has-many"
	RelationManyToMany  RelationKind = "many-to-many"
	RelationPolymorphic RelationKind = "polymorphic"
)

// ReferentialAction is one of the standard FK actions spec §3.1 allows.
type ReferentialAction string

const (
	ActionCascade  ReferentialAction = "cascade"
	ActionSetNull  ReferentialAction = "set_null"
	ActionRestrict ReferentialAction = "restrict"
	ActionNoAction ReferentialAction = "no_action"
)

// Relation describes a relationship to another entity, used only by the
// Prisma-fragment generator (C13) — the SQL adapter core does not follow
// relations itself (spec §1 Non-goals: no cross-entity query planning).
type Relation struct {
	Name       string
	Kind       RelationKind
	Entity     string
	ForeignKey string
	Nullable   bool
	OnDelete   ReferentialAction
	OnUpdate   ReferentialAction
	// TypeField holds the discriminator column for Kind == RelationPolymorphic
	// (original_source relation_parser.cpp).
	TypeField string
}

// ACL maps each CRUD action to a role → allowed map. Absence of a role for
// an action means denied (spec §3.1).
type ACL struct {
	Create map[string]bool
	Read   map[string]bool
	Update map[string]bool
	Delete map[string]bool
}

// Schema is the complete, validated definition of one entity.
type Schema struct {
	Name        string
	DisplayName string
	Description string
	Version     string
	Fields      []Field
	Indexes     []Index
	Relations   []Relation
	Metadata    map[string]string
	ACL         *ACL
}

// FieldByName returns the field with the given name, or nil.
func (s *Schema) FieldByName(name string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// PrimaryField returns the schema's primary field, or nil if none is marked
// (spec §3.1: zero primary fields is a warning, not an error).
func (s *Schema) PrimaryField() *Field {
	for i := range s.Fields {
		if s.Fields[i].Primary {
			return &s.Fields[i]
		}
	}
	return nil
}

// HasField reports whether name is a declared field of this schema.
func (s *Schema) HasField(name string) bool {
	return s.FieldByName(name) != nil
}
