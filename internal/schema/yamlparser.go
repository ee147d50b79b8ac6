package schema

import (
	"gopkg.in/yaml.v3"

	"dbal/internal/dbalerr"
)

// parseDocument turns raw YAML bytes into a Schema, before validation.
// Field iteration order is preserved from the source document (spec §4.1:
// "iteration order must be preserved so downstream SQL columns and index
// lists are deterministic") by walking the "fields" mapping node's Content
// pairs directly rather than decoding into a Go map, which gopkg.in/yaml.v3
// would otherwise randomize.
func parseDocument(data []byte) (*Schema, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, dbalerr.ValidationError("yaml syntax error: %v", err)
	}
	if len(root.Content) == 0 {
		return nil, dbalerr.ValidationError("empty yaml document")
	}
	doc := root.Content[0]

	var rawTop struct {
		Entity      string            `yaml:"entity"`
		Name        string            `yaml:"name"`
		DisplayName string            `yaml:"displayName"`
		Description string            `yaml:"description"`
		Version     string            `yaml:"version"`
		Indexes     []rawIndex        `yaml:"indexes"`
		ACL         *rawACL           `yaml:"acl"`
		Relations   []rawRelation     `yaml:"relations"`
		Metadata    map[string]string `yaml:"metadata"`
	}
	if err := doc.Decode(&rawTop); err != nil {
		return nil, dbalerr.ValidationError("yaml structure error: %v", err)
	}

	name := rawTop.Entity
	if name == "" {
		name = rawTop.Name
	}

	version := rawTop.Version
	if version == "" {
		version = "1.0"
	}

	fieldsNode := findMappingValue(doc, "fields")
	fields, err := parseFields(fieldsNode)
	if err != nil {
		return nil, err
	}

	s := &Schema{
		Name:        name,
		DisplayName: rawTop.DisplayName,
		Description: rawTop.Description,
		Version:     version,
		Fields:      fields,
		Indexes:     parseIndexes(rawTop.Indexes),
		Relations:   parseRelations(rawTop.Relations),
		Metadata:    rawTop.Metadata,
		ACL:         parseACL(rawTop.ACL),
	}
	return s, nil
}

// findMappingValue returns the value node paired with key in a top-level
// mapping node, or nil if absent.
func findMappingValue(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// rawField is the permissive decode target for one field definition,
// accepting both camelCase and snake_case variants (spec §4.1: "Each field
// accepts both minLength/min_length and maxLength/max_length").
type rawField struct {
	Type        string   `yaml:"type"`
	Required    bool     `yaml:"required"`
	Unique      bool     `yaml:"unique"`
	Primary     bool     `yaml:"primary"`
	Generated   bool     `yaml:"generated"`
	Nullable    bool     `yaml:"nullable"`
	Index       bool     `yaml:"index"`
	ReadOnly    bool     `yaml:"readOnly"`
	Default     *string  `yaml:"default"`
	References  *string  `yaml:"references"`
	MinLengthA  *int     `yaml:"minLength"`
	MinLengthB  *int     `yaml:"min_length"`
	MaxLengthA  *int     `yaml:"maxLength"`
	MaxLengthB  *int     `yaml:"max_length"`
	Pattern     *string  `yaml:"pattern"`
	Description string   `yaml:"description"`
	Values      []string `yaml:"values"`
}

func (r rawField) minLength() *int {
	if r.MinLengthA != nil {
		return r.MinLengthA
	}
	return r.MinLengthB
}

func (r rawField) maxLength() *int {
	if r.MaxLengthA != nil {
		return r.MaxLengthA
	}
	return r.MaxLengthB
}

// parseFields walks the "fields" mapping node in document order, decoding
// each value into a Field while preserving key order.
func parseFields(node *yaml.Node) ([]Field, error) {
	if node == nil {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, dbalerr.ValidationError("\"fields\" must be a mapping of field name to field definition")
	}

	fields := make([]Field, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var rf rawField
		if err := node.Content[i+1].Decode(&rf); err != nil {
			return nil, dbalerr.ValidationError("field %q: %v", name, err)
		}
		if rf.Type == string(TypeEnum) && len(rf.Values) == 0 {
			return nil, dbalerr.ValidationError("field %q: type=enum requires a non-empty \"values\" list", name)
		}
		fields = append(fields, Field{
			Name:        name,
			Type:        FieldType(rf.Type),
			Required:    rf.Required,
			Unique:      rf.Unique,
			Primary:     rf.Primary,
			Generated:   rf.Generated,
			Nullable:    rf.Nullable,
			Index:       rf.Index,
			ReadOnly:    rf.ReadOnly,
			Default:     rf.Default,
			References:  rf.References,
			MinLength:   rf.minLength(),
			MaxLength:   rf.maxLength(),
			Pattern:     rf.Pattern,
			Description: rf.Description,
			EnumValues:  rf.Values,
		})
	}
	return fields, nil
}

type rawIndex struct {
	Fields []string `yaml:"fields"`
	Unique bool     `yaml:"unique"`
	Name   string   `yaml:"name"`
}

func parseIndexes(raw []rawIndex) []Index {
	if len(raw) == 0 {
		return nil
	}
	out := make([]Index, 0, len(raw))
	for _, r := range raw {
		out = append(out, Index{Fields: r.Fields, Unique: r.Unique, Name: r.Name})
	}
	return out
}

// rawRelation is the permissive decode target for one relations: list entry.
// Field-level shape is not dictated by original_source (its RelationParser
// never actually populated relations despite the name — it only handled
// indexes and ACL); this list-of-objects form follows the indexes: shape
// already used elsewhere in the document.
type rawRelation struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"`
	Entity     string `yaml:"entity"`
	ForeignKey string `yaml:"foreignKey"`
	Nullable   bool   `yaml:"nullable"`
	OnDelete   string `yaml:"onDelete"`
	OnUpdate   string `yaml:"onUpdate"`
	TypeField  string `yaml:"typeField"`
}

func parseRelations(raw []rawRelation) []Relation {
	if len(raw) == 0 {
		return nil
	}
	out := make([]Relation, 0, len(raw))
	for _, r := range raw {
		out = append(out, Relation{
			Name:       r.Name,
			Kind:       RelationKind(r.Kind),
			Entity:     r.Entity,
			ForeignKey: r.ForeignKey,
			Nullable:   r.Nullable,
			OnDelete:   ReferentialAction(r.OnDelete),
			OnUpdate:   ReferentialAction(r.OnUpdate),
			TypeField:  r.TypeField,
		})
	}
	return out
}

type rawACL struct {
	Create map[string]bool `yaml:"create"`
	Read   map[string]bool `yaml:"read"`
	Update map[string]bool `yaml:"update"`
	Delete map[string]bool `yaml:"delete"`
}

func parseACL(raw *rawACL) *ACL {
	if raw == nil {
		return nil
	}
	return &ACL{Create: raw.Create, Read: raw.Read, Update: raw.Update, Delete: raw.Delete}
}
