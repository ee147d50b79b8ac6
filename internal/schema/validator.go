package schema

import (
	"fmt"
	"strings"
)

// ValidationResult mirrors original_source schema_validator.hpp's
// ValidationResult: validation collects every defect instead of stopping at
// the first one, so a caller fixing a schema file sees the whole list in one
// pass.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

func (r *ValidationResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Valid reports whether no errors were collected. Warnings never affect it.
func (r *ValidationResult) Valid() bool { return len(r.Errors) == 0 }

// Validate structurally validates s and returns the aggregate result. It
// never returns early: every field, index, and ACL entry is checked even
// after an earlier one fails.
func Validate(s *Schema) *ValidationResult {
	r := &ValidationResult{}
	validateMetadata(s, r)
	validateFields(s, r)
	validateIndexes(s, r)
	validateRelations(s, r)
	validateACL(s, r)
	return r
}

func validateMetadata(s *Schema, r *ValidationResult) {
	if s.Name == "" {
		r.addError("schema is missing a name (set either \"entity\" or \"name\")")
	}
	if len(s.Fields) == 0 {
		r.addError("schema %q declares no fields", s.Name)
	}
}

func validateFields(s *Schema, r *ValidationResult) {
	seen := make(map[string]bool, len(s.Fields))
	primaryCount := 0
	for _, f := range s.Fields {
		validateField(s, f, r)
		if seen[f.Name] {
			r.addError("schema %q: duplicate field name %q", s.Name, f.Name)
		}
		seen[f.Name] = true
		if f.Primary {
			primaryCount++
		}
	}
	if primaryCount == 0 {
		r.addWarning("schema %q declares no primary field", s.Name)
	}
	if primaryCount > 1 {
		r.addError("schema %q declares %d primary fields, at most one is allowed", s.Name, primaryCount)
	}
}

func validateField(s *Schema, f Field, r *ValidationResult) {
	if f.Name == "" {
		r.addError("schema %q: field with empty name", s.Name)
	}
	if !IsValidFieldType(f.Type) {
		r.addError("schema %q: field %q has unrecognized type %q", s.Name, f.Name, f.Type)
		return
	}
	if f.Type == TypeEnum && len(f.EnumValues) == 0 {
		r.addError("schema %q: enum field %q declares no values", s.Name, f.Name)
	}
	if f.MinLength != nil && f.MaxLength != nil && *f.MinLength > *f.MaxLength {
		r.addError("schema %q: field %q has minLength %d greater than maxLength %d", s.Name, f.Name, *f.MinLength, *f.MaxLength)
	}
	if f.Primary && f.Nullable {
		r.addError("schema %q: primary field %q cannot be nullable", s.Name, f.Name)
	}
	if f.Generated && f.Required {
		r.addWarning("schema %q: field %q is both generated and required; a value is generated only when the caller omits it, and a caller-supplied value is stored as given", s.Name, f.Name)
	}
	if f.ReadOnly && f.Required && f.Default == nil && !f.Generated {
		r.addWarning("schema %q: read-only field %q is required but has neither a default nor generation, so creates can never satisfy it", s.Name, f.Name)
	}
}

func validateIndexes(s *Schema, r *ValidationResult) {
	for _, idx := range s.Indexes {
		if len(idx.Fields) == 0 {
			r.addError("schema %q: index %q declares no fields", s.Name, idx.Name)
			continue
		}
		for _, fname := range idx.Fields {
			if !s.HasField(fname) {
				r.addError("schema %q: index references unknown field %q", s.Name, fname)
			}
		}
	}
}

var validRelationKinds = map[RelationKind]bool{
	RelationBelongsTo: true, RelationHasOne: true, RelationHasMany: true,
	RelationManyToMany: true, RelationPolymorphic: true,
}

var validReferentialActions = map[ReferentialAction]bool{
	ActionCascade: true, ActionSetNull: true, ActionRestrict: true, ActionNoAction: true, "": true,
}

func validateRelations(s *Schema, r *ValidationResult) {
	for _, rel := range s.Relations {
		if rel.Name == "" {
			r.addError("schema %q: relation with empty name", s.Name)
		}
		if rel.Entity == "" {
			r.addError("schema %q: relation %q declares no target entity", s.Name, rel.Name)
		}
		if !validRelationKinds[rel.Kind] {
			r.addError("schema %q: relation %q has unrecognized kind %q", s.Name, rel.Name, rel.Kind)
			continue
		}
		if rel.Kind == RelationPolymorphic && rel.TypeField == "" {
			r.addError("schema %q: polymorphic relation %q requires typeField", s.Name, rel.Name)
		}
		if rel.Kind != RelationPolymorphic && rel.Kind != RelationManyToMany && rel.Kind != RelationHasMany && rel.ForeignKey == "" {
			r.addWarning("schema %q: relation %q has no foreignKey", s.Name, rel.Name)
		}
		if !validReferentialActions[rel.OnDelete] {
			r.addError("schema %q: relation %q has unrecognized onDelete %q", s.Name, rel.Name, rel.OnDelete)
		}
		if !validReferentialActions[rel.OnUpdate] {
			r.addError("schema %q: relation %q has unrecognized onUpdate %q", s.Name, rel.Name, rel.OnUpdate)
		}
	}
}

func validateACL(s *Schema, r *ValidationResult) {
	if s.ACL == nil {
		return
	}
	validateACLOperation(s, "create", s.ACL.Create, r)
	validateACLOperation(s, "read", s.ACL.Read, r)
	validateACLOperation(s, "update", s.ACL.Update, r)
	validateACLOperation(s, "delete", s.ACL.Delete, r)
}

var validACLRoles = map[string]bool{"owner": true, "admin": true, "member": true, "viewer": true}

func validateACLOperation(s *Schema, op string, roles map[string]bool, r *ValidationResult) {
	for role := range roles {
		if !validACLRoles[strings.ToLower(role)] {
			r.addWarning("schema %q: acl.%s references unrecognized role %q", s.Name, op, role)
		}
	}
}
