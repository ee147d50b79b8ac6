package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCollectsAllErrors(t *testing.T) {
	minLen, maxLen := 10, 5
	s := &Schema{
		Name: "broken",
		Fields: []Field{
			{Name: "id", Type: TypeUUID, Primary: true},
			{Name: "id", Type: TypeString},
			{Name: "bogus", Type: FieldType("not-real")},
			{Name: "range", Type: TypeString, MinLength: &minLen, MaxLength: &maxLen},
		},
		Indexes: []Index{{Name: "idx_missing", Fields: []string{"nonexistent"}}},
	}

	r := Validate(s)
	require.False(t, r.Valid())
	assert.GreaterOrEqual(t, len(r.Errors), 4)
}

func TestValidateWarnsOnMissingPrimary(t *testing.T) {
	s := &Schema{
		Name:   "no_primary",
		Fields: []Field{{Name: "name", Type: TypeString}},
	}
	r := Validate(s)
	assert.True(t, r.Valid())
	assert.Contains(t, joinedWarnings(r), "no primary field")
}

func TestValidateRejectsMultiplePrimaries(t *testing.T) {
	s := &Schema{
		Name: "double_primary",
		Fields: []Field{
			{Name: "a", Type: TypeUUID, Primary: true},
			{Name: "b", Type: TypeUUID, Primary: true},
		},
	}
	r := Validate(s)
	assert.False(t, r.Valid())
}

func TestValidateRejectsUnrecognizedRelationKind(t *testing.T) {
	s := &Schema{
		Name:      "bad_relation",
		Fields:    []Field{{Name: "id", Type: TypeUUID, Primary: true}},
		Relations: []Relation{{Name: "owner", Entity: "user", Kind: RelationKind("bogus")}},
	}
	r := Validate(s)
	assert.False(t, r.Valid())
}

func TestValidatePolymorphicRelationRequiresTypeField(t *testing.T) {
	s := &Schema{
		Name:      "commentable",
		Fields:    []Field{{Name: "id", Type: TypeUUID, Primary: true}},
		Relations: []Relation{{Name: "subject", Entity: "any", Kind: RelationPolymorphic}},
	}
	r := Validate(s)
	assert.False(t, r.Valid())
	assert.Contains(t, joinedErrors(r), "typeField")
}

func TestValidateAcceptsWellFormedRelation(t *testing.T) {
	s := &Schema{
		Name:   "comment",
		Fields: []Field{{Name: "id", Type: TypeUUID, Primary: true}},
		Relations: []Relation{
			{Name: "owner", Entity: "user", Kind: RelationBelongsTo, ForeignKey: "owner_id", OnDelete: ActionCascade},
		},
	}
	r := Validate(s)
	assert.True(t, r.Valid())
}

func joinedErrors(r *ValidationResult) string {
	out := ""
	for _, e := range r.Errors {
		out += e + "\n"
	}
	return out
}

func joinedWarnings(r *ValidationResult) string {
	out := ""
	for _, w := range r.Warnings {
		out += w + "\n"
	}
	return out
}
