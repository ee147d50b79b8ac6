package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
entity: document
displayName: Document
version: "2.0"
fields:
  id:
    type: uuid
    primary: true
    generated: true
  title:
    type: string
    required: true
    min_length: 1
    maxLength: 200
  status:
    type: enum
    values: [draft, published, archived]
    default: draft
  owner_id:
    type: uuid
    references: user.id
    readOnly: true
indexes:
  - fields: [owner_id, status]
    name: idx_owner_status
relations:
  - name: owner
    kind: belongs-to
    entity: user
    foreignKey: owner_id
    onDelete: cascade
acl:
  create:
    owner: true
    admin: true
  read:
    owner: true
    admin: true
    viewer: true
metadata:
  team: platform
`

func TestParseDocumentPreservesFieldOrder(t *testing.T) {
	s, err := parseDocument([]byte(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "document", s.Name)
	assert.Equal(t, "2.0", s.Version)

	require.Len(t, s.Fields, 4)
	assert.Equal(t, []string{"id", "title", "status", "owner_id"}, fieldNames(s.Fields))
}

func TestParseDocumentAliasesAndDefaults(t *testing.T) {
	s, err := parseDocument([]byte(sampleYAML))
	require.NoError(t, err)

	title := s.FieldByName("title")
	require.NotNil(t, title)
	require.NotNil(t, title.MinLength)
	require.NotNil(t, title.MaxLength)
	assert.Equal(t, 1, *title.MinLength)
	assert.Equal(t, 200, *title.MaxLength)

	owner := s.FieldByName("owner_id")
	require.NotNil(t, owner)
	assert.True(t, owner.ReadOnly)
	require.NotNil(t, owner.References)
	assert.Equal(t, "user.id", *owner.References)

	status := s.FieldByName("status")
	require.NotNil(t, status)
	require.NotNil(t, status.Default)
	assert.Equal(t, "draft", *status.Default)
}

func TestParseDocumentEnumRequiresValues(t *testing.T) {
	_, err := parseDocument([]byte(`
entity: bad
fields:
  status:
    type: enum
`))
	require.Error(t, err)
}

func TestParseDocumentIndexesAndACL(t *testing.T) {
	s, err := parseDocument([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, s.Indexes, 1)
	assert.Equal(t, []string{"owner_id", "status"}, s.Indexes[0].Fields)

	require.NotNil(t, s.ACL)
	assert.True(t, s.ACL.Create["owner"])
	assert.True(t, s.ACL.Read["viewer"])
	assert.False(t, s.ACL.Delete["viewer"])
}

func TestParseDocumentRelations(t *testing.T) {
	s, err := parseDocument([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, s.Relations, 1)
	rel := s.Relations[0]
	assert.Equal(t, "owner", rel.Name)
	assert.Equal(t, RelationBelongsTo, rel.Kind)
	assert.Equal(t, "user", rel.Entity)
	assert.Equal(t, "owner_id", rel.ForeignKey)
	assert.Equal(t, ActionCascade, rel.OnDelete)
}

func fieldNames(fields []Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}
