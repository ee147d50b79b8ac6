package prisma

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dbal/internal/schema"
)

func ptr(s string) *string { return &s }

func TestFieldRendersIDAttribute(t *testing.T) {
	g := New(nil)
	f := schema.Field{Name: "id", Type: schema.TypeUUID, Primary: true, Generated: true}
	assert.Equal(t, `id String @id @default(uuid())`, g.Field("document", f))
}

func TestFieldRendersMapForCompositeId(t *testing.T) {
	g := New(nil)
	f := schema.Field{Name: "tenantId", Type: schema.TypeUUID}
	assert.Equal(t, `tenantId String @map("tenant_id")`, g.Field("document", f))
}

func TestFieldDoesNotMapBareID(t *testing.T) {
	g := New(nil)
	f := schema.Field{Name: "id", Type: schema.TypeUUID}
	assert.Equal(t, `id String`, g.Field("document", f))
}

func TestFieldRendersNullableAndDefault(t *testing.T) {
	g := New(nil)
	f := schema.Field{Name: "title", Type: schema.TypeString, Nullable: true, Default: ptr("untitled")}
	assert.Equal(t, `title String? @default("untitled")`, g.Field("document", f))
}

func TestFieldRendersUnique(t *testing.T) {
	g := New(nil)
	f := schema.Field{Name: "slug", Type: schema.TypeString, Unique: true}
	assert.Equal(t, `slug String @unique`, g.Field("document", f))
}

func TestFieldUnknownTypeFallsBackToString(t *testing.T) {
	g := New(nil)
	f := schema.Field{Name: "weird", Type: schema.FieldType("mystery")}
	assert.Equal(t, `weird String`, g.Field("document", f))
}

func TestFieldEnumUsesDedicatedEnumType(t *testing.T) {
	g := New(nil)
	f := schema.Field{Name: "status", Type: schema.TypeEnum, EnumValues: []string{"draft", "published"}}
	assert.Equal(t, `status DocumentStatus`, g.Field("document", f))
}

func TestEnumsCollectsOnlyEnumFields(t *testing.T) {
	g := New(nil)
	s := &schema.Schema{
		Name: "document",
		Fields: []schema.Field{
			{Name: "id", Type: schema.TypeUUID, Primary: true},
			{Name: "status", Type: schema.TypeEnum, EnumValues: []string{"draft", "published"}},
		},
	}
	enums := g.Enums(s)
	assert.Len(t, enums, 1)
	assert.Equal(t, "enum DocumentStatus {\n  draft\n  published\n}", enums[0])
}

func TestIndexesRendersUniqueAndNamed(t *testing.T) {
	s := &schema.Schema{
		Name:    "document",
		Indexes: []schema.Index{{Fields: []string{"owner_id", "status"}, Unique: true, Name: "idx_owner_status"}},
	}
	assert.Equal(t, `  @@index([owner_id, status], type: Unique, name: "idx_owner_status")`+"\n", Indexes(s))
}

func TestRelationBelongsToWithCascade(t *testing.T) {
	r := schema.Relation{Name: "owner", Kind: schema.RelationBelongsTo, Entity: "user", ForeignKey: "owner_id", OnDelete: schema.ActionCascade}
	assert.Equal(t, `owner User @relation(fields: [owner_id], references: [id], onDelete: Cascade)`, Relation(r))
}

func TestRelationHasMany(t *testing.T) {
	r := schema.Relation{Name: "comments", Kind: schema.RelationHasMany, Entity: "comment"}
	assert.Equal(t, `comments Comment[]`, Relation(r))
}

func TestRelationPolymorphicRendersJSON(t *testing.T) {
	r := schema.Relation{Name: "subject", Kind: schema.RelationPolymorphic, Entity: "any", TypeField: "subject_type"}
	assert.Equal(t, `subject Json?`, Relation(r))
}

func TestModelAssemblesFieldsRelationsAndIndexes(t *testing.T) {
	g := New(nil)
	s := &schema.Schema{
		Name: "document",
		Fields: []schema.Field{
			{Name: "id", Type: schema.TypeUUID, Primary: true, Generated: true},
			{Name: "ownerId", Type: schema.TypeUUID},
		},
		Relations: []schema.Relation{
			{Name: "owner", Kind: schema.RelationBelongsTo, Entity: "user", ForeignKey: "ownerId"},
		},
		Indexes: []schema.Index{{Fields: []string{"ownerId"}, Name: "idx_owner"}},
	}
	out := g.Model(s)
	assert.Contains(t, out, "model Document {")
	assert.Contains(t, out, `id String @id @default(uuid())`)
	assert.Contains(t, out, `ownerId String @map("owner_id")`)
	assert.Contains(t, out, `owner User @relation(fields: [ownerId], references: [id])`)
	assert.Contains(t, out, `@@index([ownerId], name: "idx_owner")`)
}

func TestSchemaDocumentOrdersModelsDeterministically(t *testing.T) {
	g := New(nil)
	zebra := &schema.Schema{Name: "zebra", Fields: []schema.Field{{Name: "id", Type: schema.TypeUUID, Primary: true}}}
	apple := &schema.Schema{Name: "apple", Fields: []schema.Field{{Name: "id", Type: schema.TypeUUID, Primary: true}}}

	doc := g.SchemaDocument("postgresql", "", []*schema.Schema{zebra, apple})
	assert.True(t, contains(doc, "datasource db {"))
	assert.True(t, contains(doc, "generator client {"))
	appleIdx := index(doc, "model Apple")
	zebraIdx := index(doc, "model Zebra")
	assert.Less(t, appleIdx, zebraIdx)
}

func contains(s, sub string) bool { return index(s, sub) >= 0 }

func index(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
