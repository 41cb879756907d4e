package reference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmgate/internal/postgrest"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadKeyCatalogs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "10_crm.yaml", `
name: crm
resources:
  - name: contact_tags
    primary_key: [contact_id, tag_id]
  - name: companies
    primary_key: [id]
`)
	writeFile(t, dir, "20_override.yml", `
resources:
  - name: companies
    primary_key: [slug]
`)
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	cats, err := LoadKeyCatalogs(dir)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "crm", cats[0].Name)
	assert.Equal(t, "20_override", cats[1].Name)

	keys := Merge(postgrest.PrimaryKeyMap{"deals": {"id"}}, cats...)
	assert.Equal(t, postgrest.PrimaryKeyMap{
		"deals":        {"id"},
		"contact_tags": {"contact_id", "tag_id"},
		"companies":    {"slug"},
	}, keys)
	assert.Empty(t, Lint(cats))
}

func TestLoadKeyCatalogsErrors(t *testing.T) {
	_, err := LoadKeyCatalogs(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", "resources: [unclosed")
	_, err = LoadKeyCatalogs(dir)
	assert.ErrorContains(t, err, "bad.yaml")
}

func TestLint(t *testing.T) {
	issues := Lint([]KeyCatalog{{
		Name: "c",
		Resources: []ResourceKey{
			{Name: ""},
			{Name: "a", PrimaryKey: []string{"x"}},
			{Name: "a", PrimaryKey: []string{"x", "x"}},
			{Name: "b"},
			{Name: "d", PrimaryKey: []string{"col@x", " "}},
		},
	}})

	codes := make([]string, 0, len(issues))
	for _, it := range issues {
		codes = append(codes, it.Code)
	}
	assert.Equal(t, []string{
		"resource_name_empty",
		"resource_duplicate",
		"column_duplicate",
		"primary_key_empty",
		"column_reserved_char",
		"column_empty",
	}, codes)
}
