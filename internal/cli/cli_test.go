package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
postgrest:
  url: http://rest:3000
  schema: crm
log:
  level: error
primary_keys:
  contact_tags: [contact_id, tag_id]
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crmgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--config", path))
	err := root.Execute()
	return out.String(), err
}

func TestCompile(t *testing.T) {
	out, err := run(t, "compile", "contacts",
		"--filter", `{"status":["hot","warm"]}`,
		"--sort", "last_seen", "--order", "desc",
		"--page", "2", "--per-page", "25")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{
		"GET http://rest:3000/contacts?limit=25&offset=25&order=last_seen.desc&status=in.%28hot%2Cwarm%29",
		"Accept: application/json",
		"Accept-Profile: crm",
		"Prefer: count=exact",
	}, lines)
}

func TestCompileCompoundSortAndNulls(t *testing.T) {
	out, err := run(t, "compile", "contact_tags", "--sort", "id", "--nulls", "first", "--columns", "contact_id,note")
	require.NoError(t, err)
	assert.Contains(t, out, "order=contact_id.asc.nullsfirst%2Ctag_id.asc.nullsfirst")
	assert.Contains(t, out, "select=contact_id%2Cnote")
}

func TestCompileBadFilter(t *testing.T) {
	_, err := run(t, "compile", "contacts", "--filter", `{"company":`)
	assert.ErrorContains(t, err, "--filter")

	_, err = run(t, "compile", "contacts", "--nulls", "sideways")
	assert.ErrorContains(t, err, "nulls_policy")
}

func TestIDEncodeDecode(t *testing.T) {
	out, err := run(t, "id", "encode", "contact_tags", `{"contact_id":1,"tag_id":"x","note":"n"}`)
	require.NoError(t, err)
	assert.Equal(t, `[1,"x"]`, strings.TrimSpace(out))

	out, err = run(t, "id", "decode", "contact_tags", `[1,"x"]`)
	require.NoError(t, err)
	assert.Equal(t, `{"contact_id":1,"tag_id":"x"}`, strings.TrimSpace(out))

	out, err = run(t, "id", "encode", "contacts", `{"id":7}`)
	require.NoError(t, err)
	assert.Equal(t, "7", strings.TrimSpace(out))

	_, err = run(t, "id", "decode", "contact_tags", `[1]`)
	assert.Error(t, err)
}

func TestCatalogIssuesBlock(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keys.yaml"), []byte(`
resources:
  - name: deals
    primary_key: []
`), 0o644))
	_, err := run(t, "compile", "deals", "--keys-dir", dir)
	assert.ErrorContains(t, err, "blocking issue")
}

func TestCatalogKeysUsed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keys.yaml"), []byte(`
resources:
  - name: deals
    primary_key: [company_id, deal_no]
`), 0o644))
	out, err := run(t, "id", "encode", "deals", `{"company_id":3,"deal_no":9}`, "--keys-dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "[3,9]", strings.TrimSpace(out))
}
