package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesMissingFile(t *testing.T) {
	o, err := LoadOverrides(t.TempDir(), "seo", "dev")
	require.NoError(t, err)
	assert.True(t, o.Empty())
	assert.Empty(t, o.Source())
	assert.False(t, o.IsOverridden("siteName"))
}

func TestLoadOverridesFlatYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "seo.yaml", "siteName: Acme\nmail:\n  host: smtp.acme.test\n")

	o, err := LoadOverrides(dir, "seo", "production")
	require.NoError(t, err)
	assert.Equal(t, path, o.Source())
	assert.Equal(t, []string{"mail.host", "siteName"}, o.Keys())
	assert.True(t, o.IsOverridden("siteName"))
	assert.True(t, o.IsOverridden("site_name"))
	assert.True(t, o.IsOverridden("mail"))
	assert.True(t, o.IsOverridden("mail.host"))
	assert.False(t, o.IsOverridden("mail.port"))
	assert.Equal(t, path, o.SourceOf("mail.host"))

	v, ok := o.Value("SITENAME")
	require.True(t, ok)
	assert.Equal(t, "Acme", v)
}

func TestLoadOverridesMultiEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "seo.yaml", `
"*":
  siteName: Acme
  debug: false
dev:
  debug: true
production:
  siteName: Acme Inc
`)
	dev, err := LoadOverrides(dir, "seo", "dev")
	require.NoError(t, err)
	assert.Equal(t, []string{"debug", "siteName"}, dev.Keys())
	v, _ := dev.Value("debug")
	assert.Equal(t, true, v)
	v, _ = dev.Value("siteName")
	assert.Equal(t, "Acme", v)

	prod, err := LoadOverrides(dir, "seo", "production")
	require.NoError(t, err)
	v, _ = prod.Value("siteName")
	assert.Equal(t, "Acme Inc", v)
	v, _ = prod.Value("debug")
	assert.Equal(t, false, v)
}

func TestLoadOverridesTOMLAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "seo.toml", "siteName = \"From File\"\nlimit = 10\n")
	writeFile(t, dir, "other.yaml", "siteName: Other\n")

	o, err := LoadOverrides(dir, "seo", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "seo.toml"), o.Source())
	v, _ := o.Value("limit")
	assert.EqualValues(t, 10, v)
}

func TestLoadOverridesEnvironmentVariables(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "seo-tools.yml", "siteName: From File\n")
	t.Setenv("SEO_TOOLS_SITE_NAME", "From Env")
	t.Setenv("SEO_TOOLS_MAIL__HOST", "smtp.env.test")

	o, err := LoadOverrides(dir, "seo-tools", "")
	require.NoError(t, err)
	assert.True(t, o.IsOverridden("siteName"))
	assert.True(t, o.IsOverridden("mail.host"))
	assert.Equal(t, "$SEO_TOOLS_MAIL__HOST", o.SourceOf("mail.host"))
	assert.Equal(t, "$SEO_TOOLS_SITE_NAME", o.SourceOf("siteName"))

	applied := o.Apply(map[string]any{
		"siteName": "Stored",
		"mail":     map[string]any{"host": "stored", "port": 25},
	})
	assert.Equal(t, "From Env", applied["siteName"])
	assert.Equal(t, map[string]any{"host": "smtp.env.test", "port": 25}, applied["mail"])
}

func TestLoadOverridesInvalidFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "seo.yaml", "siteName: [unclosed\n")
	_, err := LoadOverrides(dir, "seo", "")
	assert.Error(t, err)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "seo.yaml", "mail:\n  host: override\n")
	o, err := LoadOverrides(dir, "seo", "")
	require.NoError(t, err)

	in := map[string]any{"mail": map[string]any{"host": "stored"}}
	out := o.Apply(in)
	assert.Equal(t, "stored", in["mail"].(map[string]any)["host"])
	assert.Equal(t, "override", out["mail"].(map[string]any)["host"])
}

func TestEnvPrefix(t *testing.T) {
	assert.Equal(t, "SEO_TOOLS_", EnvPrefix("seo-tools"))
	assert.Equal(t, "FORMIE2_", EnvPrefix("formie2"))
	assert.Equal(t, "", EnvPrefix(""))
}
