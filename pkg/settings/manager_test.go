package settings

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seoSettings struct {
	SiteName string        `json:"siteName"`
	Limit    int           `json:"limit"`
	Debug    bool          `json:"debug"`
	Timeout  time.Duration `json:"timeout"`
	Tags     []string      `json:"tags"`
	Mail     mailSettings  `json:"mail"`
}

type mailSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func defaults() seoSettings {
	return seoSettings{SiteName: "Default", Limit: 5, Timeout: time.Second, Mail: mailSettings{Host: "localhost", Port: 25}}
}

func TestManagerLoadDefaults(t *testing.T) {
	m := NewManager("seo", NewMemoryStore(), defaults(), nil)
	got, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaults(), got)
}

func TestManagerLayering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, "seo", map[string]any{
		"siteName": "Stored",
		"limit":    7,
		"mail":     map[string]any{"port": 587},
	}))

	dir := t.TempDir()
	writeFile(t, dir, "seo.yaml", "siteName: Config\ntags: a,b\n")
	t.Setenv("SEO_DEBUG", "true")
	t.Setenv("SEO_TIMEOUT", "3s")
	o, err := LoadOverrides(dir, "seo", "")
	require.NoError(t, err)

	m := NewManager("seo", store, defaults(), o)
	got, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, seoSettings{
		SiteName: "Config",
		Limit:    7,
		Debug:    true,
		Timeout:  3 * time.Second,
		Tags:     []string{"a", "b"},
		Mail:     mailSettings{Host: "localhost", Port: 587},
	}, got)
}

func TestManagerSaveSkipsOverriddenKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, "seo", map[string]any{"siteName": "Saved Earlier"}))

	dir := t.TempDir()
	writeFile(t, dir, "seo.yaml", "siteName: Config\nmail:\n  host: smtp.config.test\n")
	o, err := LoadOverrides(dir, "seo", "")
	require.NoError(t, err)

	m := NewManager("seo", store, defaults(), o)
	value := defaults()
	value.SiteName = "Config"
	value.Limit = 9
	value.Mail.Host = "smtp.config.test"
	require.NoError(t, m.Save(ctx, value))

	stored, err := store.Load(ctx, "seo")
	require.NoError(t, err)
	assert.Equal(t, "Saved Earlier", stored["siteName"])
	assert.EqualValues(t, 9, stored["limit"])
	mail := stored["mail"].(map[string]any)
	_, hasHost := mail["host"]
	assert.False(t, hasHost)
	assert.EqualValues(t, 25, mail["port"])
}

func TestManagerReset(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager("seo", store, defaults(), nil)
	v := defaults()
	v.Limit = 99
	require.NoError(t, m.Save(ctx, v))
	require.NoError(t, m.Reset(ctx))
	got, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Limit)
}

func TestManagerRequiresHandle(t *testing.T) {
	m := NewManager("", NewMemoryStore(), defaults(), nil)
	_, err := m.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoHandle)
}

func TestManagerWithoutStoreIsReadOnly(t *testing.T) {
	ctx := context.Background()
	m := NewManager[seoSettings]("seo", nil, defaults(), nil)
	got, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaults(), got)
	assert.ErrorIs(t, m.Save(ctx, got), ErrNoStore)
	assert.ErrorIs(t, m.Reset(ctx), ErrNoStore)
}

func TestOpenStoreFromEnv(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.db")
	t.Setenv(EnvStoreDriver, "sqlite")
	t.Setenv(EnvSQLitePath, path)

	store, err := OpenStore(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	assert.EqualValues(t, "sqlite", store.Driver())

	m := NewManager("seo", store, defaults(), nil)
	v := defaults()
	v.SiteName = "Persisted"
	require.NoError(t, m.Save(ctx, v))
	got, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Persisted", got.SiteName)

	t.Setenv(EnvStoreDriver, "memory")
	mem, err := OpenStore(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, "memory", mem.Driver())

	t.Setenv(EnvStoreDriver, "redis")
	_, err = OpenStore(ctx)
	assert.Error(t, err)
}
