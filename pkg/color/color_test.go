package color

import (
	"strings"
	"testing"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHex(t *testing.T) {
	hex, err := Hex("Green")
	require.NoError(t, err)
	assert.Equal(t, "#22c55e", hex)

	hex, err = Hex("grey")
	require.NoError(t, err)
	assert.Equal(t, Palette["gray"], hex)

	hex, err = Hex("#AABBCC")
	require.NoError(t, err)
	assert.Equal(t, "#aabbcc", hex)

	_, err = Hex("#zzz")
	assert.Error(t, err)
	_, err = Hex("chartreuse")
	assert.Error(t, err)
}

func TestColorFor(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, "green", r.ColorFor("status", "Enabled"))
	assert.Equal(t, "orange", r.ColorFor("httpStatus", "404"))
	assert.Equal(t, "red", r.ColorFor("httpStatus", "503"))
	assert.Equal(t, Fallback, r.ColorFor("httpStatus", "999"))
	assert.Equal(t, Fallback, r.ColorFor("status", "unknown"))
	assert.Equal(t, Fallback, r.ColorFor("nope", "enabled"))
}

func TestRegisterSetOverridesBuiltin(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterSet("status", map[string]string{"Enabled": "teal"}))
	assert.Equal(t, "teal", r.ColorFor("status", "enabled"))
	assert.Equal(t, Fallback, r.ColorFor("status", "expired"))

	require.Error(t, r.RegisterSet("", nil))
	require.Error(t, r.RegisterSet("bad", map[string]string{"x": "not-a-colour"}))

	set, ok := r.Set("status")
	require.True(t, ok)
	set["enabled"] = "red"
	assert.Equal(t, "teal", r.ColorFor("status", "enabled"))
	assert.Contains(t, r.SetNames(), "device")
}

func TestBadgeContrast(t *testing.T) {
	b := NewRegistry().Badge("status", "expired")
	assert.Equal(t, "expired", b.Label)
	assert.Equal(t, "red", b.Color)
	assert.Equal(t, Palette["red"], b.Hex)

	bg, err := colorful.Hex(b.Background)
	require.NoError(t, err)
	text, err := colorful.Hex(b.Text)
	require.NoError(t, err)
	bgL, _, _ := bg.Lab()
	textL, _, _ := text.Lab()
	assert.Greater(t, bgL, 0.85)
	assert.Less(t, textL, 0.5)
}

func TestLoadSets(t *testing.T) {
	r := NewRegistry()
	doc := `
campaign:
  running: emerald
  paused: "#ff9900"
`
	require.NoError(t, r.LoadSets(strings.NewReader(doc)))
	assert.Equal(t, "emerald", r.ColorFor("campaign", "running"))
	assert.Equal(t, "#ff9900", r.Badge("campaign", "paused").Hex)

	require.NoError(t, r.LoadSets(strings.NewReader("")))
	assert.Error(t, r.LoadSets(strings.NewReader("campaign: [1, 2]")))
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	require.Len(t, names, len(Palette))
	assert.Equal(t, "amber", names[0])
}
