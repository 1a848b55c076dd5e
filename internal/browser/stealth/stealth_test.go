package stealth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/config"
)

func TestFromConfig(t *testing.T) {
	p := FromConfig(config.PersonaConfig{})
	assert.Equal(t, DefaultPersona, p)

	p = FromConfig(config.PersonaConfig{
		UserAgent: "UA/1.0",
		Languages: []string{"es-MX"},
		Timezone:  "America/Chicago",
	})
	assert.Equal(t, "UA/1.0", p.UserAgent)
	assert.Equal(t, DefaultPersona.Platform, p.Platform)
	assert.Equal(t, []string{"es-MX"}, p.Languages)
	assert.Equal(t, "America/Chicago", p.Timezone)

	p.Languages[0] = "mutated"
	assert.Equal(t, "en-US", DefaultPersona.Languages[0])
}

func TestAcceptLanguage(t *testing.T) {
	tests := []struct {
		langs []string
		want  string
	}{
		{nil, ""},
		{[]string{"en-US"}, "en-US"},
		{[]string{"en-US", "en"}, "en-US,en;q=0.9"},
		{[]string{"a", "b", "c", "d", "e", "f"}, "a,b;q=0.9,c;q=0.8,d;q=0.7,e;q=0.7,f;q=0.7"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Persona{Languages: tc.langs}.AcceptLanguage())
	}
}

func TestScriptEmbedsPersona(t *testing.T) {
	script, err := DefaultPersona.Script()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(script, "const AUTOPILOT_PERSONA = {"))
	assert.Contains(t, script, `"platform":"Win32"`)
	assert.Contains(t, script, "webdriver")
}

func TestApplyBuildsTasks(t *testing.T) {
	tasks := Apply(DefaultPersona, zap.NewNop())
	assert.Len(t, tasks, 6)
}
