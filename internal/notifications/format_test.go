package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBraces(t *testing.T) {
	out, err := formatBraces("{{literal}} {who} did {what}", map[string]string{"who": "jane", "what": "it"})
	require.NoError(t, err)
	assert.Equal(t, "{literal} jane did it", out)

	for _, bad := range []string{"{missing}", "stray }", "open {", "{a{b}"} {
		_, err := formatBraces(bad, map[string]string{"a": "x"})
		assert.Error(t, err, bad)
	}
}

func TestEscapeThenFormatIsIdentity(t *testing.T) {
	for _, s := range []string{"", "{}", "}{", "{{x}}", "a{b}c}}", "no braces"} {
		out, err := formatBraces(escapeBraces(s), nil)
		require.NoError(t, err)
		assert.Equal(t, s, out)
	}
}

func TestRenderContextUsesHTMLSource(t *testing.T) {
	g := GroupActivityNotification{}
	ctx, err := g.RenderContext("t", Description{
		Text:   "{user} resolved",
		HTML:   "<em>{user}</em> resolved",
		Params: map[string]string{"user": "<b>x</b>"},
	})
	require.NoError(t, err)
	assert.Equal(t, "<b>x</b> resolved", ctx["text_description"])
	assert.Contains(t, ctx["html_description"], "&lt;b&gt;x&lt;/b&gt;")
}
