package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanStripsMarkup(t *testing.T) {
	assert.Equal(t, "hello world", Clean("  <b>hello</b> <script>alert(1)</script>world "))
	assert.Equal(t, "", Clean("<img src=x onerror=alert(1)>"))
}

func TestRenderMarkdown(t *testing.T) {
	out, err := RenderMarkdown("1. Boil *water*\n2. Add pasta\n\n<script>alert(1)</script>")
	require.NoError(t, err)
	assert.Contains(t, out, "<ol>")
	assert.Contains(t, out, "<em>water</em>")
	assert.NotContains(t, out, "<script>")
}
