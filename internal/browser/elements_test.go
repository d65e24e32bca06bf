// File: internal/browser/elements_test.go
package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pilot-cli/api/schemas"
)

func TestDetectElementsJS(t *testing.T) {
	script := detectElementsJS(150)

	assert.Contains(t, script, "slice(0, 150)")
	assert.Contains(t, script, "substring(0, 20)")
	// Field names must line up with the JSON tags on schemas.Element.
	for _, key := range []string{"tag_name", "class_name", "placeholder", "role", "width", "height"} {
		assert.Contains(t, script, key+":")
	}
}

func TestExcerptJS(t *testing.T) {
	script := excerptJS(400)
	assert.Contains(t, script, "substring(0, 400)")
	assert.Contains(t, script, "document.body")
}

func TestHighlightJS(t *testing.T) {
	t.Run("EmbedsElements", func(t *testing.T) {
		elements := []schemas.Element{
			{Index: 0, TagName: "a", X: 10, Y: 20, Width: 100, Height: 30},
			{Index: 1, TagName: "button", X: 50, Y: 80, Width: 60, Height: 25},
		}
		script, err := highlightJS(elements)
		require.NoError(t, err)

		assert.Contains(t, script, `"tag_name":"a"`)
		assert.Contains(t, script, `"tag_name":"button"`)
		assert.Contains(t, script, "data-pilot-overlay")
	})

	t.Run("EmptySliceStillClears", func(t *testing.T) {
		script, err := highlightJS(nil)
		require.NoError(t, err)

		// The removal pass must survive an empty element list so a caller can
		// wipe stale overlays.
		assert.Contains(t, script, "forEach(overlay => overlay.remove())")
		assert.True(t, strings.HasSuffix(script, "(null)"))
	})
}
