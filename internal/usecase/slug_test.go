package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Wireless Mouse":        "wireless-mouse",
		"  USB-C  Cable (2m) ":  "usb-c-cable-2m",
		"Café Crème":            "caf-cr-me",
		"!!!":                   "item",
		"Already-slugged-value": "already-slugged-value",
	}
	for in, want := range cases {
		assert.Equal(t, want, slugify(in), in)
	}
}

func TestUniqueSlugAppendsSuffix(t *testing.T) {
	t.Parallel()

	taken := map[string]bool{"desk-lamp": true, "desk-lamp-1": true}
	exists := func(_ context.Context, slug string, _ int) (bool, error) {
		return taken[slug], nil
	}

	slug, err := uniqueSlug(context.Background(), "Desk Lamp", 0, exists)
	require.NoError(t, err)
	assert.Equal(t, "desk-lamp-2", slug)

	slug, err = uniqueSlug(context.Background(), "Floor Lamp", 0, exists)
	require.NoError(t, err)
	assert.Equal(t, "floor-lamp", slug)
}

func TestNewSKU(t *testing.T) {
	t.Parallel()

	sku := newSKU()
	assert.True(t, strings.HasPrefix(sku, "SKU-"))
	assert.Len(t, sku, 14)
	assert.NotEqual(t, sku, newSKU())
}
