package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"000001_create_products.up.sql",
		"000001_create_products.down.sql",
		"000002_create_cart_items.up.sql",
		"000002_create_cart_items.down.sql",
		"README.md",
	}
	for _, name := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- sql"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0755))

	migrations, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"000001_create_products",
		"000002_create_cart_items",
	}, migrations)
}

func TestList_MissingDirectory(t *testing.T) {
	migrations, err := List(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, migrations)
}
