package project_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipelens/pipelens/pkg/project"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte{}, 0o644))
}

func TestRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "go.mod"))
	writeFile(t, filepath.Join(root, "scripts", "nested", "demo.pipe"))

	d := project.New()
	assert.Equal(t, root, d.Root(filepath.Join(root, "scripts", "nested", "demo.pipe")))
	assert.Equal(t, root, d.Root(filepath.Join(root, "scripts")))
	assert.Equal(t, root, d.Root(root))
}

func TestRootNearestMarkerWins(t *testing.T) {
	outer := t.TempDir()
	writeFile(t, filepath.Join(outer, "go.mod"))

	inner := filepath.Join(outer, "sub")
	writeFile(t, filepath.Join(inner, "pipelens.yaml"))
	writeFile(t, filepath.Join(inner, "demo.pipe"))

	d := project.New()
	assert.Equal(t, inner, d.Root(filepath.Join(inner, "demo.pipe")))
}

func TestRel(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "go.mod"))
	script := filepath.Join(root, "scripts", "demo.pipe")
	writeFile(t, script)

	d := project.New()
	assert.Equal(t, filepath.Join("scripts", "demo.pipe"), d.Rel(script))
}

func TestRelWithoutRoot(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "demo.pipe")
	writeFile(t, script)

	d := project.New()
	if d.Root(script) != "" {
		t.Skip("an ancestor of the temp dir carries a project marker")
	}
	assert.Equal(t, "demo.pipe", d.Rel(script))
}
