package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-dipend/framework/container"
)

// run executes the root command with a quiet YAML config.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dipend.yaml")
	yaml := "logging:\n  format: json\n  output: " + filepath.Join(dir, "dipend.log") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append(args, "--config", path))
	t.Cleanup(func() { cfgFile = "" })

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestOrderCommand(t *testing.T) {
	out, _, err := run(t, "order")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	index := func(name string) int {
		for i, l := range lines {
			if strings.HasSuffix(l, " "+name) {
				return i
			}
		}
		return -1
	}

	clock, store, greeter := index("main.Clock"), index("*main.Store"), index("*main.Greeter")
	require.NotEqual(t, -1, clock, out)
	assert.Less(t, clock, store)
	assert.Less(t, store, greeter)
	assert.Contains(t, out, "TRANSIENT")
	assert.Contains(t, out, "main.Shape:circle")
	assert.Contains(t, out, "CONTEXT")
}

func TestValidateCommand(t *testing.T) {
	out, _, err := run(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "all dependencies can be built")
}

func TestDemoProvider(t *testing.T) {
	ctx := context.Background()
	c := container.New()
	require.NoError(t, (&demoProvider{}).Register(c))

	circle, err := container.GetAs[Shape](ctx, c, "shape", "circle")
	assert.Error(t, err, "shapes are keyed by type, not by name")
	assert.Nil(t, circle)

	square, err := container.Get[Shape](ctx, c, "square")
	require.NoError(t, err)
	assert.Equal(t, 4.0, square.Area())

	first, err := c.NewContext(ctx)
	require.NoError(t, err)
	second, err := c.NewContext(ctx)
	require.NoError(t, err)

	a, err := container.Get[RequestID](first, c)
	require.NoError(t, err)
	b, err := container.Get[RequestID](first, c)
	require.NoError(t, err)
	other, err := container.Get[RequestID](second, c)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, other)
}
