package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateCommands(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "nested", "school.db"))

	out, err := run(t, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 1")

	out, err = run(t, "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 1")

	_, err = run(t, "migrate", "down", "1")
	require.NoError(t, err)
}

func TestMigrateDown_RejectsBadSteps(t *testing.T) {
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "school.db"))

	_, err := run(t, "migrate", "down", "zero")
	assert.Error(t, err)
}

func TestServe_RequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("TEACHER_AUTH_CODE", "")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "school.db"))

	_, err := run(t, "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}
