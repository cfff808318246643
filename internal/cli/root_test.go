package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "worker", "migrate", "overdue"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	flag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestMigrateSqlite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "salesdoc.yaml")
	cfg := "store:\n  driver: sqlite\n  dsn: " + filepath.Join(dir, "salesdoc.db") + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", path, "migrate"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "migrated sqlite store")
}

func TestOverdueCommandFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"bad format", []string{"overdue", "--format", "xml"}, ExitCommandError},
		{"bad date", []string{"overdue", "--as-of", "03/04/2024"}, ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewRootCommand()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err))
		})
	}
}

func TestOverdueCommandEmptyStore(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"overdue", "--as-of", "2024-03-04", "--fail-on-overdue"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Overdue invoices as of 2024-03-04\n\nnone\n", out.String())
}
