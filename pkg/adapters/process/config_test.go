package process_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/suitemux/pkg/adapters/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProcesses(t *testing.T) {
	dir := t.TempDir()

	t.Run("YAML", func(t *testing.T) {
		path := filepath.Join(dir, "processes.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
processes:
  - name: browser
    command: node
    args: ["runner.js"]
    env:
      HEADLESS: "1"
  - name: ""
    command: ignored
  - name: nocommand
`), 0644))

		procs, err := process.LoadProcesses(path)
		require.NoError(t, err)
		require.Len(t, procs, 1)
		assert.Equal(t, "node", procs["browser"].Command)
		assert.Equal(t, []string{"runner.js"}, procs["browser"].Args)
		assert.Equal(t, "1", procs["browser"].Environment["HEADLESS"])
	})

	t.Run("JSON", func(t *testing.T) {
		path := filepath.Join(dir, "processes.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"processes":[{"name":"py","command":"python3","args":["-m","suite"]}]}`), 0644))

		procs, err := process.LoadProcesses(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"-m", "suite"}, procs["py"].Args)
	})

	t.Run("Missing file", func(t *testing.T) {
		procs, err := process.LoadProcesses(filepath.Join(dir, "absent.yaml"))
		require.NoError(t, err)
		assert.Empty(t, procs)
	})

	t.Run("Invalid", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("processes: [\n"), 0644))
		_, err := process.LoadProcesses(path)
		assert.ErrorContains(t, err, "failed to parse broken.yaml")
	})
}
