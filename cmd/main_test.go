package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const memoryConfig = `
providers:
  store: memory
logger:
  level: error
`

const eventLine = "10/16/2026 10:00:00;E;1.c1;user=alice group=physics queue=batch " +
	"start=1760600100 end=1760603700 exec_host=n1/0\n"

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(memoryConfig), 0o644))
	return path
}

func execute(args ...string) error {
	root := newRootCommand()
	root.SetArgs(args)
	return root.Execute()
}

func TestIngestCommand_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "20261016")
	require.NoError(t, os.WriteFile(file, []byte(eventLine), 0o644))

	err := execute("ingest", "--config", writeConfig(t), "--in", file, "--host", "override")
	assert.NoError(t, err)
}

func TestIngestCommand_MissingFileFails(t *testing.T) {
	err := execute("ingest", "--config", writeConfig(t), "--in", filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestIngestCommand_InAndDirExclusive(t *testing.T) {
	err := execute("ingest", "--config", writeConfig(t), "--in", "a", "--dir", "b")
	assert.ErrorIs(t, err, errMutuallyExclusive)
}

func TestAggregateCommand_MemoryStore(t *testing.T) {
	assert.NoError(t, execute("aggregate", "--config", writeConfig(t), "--verbose"))
}

func TestMigrateCommand_RequiresMySQL(t *testing.T) {
	err := execute("migrate", "--config", writeConfig(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "providers.store=mysql")
}

func TestRootCommand_MissingConfig(t *testing.T) {
	err := execute("aggregate", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}
