package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEnv_LoadsExistingFilesOnly(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, ".env.local"), []byte("REFDATA_TEST_ENV_LOAD=ok\n"), 0o644))

	origWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	require.NoError(t, os.Chdir(tmp))

	_ = os.Unsetenv("REFDATA_TEST_ENV_LOAD")

	n, err := LoadEnv([]string{".env", ".env.local"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "ok", os.Getenv("REFDATA_TEST_ENV_LOAD"))
}

func TestDatabaseOptions_ConnectionString(t *testing.T) {
	d := DatabaseOptions{Name: "refdata", Host: "db", Port: "5433", User: "app", Password: "secret"}
	require.Equal(t, "host=db port=5433 user=app dbname=refdata password=secret sslmode=disable", d.ConnectionString())
}
