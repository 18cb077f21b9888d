package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestImportCmd(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "books.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("title,author\nDune,Frank Herbert\nSolaris,Stanislaw Lem\n"), 0o600))

	run := func() string {
		var out bytes.Buffer
		cmd := newImportCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--env-file", filepath.Join(dir, "missing.env"), "--db", filepath.Join(dir, "ledger.db"), csvPath})
		require.NoError(t, cmd.Execute())
		return out.String()
	}

	out := run()
	require.Contains(t, out, "Successfully imported: 2 books")
	require.Contains(t, out, "Stanislaw Lem")

	out = run()
	require.Contains(t, out, "Successfully imported: 0 books")
	require.Contains(t, out, "Already present: 2")
}

func TestImportCmdNeedsPath(t *testing.T) {
	cmd := newImportCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(nil)
	require.Error(t, cmd.Execute())
}
