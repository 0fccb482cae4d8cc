// Copyright IBM Corp. 2014, 2025
// SPDX-License-Identifier: MPL-2.0

package renderer

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// renderOne writes a single file through Render.
func renderOne(path string, createDestDirs bool, contents []byte, perms os.FileMode, backup bool) error {
	_, err := Render(&RenderInput{
		Backup:         backup,
		CreateDestDirs: createDestDirs,
		Files:          []*File{{Path: path, Contents: contents, Perms: perms}},
	})
	return err
}

func TestRender_singleFile(t *testing.T) {
	t.Run("parent_folder_missing", func(t *testing.T) {
		outDir := t.TempDir()
		file := filepath.Join(outDir, "gone", "key.pem")

		if err := renderOne(file, true, nil, 0o644, false); err != nil {
			t.Error(err)
		}

		if _, err := os.Stat(file); err != nil {
			t.Error(err)
		}
	})

	t.Run("retains_permissions", func(t *testing.T) {
		outDir := t.TempDir()
		outFile, err := os.CreateTemp(outDir, "")
		if err != nil {
			t.Fatal(err)
		}
		outFile.Close()
		os.Chmod(outFile.Name(), 0o600)

		if err := renderOne(outFile.Name(), true, []byte("new"), 0, false); err != nil {
			t.Error(err)
		}

		stat, err := os.Stat(outFile.Name())
		if err != nil {
			t.Fatal(err)
		}

		expected := os.FileMode(0o600)
		if stat.Mode() != expected {
			t.Errorf("expected %q to be %q", stat.Mode(), expected)
		}

		if b, _ := os.ReadFile(outFile.Name()); string(b) != "new" {
			t.Errorf("expected %q to be %q", b, "new")
		}
	})

	t.Run("explicit_permissions", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "private.pem")

		if err := renderOne(file, false, []byte("secret"), 0o600, false); err != nil {
			t.Fatal(err)
		}

		stat, err := os.Stat(file)
		if err != nil {
			t.Fatal(err)
		}
		if stat.Mode().Perm() != 0o600 {
			t.Errorf("expected %q to be %q", stat.Mode().Perm(), os.FileMode(0o600))
		}
	})

	t.Run("non_existent_no_create", func(t *testing.T) {
		outDir := t.TempDir()

		file := filepath.Join(outDir, "nope/not/it/nope-no-create")
		if err := renderOne(file, false, nil, 0o644, false); err != ErrNoParentDir {
			t.Errorf("expected %q to be %q", err, ErrNoParentDir)
		}
	})

	t.Run("missing_destination", func(t *testing.T) {
		if err := renderOne("", true, nil, 0o644, false); err != ErrMissingDestination {
			t.Errorf("expected %q to be %q", err, ErrMissingDestination)
		}
	})

	t.Run("backup", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "key.pem")
		if err := os.WriteFile(file, []byte("before"), 0o600); err != nil {
			t.Fatal(err)
		}

		if err := renderOne(file, true, []byte("after"), 0o644, true); err != nil {
			t.Fatal(err)
		}

		f, err := os.ReadFile(file + ".bak")
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(f, []byte("before")) {
			t.Errorf("expected %q to be %q", f, []byte("before"))
		}

		if stat, err := os.Stat(file + ".bak"); err != nil {
			t.Error(err)
		} else if stat.Mode() != 0o600 {
			t.Errorf("expected %d to be %d", stat.Mode(), 0o600)
		}
	})

	t.Run("backup_not_exists", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "key.pem")

		if err := renderOne(file, true, nil, 0o644, true); err != nil {
			t.Fatal(err)
		}

		// Shouldn't have a backup file, since the original file didn't exist
		if _, err := os.Stat(file + ".bak"); err == nil {
			t.Error("expected error")
		} else if !os.IsNotExist(err) {
			t.Errorf("bad error: %s", err)
		}
	})

	t.Run("backup_backup", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "key.pem")
		if err := os.WriteFile(file, []byte("first"), 0o600); err != nil {
			t.Fatal(err)
		}

		contains := func(filename, content string) {
			f, err := os.ReadFile(filename + ".bak")
			if err != nil {
				t.Error(err)
			}
			if !bytes.Equal(f, []byte(content)) {
				t.Errorf("expected %q to be %q", f, []byte(content))
			}
		}

		if err := renderOne(file, true, []byte("second"), 0o644, true); err != nil {
			t.Error(err)
		}
		contains(file, "first")

		if err := renderOne(file, true, []byte("third"), 0o644, true); err != nil {
			t.Error(err)
		}
		contains(file, "second")
	})
}

func testPair(dir string) []*File {
	return []*File{
		{Path: filepath.Join(dir, "private.pem"), Contents: []byte("new-private"), Perms: 0o600},
		{Path: filepath.Join(dir, "public.pem"), Contents: []byte("new-public"), Perms: 0o644},
	}
}

func writeOldPair(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "private.pem"), []byte("old-private"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "public.pem"), []byte("old-public"), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRender(t *testing.T) {
	t.Run("file-exists-same-content", func(t *testing.T) {
		dir := t.TempDir()
		files := testPair(dir)
		for _, f := range files {
			require.NoError(t, os.WriteFile(f.Path, f.Contents, f.Perms))
		}

		rr, err := Render(&RenderInput{Files: files})
		require.NoError(t, err)
		switch {
		case rr.WouldRender && !rr.DidRender:
		default:
			t.Errorf("Bad render results; would: %v, did: %v",
				rr.WouldRender, rr.DidRender)
		}
	})

	t.Run("file-exists-diff-content", func(t *testing.T) {
		dir := t.TempDir()
		writeOldPair(t, dir)

		rr, err := Render(&RenderInput{Files: testPair(dir)})
		require.NoError(t, err)
		switch {
		case rr.WouldRender && rr.DidRender:
		default:
			t.Errorf("Bad render results; would: %v, did: %v",
				rr.WouldRender, rr.DidRender)
		}

		assert.Equal(t, "new-private", readFile(t, filepath.Join(dir, "private.pem")))
		assert.Equal(t, "new-public", readFile(t, filepath.Join(dir, "public.pem")))
		assert.ElementsMatch(t, []string{"private.pem", "public.pem"}, listDir(t, dir))
	})

	t.Run("file-no-exists", func(t *testing.T) {
		dir := t.TempDir()
		files := testPair(dir)

		rr, err := Render(&RenderInput{Files: files})
		require.NoError(t, err)
		assert.True(t, rr.DidRender)
		assert.Equal(t, []string{files[0].Path, files[1].Path}, rr.Paths)

		stat, err := os.Stat(files[0].Path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), stat.Mode().Perm())

		stat, err = os.Stat(files[1].Path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o644), stat.Mode().Perm())
	})

	t.Run("dry", func(t *testing.T) {
		dir := t.TempDir()
		files := testPair(dir)
		var buf bytes.Buffer

		rr, err := Render(&RenderInput{
			Dry:       true,
			DryStream: &buf,
			Files:     files,
		})
		require.NoError(t, err)
		assert.True(t, rr.WouldRender)
		assert.False(t, rr.DidRender)
		assert.Empty(t, listDir(t, dir))

		expected := "> " + files[0].Path + "\nnew-private" +
			"> " + files[1].Path + "\nnew-public"
		assert.Equal(t, expected, buf.String())
	})

	t.Run("missing-destination", func(t *testing.T) {
		_, err := Render(&RenderInput{Files: []*File{{Contents: []byte("x")}}})
		assert.Equal(t, ErrMissingDestination, err)
	})

	t.Run("backup", func(t *testing.T) {
		dir := t.TempDir()
		writeOldPair(t, dir)

		_, err := Render(&RenderInput{Backup: true, Files: testPair(dir)})
		require.NoError(t, err)

		assert.Equal(t, "old-private", readFile(t, filepath.Join(dir, "private.pem.bak")))
		assert.Equal(t, "old-public", readFile(t, filepath.Join(dir, "public.pem.bak")))
		assert.ElementsMatch(t,
			[]string{"private.pem", "public.pem", "private.pem.bak", "public.pem.bak"},
			listDir(t, dir))
	})
}

// failRename makes the commit of the file at dest fail.
func failRename(t *testing.T, dest string) {
	t.Helper()
	orig := rename
	t.Cleanup(func() { rename = orig })
	rename = func(oldpath, newpath string) error {
		if newpath == dest && strings.Contains(filepath.Base(oldpath), ".tmp-") {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: os.ErrPermission}
		}
		return orig(oldpath, newpath)
	}
}

func TestRender_rollback(t *testing.T) {
	t.Run("restores-previous-pair", func(t *testing.T) {
		dir := t.TempDir()
		writeOldPair(t, dir)
		files := testPair(dir)
		failRename(t, files[1].Path)

		_, err := Render(&RenderInput{Files: files})
		require.Error(t, err)

		var werr *WriteError
		require.True(t, errors.As(err, &werr), "expected *WriteError, got %T", err)
		assert.Equal(t, files[1].Path, werr.Path)
		assert.True(t, errors.Is(err, os.ErrPermission))

		assert.Equal(t, "old-private", readFile(t, files[0].Path))
		assert.Equal(t, "old-public", readFile(t, files[1].Path))
		assert.ElementsMatch(t, []string{"private.pem", "public.pem"}, listDir(t, dir))
	})

	t.Run("leaves-nothing-behind", func(t *testing.T) {
		dir := t.TempDir()
		files := testPair(dir)
		failRename(t, files[1].Path)

		_, err := Render(&RenderInput{Files: files})
		require.Error(t, err)
		assert.Empty(t, listDir(t, dir))
	})
}

func TestRender_readOnlyDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}

	dir := t.TempDir()
	writeOldPair(t, dir)
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { os.Chmod(dir, 0o700) })

	_, err := Render(&RenderInput{Files: testPair(dir)})
	require.Error(t, err)

	var werr *WriteError
	require.True(t, errors.As(err, &werr), "expected *WriteError, got %T", err)
	assert.True(t, errors.Is(err, os.ErrPermission))

	assert.Equal(t, "old-private", readFile(t, filepath.Join(dir, "private.pem")))
	assert.Equal(t, "old-public", readFile(t, filepath.Join(dir, "public.pem")))
	assert.ElementsMatch(t, []string{"private.pem", "public.pem"}, listDir(t, dir))
}

func TestRender_stageFailure(t *testing.T) {
	dir := t.TempDir()
	writeOldPair(t, dir)

	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o644))

	files := []*File{
		{Path: filepath.Join(dir, "private.pem"), Contents: []byte("new-private"), Perms: 0o600},
		{Path: filepath.Join(blocker, "public.pem"), Contents: []byte("new-public"), Perms: 0o644},
	}

	_, err := Render(&RenderInput{Files: files})
	require.Error(t, err)

	var werr *WriteError
	require.True(t, errors.As(err, &werr), "expected *WriteError, got %T", err)
	assert.Equal(t, files[1].Path, werr.Path)
	assert.True(t, errors.Is(err, syscall.ENOTDIR), "expected ENOTDIR, got %v", err)

	assert.Equal(t, "old-private", readFile(t, filepath.Join(dir, "private.pem")))
	assert.ElementsMatch(t, []string{"private.pem", "public.pem", "blocker"}, listDir(t, dir))
}
