// Copyright IBM Corp. 2014, 2025
// SPDX-License-Identifier: MPL-2.0

package renderer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	multierror "github.com/hashicorp/go-multierror"
)

const (
	// DefaultFilePerms are the default file permissions for files rendered onto
	// disk when a specific file permission has not already been specified.
	DefaultFilePerms = 0o644

	// DefaultDirPerms are used when creating missing destination directories.
	DefaultDirPerms = 0o755
)

// ErrNoParentDir is the error returned with the parent directory is missing
// and the user disabled it.
var ErrNoParentDir = errors.New("parent directory is missing")

// ErrMissingDestination is returned when a file has no path.
var ErrMissingDestination = errors.New("missing destination")

// rename is swapped out in tests to simulate a failing commit.
var rename = os.Rename

// File is a single artifact to place on disk.
type File struct {
	Path     string
	Contents []byte

	// Perms are the permissions of the written file. Zero means inherit the
	// permissions of the existing file, or DefaultFilePerms if there is none.
	Perms os.FileMode
}

// RenderInput is used as input to the render function. All Files are written
// as one group: either every file is replaced or none is.
type RenderInput struct {
	Backup         bool
	CreateDestDirs bool
	Dry            bool
	DryStream      io.Writer
	Files          []*File
}

// RenderResult is returned and stored. It contains the status of the render
// operation.
type RenderResult struct {
	// DidRender indicates if the files were written to disk.
	DidRender bool

	// WouldRender indicates if the files would have been written had this not
	// been a dry run or had the contents differed from what is on disk.
	WouldRender bool

	// Paths are the destinations in the order they were committed.
	Paths []string
}

// WriteError is returned when a file cannot be staged or committed.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed writing %s: %s", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Render atomically renders the files in the input. If every destination
// already holds the given contents nothing is written.
func Render(i *RenderInput) (*RenderResult, error) {
	paths := make([]string, 0, len(i.Files))
	unchanged := len(i.Files) > 0
	for _, f := range i.Files {
		if f.Path == "" {
			return nil, ErrMissingDestination
		}
		paths = append(paths, f.Path)

		existing, err := os.ReadFile(f.Path)
		if err != nil {
			if !os.IsNotExist(err) && !os.IsPermission(err) {
				return nil, &WriteError{Path: f.Path, Err: err}
			}
			unchanged = false
			continue
		}
		if !bytes.Equal(existing, f.Contents) {
			unchanged = false
		}
	}

	if unchanged {
		return &RenderResult{
			DidRender:   false,
			WouldRender: true,
			Paths:       paths,
		}, nil
	}

	if i.Dry {
		for _, f := range i.Files {
			fmt.Fprintf(i.DryStream, "> %s\n%s", f.Path, f.Contents)
		}
		return &RenderResult{
			DidRender:   false,
			WouldRender: true,
			Paths:       paths,
		}, nil
	}

	if err := writeGroup(i.Files, i.CreateDestDirs, i.Backup); err != nil {
		return nil, err
	}

	return &RenderResult{
		DidRender:   true,
		WouldRender: true,
		Paths:       paths,
	}, nil
}

// staged tracks one file through the write.
type staged struct {
	file *File

	// tmp is the fully written temp file next to the destination.
	tmp string

	// aside is where the previous destination was moved while committing.
	aside string

	committed bool
}

func writeGroup(files []*File, createDestDirs, backup bool) error {
	group := make([]*staged, 0, len(files))

	// Stage everything first so an unwritable directory fails before any
	// destination is touched.
	for _, f := range files {
		tmp, err := stage(f, createDestDirs)
		if err != nil {
			discard(group)
			if errors.Is(err, ErrNoParentDir) {
				return err
			}
			return &WriteError{Path: f.Path, Err: err}
		}
		group = append(group, &staged{file: f, tmp: tmp})
	}

	for _, s := range group {
		if err := commit(s); err != nil {
			if rerr := rollback(group); rerr != nil {
				log.Printf("[ERR] (renderer) rollback failed: %s", rerr)
			}
			discard(group)
			return &WriteError{Path: s.file.Path, Err: err}
		}
		log.Printf("[DEBUG] (renderer) committed %q", s.file.Path)
	}

	for _, s := range group {
		if s.aside == "" {
			continue
		}
		if backup {
			bak := s.file.Path + ".bak"
			if err := rename(s.aside, bak); err != nil {
				log.Printf("[WARN] (renderer) could not backup %q: %v", s.file.Path, err)
				os.Remove(s.aside)
			}
			continue
		}
		os.Remove(s.aside)
	}
	return nil
}

// stage writes the file contents to a temp file in the destination directory
// and applies the final permissions.
func stage(f *File, createDestDirs bool) (string, error) {
	parent := filepath.Dir(f.Path)
	if _, err := os.Stat(parent); os.IsNotExist(err) {
		if createDestDirs {
			if err := os.MkdirAll(parent, DefaultDirPerms); err != nil {
				return "", err
			}
		} else {
			return "", ErrNoParentDir
		}
	}

	tmp, err := os.CreateTemp(parent, "."+filepath.Base(f.Path)+".tmp-*")
	if err != nil {
		return "", err
	}
	ok := false
	defer func() {
		tmp.Close()
		if !ok {
			os.Remove(tmp.Name())
		}
	}()

	// Restrict before writing so key material never sits in a world readable
	// file.
	if err := tmp.Chmod(0o600); err != nil {
		return "", err
	}
	if _, err := tmp.Write(f.Contents); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	perms := f.Perms
	if perms == 0 {
		currentInfo, err := os.Stat(f.Path)
		if err != nil {
			if !os.IsNotExist(err) {
				return "", err
			}
			perms = DefaultFilePerms
		} else {
			perms = currentInfo.Mode()
		}
	}
	if err := os.Chmod(tmp.Name(), perms); err != nil {
		return "", err
	}

	// Keep the owner of a key file that is being replaced.
	if uid, gid := getFileOwnership(f.Path); isChownNeeded(tmp.Name(), uid, gid) {
		if err := setFileOwnership(tmp.Name(), uid, gid); err != nil {
			log.Printf("[WARN] (renderer) could not keep ownership of %q: %v", f.Path, err)
		}
	}

	ok = true
	return tmp.Name(), nil
}

// commit moves any existing destination aside and renames the staged file
// into place.
func commit(s *staged) error {
	path := s.file.Path
	if _, err := os.Lstat(path); err == nil {
		aside, err := reservePath(filepath.Dir(path), "."+filepath.Base(path)+".rollback-*")
		if err != nil {
			return err
		}
		if err := rename(path, aside); err != nil {
			os.Remove(aside)
			return err
		}
		s.aside = aside
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := rename(s.tmp, path); err != nil {
		if s.aside != "" {
			if rerr := rename(s.aside, path); rerr == nil {
				s.aside = ""
			}
		}
		return err
	}
	s.committed = true
	return nil
}

// rollback removes every committed file and puts back what it replaced.
func rollback(group []*staged) error {
	var result *multierror.Error
	for i := len(group) - 1; i >= 0; i-- {
		s := group[i]
		if s.committed {
			if err := os.Remove(s.file.Path); err != nil && !os.IsNotExist(err) {
				result = multierror.Append(result, err)
			}
			s.committed = false
		}
		if s.aside != "" {
			if err := rename(s.aside, s.file.Path); err != nil {
				result = multierror.Append(result, err)
				continue
			}
			s.aside = ""
		}
	}
	return result.ErrorOrNil()
}

// discard removes staged temp files that were never committed.
func discard(group []*staged) {
	for _, s := range group {
		if !s.committed && s.tmp != "" {
			os.Remove(s.tmp)
		}
	}
}

// reservePath returns the name of a fresh, empty placeholder file in dir.
func reservePath(dir, pattern string) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}
