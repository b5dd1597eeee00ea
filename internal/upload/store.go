package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

const allowedExt = ".txt"

var (
	ErrNoFile          = errors.New("no file uploaded")
	ErrFileTooLarge    = errors.New("file is too large")
	ErrUnsupportedType = errors.New("only .txt files are supported")
	ErrNotText         = errors.New("file is not valid UTF-8 text")
)

// Store keeps uploaded text files in a single directory.
type Store struct {
	dir     string
	maxSize int64
}

func New(dir string, maxSize int64) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("directory is empty")
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	return &Store{dir: dir, maxSize: maxSize}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// ForUser returns a store rooted in a per-user subdirectory. The directory is
// created by the first Save.
func (s *Store) ForUser(userID int64) *Store {
	return &Store{
		dir:     filepath.Join(s.dir, strconv.FormatInt(userID, 10)),
		maxSize: s.maxSize,
	}
}

// Save writes r to the store under the base name of name and returns the
// written path. Partially written files are removed on failure.
func (s *Store) Save(name string, r io.Reader) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	if !strings.EqualFold(filepath.Ext(base), allowedExt) {
		return "", ErrUnsupportedType
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	path := filepath.Join(s.dir, base)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	n, copyErr := io.Copy(f, io.LimitReader(r, s.maxSize+1))
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		err = fmt.Errorf("write file: %w", copyErr)
	case n > s.maxSize:
		err = ErrFileTooLarge
	case closeErr != nil:
		err = fmt.Errorf("close file: %w", closeErr)
	}

	if err != nil {
		if removeErr := os.Remove(path); removeErr != nil {
			err = errors.Join(err, fmt.Errorf("remove partial file: %w", removeErr))
		}
		return "", err
	}

	return path, nil
}

// List returns regular files in the store directory sorted by name.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, entry.Name()))
	}
	slices.Sort(paths)

	return paths, nil
}

// Clear removes every regular file in the store directory.
func (s *Store) Clear() error {
	paths, err := s.List()
	if err != nil {
		return err
	}

	var errs []error
	for _, path := range paths {
		if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", filepath.Base(path), err))
		}
	}

	return errors.Join(errs...)
}

// ClearAll removes stored files and per-user subdirectories. Entries the
// store could not have written are left alone.
func (s *Store) ClearAll() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read directory: %w", err)
	}

	var errs []error
	for _, entry := range entries {
		if !owned(entry) {
			continue
		}
		if err = os.RemoveAll(filepath.Join(s.dir, entry.Name())); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", entry.Name(), err))
		}
	}

	return errors.Join(errs...)
}

// ReadFirst returns the name and text of the first stored file.
func (s *Store) ReadFirst() (string, string, error) {
	paths, err := s.List()
	if err != nil {
		return "", "", err
	}
	if len(paths) == 0 {
		return "", "", ErrNoFile
	}

	data, err := os.ReadFile(paths[0])
	if err != nil {
		return "", "", fmt.Errorf("read file: %w", err)
	}
	if !utf8.Valid(data) {
		return "", "", ErrNotText
	}

	return filepath.Base(paths[0]), string(data), nil
}

// owned reports whether entry is a stored text file or a per-user directory.
func owned(entry os.DirEntry) bool {
	switch {
	case entry.IsDir():
		_, err := strconv.ParseInt(entry.Name(), 10, 64)
		return err == nil
	case entry.Type().IsRegular():
		return strings.EqualFold(filepath.Ext(entry.Name()), allowedExt)
	default:
		return false
	}
}
