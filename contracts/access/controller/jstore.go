package controller

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/votela/votela/core/store"
	"golang.org/x/xerrors"
)

// accessStore defines a simple read/write interface to store the grants.
type accessStore interface {
	store.Writable
	store.Readable
}

// newJstore opens the store at the given path. A missing file is created
// right away so that a configuration mistake shows up at startup and not at
// the first grant.
func newJstore(path string) (accessStore, error) {
	s := &jstore{
		path:    path,
		data:    map[string][]byte{},
		marshal: json.Marshal,
	}

	buf, err := os.ReadFile(path)

	switch {
	case os.IsNotExist(err):
		err = s.save()
		if err != nil {
			return nil, xerrors.Errorf("failed to save empty file: %v", err)
		}
	case err != nil:
		return nil, xerrors.Errorf("failed to read file '%s': %v", path, err)
	default:
		err = json.Unmarshal(buf, &s.data)
		if err != nil {
			return nil, xerrors.Errorf("failed to read json: %v", err)
		}
	}

	return s, nil
}

// jstore keeps the grants in memory and mirrors every change to a json file.
//
// - implements accessStore
type jstore struct {
	mu sync.Mutex

	path string
	data map[string][]byte

	// marshal serializes the data. The tests replace it with a failing one.
	marshal func(interface{}) ([]byte, error)
}

// Set implements store.Writable. It stores the value and writes the file.
func (s *jstore) Set(key []byte, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[string(key)] = value

	err := s.save()
	if err != nil {
		return xerrors.Errorf("failed to save: %v", err)
	}

	return nil
}

// Delete implements store.Writable. It removes the key and writes the file.
func (s *jstore) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, string(key))

	err := s.save()
	if err != nil {
		return xerrors.Errorf("failed to save: %v", err)
	}

	return nil
}

// Get implements store.Readable. It returns a nil value when the key is not
// found.
func (s *jstore) Get(key []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.data[string(key)], nil
}

// save writes the data to the file. The callers hold the mutex, except at
// creation before the store is shared.
func (s *jstore) save() error {
	buf, err := s.marshal(s.data)
	if err != nil {
		return xerrors.Errorf("failed to marshal data: %v", err)
	}

	err = os.WriteFile(s.path, buf, 0644)
	if err != nil {
		return xerrors.Errorf("failed to save file '%s': %v", s.path, err)
	}

	return nil
}
