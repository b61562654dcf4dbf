// Package dsstore reads and writes .DS_Store files, the directory-metadata
// sidecar format shared by multiple file-manager implementations. The
// container is a buddy-allocated block file holding a B-tree of records
// keyed by (filename, code); this package exposes the record set and keeps
// files loadable by peer implementations after a rewrite.
package dsstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"
)

// StoreFileName is the conventional name of the sidecar inside a directory.
const StoreFileName = ".DS_Store"

// Store holds the decoded record set for one container file. Records stay
// sorted by (filename, code) at all times, so enumeration order is
// insertion-independent.
type Store struct {
	path    string
	records []Record
	info    containerInfo
}

// New returns an empty store that will save to path.
func New(path string) *Store {
	return &Store{path: path}
}

// Open reads and parses the container at path. A missing file returns
// ErrNotFound (a normal "no metadata" condition); a file that fails
// structural validation returns ErrCorrupt.
func Open(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return Decode(path, data)
}

// Decode parses a container image that is already in memory.
func Decode(path string, data []byte) (*Store, error) {
	records, info, err := parseContainer(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("dsstore: %s: %d records", path, len(records))
	return &Store{path: path, records: records, info: info}, nil
}

// Path returns the file path this store loads from and saves to.
func (s *Store) Path() string { return s.path }

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// Records returns a copy of the record set in traversal order.
func (s *Store) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// AllFilenames returns every distinct filename in sorted order.
func (s *Store) AllFilenames() []string {
	var names []string
	for _, rec := range s.records {
		if len(names) == 0 || names[len(names)-1] != rec.Filename {
			names = append(names, rec.Filename)
		}
	}
	return names
}

// AllCodes returns the codes stored for filename, byte-wise sorted.
func (s *Store) AllCodes(filename string) []string {
	var codes []string
	for _, rec := range s.records {
		if rec.Filename == filename {
			codes = append(codes, rec.Code)
		}
	}
	return codes
}

// Entry looks up the record for (filename, code).
func (s *Store) Entry(filename, code string) (Record, bool) {
	i := s.search(filename, code)
	if i < len(s.records) && s.records[i].Filename == filename && s.records[i].Code == code {
		return s.records[i], true
	}
	return Record{}, false
}

// SetEntry inserts or replaces the record for (rec.Filename, rec.Code),
// keeping the set sorted and unique per key.
func (s *Store) SetEntry(rec Record) {
	i := s.search(rec.Filename, rec.Code)
	if i < len(s.records) && s.records[i].Filename == rec.Filename && s.records[i].Code == rec.Code {
		s.records[i] = rec
		return
	}
	s.records = append(s.records, Record{})
	copy(s.records[i+1:], s.records[i:])
	s.records[i] = rec
}

// RemoveEntry deletes the record for (filename, code) if present.
func (s *Store) RemoveEntry(filename, code string) bool {
	i := s.search(filename, code)
	if i < len(s.records) && s.records[i].Filename == filename && s.records[i].Code == code {
		s.records = append(s.records[:i], s.records[i+1:]...)
		return true
	}
	return false
}

// RemoveAllEntries deletes every record stored for filename.
func (s *Store) RemoveAllEntries(filename string) {
	kept := s.records[:0]
	for _, rec := range s.records {
		if rec.Filename != filename {
			kept = append(kept, rec)
		}
	}
	s.records = kept
}

func (s *Store) search(filename, code string) int {
	probe := Record{Filename: filename, Code: code}
	return sort.Search(len(s.records), func(i int) bool {
		return !s.records[i].Less(probe)
	})
}

// Bytes serializes the store into a fresh container image.
func (s *Store) Bytes() ([]byte, error) {
	return buildContainer(s.records, s.info)
}

// WriteTo serializes the store to w.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	data, err := s.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Save atomically replaces the container file: the image is written to a
// temporary file in the same directory and renamed over the target, so a
// concurrent reader never observes a partial write. Failures return
// ErrWriteFailed and leave the original file untouched.
func (s *Store) Save() error {
	data, err := s.Bytes()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, StoreFileName+".tmp*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	log.Debugf("dsstore: wrote %s (%d records, %d bytes)", s.path, len(s.records), len(data))
	return nil
}

// Equal reports whether two stores hold the same record set.
func (s *Store) Equal(other *Store) bool {
	if len(s.records) != len(other.records) {
		return false
	}
	for i := range s.records {
		a, b := s.records[i], other.records[i]
		if a.Filename != b.Filename || a.Code != b.Code || !a.Value.Equal(b.Value) {
			return false
		}
	}
	return true
}
