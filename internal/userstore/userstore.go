// Package userstore persists account credentials in a flat binary file:
// a little-endian uint32 record count followed by that many fixed-width
// (pseudo, password-hash) records. The file is read in full at startup
// and rewritten in full on every registration.
package userstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/awale-live/awale/internal/auth"
)

const (
	pseudoField   = 32
	passwordField = 128
	recordSize    = pseudoField + passwordField
)

var (
	// ErrStoreFull is returned when the store is at capacity.
	ErrStoreFull = errors.New("user store is full")
	// ErrUnknownUser is returned when the pseudo has no record.
	ErrUnknownUser = errors.New("unknown user")
	// ErrDuplicateUser is returned when registering an existing pseudo.
	ErrDuplicateUser = errors.New("user already registered")
	// ErrFieldTooLong is returned when a pseudo or hash exceeds its field.
	ErrFieldTooLong = errors.New("field exceeds fixed record width")
)

type record struct {
	pseudo string
	hash   string
}

// Store is a capacity-bounded credential file. All operations are safe
// for concurrent use.
type Store struct {
	mu       sync.Mutex
	path     string
	capacity int
	records  []record
	index    map[string]int
}

// Open loads the credential file at path, creating an empty store if the
// file does not exist yet.
func Open(path string, capacity int) (*Store, error) {
	s := &Store{
		path:     path,
		capacity: capacity,
		index:    make(map[string]int),
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	defer f.Close()

	var count uint32
	if err := binary.Read(f, binary.LittleEndian, &count); err != nil {
		if err == io.EOF {
			return s, nil
		}
		return nil, fmt.Errorf("reading user count: %w", err)
	}
	buf := make([]byte, recordSize)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, fmt.Errorf("reading user record %d: %w", i, err)
		}
		rec := record{
			pseudo: trimField(buf[:pseudoField]),
			hash:   trimField(buf[pseudoField:]),
		}
		s.index[rec.pseudo] = len(s.records)
		s.records = append(s.records, rec)
	}
	return s, nil
}

func trimField(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// Exists reports whether the pseudo has a stored credential.
func (s *Store) Exists(pseudo string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[pseudo]
	return ok
}

// Count returns the number of stored credentials.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Register hashes the password and appends a record for the pseudo,
// rewriting the whole file.
func (s *Store) Register(pseudo, password string) error {
	if len(pseudo) >= pseudoField {
		return ErrFieldTooLong
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if len(hash) >= passwordField {
		return ErrFieldTooLong
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[pseudo]; ok {
		return ErrDuplicateUser
	}
	if s.capacity > 0 && len(s.records) >= s.capacity {
		return ErrStoreFull
	}
	// The record becomes visible only once it is on disk; a failed
	// flush leaves the store exactly as it was.
	s.records = append(s.records, record{pseudo: pseudo, hash: hash})
	if err := s.flushLocked(); err != nil {
		s.records = s.records[:len(s.records)-1]
		return err
	}
	s.index[pseudo] = len(s.records) - 1
	return nil
}

// Verify checks the password for the pseudo. Unknown pseudos yield
// ErrUnknownUser; a wrong password yields (false, nil).
func (s *Store) Verify(pseudo, password string) (bool, error) {
	s.mu.Lock()
	i, ok := s.index[pseudo]
	var hash string
	if ok {
		hash = s.records[i].hash
	}
	s.mu.Unlock()

	if !ok {
		return false, ErrUnknownUser
	}
	return auth.VerifyPassword(password, hash)
}

// flushLocked rewrites the file from scratch. Caller holds s.mu.
func (s *Store) flushLocked() error {
	var out bytes.Buffer
	if err := binary.Write(&out, binary.LittleEndian, uint32(len(s.records))); err != nil {
		return err
	}
	buf := make([]byte, recordSize)
	for _, rec := range s.records {
		for i := range buf {
			buf[i] = 0
		}
		copy(buf[:pseudoField], rec.pseudo)
		copy(buf[pseudoField:], rec.hash)
		if _, err := out.Write(buf); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, out.Bytes(), 0o600)
}
