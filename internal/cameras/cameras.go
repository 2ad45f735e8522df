// Package cameras keeps the single list of selectable capture sources.
// Both the watch loop and the camera administration commands use it.
package cameras

import (
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/tphakala/facewatch/internal/errors"
	"github.com/tphakala/facewatch/internal/logger"
)

// StorageKey is the key the camera list is persisted under.
const StorageKey = "cameras"

// DefaultCamera is always selectable and is never stored.
const DefaultCamera = "user"

var allowedSchemes = []string{"rtsp", "rtsps", "rtmp", "http", "https", "udp", "tcp"}

// KV is the persistence the store needs.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
}

// Store owns the camera entries.
type Store struct {
	kv  KV
	log logger.Logger

	mu      sync.Mutex
	entries []string
}

// Open loads the persisted camera list. A missing key is an empty list.
func Open(kv KV) (*Store, error) {
	s := &Store{kv: kv, log: GetLogger()}

	data, ok, err := kv.Get(StorageKey)
	if err != nil {
		return nil, err
	}
	if ok && len(data) > 0 {
		if err := json.Unmarshal(data, &s.entries); err != nil {
			return nil, errors.New(fmt.Errorf("decode cameras: %w", err)).
				Component("cameras").
				Category(errors.CategoryDatabase).
				Context("key", StorageKey).
				Build()
		}
	}
	return s, nil
}

// Validate checks a camera entry and returns its canonical form.
// Accepted: a device index ("1"), a device path under /dev/, or a
// stream URL with a host and one of the supported schemes.
func Validate(entry string) (string, error) {
	entry = strings.TrimSpace(entry)

	switch {
	case entry == "":
		return "", invalid(entry, "camera entry must not be empty")
	case entry == DefaultCamera:
		return "", invalid(entry, "the default camera is always available")
	}

	if n, err := strconv.Atoi(entry); err == nil {
		if n < 0 {
			return "", invalid(entry, "device index must not be negative")
		}
		return strconv.Itoa(n), nil
	}

	if strings.HasPrefix(entry, "/dev/") {
		if len(entry) == len("/dev/") || strings.Contains(entry, "..") {
			return "", invalid(entry, "invalid device path")
		}
		return entry, nil
	}

	u, err := url.Parse(entry)
	if err != nil {
		return "", invalid(entry, "not a valid URL")
	}
	scheme := strings.ToLower(u.Scheme)
	if !slices.Contains(allowedSchemes, scheme) {
		return "", invalid(entry, fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
	if u.Host == "" {
		return "", invalid(entry, "stream URL must include a host")
	}
	u.Scheme = scheme
	return u.String(), nil
}

func invalid(entry, reason string) error {
	return errors.New(errors.NewStd(reason)).
		Component("cameras").
		Category(errors.CategoryValidation).
		Context("entry", entry).
		Build()
}

// Add validates entry and appends it. Duplicates are rejected.
func (s *Store) Add(entry string) (string, error) {
	canonical, err := Validate(entry)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Contains(s.entries, canonical) {
		return "", invalid(canonical, "camera already exists")
	}

	s.entries = append(s.entries, canonical)
	if err := s.persistLocked(); err != nil {
		s.entries = s.entries[:len(s.entries)-1]
		return "", err
	}

	s.log.Info("camera added", logger.String("camera", redact(canonical)))
	return canonical, nil
}

// Remove deletes the entry at index, shifting later entries down.
func (s *Store) Remove(index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.entries) {
		return "", errors.Newf("no camera at index %d", index).
			Component("cameras").
			Category(errors.CategoryNotFound).
			Context("index", index).
			Build()
	}

	previous := s.entries
	removed := s.entries[index]
	s.entries = slices.Delete(slices.Clone(s.entries), index, index+1)
	if err := s.persistLocked(); err != nil {
		s.entries = previous
		return "", err
	}

	s.log.Info("camera removed", logger.String("camera", redact(removed)))
	return removed, nil
}

// List returns the stored entries in order.
func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// Choices returns the default camera followed by the stored entries.
func (s *Store) Choices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{DefaultCamera}, s.entries...)
}

// Next returns the choice after current, wrapping around.
// An unknown current selects the default camera.
func (s *Store) Next(current string) string {
	choices := s.Choices()
	i := slices.Index(choices, current)
	if i < 0 {
		return DefaultCamera
	}
	return choices[(i+1)%len(choices)]
}

func (s *Store) persistLocked() error {
	entries := s.entries
	if entries == nil {
		entries = []string{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return errors.New(err).Component("cameras").Category(errors.CategoryGeneric).Build()
	}
	return s.kv.Put(StorageKey, data)
}

// redact hides URL credentials before logging.
func redact(entry string) string {
	u, err := url.Parse(entry)
	if err != nil || u.User == nil {
		return entry
	}
	return u.Redacted()
}
