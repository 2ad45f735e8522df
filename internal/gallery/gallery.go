// Package gallery stores named face captures.
//
// The collection is persisted as one JSON array under the "savedFaces" key and
// rewritten in full on every mutation. Each save also writes the JPEG to the
// faces directory as <name>.jpg.
package gallery

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/tphakala/facewatch/internal/detection"
	"github.com/tphakala/facewatch/internal/errors"
	"github.com/tphakala/facewatch/internal/logger"
	"github.com/tphakala/facewatch/internal/notification"
)

// StorageKey is the key the collection is persisted under.
const StorageKey = "savedFaces"

const (
	jpegQuality   = 90
	dataURLPrefix = "data:image/jpeg;base64,"
)

// SavedFace is one named capture. ImageURL is a JPEG data URL.
type SavedFace struct {
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

// KV is the persistence the store needs.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
}

// Store owns the saved face collection.
type Store struct {
	kv       KV
	facesDir string
	log      logger.Logger

	mu    sync.Mutex
	faces []SavedFace
}

// Open loads the persisted collection. A missing key is an empty gallery.
func Open(kv KV, facesDir string) (*Store, error) {
	s := &Store{
		kv:       kv,
		facesDir: facesDir,
		log:      GetLogger(),
	}

	data, ok, err := kv.Get(StorageKey)
	if err != nil {
		return nil, err
	}
	if ok && len(data) > 0 {
		if err := json.Unmarshal(data, &s.faces); err != nil {
			return nil, errors.New(fmt.Errorf("decode saved faces: %w", err)).
				Component("gallery").
				Category(errors.CategoryDatabase).
				Context("key", StorageKey).
				Build()
		}
	}
	return s, nil
}

// NormalizeName trims surrounding space and converts the name to NFC so that
// visually identical names produce identical file names.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// FileName returns the file name used for name, with path separators and
// control characters replaced.
func FileName(name string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == 0:
			return '_'
		case unicode.IsControl(r):
			return '_'
		}
		return r
	}, NormalizeName(name))
	if clean == "" || clean == "." || clean == ".." {
		clean = "_"
	}
	return clean + ".jpg"
}

// Save appends a capture of snapshot under name. It requires a non-empty name
// and at least one detection in current; otherwise nothing is mutated and a
// validation error is returned.
func (s *Store) Save(name string, snapshot image.Image, current *detection.Result) (SavedFace, error) {
	name = NormalizeName(name)
	if name == "" || current.Empty() || snapshot == nil {
		return SavedFace{}, errors.New(errors.NewStd(notification.MsgInvalidSave)).
			Component("gallery").
			Category(errors.CategoryValidation).
			Context("name_empty", name == "").
			Context("faces", current.Count()).
			Build()
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, snapshot, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return SavedFace{}, errors.New(fmt.Errorf("encode face image: %w", err)).
			Component("gallery").
			Category(errors.CategoryImageEncode).
			Build()
	}
	jpegBytes := buf.Bytes()

	face := SavedFace{
		Name:     name,
		ImageURL: dataURLPrefix + base64.StdEncoding.EncodeToString(jpegBytes),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.faces = append(s.faces, face)
	if err := s.persistLocked(); err != nil {
		s.faces = s.faces[:len(s.faces)-1]
		return SavedFace{}, err
	}

	// the file only exists for persisted entries
	path, err := s.writeFile(name, jpegBytes)
	if err != nil {
		s.faces = s.faces[:len(s.faces)-1]
		if rerr := s.persistLocked(); rerr != nil {
			s.log.Error("failed to roll back saved face",
				logger.String("name", name),
				logger.Error(rerr))
		}
		return SavedFace{}, err
	}

	s.log.Info("face saved",
		logger.String("name", name),
		logger.String("file", path),
		logger.Int("faces", current.Count()),
		logger.Int("gallery_size", len(s.faces)))
	return face, nil
}

func (s *Store) writeFile(name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.facesDir, 0o755); err != nil {
		return "", errors.New(err).
			Component("gallery").
			Category(errors.CategoryFileIO).
			Context("dir", s.facesDir).
			Build()
	}
	path := filepath.Join(s.facesDir, FileName(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.New(err).
			Component("gallery").
			Category(errors.CategoryFileIO).
			Context("file", path).
			Build()
	}
	return path, nil
}

// Remove deletes the entry at index, shifting later entries down.
func (s *Store) Remove(index int) (SavedFace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.faces) {
		return SavedFace{}, errors.Newf("no saved face at index %d", index).
			Component("gallery").
			Category(errors.CategoryNotFound).
			Context("index", index).
			Context("size", len(s.faces)).
			Build()
	}

	previous := s.faces
	removed := s.faces[index]
	s.faces = slices.Delete(slices.Clone(s.faces), index, index+1)
	if err := s.persistLocked(); err != nil {
		s.faces = previous
		return SavedFace{}, err
	}

	s.log.Info("face removed", logger.String("name", removed.Name), logger.Int("index", index))
	return removed, nil
}

// List returns the collection in order.
func (s *Store) List() []SavedFace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.faces)
}

// Len returns the number of saved faces.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.faces)
}

func (s *Store) persistLocked() error {
	faces := s.faces
	if faces == nil {
		faces = []SavedFace{}
	}
	data, err := json.Marshal(faces)
	if err != nil {
		return errors.New(err).Component("gallery").Category(errors.CategoryGeneric).Build()
	}
	return s.kv.Put(StorageKey, data)
}

// DecodeImageURL returns the JPEG bytes carried by a saved face.
func DecodeImageURL(url string) ([]byte, error) {
	payload, ok := strings.CutPrefix(url, dataURLPrefix)
	if !ok {
		return nil, errors.Newf("not a JPEG data URL").
			Component("gallery").
			Category(errors.CategoryImageDecode).
			Build()
	}
	return base64.StdEncoding.DecodeString(payload)
}
