// store.go - In-memory store for uploaded logos and backgrounds.
package assets

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotImage is returned when uploaded bytes are not a PNG, JPEG, GIF or WebP image.
	ErrNotImage = errors.New("not an image")
	// ErrTooLarge is returned for uploads above the store's size limit.
	ErrTooLarge = errors.New("asset too large")
)

// Asset is one uploaded file.
type Asset struct {
	ID      string
	Name    string
	Mime    string
	Data    []byte
	Created time.Time
}

// Info describes an asset without its bytes.
type Info struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Mime string `json:"mime"`
	Size int    `json:"size"`
	URL  string `json:"url"`
}

// Store keeps uploaded assets in memory. When full, the oldest asset is
// evicted to make room.
type Store struct {
	maxAssets int
	maxBytes  int64
	now       func() time.Time

	mu     sync.RWMutex
	assets map[string]*Asset
}

// NewStore returns a store holding at most maxAssets assets of at most
// maxBytes each. Zero disables the respective limit.
func NewStore(maxAssets int, maxBytes int64) *Store {
	return &Store{
		maxAssets: maxAssets,
		maxBytes:  maxBytes,
		now:       time.Now,
		assets:    make(map[string]*Asset),
	}
}

// Add stores data under a new random id. The content type is sniffed from
// the bytes; anything that is not an image is rejected.
func (s *Store) Add(name string, data []byte) (*Asset, error) {
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), s.maxBytes)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrNotImage, mime)
	}

	a := &Asset{
		ID:      uuid.NewString(),
		Name:    sanitizeFilename(name),
		Mime:    mime,
		Data:    data,
		Created: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxAssets > 0 {
		for len(s.assets) >= s.maxAssets {
			s.evictOldestLocked()
		}
	}
	s.assets[a.ID] = a
	return a, nil
}

func (s *Store) evictOldestLocked() {
	var oldest *Asset
	for _, a := range s.assets {
		if oldest == nil || a.Created.Before(oldest.Created) {
			oldest = a
		}
	}
	if oldest != nil {
		delete(s.assets, oldest.ID)
	}
}

// Get returns the asset with id.
func (s *Store) Get(id string) (*Asset, bool) {
	s.mu.RLock()
	a, ok := s.assets[id]
	s.mu.RUnlock()
	return a, ok
}

// Remove deletes id and reports whether it existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[id]; !ok {
		return false
	}
	delete(s.assets, id)
	return true
}

// Len returns the number of stored assets.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assets)
}

// List returns every asset, oldest first.
func (s *Store) List() []Info {
	s.mu.RLock()
	all := make([]*Asset, 0, len(s.assets))
	for _, a := range s.assets {
		all = append(all, a)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].Created.Equal(all[j].Created) {
			return all[i].ID < all[j].ID
		}
		return all[i].Created.Before(all[j].Created)
	})
	out := make([]Info, len(all))
	for i, a := range all {
		out[i] = a.Info()
	}
	return out
}

// Info returns the metadata of a.
func (a *Asset) Info() Info {
	return Info{ID: a.ID, Name: a.Name, Mime: a.Mime, Size: len(a.Data), URL: "/api/assets/" + a.ID}
}

func sanitizeFilename(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", " ", "_")
	return r.Replace(strings.TrimSpace(name))
}
