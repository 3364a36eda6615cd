// Package media keeps generated clips in process memory and hands out opaque
// handles for them. Handles belong to a run and are released with it.
package media

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Asset is a stored clip
type Asset struct {
	Handle      string
	RunID       string
	Index       int
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// DownloadName is the file name offered when the clip is saved
func (a *Asset) DownloadName() string {
	return DownloadName(a.Index)
}

// DownloadName returns the 1-based file name of the clip at index
func DownloadName(index int) string {
	return fmt.Sprintf("scene_%d.mp4", index+1)
}

// ErrRunReleased is returned by Put for a run that was already released
var ErrRunReleased = errors.New("media: run already released")

// releasedTTL bounds how long a released run keeps refusing new clips
const releasedTTL = 24 * time.Hour

type Store struct {
	mu       sync.RWMutex
	assets   map[string]*Asset
	byRun    map[string][]string
	released map[string]time.Time
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		assets:   make(map[string]*Asset),
		byRun:    make(map[string][]string),
		released: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Put stores data for the clip at index of runID and returns its handle. A
// run that was released cannot take new clips, so a worker finishing a scene
// after its run was discarded does not leak the bytes.
func (s *Store) Put(runID string, index int, data []byte, contentType string) (string, error) {
	handle := uuid.New().String()

	s.mu.Lock()
	if _, gone := s.released[runID]; gone {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrRunReleased, runID)
	}
	s.assets[handle] = &Asset{
		Handle:      handle,
		RunID:       runID,
		Index:       index,
		ContentType: contentType,
		Data:        data,
		CreatedAt:   s.now().UTC(),
	}
	s.byRun[runID] = append(s.byRun[runID], handle)
	s.mu.Unlock()

	return handle, nil
}

// Get dereferences a handle
func (s *Store) Get(handle string) (*Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[handle]
	return a, ok
}

// ReleaseRun drops every asset of a run and returns how many were released.
// The run refuses further Puts from then on.
func (s *Store) ReleaseRun(runID string) int {
	now := s.now()

	s.mu.Lock()
	handles := s.byRun[runID]
	for _, h := range handles {
		delete(s.assets, h)
	}
	delete(s.byRun, runID)
	for id, at := range s.released {
		if now.Sub(at) > releasedTTL {
			delete(s.released, id)
		}
	}
	s.released[runID] = now
	s.mu.Unlock()

	if len(handles) > 0 {
		log.Printf("[Media] released %d clip(s) of run %s", len(handles), runID)
	}
	return len(handles)
}

// Len is the number of live assets
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assets)
}
