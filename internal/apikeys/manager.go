package apikeys

import (
	"errors"
	"log"
	"sync"
)

var ErrNoKeysAvailable = errors.New("no API keys available")
var ErrAllKeysExhausted = errors.New("all available API keys have been exhausted")

// KeyManager rotates through a pool of API keys for one provider.
type KeyManager struct {
	provider     string
	keys         []string
	currentIndex int
	mutex        sync.Mutex
}

// NewManager creates a new KeyManager.
func NewManager(provider string, keys []string) (*KeyManager, error) {
	if len(keys) == 0 || (len(keys) == 1 && keys[0] == "") {
		return nil, ErrNoKeysAvailable
	}
	return &KeyManager{
		provider: provider,
		keys:     keys,
	}, nil
}

// Current returns the currently active API key.
func (km *KeyManager) Current() string {
	km.mutex.Lock()
	defer km.mutex.Unlock()
	return km.keys[km.currentIndex]
}

// Rotate moves to the next key. It returns ErrAllKeysExhausted once it has
// looped past the last key, and starts over from the first one.
func (km *KeyManager) Rotate() error {
	km.mutex.Lock()
	defer km.mutex.Unlock()

	log.Printf("[%s] API key %d has failed or is exhausted. Rotating to the next key.", km.provider, km.currentIndex+1)
	km.currentIndex++

	if km.currentIndex >= len(km.keys) {
		log.Printf("[%s] WARNING: All API keys have been tried and failed.", km.provider)
		km.currentIndex = 0
		return ErrAllKeysExhausted
	}

	log.Printf("[%s] Switched to API key %d.", km.provider, km.currentIndex+1)
	return nil
}

// Len is the size of the key pool, used to bound retry loops.
func (km *KeyManager) Len() int {
	return len(km.keys)
}
