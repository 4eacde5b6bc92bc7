// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the per-key mutual-exclusion primitive
// the version lifecycle service wraps around its publish transaction.
//
// SQLite offers no advisory locks, so exclusion is process-local: a map of
// reference-counted mutexes keyed by questionnaire id. Publishing
// questionnaire A never blocks reading or writing questionnaire B, and the
// deferred unlock releases the key even when the transaction aborts. Entries
// are removed as soon as the last holder releases, so memory stays bounded
// by the number of concurrently publishing questionnaires.
package repo

import "sync"

// KeyedMutex provides independent mutual exclusion per string key.
// The zero value is not usable; construct with NewKeyedMutex.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex returns an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

// Lock acquires the mutex for key, blocking until it is available, and
// returns the matching release function. Callers must defer the release so
// an aborted transaction can never leave a permanent lock:
//
//	unlock := km.Lock(questionnaireID)
//	defer unlock()
func (k *KeyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			k.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
}
