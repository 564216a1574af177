package creds

import "sync"

// MemStore is an in-memory Store for tests.
type MemStore struct {
	lock   sync.Mutex
	values map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{values: map[string]string{}}
}

func (s *MemStore) Save(key, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemStore) Retrieve(key string) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	v, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *MemStore) Delete(key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.values, key)
	return nil
}

// Len is a test convenience.
func (s *MemStore) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.values)
}
