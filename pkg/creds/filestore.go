package creds

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// File layout: 1 byte version, saltSizeV1 bytes of scrypt salt,
// chacha20poly1305.NonceSizeX bytes of nonce, then the sealed JSON map.
// The salt is created once per file and reused, so the derived key only
// needs to be computed on the first operation.

const fileVersion1 = 1
const saltSizeV1 = 20

// scrypt(16384,8,1), same cost as our password hashing elsewhere
const scryptNV1 = 16384
const scryptRV1 = 8
const scryptPV1 = 1

// FileStore is a Store that keeps all secrets in a single encrypted file.
// Values never touch the disk in plaintext. The encryption key is derived
// from a caller-supplied secret, which on a real device would come from the
// platform's hardware keystore.
type FileStore struct {
	filename string
	secret   []byte

	lock    sync.Mutex
	salt    []byte
	aeadKey []byte // derived lazily from secret+salt
}

func NewFileStore(filename, secret string) (*FileStore, error) {
	if secret == "" {
		return nil, fmt.Errorf("credential store secret may not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0700); err != nil {
		return nil, err
	}
	return &FileStore{
		filename: filename,
		secret:   []byte(secret),
	}, nil
}

func (s *FileStore) Save(key, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.store(values)
}

func (s *FileStore) Retrieve(key string) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	values, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *FileStore) Delete(key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.store(values)
}

func (s *FileStore) deriveKey(salt []byte) ([]byte, error) {
	return scrypt.Key(s.secret, salt, scryptNV1, scryptRV1, scryptPV1, chacha20poly1305.KeySize)
}

func (s *FileStore) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.filename)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	} else if err != nil {
		return nil, err
	}
	headerLen := 1 + saltSizeV1 + chacha20poly1305.NonceSizeX
	if len(raw) < headerLen || raw[0] != fileVersion1 {
		return nil, fmt.Errorf("credential store %v is corrupt", s.filename)
	}
	salt := raw[1 : 1+saltSizeV1]
	nonce := raw[1+saltSizeV1 : headerLen]
	key, err := s.keyForSalt(salt)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, raw[headerLen:], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credential store %v: %w", s.filename, err)
	}
	values := map[string]string{}
	if err := json.Unmarshal(plaintext, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func (s *FileStore) store(values map[string]string) error {
	plaintext, err := json.Marshal(values)
	if err != nil {
		return err
	}
	salt := s.salt
	if salt == nil {
		salt = make([]byte, saltSizeV1)
		if n, _ := rand.Read(salt); n != saltSizeV1 {
			panic("Unable to read from crypto/rand")
		}
	}
	key, err := s.keyForSalt(salt)
	if err != nil {
		return err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if n, _ := rand.Read(nonce); n != len(nonce) {
		panic("Unable to read from crypto/rand")
	}
	out := make([]byte, 0, 1+len(salt)+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, fileVersion1)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, nil)

	// Write-then-rename so a crash can never leave a half-written store
	tmp := s.filename + ".tmp"
	if err := os.WriteFile(tmp, out, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.filename)
}

// keyForSalt returns the cached derived key, recomputing if the salt changed.
func (s *FileStore) keyForSalt(salt []byte) ([]byte, error) {
	if s.aeadKey != nil && string(salt) == string(s.salt) {
		return s.aeadKey, nil
	}
	key, err := s.deriveKey(salt)
	if err != nil {
		return nil, err
	}
	s.salt = append([]byte{}, salt...)
	s.aeadKey = key
	return key, nil
}
