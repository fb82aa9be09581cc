package config

import (
	"sort"
	"sync"

	"github.com/leighmacdonald/rgs/internal/model"
	"github.com/pkg/errors"
)

// Store maps setting keys to dynamically typed values. The typed accessors fail fast:
// a missing key is ErrInvalidSettingKey and a value of the wrong type is
// ErrSettingTypeMismatch. Everything returned is a copy, callers can never reach
// into the store's own data.
type Store struct {
	*sync.RWMutex
	values map[string]Value
}

func NewStore() *Store {
	return &Store{RWMutex: &sync.RWMutex{}, values: map[string]Value{}}
}

// Clone returns an independent snapshot of the store.
func (s *Store) Clone() *Store {
	s.RLock()
	defer s.RUnlock()

	out := &Store{RWMutex: &sync.RWMutex{}, values: make(map[string]Value, len(s.values))}
	for key, value := range s.values {
		out.values[key] = value.clone()
	}

	return out
}

func (s *Store) Set(key string, value Value) {
	s.Lock()
	defer s.Unlock()

	s.values[key] = value.clone()
}

// SetAny converts the raw value with ValueOf before storing it.
func (s *Store) SetAny(key string, raw any) error {
	value, errValue := ValueOf(raw)
	if errValue != nil {
		return errors.Wrapf(errValue, "Invalid value for %s", key)
	}

	s.Set(key, value)

	return nil
}

func (s *Store) Delete(key string) {
	s.Lock()
	defer s.Unlock()

	delete(s.values, key)
}

func (s *Store) Has(key string) bool {
	s.RLock()
	defer s.RUnlock()

	_, found := s.values[key]

	return found
}

func (s *Store) Len() int {
	s.RLock()
	defer s.RUnlock()

	return len(s.values)
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.RLock()
	defer s.RUnlock()

	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// Get returns a copy of the raw value stored under key.
func (s *Store) Get(key string) (Value, error) {
	s.RLock()
	defer s.RUnlock()

	value, found := s.values[key]
	if !found {
		return Value{}, errors.Wrap(model.ErrInvalidSettingKey, key)
	}

	return value.clone(), nil
}

func (s *Store) String(key string) (string, error) {
	value, errGet := s.Get(key)
	if errGet != nil {
		return "", errGet
	}

	str, ok := value.AsString()
	if !ok {
		return "", mismatch(key, KindString, value)
	}

	return str, nil
}

func (s *Store) Bool(key string) (bool, error) {
	value, errGet := s.Get(key)
	if errGet != nil {
		return false, errGet
	}

	boolean, ok := value.AsBool()
	if !ok {
		return false, mismatch(key, KindBool, value)
	}

	return boolean, nil
}

func (s *Store) Int(key string) (int64, error) {
	value, errGet := s.Get(key)
	if errGet != nil {
		return 0, errGet
	}

	integer, ok := value.AsInt()
	if !ok {
		return 0, mismatch(key, KindInt, value)
	}

	return integer, nil
}

// Strings requires a list where every element is a string. A list holding any other
// element type fails as a whole.
func (s *Store) Strings(key string) ([]string, error) {
	value, errGet := s.Get(key)
	if errGet != nil {
		return nil, errGet
	}

	if value.Kind() != KindList {
		return nil, mismatch(key, KindList, value)
	}

	values, ok := value.AsStrings()
	if !ok {
		return nil, errors.Wrapf(model.ErrSettingTypeMismatch, "Multi-type array detected: %s", key)
	}

	return values, nil
}

func (s *Store) Structured(key string) (any, error) {
	value, errGet := s.Get(key)
	if errGet != nil {
		return nil, errGet
	}

	structured, ok := value.AsStructured()
	if !ok {
		return nil, mismatch(key, KindStructured, value)
	}

	return structured, nil
}

func mismatch(key string, want Kind, got Value) error {
	return errors.Wrapf(model.ErrSettingTypeMismatch, "%s: want %s, got %s", key, want, got.Kind())
}
