package containers

import "sync"

// SyncMap is a sync.Map holding values of type V keyed by K.
type SyncMap[K comparable, V any] struct {
	inner sync.Map
}

func (s *SyncMap[K, V]) Load(key K) (value V, ok bool) {
	var v any
	if v, ok = s.inner.Load(key); !ok {
		return
	}
	return v.(V), ok
}

// LoadOrStore returns the value present for key, if any. Otherwise it
// stores and returns value.
func (s *SyncMap[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	v, loaded := s.inner.LoadOrStore(key, value)
	return v.(V), loaded
}

func (s *SyncMap[K, V]) Delete(key K) { s.inner.Delete(key) }

// CompareAndDelete deletes key only while it still holds old. V must be
// comparable at runtime.
func (s *SyncMap[K, V]) CompareAndDelete(key K, old V) (deleted bool) {
	return s.inner.CompareAndDelete(key, old)
}
