package services

// revertable remembers the prior value (or prior absence) of the touched keys
// in a map so a failed persist can restore the exact pre-call contents.
// Callers must write fresh values into the map instead of mutating values in
// place, otherwise the remembered slice headers alias the mutation.
type revertable[K comparable, V any] struct {
	m    map[K]V
	prev map[K]V
	had  map[K]bool
}

func capture[K comparable, V any](m map[K]V, keys ...K) revertable[K, V] {
	r := revertable[K, V]{
		m:    m,
		prev: make(map[K]V, len(keys)),
		had:  make(map[K]bool, len(keys)),
	}
	for _, k := range keys {
		v, ok := m[k]
		r.prev[k] = v
		r.had[k] = ok
	}
	return r
}

func (r revertable[K, V]) revert() {
	for k, ok := range r.had {
		if ok {
			r.m[k] = r.prev[k]
		} else {
			delete(r.m, k)
		}
	}
}
