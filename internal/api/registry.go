package api

import (
	"sort"
	"sync"

	"crmgate/internal/postgrest"
)

// Registry хранит действующую карту первичных ключей. Карту можно подменить целиком (reload).
type Registry struct {
	mu   sync.RWMutex
	keys postgrest.PrimaryKeyMap
}

func NewRegistry(keys postgrest.PrimaryKeyMap) *Registry {
	r := &Registry{}
	r.Swap(keys)
	return r
}

// PrimaryKey ищет ресурс с учётом регистра и схемы ("crm.contacts"); по умолчанию ["id"].
func (r *Registry) PrimaryKey(resource string) postgrest.PrimaryKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name, ok := r.normalizeLocked(resource); ok {
		return r.keys[name]
	}
	return postgrest.DefaultPrimaryKey
}

// Lookup: имя ресурса в карте, его ключ и признак "ресурс известен", под одной блокировкой.
func (r *Registry) Lookup(resource string) (string, postgrest.PrimaryKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name, ok := r.normalizeLocked(resource); ok {
		return name, r.keys[name], true
	}
	return resource, postgrest.DefaultPrimaryKey, false
}

// Keys: копия карты.
func (r *Registry) Keys() postgrest.PrimaryKeyMap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(postgrest.PrimaryKeyMap, len(r.keys))
	for k, v := range r.keys {
		out[k] = append(postgrest.PrimaryKey(nil), v...)
	}
	return out
}

// Resources: имена ресурсов по алфавиту.
func (r *Registry) Resources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedNames(r.keys)
}

func sortedNames(keys postgrest.PrimaryKeyMap) []string {
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Swap атомарно заменяет карту. Ресурсы с пустым ключом отбрасываются.
func (r *Registry) Swap(keys postgrest.PrimaryKeyMap) {
	next := make(postgrest.PrimaryKeyMap, len(keys))
	for k, v := range keys {
		if k == "" || len(v) == 0 {
			continue
		}
		next[k] = append(postgrest.PrimaryKey(nil), v...)
	}
	r.mu.Lock()
	r.keys = next
	r.mu.Unlock()
}
