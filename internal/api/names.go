// api/names.go
package api

import "strings"

// NormalizeResource возвращает имя ресурса так, как оно записано в карте ключей.
// Порядок: точное совпадение, без учёта регистра, затем без префикса схемы ("crm.contacts").
func (r *Registry) NormalizeResource(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.normalizeLocked(name)
}

func (r *Registry) normalizeLocked(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}

	// 1) прямой ключ
	if _, ok := r.keys[name]; ok {
		return name, true
	}
	// 2) регистронезависимо, но ИМЕННО ОДНО совпадение
	if found, ok := r.uniqueFold(name); ok {
		return found, true
	}
	// 3) "schema.table" → "table"; rpc/ с точкой не трогаем
	if i := strings.IndexByte(name, '.'); i > 0 && i < len(name)-1 && !strings.Contains(name, "/") {
		return r.normalizeLocked(name[i+1:])
	}
	return "", false
}

func (r *Registry) uniqueFold(name string) (string, bool) {
	var found string
	for k := range r.keys {
		if strings.EqualFold(k, name) {
			if found != "" { // неуникально
				return "", false
			}
			found = k
		}
	}
	return found, found != ""
}
