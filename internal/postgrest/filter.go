package postgrest

import (
	"net/url"
	"strings"
	"unicode"

	gojson "github.com/goccy/go-json"
)

// Meta: необязательные параметры запроса.
type Meta struct {
	Columns Columns           `json:"columns,omitempty"`
	Schema  string            `json:"schema,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Columns принимает и "a,b", и ["a","b"].
type Columns []string

func (c *Columns) UnmarshalJSON(data []byte) error {
	var s string
	if err := gojson.Unmarshal(data, &s); err == nil {
		*c = Columns{s}
		return nil
	}
	var list []string
	if err := gojson.Unmarshal(data, &list); err != nil {
		return err
	}
	*c = list
	return nil
}

// Select: значение параметра select или "" если колонки не заданы.
func (m *Meta) Select() string {
	if m == nil || len(m.Columns) == 0 {
		return ""
	}
	return strings.Join(m.Columns, ",")
}

// FilterParams: вход компилятора фильтров.
type FilterParams struct {
	Filter Filter
	Meta   *Meta
}

// Compiled: результат компиляции: фрагменты по колонкам и select.
// Несколько фрагментов одной колонки (многословный like) остаются отдельными значениями.
type Compiled struct {
	Filter url.Values
	Select string
}

// resolved: разобранная запись фильтра.
type resolved struct {
	key       string // путь колонки либо "or"/"and"
	operation Operator
	isDefault bool
	value     FilterValue
	fragments []string
}

// ParseFilters компилирует фильтр в параметры PostgREST.
// Пустой defaultListOp означает eq.
func ParseFilters(params FilterParams, defaultListOp Operator) (Compiled, error) {
	if defaultListOp == "" {
		defaultListOp = OpEq
	}

	entries, err := compileFilter(params.Filter, defaultListOp)
	if err != nil {
		return Compiled{}, err
	}

	out := Compiled{Filter: url.Values{}, Select: params.Meta.Select()}
	for _, r := range entries {
		out.Filter[r.key] = append(out.Filter[r.key], r.fragments...)
	}
	return out, nil
}

// compileFilter: flatten → resolve каждой записи, пропуская пустые значения.
func compileFilter(filter Filter, defaultListOp Operator) ([]resolved, error) {
	flat, err := flatten(filter)
	if err != nil {
		return nil, err
	}

	out := make([]resolved, 0, len(flat))
	for _, e := range flat {
		r, ok, err := resolve(e, defaultListOp)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// flatten раскрывает {"prices": {"name@ilike": "x"}} в "prices.name@ilike": "x".
// Группы or/and не раскрываются, даже с колонкой перед "@" ("x@or").
func flatten(filter Filter) ([]Entry, error) {
	out := make([]Entry, 0, len(filter))
	for _, e := range filter {
		nested, isNested := e.Value.(Nested)
		column, suffix, _ := strings.Cut(e.Key, "@")
		if !isNested || column == "" || Operator(suffix).isLogical() {
			out = append(out, e)
			continue
		}
		leaves, err := flattenNested(e.Key, nested)
		if err != nil {
			return nil, err
		}
		out = append(out, leaves...)
	}
	return out, nil
}

func flattenNested(prefix string, nested Nested) ([]Entry, error) {
	if len(nested) == 0 {
		return nil, MalformedFilterError{Key: prefix, Reason: "empty nested filter"}
	}
	var out []Entry
	for _, child := range nested {
		key := prefix + "." + child.Key
		_, suffix, _ := strings.Cut(child.Key, "@")
		if inner, ok := child.Value.(Nested); ok && !Operator(suffix).isLogical() {
			leaves, err := flattenNested(key, inner)
			if err != nil {
				return nil, err
			}
			out = append(out, leaves...)
			continue
		}
		out = append(out, Entry{Key: key, Value: child.Value})
	}
	return out, nil
}

func splitKey(key string, defaultListOp Operator) (column string, op Operator, isDefault bool) {
	column, suffix, found := strings.Cut(key, "@")
	if !found {
		return column, defaultListOp, true
	}
	return column, Operator(suffix), false
}

// resolve переводит запись в фрагменты; ok=false — значение пустое и фильтр отбрасывается.
func resolve(e Entry, defaultListOp Operator) (resolved, bool, error) {
	column, op, isDefault := splitKey(e.Key, defaultListOp)
	r := resolved{key: column, operation: op, isDefault: isDefault, value: e.Value}

	if _, isNested := e.Value.(Nested); isNested && !op.isLogical() {
		return r, false, MalformedFilterError{Key: e.Key, Reason: "nested filter where a value is expected"}
	}

	list, isList := e.Value.(List)

	switch {
	case op.isLike() && isStringScalar(e.Value):
		for _, term := range splitTerms(e.Value.(Scalar).V.(string)) {
			r.fragments = append(r.fragments, string(op)+".*"+escapeString(term)+"*")
		}

	case op == OpEq && isDefault && isList:
		tok, ok := Escape(list)
		if !ok {
			return r, false, nil
		}
		r.operation = OpIn
		r.fragments = []string{"in.(" + render(tok) + ")"}

	case op == OpNeq && isList:
		tok, ok := Escape(list)
		if !ok {
			return r, false, nil
		}
		r.operation = OpNotIn
		r.fragments = []string{"not.in.(" + render(tok) + ")"}

	case op.isLogical():
		nested, ok := e.Value.(Nested)
		if !ok {
			return r, false, MalformedFilterError{Key: e.Key, Reason: "logical group expects a nested filter"}
		}
		children, err := compileFilter(Filter(nested), defaultListOp)
		if err != nil {
			return r, false, err
		}
		if len(children) == 0 {
			return r, false, nil
		}
		r.key = string(op)
		r.fragments = []string{"(" + joinGroup(children) + ")"}

	case op == OpRaw:
		tok, ok := Escape(e.Value)
		if !ok {
			return r, false, nil
		}
		r.fragments = []string{render(tok)}

	default:
		tok, ok := Escape(e.Value)
		if !ok {
			return r, false, nil
		}
		r.fragments = []string{string(op) + "." + render(tok)}
	}
	return r, true, nil
}

// joinGroup склеивает детей группы: "col.op.val", вложенные группы — "and(...)".
func joinGroup(children []resolved) string {
	var parts []string
	for _, c := range children {
		for _, frag := range c.fragments {
			if c.operation.isLogical() {
				parts = append(parts, c.key+frag)
				continue
			}
			parts = append(parts, c.key+"."+frag)
		}
	}
	return strings.Join(parts, ",")
}

func isStringScalar(v FilterValue) bool {
	s, ok := v.(Scalar)
	if !ok {
		return false
	}
	_, ok = s.V.(string)
	return ok
}

// splitTerms режет строку поиска по пробелам; пустая строка даёт один пустой терм.
func splitTerms(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{""}
	}
	return strings.FieldsFunc(s, unicode.IsSpace)
}
