package api

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"

	"crmgate/internal/dataprovider"
	"crmgate/internal/postgrest"
)

const maxPerPage = 1000

// служебные параметры: в фильтр не попадают
var reservedParams = map[string]struct{}{
	"filter": {}, "sort": {}, "range": {}, "meta": {},
	"page": {}, "perPage": {},
	"_sort": {}, "_order": {}, "_limit": {}, "limit": {}, "_offset": {}, "offset": {},
	"columns": {}, "schema": {}, "nulls": {}, "order": {}, "select": {},
}

// ==== Парсинг query-параметров листинга ====
//
// Понимаем два диалекта:
//
//	react-admin: filter={"status":["hot"]}&sort=["name","ASC"]&range=[0,24]
//	плоские:     status__in=hot,warm&amount__gte=1000&_sort=-name&_limit=25&_offset=50
func parseListParams(q url.Values) (dataprovider.ListParams, []FieldError) {
	var (
		lp   dataprovider.ListParams
		errs []FieldError
	)

	meta, ferrs := parseMeta(q)
	errs = append(errs, ferrs...)
	lp.Meta = meta

	// 1) фильтр: JSON из filter, затем простые параметры
	if raw := strings.TrimSpace(q.Get("filter")); raw != "" {
		f, err := postgrest.ParseFilterJSON([]byte(raw))
		if err != nil {
			errs = append(errs, ferr(ErrInvalidParam, "filter", "filter must be a JSON object: "+err.Error()))
		} else {
			lp.Filter = f
		}
	}
	lp.Filter = append(lp.Filter, plainFilters(q)...)

	// 2) сортировка
	s, ferrs := parseSort(q)
	errs = append(errs, ferrs...)
	lp.Sort = s

	// 3) страница
	pg, ferrs := parsePagination(q)
	errs = append(errs, ferrs...)
	lp.Pagination = pg

	// 4) nulls
	if v := q.Get("nulls"); v != "" {
		policy, ok := postgrest.ParseNullsPolicy(v)
		if !ok {
			errs = append(errs, ferr(ErrInvalidParam, "nulls", fmt.Sprintf("unknown nulls policy %q", v)))
		} else {
			lp.Nulls = policy
		}
	}

	return lp, errs
}

// parseMeta собирает meta из JSON-параметра meta и коротких columns/schema.
func parseMeta(q url.Values) (*postgrest.Meta, []FieldError) {
	var meta *postgrest.Meta
	if raw := strings.TrimSpace(q.Get("meta")); raw != "" {
		meta = &postgrest.Meta{}
		if err := gojson.Unmarshal([]byte(raw), meta); err != nil {
			return nil, []FieldError{ferr(ErrInvalidParam, "meta", "meta must be a JSON object: "+err.Error())}
		}
	}
	if cols := strings.TrimSpace(q.Get("columns")); cols != "" {
		if meta == nil {
			meta = &postgrest.Meta{}
		}
		meta.Columns = nil
		for _, c := range strings.Split(cols, ",") {
			if c = strings.TrimSpace(c); c != "" {
				meta.Columns = append(meta.Columns, c)
			}
		}
	}
	if schema := strings.TrimSpace(q.Get("schema")); schema != "" {
		if meta == nil {
			meta = &postgrest.Meta{}
		}
		meta.Schema = schema
	}
	return meta, nil
}

// plainFilters переводит field=v, field__op=v, field@op=v в записи фильтра.
// Ключи сортируются: url.Values не хранит порядок.
func plainFilters(q url.Values) postgrest.Filter {
	keys := make([]string, 0, len(q))
	for k := range q {
		if _, skip := reservedParams[k]; skip {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out postgrest.Filter
	for _, key := range keys {
		vals := make([]string, 0, len(q[key]))
		for _, v := range q[key] {
			if strings.TrimSpace(v) != "" {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			continue
		}

		// key: field или field__op
		field, op := key, ""
		if i := strings.LastIndex(key, "__"); i > 0 && !strings.Contains(key, "@") {
			field, op = key[:i], key[i+2:]
		}

		switch {
		case op == "in":
			out = append(out, postgrest.Entry{Key: field, Value: splitList(vals)})
			continue
		case op == "" && strings.HasPrefix(vals[0], "in:"):
			vals[0] = strings.TrimPrefix(vals[0], "in:")
			out = append(out, postgrest.Entry{Key: field, Value: splitList(vals)})
			continue
		}
		if op != "" {
			field += "@" + op
		}
		if len(vals) > 1 {
			out = append(out, postgrest.Entry{Key: field, Value: splitList(vals)})
			continue
		}
		out = append(out, postgrest.Entry{Key: field, Value: postgrest.Scalar{V: vals[0]}})
	}
	return out
}

func splitList(vals []string) postgrest.List {
	var out postgrest.List
	for _, v := range vals {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func parseSort(q url.Values) (postgrest.Sort, []FieldError) {
	// react-admin: sort=["field","ASC"]
	if raw := strings.TrimSpace(q.Get("sort")); strings.HasPrefix(raw, "[") {
		var pair []string
		if err := gojson.Unmarshal([]byte(raw), &pair); err != nil || len(pair) != 2 || pair[0] == "" {
			return postgrest.Sort{}, []FieldError{ferr(ErrInvalidParam, "sort", `sort must look like ["field","ASC"]`)}
		}
		return postgrest.Sort{Field: pair[0], Order: normalizeOrder(pair[1])}, nil
	}

	// плоский вид: _sort=-name (берём первый ключ: PostgREST-сортировка тут одна)
	sv := strings.TrimSpace(q.Get("_sort"))
	if sv == "" {
		sv = strings.TrimSpace(q.Get("sort"))
	}
	if sv == "" {
		return postgrest.Sort{}, nil
	}
	first := strings.TrimSpace(strings.Split(sv, ",")[0])
	order := "ASC"
	switch {
	case strings.HasPrefix(first, "-"):
		order = "DESC"
		first = strings.TrimPrefix(first, "-")
	case strings.HasPrefix(first, "+"):
		first = strings.TrimPrefix(first, "+")
	}
	if o := q.Get("_order"); o != "" {
		order = normalizeOrder(o)
	}
	if first == "" {
		return postgrest.Sort{}, []FieldError{ferr(ErrInvalidParam, "_sort", "empty sort field")}
	}
	return postgrest.Sort{Field: first, Order: order}, nil
}

func normalizeOrder(o string) string {
	if strings.EqualFold(strings.TrimSpace(o), "DESC") {
		return "DESC"
	}
	return "ASC"
}

// parsePagination: range > page/perPage > _limit/_offset. Ничего не задано — без limit.
func parsePagination(q url.Values) (dataprovider.Pagination, []FieldError) {
	if raw := strings.TrimSpace(q.Get("range")); raw != "" {
		var r []int
		if err := gojson.Unmarshal([]byte(raw), &r); err != nil || len(r) != 2 || r[0] < 0 || r[1] < r[0] {
			return dataprovider.Pagination{}, []FieldError{ferr(ErrInvalidParam, "range", "range must look like [start,end]")}
		}
		return pageFromOffset("range", r[0], r[1]-r[0]+1)
	}

	if q.Get("perPage") != "" || q.Get("page") != "" {
		perPage, err := intParam(q, "perPage", 25)
		if err != nil {
			return dataprovider.Pagination{}, []FieldError{*err}
		}
		page, err := intParam(q, "page", 1)
		if err != nil {
			return dataprovider.Pagination{}, []FieldError{*err}
		}
		if page < 1 {
			return dataprovider.Pagination{}, []FieldError{ferr(ErrInvalidParam, "page", "page starts from 1")}
		}
		if perPage > maxPerPage {
			return dataprovider.Pagination{}, []FieldError{ferr(ErrInvalidParam, "perPage", fmt.Sprintf("perPage must be <= %d", maxPerPage))}
		}
		return dataprovider.Pagination{Page: page, PerPage: perPage}, nil
	}

	lname := "_limit"
	if q.Get(lname) == "" {
		lname = "limit"
	}
	oname := "_offset"
	if q.Get(oname) == "" {
		oname = "offset"
	}
	if q.Get(lname) == "" {
		if q.Get(oname) != "" {
			return dataprovider.Pagination{}, []FieldError{ferr(ErrInvalidParam, oname, "offset needs a limit")}
		}
		return dataprovider.Pagination{}, nil
	}
	limit, err := intParam(q, lname, 0)
	if err != nil {
		return dataprovider.Pagination{}, []FieldError{*err}
	}
	offset, err := intParam(q, oname, 0)
	if err != nil {
		return dataprovider.Pagination{}, []FieldError{*err}
	}
	return pageFromOffset(oname, offset, limit)
}

// pageFromOffset: offset должен попадать на границу страницы.
func pageFromOffset(field string, offset, limit int) (dataprovider.Pagination, []FieldError) {
	if limit <= 0 || limit > maxPerPage {
		return dataprovider.Pagination{}, []FieldError{ferr(ErrInvalidParam, field, fmt.Sprintf("page size must be in 1..%d", maxPerPage))}
	}
	if offset%limit != 0 {
		return dataprovider.Pagination{}, []FieldError{ferr(ErrInvalidParam, field, fmt.Sprintf("offset %d is not a multiple of page size %d", offset, limit))}
	}
	return dataprovider.Pagination{Page: offset/limit + 1, PerPage: limit}, nil
}

func intParam(q url.Values, name string, fallback int) (int, *FieldError) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		e := ferr(ErrInvalidParam, name, fmt.Sprintf("%s must be a non-negative integer", name))
		return 0, &e
	}
	return n, nil
}

// manyIDs: id=1&id=2, ids=[1,2] (JSON) или ids=1,2.
func manyIDs(q url.Values) ([]any, []FieldError) {
	var ids []any
	for _, v := range q["id"] {
		if v != "" {
			ids = append(ids, v)
		}
	}
	if raw := strings.TrimSpace(q.Get("ids")); raw != "" {
		if strings.HasPrefix(raw, "[") {
			var arr []any
			dec := gojson.NewDecoder(strings.NewReader(raw))
			dec.UseNumber()
			if err := dec.Decode(&arr); err != nil {
				return nil, []FieldError{ferr(ErrInvalidParam, "ids", "ids must be a JSON array")}
			}
			ids = append(ids, arr...)
		} else {
			for _, p := range strings.Split(raw, ",") {
				if p = strings.TrimSpace(p); p != "" {
					ids = append(ids, p)
				}
			}
		}
	}
	if len(ids) == 0 {
		return nil, []FieldError{ferr(ErrRequired, "id", "at least one id is required")}
	}
	return ids, nil
}
