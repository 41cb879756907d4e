package postgrest

import (
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

const rpcPrefix = "rpc/"

// IsRPC: ресурс является вызовом функции (rpc/...), а не таблицей/вью.
func IsRPC(resource string) bool { return strings.HasPrefix(resource, rpcPrefix) }

// GetQuery строит фильтр выборки по одному или нескольким id.
// Несколько id для rpc/ ресурса выразить нельзя: пишем ошибку в лог и возвращаем ErrUnsupportedQuery.
func GetQuery(pk PrimaryKey, ids []any, resource string, meta *Meta) (url.Values, error) {
	if len(pk) == 0 {
		pk = DefaultPrimaryKey
	}
	q := url.Values{}

	switch {
	case len(ids) == 0:
		// без id — только select

	case len(ids) > 1:
		if IsRPC(resource) {
			log.Error().
				Str("resource", resource).
				Int("ids", len(ids)).
				Msg("multiple ids are not supported for rpc resources")
			return nil, ErrUnsupportedQuery
		}
		if pk.IsCompound() {
			groups := make([]string, 0, len(ids))
			for _, id := range ids {
				values, err := DecodeID(id, pk)
				if err != nil {
					return nil, err
				}
				groups = append(groups, "and("+eqList(pk, values)+")")
			}
			q.Set("or", "("+strings.Join(groups, ",")+")")
		} else {
			parts := make([]string, len(ids))
			for i, id := range ids {
				parts[i] = FormatValue(id)
			}
			q.Set(pk[0], "in.("+strings.Join(parts, ",")+")")
		}

	default:
		id := ids[0]
		if !pk.IsCompound() {
			q.Set(pk[0], "eq."+FormatValue(id))
			break
		}
		values, err := DecodeID(id, pk)
		if err != nil {
			return nil, err
		}
		if IsRPC(resource) {
			// параметры функции, а не фильтры
			for i, col := range pk {
				q.Set(col, FormatValue(values[i]))
			}
			break
		}
		q.Set("and", "("+eqList(pk, values)+")")
	}

	if sel := meta.Select(); sel != "" {
		q.Set("select", sel)
	}
	return q, nil
}

// eqList: "a.eq.1,b.eq.2"
func eqList(pk PrimaryKey, values []any) string {
	parts := make([]string, len(pk))
	for i, col := range pk {
		parts[i] = col + ".eq." + FormatValue(values[i])
	}
	return strings.Join(parts, ",")
}
