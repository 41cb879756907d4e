package postgrest

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// символы, из-за которых PostgREST требует брать значение в кавычки
const reservedChars = `,:.()[]"`

// Escape готовит значение к подстановке во фрагмент запроса.
// ok=false означает "значения нет": фильтр с таким значением выбрасывается.
// Строки экранируются, массивы — поэлементно, остальные скаляры не меняются.
func Escape(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case Scalar:
		return Escape(t.V)
	case List:
		return escapeList(t)
	case []any:
		return escapeList(t)
	case string:
		return escapeString(t), true
	default:
		return v, true
	}
}

func escapeList(items []any) (any, bool) {
	out := make([]any, 0, len(items))
	for _, it := range items {
		if e, ok := Escape(it); ok {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// порядок замен: кавычки, затем обратные слэши
func escapeString(s string) string {
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, `\`, `\\`)
	if strings.ContainsAny(s, reservedChars) {
		return `"` + s + `"`
	}
	return s
}

// render превращает уже экранированный токен в текст; массивы склеиваются через запятую.
func render(tok any) string {
	switch t := tok.(type) {
	case []any:
		parts := make([]string, len(t))
		for i, it := range t {
			parts[i] = render(it)
		}
		return strings.Join(parts, ",")
	default:
		return FormatValue(t)
	}
}

// FormatValue: строковое представление скаляра для query string.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return formatFloat(t, 64)
	case float32:
		return formatFloat(float64(t), 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatFloat(f float64, bits int) string {
	if math.Abs(f) >= 1e21 {
		return strconv.FormatFloat(f, 'g', -1, bits)
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}
