package postgrest

import "strings"

// NullsPolicy: пара "<токен для ASC>,<токен для DESC>".
type NullsPolicy string

const (
	AscNullsLastDescNullsFirst  NullsPolicy = "asc,desc"
	AscNullsLastDescNullsLast   NullsPolicy = "asc,desc.nullslast"
	AscNullsFirstDescNullsFirst NullsPolicy = "asc.nullsfirst,desc"
	AscNullsFirstDescNullsLast  NullsPolicy = "asc.nullsfirst,desc.nullslast"

	DefaultNullsPolicy = AscNullsLastDescNullsFirst
)

// NullsPolicies: все поддерживаемые политики.
var NullsPolicies = []NullsPolicy{
	AscNullsLastDescNullsFirst,
	AscNullsLastDescNullsLast,
	AscNullsFirstDescNullsFirst,
	AscNullsFirstDescNullsLast,
}

// ParseNullsPolicy принимает короткое имя ("first", "last") или полную политику.
func ParseNullsPolicy(s string) (NullsPolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultNullsPolicy, true
	case "first":
		return AscNullsFirstDescNullsFirst, true
	case "last":
		return AscNullsLastDescNullsLast, true
	}
	for _, p := range NullsPolicies {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// Token выбирает половину политики под направление сортировки.
func (p NullsPolicy) Token(order string) string {
	if p == "" {
		p = DefaultNullsPolicy
	}
	asc, desc, found := strings.Cut(string(p), ",")
	if !found {
		desc = asc
	}
	if strings.EqualFold(order, "ASC") {
		return asc
	}
	return desc
}

// Sort: поле и направление ("ASC"/"DESC").
type Sort struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

// GetOrderBy строит значение параметра order. Поле "id" раскрывается во все колонки ключа.
func GetOrderBy(field, order string, pk PrimaryKey, policy NullsPolicy) string {
	tok := policy.Token(order)
	if field == "id" && len(pk) > 0 {
		parts := make([]string, len(pk))
		for i, col := range pk {
			parts[i] = col + "." + tok
		}
		return strings.Join(parts, ",")
	}
	return field + "." + tok
}
