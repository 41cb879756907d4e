package postgrest

// Operator: оператор PostgREST ("eq", "ilike", "not.in" ...).
// Суффиксы после "@" не проверяются по списку: неизвестный оператор уходит как есть.
type Operator string

const (
	OpEq     Operator = "eq"
	OpGt     Operator = "gt"
	OpGte    Operator = "gte"
	OpLt     Operator = "lt"
	OpLte    Operator = "lte"
	OpNeq    Operator = "neq"
	OpLike   Operator = "like"
	OpILike  Operator = "ilike"
	OpMatch  Operator = "match"
	OpIMatch Operator = "imatch"
	OpIn     Operator = "in"
	OpIs     Operator = "is"
	OpFts    Operator = "fts"
	OpPlFts  Operator = "plfts"
	OpPhFts  Operator = "phfts"
	OpWFts   Operator = "wfts"
	OpCs     Operator = "cs"
	OpCd     Operator = "cd"
	OpOv     Operator = "ov"
	OpSl     Operator = "sl"
	OpSr     Operator = "sr"
	OpNxr    Operator = "nxr"
	OpNxl    Operator = "nxl"
	OpAdj    Operator = "adj"
	OpNot    Operator = "not"
	OpOr     Operator = "or"
	OpAnd    Operator = "and"
	OpNotIn  Operator = "not.in"

	// OpRaw: пустой оператор ("col@"): значение уходит без префикса, как параметр rpc.
	OpRaw Operator = ""
)

// KnownOperators: закрытый набор операторов PostgREST.
var KnownOperators = []Operator{
	OpEq, OpGt, OpGte, OpLt, OpLte, OpNeq, OpLike, OpILike, OpMatch, OpIMatch,
	OpIn, OpIs, OpFts, OpPlFts, OpPhFts, OpWFts, OpCs, OpCd, OpOv, OpSl, OpSr,
	OpNxr, OpNxl, OpAdj, OpNot, OpOr, OpAnd, OpNotIn,
}

// IsKnown сообщает, входит ли оператор в набор KnownOperators.
func (o Operator) IsKnown() bool {
	for _, k := range KnownOperators {
		if k == o {
			return true
		}
	}
	return false
}

func (o Operator) isLogical() bool { return o == OpOr || o == OpAnd }

func (o Operator) isLike() bool { return o == OpLike || o == OpILike }
