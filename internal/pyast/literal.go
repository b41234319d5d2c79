package pyast

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// Literal converts a decoded JSON or YAML value into a Python literal. Map
// keys are sorted so the same value always renders the same text.
func Literal(v any) Expr {
	switch t := v.(type) {
	case nil:
		return &None{}
	case bool:
		return &Bool{Value: t}
	case string:
		return S(t)
	case json.Number:
		f, err := strconv.ParseFloat(string(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return S(string(t))
		}
		return &Number{Text: string(t)}
	case int:
		return &Int{Value: int64(t)}
	case int8:
		return &Int{Value: int64(t)}
	case int16:
		return &Int{Value: int64(t)}
	case int32:
		return &Int{Value: int64(t)}
	case int64:
		return &Int{Value: t}
	case uint:
		return &Number{Text: strconv.FormatUint(uint64(t), 10)}
	case uint8:
		return &Int{Value: int64(t)}
	case uint16:
		return &Int{Value: int64(t)}
	case uint32:
		return &Int{Value: int64(t)}
	case uint64:
		return &Number{Text: strconv.FormatUint(t, 10)}
	case float32:
		return floatLiteral(float64(t))
	case float64:
		return floatLiteral(t)
	case time.Time:
		return S(t.Format(time.RFC3339Nano))
	case []string:
		l := &List{Elts: make([]Expr, len(t))}
		for i, s := range t {
			l.Elts[i] = S(s)
		}
		return l
	case []any:
		l := &List{Elts: make([]Expr, len(t))}
		for i, x := range t {
			l.Elts[i] = Literal(x)
		}
		return l
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d := &Dict{}
		for _, k := range keys {
			d.Keys = append(d.Keys, S(k))
			d.Values = append(d.Values, Literal(t[k]))
		}
		return d
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[fmt.Sprint(k)] = x
		}
		return Literal(m)
	default:
		return S(fmt.Sprint(v))
	}
}

func floatLiteral(f float64) Expr {
	switch {
	case math.IsNaN(f):
		return CallOf(N("float"), S("nan"))
	case math.IsInf(f, 1):
		return CallOf(N("float"), S("inf"))
	case math.IsInf(f, -1):
		return CallOf(N("float"), S("-inf"))
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return &Number{Text: strconv.FormatFloat(f, 'f', -1, 64)}
	}
	return &Number{Text: strconv.FormatFloat(f, 'g', -1, 64)}
}
