package hook

import (
	"encoding/json"

	lua "github.com/yuin/gopher-lua"
)

// ToLua converts a JSON-shaped Go value into its Lua counterpart.
// Maps become tables keyed by string, slices become 1-indexed array
// tables, json.Number is unwrapped to a Lua number.
func ToLua(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(x)
	case string:
		return lua.LString(x)
	case float64:
		return lua.LNumber(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return lua.LString(x.String())
		}
		return lua.LNumber(f)
	case map[string]any:
		tbl := L.NewTable()
		for k, val := range x {
			tbl.RawSetString(k, ToLua(L, val))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for _, val := range x {
			tbl.Append(ToLua(L, val))
		}
		return tbl
	default:
		// Anything exotic round-trips through its string form.
		b, err := json.Marshal(x)
		if err != nil {
			return lua.LNil
		}
		return lua.LString(b)
	}
}

// FromLua converts a Lua value back into a JSON-shaped Go value.
// Tables with a positive array length become slices, all other tables
// become string-keyed maps, numbers come back as float64.
func FromLua(v lua.LValue) any {
	switch x := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(x)
	case lua.LString:
		return string(x)
	case lua.LNumber:
		return float64(x)
	case *lua.LTable:
		if n := x.MaxN(); n > 0 {
			arr := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				arr = append(arr, FromLua(x.RawGetInt(i)))
			}
			return arr
		}
		obj := make(map[string]any)
		x.ForEach(func(k, val lua.LValue) {
			obj[lua.LVAsString(k)] = FromLua(val)
		})
		return obj
	default:
		return nil
	}
}
