// Package hook runs the user-supplied Lua callables attached to route
// handlers: pre-process, post-process, and set-session.
package hook

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// Hook is one user-supplied callable. Invoke tries the richest
// argument form first and falls back to a single argument only on an
// arity-shaped failure.
type Hook interface {
	Invoke(args ...any) (any, error)
}

// Engine owns one Lua state. Lua states are not safe for concurrent
// use, so every evaluation and hook call serializes through the mutex.
type Engine struct {
	mu    sync.Mutex
	state *lua.LState
}

func NewEngine() *Engine {
	return &Engine{state: lua.NewState()}
}

func (e *Engine) Close() {
	if e == nil || e.state == nil {
		return
	}
	e.state.Close()
}

// DoFile evaluates a Lua file and returns the value it returns.
func (e *Engine) DoFile(path string) (lua.LValue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.eval(func() error { return e.state.DoFile(path) })
}

// DoString evaluates Lua source and returns the value it returns.
func (e *Engine) DoString(src string) (lua.LValue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.eval(func() error { return e.state.DoString(src) })
}

func (e *Engine) eval(do func() error) (lua.LValue, error) {
	top := e.state.GetTop()
	if err := do(); err != nil {
		return lua.LNil, err
	}
	if e.state.GetTop() == top {
		return lua.LNil, nil
	}
	v := e.state.Get(-1)
	e.state.SetTop(top)
	return v, nil
}

// Bind wraps a Lua function from this engine's state as a Hook.
func (e *Engine) Bind(fn *lua.LFunction) Hook {
	return &luaHook{engine: e, fn: fn}
}

type luaHook struct {
	engine *Engine
	fn     *lua.LFunction
}

func (h *luaHook) Invoke(args ...any) (any, error) {
	h.engine.mu.Lock()
	defer h.engine.mu.Unlock()

	L := h.engine.state
	lvs := make([]lua.LValue, len(args))
	for i, a := range args {
		lvs[i] = ToLua(L, a)
	}

	out, err := h.call(lvs)
	if err != nil && len(lvs) > 1 && isArityError(err) {
		// Older hooks take only the data argument.
		out, err = h.call(lvs[:1])
	}
	if err != nil {
		return nil, classify(err)
	}
	return FromLua(out), nil
}

func (h *luaHook) call(args []lua.LValue) (lua.LValue, error) {
	L := h.engine.state
	if err := L.CallByParam(lua.P{Fn: h.fn, NRet: 1, Protect: true}, args...); err != nil {
		return lua.LNil, err
	}
	out := L.Get(-1)
	L.Pop(1)
	return out, nil
}

func isArityError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "wrong number of arguments") ||
		strings.Contains(msg, "attempt to call")
}

// classify maps an invocation failure onto the tagged hook error.
// Scripts signal user-level failures by raising a table with a "user"
// field:
//
//	error({user = "name is required"})
//
// Every other failure is a system fault.
func classify(err error) *Error {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		if tbl, ok := apiErr.Object.(*lua.LTable); ok {
			if msg := tbl.RawGetString("user"); msg != lua.LNil {
				return &Error{Kind: ErrorUser, Msg: lua.LVAsString(msg)}
			}
		}
	}
	return &Error{Kind: ErrorSystem, Msg: fmt.Sprintf("hook invocation failed: %v", err)}
}
