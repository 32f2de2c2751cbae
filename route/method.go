package route

import "strings"

// Method is the set of verbs a route handler can be registered under.
// WS and SSE are accepted in route tables but are not served as
// streams.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
	MethodWS     Method = "WS"
	MethodSSE    Method = "SSE"
)

// ParseMethod maps a verb string onto a Method, case-insensitively.
func ParseMethod(s string) (Method, bool) {
	switch strings.ToUpper(s) {
	case "GET":
		return MethodGet, true
	case "POST":
		return MethodPost, true
	case "PUT":
		return MethodPut, true
	case "DELETE":
		return MethodDelete, true
	case "WS":
		return MethodWS, true
	case "SSE":
		return MethodSSE, true
	default:
		return "", false
	}
}
