package wire

import (
	"bytes"
	"fmt"
)

// Response is a single HTTP/1.1 response. Constructed fresh per
// request, never reused.
type Response struct {
	Status  Status
	Headers map[string][]string
	Body    []byte
}

func NewResponse(status Status) *Response {
	return &Response{
		Status:  status,
		Headers: make(map[string][]string),
	}
}

// SetHeader replaces any existing values under name.
func (r *Response) SetHeader(name string, values ...string) {
	r.Headers[name] = values
}

// AddHeader appends a value under name, keeping existing ones.
func (r *Response) AddHeader(name, value string) {
	r.Headers[name] = append(r.Headers[name], value)
}

// Bytes serializes the response. Content-Length is always derived from
// the body; callers must not set it themselves.
func (r *Response) Bytes() []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", int(r.Status), r.Status.Reason())
	for name, values := range r.Headers {
		for _, v := range values {
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(v)
			b.WriteString("\r\n")
		}
	}
	fmt.Fprintf(&b, "Content-Length: %d\r\n\r\n", len(r.Body))
	b.Write(r.Body)

	return b.Bytes()
}

// ErrorResponse renders a classified error as a plain-text response.
func ErrorResponse(err *Error) *Response {
	resp := NewResponse(err.Status)
	resp.SetHeader("Content-Type", "text/plain")
	resp.Body = []byte(err.Message)
	return resp
}
