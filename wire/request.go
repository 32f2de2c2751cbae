package wire

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"pico/route"
)

const (
	// DefaultHeaderLimit caps how many bytes may arrive before the
	// header terminator is seen.
	DefaultHeaderLimit = 8192

	// DefaultBodyTimeout bounds the wait for the declared body bytes.
	DefaultBodyTimeout = 5 * time.Second

	readChunkSize = 1024
)

var headerTerminator = []byte("\r\n\r\n")

type BodyKind int

const (
	BodyJSON BodyKind = iota
	BodyForm
	BodyRaw
)

// Body is the tagged decoded request body. Exactly one field matching
// Kind is populated.
type Body struct {
	Kind BodyKind
	JSON any
	Form map[string]string
	Raw  []byte
}

// Request is a fully materialized HTTP request. It is immutable once
// constructed and owned by the pipeline invocation that receives it.
type Request struct {
	ID      string
	Method  route.Method
	Path    string
	Query   map[string]string
	Version string
	Headers map[string][]string
	Body    Body
}

// ReadRequest frames one request off the connection: it accumulates
// bytes until the header terminator, parses the request line and
// headers, then reads exactly the declared content-length of body
// bytes under a read deadline.
func ReadRequest(conn net.Conn, headerLimit int, bodyTimeout time.Duration) (*Request, *Error) {
	if headerLimit <= 0 {
		headerLimit = DefaultHeaderLimit
	}
	if bodyTimeout <= 0 {
		bodyTimeout = DefaultBodyTimeout
	}

	buf := make([]byte, 0, readChunkSize)
	tmp := make([]byte, readChunkSize)

	headerEnd := -1
	for {
		n, err := conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}

		if i := bytes.Index(buf, headerTerminator); i >= 0 {
			headerEnd = i
			break
		}

		if len(buf) > headerLimit {
			log.Printf("[wire] request headers too large (%d bytes)", len(buf))
			return nil, NewError(StatusHeaderFieldsTooLarge, "request header fields too large")
		}

		if err != nil || n == 0 {
			log.Printf("[wire] stream ended before header terminator: %v", err)
			return nil, NewError(StatusBadRequest, "incomplete request")
		}
	}

	method, path, version, headers, werr := parseHeaderBlock(buf[:headerEnd])
	if werr != nil {
		return nil, werr
	}

	body, werr := readBody(conn, headers, buf[headerEnd+len(headerTerminator):], bodyTimeout)
	if werr != nil {
		return nil, werr
	}

	cleanPath, query := splitQuery(path)

	return &Request{
		ID:      uuid.New().String(),
		Method:  method,
		Path:    cleanPath,
		Query:   query,
		Version: version,
		Headers: headers,
		Body:    classifyBody(headers, body),
	}, nil
}

// parseHeaderBlock decodes the request line and header lines. Header
// names fold to lower case; comma-separated values flatten into an
// ordered list under the name.
func parseHeaderBlock(block []byte) (route.Method, string, string, map[string][]string, *Error) {
	lines := strings.Split(string(block), "\r\n")

	parts := strings.Fields(lines[0])
	if len(parts) < 3 {
		log.Printf("[wire] malformed request line: %q", lines[0])
		return "", "", "", nil, NewError(StatusBadRequest, "malformed request line")
	}

	method, ok := route.ParseMethod(parts[0])
	if !ok {
		// Unrecognized verbs fall back to GET rather than failing.
		log.Printf("[wire] unknown method type %q", parts[0])
		method = route.MethodGet
	}

	headers := make(map[string][]string)
	for _, line := range lines[1:] {
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		for _, v := range strings.Split(value, ",") {
			headers[name] = append(headers[name], strings.TrimSpace(v))
		}
	}

	return method, parts[1], parts[2], headers, nil
}

// readBody collects exactly the declared content-length, counting the
// bytes already buffered past the header terminator.
func readBody(conn net.Conn, headers map[string][]string, buffered []byte, timeout time.Duration) ([]byte, *Error) {
	contentLength := 0
	if vs := headers["content-length"]; len(vs) > 0 {
		if n, err := strconv.Atoi(vs[0]); err == nil && n >= 0 {
			contentLength = n
		}
	}

	body := append([]byte(nil), buffered...)
	if len(body) >= contentLength {
		return body[:contentLength], nil
	}

	remaining := make([]byte, contentLength-len(body))
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	if _, err := io.ReadFull(conn, remaining); err != nil {
		log.Printf("[wire] error reading request body: %v", err)
		return nil, NewError(StatusBadRequest, "incomplete request body")
	}

	return append(body, remaining...), nil
}

// classifyBody decodes the body per content-type. JSON parse failures
// degrade to a null body rather than failing the request.
func classifyBody(headers map[string][]string, raw []byte) Body {
	contentType := "application/json"
	if vs := headers["content-type"]; len(vs) > 0 {
		contentType = vs[0]
	}
	if mediaType, _, found := strings.Cut(contentType, ";"); found {
		contentType = strings.TrimSpace(mediaType)
	}

	switch contentType {
	case "application/json":
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			v = nil
		}
		return Body{Kind: BodyJSON, JSON: v}
	case "application/x-www-form-urlencoded":
		form := make(map[string]string)
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			log.Printf("[wire] error decoding form body: %v", err)
		}
		for k, vs := range values {
			if len(vs) > 0 {
				form[k] = vs[0]
			}
		}
		return Body{Kind: BodyForm, Form: form}
	default:
		return Body{Kind: BodyRaw, Raw: raw}
	}
}

// splitQuery separates path from query string at the first '?' and
// percent-decodes the query pairs. The first value wins for repeated
// keys.
func splitQuery(raw string) (string, map[string]string) {
	path, rawQuery, found := strings.Cut(raw, "?")
	query := make(map[string]string)
	if !found || rawQuery == "" {
		return path, query
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		log.Printf("[wire] error decoding query string %q: %v", rawQuery, err)
	}
	for k, vs := range values {
		if len(vs) > 0 {
			query[k] = vs[0]
		}
	}
	return path, query
}
