package server

import (
	"context"
	"encoding/json"
	"log"

	"pico/catalog"
	"pico/hook"
	"pico/route"
	"pico/session"
	"pico/static"
	"pico/wire"
)

// FunctionCatalog is the slice of the catalog the pipeline needs.
type FunctionCatalog interface {
	Lookup(name string) (*catalog.Function, bool)
	Invoke(ctx context.Context, fn *catalog.Function, input map[string]any) (any, *wire.Error)
}

// Handle runs one request through the full pipeline and returns the
// response plus the route key it resolved to (empty when unmatched).
func (s *Server) Handle(ctx context.Context, req *wire.Request) (*wire.Response, string) {
	key, params, ok := s.tree.Resolve(req.Path)
	rt, found := s.routes[key]
	if !ok || !found {
		return s.fallback(req), ""
	}

	// Static fallback applies only to resolution misses; a matched
	// path with no handler for the method is a plain 404.
	handler, ok := rt.Definitions[req.Method]
	if !ok {
		return wire.ErrorResponse(wire.NewError(wire.StatusNotFound, "not found")), key
	}

	claims := s.codec.Decode(req.Headers)

	input := assembleInput(req, params)

	// Pre-process may add or overwrite input fields. The returned
	// object merges key-by-key so a partial return cannot drop path or
	// body parameters. Only deliberate user errors are terminal;
	// scripting faults leave the input unchanged.
	if handler.PreProcess != nil {
		out, err := handler.PreProcess.Invoke(input, claimsValue(claims))
		if err != nil {
			if hook.IsUser(err) {
				return wire.ErrorResponse(wire.NewError(wire.StatusBadRequest, err.Error())), key
			}
			log.Printf("[server] request %s: preprocess hook failed: %v", req.ID, err)
		} else if returned, ok := out.(map[string]any); ok {
			for k, v := range returned {
				input[k] = v
			}
		}
	}

	var payload any
	if handler.FunctionName != "" {
		fn, ok := s.catalog.Lookup(handler.FunctionName)
		if !ok {
			log.Printf("[server] request %s references unknown function %s", req.ID, handler.FunctionName)
			return wire.ErrorResponse(wire.NewError(wire.StatusInternalError, "internal server error")), key
		}
		result, werr := s.catalog.Invoke(ctx, fn, input)
		if werr != nil {
			return wire.ErrorResponse(werr), key
		}
		payload = result
	}

	// Set-session receives the payload alone and may install a new
	// claims object for the rest of the pipeline.
	var setCookie string
	if handler.SetSession != nil {
		out, err := handler.SetSession.Invoke(sessionArg(payload))
		if err != nil {
			if hook.IsUser(err) {
				return wire.ErrorResponse(wire.NewError(wire.StatusUnauthorized, err.Error())), key
			}
			log.Printf("[server] request %s: set-session hook failed: %v", req.ID, err)
		}
		if next, ok := out.(map[string]any); ok {
			claims = session.Claims(next)
			cookie, err := s.codec.Encode(claims)
			if err != nil {
				// The session survives in memory for this request;
				// only the cookie is dropped.
				log.Printf("[server] request %s: session signing failed: %v", req.ID, err)
			} else {
				setCookie = cookie
			}
		}
	}

	// Post-process adopts the hook's return unconditionally on
	// success, so a nil return nulls the payload out.
	if handler.PostProcess != nil {
		out, err := handler.PostProcess.Invoke(payload, claimsValue(claims))
		if err != nil {
			if hook.IsUser(err) {
				return wire.ErrorResponse(wire.NewError(wire.StatusBadRequest, err.Error())), key
			}
			log.Printf("[server] request %s: postprocess hook failed: %v", req.ID, err)
		} else {
			payload = out
		}
	}

	resp := wire.NewResponse(wire.StatusOK)
	if wantsHTML(req) && handler.View != nil {
		resp.SetHeader("Content-Type", "text/html")
		resp.Body = []byte(handler.View.Render(payload))
	} else {
		body, err := json.Marshal(payload)
		if err != nil {
			log.Printf("[server] request %s: payload serialization failed: %v", req.ID, err)
			return wire.ErrorResponse(wire.NewError(wire.StatusInternalError, "internal server error")), key
		}
		resp.SetHeader("Content-Type", "application/json")
		resp.Body = body
	}
	if setCookie != "" {
		resp.SetHeader("Set-Cookie", setCookie)
	}

	return resp, key
}

// fallback serves the public directory for GET requests whose path
// resolved to no route. Other verbs get a plain 404: the public
// directory is read-only content, so mutating verbs never reach it.
func (s *Server) fallback(req *wire.Request) *wire.Response {
	if req.Method == route.MethodGet {
		resp, werr := static.Serve(s.publicDir, req.Path)
		if werr != nil {
			return wire.ErrorResponse(werr)
		}
		return resp
	}
	return wire.ErrorResponse(wire.NewError(wire.StatusNotFound, "not found"))
}

// assembleInput merges the request into the function input map. Body
// fields bind first, query parameters override them, and path
// parameters override everything.
func assembleInput(req *wire.Request, params map[string]string) map[string]any {
	input := make(map[string]any)

	switch req.Body.Kind {
	case wire.BodyJSON:
		if obj, ok := req.Body.JSON.(map[string]any); ok {
			for k, v := range obj {
				input[k] = v
			}
		}
	case wire.BodyForm:
		for k, v := range req.Body.Form {
			input[k] = v
		}
	}

	for k, v := range req.Query {
		input[k] = v
	}
	for k, v := range params {
		input[k] = v
	}

	return input
}

// claimsValue shapes claims for a hook argument: nil claims stay nil
// so scripts can distinguish "no session" from an empty one.
func claimsValue(claims session.Claims) any {
	if claims == nil {
		return nil
	}
	return map[string]any(claims)
}

// sessionArg shapes the payload for the set-session hook; a nil
// payload becomes an empty table so scripts can index it safely.
func sessionArg(payload any) any {
	if payload == nil {
		return map[string]any{}
	}
	return payload
}

// wantsHTML reports whether the client asked for markup: an Accept
// value of text/html, or a truthy hx-request header.
func wantsHTML(req *wire.Request) bool {
	for _, v := range req.Headers["accept"] {
		if v == "text/html" {
			return true
		}
	}
	for _, v := range req.Headers["hx-request"] {
		if v == "true" {
			return true
		}
	}
	return false
}
