package session

import (
	"strings"
	"testing"
)

func cookieHeaders(value string) map[string][]string {
	return map[string][]string{"cookie": {value}}
}

func tokenFromCookie(t *testing.T, cookie string) string {
	t.Helper()
	rest, ok := strings.CutPrefix(cookie, CookieName+"=")
	if !ok {
		t.Fatalf("cookie missing name prefix: %q", cookie)
	}
	token, _, _ := strings.Cut(rest, ";")
	return token
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := NewCodec("secret")

	cookie, err := codec.Encode(Claims{"user_id": "42", "role": "admin"})
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}

	claims := codec.Decode(cookieHeaders(CookieName + "=" + tokenFromCookie(t, cookie)))
	if claims == nil {
		t.Fatal("expected claims")
	}
	if claims["user_id"] != "42" {
		t.Errorf("expected user_id=42, got %v", claims["user_id"])
	}
	if claims["role"] != "admin" {
		t.Errorf("expected role=admin, got %v", claims["role"])
	}
}

func TestDecodeWrongSecret(t *testing.T) {
	cookie, err := NewCodec("one").Encode(Claims{"user_id": "42"})
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}

	claims := NewCodec("two").Decode(cookieHeaders(CookieName + "=" + tokenFromCookie(t, cookie)))
	if claims != nil {
		t.Errorf("expected nil claims for wrong secret, got %v", claims)
	}
}

func TestDecodeSkipsMalformedTokens(t *testing.T) {
	codec := NewCodec("secret")

	cookie, err := codec.Encode(Claims{"ok": true})
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	good := tokenFromCookie(t, cookie)

	headers := map[string][]string{"cookie": {
		CookieName + "=garbage",
		"other=value; " + CookieName + "=" + good,
	}}
	claims := codec.Decode(headers)
	if claims == nil {
		t.Fatal("expected the valid token to win")
	}
	if claims["ok"] != true {
		t.Errorf("expected ok=true, got %v", claims["ok"])
	}
}

func TestDecodeNoCookie(t *testing.T) {
	codec := NewCodec("secret")

	if claims := codec.Decode(map[string][]string{}); claims != nil {
		t.Errorf("expected nil claims, got %v", claims)
	}
	if claims := codec.Decode(cookieHeaders("unrelated=1")); claims != nil {
		t.Errorf("expected nil claims, got %v", claims)
	}
}

func TestEncodeCookieFlags(t *testing.T) {
	codec := NewCodec("secret")

	cookie, err := codec.Encode(Claims{})
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	if !strings.HasPrefix(cookie, CookieName+"=") {
		t.Errorf("cookie missing name: %q", cookie)
	}
	if !strings.Contains(cookie, "HttpOnly") {
		t.Errorf("cookie missing HttpOnly: %q", cookie)
	}
	if !strings.Contains(cookie, "Path=/") {
		t.Errorf("cookie missing Path: %q", cookie)
	}
}
