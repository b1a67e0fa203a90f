package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestDevModeToken(t *testing.T) {
	v := &Verifier{Mode: "dev"}
	p, err := v.Verify("t_acme:dispatcher")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.Tenant != "t_acme" || p.Role != "dispatcher" {
		t.Fatalf("unexpected principal: %+v", p)
	}
	if _, err := v.Verify("garbage"); err == nil {
		t.Fatal("expected error for malformed dev token")
	}
}

func signHS256(t *testing.T, secret []byte, header, payload string) string {
	t.Helper()
	enc := base64.RawURLEncoding
	signing := enc.EncodeToString([]byte(header)) + "." + enc.EncodeToString([]byte(payload))
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(signing))
	return signing + "." + enc.EncodeToString(mac.Sum(nil))
}

func TestHMACModeToken(t *testing.T) {
	secret := []byte("topsecret")
	v := &Verifier{Mode: "hmac", HMACSecret: secret, TenantClaim: "tenant", RoleClaim: "role", DriverClaim: "sub"}
	tok := signHS256(t, secret, `{"alg":"HS256","typ":"JWT"}`, `{"tenant":"t_acme","role":"Admin","sub":"drv9"}`)
	p, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.Tenant != "t_acme" || p.Role != "admin" || p.DriverID != "drv9" {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestHMACModeRejectsBadSignature(t *testing.T) {
	v := &Verifier{Mode: "hmac", HMACSecret: []byte("right"), TenantClaim: "tenant", RoleClaim: "role"}
	tok := signHS256(t, []byte("wrong"), `{"alg":"HS256"}`, `{"tenant":"t_acme","role":"admin"}`)
	if _, err := v.Verify(tok); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestHMACModeRequiresTenant(t *testing.T) {
	secret := []byte("s")
	v := &Verifier{Mode: "hmac", HMACSecret: secret, TenantClaim: "tenant", RoleClaim: "role"}
	tok := signHS256(t, secret, `{"alg":"HS256"}`, `{"role":"admin"}`)
	if _, err := v.Verify(tok); err == nil {
		t.Fatal("expected missing tenant error")
	}
}
