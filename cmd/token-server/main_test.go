package main

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/stagelink-ai/stagelink-go/pkg/core/types"
)

func TestHandleIssue_MintsVerifiableToken(t *testing.T) {
	issuer := &tokenIssuer{
		secret: []byte("test-secret"),
		ttl:    time.Hour,
		issuer: "test-issuer",
	}

	req := httptest.NewRequest("GET", "/v1/session-token", nil)
	rec := httptest.NewRecorder()
	issuer.handleIssue(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status=%d, want 200", rec.Code)
	}

	var token types.SessionToken
	if err := json.Unmarshal(rec.Body.Bytes(), &token); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if token.Type != "Bearer" {
		t.Errorf("type=%q, want Bearer", token.Type)
	}
	if _, err := uuid.Parse(token.SessionID); err != nil {
		t.Errorf("session id %q is not a uuid: %v", token.SessionID, err)
	}
	if token.ExpirationTime.Before(time.Now()) {
		t.Errorf("expiration %v is in the past", token.ExpirationTime)
	}

	parsed, err := jwt.ParseWithClaims(token.Token, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		t.Fatalf("claims type %T", parsed.Claims)
	}
	if claims.Subject != token.SessionID {
		t.Errorf("subject=%q, want session id %q", claims.Subject, token.SessionID)
	}
	if claims.Issuer != "test-issuer" {
		t.Errorf("issuer=%q", claims.Issuer)
	}
}

func TestHandleIssue_SessionIDsAreUnique(t *testing.T) {
	issuer := &tokenIssuer{secret: []byte("s"), ttl: time.Minute, issuer: "i"}

	ids := make(map[string]bool)
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		issuer.handleIssue(rec, httptest.NewRequest("GET", "/v1/session-token", nil))
		var token types.SessionToken
		if err := json.Unmarshal(rec.Body.Bytes(), &token); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if ids[token.SessionID] {
			t.Fatalf("duplicate session id %q", token.SessionID)
		}
		ids[token.SessionID] = true
	}
}
