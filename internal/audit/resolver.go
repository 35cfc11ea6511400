// Copyright (c) 2026 Sigma. All rights reserved.

/*
Package audit resolves the identity stamped onto every write as
created_by/last_modified_by. Sigma has no identity provider of its
own — it only consumes an already-established identity — so resolution
is narrow: decode an optional bearer JWT and fall back to a configured
service principal when no token is present, so anonymous gateway
operation (internal service-to-service traffic with no end-user
session) still produces an auditable identity.

Token handling here is verification only (RS256 via golang-jwt/jwt/v5):
Sigma never issues its own tokens.
*/
package audit

import (
	"crypto/rsa"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the resolved auditor for a single request.
type Identity struct {
	// Principal is the value stamped into created_by/last_modified_by.
	Principal string
	// Anonymous is true when no bearer token was presented and the
	// configured fallback principal was used instead.
	Anonymous bool
}

// Claims is the payload Sigma expects inside a verified bearer token.
// Only the subject is required; callers upstream of Sigma own whatever
// richer claim set their identity provider issues.
type Claims struct {
	jwt.RegisteredClaims
}

// Resolver extracts the auditor identity from an inbound HTTP request.
type Resolver interface {
	Resolve(r *http.Request) (Identity, error)
}

// JWTResolver verifies an RS256-signed bearer token when present and
// falls back to servicePrincipal otherwise. A nil publicKey disables
// verification entirely and every request resolves to servicePrincipal.
type JWTResolver struct {
	publicKey        *rsa.PublicKey
	servicePrincipal string
}

// NewJWTResolver builds a Resolver. publicKey may be nil, meaning
// Sigma trusts no bearer tokens and every request is attributed to
// servicePrincipal.
func NewJWTResolver(publicKey *rsa.PublicKey, servicePrincipal string) *JWTResolver {
	return &JWTResolver{publicKey: publicKey, servicePrincipal: servicePrincipal}
}

// Resolve implements Resolver.
func (r *JWTResolver) Resolve(req *http.Request) (Identity, error) {
	token := bearerToken(req)
	if token == "" || r.publicKey == nil {
		return Identity{Principal: r.servicePrincipal, Anonymous: true}, nil
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("audit: unexpected signing method %v", t.Header["alg"])
		}
		return r.publicKey, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("audit: invalid bearer token: %w", err)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return Identity{}, fmt.Errorf("audit: bearer token has no subject")
	}
	return Identity{Principal: subject}, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

// Static always resolves to the same principal. Useful for tests and
// for deployments that run Sigma with bearer verification disabled.
type Static struct {
	Principal string
}

// Resolve implements Resolver.
func (s Static) Resolve(*http.Request) (Identity, error) {
	return Identity{Principal: s.Principal, Anonymous: s.Principal == ""}, nil
}

var _ Resolver = (*JWTResolver)(nil)
var _ Resolver = Static{}
