// Copyright (c) 2026 Sigma. All rights reserved.

package audit

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKeyPair(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return priv, &priv.PublicKey
}

func signToken(t *testing.T, priv *rsa.PrivateKey, subject string) string {
	t.Helper()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(priv)
	require.NoError(t, err)
	return signed
}

func requestWithBearer(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/anything", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestJWTResolver_ValidToken(t *testing.T) {
	priv, pub := generateKeyPair(t)
	resolver := NewJWTResolver(pub, "fallback-service")

	id, err := resolver.Resolve(requestWithBearer(signToken(t, priv, "user-42")))
	require.NoError(t, err)
	assert.Equal(t, "user-42", id.Principal)
	assert.False(t, id.Anonymous)
}

func TestJWTResolver_NoTokenFallsBackToServicePrincipal(t *testing.T) {
	_, pub := generateKeyPair(t)
	resolver := NewJWTResolver(pub, "fallback-service")

	id, err := resolver.Resolve(requestWithBearer(""))
	require.NoError(t, err)
	assert.Equal(t, "fallback-service", id.Principal)
	assert.True(t, id.Anonymous)
}

func TestJWTResolver_NilPublicKeyDisablesVerification(t *testing.T) {
	priv, _ := generateKeyPair(t)
	resolver := NewJWTResolver(nil, "fallback-service")

	id, err := resolver.Resolve(requestWithBearer(signToken(t, priv, "user-42")))
	require.NoError(t, err)
	assert.Equal(t, "fallback-service", id.Principal)
	assert.True(t, id.Anonymous)
}

func TestJWTResolver_RejectsTokenSignedByAnotherKey(t *testing.T) {
	wrongPriv, _ := generateKeyPair(t)
	_, rightPub := generateKeyPair(t)
	resolver := NewJWTResolver(rightPub, "fallback-service")

	_, err := resolver.Resolve(requestWithBearer(signToken(t, wrongPriv, "user-42")))
	require.Error(t, err)
}

func TestJWTResolver_RejectsExpiredToken(t *testing.T) {
	priv, pub := generateKeyPair(t)
	resolver := NewJWTResolver(pub, "fallback-service")

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(priv)
	require.NoError(t, err)

	_, err = resolver.Resolve(requestWithBearer(signed))
	require.Error(t, err)
}

func TestStaticResolver(t *testing.T) {
	s := Static{Principal: "sigma-gateway"}
	id, err := s.Resolve(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, "sigma-gateway", id.Principal)
	assert.False(t, id.Anonymous)

	anon := Static{}
	id, err = anon.Resolve(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.True(t, id.Anonymous)
}
