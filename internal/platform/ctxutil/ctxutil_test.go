// Copyright (c) 2026 Sigma. All rights reserved.

package ctxutil_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sigma-gateway/sigma/internal/audit"
	"github.com/sigma-gateway/sigma/internal/platform/ctxutil"
)

/*
TestContext_RequestID verifies that Request IDs can be injected and retrieved.
*/
func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "test-request-id"

	// 1. Initially should be empty
	assert.Empty(t, ctxutil.GetRequestID(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithRequestID(ctx, requestID)
	assert.Equal(t, requestID, ctxutil.GetRequestID(ctx))
}

/*
TestContext_Logger verifies that a custom logger can be stored in context.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// 1. Initially should return the default logger
	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Equal(t, logger, ctxutil.GetLogger(ctx))
}

/*
TestContext_Auditor verifies that a resolved auditor identity can be stored in context.
*/
func TestContext_Auditor(t *testing.T) {
	ctx := context.Background()
	id := audit.Identity{Principal: "user-123"}

	// 1. Initially should be the zero value
	assert.Equal(t, audit.Identity{}, ctxutil.GetAuditor(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithAuditor(ctx, id)
	retrieved := ctxutil.GetAuditor(ctx)

	assert.Equal(t, "user-123", retrieved.Principal)
	assert.False(t, retrieved.Anonymous)
}
