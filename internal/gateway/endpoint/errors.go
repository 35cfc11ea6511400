// Copyright (c) 2026 Sigma. All rights reserved.

package endpoint

import "fmt"

// ConfigError marks a malformed config subtree. The Endpoint Registry
// logs it and excludes the offending endpoint rather than aborting
// startup or a reload.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return e.msg }

func newConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}
