// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import "fmt"

// ValidationLevel distinguishes a hard failure from an advisory warning.
type ValidationLevel string

const (
	ValidationError   ValidationLevel = "error"
	ValidationWarning ValidationLevel = "warning"
)

// ValidationIssue is a single configuration problem found by
// ValidateConfiguration.
type ValidationIssue struct {
	Field   string
	Message string
	Level   ValidationLevel
}

var validKEMs = map[string]bool{"Kyber512": true, "Kyber768": true, "Kyber1024": true}
var validSymmetric = map[string]bool{"AES-256": true, "CHACHA20": true}
var validSignatures = map[string]bool{"Dilithium2": true, "Dilithium3": true, "Dilithium5": true, "FALCON": true}
var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// ValidateConfiguration checks a loaded Config for internally-inconsistent
// or unsupported values. Issues at ValidationError level should abort
// loading; ValidationWarning issues are informational only.
func ValidateConfiguration(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Chat != nil {
		if cfg.Chat.Mode != "p2p" && cfg.Chat.Mode != "server" {
			issues = append(issues, ValidationIssue{
				Field: "chat.mode", Level: ValidationError,
				Message: fmt.Sprintf("unsupported chat mode %q, must be p2p or server", cfg.Chat.Mode),
			})
		}
		if cfg.Chat.KEM != "" && !validKEMs[cfg.Chat.KEM] {
			issues = append(issues, ValidationIssue{
				Field: "chat.kem", Level: ValidationError,
				Message: fmt.Sprintf("unsupported KEM %q", cfg.Chat.KEM),
			})
		}
		if cfg.Chat.Symmetric != "" && !validSymmetric[cfg.Chat.Symmetric] {
			issues = append(issues, ValidationIssue{
				Field: "chat.symmetric", Level: ValidationError,
				Message: fmt.Sprintf("unsupported symmetric algorithm %q", cfg.Chat.Symmetric),
			})
		}
		if cfg.Chat.Signature != "" && !validSignatures[cfg.Chat.Signature] {
			issues = append(issues, ValidationIssue{
				Field: "chat.signature", Level: ValidationError,
				Message: fmt.Sprintf("unsupported signature algorithm %q", cfg.Chat.Signature),
			})
		}
	}

	if cfg.Store != nil && cfg.Store.Directory == "" {
		issues = append(issues, ValidationIssue{
			Field: "store.directory", Level: ValidationWarning,
			Message: "store directory is empty, a default will be applied",
		})
	}

	if cfg.Reaper != nil {
		if cfg.Reaper.MaxPendingAge > cfg.Reaper.MaxChatAge && cfg.Reaper.MaxChatAge > 0 {
			issues = append(issues, ValidationIssue{
				Field: "reaper.max_pending_age", Level: ValidationWarning,
				Message: "max_pending_age exceeds max_chat_age; pending secrets outlive their chat",
			})
		}
	}

	if cfg.Logging != nil && cfg.Logging.Level != "" && !validLogLevels[cfg.Logging.Level] {
		issues = append(issues, ValidationIssue{
			Field: "logging.level", Level: ValidationError,
			Message: fmt.Sprintf("invalid log level %q", cfg.Logging.Level),
		})
	}

	return issues
}
