// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package health implements readiness/liveness probes for the chat key
// establishment core. Two concerns are checked: the ChatStore's backing
// directory exists and is a directory, and the StaleReaper is still
// sweeping. A store outage is reported unhealthy (every chat write would
// fail); a quiet reaper is reported degraded, since chats keep handshaking
// correctly even if cleanup has stalled.
package health

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/0xEodum/NativeLayer/internal/logger"
)

// Status represents the health status of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the outcome of a single probe run.
type CheckResult struct {
	Name      string                 `json:"name"`
	Status    Status                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Duration  time.Duration          `json:"duration"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// HealthCheck is a single probe. It returns a non-nil error when the
// probed component is not functioning.
type HealthCheck func(ctx context.Context) error

// registration pairs a probe with whether its failure should be treated
// as a hard outage (StatusUnhealthy) or a soft warning (StatusDegraded).
type registration struct {
	check    HealthCheck
	critical bool
}

// HealthChecker runs and caches the chat core's named probes.
type HealthChecker struct {
	mu       sync.RWMutex
	checks   map[string]registration
	cache    map[string]*cachedResult
	timeout  time.Duration
	cacheTTL time.Duration
	logger   logger.Logger
}

// cachedResult stores a cached probe result so repeated readiness polls
// (e.g. from a load balancer hitting /health every few seconds) don't
// re-stat the store directory on every request.
type cachedResult struct {
	result    *CheckResult
	expiresAt time.Time
}

// NewHealthChecker creates a checker whose probes are each bounded by
// timeout (defaulting to 5s) and whose results are cached for 10s.
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &HealthChecker{
		checks:   make(map[string]registration),
		timeout:  timeout,
		logger:   logger.GetDefaultLogger(),
		cacheTTL: 10 * time.Second,
		cache:    make(map[string]*cachedResult),
	}
}

// SetLogger overrides the checker's logger.
func (h *HealthChecker) SetLogger(l logger.Logger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logger = l
}

// SetCacheTTL overrides how long a probe result is reused before the
// checker re-runs it.
func (h *HealthChecker) SetCacheTTL(ttl time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cacheTTL = ttl
}

// RegisterCheck registers a probe whose failure marks the whole service
// StatusUnhealthy — use for components the core cannot function without,
// such as StoreHealthCheck.
func (h *HealthChecker) RegisterCheck(name string, check HealthCheck) {
	h.register(name, check, true)
}

// RegisterOptionalCheck registers a probe whose failure only marks the
// service StatusDegraded — use for components whose outage doesn't stop
// chats from handshaking, such as ReaperHealthCheck.
func (h *HealthChecker) RegisterOptionalCheck(name string, check HealthCheck) {
	h.register(name, check, false)
}

func (h *HealthChecker) register(name string, check HealthCheck, critical bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.checks[name] = registration{check: check, critical: critical}
	h.logger.Info("health check registered",
		logger.String("name", name),
		logger.Bool("critical", critical),
	)
}

// UnregisterCheck removes a probe and its cached result.
func (h *HealthChecker) UnregisterCheck(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.checks, name)
	delete(h.cache, name)
	h.logger.Info("health check unregistered", logger.String("name", name))
}

// Check runs (or returns the cached result of) the named probe. A probe
// that exceeds the checker's timeout counts as StatusUnhealthy regardless
// of its critical flag, since a hung probe is itself a symptom.
func (h *HealthChecker) Check(ctx context.Context, name string) (*CheckResult, error) {
	h.mu.RLock()
	reg, exists := h.checks[name]
	h.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("health check not found: %s", name)
	}

	if cached := h.getCachedResult(name); cached != nil {
		return cached, nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := reg.check(checkCtx)
	duration := time.Since(start)
	timedOut := checkCtx.Err() == context.DeadlineExceeded
	if err == nil && timedOut {
		err = checkCtx.Err()
	}

	result := &CheckResult{
		Name:      name,
		Timestamp: time.Now(),
		Duration:  duration,
	}

	switch {
	case err == nil:
		result.Status = StatusHealthy
		h.logger.Debug("health check passed",
			logger.String("name", name),
			logger.Duration("duration", duration),
		)
	case reg.critical || timedOut:
		result.Status = StatusUnhealthy
		result.Message = err.Error()
		h.logger.Warn("health check failed",
			logger.String("name", name),
			logger.Error(err),
			logger.Duration("duration", duration),
		)
	default:
		result.Status = StatusDegraded
		result.Message = err.Error()
		h.logger.Warn("optional health check degraded",
			logger.String("name", name),
			logger.Error(err),
			logger.Duration("duration", duration),
		)
	}

	h.cacheResult(name, result)

	return result, nil
}

// CheckAll runs every registered probe concurrently and returns all results
// keyed by name.
func (h *HealthChecker) CheckAll(ctx context.Context) map[string]*CheckResult {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	h.mu.RUnlock()

	results := make(map[string]*CheckResult)
	var wg sync.WaitGroup
	var resultsMu sync.Mutex

	for _, name := range names {
		wg.Add(1)
		go func(checkName string) {
			defer wg.Done()

			result, err := h.Check(ctx, checkName)
			if err != nil {
				result = &CheckResult{
					Name:      checkName,
					Status:    StatusUnhealthy,
					Message:   fmt.Sprintf("check failed: %v", err),
					Timestamp: time.Now(),
				}
			}

			resultsMu.Lock()
			results[checkName] = result
			resultsMu.Unlock()
		}(name)
	}

	wg.Wait()
	return results
}

// GetOverallStatus folds every probe's result into a single service-wide
// status: any unhealthy probe dominates, then any degraded probe, else
// healthy. A checker with no registered probes reports healthy.
func (h *HealthChecker) GetOverallStatus(ctx context.Context) Status {
	results := h.CheckAll(ctx)

	if len(results) == 0 {
		return StatusHealthy
	}

	hasUnhealthy := false
	hasDegraded := false

	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			hasUnhealthy = true
		case StatusDegraded:
			hasDegraded = true
		}
	}

	switch {
	case hasUnhealthy:
		return StatusUnhealthy
	case hasDegraded:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

func (h *HealthChecker) getCachedResult(name string) *CheckResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cached, exists := h.cache[name]
	if !exists || time.Now().After(cached.expiresAt) {
		return nil
	}

	return cached.result
}

func (h *HealthChecker) cacheResult(name string, result *CheckResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cache[name] = &cachedResult{
		result:    result,
		expiresAt: time.Now().Add(h.cacheTTL),
	}
}

// ClearCache drops every cached probe result, forcing the next Check/CheckAll
// to re-run live.
func (h *HealthChecker) ClearCache() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cache = make(map[string]*cachedResult)
	h.logger.Debug("health check cache cleared")
}

// SystemHealth is the JSON shape served at the health endpoint: overall
// status plus every individual probe result.
type SystemHealth struct {
	Status    Status                  `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
	Checks    map[string]*CheckResult `json:"checks"`
	Details   map[string]interface{}  `json:"details,omitempty"`
}

// GetSystemHealth runs every probe and assembles the combined report.
func (h *HealthChecker) GetSystemHealth(ctx context.Context) *SystemHealth {
	checks := h.CheckAll(ctx)
	status := h.GetOverallStatus(ctx)

	return &SystemHealth{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
	}
}

// Probes for this core's two stateful components.

// StoreHealthCheck reports whether the ChatStore's base directory is
// present and is a directory, by statting it; write permission is not
// tested. A missing or inaccessible directory means every chat write
// would fail, so register this as a critical check.
func StoreHealthCheck(baseDir string) HealthCheck {
	return func(ctx context.Context) error {
		info, err := os.Stat(baseDir)
		if err != nil {
			return fmt.Errorf("chat store directory unreachable: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("chat store path is not a directory: %s", baseDir)
		}
		return nil
	}
}

// ReaperHealthCheck reports StaleReaper liveness: it fails if no reap
// pass has completed within maxSilence of lastRun's most recent value.
// Register this as an optional check — a stalled reaper leaves dead chats
// and expired pending secrets around longer than intended, but doesn't
// stop in-flight handshakes from completing.
func ReaperHealthCheck(lastRun func() time.Time, maxSilence time.Duration) HealthCheck {
	return func(ctx context.Context) error {
		last := lastRun()
		if last.IsZero() {
			return fmt.Errorf("stale reaper has not completed a pass yet")
		}
		if since := time.Since(last); since > maxSilence {
			return fmt.Errorf("stale reaper last ran %s ago, exceeding %s", since, maxSilence)
		}
		return nil
	}
}

// AlgorithmHealthCheck reports whether the configured default KEM still
// resolves in the circl scheme registry linked into the binary, by
// actually generating a throwaway keypair with it. generate should be a
// closure over crypto.Engine.GenerateKEMKeyPair bound to the configured
// KEM, e.g. `func() (pub, priv []byte, err error) { return
// engine.GenerateKEMKeyPair(cfg.Chat.KEM) }`. A build that drops the circl
// KEM import for the configured algorithm, or a config typo that slips
// past validation, surfaces here instead of at the first real handshake.
func AlgorithmHealthCheck(kemName string, generate func() (public, private []byte, err error)) HealthCheck {
	return func(ctx context.Context) error {
		if _, _, err := generate(); err != nil {
			return fmt.Errorf("configured KEM %q unavailable: %w", kemName, err)
		}
		return nil
	}
}
