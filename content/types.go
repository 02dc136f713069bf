// SPDX-License-Identifier: LGPL-3.0-or-later

// Package content implements message-content encryption over an
// established chat's symmetric key. It is a thin convenience layer on
// top of the handshake/store packages: the key-establishment core does
// not require it, but once a ChatKeyRing reaches ESTABLISHED its
// Symmetric field is ready to drive an AEAD session for the actual
// message traffic.
package content

import "time"

// Config bounds a Session's lifetime, mirroring the expiry policy a
// long-lived symmetric key needs independently of the handshake that
// produced it.
type Config struct {
	MaxAge      time.Duration `json:"maxAge"`
	IdleTimeout time.Duration `json:"idleTimeout"`
	MaxMessages int           `json:"maxMessages"`
}

// Stats summarizes a Manager's tracked sessions.
type Stats struct {
	TotalSessions   int `json:"totalSessions"`
	ActiveSessions  int `json:"activeSessions"`
	ExpiredSessions int `json:"expiredSessions"`
}
