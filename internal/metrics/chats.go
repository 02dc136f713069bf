// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatsEstablished tracks chats that reached ESTABLISHED.
	ChatsEstablished = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chats",
			Name:      "established_total",
			Help:      "Total number of chats that reached ESTABLISHED",
		},
	)

	// ChatsFailed tracks chats that reached FAILED.
	ChatsFailed = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chats",
			Name:      "failed_total",
			Help:      "Total number of chats that reached FAILED",
		},
	)

	// ChatsReaped tracks chats transitioned to FAILED by StaleReaper.
	ChatsReaped = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chats",
			Name:      "reaped_total",
			Help:      "Total number of INITIALIZING chats reaped as stale",
		},
	)

	// PendingSecretsExpired tracks pending secrets wiped by TTL expiry.
	PendingSecretsExpired = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pending_secrets",
			Name:      "expired_total",
			Help:      "Total number of pending secrets expired before a matching INIT_CONFIRM",
		},
	)

	// ChatEstablishmentDuration tracks wall-clock time from chat creation
	// to ESTABLISHED.
	ChatEstablishmentDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chats",
			Name:      "establishment_duration_seconds",
			Help:      "Time from chat creation to ESTABLISHED",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)
)
