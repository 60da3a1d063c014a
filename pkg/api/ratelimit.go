// Claire Driver
// Copyright (c) 2026 The Claire Driver Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Claire Driver.
//
// Claire Driver is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Claire Driver is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Claire Driver.  If not, see <http://www.gnu.org/licenses/>.

package api

import (
	"net"
	"net/http"
	"time"

	"github.com/claire-rig/claire-driver/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	RequestsPerMinute = 120
	BurstSize         = 20
	limiterMaxAge     = 10 * time.Minute
)

// IPRateLimiter hands out a token bucket per remote address.
type IPRateLimiter struct {
	limiters map[string]*limiterEntry
	now      func() time.Time
	limit    rate.Limit
	burst    int
	mu       syncutil.Mutex
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewIPRateLimiter() *IPRateLimiter {
	return &IPRateLimiter{
		limiters: make(map[string]*limiterEntry),
		now:      time.Now,
		limit:    rate.Limit(float64(RequestsPerMinute) / 60.0),
		burst:    BurstSize,
	}
}

// Allow reports whether a request from ip may proceed. Entries idle for
// longer than limiterMaxAge are pruned on the way.
func (rl *IPRateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for k, e := range rl.limiters {
		if now.Sub(e.lastSeen) > limiterMaxAge {
			delete(rl.limiters, k)
		}
	}

	entry, ok := rl.limiters[ip]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func remoteIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// RateLimit rejects clients that exceed their per-address budget.
func RateLimit(limiter *IPRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := remoteIP(r.RemoteAddr)
			if !limiter.Allow(ip) {
				log.Warn().
					Str("ip", ip).
					Str("path", r.URL.Path).
					Msg("HTTP rate limit exceeded")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
