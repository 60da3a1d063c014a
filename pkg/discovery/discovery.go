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

// Package discovery advertises the status server over mDNS so dashboards on
// the lab network can find running rigs.
package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/claire-rig/claire-driver/pkg/config"
	"github.com/claire-rig/claire-driver/pkg/helpers/syncutil"
	"github.com/grandcat/zeroconf"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	ServiceType = "_claire._tcp"

	retryInterval    = 30 * time.Second
	maxRetryDuration = 5 * time.Minute
)

var virtualInterfacePrefixes = []string{
	"docker", "br-", "veth", "virbr", "lxc", "lxd",
	"cni", "flannel", "cali", "tunl", "wg",
}

type shutdowner interface {
	Shutdown()
}

type registerFunc func(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (shutdowner, error)

func zeroconfRegister(
	instance, service, domain string,
	port int,
	txt []string,
	ifaces []net.Interface,
) (shutdowner, error) {
	server, err := zeroconf.Register(instance, service, domain, port, txt, ifaces)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	return server, nil
}

// filterInterfaces keeps interfaces that are up, multicast capable and not
// loopback or virtual.
func filterInterfaces(ifaces []net.Interface) []net.Interface {
	var preferred []net.Interface
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 ||
			iface.Flags&net.FlagLoopback != 0 ||
			iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		if isVirtualInterface(iface.Name) {
			continue
		}
		preferred = append(preferred, iface)
	}
	return preferred
}

func isVirtualInterface(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range virtualInterfacePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// ListenPort extracts the port from a listen address such as ":9108".
func ListenPort(listen string) (int, error) {
	_, portStr, err := net.SplitHostPort(listen)
	if err != nil {
		return 0, fmt.Errorf("invalid listen address %q: %w", listen, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return 0, fmt.Errorf("invalid listen port %q", portStr)
	}
	return port, nil
}

// Service advertises one status server. Registration is retried in the
// background while the network comes up.
type Service struct {
	server     shutdowner
	clock      clockwork.Clock
	register   registerFunc
	interfaces func() ([]net.Interface, error)
	cancel     context.CancelFunc
	instance   string
	txt        []string
	port       int
	stopped    bool
	mu         syncutil.Mutex
}

// New prepares advertising for a status server on port. An empty instance
// name falls back to the hostname.
func New(instance string, port int, sessionID, serialPort string) *Service {
	return &Service{
		clock:      clockwork.NewRealClock(),
		register:   zeroconfRegister,
		interfaces: net.Interfaces,
		instance:   instance,
		port:       port,
		txt: []string{
			"session=" + sessionID,
			"port=" + serialPort,
			"version=" + config.AppVersion,
		},
	}
}

func (s *Service) Start() {
	if s.instance == "" {
		s.instance = resolveInstanceName()
	}

	if s.tryRegister() {
		return
	}

	log.Info().
		Dur("retryInterval", retryInterval).
		Msg("mDNS registration failed, retrying in background")

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go s.retryLoop(ctx)
}

func (s *Service) tryRegister() bool {
	all, err := s.interfaces()
	if err != nil {
		log.Debug().Err(err).Msg("failed to list network interfaces")
		return false
	}
	ifaces := filterInterfaces(all)
	if len(ifaces) == 0 {
		log.Debug().Msg("no suitable network interfaces for mDNS")
		return false
	}

	server, err := s.register(s.instance, ServiceType, "local.", s.port, s.txt, ifaces)
	if err != nil {
		log.Debug().Err(err).Msg("mDNS registration attempt failed")
		return false
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		server.Shutdown()
		return false
	}
	s.server = server
	s.mu.Unlock()

	log.Info().
		Str("instance", s.instance).
		Int("port", s.port).
		Str("type", ServiceType).
		Msg("mDNS advertising started")
	return true
}

func (s *Service) retryLoop(ctx context.Context) {
	ticker := s.clock.NewTicker(retryInterval)
	defer ticker.Stop()
	deadline := s.clock.After(maxRetryDuration)

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			log.Warn().Msg("mDNS registration retry timed out, discovery unavailable")
			return
		case <-ticker.Chan():
			if s.tryRegister() {
				return
			}
		}
	}
}

// Stop withdraws the advertisement. It may be called more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.server != nil {
		log.Debug().Msg("stopping mDNS advertising")
		s.server.Shutdown()
		s.server = nil
	}
}

func (s *Service) Advertising() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server != nil
}

func resolveInstanceName() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		log.Warn().Err(err).Msg("failed to get hostname, using fallback")
		return config.AppName
	}
	return config.AppName + "-" + hostname
}
