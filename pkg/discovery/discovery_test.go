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

package discovery

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	shutdowns atomic.Int32
}

func (f *fakeServer) Shutdown() {
	f.shutdowns.Add(1)
}

type fakeRegistrar struct {
	server   *fakeServer
	lastTxt  []string
	failures int32
	calls    atomic.Int32
}

func (f *fakeRegistrar) register(_, service, _ string, _ int, txt []string, _ []net.Interface) (shutdowner, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		return nil, errors.New("network unreachable")
	}
	if service != ServiceType {
		return nil, errors.New("unexpected service type")
	}
	f.lastTxt = txt
	return f.server, nil
}

func lanInterfaces() ([]net.Interface, error) {
	return []net.Interface{
		{Name: "lo", Flags: net.FlagUp | net.FlagLoopback | net.FlagMulticast},
		{Name: "eth0", Flags: net.FlagUp | net.FlagMulticast},
	}, nil
}

func newTestService(reg *fakeRegistrar, clock clockwork.Clock) *Service {
	svc := New("rig-a", 9108, "session-1", "/dev/ttyACM0")
	svc.register = reg.register
	svc.interfaces = lanInterfaces
	svc.clock = clock
	return svc
}

func TestFilterInterfaces(t *testing.T) {
	t.Parallel()

	ifaces := []net.Interface{
		{Name: "eth0", Flags: net.FlagUp | net.FlagMulticast},
		{Name: "wlan0", Flags: net.FlagUp | net.FlagMulticast},
		{Name: "lo", Flags: net.FlagUp | net.FlagLoopback | net.FlagMulticast},
		{Name: "eth1", Flags: net.FlagMulticast},
		{Name: "ppp0", Flags: net.FlagUp},
		{Name: "docker0", Flags: net.FlagUp | net.FlagMulticast},
		{Name: "veth12ab", Flags: net.FlagUp | net.FlagMulticast},
		{Name: "WG0", Flags: net.FlagUp | net.FlagMulticast},
	}

	var names []string
	for _, iface := range filterInterfaces(ifaces) {
		names = append(names, iface.Name)
	}
	assert.Equal(t, []string{"eth0", "wlan0"}, names)
}

func TestListenPort(t *testing.T) {
	t.Parallel()

	port, err := ListenPort(":9108")
	require.NoError(t, err)
	assert.Equal(t, 9108, port)

	port, err = ListenPort("127.0.0.1:80")
	require.NoError(t, err)
	assert.Equal(t, 80, port)

	for _, bad := range []string{"9108", ":http", ":0", ""} {
		_, err := ListenPort(bad)
		require.Error(t, err, bad)
	}
}

func TestStart_RegistersImmediately(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistrar{server: &fakeServer{}}
	svc := newTestService(reg, clockwork.NewFakeClock())

	svc.Start()
	assert.True(t, svc.Advertising())
	assert.Contains(t, reg.lastTxt, "session=session-1")
	assert.Contains(t, reg.lastTxt, "port=/dev/ttyACM0")

	svc.Stop()
	svc.Stop()
	assert.False(t, svc.Advertising())
	assert.Equal(t, int32(1), reg.server.shutdowns.Load())
}

func TestStart_RetriesUntilRegistered(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	reg := &fakeRegistrar{server: &fakeServer{}, failures: 2}
	svc := newTestService(reg, clock)
	defer svc.Stop()

	svc.Start()
	assert.False(t, svc.Advertising())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, clock.BlockUntilContext(ctx, 2))
	clock.Advance(retryInterval)
	require.Eventually(t, func() bool { return reg.calls.Load() == 2 }, time.Second, time.Millisecond)
	assert.False(t, svc.Advertising())

	clock.Advance(retryInterval)
	require.Eventually(t, svc.Advertising, time.Second, time.Millisecond)
	assert.Equal(t, int32(3), reg.calls.Load())
}

func TestStart_NoInterfaces(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistrar{server: &fakeServer{}}
	svc := newTestService(reg, clockwork.NewFakeClock())
	svc.interfaces = func() ([]net.Interface, error) { return nil, nil }

	svc.Start()
	svc.Stop()
	assert.False(t, svc.Advertising())
	assert.Zero(t, reg.calls.Load())
}

func TestStopIdempotent(t *testing.T) {
	t.Parallel()

	svc := New("", 9108, "s", "p")
	svc.Stop()
	svc.Stop()
	assert.False(t, svc.Advertising())
}

func TestResolveInstanceName(t *testing.T) {
	t.Parallel()

	assert.Contains(t, resolveInstanceName(), "claire")
}
