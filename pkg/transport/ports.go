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

package transport

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// linuxPrefixes are the device names Arduino boards enumerate as.
var linuxPrefixes = []string{"ttyUSB", "ttyACM"}

var darwinPrefixes = []string{"/dev/cu.usbserial", "/dev/cu.usbmodem"}

func hasAnyPrefix(s string, prefixes []string) bool {
	return slices.ContainsFunc(prefixes, func(p string) bool {
		return strings.HasPrefix(s, p)
	})
}

func listDevDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	devices := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !hasAnyPrefix(e.Name(), linuxPrefixes) {
			continue
		}
		devices = append(devices, filepath.Join(dir, e.Name()))
	}
	return devices, nil
}

func filterPorts(ports, prefixes []string) []string {
	devices := make([]string, 0, len(ports))
	for _, p := range ports {
		if hasAnyPrefix(p, prefixes) {
			devices = append(devices, p)
		}
	}
	return devices
}

// GetSerialDeviceList returns the serial ports a rig could be plugged into.
func GetSerialDeviceList() ([]string, error) {
	if runtime.GOOS == "linux" {
		return listDevDir("/dev")
	}

	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports list on %s: %w", runtime.GOOS, err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filterPorts(ports, darwinPrefixes), nil
	case "windows":
		return filterPorts(ports, []string{"COM"}), nil
	default:
		log.Debug().Strs("ports", ports).Msg("unfiltered serial port list")
		return ports, nil
	}
}
