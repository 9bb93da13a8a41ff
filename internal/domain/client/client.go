// Package client classifies the user agent that opens a session.
package client

import (
	"fmt"
	"strings"

	"github.com/avct/uasurfer"

	"github.com/okian/quizgate/internal/domain/model"
)

// Device classes reported in ClientInfo.
const (
	DeviceComputer = "computer"
	DeviceTablet   = "tablet"
	DevicePhone    = "phone"
	DeviceConsole  = "console"
	DeviceWearable = "wearable"
	DeviceTV       = "tv"
	DeviceUnknown  = "unknown"
)

// Classify parses a User-Agent header. An empty header yields an unknown
// device; crawler agents are flagged as bots.
func Classify(userAgent string) model.ClientInfo {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return model.ClientInfo{Device: DeviceUnknown, OS: "unknown", Browser: "unknown"}
	}

	ua := uasurfer.Parse(userAgent)
	info := model.ClientInfo{
		Device:  device(ua.DeviceType),
		OS:      fmt.Sprintf("%s %d.%d", trimPrefix(ua.OS.Name.String(), "OS"), ua.OS.Version.Major, ua.OS.Version.Minor),
		Browser: fmt.Sprintf("%s %d.%d", trimPrefix(ua.Browser.Name.String(), "Browser"), ua.Browser.Version.Major, ua.Browser.Version.Minor),
		Bot:     ua.IsBot(),
	}
	return info
}

func device(d uasurfer.DeviceType) string {
	switch d {
	case uasurfer.DeviceComputer:
		return DeviceComputer
	case uasurfer.DeviceTablet:
		return DeviceTablet
	case uasurfer.DevicePhone:
		return DevicePhone
	case uasurfer.DeviceConsole:
		return DeviceConsole
	case uasurfer.DeviceWearable:
		return DeviceWearable
	case uasurfer.DeviceTV:
		return DeviceTV
	default:
		return DeviceUnknown
	}
}

// uasurfer names carry a type prefix, e.g. "BrowserChrome".
func trimPrefix(name, prefix string) string {
	if s := strings.TrimPrefix(name, prefix); s != "" {
		return s
	}
	return name
}
