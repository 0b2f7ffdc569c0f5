// Package timeouts defines shared timeout constants used across KdD commands.
package timeouts

import "time"

// ReferenceLookup caps one bibliographic metadata request.
const ReferenceLookup = 10 * time.Second

// GRPCDial caps the wait time when dialing the summary service.
const GRPCDial = 2 * time.Second

// Shutdown limits how long a server or telemetry exporter waits during
// graceful shutdown.
const Shutdown = 5 * time.Second
