// Package timeouts defines shared timeout constants used across the host and
// client transports. Centralizing these values prevents drift between the two
// sides of the protocol and makes the durations discoverable.
package timeouts

import "time"

// Dial caps the wait time when opening a WebSocket connection to a host.
const Dial = 3 * time.Second

// Handshake caps the wait for the Welcome/StateSnapshot reply after a Hello.
const Handshake = 5 * time.Second

// Write caps a single frame send to one peer so a stalled connection cannot
// block fanout to the others.
const Write = 2 * time.Second

// HeartbeatInterval is how often the host pings each connected participant.
const HeartbeatInterval = 2 * time.Second

// HostLiveness is how long a client waits without any host traffic before
// declaring the host lost and starting successor election.
const HostLiveness = 10 * time.Second

// ReconnectBaseDelay is the initial wait between client reconnect attempts;
// the delay grows linearly with the attempt number.
const ReconnectBaseDelay = time.Second

// ReconnectMaxAttempts bounds client reconnection before the failure becomes
// terminal.
const ReconnectMaxAttempts = 5

// ReadHeader limits how long the host HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the host waits for in-flight work during graceful
// shutdown.
const Shutdown = 5 * time.Second
