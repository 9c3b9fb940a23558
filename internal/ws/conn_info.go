package ws

import "time"

// ConnInfo describes one live websocket connection. ConnID doubles as the
// socket id announced to the client in connection.established; handlers match
// it against the X-Socket-ID header for exclude-originator delivery, so it
// must be unique per connection, not per user.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
