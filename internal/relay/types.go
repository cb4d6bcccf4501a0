package relay

import (
	"encoding/json"
	"time"
)

// #region envelope
// Envelope is the websocket frame: an event name plus an opaque payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Websocket event names.
const (
	EventCodeUpdate       = "code-update"       // inbound
	EventCodeUpdated      = "code-updated"      // rebroadcast of code-update
	EventCollapseEvent    = "collapse-event"    // inbound
	EventCollapseOccurred = "collapse-occurred" // rebroadcast of collapse-event
	EventWelcome          = "welcome"           // sent once on connect
)

// #endregion envelope

// #region options
// Options configures the HTTP surface.
type Options struct {
	ClientURL         string        // allowed CORS and websocket origin; "*" allows any
	RateLimitRequests int           // per client, per window, on /api
	RateLimitWindow   time.Duration // 0 disables rate limiting
}

// DefaultOptions returns the options used by the serve command when nothing is configured.
func DefaultOptions() Options {
	return Options{
		ClientURL:         "http://localhost:3000",
		RateLimitRequests: 100,
		RateLimitWindow:   15 * time.Minute,
	}
}

// #endregion options

// #region payloads
type inputRequest struct {
	Text *string `json:"text" binding:"required"`
}

type executeRequest struct {
	Code string `json:"code" binding:"required"`
}

type welcomePayload struct {
	ClientID  string `json:"clientId"`
	SessionID string `json:"sessionId,omitempty"`
}

// enginePayload is broadcast for engine events.
type enginePayload struct {
	SessionID  string      `json:"sessionId"`
	CollapseID string      `json:"collapseId,omitempty"`
	Snapshot   interface{} `json:"snapshot"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// #endregion payloads
