// Package queue defines message payloads exchanged over the message broker.
package queue

// AccessRevokedEvent is published when a transaction reaches FAILED or
// EXPIRED and its sessions have been deactivated.  The hotspot
// controller consumes it to cut the device off at the network level;
// other consumers can log or feed analytics without querying the
// primary database.
type AccessRevokedEvent struct {
    TransactionID  uint64 `json:"transaction_id"`
    Status         string `json:"status"`
    DeviceID       string `json:"device_id"`
    SessionsClosed int64  `json:"sessions_closed"`
    RevokedAt      string `json:"revoked_at"`
}

// SessionOpenedEvent is published when a device opens a session
// against a successful transaction.  The hotspot controller consumes
// it to grant the device network access.
type SessionOpenedEvent struct {
    SessionID     uint64 `json:"session_id"`
    TransactionID uint64 `json:"transaction_id"`
    DeviceID      string `json:"device_id"`
    IPAddress     string `json:"ip_address,omitempty"`
    OpenedAt      string `json:"opened_at"`
}
