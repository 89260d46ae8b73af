package model

import "time"

// UserSession is one device's active claim against a successful
// transaction.  At most one session per transaction may have
// IsActive set at any instant; opening or reactivating a session
// deactivates all siblings.  Sessions are never hard-deleted –
// expiry flips IsActive off and leaves the row for audit.
//
// Fields:
//  ID            – primary key identifier.
//  TransactionID – transaction whose access grant this session consumes.
//  DeviceID      – MAC-like identifier of the device.
//  IPAddress     – address assigned by the hotspot (nullable).
//  IsActive      – whether this session currently grants access.
//  CreatedAt     – when the session was first opened.
//  UpdatedAt     – last validity check or state change.
type UserSession struct {
    ID            uint64     // user_sessions.id
    TransactionID uint64     // user_sessions.transaction_id
    DeviceID      string     // user_sessions.device_id
    IPAddress     *string    // user_sessions.ip_address (nullable)
    IsActive      bool       // user_sessions.is_active
    CreatedAt     time.Time  // user_sessions.created_at
    UpdatedAt     time.Time  // user_sessions.updated_at
}
