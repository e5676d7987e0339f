package session

import "time"

// Category buckets a client into a coarse device class used for statistics.
type Category uint8

const (
	// CategoryUnknown is reserved for blobs whose device byte is
	// unrecognized; the classifier itself never produces it.
	CategoryUnknown Category = iota
	// CategoryDesktop is an exported constant used by statistics consumers.
	CategoryDesktop
	// CategoryMobile is an exported constant used by statistics consumers.
	CategoryMobile
	// CategoryTablet is an exported constant used by statistics consumers.
	CategoryTablet
)

// Categories lists every device class in counter-key order.
var Categories = []Category{CategoryDesktop, CategoryMobile, CategoryTablet, CategoryUnknown}

func (c Category) String() string {
	switch c {
	case CategoryDesktop:
		return "desktop"
	case CategoryMobile:
		return "mobile"
	case CategoryTablet:
		return "tablet"
	default:
		return "unknown"
	}
}

// User is the slice of a user record the session payload carries. The
// authoritative record lives in the portal's relational layer; this package
// never reads it back.
type User struct {
	ID            string
	Name          string
	Email         string
	Role          string
	InstitutionID string
	Permissions   []string
}

// ClientInfo is the request metadata captured at login.
type ClientInfo struct {
	IP          string
	UserAgent   string
	DeviceLabel string
	Location    string
}

// Session is one authenticated device instance. Timestamps are Unix
// milliseconds; millisecond resolution keeps recency ordering stable for
// sessions created in the same second.
type Session struct {
	SessionID string

	UserID        string
	Name          string
	Email         string
	Role          string
	InstitutionID string
	Permissions   []string

	Device      Category
	IP          string
	UserAgent   string
	DeviceLabel string
	Location    string

	RefreshHash [32]byte

	CreatedAt  int64
	LastSeenAt int64
	ExpiresAt  int64
}

// Created is the result of [Store.Create]. RefreshValue is returned exactly
// once; only its hash is persisted.
type Created struct {
	SessionID    string
	RefreshValue string
	Session      *Session
}

// Summary is the per-device view returned by [Store.ListForUser].
type Summary struct {
	SessionID   string
	Device      Category
	DeviceLabel string
	IP          string
	UserAgent   string
	Location    string
	CreatedAt   time.Time
	LastSeenAt  time.Time
	ExpiresAt   time.Time
}

// Stats is the aggregate snapshot served by [Store.Statistics].
type Stats struct {
	ActiveUsers   int            `json:"active_users"`
	TotalSessions int            `json:"total_sessions"`
	ByDevice      map[string]int `json:"by_device"`
}
