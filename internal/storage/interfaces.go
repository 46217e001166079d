// Package storage defines the repository contract shared by the MySQL and
// in-memory subscriber store implementations.
package storage

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors surfaced by every store implementation. Handlers map these
// to HTTP status codes; anything else is treated as a storage failure.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrPackageNotFound = errors.New("package does not exist")
)

// CheckRow is one raw radcheck attribute row as returned to API callers.
type CheckRow struct {
	Username string `json:"username"`
	Value    string `json:"value"`
}

// PackageRow identifies a service package by its FreeRADIUS group name.
type PackageRow struct {
	GroupName string `json:"groupname"`
}

// AccountingSession is one radacct row. Stop time, session time and the
// terminate cause are null while the session is active; a null stop time is
// the sole online indicator.
type AccountingSession struct {
	RadAcctID          int64      `json:"radacctid"`
	Username           string     `json:"username"`
	AcctTerminateCause string     `json:"acctterminatecause"`
	CallingStationID   string     `json:"callingstationid"`
	NASIPAddress       string     `json:"nasipaddress"`
	AcctStartTime      time.Time  `json:"acctstarttime"`
	AcctUpdateTime     *time.Time `json:"acctupdatetime"`
	AcctStopTime       *time.Time `json:"acctstoptime"`
	AcctSessionTime    *int64     `json:"acctsessiontime"`
	AcctInputOctets    int64      `json:"acctinputoctets"`
	AcctOutputOctets   int64      `json:"acctoutputoctets"`
	FramedIPAddress    string     `json:"framedipaddress"`
}

// OnlineSession is the trimmed radacct projection returned by the online
// listing.
type OnlineSession struct {
	RadAcctID        int64     `json:"radacctid"`
	Username         string    `json:"username"`
	CallingStationID string    `json:"callingstationid"`
	NASIPAddress     string    `json:"nasipaddress"`
	AcctStartTime    time.Time `json:"acctstarttime"`
	FramedIPAddress  string    `json:"framedipaddress"`
}

// Nas is one row of the nas client registry.
type Nas struct {
	NasName     string `json:"nasname"`
	ShortName   string `json:"shortname"`
	Type        string `json:"type"`
	Secret      string `json:"secret"`
	Description string `json:"description"`
}

// Repository persists subscriber packages, users, NAS devices and reads the
// accounting data written by the external RADIUS process. Multi-row writes
// are atomic: either every statement applies or none does.
type Repository interface {
	// CreatePackage registers a package with its pool and default reply
	// attributes. Returns ErrAlreadyExists when the group name is taken.
	CreatePackage(ctx context.Context, name, pool string) error

	// ListPackages returns the total distinct package count and one page of
	// package names in storage order.
	ListPackages(ctx context.Context, limit, offset int) (int, []PackageRow, error)

	// CreateUser stores the user's check attributes and group membership.
	// Returns ErrAlreadyExists for a duplicate username and
	// ErrPackageNotFound when the store validates package references.
	CreateUser(ctx context.Context, username, password, expiration, pkg string) error

	// GetUser returns the user's raw check attribute rows, or ErrNotFound.
	GetUser(ctx context.Context, username string) ([]CheckRow, error)

	// DeleteUser removes the user's check attributes and memberships.
	// Accounting history is left untouched. Returns ErrNotFound when absent.
	DeleteUser(ctx context.Context, username string) error

	// ListAccounting returns the user's total session count and one page of
	// sessions ordered by radacctid ascending. Returns ErrNotFound when the
	// user does not exist.
	ListAccounting(ctx context.Context, username string, limit, offset int) (int, []AccountingSession, error)

	// ListOnline returns every session whose stop time is null.
	ListOnline(ctx context.Context) ([]OnlineSession, error)

	// CountOnline returns the number of sessions with a null stop time.
	CountOnline(ctx context.Context) (int, error)

	// UserOnlineStatus reports "Online" when the user has at least one open
	// session, else "Offline". Returns ErrNotFound when the user is unknown.
	UserOnlineStatus(ctx context.Context, username string) (string, error)

	// CreateNas registers a NAS device. Returns ErrAlreadyExists when the
	// name is taken.
	CreateNas(ctx context.Context, nas Nas) error

	// Ping probes the backing store for the health endpoint.
	Ping(ctx context.Context) error
}
