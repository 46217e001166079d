// Package mysql implements the subscriber repository over the FreeRADIUS
// MySQL schema using raw parameterized queries. Column and table names are an
// external contract with the RADIUS authentication and accounting processes
// and must not be changed.
package mysql

import (
	"context"
	"database/sql"

	"github.com/cybernazmul/freeradius-mikrotik-api/internal/database"
	"github.com/cybernazmul/freeradius-mikrotik-api/internal/storage"
)

// Store implements storage.Repository backed by MySQL.
type Store struct {
	db *sql.DB
}

var _ storage.Repository = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- Packages ---------------------------------------------------------------

func (s *Store) CreatePackage(ctx context.Context, name, pool string) error {
	// Fast-path duplicate check; the unique key on (groupname, attribute)
	// remains the real guard against a concurrent create racing past it.
	exists, err := s.exists(ctx, `SELECT COUNT(*) FROM radgroupcheck WHERE groupname = ?`, name)
	if err != nil {
		return err
	}
	if exists {
		return storage.ErrAlreadyExists
	}

	return database.Tx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO radgroupcheck (groupname, attribute, op, value) VALUES (?, ?, ?, ?)`,
			name, "Simultaneous-Use", ":=", "1"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO radgroupreply (groupname, attribute, op, value) VALUES (?, ?, ?, ?)`,
			name, "Framed-Pool", "=", pool); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO radgroupreply (groupname, attribute, op, value) VALUES (?, ?, ?, ?)`,
			name, "Acct-Interim-Interval", "=", "120")
		return err
	})
}

func (s *Store) ListPackages(ctx context.Context, limit, offset int) (int, []storage.PackageRow, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT groupname) FROM radgroupcheck`).Scan(&total); err != nil {
		return 0, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT groupname FROM radgroupcheck LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	var result []storage.PackageRow
	for rows.Next() {
		var row storage.PackageRow
		if err := rows.Scan(&row.GroupName); err != nil {
			return 0, nil, err
		}
		result = append(result, row)
	}
	return total, result, rows.Err()
}

// --- Users ------------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, username, password, expiration, pkg string) error {
	exists, err := s.userExists(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		return storage.ErrAlreadyExists
	}

	// The password is stored in clear text because the downstream RADIUS
	// authenticator matches on the raw Cleartext-Password attribute.
	return database.Tx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO radcheck (username, attribute, op, value) VALUES (?, ?, ?, ?)`,
			username, "Cleartext-Password", ":=", password); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO radcheck (username, attribute, op, value) VALUES (?, ?, ?, ?)`,
			username, "Expiration", ":=", expiration); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO radusergroup (username, groupname) VALUES (?, ?)`,
			username, pkg)
		return err
	})
}

func (s *Store) GetUser(ctx context.Context, username string) ([]storage.CheckRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT username, value FROM radcheck WHERE username = ?`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []storage.CheckRow
	for rows.Next() {
		var row storage.CheckRow
		if err := rows.Scan(&row.Username, &row.Value); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, storage.ErrNotFound
	}
	return result, nil
}

func (s *Store) DeleteUser(ctx context.Context, username string) error {
	exists, err := s.userExists(ctx, username)
	if err != nil {
		return err
	}
	if !exists {
		return storage.ErrNotFound
	}

	return database.Tx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM radcheck WHERE username = ?`, username); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`DELETE FROM radusergroup WHERE username = ?`, username)
		return err
	})
}

// --- Accounting -------------------------------------------------------------

func (s *Store) ListAccounting(ctx context.Context, username string, limit, offset int) (int, []storage.AccountingSession, error) {
	exists, err := s.userExists(ctx, username)
	if err != nil {
		return 0, nil, err
	}
	if !exists {
		return 0, nil, storage.ErrNotFound
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM radacct WHERE username = ?`, username).Scan(&total); err != nil {
		return 0, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT radacctid, username, acctterminatecause, callingstationid,
		       nasipaddress, acctstarttime, acctupdatetime, acctstoptime,
		       acctsessiontime, acctinputoctets, acctoutputoctets, framedipaddress
		FROM radacct
		WHERE username = ?
		ORDER BY radacctid
		LIMIT ? OFFSET ?`, username, limit, offset)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	var result []storage.AccountingSession
	for rows.Next() {
		var (
			sess        storage.AccountingSession
			cause       sql.NullString
			updateTime  sql.NullTime
			stopTime    sql.NullTime
			sessionTime sql.NullInt64
		)
		if err := rows.Scan(&sess.RadAcctID, &sess.Username, &cause,
			&sess.CallingStationID, &sess.NASIPAddress, &sess.AcctStartTime,
			&updateTime, &stopTime, &sessionTime,
			&sess.AcctInputOctets, &sess.AcctOutputOctets, &sess.FramedIPAddress); err != nil {
			return 0, nil, err
		}
		sess.AcctTerminateCause = cause.String
		if updateTime.Valid {
			t := updateTime.Time
			sess.AcctUpdateTime = &t
		}
		if stopTime.Valid {
			t := stopTime.Time
			sess.AcctStopTime = &t
		}
		if sessionTime.Valid {
			n := sessionTime.Int64
			sess.AcctSessionTime = &n
		}
		result = append(result, sess)
	}
	return total, result, rows.Err()
}

func (s *Store) ListOnline(ctx context.Context) ([]storage.OnlineSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT radacctid, username, callingstationid, nasipaddress,
		       acctstarttime, framedipaddress
		FROM radacct
		WHERE acctstoptime IS NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []storage.OnlineSession
	for rows.Next() {
		var sess storage.OnlineSession
		if err := rows.Scan(&sess.RadAcctID, &sess.Username, &sess.CallingStationID,
			&sess.NASIPAddress, &sess.AcctStartTime, &sess.FramedIPAddress); err != nil {
			return nil, err
		}
		result = append(result, sess)
	}
	return result, rows.Err()
}

func (s *Store) CountOnline(ctx context.Context) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM radacct WHERE acctstoptime IS NULL`).Scan(&total)
	return total, err
}

func (s *Store) UserOnlineStatus(ctx context.Context, username string) (string, error) {
	exists, err := s.userExists(ctx, username)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", storage.ErrNotFound
	}

	var open int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM radacct WHERE username = ? AND acctstoptime IS NULL`,
		username).Scan(&open); err != nil {
		return "", err
	}
	if open > 0 {
		return "Online", nil
	}
	return "Offline", nil
}

// --- NAS --------------------------------------------------------------------

func (s *Store) CreateNas(ctx context.Context, nas storage.Nas) error {
	exists, err := s.exists(ctx, `SELECT COUNT(*) FROM nas WHERE nasname = ?`, nas.NasName)
	if err != nil {
		return err
	}
	if exists {
		return storage.ErrAlreadyExists
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO nas (nasname, shortname, type, secret, description) VALUES (?, ?, ?, ?, ?)`,
		nas.NasName, nas.ShortName, nas.Type, nas.Secret, nas.Description)
	return err
}

// --- Health -----------------------------------------------------------------

func (s *Store) Ping(ctx context.Context) error {
	var one int
	return s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
}

// --- Helpers ----------------------------------------------------------------

func (s *Store) userExists(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, `SELECT COUNT(*) FROM radcheck WHERE username = ?`, username)
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
