// Package memory is an in-memory implementation of the subscriber repository.
// It is safe for concurrent use and is intended for tests and local
// development; each Store is an explicit value scoped to its owner rather
// than process-wide shared state.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cybernazmul/freeradius-mikrotik-api/internal/storage"
)

type userRecord struct {
	password   string
	expiration string
	pkg        string
}

// Store implements storage.Repository over mutex-guarded maps.
type Store struct {
	mu           sync.RWMutex
	packages     map[string]string // groupname -> pool
	packageOrder []string
	users        map[string]userRecord
	nas          map[string]storage.Nas
	sessions     map[int64]storage.AccountingSession
}

var _ storage.Repository = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		packages: make(map[string]string),
		users:    make(map[string]userRecord),
		nas:      make(map[string]storage.Nas),
		sessions: make(map[int64]storage.AccountingSession),
	}
}

// --- Packages ---------------------------------------------------------------

func (s *Store) CreatePackage(_ context.Context, name, pool string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.packages[name]; ok {
		return storage.ErrAlreadyExists
	}
	s.packages[name] = pool
	s.packageOrder = append(s.packageOrder, name)
	return nil
}

func (s *Store) ListPackages(_ context.Context, limit, offset int) (int, []storage.PackageRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.packageOrder)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	var result []storage.PackageRow
	for _, name := range s.packageOrder[offset:end] {
		result = append(result, storage.PackageRow{GroupName: name})
	}
	return total, result, nil
}

// --- Users ------------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, username, password, expiration, pkg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return storage.ErrAlreadyExists
	}
	if _, ok := s.packages[pkg]; !ok {
		return storage.ErrPackageNotFound
	}
	s.users[username] = userRecord{password: password, expiration: expiration, pkg: pkg}
	return nil
}

func (s *Store) GetUser(_ context.Context, username string) ([]storage.CheckRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	// Same shape as the radcheck rows the SQL store returns: one row per
	// check attribute, value only.
	return []storage.CheckRow{
		{Username: username, Value: rec.password},
		{Username: username, Value: rec.expiration},
	}, nil
}

func (s *Store) DeleteUser(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; !ok {
		return storage.ErrNotFound
	}
	delete(s.users, username)
	return nil
}

// --- Accounting -------------------------------------------------------------

// SeedSession inserts an accounting row, standing in for the external RADIUS
// accounting process that owns radacct writes in production.
func (s *Store) SeedSession(sess storage.AccountingSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.RadAcctID] = sess
}

// CloseSession sets the stop time of an existing session.
func (s *Store) CloseSession(radAcctID int64, sess storage.AccountingSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[radAcctID] = sess
}

func (s *Store) ListAccounting(_ context.Context, username string, limit, offset int) (int, []storage.AccountingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.users[username]; !ok {
		return 0, nil, storage.ErrNotFound
	}

	all := s.sessionsForLocked(username)
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return total, all[offset:end], nil
}

func (s *Store) ListOnline(_ context.Context) ([]storage.OnlineSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []storage.OnlineSession
	for _, sess := range s.sessions {
		if sess.AcctStopTime != nil {
			continue
		}
		result = append(result, storage.OnlineSession{
			RadAcctID:        sess.RadAcctID,
			Username:         sess.Username,
			CallingStationID: sess.CallingStationID,
			NASIPAddress:     sess.NASIPAddress,
			AcctStartTime:    sess.AcctStartTime,
			FramedIPAddress:  sess.FramedIPAddress,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RadAcctID < result[j].RadAcctID })
	return result, nil
}

func (s *Store) CountOnline(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, sess := range s.sessions {
		if sess.AcctStopTime == nil {
			count++
		}
	}
	return count, nil
}

func (s *Store) UserOnlineStatus(_ context.Context, username string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.users[username]; !ok {
		return "", storage.ErrNotFound
	}
	for _, sess := range s.sessions {
		if sess.Username == username && sess.AcctStopTime == nil {
			return "Online", nil
		}
	}
	return "Offline", nil
}

// --- NAS --------------------------------------------------------------------

func (s *Store) CreateNas(_ context.Context, nas storage.Nas) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nas[nas.NasName]; ok {
		return storage.ErrAlreadyExists
	}
	s.nas[nas.NasName] = nas
	return nil
}

// --- Health -----------------------------------------------------------------

func (s *Store) Ping(_ context.Context) error {
	return nil
}

// --- Helpers ----------------------------------------------------------------

func (s *Store) sessionsForLocked(username string) []storage.AccountingSession {
	var result []storage.AccountingSession
	for _, sess := range s.sessions {
		if sess.Username == username {
			result = append(result, sess)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RadAcctID < result[j].RadAcctID })
	return result
}
