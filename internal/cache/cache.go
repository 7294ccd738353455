// Package cache is the fast-path mirror next to the session store. It
// holds the state that must be readable in microseconds and may be lost
// without correctness impact: per-participant voice settings, active
// emergency alerts and participant counters. Entries carry a TTL; the
// persisted store stays authoritative.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/havenward/sanctum/internal/domain"
)

type Config struct {
	// Path is the directory for the badger files. Ignored when InMemory
	// is set.
	Path string

	// InMemory disables disk persistence. Used in tests and acceptable in
	// production since the cache is not authoritative.
	InMemory bool

	SyncWrites bool

	// DefaultTTL bounds the lifetime of every entry. Zero means entries
	// live until explicitly purged.
	DefaultTTL time.Duration

	Logger *slog.Logger
}

func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: false,
		DefaultTTL: 24 * time.Hour,
	}
}

func InMemoryConfig() Config {
	return Config{
		InMemory:   true,
		DefaultTTL: 24 * time.Hour,
	}
}

type Store struct {
	db  *badger.DB
	ttl time.Duration
	log *slog.Logger
}

func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("cache path is empty")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Store{db: db, ttl: cfg.DefaultTTL, log: log}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func voiceKey(sessionID uuid.UUID, participantID string) []byte {
	return []byte("voice/" + sessionID.String() + "/" + participantID)
}

func alertPrefix(sessionID uuid.UUID) []byte {
	return []byte("alert/" + sessionID.String() + "/")
}

func alertKey(sessionID, alertID uuid.UUID) []byte {
	return append(alertPrefix(sessionID), []byte(alertID.String())...)
}

func countKey(sessionID uuid.UUID) []byte {
	return []byte("count/" + sessionID.String())
}

// PutVoiceSettings stores a participant's validated voice settings.
func (s *Store) PutVoiceSettings(sessionID uuid.UUID, participantID string, settings domain.VoiceSettings) error {
	return s.setJSON(voiceKey(sessionID, participantID), settings)
}

// GetVoiceSettings returns the cached settings, or (zero, false) on miss.
func (s *Store) GetVoiceSettings(sessionID uuid.UUID, participantID string) (domain.VoiceSettings, bool, error) {
	var settings domain.VoiceSettings
	found, err := s.getJSON(voiceKey(sessionID, participantID), &settings)
	return settings, found, err
}

// PutAlert stores an emergency alert under the session's alert prefix.
func (s *Store) PutAlert(alert domain.EmergencyAlert) error {
	return s.setJSON(alertKey(alert.SessionID, alert.ID), alert)
}

// ActiveAlerts returns the session's alerts still in active status.
func (s *Store) ActiveAlerts(sessionID uuid.UUID) ([]domain.EmergencyAlert, error) {
	var alerts []domain.EmergencyAlert

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := alertPrefix(sessionID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var alert domain.EmergencyAlert
				if err := json.Unmarshal(val, &alert); err != nil {
					return err
				}
				if alert.Status == domain.AlertActive {
					alerts = append(alerts, alert)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// ResolveAlert flips an alert to resolved if it is still present.
func (s *Store) ResolveAlert(sessionID, alertID uuid.UUID) error {
	key := alertKey(sessionID, alertID)

	var alert domain.EmergencyAlert
	found, err := s.getJSON(key, &alert)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	alert.Status = domain.AlertResolved
	return s.setJSON(key, alert)
}

// SetParticipantCount mirrors the roster size for cheap capacity reads.
func (s *Store) SetParticipantCount(sessionID uuid.UUID, count int) error {
	return s.setRaw(countKey(sessionID), []byte(strconv.Itoa(count)))
}

// ParticipantCount returns the cached roster size, or (0, false) on miss.
func (s *Store) ParticipantCount(sessionID uuid.UUID) (int, bool, error) {
	raw, found, err := s.getRaw(countKey(sessionID))
	if err != nil || !found {
		return 0, found, err
	}
	count, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

// PurgeSession removes every cache entry belonging to a session. Callers
// delay this after the final broadcast so clients still draining their
// event channel observe a consistent view.
func (s *Store) PurgeSession(sessionID uuid.UUID) error {
	prefixes := [][]byte{
		[]byte("voice/" + sessionID.String() + "/"),
		alertPrefix(sessionID),
		countKey(sessionID),
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, prefix := range prefixes {
			it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
			var keys [][]byte
			for it.Rewind(); it.Valid(); it.Next() {
				keys = append(keys, it.Item().KeyCopy(nil))
			}
			it.Close()

			for _, key := range keys {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *Store) setJSON(key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.setRaw(key, raw)
}

func (s *Store) setRaw(key, val []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, val)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (s *Store) getJSON(key []byte, out any) (bool, error) {
	raw, found, err := s.getRaw(key)
	if err != nil || !found {
		return found, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) getRaw(key []byte) ([]byte, bool, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// badgerLogger adapts slog to badger's logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
