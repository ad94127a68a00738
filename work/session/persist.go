package session

import (
	"crypto/rand"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/panjf2000/ants/v2"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"golang.org/x/crypto/nacl/secretbox"

	"sgai-proxy/work/logger"
	"sgai-proxy/work/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PersistedStore mirrors live sessions to a SQLite table, the same
// durability concern the teacher's database.DB gives the channel/source
// tables; the rows are not read back into the in-memory Store on
// restart (see LoadAll). Writes are
// queued onto a bounded ants pool so request handlers never block on
// disk I/O (Open Question 3: write-through, not write-behind-batched).
type PersistedStore struct {
	db     *sql.DB
	logger *logger.Logger
	pool   *ants.Pool
	secret *[32]byte
}

// OpenPersisted opens (creating if needed) the SQLite-backed session
// store at path, running embedded migrations, and encrypting the
// forwarded-query bag at rest with secret via nacl/secretbox.
func OpenPersisted(path string, secret *[32]byte, log *logger.Logger) (*PersistedStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("session: create data dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("session: open sqlite3: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pool, err := ants.NewPool(8, ants.WithPreAlloc(true), ants.WithNonblocking(true))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("session: create worker pool: %w", err)
	}

	ps := &PersistedStore{db: db, logger: log, pool: pool, secret: secret}
	if err := ps.migrate(); err != nil {
		pool.Release()
		db.Close()
		return nil, err
	}
	return ps, nil
}

func (p *PersistedStore) migrate() error {
	if _, err := p.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY, applied_at TIMESTAMP NOT NULL)`); err != nil {
		return fmt.Errorf("session: create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("session: read migrations: %w", err)
	}

	for _, entry := range entries {
		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			continue
		}

		var applied int
		row := p.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version)
		if err := row.Scan(&applied); err != nil {
			return fmt.Errorf("session: check migration %d: %w", version, err)
		}
		if applied > 0 {
			continue
		}

		sqlBytes, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("session: read migration %s: %w", entry.Name(), err)
		}

		tx, err := p.db.Begin()
		if err != nil {
			return fmt.Errorf("session: begin migration tx: %w", err)
		}
		if _, err := tx.Exec(string(sqlBytes)); err != nil {
			tx.Rollback()
			return fmt.Errorf("session: apply migration %s: %w", entry.Name(), err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`, version, time.Now()); err != nil {
			tx.Rollback()
			return fmt.Errorf("session: record migration %s: %w", entry.Name(), err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("session: commit migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// QueueWrite submits sess for an async upsert. A full pool drops the
// write with a log line rather than blocking the caller; the in-memory
// Store remains authoritative for the life of the process.
func (p *PersistedStore) QueueWrite(sess *model.Session) {
	snapshot := *sess
	err := p.pool.Submit(func() {
		if err := p.upsert(&snapshot); err != nil && p.logger != nil {
			p.logger.Error("session: persist write-through failed for %s: %v", snapshot.Key, err)
		}
	})
	if err != nil && p.logger != nil {
		p.logger.Error("session: persist queue full, dropping write for %s: %v", sess.Key, err)
	}
}

func (p *PersistedStore) upsert(sess *model.Session) error {
	plaintext, err := json.Marshal(sess.ForwardedQuery)
	if err != nil {
		return fmt.Errorf("encode forwarded query: %w", err)
	}

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	cipher := secretbox.Seal(nil, plaintext, &nonce, p.secret)

	_, err = p.db.Exec(`
		INSERT INTO sessions (key, interstitial_id, primary_id, forwarded_query_cipher, forwarded_query_nonce, created_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET last_seen_at = excluded.last_seen_at
	`, sess.Key, sess.InterstitialID, sess.PrimaryID, cipher, nonce[:], sess.CreatedAt, sess.LastSeenAt)
	if err != nil {
		return fmt.Errorf("upsert session row: %w", err)
	}
	return nil
}

// LoadAll reads every persisted session row. The forwarded-query bag of
// each record is returned still sealed; Decrypt opens it. Nothing in the
// process loads these rows back into the in-memory Store at startup.
func (p *PersistedStore) LoadAll() ([]*model.PersistedSessionRecord, error) {
	rows, err := p.db.Query(`SELECT key, interstitial_id, primary_id, forwarded_query_cipher, forwarded_query_nonce, created_at, last_seen_at FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("session: query all: %w", err)
	}
	defer rows.Close()

	var out []*model.PersistedSessionRecord
	for rows.Next() {
		rec := &model.PersistedSessionRecord{}
		if err := rows.Scan(&rec.Key, &rec.InterstitialID, &rec.PrimaryID, &rec.ForwardedQueryCipher, &rec.ForwardedQueryNonce, &rec.CreatedAt, &rec.LastSeenAt); err != nil {
			return nil, fmt.Errorf("session: scan row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Decrypt recovers the forwarded-query bag from a persisted record.
func (p *PersistedStore) Decrypt(rec *model.PersistedSessionRecord) (map[string]string, error) {
	if len(rec.ForwardedQueryNonce) != 24 {
		return nil, fmt.Errorf("session: bad nonce length %d", len(rec.ForwardedQueryNonce))
	}
	var nonce [24]byte
	copy(nonce[:], rec.ForwardedQueryNonce)

	plaintext, ok := secretbox.Open(nil, rec.ForwardedQueryCipher, &nonce, p.secret)
	if !ok {
		return nil, fmt.Errorf("session: decrypt failed for %s", rec.Key)
	}
	var q map[string]string
	if err := json.Unmarshal(plaintext, &q); err != nil {
		return nil, fmt.Errorf("session: decode forwarded query: %w", err)
	}
	return q, nil
}

func (p *PersistedStore) Close() error {
	p.pool.Release()
	return p.db.Close()
}
