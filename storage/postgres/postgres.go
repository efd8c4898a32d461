// Package postgres stores accounts in a PostgreSQL table. Creates use
// INSERT ... ON CONFLICT DO NOTHING and updates are guarded by revision, all
// inside one SQL transaction per batch.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/cidutil"
	"github.com/0xterrybit/solana-attestation-service/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsTable = "sas_schema_migrations"

// Store represents a PostgreSQL-backed account store.
type Store struct {
	DB *sql.DB
}

// Open connects to dsn, verifies the connection and applies migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s := &Store{DB: db}
	if err := s.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// RunMigrations applies the embedded schema migrations.
func (s *Store) RunMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(s.DB, &migratepg.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

func (s *Store) Get(ctx context.Context, addr address.Address) (storage.Account, error) {
	var (
		a        storage.Account
		owner    []byte
		lamports int64
		revision int64
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT owner, lamports, revision, data FROM accounts WHERE address = $1`, addr[:],
	).Scan(&owner, &lamports, &revision, &a.Data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, storage.ErrNotFound
		}
		return a, err
	}
	return fill(a, owner, lamports, revision)
}

func (s *Store) Has(ctx context.Context, addr address.Address) (bool, error) {
	var ok bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE address = $1)`, addr[:]).Scan(&ok)
	return ok, err
}

func (s *Store) Commit(ctx context.Context, batch storage.Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, w := range batch.Writes {
		if err := applyWrite(ctx, tx, w); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func applyWrite(ctx context.Context, tx *sql.Tx, w storage.Write) error {
	next := w.Next()
	disc := discriminator(next.Data)
	dataCID := cidutil.DataCID(next.Data)

	switch w.Op {
	case storage.OpCreate:
		res, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (address, owner, lamports, revision, data, discriminator, data_cid)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (address) DO NOTHING`,
			w.Address[:], next.Owner[:], int64(next.Lamports), int64(next.Revision), next.Data, disc, dataCID)
		if err != nil {
			return fmt.Errorf("failed to insert %s: %w", w.Address, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return fmt.Errorf("%w: %s", storage.ErrAlreadyExists, w.Address)
		}
		return nil
	case storage.OpUpdate:
		res, err := tx.ExecContext(ctx, `
			UPDATE accounts
			SET owner = $2, lamports = $3, revision = $4, data = $5, discriminator = $6, data_cid = $7, updated_at = now()
			WHERE address = $1 AND revision = $8`,
			w.Address[:], next.Owner[:], int64(next.Lamports), int64(next.Revision), next.Data, disc, dataCID, int64(w.Account.Revision))
		if err != nil {
			return fmt.Errorf("failed to update %s: %w", w.Address, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 1 {
			return nil
		}
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE address = $1)`, w.Address[:]).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", storage.ErrNotFound, w.Address)
		}
		return fmt.Errorf("%w: %s", storage.ErrConflict, w.Address)
	default:
		return fmt.Errorf("%w: unknown op %d", storage.ErrInvalidBatch, w.Op)
	}
}

// Scan pushes owner and memcmp filters down into SQL.
func (s *Store) Scan(ctx context.Context, req storage.ScanRequest) ([]storage.KeyedAccount, error) {
	var (
		where []string
		args  []any
	)
	if !req.Owner.IsZero() {
		args = append(args, req.Owner[:])
		where = append(where, fmt.Sprintf("owner = $%d", len(args)))
	}
	for _, f := range req.Filters {
		if f.Offset < 0 {
			return []storage.KeyedAccount{}, nil
		}
		if f.Offset == 0 && len(f.Bytes) == 1 {
			args = append(args, int16(f.Bytes[0]))
			where = append(where, fmt.Sprintf("discriminator = $%d", len(args)))
			continue
		}
		args = append(args, f.Bytes)
		// substring on bytea is 1-based.
		where = append(where, fmt.Sprintf("substring(data from %d for %d) = $%d", f.Offset+1, len(f.Bytes), len(args)))
	}
	q := `SELECT address, owner, lamports, revision, data FROM accounts`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY address"
	if req.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", req.Limit)
	}

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan accounts: %w", err)
	}
	defer rows.Close()

	out := make([]storage.KeyedAccount, 0)
	for rows.Next() {
		var (
			k        storage.KeyedAccount
			addr     []byte
			owner    []byte
			lamports int64
			revision int64
			data     []byte
		)
		if err := rows.Scan(&addr, &owner, &lamports, &revision, &data); err != nil {
			return nil, err
		}
		if k.Address, err = address.FromBytes(addr); err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrCorrupt, err)
		}
		if k.Account, err = fill(storage.Account{Data: data}, owner, lamports, revision); err != nil {
			return nil, err
		}
		// substring() tolerates short data; Match does not.
		if storage.Match(k.Account.Data, req.Filters) {
			out = append(out, k)
		}
	}
	return out, rows.Err()
}

// DataCID returns the content identifier recorded for addr's current data.
func (s *Store) DataCID(ctx context.Context, addr address.Address) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx, `SELECT data_cid FROM accounts WHERE address = $1`, addr[:]).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	return id, err
}

func fill(a storage.Account, owner []byte, lamports, revision int64) (storage.Account, error) {
	o, err := address.FromBytes(owner)
	if err != nil {
		return a, fmt.Errorf("%w: owner: %v", storage.ErrCorrupt, err)
	}
	a.Owner = o
	a.Lamports = uint64(lamports)
	a.Revision = uint64(revision)
	if a.Data == nil {
		a.Data = []byte{}
	}
	return a, nil
}

func discriminator(data []byte) sql.NullInt16 {
	if len(data) == 0 {
		return sql.NullInt16{}
	}
	return sql.NullInt16{Int16: int16(data[0]), Valid: true}
}
