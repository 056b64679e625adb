package credstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/terraconstructs/iamctl/pkg/sdk"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite" // SQLite driver
)

// Durable keys, one row each.
const (
	KeyAccessToken     = "accessToken"
	KeyRefreshToken    = "refreshToken"
	KeyTokenType       = "tokenType"
	KeyExpiresAt       = "expiresAt"
	KeyIsAuthenticated = "isAuthenticated"
	KeyUser            = "user"
)

var durableKeys = []string{KeyAccessToken, KeyRefreshToken, KeyTokenType, KeyExpiresAt, KeyIsAuthenticated, KeyUser}

const sqlTimeout = 5 * time.Second

type credentialRow struct {
	bun.BaseModel `bun:"table:iamctl_credentials,alias:c"`

	Key       string    `bun:"storage_key,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// SQLStore implements sdk.CredentialStore on a bun database, storing one row
// per durable key.
type SQLStore struct {
	db *bun.DB
}

var _ sdk.CredentialStore = (*SQLStore)(nil)

// NewSQLStore wraps db and creates the credentials table if needed.
func NewSQLStore(ctx context.Context, db *bun.DB) (*SQLStore, error) {
	if _, err := db.NewCreateTable().Model((*credentialRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("create credentials table: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// OpenSQLite opens (or creates) a SQLite credentials database.
func OpenSQLite(ctx context.Context, dsn string) (*SQLStore, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Single writer connection; this also keeps :memory: databases alive.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	store, err := NewSQLStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// OpenPostgres connects to a PostgreSQL credentials database.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	sqldb.SetMaxOpenConns(2)

	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	store, err := NewSQLStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// SaveCredentials replaces the stored rows in one transaction.
func (s *SQLStore) SaveCredentials(credentials *sdk.Credentials) error {
	rows, err := toRows(credentials, time.Now().UTC())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqlTimeout)
	defer cancel()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*credentialRow)(nil)).
			Where("storage_key IN (?)", bun.In(durableKeys)).
			Exec(ctx); err != nil {
			return fmt.Errorf("clear credentials: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("save credentials: %w", err)
		}
		return nil
	})
}

// LoadCredentials assembles credentials from the stored rows.
func (s *SQLStore) LoadCredentials() (*sdk.Credentials, error) {
	ctx, cancel := context.WithTimeout(context.Background(), sqlTimeout)
	defer cancel()

	var rows []credentialRow
	if err := s.db.NewSelect().Model(&rows).
		Where("storage_key IN (?)", bun.In(durableKeys)).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	return fromRows(rows)
}

// DeleteCredentials removes every durable key.
func (s *SQLStore) DeleteCredentials() error {
	ctx, cancel := context.WithTimeout(context.Background(), sqlTimeout)
	defer cancel()

	if _, err := s.db.NewDelete().Model((*credentialRow)(nil)).
		Where("storage_key IN (?)", bun.In(durableKeys)).
		Exec(ctx); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func toRows(c *sdk.Credentials, now time.Time) ([]credentialRow, error) {
	if c == nil {
		return nil, nil
	}
	values := map[string]string{
		KeyAccessToken:     c.AccessToken,
		KeyRefreshToken:    c.RefreshToken,
		KeyTokenType:       c.TokenType,
		KeyIsAuthenticated: strconv.FormatBool(c.IsAuthenticated),
	}
	if !c.ExpiresAt.IsZero() {
		values[KeyExpiresAt] = c.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	if c.User != nil {
		user, err := json.Marshal(c.User)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal user: %w", err)
		}
		values[KeyUser] = string(user)
	}

	rows := make([]credentialRow, 0, len(values))
	for _, key := range durableKeys {
		if v := values[key]; v != "" {
			rows = append(rows, credentialRow{Key: key, Value: v, UpdatedAt: now})
		}
	}
	return rows, nil
}

func fromRows(rows []credentialRow) (*sdk.Credentials, error) {
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}
	if values[KeyAccessToken] == "" && values[KeyRefreshToken] == "" {
		return nil, sdk.ErrNotLoggedIn
	}

	creds := &sdk.Credentials{
		AccessToken:     values[KeyAccessToken],
		RefreshToken:    values[KeyRefreshToken],
		TokenType:       values[KeyTokenType],
		IsAuthenticated: values[KeyIsAuthenticated] == "true",
	}
	if v := values[KeyExpiresAt]; v != "" {
		expiresAt, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", KeyExpiresAt, err)
		}
		creds.ExpiresAt = expiresAt
	}
	if v := values[KeyUser]; v != "" {
		var user sdk.UserIdentity
		if err := json.Unmarshal([]byte(v), &user); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", KeyUser, err)
		}
		creds.User = &user
	}
	return creds, nil
}
