// Package postgresdb provides a PostgreSQL-based implementation of the storage interface
// for persisting users and their shortened URLs.
// The schema is applied on start with goose from the embedded migrations.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/tinyapp/internal/db/storage"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	uniqueViolationCode = "23505"
	usersEmailIndex     = "users_email_idx"
)

// PostgresDB is a PostgreSQL-backed implementation of the TinyApp storage.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables dropping every table before migration.
// It is meant for test setups.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if err := result.prepare(ctx, options); err != nil {
		return nil, errors.Join(err, database.Close())
	}

	return result, nil
}

// prepare optionally wipes the schema and then applies the embedded migrations.
func (db *PostgresDB) prepare(ctx context.Context, options *initOptions) error {
	if options.DBPreReset {
		if err := db.resetDB(ctx); err != nil {
			return fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/prepare(): error while `db.resetDB()` calling: %w",
				err,
			)
		}
	}

	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/prepare(): error while `goose.SetDialect()` calling: %w",
			err,
		)
	}

	if err := goose.UpContext(ctx, db.database, "migrations"); err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/prepare(): error while `goose.UpContext()` calling: %w",
			err,
		)
	}

	return nil
}

// CreateUser inserts a new user record.
// A duplicate email is reported as storage.ErrEmailAlreadyExists.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *models.User) error {
	_, err := db.database.ExecContext(
		ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)`,
		usr.ID,
		usr.Email,
		usr.PasswordHash,
	)
	if isEmailConflict(err) {
		return storage.ErrEmailAlreadyExists
	}

	return err
}

// isEmailConflict reports a unique violation of the email index only.
// Other violations, such as a clashing primary key, pass through unchanged.
func isEmailConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == uniqueViolationCode &&
		pgErr.ConstraintName == usersEmailIndex
}

func (db *PostgresDB) getUser(ctx context.Context, query string, arg string) (*models.User, bool, error) {
	row := db.database.QueryRowContext(ctx, query, arg)

	usr := &models.User{}
	err := row.Scan(&usr.ID, &usr.Email, &usr.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return usr, true, nil
}

// GetUserByID fetches a user by identifier.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID string) (*models.User, bool, error) {
	return db.getUser(ctx, `SELECT id, email, password_hash FROM users WHERE id = $1`, userID)
}

// GetUserByEmail fetches a user by exact, case-sensitive email.
func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	return db.getUser(ctx, `SELECT id, email, password_hash FROM users WHERE email = $1`, email)
}

func (db *PostgresDB) count(ctx context.Context, query string) (int64, error) {
	var result int64
	if err := db.database.QueryRowContext(ctx, query).Scan(&result); err != nil {
		return 0, err
	}

	return result, nil
}

// GetNumberOfUsers returns the amount of registered users.
func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM users`)
}

// GetNumberOfURLs returns the amount of stored short URLs.
func (db *PostgresDB) GetNumberOfURLs(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM urls`)
}

// GetURL fetches a short URL record by its short identifier.
func (db *PostgresDB) GetURL(ctx context.Context, shortID string) (*models.URL, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT short_id, long_url, owner_id FROM urls WHERE short_id = $1`,
		shortID,
	)

	record := &models.URL{}
	err := row.Scan(&record.ShortID, &record.LongURL, &record.OwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return record, true, nil
}

// InsertURL stores the record, replacing an existing one with the same short ID.
func (db *PostgresDB) InsertURL(ctx context.Context, url *models.URL) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			INSERT INTO urls (short_id, long_url, owner_id)
				VALUES ($1, $2, $3)
				ON CONFLICT (short_id) DO UPDATE
				SET
					long_url = EXCLUDED.long_url,
					owner_id = EXCLUDED.owner_id
		`,
		url.ShortID,
		url.LongURL,
		url.OwnerID,
	)

	return err
}

// UpdateLongURL replaces the destination of an existing short URL.
func (db *PostgresDB) UpdateLongURL(ctx context.Context, shortID, longURL string) error {
	_, err := db.database.ExecContext(
		ctx,
		`UPDATE urls SET long_url = $2 WHERE short_id = $1`,
		shortID,
		longURL,
	)

	return err
}

// DeleteURL removes the short URL. Deleting an absent record is not an error.
func (db *PostgresDB) DeleteURL(ctx context.Context, shortID string) error {
	_, err := db.database.ExecContext(ctx, `DELETE FROM urls WHERE short_id = $1`, shortID)

	return err
}

// ListURLsForOwner returns every record owned by ownerID.
func (db *PostgresDB) ListURLsForOwner(ctx context.Context, ownerID string) (models.URLs, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT short_id, long_url, owner_id FROM urls WHERE owner_id = $1`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := models.URLs{}
	for rows.Next() {
		var record models.URL
		if err := rows.Scan(&record.ShortID, &record.LongURL, &record.OwnerID); err != nil {
			return nil, err
		}
		result[record.ShortID] = record
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}
