package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"github.com/shahidirfan100/Redfin-Property-Scraper/pkg/types"
)

// PostgresWriter is an optional relational sink. It owns its schema: the
// target database and the properties table are created on first use.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter connects to the DSN and prepares the schema.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if !isUndefinedDatabaseErr(err) {
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		_ = db.Close()
		if err := createDatabase(ctx, dsn); err != nil {
			return nil, err
		}
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres connection: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
	}

	writer := &PostgresWriter{db: db}
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

// Push upserts a record keyed on property_id. A table dropped out from
// under a running scrape is recreated and the write retried once.
func (w *PostgresWriter) Push(ctx context.Context, rec types.PropertyRecord) error {
	if w == nil || w.db == nil {
		return nil
	}
	if err := w.upsert(ctx, rec); err != nil {
		if isUndefinedTableErr(err) {
			if schemaErr := w.ensureSchema(ctx); schemaErr != nil {
				return fmt.Errorf("ensure schema: %w", schemaErr)
			}
			if retryErr := w.upsert(ctx, rec); retryErr != nil {
				return fmt.Errorf("insert property: %w", retryErr)
			}
			return nil
		}
		return fmt.Errorf("insert property: %w", err)
	}
	return nil
}

func (w *PostgresWriter) upsert(ctx context.Context, rec types.PropertyRecord) error {
	query := `
        INSERT INTO properties (
            property_id, url, address, street_address, city, state, zip,
            price, beds, baths, sqft, property_type, status, listing_date,
            description, latitude, longitude, mls_number, lot_size,
            year_built, hoa, source, fetched_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
        ON CONFLICT (property_id) DO UPDATE SET
            url = EXCLUDED.url,
            address = EXCLUDED.address,
            street_address = EXCLUDED.street_address,
            city = EXCLUDED.city,
            state = EXCLUDED.state,
            zip = EXCLUDED.zip,
            price = EXCLUDED.price,
            beds = EXCLUDED.beds,
            baths = EXCLUDED.baths,
            sqft = EXCLUDED.sqft,
            property_type = EXCLUDED.property_type,
            status = EXCLUDED.status,
            listing_date = EXCLUDED.listing_date,
            description = EXCLUDED.description,
            latitude = EXCLUDED.latitude,
            longitude = EXCLUDED.longitude,
            mls_number = EXCLUDED.mls_number,
            lot_size = EXCLUDED.lot_size,
            year_built = EXCLUDED.year_built,
            hoa = EXCLUDED.hoa,
            source = EXCLUDED.source,
            fetched_at = EXCLUDED.fetched_at
    `
	_, err := w.db.ExecContext(ctx, query,
		rec.PropertyID,
		rec.URL,
		rec.Address,
		rec.StreetAddress,
		rec.City,
		rec.State,
		rec.Zip,
		rec.Price,
		rec.Beds,
		rec.Baths,
		rec.Sqft,
		rec.PropertyType,
		rec.Status,
		rec.ListingDate,
		rec.Description,
		rec.Latitude,
		rec.Longitude,
		rec.MLSNumber,
		rec.LotSize,
		rec.YearBuilt,
		rec.HOA,
		string(rec.Source),
		rec.FetchedAt,
	)
	return err
}

// Close closes the underlying DB connection.
func (w *PostgresWriter) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

func (w *PostgresWriter) ensureSchema(ctx context.Context) error {
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS properties (
		    property_id TEXT PRIMARY KEY,
		    url TEXT,
		    address TEXT,
		    street_address TEXT,
		    city TEXT,
		    state TEXT,
		    zip TEXT,
		    price TEXT,
		    beds DOUBLE PRECISION,
		    baths DOUBLE PRECISION,
		    sqft DOUBLE PRECISION,
		    property_type TEXT,
		    status TEXT,
		    listing_date TEXT,
		    description TEXT,
		    latitude DOUBLE PRECISION,
		    longitude DOUBLE PRECISION,
		    mls_number TEXT,
		    lot_size DOUBLE PRECISION,
		    year_built INT,
		    hoa DOUBLE PRECISION,
		    source TEXT,
		    fetched_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_properties_fetched_at ON properties (fetched_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func createDatabase(ctx context.Context, dsn string) error {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return fmt.Errorf("parse dsn: %w", err)
	}
	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return errors.New("dsn missing database name")
	}
	if strings.EqualFold(dbName, "postgres") {
		return fmt.Errorf("target database %q cannot be auto-created", dbName)
	}
	parsed.Path = "/postgres"
	adminDB, err := sql.Open("postgres", parsed.String())
	if err != nil {
		return fmt.Errorf("connect admin database: %w", err)
	}
	defer adminDB.Close()
	if err := adminDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping admin database: %w", err)
	}
	stmt := fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName))
	if _, err := adminDB.ExecContext(ctx, stmt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "42P04" {
			return nil
		}
		return fmt.Errorf("create database %q: %w", dbName, err)
	}
	return nil
}

func isUndefinedDatabaseErr(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "3D000"
	}
	return strings.Contains(strings.ToLower(err.Error()), "does not exist")
}

func isUndefinedTableErr(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "relation") && strings.Contains(lower, "does not exist")
}
