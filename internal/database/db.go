package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	// clientFoundRows=true -> RowsAffected counts matched rows, so an update
	// that changes nothing is not mistaken for a missing row
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// schema is applied in order by Migrate. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id             VARCHAR(64)     NOT NULL PRIMARY KEY,
		title          VARCHAR(255)    NOT NULL,
		description    TEXT            NOT NULL,
		event_date     VARCHAR(32)     NOT NULL,
		start_time     VARCHAR(32)     NOT NULL,
		attachment_url VARCHAR(1024)   NOT NULL DEFAULT '',
		location       VARCHAR(255)    NOT NULL DEFAULT '',
		price_e8s      BIGINT UNSIGNED NOT NULL,
		seller         VARCHAR(128)    NOT NULL,
		sold_amount    BIGINT UNSIGNED NOT NULL DEFAULT 0,
		created_at     DATETIME(6)     NOT NULL,
		INDEX idx_events_seller (seller)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS users (
		id         VARCHAR(64)  NOT NULL PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		email      VARCHAR(255) NOT NULL DEFAULT '',
		phone      VARCHAR(64)  NOT NULL DEFAULT '',
		address    VARCHAR(255) NOT NULL DEFAULT '',
		created_at DATETIME(6)  NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS settlements (
		id            VARCHAR(64)     NOT NULL PRIMARY KEY,
		memo          BIGINT UNSIGNED NOT NULL,
		owner         VARCHAR(128)    NOT NULL,
		event_id      VARCHAR(64)     NOT NULL,
		buyer_id      VARCHAR(64)     NOT NULL,
		price_e8s     BIGINT UNSIGNED NOT NULL,
		reserved_by   VARCHAR(128)    NOT NULL,
		paid_at_block BIGINT UNSIGNED NOT NULL,
		reserved_at   DATETIME(6)     NOT NULL,
		settled_at    DATETIME(6)     NOT NULL,
		UNIQUE KEY uq_settlements_memo (memo),
		INDEX idx_settlements_owner (owner),
		INDEX idx_settlements_event (event_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables the service needs if they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
