// Package sqlog keeps a journal of gateway submissions in MySQL.
package sqlog

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"

	"imspsms/imsp"
)

// Schema creates the journal table.
const Schema = `CREATE TABLE IF NOT EXISTS submit_log (
	id          BIGINT AUTO_INCREMENT PRIMARY KEY,
	request     CHAR(36)     NOT NULL,
	to_addr     VARCHAR(64)  NOT NULL,
	code        VARCHAR(16)  NOT NULL,
	message_id  VARCHAR(64)  NOT NULL,
	description VARCHAR(255) NOT NULL,
	created     TIMESTAMP    DEFAULT CURRENT_TIMESTAMP,
	INDEX (request)
)`

const insertLog = `INSERT INTO submit_log SET request=?,to_addr=?,code=?,message_id=?,description=?`

type DB struct {
	db *sql.DB
}

// Connect opens the database with the given DSN ("user:pass@/imsp?charset=utf8")
// and checks that it is reachable.
func Connect(dsn string) (*DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// Init creates the journal table if it does not exist.
func (db *DB) Init(ctx context.Context) error {
	_, err := db.db.ExecContext(ctx, Schema)
	return err
}

func (db *DB) Insert(ctx context.Context, request, to, code, messageID, description string) error {
	_, err := db.db.ExecContext(ctx, insertLog, request, to, code, messageID, description)
	return err
}

// Journal stores one row per recipient of the submission result.
func (db *DB) Journal(ctx context.Context, result *imsp.Result) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, insertLog)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, rec := range result.Records() {
		_, err = stmt.ExecContext(ctx, result.RequestID,
			rec.Addr(), rec.Code(), rec.MessageID(), rec.Description())
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
