package db

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite implements Store on a local SQLite file.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS epoch_info (
  epoch INTEGER PRIMARY KEY,
  start_slot INTEGER NOT NULL,
  end_slot INTEGER NOT NULL,
  authority_set_hash TEXT NOT NULL,
  authority_set_len INTEGER NOT NULL,
  created_at_utc TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS blocks (
  slot INTEGER PRIMARY KEY,
  epoch INTEGER NOT NULL,
  planned_time_utc TEXT NOT NULL,
  block_number INTEGER,
  block_hash TEXT,
  produced_time_utc TEXT,
  status TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_blocks_epoch ON blocks(epoch);
`

// OpenSQLite opens (creating if needed) the schedule database at path and
// ensures the schema exists. ":memory:" works for tests.
func OpenSQLite(path string, logger *zap.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// One writer, one loop. A second connection would only invite
	// SQLITE_BUSY on overlapping statements.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &SQLite{db: db, logger: logger}, nil
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// UpsertEpochInfo implements Store.
func (s *SQLite) UpsertEpochInfo(ctx context.Context, info EpochInfo) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO epoch_info(epoch, start_slot, end_slot, authority_set_hash, authority_set_len, created_at_utc)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(epoch) DO UPDATE SET
  start_slot=excluded.start_slot,
  end_slot=excluded.end_slot,
  authority_set_hash=excluded.authority_set_hash,
  authority_set_len=excluded.authority_set_len,
  created_at_utc=excluded.created_at_utc`,
		info.Epoch, info.StartSlot, info.EndSlot, info.AuthoritySetHash, info.AuthoritySetLen, info.CreatedAtUTC)
	if err != nil {
		return fmt.Errorf("upsert epoch_info %d: %w", info.Epoch, err)
	}
	return nil
}

// InsertSchedule implements Store. The whole epoch schedule lands in one
// transaction so a crash can never leave a half-written schedule behind.
// The upsert keeps the existing status and only refreshes epoch and planned
// time while the row has not advanced past schedule.
func (s *SQLite) InsertSchedule(ctx context.Context, epoch uint64, planned []PlannedSlot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO blocks(slot, epoch, planned_time_utc, status)
VALUES (?, ?, ?, 'schedule')
ON CONFLICT(slot) DO UPDATE SET
  epoch=excluded.epoch,
  planned_time_utc=excluded.planned_time_utc
WHERE blocks.status='schedule'`)
	if err != nil {
		return fmt.Errorf("prepare schedule upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, p := range planned {
		if _, err := stmt.ExecContext(ctx, p.Slot, epoch, p.PlannedTimeUTC); err != nil {
			return fmt.Errorf("upsert schedule slot %d: %w", p.Slot, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule tx: %w", err)
	}
	return nil
}

// MarkMinted implements Store. The WHERE guard makes re-application and
// late observation no-ops: only a schedule row advances.
func (s *SQLite) MarkMinted(ctx context.Context, u BlockUpdate) error {
	return s.updateStatus(ctx, u, StatusMint, `status='schedule'`)
}

// MarkFinalized implements Store. Advances from schedule or mint; a row
// already at finality keeps its recorded block data.
func (s *SQLite) MarkFinalized(ctx context.Context, u BlockUpdate) error {
	return s.updateStatus(ctx, u, StatusFinality, `status IN ('schedule','mint')`)
}

func (s *SQLite) updateStatus(ctx context.Context, u BlockUpdate, status, guard string) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE blocks
SET block_number=?, block_hash=?, produced_time_utc=?, status=?
WHERE slot=? AND `+guard,
		u.BlockNumber, u.BlockHash, u.ProducedTimeUTC, status, u.Slot)
	if err != nil {
		return fmt.Errorf("update slot %d to %s: %w", u.Slot, status, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Debug("slot status advanced",
			zap.Uint64("slot", u.Slot),
			zap.String("status", status),
			zap.Uint64("block", u.BlockNumber))
	}
	return nil
}

var _ Store = (*SQLite)(nil)
