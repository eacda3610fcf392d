package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/veilbrook/npcmem/pkg/errors"
	"github.com/veilbrook/npcmem/pkg/log"
	"github.com/veilbrook/npcmem/pkg/mem/store"
	"github.com/veilbrook/npcmem/pkg/npc"
	"github.com/veilbrook/npcmem/pkg/record"
)

const schema = `
CREATE TABLE IF NOT EXISTS memory_records (
	id TEXT PRIMARY KEY,
	npc_id TEXT NOT NULL,
	text_full TEXT NOT NULL,
	text_short TEXT NOT NULL,
	event_type TEXT NOT NULL,
	slot_type TEXT,
	importance INTEGER NOT NULL,
	tier INTEGER NOT NULL,
	timestamp INTEGER,
	superseded_by TEXT,
	superseded_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_memory_records_npc_id ON memory_records(npc_id);
CREATE INDEX IF NOT EXISTS idx_memory_records_event_type ON memory_records(npc_id, event_type);
CREATE INDEX IF NOT EXISTS idx_memory_records_slot_type ON memory_records(npc_id, slot_type);
`

// SQLiteStore implements the store.Store interface using a SQLite
// database. It serves deployments without an embedding model: text
// queries fall back to substring matching and report no distance.
type SQLiteStore struct {
	db *sqlx.DB
}

// recordRow is the flat row representation of a memory record.
type recordRow struct {
	ID           string         `db:"id"`
	NPCID        string         `db:"npc_id"`
	TextFull     string         `db:"text_full"`
	TextShort    string         `db:"text_short"`
	EventType    string         `db:"event_type"`
	SlotType     sql.NullString `db:"slot_type"`
	Importance   int            `db:"importance"`
	Tier         int            `db:"tier"`
	Timestamp    sql.NullInt64  `db:"timestamp"`
	SupersededBy sql.NullString `db:"superseded_by"`
	SupersededAt sql.NullInt64  `db:"superseded_at"`
}

// NewSQLiteStore creates a new SQLiteStore with the given connection.
func NewSQLiteStore(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Open opens (or creates) a SQLite database at path and prepares the
// schema.
func Open(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "failed to open sqlite db: %v", err)
	}
	s := NewSQLiteStore(db)
	if err := s.Initialize(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Initialize creates the schema if it doesn't exist.
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(errors.ErrStoreUnavailable, "failed to create schema: %v", err)
	}
	log.DebugContext(ctx, "Initialized sqlite memory store schema")
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Add implements the store.Store interface.
func (s *SQLiteStore) Add(ctx context.Context, rec record.MemoryRecord) (string, error) {
	npcCtx, ok := npc.FromContext(ctx)
	if !ok {
		return "", errors.ErrMissingNPCContext
	}
	if rec.ID == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "record ID is required")
	}
	if rec.NPCID == "" {
		rec.NPCID = npcCtx.NPCID
	}

	row := toRow(rec)
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO memory_records (
			id, npc_id, text_full, text_short, event_type, slot_type,
			importance, tier, timestamp, superseded_by, superseded_at
		) VALUES (
			:id, :npc_id, :text_full, :text_short, :event_type, :slot_type,
			:importance, :tier, :timestamp, :superseded_by, :superseded_at
		)`, row)
	if err != nil {
		return "", errors.Wrap(errors.ErrStoreUnavailable, "failed to store record: %v", err)
	}
	return rec.ID, nil
}

// Query implements the store.Store interface. All typed predicates push
// down into SQL; results order newest first and carry no distance.
func (s *SQLiteStore) Query(ctx context.Context, q store.Query) ([]store.Result, error) {
	npcCtx, ok := npc.FromContext(ctx)
	if !ok {
		return nil, errors.ErrMissingNPCContext
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	var sb strings.Builder
	sb.WriteString(`SELECT * FROM memory_records WHERE npc_id = ?`)
	args := []interface{}{string(npcCtx.NPCID)}

	if q.Text != "" {
		sb.WriteString(` AND text_full LIKE ?`)
		args = append(args, "%"+q.Text+"%")
	}
	if q.SlotType != "" {
		sb.WriteString(` AND slot_type = ?`)
		args = append(args, string(q.SlotType))
	}
	if len(q.EventTypes) > 0 {
		placeholders := make([]string, len(q.EventTypes))
		for i, et := range q.EventTypes {
			placeholders[i] = "?"
			args = append(args, string(et))
		}
		sb.WriteString(` AND event_type IN (` + strings.Join(placeholders, ", ") + `)`)
	}
	if q.MinImportance > 0 {
		sb.WriteString(` AND importance >= ?`)
		args = append(args, q.MinImportance)
	}
	if !q.Since.IsZero() {
		sb.WriteString(` AND timestamp >= ?`)
		args = append(args, q.Since.Unix())
	}
	sb.WriteString(` ORDER BY timestamp DESC LIMIT ?`)
	args = append(args, limit)

	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "query failed: %v", err)
	}

	results := make([]store.Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, store.Result{Record: fromRow(row)})
	}
	return results, nil
}

// Delete implements the store.Store interface.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	npcCtx, ok := npc.FromContext(ctx)
	if !ok {
		return errors.ErrMissingNPCContext
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM memory_records WHERE id = ? AND npc_id = ?`,
		id, string(npcCtx.NPCID))
	if err != nil {
		return errors.Wrap(errors.ErrStoreUnavailable, "delete failed: %v", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// UpdateMetadata implements the store.Store interface.
func (s *SQLiteStore) UpdateMetadata(ctx context.Context, id string, patch store.MetadataPatch) error {
	npcCtx, ok := npc.FromContext(ctx)
	if !ok {
		return errors.ErrMissingNPCContext
	}
	if patch.SupersededBy == "" {
		return nil
	}

	var at interface{}
	if !patch.SupersededAt.IsZero() {
		at = patch.SupersededAt.Unix()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE memory_records SET superseded_by = ?, superseded_at = ?
		 WHERE id = ? AND npc_id = ?`,
		patch.SupersededBy, at, id, string(npcCtx.NPCID))
	if err != nil {
		return errors.Wrap(errors.ErrStoreUnavailable, "metadata update failed: %v", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// ListCollections implements the store.Store interface.
func (s *SQLiteStore) ListCollections(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids,
		`SELECT DISTINCT npc_id FROM memory_records ORDER BY npc_id`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "list failed: %v", err)
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = npc.Context{NPCID: npc.ID(id)}.Collection()
	}
	return names, nil
}

func toRow(rec record.MemoryRecord) recordRow {
	row := recordRow{
		ID:         rec.ID,
		NPCID:      string(rec.NPCID),
		TextFull:   rec.TextFull,
		TextShort:  rec.TextShort,
		EventType:  string(rec.EventType),
		Importance: rec.Importance,
		Tier:       int(rec.Tier),
	}
	if rec.SlotType != "" {
		row.SlotType = sql.NullString{String: string(rec.SlotType), Valid: true}
	}
	if !rec.Timestamp.IsZero() {
		row.Timestamp = sql.NullInt64{Int64: rec.Timestamp.Unix(), Valid: true}
	}
	if rec.SupersededBy != "" {
		row.SupersededBy = sql.NullString{String: rec.SupersededBy, Valid: true}
		if !rec.SupersededAt.IsZero() {
			row.SupersededAt = sql.NullInt64{Int64: rec.SupersededAt.Unix(), Valid: true}
		}
	}
	return row
}

func fromRow(row recordRow) record.MemoryRecord {
	rec := record.MemoryRecord{
		ID:         row.ID,
		NPCID:      npc.ID(row.NPCID),
		TextFull:   row.TextFull,
		TextShort:  row.TextShort,
		EventType:  record.Normalize(row.EventType),
		Importance: record.ClampImportance(row.Importance),
		Tier:       record.TierFromInt(row.Tier),
	}
	if row.SlotType.Valid && record.KnownSlotType(row.SlotType.String) {
		rec.SlotType = record.SlotType(row.SlotType.String)
	}
	if row.Timestamp.Valid {
		rec.Timestamp = unixTime(row.Timestamp.Int64)
	}
	if row.SupersededBy.Valid {
		rec.SupersededBy = row.SupersededBy.String
		if row.SupersededAt.Valid {
			rec.SupersededAt = unixTime(row.SupersededAt.Int64)
		}
	}
	return rec
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
