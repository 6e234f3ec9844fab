package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"tonstation/internal/domain"
)

// ErrEmptyTag is returned when a tag normalizes to an empty string.
var ErrEmptyTag = errors.New("tag is empty after normalization")

// ErrChannelNotFound is returned when removing a channel that is not stored.
var ErrChannelNotFound = errors.New("channel not found")

// Store is the SQLite-backed durable store for messages, channels and
// tags. Single writer per process; each statement is its own
// transaction.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

var _ domain.Store = (*Store)(nil)

// New opens (creating if needed) the database at dbPath. Parent
// directories are created automatically; a path that cannot be created
// fails loudly.
func New(dbPath string, log zerolog.Logger) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id INTEGER NOT NULL,
		chat_id TEXT NOT NULL,
		author TEXT,
		full_name TEXT,
		date_ts INTEGER NOT NULL,
		text TEXT NOT NULL,
		views INTEGER,
		forwards INTEGER,
		replies INTEGER,
		UNIQUE(chat_id, message_id)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_date_ts ON messages(date_ts);
	CREATE INDEX IF NOT EXISTS idx_messages_chat_id ON messages(chat_id);

	CREATE TABLE IF NOT EXISTS channels (
		chat_id TEXT PRIMARY KEY,
		title TEXT,
		username TEXT,
		link TEXT,
		access_hash INTEGER,
		added_at INTEGER NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tag TEXT NOT NULL UNIQUE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertMessage inserts or replaces the row keyed by (chat_id,
// message_id). Blank text means the post is not persisted at all.
func (s *Store) UpsertMessage(rec domain.MessageRecord) error {
	if strings.TrimSpace(rec.Text) == "" {
		return nil
	}
	_, err := s.db.Exec(`
		INSERT INTO messages (message_id, chat_id, author, full_name, date_ts, text, views, forwards, replies)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id, message_id) DO UPDATE SET
			author = excluded.author,
			full_name = excluded.full_name,
			date_ts = excluded.date_ts,
			text = excluded.text,
			views = excluded.views,
			forwards = excluded.forwards,
			replies = excluded.replies`,
		rec.MessageID, rec.ChatID, nullString(rec.Author), nullString(rec.FullName),
		rec.DateTS, rec.Text, nullInt(rec.Views), nullInt(rec.Forwards), nullInt(rec.Replies),
	)
	if err != nil {
		return fmt.Errorf("upsert message %s/%d: %w", rec.ChatID, rec.MessageID, err)
	}
	return nil
}

// FetchBetween returns messages with start <= date_ts <= end (both ends
// inclusive), optionally restricted to chatIDs, ordered by date_ts
// ascending.
func (s *Store) FetchBetween(start, end time.Time, chatIDs []string) ([]domain.MessageRecord, error) {
	query := `
		SELECT message_id, chat_id, author, full_name, date_ts, text, views, forwards, replies
		FROM messages
		WHERE date_ts BETWEEN ? AND ?`
	args := []any{start.Unix(), end.Unix()}
	if len(chatIDs) > 0 {
		query += " AND chat_id IN (?" + strings.Repeat(", ?", len(chatIDs)-1) + ")"
		for _, id := range chatIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY date_ts ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.MessageRecord
	for rows.Next() {
		var (
			rec                      domain.MessageRecord
			author, fullName         sql.NullString
			views, forwards, replies sql.NullInt64
		)
		if err := rows.Scan(&rec.MessageID, &rec.ChatID, &author, &fullName, &rec.DateTS, &rec.Text, &views, &forwards, &replies); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		rec.Author = author.String
		rec.FullName = fullName.String
		rec.Views = intPtr(views)
		rec.Forwards = intPtr(forwards)
		rec.Replies = intPtr(replies)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FetchSinceDays is FetchBetween over the trailing window of the given
// number of days, ending now.
func (s *Store) FetchSinceDays(days int, chatIDs []string) ([]domain.MessageRecord, error) {
	now := time.Now().UTC()
	return s.FetchBetween(now.AddDate(0, 0, -days), now, chatIDs)
}

// UpsertChannel inserts or updates a channel. added_at is set at first
// insert and preserved on re-upsert.
func (s *Store) UpsertChannel(rec domain.ChannelRecord) error {
	addedAt := rec.AddedAt
	if addedAt == 0 {
		addedAt = time.Now().UTC().Unix()
	}
	_, err := s.db.Exec(`
		INSERT INTO channels (chat_id, title, username, link, access_hash, added_at, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			title = excluded.title,
			username = excluded.username,
			link = excluded.link,
			access_hash = excluded.access_hash,
			is_active = excluded.is_active`,
		rec.ChatID, nullString(rec.Title), nullString(rec.Username), nullString(rec.Link),
		nullInt(rec.AccessHash), addedAt, boolToInt(rec.IsActive),
	)
	if err != nil {
		return fmt.Errorf("upsert channel %s: %w", rec.ChatID, err)
	}
	return nil
}

// RemoveChannel hard-deletes channel metadata. Stored messages survive.
func (s *Store) RemoveChannel(chatID string) error {
	res, err := s.db.Exec("DELETE FROM channels WHERE chat_id = ?", chatID)
	if err != nil {
		return fmt.Errorf("remove channel %s: %w", chatID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove channel %s: %w", chatID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrChannelNotFound, chatID)
	}
	return nil
}

// GetChannel returns the stored channel or nil when absent.
func (s *Store) GetChannel(chatID string) (*domain.ChannelRecord, error) {
	row := s.db.QueryRow(`
		SELECT chat_id, title, username, link, access_hash, added_at, is_active
		FROM channels WHERE chat_id = ?`, chatID)
	rec, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get channel %s: %w", chatID, err)
	}
	return &rec, nil
}

// ListChannels returns channels ordered most recently added first.
func (s *Store) ListChannels(activeOnly bool) ([]domain.ChannelRecord, error) {
	query := `
		SELECT chat_id, title, username, link, access_hash, added_at, is_active
		FROM channels`
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY added_at DESC"

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.ChannelRecord
	for rows.Next() {
		rec, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// AddTag normalizes and stores a tag. Re-adding an existing tag is a
// no-op returning the stored record.
func (s *Store) AddTag(tag string) (domain.TagRecord, error) {
	normalized := domain.NormalizeTag(tag)
	if normalized == "" {
		return domain.TagRecord{}, ErrEmptyTag
	}
	if _, err := s.db.Exec("INSERT INTO tags (tag) VALUES (?) ON CONFLICT(tag) DO NOTHING", normalized); err != nil {
		return domain.TagRecord{}, fmt.Errorf("add tag %q: %w", normalized, err)
	}
	var rec domain.TagRecord
	if err := s.db.QueryRow("SELECT id, tag FROM tags WHERE tag = ?", normalized).Scan(&rec.ID, &rec.Tag); err != nil {
		return domain.TagRecord{}, fmt.Errorf("read back tag %q: %w", normalized, err)
	}
	return rec, nil
}

// RemoveTag deletes a tag by its normalized value.
func (s *Store) RemoveTag(tag string) error {
	if _, err := s.db.Exec("DELETE FROM tags WHERE tag = ?", domain.NormalizeTag(tag)); err != nil {
		return fmt.Errorf("remove tag %q: %w", tag, err)
	}
	return nil
}

// ListTags returns all tags in alphabetical order.
func (s *Store) ListTags() ([]domain.TagRecord, error) {
	rows, err := s.db.Query("SELECT id, tag FROM tags ORDER BY tag ASC")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.TagRecord
	for rows.Next() {
		var rec domain.TagRecord
		if err := rows.Scan(&rec.ID, &rec.Tag); err != nil {
			return nil, fmt.Errorf("scan tag row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the database handle. Failures are logged and
// swallowed so cleanup never masks a primary error during shutdown.
func (s *Store) Close() {
	if err := s.db.Close(); err != nil {
		s.log.Warn().Err(err).Msg("store: close failed")
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (domain.ChannelRecord, error) {
	var (
		rec                   domain.ChannelRecord
		title, username, link sql.NullString
		accessHash            sql.NullInt64
		isActive              int
	)
	if err := row.Scan(&rec.ChatID, &title, &username, &link, &accessHash, &rec.AddedAt, &isActive); err != nil {
		return domain.ChannelRecord{}, err
	}
	rec.Title = title.String
	rec.Username = username.String
	rec.Link = link.String
	rec.AccessHash = intPtr(accessHash)
	rec.IsActive = isActive != 0
	return rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
