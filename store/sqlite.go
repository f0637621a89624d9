package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mediapulse-hub/video-ingest/model"
)

//go:embed schema.sql
var schemaSQL string

// videoColumns maps caller-facing filter/sort field names to columns.
// Anything not listed here never reaches SQL.
var videoColumns = map[string]string{
	"video_id":    "v.video_id",
	"channel_id":  "v.channel_id",
	"title":       "v.title",
	"upload_date": "v.upload_date",
	"view_count":  "v.view_count",
	"like_count":  "v.like_count",
	"duration":    "v.duration",
	"is_short":    "v.is_short",
}

// SQLiteStore implements VideoStore on a single-connection SQLite
// database. One connection serializes the check-then-write reconciliation
// performed by providers.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the embedded schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection: prevents concurrent write conflicts.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma failed (%s): %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// withTx executes fn inside an immediate transaction and rolls back on
// error.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const videoSelect = `SELECT v.video_id, v.channel_id, v.video_url, v.title, v.description,
	v.thumbnail, v.upload_date, v.view_count, v.like_count, v.duration, v.is_short, v.deleted_at,
	IFNULL(c.channel_name, ''), IFNULL(c.channel_logo_url, '')
	FROM videos v LEFT JOIN channels c ON c.channel_id = v.channel_id`

func scanVideo(row interface{ Scan(...any) error }) (*model.VideoRecord, error) {
	var rec model.VideoRecord
	var channelID sql.NullString
	var viewCount, likeCount, duration sql.NullInt64
	var deletedAt sql.NullTime

	err := row.Scan(&rec.VideoID, &channelID, &rec.VideoURL, &rec.Title, &rec.Description,
		&rec.Thumbnail, &rec.UploadDate, &viewCount, &likeCount, &duration, &rec.IsShort,
		&deletedAt, &rec.ChannelName, &rec.ChannelLogo)
	if err != nil {
		return nil, err
	}
	if channelID.Valid {
		rec.ChannelID = &channelID.String
	}
	if viewCount.Valid {
		rec.ViewCount = &viewCount.Int64
	}
	if likeCount.Valid {
		rec.LikeCount = &likeCount.Int64
	}
	if duration.Valid {
		rec.Duration = &duration.Int64
	}
	if deletedAt.Valid {
		rec.DeletedAt = &deletedAt.Time
	}
	return &rec, nil
}

func (s *SQLiteStore) FindByVideoID(ctx context.Context, videoID string) (*model.VideoRecord, error) {
	row := s.db.QueryRowContext(ctx, videoSelect+" WHERE v.video_id = ? AND v.deleted_at IS NULL", videoID)
	rec, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find video %s: %w", videoID, err)
	}
	return rec, nil
}

func (s *SQLiteStore) videoIDSet(ctx context.Context, channelIDs []string, deleted bool) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	if len(channelIDs) == 0 {
		return ids, nil
	}
	cond := "deleted_at IS NULL"
	if deleted {
		cond = "deleted_at IS NOT NULL"
	}
	query := fmt.Sprintf("SELECT video_id FROM videos WHERE %s AND channel_id IN (%s)",
		cond, placeholders(len(channelIDs)))
	rows, err := s.db.QueryContext(ctx, query, toArgs(channelIDs)...)
	if err != nil {
		return nil, fmt.Errorf("list video ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) ExistingVideoIDs(ctx context.Context, channelIDs []string) (map[string]struct{}, error) {
	return s.videoIDSet(ctx, channelIDs, false)
}

func (s *SQLiteStore) TombstonedVideoIDs(ctx context.Context, channelIDs []string) (map[string]struct{}, error) {
	return s.videoIDSet(ctx, channelIDs, true)
}

func (s *SQLiteStore) InsertVideo(ctx context.Context, rec *model.VideoRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO videos (video_id, channel_id, video_url, title, description, thumbnail,
			upload_date, view_count, like_count, duration, is_short, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.VideoID, nullStr(rec.ChannelID), rec.VideoURL, rec.Title, rec.Description,
		rec.Thumbnail, rec.UploadDate.UTC(), nullInt(rec.ViewCount), nullInt(rec.LikeCount),
		nullInt(rec.Duration), rec.IsShort, time.Now().UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert video %s: %w", rec.VideoID, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateVideo(ctx context.Context, rec *model.VideoRecord) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE videos SET channel_id = ?, video_url = ?, title = ?, description = ?,
			thumbnail = ?, upload_date = ?, view_count = ?, like_count = ?, duration = ?,
			is_short = ?, updated_at = ?
		WHERE video_id = ? AND deleted_at IS NULL`,
		nullStr(rec.ChannelID), rec.VideoURL, rec.Title, rec.Description, rec.Thumbnail,
		rec.UploadDate.UTC(), nullInt(rec.ViewCount), nullInt(rec.LikeCount),
		nullInt(rec.Duration), rec.IsShort, time.Now().UTC(), rec.VideoID)
	if err != nil {
		return fmt.Errorf("update video %s: %w", rec.VideoID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) UpsertVideo(ctx context.Context, rec *model.VideoRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO videos (video_id, channel_id, video_url, title, description, thumbnail,
			upload_date, view_count, like_count, duration, is_short, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET
			channel_id = excluded.channel_id, video_url = excluded.video_url,
			title = excluded.title, description = excluded.description,
			thumbnail = excluded.thumbnail, upload_date = excluded.upload_date,
			view_count = excluded.view_count, like_count = excluded.like_count,
			duration = excluded.duration, is_short = excluded.is_short,
			updated_at = excluded.updated_at, deleted_at = NULL`,
		rec.VideoID, nullStr(rec.ChannelID), rec.VideoURL, rec.Title, rec.Description,
		rec.Thumbnail, rec.UploadDate.UTC(), nullInt(rec.ViewCount), nullInt(rec.LikeCount),
		nullInt(rec.Duration), rec.IsShort, time.Now().UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert video %s: %w", rec.VideoID, err)
	}
	return nil
}

func (s *SQLiteStore) SoftDeleteVideo(ctx context.Context, videoID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE videos SET deleted_at = ? WHERE video_id = ? AND deleted_at IS NULL",
		time.Now().UTC(), videoID)
	if err != nil {
		return fmt.Errorf("delete video %s: %w", videoID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) QueryVideos(ctx context.Context, q VideoQuery) ([]model.VideoRecord, error) {
	var conds []string
	var args []any
	conds = append(conds, "v.deleted_at IS NULL")

	if q.ChannelID != nil {
		conds = append(conds, "v.channel_id = ?")
		args = append(args, *q.ChannelID)
	}
	if q.IsShort != nil {
		conds = append(conds, "v.is_short = ?")
		args = append(args, *q.IsShort)
	}
	if q.TitleContains != "" {
		conds = append(conds, "v.title LIKE ?")
		args = append(args, "%"+q.TitleContains+"%")
	}
	if q.ExcludeVideoID != "" {
		conds = append(conds, "v.video_id != ?")
		args = append(args, q.ExcludeVideoID)
	}
	for field, value := range q.Filters {
		col, ok := videoColumns[field]
		if !ok || value == "" {
			continue
		}
		if field == "title" {
			conds = append(conds, col+" LIKE ?")
			args = append(args, "%"+value+"%")
			continue
		}
		conds = append(conds, col+" = ?")
		args = append(args, value)
	}

	sortCol, ok := videoColumns[q.SortField]
	if !ok {
		sortCol = "v.upload_date"
	}
	dir := "ASC"
	if q.SortDesc {
		dir = "DESC"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY %s %s LIMIT ? OFFSET ?",
		videoSelect, strings.Join(conds, " AND "), sortCol, dir)
	args = append(args, limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var out []model.VideoRecord
	for rows.Next() {
		rec, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

const channelSelect = `SELECT channel_id, channel_name, username, description, channel_logo_url, hidden FROM channels`

func scanChannel(row interface{ Scan(...any) error }) (*model.Channel, error) {
	var ch model.Channel
	err := row.Scan(&ch.ChannelID, &ch.Name, &ch.Username, &ch.Description, &ch.LogoURL, &ch.Hidden)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *SQLiteStore) ChannelByUsername(ctx context.Context, username string) (*model.Channel, error) {
	row := s.db.QueryRowContext(ctx, channelSelect+" WHERE username = ?", username)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrChannelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find channel by username %s: %w", username, err)
	}
	return ch, nil
}

func (s *SQLiteStore) ChannelByExternalID(ctx context.Context, channelID string) (*model.Channel, error) {
	row := s.db.QueryRowContext(ctx, channelSelect+" WHERE channel_id = ?", channelID)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrChannelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find channel %s: %w", channelID, err)
	}
	return ch, nil
}

func (s *SQLiteStore) channelRefs(ctx context.Context, query string, args ...any) ([]model.ChannelRef, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("channel directory: %w", err)
	}
	defer rows.Close()
	var refs []model.ChannelRef
	for rows.Next() {
		var ref model.ChannelRef
		if err := rows.Scan(&ref.Username, &ref.ChannelID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (s *SQLiteStore) ChannelDirectory(ctx context.Context, visibleOnly bool) ([]model.ChannelRef, error) {
	query := "SELECT username, channel_id FROM channels"
	if visibleOnly {
		query += " WHERE hidden = 0"
	}
	return s.channelRefs(ctx, query+" ORDER BY username")
}

func (s *SQLiteStore) DirectoryByNames(ctx context.Context, names []string) ([]model.ChannelRef, error) {
	if len(names) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT username, channel_id FROM channels WHERE channel_name IN (%s) ORDER BY username",
		placeholders(len(names)))
	return s.channelRefs(ctx, query, toArgs(names)...)
}

func (s *SQLiteStore) UpsertChannel(ctx context.Context, ch *model.Channel) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO channels (channel_id, channel_name, username, description, channel_logo_url, hidden, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET
			channel_name = excluded.channel_name, username = excluded.username,
			description = excluded.description, channel_logo_url = excluded.channel_logo_url,
			hidden = excluded.hidden, updated_at = excluded.updated_at`,
		ch.ChannelID, ch.Name, ch.Username, ch.Description, ch.LogoURL, ch.Hidden,
		time.Now().UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert channel %s: %w", ch.ChannelID, err)
	}
	return nil
}

func (s *SQLiteStore) IncrementHit(ctx context.Context, videoID string, multiplier int64) (*model.HitCount, error) {
	var hit model.HitCount
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		// Weighted count is derived inside the statement so raw and
		// weighted can never drift apart.
		_, err := tx.ExecContext(ctx,
			`INSERT INTO video_hits (video_id, count, multiplied_count, multiplier, updated_at)
			VALUES (?, 1, ?, ?, ?)
			ON CONFLICT(video_id) DO UPDATE SET
				count = count + 1,
				multiplied_count = (count + 1) * excluded.multiplier,
				multiplier = excluded.multiplier,
				updated_at = excluded.updated_at`,
			videoID, multiplier, multiplier, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("increment hit %s: %w", videoID, err)
		}
		row := tx.QueryRowContext(ctx,
			"SELECT video_id, count, multiplied_count, multiplier, updated_at FROM video_hits WHERE video_id = ?",
			videoID)
		return row.Scan(&hit.VideoID, &hit.Raw, &hit.Weighted, &hit.Multiplier, &hit.UpdatedAt)
	})
	if err != nil {
		return nil, err
	}
	return &hit, nil
}

func (s *SQLiteStore) Trending(ctx context.Context, window time.Duration, limit int) ([]model.VideoRecord, error) {
	cutoff := time.Now().UTC().Add(-window)
	query := videoSelect + `
		JOIN video_hits h ON h.video_id = v.video_id
		WHERE v.deleted_at IS NULL AND v.is_short = 0 AND h.updated_at >= ?
		ORDER BY v.view_count DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("trending query: %w", err)
	}
	defer rows.Close()

	var out []model.VideoRecord
	for rows.Next() {
		rec, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}

func nullStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}
