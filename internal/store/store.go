// Package store persists videos, hash groups, duplicate groups, and
// settings in SQLite. Grounded on the teacher's sqlite store package: same
// WAL-mode connection string, same foreign-key enforcement, same
// transaction-wrapped atomic replace pattern, retargeted from job records
// onto the spec's video/hash/dup_group schema.
package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gwlsn/vdupes/internal/model"
	"github.com/gwlsn/vdupes/internal/settings"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS video (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL UNIQUE,
	device INTEGER NOT NULL DEFAULT 0,
	inode INTEGER NOT NULL DEFAULT 0,
	nlinks INTEGER NOT NULL DEFAULT 0,
	size INTEGER NOT NULL DEFAULT 0,
	duration_s REAL NOT NULL DEFAULT 0,
	bitrate INTEGER NOT NULL DEFAULT 0,
	created_at TEXT,
	modified_at TEXT,
	video_codec TEXT DEFAULT '',
	audio_codec TEXT DEFAULT '',
	width INTEGER DEFAULT 0,
	height INTEGER DEFAULT 0,
	avg_frame_rate REAL DEFAULT 0,
	sample_rate INTEGER DEFAULT 0,
	thumbnail_path TEXT DEFAULT ''
);

CREATE TABLE IF NOT EXISTS hash (
	video_id INTEGER PRIMARY KEY REFERENCES video(id) ON DELETE CASCADE,
	blob BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS dup_group (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS dup_group_map (
	group_id INTEGER NOT NULL REFERENCES dup_group(id) ON DELETE CASCADE,
	video_id INTEGER NOT NULL REFERENCES video(id) ON DELETE CASCADE,
	PRIMARY KEY (group_id, video_id)
);

CREATE TABLE IF NOT EXISTS app_settings (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	json_blob TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL,
	applied_at TEXT DEFAULT CURRENT_TIMESTAMP
);
`

// Store wraps a SQLite connection implementing the spec's persistence
// contract. The database handle is meant to be used by exactly one
// goroutine at a time (the orchestrator); mu guards against accidental
// concurrent access from elsewhere (tests, CLI helpers).
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// Open creates or opens the SQLite database at dbPath, bootstrapping the
// schema if necessary.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			db.Close()
			return nil, fmt.Errorf("insert schema version: %w", err)
		}
	} else if err != nil {
		db.Close()
		return nil, fmt.Errorf("read schema version: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertVideo inserts v or, if its path already exists, updates it in
// place. On insert, v.ID is populated from the new row.
func (s *Store) UpsertVideo(v *model.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO video (path, device, inode, nlinks, size, duration_s, bitrate,
			created_at, modified_at, video_codec, audio_codec, width, height,
			avg_frame_rate, sample_rate, thumbnail_path)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(path) DO UPDATE SET
			device=excluded.device, inode=excluded.inode, nlinks=excluded.nlinks,
			size=excluded.size, duration_s=excluded.duration_s, bitrate=excluded.bitrate,
			created_at=excluded.created_at, modified_at=excluded.modified_at,
			video_codec=excluded.video_codec, audio_codec=excluded.audio_codec,
			width=excluded.width, height=excluded.height,
			avg_frame_rate=excluded.avg_frame_rate, sample_rate=excluded.sample_rate,
			thumbnail_path=excluded.thumbnail_path
	`,
		v.Path, v.Device, v.Inode, v.Nlinks, v.Size, v.DurationS, v.Bitrate,
		timeStr(v.CreatedAt), timeStr(v.ModifiedAt), v.VideoCodec, v.AudioCodec,
		v.Width, v.Height, v.AvgFrameRate, v.SampleRate, firstThumbnail(v.ThumbnailPaths),
	)
	if err != nil {
		return fmt.Errorf("upsert video: %w", err)
	}

	if v.ID == 0 {
		// LastInsertId is left unchanged when the ON CONFLICT branch updates
		// an existing row, so the id is read back by path on both branches.
		var id int64
		if err := s.db.QueryRow("SELECT id FROM video WHERE path = ?", v.Path).Scan(&id); err != nil {
			return fmt.Errorf("read video id: %w", err)
		}
		v.ID = id
	}

	return nil
}

func firstThumbnail(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}

func timeStr(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTimeStr(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AllVideos returns every persisted video.
func (s *Store) AllVideos() ([]*model.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, path, device, inode, nlinks, size, duration_s, bitrate,
			created_at, modified_at, video_codec, audio_codec, width, height,
			avg_frame_rate, sample_rate, thumbnail_path
		FROM video
	`)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var out []*model.Video
	for rows.Next() {
		v := &model.Video{}
		var createdAt, modifiedAt, thumbnail string
		if err := rows.Scan(&v.ID, &v.Path, &v.Device, &v.Inode, &v.Nlinks, &v.Size,
			&v.DurationS, &v.Bitrate, &createdAt, &modifiedAt, &v.VideoCodec, &v.AudioCodec,
			&v.Width, &v.Height, &v.AvgFrameRate, &v.SampleRate, &thumbnail); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		v.CreatedAt = parseTimeStr(createdAt)
		v.ModifiedAt = parseTimeStr(modifiedAt)
		if thumbnail != "" {
			v.ThumbnailPaths = []string{thumbnail}
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// DeleteVideo removes a video and, via foreign-key cascade, its hash row
// and any duplicate-group memberships.
func (s *Store) DeleteVideo(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM video WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	return nil
}

// SaveHashes replaces the hash blob for a video. An empty hashes slice is
// never stored (per the HashGroup invariant); any existing row is removed
// instead.
func (s *Store) SaveHashes(videoID int64, hashes []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(hashes) == 0 {
		_, err := s.db.Exec("DELETE FROM hash WHERE video_id = ?", videoID)
		return err
	}

	blob := EncodeHashBlob(hashes)
	_, err := s.db.Exec(`
		INSERT INTO hash (video_id, blob) VALUES (?, ?)
		ON CONFLICT(video_id) DO UPDATE SET blob=excluded.blob
	`, videoID, blob)
	if err != nil {
		return fmt.Errorf("save hashes: %w", err)
	}
	return nil
}

// AllHashGroups returns every persisted hash group.
func (s *Store) AllHashGroups() ([]*model.HashGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT video_id, blob FROM hash")
	if err != nil {
		return nil, fmt.Errorf("query hashes: %w", err)
	}
	defer rows.Close()

	var out []*model.HashGroup
	for rows.Next() {
		var videoID int64
		var blob []byte
		if err := rows.Scan(&videoID, &blob); err != nil {
			return nil, fmt.Errorf("scan hash: %w", err)
		}
		out = append(out, &model.HashGroup{
			VideoID: videoID,
			Hashes:  DecodeHashBlob(blob),
		})
	}
	return out, rows.Err()
}

// EncodeHashBlob packs a hash sequence into its little-endian byte layout.
func EncodeHashBlob(hashes []uint64) []byte {
	blob := make([]byte, len(hashes)*8)
	for i, h := range hashes {
		binary.LittleEndian.PutUint64(blob[i*8:], h)
	}
	return blob
}

// DecodeHashBlob unpacks a little-endian byte blob into a hash sequence.
// The count is inferred from the byte length; a short trailing remainder
// (fewer than 8 bytes) is ignored.
func DecodeHashBlob(blob []byte) []uint64 {
	n := len(blob) / 8
	hashes := make([]uint64, n)
	for i := 0; i < n; i++ {
		hashes[i] = binary.LittleEndian.Uint64(blob[i*8:])
	}
	return hashes
}

// ReplaceDuplicateGroups atomically replaces the entire dup_group and
// dup_group_map contents with groups. On any error, the transaction is
// rolled back and the previous generation is left intact.
func (s *Store) ReplaceDuplicateGroups(groups []*model.DuplicateGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM dup_group_map"); err != nil {
		return fmt.Errorf("truncate dup_group_map: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM dup_group"); err != nil {
		return fmt.Errorf("truncate dup_group: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, g := range groups {
		res, err := tx.Exec("INSERT INTO dup_group (uid, created_at) VALUES (?, ?)", uuid.NewString(), now)
		if err != nil {
			return fmt.Errorf("insert dup_group: %w", err)
		}
		groupID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("read dup_group id: %w", err)
		}
		g.ID = groupID
		g.CreatedAt = parseTimeStr(now)

		for _, videoID := range g.VideoIDs {
			if _, err := tx.Exec("INSERT INTO dup_group_map (group_id, video_id) VALUES (?, ?)", groupID, videoID); err != nil {
				return fmt.Errorf("insert dup_group_map: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit dup_group replacement: %w", err)
	}
	return nil
}

// LoadDuplicateGroups returns the current generation of duplicate groups.
func (s *Store) LoadDuplicateGroups() ([]*model.DuplicateGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT g.id, g.created_at, m.video_id
		FROM dup_group g
		JOIN dup_group_map m ON m.group_id = g.id
		ORDER BY g.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query dup groups: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*model.DuplicateGroup)
	var order []int64
	for rows.Next() {
		var groupID, videoID int64
		var createdAt string
		if err := rows.Scan(&groupID, &createdAt, &videoID); err != nil {
			return nil, fmt.Errorf("scan dup group row: %w", err)
		}
		g, ok := byID[groupID]
		if !ok {
			g = &model.DuplicateGroup{ID: groupID, CreatedAt: parseTimeStr(createdAt)}
			byID[groupID] = g
			order = append(order, groupID)
		}
		g.VideoIDs = append(g.VideoIDs, videoID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*model.DuplicateGroup, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, nil
}

// LoadSettings returns the single app_settings row, or defaults if none
// exists yet.
func (s *Store) LoadSettings() (*settings.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var blob string
	err := s.db.QueryRow("SELECT json_blob FROM app_settings WHERE id = 1").Scan(&blob)
	if err == sql.ErrNoRows {
		return settings.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return settings.FromJSON([]byte(blob)), nil
}

// SaveSettings replaces the single app_settings row (REPLACE-into-row-1
// semantics).
func (s *Store) SaveSettings(cfg *settings.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := cfg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO app_settings (id, json_blob) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET json_blob=excluded.json_blob
	`, string(blob))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
