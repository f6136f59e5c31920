package repository

import (
	"coderoom/internal/model"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps rooms, users and files as JSON documents in a single
// SQLite database. It serves single-node deployments and tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One writer keeps read-modify-write transactions from hitting SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("module", "repository").Str("path", dbPath).Msg("sqlite store initialized")
	return &SQLiteStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		room_id TEXT PRIMARY KEY,
		doc TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		doc TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL DEFAULT '',
		doc TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_files_room_id ON files(room_id);
	`
	_, err := db.Exec(schema)
	return err
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Rooms returns the room directory backed by this store
func (s *SQLiteStore) Rooms() RoomRepo { return &sqliteRoomRepo{db: s.db} }

// Users returns the user repository backed by this store
func (s *SQLiteStore) Users() UserRepo { return &sqliteUserRepo{db: s.db} }

// Files returns the file metadata repository backed by this store
func (s *SQLiteStore) Files() FileRepo { return &sqliteFileRepo{db: s.db} }

// Room documents

type sqliteRoomRepo struct {
	db *sql.DB
}

func (r *sqliteRoomRepo) Create(ctx context.Context, room *model.Room) error {
	room.ApplyDefaults(time.Now())

	doc, err := json.Marshal(room)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, "INSERT INTO rooms (room_id, doc) VALUES (?, ?)", room.RoomID, string(doc))
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (r *sqliteRoomRepo) FindByRoomID(ctx context.Context, roomID string) (*model.Room, error) {
	return scanRoom(r.db.QueryRowContext(ctx, "SELECT doc FROM rooms WHERE room_id = ?", roomID))
}

func (r *sqliteRoomRepo) Update(ctx context.Context, roomID string, update model.RoomUpdate) (*model.Room, error) {
	return r.mutate(ctx, roomID, update.Apply)
}

func (r *sqliteRoomRepo) AddAllowedParticipant(ctx context.Context, roomID, userID string) (*model.Room, error) {
	return r.mutate(ctx, roomID, func(room *model.Room) {
		if !room.IsAllowed(userID) {
			room.AllowedParticipants = append(room.AllowedParticipants, userID)
		}
		room.LastUpdated = time.Now()
	})
}

func (r *sqliteRoomRepo) Exists(ctx context.Context, roomID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rooms WHERE room_id = ?", roomID).Scan(&n)
	return n > 0, err
}

// mutate runs a read-modify-write of one room document inside a transaction
func (r *sqliteRoomRepo) mutate(ctx context.Context, roomID string, fn func(*model.Room)) (*model.Room, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	room, err := scanRoom(tx.QueryRowContext(ctx, "SELECT doc FROM rooms WHERE room_id = ?", roomID))
	if err != nil {
		return nil, err
	}

	fn(room)

	doc, err := json.Marshal(room)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE rooms SET doc = ?, updated_at = CURRENT_TIMESTAMP WHERE room_id = ?",
		string(doc), roomID,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return room, nil
}

func scanRoom(row *sql.Row) (*model.Room, error) {
	var doc string
	err := row.Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var room model.Room
	if err := json.Unmarshal([]byte(doc), &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// User documents

type sqliteUserRepo struct {
	db *sql.DB
}

func (r *sqliteUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	doc, err := json.Marshal(user)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, "INSERT INTO users (id, doc) VALUES (?, ?)", user.ID, string(doc))
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (r *sqliteUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var doc string
	err := r.db.QueryRowContext(ctx, "SELECT doc FROM users WHERE id = ?", id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal([]byte(doc), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// File metadata documents

type sqliteFileRepo struct {
	db *sql.DB
}

func (r *sqliteFileRepo) Create(ctx context.Context, file *model.FileMeta) error {
	if file.ID == "" {
		file.ID = uuid.New().String()
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now()
	}

	doc, err := json.Marshal(file)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO files (id, room_id, doc) VALUES (?, ?, ?)",
		file.ID, file.RoomID, string(doc),
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (r *sqliteFileRepo) GetMeta(ctx context.Context, id string) (*model.FileMeta, error) {
	var doc string
	err := r.db.QueryRowContext(ctx, "SELECT doc FROM files WHERE id = ?", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var file model.FileMeta
	if err := json.Unmarshal([]byte(doc), &file); err != nil {
		return nil, err
	}
	return &file, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
