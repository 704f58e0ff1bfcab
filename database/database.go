package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver
)

// InitDB opens (creating if necessary) the SQLite database at dbPath and
// ensures the schema exists.
func InitDB(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// InitMemoryDB opens a private in-memory database. Used by tests.
func InitMemoryDB() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// A single connection keeps every statement on the same in-memory store.
	db.SetMaxOpenConns(1)
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return db, nil
}

func createSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS guilds (
            guild_id INTEGER PRIMARY KEY,
            premium_until INTEGER
        );`,
		`CREATE TABLE IF NOT EXISTS exclusive_groups (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            guild_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            UNIQUE (guild_id, name)
        );`,
		`CREATE TABLE IF NOT EXISTS starboards (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            guild_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            channel_id INTEGER NOT NULL,
            webhook_id INTEGER,
            premium_locked INTEGER NOT NULL DEFAULT 0,
            display_emoji TEXT NOT NULL DEFAULT '⭐',
            ping_author INTEGER NOT NULL DEFAULT 0,
            use_server_profile INTEGER NOT NULL DEFAULT 0,
            extra_embeds INTEGER NOT NULL DEFAULT 1,
            use_webhook INTEGER NOT NULL DEFAULT 0,
            color INTEGER NOT NULL DEFAULT 16769436,
            go_to_message INTEGER NOT NULL DEFAULT 1,
            attachments_list INTEGER NOT NULL DEFAULT 1,
            replied_to INTEGER NOT NULL DEFAULT 1,
            required INTEGER NOT NULL DEFAULT 3,
            required_remove INTEGER DEFAULT 0,
            upvote_emojis TEXT NOT NULL DEFAULT '["⭐"]',
            downvote_emojis TEXT NOT NULL DEFAULT '[]',
            self_vote INTEGER NOT NULL DEFAULT 0,
            allow_bots INTEGER NOT NULL DEFAULT 1,
            require_image INTEGER NOT NULL DEFAULT 0,
            older_than INTEGER NOT NULL DEFAULT 0,
            newer_than INTEGER NOT NULL DEFAULT 0,
            matches_regex TEXT,
            not_matches_regex TEXT,
            enabled INTEGER NOT NULL DEFAULT 1,
            autoreact_upvote INTEGER NOT NULL DEFAULT 0,
            autoreact_downvote INTEGER NOT NULL DEFAULT 0,
            remove_invalid_reactions INTEGER NOT NULL DEFAULT 0,
            link_deletes INTEGER NOT NULL DEFAULT 1,
            link_edits INTEGER NOT NULL DEFAULT 1,
            on_delete INTEGER NOT NULL DEFAULT 0,
            cooldown_enabled INTEGER NOT NULL DEFAULT 0,
            cooldown_capacity INTEGER NOT NULL DEFAULT 5,
            cooldown_period INTEGER NOT NULL DEFAULT 6,
            exclusive_group INTEGER REFERENCES exclusive_groups(id) ON DELETE SET NULL,
            exclusive_group_priority INTEGER NOT NULL DEFAULT 0,
            UNIQUE (guild_id, name)
        );`,
		`CREATE TABLE IF NOT EXISTS overrides (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            guild_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            starboard_id INTEGER NOT NULL REFERENCES starboards(id) ON DELETE CASCADE,
            channel_ids TEXT NOT NULL DEFAULT '[]',
            delta TEXT NOT NULL DEFAULT '{}',
            UNIQUE (guild_id, name)
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            message_id INTEGER PRIMARY KEY,
            guild_id INTEGER NOT NULL,
            channel_id INTEGER NOT NULL,
            author_id INTEGER NOT NULL,
            is_nsfw INTEGER NOT NULL DEFAULT 0,
            forced_to TEXT NOT NULL DEFAULT '[]',
            trashed INTEGER NOT NULL DEFAULT 0,
            trash_reason TEXT,
            frozen INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS votes (
            message_id INTEGER NOT NULL REFERENCES messages(message_id) ON DELETE CASCADE,
            starboard_id INTEGER NOT NULL REFERENCES starboards(id) ON DELETE CASCADE,
            user_id INTEGER NOT NULL,
            target_author INTEGER NOT NULL,
            is_downvote INTEGER NOT NULL DEFAULT 0,
            PRIMARY KEY (message_id, starboard_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS starboard_messages (
            message_id INTEGER NOT NULL REFERENCES messages(message_id) ON DELETE CASCADE,
            starboard_id INTEGER NOT NULL REFERENCES starboards(id) ON DELETE CASCADE,
            post_id INTEGER NOT NULL,
            last_known_point_count INTEGER NOT NULL DEFAULT 0,
            PRIMARY KEY (message_id, starboard_id)
        );`,
		`CREATE TABLE IF NOT EXISTS permroles (
            guild_id INTEGER NOT NULL,
            role_id INTEGER NOT NULL,
            give_votes INTEGER,
            receive_votes INTEGER,
            obtain_xp_roles INTEGER,
            PRIMARY KEY (guild_id, role_id)
        );`,
		`CREATE TABLE IF NOT EXISTS permrole_starboards (
            guild_id INTEGER NOT NULL,
            role_id INTEGER NOT NULL,
            starboard_id INTEGER NOT NULL REFERENCES starboards(id) ON DELETE CASCADE,
            give_votes INTEGER,
            receive_votes INTEGER,
            PRIMARY KEY (role_id, starboard_id),
            FOREIGN KEY (guild_id, role_id) REFERENCES permroles(guild_id, role_id) ON DELETE CASCADE
        );`,
		`CREATE TABLE IF NOT EXISTS filter_groups (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            guild_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            position INTEGER NOT NULL DEFAULT 0,
            UNIQUE (guild_id, name)
        );`,
		`CREATE TABLE IF NOT EXISTS filters (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            group_id INTEGER NOT NULL REFERENCES filter_groups(id) ON DELETE CASCADE,
            position INTEGER NOT NULL DEFAULT 0,
            instant_pass INTEGER NOT NULL DEFAULT 0,
            instant_fail INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS filter_checks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            filter_id INTEGER NOT NULL REFERENCES filters(id) ON DELETE CASCADE,
            position INTEGER NOT NULL DEFAULT 0,
            predicates TEXT NOT NULL DEFAULT '{}'
        );`,
		`CREATE TABLE IF NOT EXISTS starboard_filter_groups (
            starboard_id INTEGER NOT NULL REFERENCES starboards(id) ON DELETE CASCADE,
            group_id INTEGER NOT NULL REFERENCES filter_groups(id) ON DELETE CASCADE,
            PRIMARY KEY (starboard_id, group_id)
        );`,
		`CREATE TABLE IF NOT EXISTS autostar_channels (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            guild_id INTEGER NOT NULL,
            channel_id INTEGER NOT NULL,
            premium_locked INTEGER NOT NULL DEFAULT 0,
            emojis TEXT NOT NULL DEFAULT '["⭐"]',
            min_chars INTEGER,
            max_chars INTEGER,
            require_image INTEGER NOT NULL DEFAULT 0,
            delete_invalid INTEGER NOT NULL DEFAULT 0,
            UNIQUE (guild_id, channel_id)
        );`,
		`CREATE TABLE IF NOT EXISTS autostar_filter_groups (
            autostar_id INTEGER NOT NULL REFERENCES autostar_channels(id) ON DELETE CASCADE,
            group_id INTEGER NOT NULL REFERENCES filter_groups(id) ON DELETE CASCADE,
            PRIMARY KEY (autostar_id, group_id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_votes_message_starboard ON votes(message_id, starboard_id);`,
		`CREATE INDEX IF NOT EXISTS idx_starboards_guild ON starboards(guild_id);`,
		`CREATE INDEX IF NOT EXISTS idx_overrides_starboard ON overrides(starboard_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_guild ON messages(guild_id);`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}
