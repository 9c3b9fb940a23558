package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            username TEXT NOT NULL UNIQUE,
            avatar_path TEXT,
            status TEXT NOT NULL DEFAULT 'offline',
            status_text TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS companies (
            id SERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            slug TEXT NOT NULL UNIQUE,
            join_password TEXT NOT NULL DEFAULT '',
            owner_id INT NOT NULL REFERENCES users(id),
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS company_members (
            company_id INT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
            user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            role TEXT NOT NULL DEFAULT 'user',
            created_at TIMESTAMPTZ DEFAULT NOW(),
            PRIMARY KEY(company_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS channels (
            id SERIAL PRIMARY KEY,
            company_id INT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            is_private BOOLEAN NOT NULL DEFAULT FALSE,
            created_by INT NOT NULL REFERENCES users(id),
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS channel_members (
            channel_id INT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
            user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            added_by INT REFERENCES users(id),
            joined_at TIMESTAMPTZ DEFAULT NOW(),
            PRIMARY KEY(channel_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS channel_join_requests (
            id SERIAL PRIMARY KEY,
            channel_id INT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
            user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            status TEXT NOT NULL DEFAULT 'pending',
            resolved_by INT REFERENCES users(id),
            created_at TIMESTAMPTZ DEFAULT NOW(),
            resolved_at TIMESTAMPTZ
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS channel_join_requests_pending_unique
            ON channel_join_requests (channel_id, user_id) WHERE status = 'pending';`,
		`CREATE TABLE IF NOT EXISTS direct_conversations (
            id SERIAL PRIMARY KEY,
            user_one_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            user_two_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            user_one_accepted BOOLEAN NOT NULL DEFAULT FALSE,
            user_two_accepted BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            updated_at TIMESTAMPTZ DEFAULT NOW(),
            UNIQUE(user_one_id, user_two_id),
            CHECK(user_one_id < user_two_id)
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            messageable_type TEXT NOT NULL,
            messageable_id INT NOT NULL,
            sender_id INT NOT NULL REFERENCES users(id),
            content TEXT NOT NULL,
            content_iv TEXT NOT NULL DEFAULT '',
            content_type TEXT NOT NULL DEFAULT 'text',
            parent_id INT REFERENCES messages(id),
            edited_at TIMESTAMPTZ,
            deleted_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS messages_owner_created_idx
            ON messages (messageable_type, messageable_id, created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS message_reactions (
            id SERIAL PRIMARY KEY,
            message_id INT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            emoji TEXT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            UNIQUE(message_id, user_id, emoji)
        );`,
		`CREATE TABLE IF NOT EXISTS files (
            id SERIAL PRIMARY KEY,
            fileable_type TEXT NOT NULL,
            fileable_id INT NOT NULL,
            message_id INT REFERENCES messages(id),
            uploaded_by INT NOT NULL REFERENCES users(id),
            original_name TEXT NOT NULL,
            stored_name TEXT NOT NULL,
            mime_type TEXT NOT NULL,
            size_bytes BIGINT NOT NULL,
            is_compressed BOOLEAN NOT NULL DEFAULT FALSE,
            thumbnail_path TEXT,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS read_receipts (
            user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            messageable_type TEXT NOT NULL,
            messageable_id INT NOT NULL,
            last_read_message_id INT NOT NULL REFERENCES messages(id),
            updated_at TIMESTAMPTZ DEFAULT NOW(),
            PRIMARY KEY(user_id, messageable_type, messageable_id)
        );`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
