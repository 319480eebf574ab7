package db

import (
	"database/sql"
	"log/slog"
)

// MigrateUp creates the schema. Every statement is idempotent so the
// migration can run on every startup.
func MigrateUp(db *sql.DB) error {
	// Extensions may be missing on restricted databases; everything that
	// depends on them degrades gracefully below.
	_, _ = db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`)
	_, _ = db.Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm`)

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS feeds (
    id                 TEXT PRIMARY KEY,
    name               TEXT NOT NULL,
    url                TEXT NOT NULL,
    category           TEXT NOT NULL DEFAULT '',
    priority           VARCHAR(10) NOT NULL DEFAULT 'medium',
    enabled            BOOLEAN NOT NULL DEFAULT TRUE,
    tags               JSONB NOT NULL DEFAULT '[]',
    last_fetched_at    TIMESTAMPTZ,
    articles_processed BIGINT NOT NULL DEFAULT 0,
    error_count        BIGINT NOT NULL DEFAULT 0,
    last_error         TEXT NOT NULL DEFAULT '',
    last_error_at      TIMESTAMPTZ
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS articles (
    id                  BIGSERIAL PRIMARY KEY,
    title               TEXT NOT NULL,
    summary             TEXT NOT NULL DEFAULT '',
    content             TEXT NOT NULL DEFAULT '',
    url                 TEXT NOT NULL UNIQUE,
    source              TEXT NOT NULL DEFAULT '',
    source_id           TEXT NOT NULL DEFAULT '',
    category            TEXT NOT NULL DEFAULT '',
    tags                JSONB NOT NULL DEFAULT '[]',
    priority            VARCHAR(10) NOT NULL DEFAULT 'medium',
    author              TEXT NOT NULL DEFAULT '',
    image_url           TEXT NOT NULL DEFAULT '',
    language            VARCHAR(10) NOT NULL DEFAULT '',
    entities            JSONB NOT NULL DEFAULT '[]',
    content_hash        VARCHAR(64) NOT NULL,
    published_at        TIMESTAMPTZ NOT NULL,
    fetched_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    duplicate_checked   BOOLEAN NOT NULL DEFAULT FALSE,
    is_duplicate        BOOLEAN NOT NULL DEFAULT FALSE,
    original_article_id BIGINT REFERENCES articles(id) ON DELETE SET NULL,
    processed_at        TIMESTAMPTZ,
    alert_sent          BOOLEAN NOT NULL DEFAULT FALSE
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS duplicate_links (
    id                   BIGSERIAL PRIMARY KEY,
    original_article_id  BIGINT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
    duplicate_article_id BIGINT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
    similarity_score     DOUBLE PRECISION NOT NULL,
    detection_method     VARCHAR(30) NOT NULL,
    breakdown            JSONB NOT NULL DEFAULT '{}',
    original_title       TEXT NOT NULL DEFAULT '',
    duplicate_title      TEXT NOT NULL DEFAULT '',
    original_source      TEXT NOT NULL DEFAULT '',
    duplicate_source     TEXT NOT NULL DEFAULT '',
    time_delta_seconds   BIGINT NOT NULL DEFAULT 0,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (original_article_id, duplicate_article_id)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS clusters (
    id          BIGSERIAL PRIMARY KEY,
    article_ids JSONB NOT NULL DEFAULT '[]',
    centroid    JSONB NOT NULL DEFAULT '{}',
    category    TEXT NOT NULL DEFAULT '',
    tags        JSONB NOT NULL DEFAULT '[]',
    sources     JSONB NOT NULL DEFAULT '[]',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS alerts (
    id           BIGSERIAL PRIMARY KEY,
    article_id   BIGINT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
    title        TEXT NOT NULL,
    summary      TEXT NOT NULL DEFAULT '',
    source       TEXT NOT NULL DEFAULT '',
    category     TEXT NOT NULL DEFAULT '',
    priority     VARCHAR(10) NOT NULL DEFAULT 'medium',
    url          TEXT NOT NULL DEFAULT '',
    published_at TIMESTAMPTZ NOT NULL,
    entities     JSONB NOT NULL DEFAULT '[]',
    tags         JSONB NOT NULL DEFAULT '[]',
    channels     JSONB NOT NULL DEFAULT '[]',
    status       VARCHAR(10) NOT NULL DEFAULT 'pending',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    sent_at      TIMESTAMPTZ,
    results      JSONB NOT NULL DEFAULT '[]',
    resend_count INT NOT NULL DEFAULT 0
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS pipeline_metrics (
    id          BIGSERIAL PRIMARY KEY,
    name        TEXT NOT NULL,
    value       DOUBLE PRECISION NOT NULL,
    labels      JSONB NOT NULL DEFAULT '{}',
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return err
	}

	// The embedding cache needs pgvector. When the extension is
	// unavailable the table creation fails and the dedup engine falls
	// back to pseudo-embeddings without persistence.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS article_embeddings (
    article_id  BIGINT PRIMARY KEY REFERENCES articles(id) ON DELETE CASCADE,
    embedding   vector NOT NULL,
    model       VARCHAR(100) NOT NULL,
    text_length INT NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		slog.Warn("article_embeddings table unavailable, embedding cache disabled",
			slog.String("error", err.Error()))
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_articles_content_hash ON articles(content_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_source_published ON articles(source_id, published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_category_published ON articles(category, published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_unchecked ON articles(id) WHERE duplicate_checked = FALSE`,
		`CREATE INDEX IF NOT EXISTS idx_articles_tags ON articles USING gin(tags jsonb_path_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_entities ON articles USING gin(entities jsonb_path_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_duplicate_links_original ON duplicate_links(original_article_id)`,
		`CREATE INDEX IF NOT EXISTS idx_duplicate_links_duplicate ON duplicate_links(duplicate_article_id)`,
		`CREATE INDEX IF NOT EXISTS idx_clusters_article_ids ON clusters USING gin(article_ids jsonb_path_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_clusters_updated_at ON clusters(updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_pending ON alerts(created_at) WHERE status = 'pending'`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_pipeline_metrics_name ON pipeline_metrics(name, recorded_at DESC)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	// pg_trgm speeds up title ILIKE lookups on the admin surface; skip
	// silently when the extension is missing.
	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_articles_title_gin ON articles USING gin(title gin_trgm_ops)`)

	return nil
}

// MigrateDown drops the schema in reverse dependency order.
// Use with caution: this deletes all data.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS article_embeddings CASCADE`,
		`DROP TABLE IF EXISTS pipeline_metrics CASCADE`,
		`DROP TABLE IF EXISTS alerts CASCADE`,
		`DROP TABLE IF EXISTS clusters CASCADE`,
		`DROP TABLE IF EXISTS duplicate_links CASCADE`,
		`DROP TABLE IF EXISTS articles CASCADE`,
		`DROP TABLE IF EXISTS feeds CASCADE`,
	}

	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
