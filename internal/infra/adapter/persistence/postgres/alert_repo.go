package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"newswatch/internal/domain/entity"
	"newswatch/internal/repository"
)

const alertColumns = `id, article_id, title, summary, source, category, priority,
	url, published_at, entities, tags, channels, status, created_at, sent_at,
	results, resend_count`

type AlertRepo struct {
	db *sql.DB
}

func NewAlertRepo(db *sql.DB) repository.AlertRepository {
	return &AlertRepo{db: db}
}

func scanAlert(row rowScanner) (*entity.Alert, error) {
	var alert entity.Alert
	var entities, tags, channels, results []byte
	if err := row.Scan(
		&alert.ID, &alert.ArticleID, &alert.Title, &alert.Summary,
		&alert.Source, &alert.Category, &alert.Priority, &alert.URL,
		&alert.PublishedAt, &entities, &tags, &channels, &alert.Status,
		&alert.CreatedAt, &alert.SentAt, &results, &alert.ResendCount,
	); err != nil {
		return nil, err
	}
	if err := fromJSON(entities, &alert.Entities, "entities"); err != nil {
		return nil, err
	}
	if err := fromJSON(tags, &alert.Tags, "tags"); err != nil {
		return nil, err
	}
	if err := fromJSON(channels, &alert.Channels, "channels"); err != nil {
		return nil, err
	}
	if err := fromJSON(results, &alert.Results, "results"); err != nil {
		return nil, err
	}
	return &alert, nil
}

func (repo *AlertRepo) Create(ctx context.Context, alert *entity.Alert) error {
	defer observe("alert_create", time.Now())

	if err := alert.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	const query = `
INSERT INTO alerts
       (article_id, title, summary, source, category, priority, url,
        published_at, entities, tags, channels, status, created_at, resend_count)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		alert.ArticleID, alert.Title, alert.Summary, alert.Source,
		alert.Category, string(alert.Priority), alert.URL, alert.PublishedAt,
		mustJSON(alert.Entities), mustJSON(alert.Tags), mustJSON(alert.Channels),
		string(alert.Status), alert.CreatedAt, alert.ResendCount,
	).Scan(&alert.ID)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *AlertRepo) Get(ctx context.Context, id int64) (*entity.Alert, error) {
	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE id = $1 LIMIT 1`, alertColumns)
	alert, err := scanAlert(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return alert, nil
}

func (repo *AlertRepo) UpdateStatus(ctx context.Context, id int64, status entity.AlertStatus, sentAt *time.Time, results []entity.ChannelResult) error {
	const query = `
UPDATE alerts SET
       status  = $1,
       sent_at = $2,
       results = $3
WHERE id = $4`
	res, err := repo.db.ExecContext(ctx, query, string(status), sentAt, mustJSON(results), id)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdateStatus: no rows affected")
	}
	return nil
}

func (repo *AlertRepo) IncrementResend(ctx context.Context, id int64) error {
	const query = `UPDATE alerts SET resend_count = resend_count + 1 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("IncrementResend: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("IncrementResend: no rows affected")
	}
	return nil
}

func (repo *AlertRepo) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM alerts WHERE created_at >= $1`
	var count int
	err := repo.db.QueryRowContext(ctx, query, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("CountCreatedSince: %w", err)
	}
	return count, nil
}

func (repo *AlertRepo) ListPending(ctx context.Context, limit int) ([]*entity.Alert, error) {
	query := fmt.Sprintf(`
SELECT %s FROM alerts
WHERE status = 'pending'
ORDER BY created_at ASC
LIMIT $1`, alertColumns)

	rows, err := repo.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ListPending: %w", err)
	}
	defer func() { _ = rows.Close() }()

	alerts := make([]*entity.Alert, 0, limit)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("ListPending: Scan: %w", err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func (repo *AlertRepo) ListRecent(ctx context.Context, limit int) ([]*entity.Alert, error) {
	query := fmt.Sprintf(`
SELECT %s FROM alerts
ORDER BY created_at DESC
LIMIT $1`, alertColumns)

	rows, err := repo.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ListRecent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	alerts := make([]*entity.Alert, 0, limit)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("ListRecent: Scan: %w", err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func (repo *AlertRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM alerts WHERE created_at < $1`
	res, err := repo.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("DeleteOlderThan: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteOlderThan: RowsAffected: %w", err)
	}
	return count, nil
}
