package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"NewsPulse/internal/domain"
	"NewsPulse/internal/ports"
)

// ErrConflict reports an insert that collided with the unique index on
// original_url. Callers treat it as a successful dedup outcome, not a
// failure; the index is the backstop against racing pipeline runs.
var ErrConflict = errors.New("article already stored")

const uniqueViolation = "23505"

// PostgresRepository persists and queries stored articles.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.ArticleRepository = (*PostgresRepository)(nil)
var _ ports.SubscriberStore = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

const articleColumns = "id, source_name, source_url, original_title, original_url, " +
	"processed_title, bullets, why_it_matters, topic_id, importance, category, " +
	"is_breaking, published_at, created_at"

// FindByURL returns the article stored under the exact original URL, or nil.
func (r *PostgresRepository) FindByURL(ctx context.Context, url string) (*domain.StoredArticle, error) {
	query, args, err := r.builder.
		Select(articleColumns).
		From("news_articles").
		Where(sq.Eq{"original_url": url}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build url query: %w", err)
	}

	return r.queryOne(ctx, query, args)
}

// FindByTitleFold returns the article whose original title matches
// case-insensitively, or nil.
func (r *PostgresRepository) FindByTitleFold(ctx context.Context, title string) (*domain.StoredArticle, error) {
	query, args, err := r.builder.
		Select(articleColumns).
		From("news_articles").
		Where("LOWER(original_title) = LOWER(?)", title).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build title query: %w", err)
	}

	return r.queryOne(ctx, query, args)
}

// TopicsSince returns the topic ids of every article created at or after the
// given instant. Rows with an empty topic id are skipped.
func (r *PostgresRepository) TopicsSince(ctx context.Context, since time.Time) ([]string, error) {
	query, args, err := r.builder.
		Select("topic_id").
		From("news_articles").
		Where(sq.GtOrEq{"created_at": since}).
		Where(sq.NotEq{"topic_id": ""}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build topics query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var topic string
		if err := rows.Scan(&topic); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, topic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return topics, nil
}

// Insert persists the article and returns its id. The row is never updated
// afterwards; a unique violation on original_url comes back as ErrConflict.
func (r *PostgresRepository) Insert(ctx context.Context, article domain.StoredArticle) (string, error) {
	id := article.ID
	if id == "" {
		id = uuid.NewString()
	}

	createdAt := article.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query, args, err := r.builder.
		Insert("news_articles").
		Columns("id", "source_name", "source_url", "original_title", "original_url",
			"processed_title", "bullets", "why_it_matters", "topic_id", "importance",
			"category", "is_breaking", "published_at", "created_at").
		Values(id, article.SourceName, article.SourceURL, article.OriginalTitle,
			article.OriginalURL, article.Title, pq.StringArray(article.Bullets),
			article.WhyItMatters, article.TopicID, article.Importance,
			string(article.Category), article.IsBreaking, article.PublishedAt, createdAt).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return "", ErrConflict
		}
		return "", fmt.Errorf("insert article: %w", err)
	}

	return id, nil
}

// TokensForTiers returns the device tokens of subscribers on any of the given
// notification levels.
func (r *PostgresRepository) TokensForTiers(ctx context.Context, tiers []domain.Tier) ([]string, error) {
	levels := make([]string, 0, len(tiers))
	for _, tier := range tiers {
		levels = append(levels, string(tier))
	}

	query, args, err := r.builder.
		Select("push_token").
		From("profiles").
		Where(sq.Eq{"news_notification_level": levels}).
		Where(sq.NotEq{"push_token": nil}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build tokens query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return tokens, nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args []interface{}) (*domain.StoredArticle, error) {
	var (
		article  domain.StoredArticle
		bullets  pq.StringArray
		category string
	)

	row := r.db.QueryRowContext(ctx, query, args...)
	err := row.Scan(&article.ID, &article.SourceName, &article.SourceURL,
		&article.OriginalTitle, &article.OriginalURL, &article.Title, &bullets,
		&article.WhyItMatters, &article.TopicID, &article.Importance, &category,
		&article.IsBreaking, &article.PublishedAt, &article.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan article: %w", err)
	}

	article.Bullets = bullets
	article.Category = domain.Category(category)
	return &article, nil
}
