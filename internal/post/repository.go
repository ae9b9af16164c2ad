package post

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abduss/postmedia/internal/media"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

// Repository persists posts in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a new post repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a fully assembled post.
func (r *Repository) Create(ctx context.Context, p Post) (Post, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	pictures, err := json.Marshal(p.Pictures)
	if err != nil {
		return Post{}, fmt.Errorf("encode pictures: %w", err)
	}
	videos, err := json.Marshal(p.Videos)
	if err != nil {
		return Post{}, fmt.Errorf("encode videos: %w", err)
	}

	query := `
INSERT INTO posts (id, owner_id, description, band, brand, is_self_built, meters_from_sea, boom_length_cm,
                   number_of_elements, number_of_antennas, cable, pictures, videos, approved, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING ` + postColumns + `;`

	row := r.pool.QueryRow(ctx, query,
		p.ID,
		p.OwnerID,
		p.Description,
		int(p.Band),
		p.Brand,
		p.IsSelfBuilt,
		p.MetersFromSea,
		p.BoomLengthCm,
		p.NumberOfElements,
		p.NumberOfAntennas,
		p.Cable,
		pictures,
		videos,
		p.Approved,
		p.CreatedAt,
	)

	stored, err := scanPost(row)
	if err != nil {
		return Post{}, fmt.Errorf("create post: %w", err)
	}
	return stored, nil
}

// Get fetches a post by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Post, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1;`

	p, err := scanPost(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrPostNotFound
		}
		return Post{}, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

// List returns a page of posts, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Post, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + postColumns + ` FROM posts
WHERE ($1 = FALSE OR approved)
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3;`

	rows, err := r.pool.Query(ctx, query, filter.OnlyApproved, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// Delete removes a post and returns the row as it was.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (Post, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `DELETE FROM posts WHERE id = $1 RETURNING ` + postColumns + `;`

	p, err := scanPost(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrPostNotFound
		}
		return Post{}, fmt.Errorf("delete post: %w", err)
	}
	return p, nil
}

// Approve marks a post as approved.
func (r *Repository) Approve(ctx context.Context, id uuid.UUID) (Post, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `UPDATE posts SET approved = TRUE WHERE id = $1 RETURNING ` + postColumns + `;`

	p, err := scanPost(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrPostNotFound
		}
		return Post{}, fmt.Errorf("approve post: %w", err)
	}
	return p, nil
}

const postColumns = `id, owner_id, description, band, brand, is_self_built, meters_from_sea, boom_length_cm,
       number_of_elements, number_of_antennas, cable, pictures, videos, approved, created_at`

func scanPost(row pgx.Row) (Post, error) {
	var (
		p        Post
		band     int
		pictures []byte
		videos   []byte
	)
	if err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Description,
		&band,
		&p.Brand,
		&p.IsSelfBuilt,
		&p.MetersFromSea,
		&p.BoomLengthCm,
		&p.NumberOfElements,
		&p.NumberOfAntennas,
		&p.Cable,
		&pictures,
		&videos,
		&p.Approved,
		&p.CreatedAt,
	); err != nil {
		return Post{}, err
	}
	p.Band = Band(band)

	p.Pictures = []media.ObjectMetadata{}
	if err := json.Unmarshal(pictures, &p.Pictures); err != nil {
		return Post{}, fmt.Errorf("decode pictures: %w", err)
	}
	p.Videos = []media.ObjectMetadata{}
	if err := json.Unmarshal(videos, &p.Videos); err != nil {
		return Post{}, fmt.Errorf("decode videos: %w", err)
	}
	return p, nil
}
