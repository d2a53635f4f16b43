package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sevahub/sevahub-backend/internal/database"
	"github.com/sevahub/sevahub-backend/internal/repository"
)

// txRunner runs fn inside one database transaction.
type txRunner func(ctx context.Context, fn func(q repository.Querier) error) error

func poolTx(pool *pgxpool.Pool) txRunner {
	return func(ctx context.Context, fn func(q repository.Querier) error) error {
		return database.WithTx(ctx, pool, func(tx pgx.Tx) error {
			return fn(tx)
		})
	}
}

// pageBounds clamps paging input and returns limit/offset for the repository.
func pageBounds(page, perPage int) (int, int, int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage, perPage, (page - 1) * perPage
}
