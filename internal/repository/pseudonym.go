package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// bindPseudonym is a single upsert: the no-op update makes RETURNING yield
// the existing name when the magic code is already bound.
func bindPseudonym(ctx context.Context, q sqlx.QueryerContext, magicCode, candidate string) (string, error) {
	var name string
	err := sqlx.GetContext(ctx, q, &name, `
		INSERT INTO pseudonyms (magic_code, name) VALUES ($1, $2)
		ON CONFLICT (magic_code) DO UPDATE SET magic_code = EXCLUDED.magic_code
		RETURNING name
	`, magicCode, candidate)
	if err != nil {
		return "", fmt.Errorf("bind pseudonym: %w", err)
	}
	return name, nil
}
