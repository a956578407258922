package migrations

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/mufasadev/grinpay/pkg/postgresql"
)

//go:embed schema.sql
var schema string

// Apply creates the schema. Every statement is idempotent, so it is safe to run on each deploy.
func Apply(ctx context.Context, db postgresql.Client) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
