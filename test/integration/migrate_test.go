package integration

import (
	"context"
	"testing"

	"github.com/funkyjh/pilllog/internal/platform/db"
	"github.com/funkyjh/pilllog/migrations"
)

func TestMigrator_IdempotentAndStatus(t *testing.T) {
	ctx := context.Background()
	pool := newSchemaPool(t)
	m := db.NewMigrator(pool, migrations.FS)

	count, err := m.Up(ctx)
	if err != nil {
		t.Fatalf("second Up: %v", err)
	}
	if count != 0 {
		t.Errorf("expected nothing pending, applied %d", count)
	}

	statuses, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(statuses) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(statuses))
	}
	for _, s := range statuses {
		if !s.Applied || s.AppliedAt == nil {
			t.Errorf("migration %s not applied", s.Name)
		}
	}
}
