package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sejinpark/posportal-backend/pkg/migrate"
)

func TestPosMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_pos_tables.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no pos migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS pos_records",
		"store_id UUID NOT NULL UNIQUE",
		"CHECK (version >= 1)",
		"CHECK (estimated_revenue_loss >= 0)",
		"CHECK (affected_order_count >= 0)",
		"FOREIGN KEY (store_id) REFERENCES pos_records(store_id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS pos_records",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir failed validation: %v", err)
	}
}
