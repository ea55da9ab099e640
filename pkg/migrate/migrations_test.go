package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMigrationDirIsValid(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}

func TestInventoryMigrationContainsGuards(t *testing.T) {
	content := readMigration(t, "*_inventory.sql")

	checks := []string{
		"CHECK (available_qty >= 0)",
		"CHECK (reserved_qty >= 0)",
		"status IN ('held', 'released', 'committed')",
		"idx_inventory_reservations_order",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestWebhookEventsMigrationEnforcesIdempotency(t *testing.T) {
	content := readMigration(t, "*_webhook_events.sql")
	if !strings.Contains(content, "CREATE UNIQUE INDEX idx_webhook_events_provider_event") {
		t.Error("provider_event_id must be unique")
	}
}

func TestOrdersMigrationContainsVersionColumn(t *testing.T) {
	content := readMigration(t, "*_orders.sql")
	if !strings.Contains(content, "version") {
		t.Error("orders table needs the optimistic version column")
	}
	if !strings.Contains(content, "order_number") || !strings.Contains(content, "UNIQUE") {
		t.Error("order_number must be unique")
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
