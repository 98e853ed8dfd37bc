package db

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationsAreOrderedAndPaired(t *testing.T) {
	migrations, err := Migrations()
	if err != nil {
		t.Fatalf("list migrations: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected embedded migrations")
	}

	for i := 1; i < len(migrations); i++ {
		if migrations[i-1].Version >= migrations[i].Version {
			t.Fatalf("migrations out of order: %s before %s", migrations[i-1].Version, migrations[i].Version)
		}
	}

	for _, m := range migrations {
		if strings.TrimSpace(m.SQL) == "" {
			t.Fatalf("migration %s is empty", m.Version)
		}
		down := strings.TrimSuffix(m.Version, ".up.sql") + ".down.sql"
		if _, err := fs.Stat(migrationsFS, "migrations/"+down); err != nil {
			t.Fatalf("migration %s has no down file: %v", m.Version, err)
		}
	}
}

func TestInitialMigrationDeclaresCascades(t *testing.T) {
	migrations, err := Migrations()
	if err != nil {
		t.Fatalf("list migrations: %v", err)
	}

	initial := migrations[0].SQL
	for _, want := range []string{
		"REFERENCES properties(id) ON DELETE CASCADE",
		"REFERENCES collaborations(id) ON DELETE CASCADE",
	} {
		if !strings.Contains(initial, want) {
			t.Fatalf("initial migration missing %q", want)
		}
	}
}
