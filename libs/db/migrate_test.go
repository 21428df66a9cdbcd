package db

import (
	"testing"
	"testing/fstest"
)

func TestLoadMigrations(t *testing.T) {
	files := fstest.MapFS{
		"002_outbox.sql": {Data: []byte("CREATE TABLE b ();")},
		"001_core.sql":   {Data: []byte("CREATE TABLE a ();")},
		"README.md":      {Data: []byte("docs")},
		"seed.sql":       {Data: []byte("-- no version")},
	}
	migs, err := LoadMigrations(files)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(migs) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migs))
	}
	if migs[0].Version != 1 || migs[1].Version != 2 {
		t.Fatalf("unexpected order %+v", migs)
	}
}

func TestLoadMigrations_Duplicate(t *testing.T) {
	files := fstest.MapFS{
		"001_core.sql":  {Data: []byte("SELECT 1;")},
		"001_other.sql": {Data: []byte("SELECT 2;")},
	}
	if _, err := LoadMigrations(files); err == nil {
		t.Fatalf("expected duplicate version error")
	}
}
