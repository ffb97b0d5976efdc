package cache

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/noirfetch/core"
)

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	c := New()
	c.Merge("climate policy", []*core.ResultRecord{
		record("uuid-a", 0.9),
		record("uuid-b", 0.4),
	})
	c.Merge("teachers tenure", []*core.ResultRecord{
		record("uuid-b", 0.4),
		record("uuid-c", 7.5),
	})

	if err := store.Save(c); err != nil {
		t.Fatalf("Failed to save cache: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Failed to load cache: %v", err)
	}

	queries, records := loaded.Size()
	if queries != 2 {
		t.Fatalf("Expected 2 queries, got %d", queries)
	}
	if records != 3 {
		t.Fatalf("Expected 3 records, got %d", records)
	}

	// Lookup must be observationally equivalent on every merged query.
	for _, query := range []string{"climate policy", "teachers tenure"} {
		want, ok := c.Lookup(query, -1, AscendingScore)
		if !ok {
			t.Fatalf("Query %q missing from original cache", query)
		}
		got, ok := loaded.Lookup(query, -1, AscendingScore)
		if !ok {
			t.Fatalf("Query %q missing from loaded cache", query)
		}
		if len(got) != len(want) {
			t.Fatalf("Query %q: expected %d records, got %d", query, len(want), len(got))
		}
		for i := range want {
			if got[i].UUID != want[i].UUID || got[i].Score != want[i].Score {
				t.Fatalf("Query %q record %d differs: %+v vs %+v", query, i, got[i], want[i])
			}
			if *got[i].Text != *want[i].Text {
				t.Fatalf("Query %q record %d text differs", query, i)
			}
		}
	}
}

func TestStoreLoadEmpty(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Failed to load empty store: %v", err)
	}

	queries, records := loaded.Size()
	if queries != 0 || records != 0 {
		t.Fatalf("Expected empty cache, got %d queries and %d records", queries, records)
	}
}

func TestStoreLoadSkipsCorruptValues(t *testing.T) {
	store, err := NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	c := New()
	c.Merge("q", []*core.ResultRecord{record("uuid-good", 1.0)})
	if err := store.Save(c); err != nil {
		t.Fatalf("Failed to save cache: %v", err)
	}

	// Plant garbage under both prefixes.
	err = store.db.Update(func(tx *badger.Txn) error {
		if err := tx.Set(makeDocumentRecordKey("uuid-bad"), []byte{0xff, 0x01, 0x02}); err != nil {
			return err
		}
		return tx.Set(makeQueryEntryKey("broken query"), []byte{0xff})
	})
	if err != nil {
		t.Fatalf("Failed to plant corrupt values: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load must not fail on corrupt values: %v", err)
	}

	queries, records := loaded.Size()
	if queries != 1 {
		t.Fatalf("Expected 1 query, got %d", queries)
	}
	if records != 1 {
		t.Fatalf("Expected 1 record, got %d", records)
	}
	if _, ok := loaded.Lookup("q", -1, AscendingScore); !ok {
		t.Fatal("Healthy entry lost while skipping corrupt ones")
	}
}
