package persistence

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"
)

// newGormTestStore connects to the database named by the POSTGRES_*
// environment variables, or skips when none is configured.
func newGormTestStore(t *testing.T) *GormPostgreSQL {
	t.Helper()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		t.Skip("POSTGRES_HOST not set")
	}
	port := 5432
	if p := os.Getenv("POSTGRES_PORT"); p != "" {
		port, _ = strconv.Atoi(p)
	}

	store, err := NewGormPostgreSQL(host, port,
		envOr("POSTGRES_USER", "postgres"),
		os.Getenv("POSTGRES_PASSWORD"),
		envOr("POSTGRES_DB", "quotebot_test"))
	if err != nil {
		t.Fatalf("NewGormPostgreSQL failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestGormAdjust_ReturnsRunningScore(t *testing.T) {
	store := newGormTestStore(t)
	userID := fmt.Sprintf("user-%d", time.Now().UnixNano())

	score, err := store.Adjust(userID, "joey", -1)
	if err != nil {
		t.Fatalf("First Adjust failed: %v", err)
	}
	if score != -1 {
		t.Errorf("Expected score -1 after first adjust, got %d", score)
	}

	score, err = store.Adjust(userID, "joey", 1)
	if err != nil {
		t.Fatalf("Second Adjust failed: %v", err)
	}
	if score != 0 {
		t.Errorf("Expected score 0 after +1, got %d", score)
	}
}

func TestGormAdjust_ConcurrentFirstAdjust(t *testing.T) {
	store := newGormTestStore(t)
	userID := fmt.Sprintf("user-%d", time.Now().UnixNano())

	// All racers hit a user with no row yet; the upsert must land
	// every delta even when several inserts collide
	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Adjust(userID, "ross", 1); err != nil {
				t.Errorf("Adjust failed: %v", err)
			}
		}()
	}
	wg.Wait()

	entries, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	for _, e := range entries {
		if e.UserID == userID {
			if e.Score != n {
				t.Errorf("Lost update: expected score %d, got %d", n, e.Score)
			}
			return
		}
	}
	t.Fatalf("No score entry for %s", userID)
}
