package engine

import (
	"strings"
	"testing"

	"github.com/wfunc/quotebot/models"
)

func TestFormatLeaderboard_SortsDescending(t *testing.T) {
	permutations := [][]models.ScoreEntry{
		{
			{DisplayName: "rachel", Score: 3},
			{DisplayName: "joey", Score: -2},
			{DisplayName: "ross", Score: 7},
		},
		{
			{DisplayName: "ross", Score: 7},
			{DisplayName: "rachel", Score: 3},
			{DisplayName: "joey", Score: -2},
		},
		{
			{DisplayName: "joey", Score: -2},
			{DisplayName: "ross", Score: 7},
			{DisplayName: "rachel", Score: 3},
		},
	}

	want := ":coffee: The scores are:\nross: 7\nrachel: 3\njoey: -2"
	for i, entries := range permutations {
		if got := FormatLeaderboard(entries); got != want {
			t.Errorf("Permutation %d rendered wrong:\n%s", i, got)
		}
	}
}

func TestFormatLeaderboard_TiesKeepInputOrder(t *testing.T) {
	entries := []models.ScoreEntry{
		{DisplayName: "rachel", Score: 2},
		{DisplayName: "joey", Score: 2},
	}

	got := FormatLeaderboard(entries)
	if strings.Index(got, "rachel") > strings.Index(got, "joey") {
		t.Errorf("Tied entries should keep insertion order:\n%s", got)
	}
}

func TestLeaderboard_NoScores(t *testing.T) {
	eng, _ := newTestEngine(t)

	got, err := eng.Leaderboard()
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if got != "No scores recorded yet..." {
		t.Errorf("Unexpected no-scores message: %q", got)
	}
}

func TestLeaderboard_RendersStoreContents(t *testing.T) {
	eng, store := newTestEngine(t)
	store.Adjust("user1", "rachel", 2)
	store.Adjust("user2", "joey", -1)

	got, err := eng.Leaderboard()
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if got != ":coffee: The scores are:\nrachel: 2\njoey: -1" {
		t.Errorf("Unexpected leaderboard:\n%s", got)
	}
}
