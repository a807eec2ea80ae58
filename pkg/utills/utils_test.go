package utils

import (
	"testing"
	"time"
)

func TestDisplayTime(t *testing.T) {
	ts := time.Date(2025, 3, 1, 7, 5, 0, 0, time.UTC)
	if got := DisplayTime(ts, nil); got != "07.05" {
		t.Fatalf("expected 07.05, got %s", got)
	}
	jkt := time.FixedZone("WIB", 7*3600)
	if got := DisplayTime(ts, jkt); got != "14.05" {
		t.Fatalf("expected 14.05, got %s", got)
	}
}

func TestLoadLocationFallsBackToUTC(t *testing.T) {
	if loc := LoadLocation("Not/AZone"); loc != time.UTC {
		t.Fatalf("expected UTC fallback, got %v", loc)
	}
	if loc := LoadLocation(""); loc != time.UTC {
		t.Fatalf("expected UTC for empty name, got %v", loc)
	}
}

func TestCharCountCountsRunes(t *testing.T) {
	if n := CharCount("halo 👋"); n != 6 {
		t.Fatalf("expected 6 runes, got %d", n)
	}
}

func TestAvatarFor(t *testing.T) {
	if a := AvatarFor("  chatrigo"); a != "C" {
		t.Fatalf("expected C, got %s", a)
	}
	if a := AvatarFor(""); a != "?" {
		t.Fatalf("expected ?, got %s", a)
	}
}
