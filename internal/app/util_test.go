package app

import (
	"testing"
	"time"
)

func TestShortAddress(t *testing.T) {
	got := shortAddress(testWalletA)
	want := "0xaaaa…aaaaaa"
	if got != want {
		t.Errorf("shortAddress = %q, want %q", got, want)
	}

	if got := shortAddress("0xshort"); got != "0xshort" {
		t.Errorf("short input should pass through, got %q", got)
	}
}

func TestWalletURL(t *testing.T) {
	got := walletURL(testWalletA)
	want := "https://hyperdash.info/trader/" + testWalletA
	if got != want {
		t.Errorf("walletURL = %q, want %q", got, want)
	}
}

func TestNz(t *testing.T) {
	if nz("value", "fallback") != "value" {
		t.Error("expected value")
	}
	if nz("", "fallback") != "fallback" {
		t.Error("expected fallback for empty")
	}
	if nz("   ", "fallback") != "fallback" {
		t.Error("expected fallback for whitespace")
	}
}

func TestHumanDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{5 * time.Minute, "5m"},
		{90 * time.Minute, "1.5h"},
		{36 * time.Hour, "1.5d"},
	}
	for _, tc := range cases {
		if got := humanDuration(tc.in); got != tc.want {
			t.Errorf("humanDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDifference(t *testing.T) {
	got := difference([]string{"a", "b", "c"}, []string{"b"})
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("unexpected difference: %v", got)
	}

	if got := difference(nil, []string{"a"}); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}
