package sysutil

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLogLevel(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	cases := []struct {
		name string
		in   string
		want zerolog.Level
	}{
		{"debug", "debug", zerolog.DebugLevel},
		{"mixed case and padding", "  DeBuG  ", zerolog.DebugLevel},
		{"info", "info", zerolog.InfoLevel},
		{"empty defaults to info", "", zerolog.InfoLevel},
		{"warn", "warn", zerolog.WarnLevel},
		{"warning alias", "warning", zerolog.WarnLevel},
		{"error", "error", zerolog.ErrorLevel},
		{"fatal", "fatal", zerolog.FatalLevel},
		{"panic", "panic", zerolog.PanicLevel},
		{"typo defaults to info", "verbose", zerolog.InfoLevel},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			SetLogLevel(tc.in)
			if got := zerolog.GlobalLevel(); got != tc.want {
				t.Fatalf("SetLogLevel(%q) -> %v; want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"} {
		if !IsTruthy(v) {
			t.Fatalf("IsTruthy(%q) = false; want true", v)
		}
	}
	// Opt-in semantics: anything unrecognized stays off.
	for _, v := range []string{"", "0", "false", "no", "off", "n", "  ", "enabled"} {
		if IsTruthy(v) {
			t.Fatalf("IsTruthy(%q) = true; want false", v)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty(); got != "" {
		t.Fatalf("FirstNonEmpty() = %q; want \"\"", got)
	}
	if got := FirstNonEmpty(" ", "\t", "\n"); got != "" {
		t.Fatalf("FirstNonEmpty(blanks) = %q; want \"\"", got)
	}
	// The winning value keeps its original spacing.
	if got := FirstNonEmpty("", " acme ", "demo-tenant"); got != " acme " {
		t.Fatalf("FirstNonEmpty(...) = %q; want %q", got, " acme ")
	}
	// Tenant fallback chain stops at the first layer that answers.
	if got := FirstNonEmpty("tenant-from-auth", "tenant-from-header"); got != "tenant-from-auth" {
		t.Fatalf("FirstNonEmpty(...) = %q; want %q", got, "tenant-from-auth")
	}
}
