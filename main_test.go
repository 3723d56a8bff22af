package main

import (
	"testing"
)

func TestParseBoolValue(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"true", true, false},
		{"1", true, false},
		{"false", false, false},
		{"0", false, false},
		{"yes", false, true},
		{"", false, true},
	}
	for _, tt := range tests {
		got, err := parseBoolValue(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseBoolValue(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseBoolValue(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValueOrDefault(t *testing.T) {
	if got := valueOrDefault("", "fallback"); got != "fallback" {
		t.Errorf("valueOrDefault empty = %q, want fallback", got)
	}
	if got := valueOrDefault("set", "fallback"); got != "set" {
		t.Errorf("valueOrDefault set = %q, want set", got)
	}
}

func TestRootCommandRegistration(t *testing.T) {
	want := []string{
		"transcribe", "record", "task", "summarize", "history",
		"meeting", "calendar", "status", "config", "auth", "version",
	}
	registered := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %q not registered on root", name)
		}
	}
}

func TestGlobalFlags(t *testing.T) {
	for _, name := range []string{"server", "timeout", "poll-interval", "output", "debug", "insecure"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("persistent flag %q not registered", name)
		}
	}
}
