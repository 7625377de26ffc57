package main

import "testing"

func TestParseFlags(t *testing.T) {
	t.Parallel()

	opts, err := parseFlags([]string{"-log", "/tmp/autoscribe.log", "-no-color", "-export"})
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if opts.logPath != "/tmp/autoscribe.log" || !opts.noColor || !opts.export {
		t.Fatalf("unexpected options: %+v", opts)
	}

	if _, err := parseFlags([]string{"-bogus"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}
