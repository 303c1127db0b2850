package main

import (
	"strings"
	"testing"
)

func TestNewRootCmd_HasSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	want := []string{"serve", "synth", "voices", "health"}
	for _, name := range want {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestNewRootCmd_RegistersConfigFlag(t *testing.T) {
	cmd := NewRootCmd()

	if cmd.PersistentFlags().Lookup("config") == nil {
		t.Error("persistent flag --config not registered")
	}

	if cmd.PersistentFlags().Lookup("backend-url") == nil {
		t.Error("persistent flag --backend-url not registered")
	}
}

func TestReadSynthText_FlagWins(t *testing.T) {
	got, err := readSynthText("hello", strings.NewReader("ignored"))
	if err != nil {
		t.Fatalf("readSynthText: %v", err)
	}
	if got != "hello" {
		t.Errorf("got %q; want hello", got)
	}
}

func TestReadSynthText_StdinFallback(t *testing.T) {
	got, err := readSynthText("", strings.NewReader("  piped text \n"))
	if err != nil {
		t.Fatalf("readSynthText: %v", err)
	}
	if got != "piped text" {
		t.Errorf("got %q; want piped text", got)
	}
}

func TestReadSynthText_EmptyInput(t *testing.T) {
	if _, err := readSynthText("", strings.NewReader("   ")); err == nil {
		t.Error("want error for empty input")
	}
}
