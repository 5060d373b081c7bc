package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()

	expected := []string{"daemon", "archive", "cancel", "status", "job", "courses", "config", "test-notify"}
	registered := make(map[string]bool)
	for _, cmd := range root.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range expected {
		if !registered[name] {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestWriteJSONKeepsURLsReadable(t *testing.T) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	payload := map[string]string{
		"url": "https://gs.example.com/s/9?view=1&download=1",
	}
	if err := writeJSON(cmd, payload); err != nil {
		t.Fatalf("writeJSON failed: %v", err)
	}
	if !strings.Contains(buf.String(), "view=1&download=1") {
		t.Fatalf("query separators were escaped: %s", buf.String())
	}
}

func TestRootCommandRejectsUnknownCommand(t *testing.T) {
	out, err := runCommand(t, "definitely-not-a-command")
	if err == nil {
		t.Fatalf("expected error, got output: %s", out)
	}
	if !strings.Contains(err.Error(), "definitely-not-a-command") {
		t.Fatalf("error does not name the unknown command: %v", err)
	}
}
