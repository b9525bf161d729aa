package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testStreams() (ioStreams, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return ioStreams{out: out, err: errOut}, out, errOut
}

func TestRunCLIMissingCommand(t *testing.T) {
	streams, _, errOut := testStreams()
	if err := runCLI(context.Background(), nil, streams); err == nil {
		t.Fatal("expected error for missing command")
	}
	if !strings.Contains(errOut.String(), "Usage:") {
		t.Fatalf("usage not printed: %s", errOut)
	}
}

func TestRunCLIUnknownCommand(t *testing.T) {
	streams, _, _ := testStreams()
	err := runCLI(context.Background(), []string{"bogus"}, streams)
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("err = %v", err)
	}
}

func TestRunCLIHelp(t *testing.T) {
	streams, _, errOut := testStreams()
	if err := runCLI(context.Background(), []string{"help"}, streams); err != nil {
		t.Fatalf("help: %v", err)
	}
	if !strings.Contains(errOut.String(), "chat") || !strings.Contains(errOut.String(), "serve") {
		t.Fatalf("help output missing commands: %s", errOut)
	}
}

func TestConfigValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	streams, out, _ := testStreams()
	if err := runCLI(context.Background(), []string{"-config", path, "config", "validate"}, streams); err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out.String(), "ok") {
		t.Fatalf("out = %s", out)
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("anthropic:\n  api_key: sk-secret\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	streams, out, _ := testStreams()
	if err := runCLI(context.Background(), []string{"-config", path, "config", "show"}, streams); err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out.String(), "sk-secret") {
		t.Fatal("secret leaked in config show output")
	}
	if !strings.Contains(out.String(), "[redacted]") {
		t.Fatalf("expected redaction marker, got: %s", out)
	}
}

func TestConfigInvalidFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("version: nope\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	streams, _, _ := testStreams()
	if err := runCLI(context.Background(), []string{"-config", path, "config", "validate"}, streams); err == nil {
		t.Fatal("expected validation error")
	}
}
