package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ListingFlow/internal/checklist"
	"ListingFlow/internal/config"
	"ListingFlow/internal/domain"
	"ListingFlow/internal/infrastructure/storage"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "listingflow.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPreviewResolvesAcrossDST(t *testing.T) {
	cfgPath := writeConfig(t, "scheduler:\n  timezone: UTC\n")

	out, err := runCLI(t, "--config", cfgPath, "preview",
		"--date", "2025-03-30", "--time", "01:30", "--tz", "Europe/Berlin",
		"--channel", "content", "--channel", "social:Twitter=30m")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	for _, want := range []string{"2025-03-30T00:30:00Z", "2025-03-30T01:00:00Z", "social:twitter", "CEST"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestPreviewRejectsBadInput(t *testing.T) {
	cfgPath := writeConfig(t, "")

	if _, err := runCLI(t, "--config", cfgPath, "preview", "--date", "2025-03-30", "--channel", "fax"); err == nil {
		t.Fatal("expected unknown channel error")
	}
	if _, err := runCLI(t, "--config", cfgPath, "preview", "--date", "2025-03-30", "--channel", "email=soon"); err == nil {
		t.Fatal("expected bad offset error")
	}
	if _, err := runCLI(t, "--config", cfgPath, "preview", "--date", "30/03/2025"); err == nil {
		t.Fatal("expected bad date error")
	}
}

func TestChecklistCommand(t *testing.T) {
	cfgPath := writeConfig(t, "")
	def := checklist.Default()

	out, err := runCLI(t, "--config", cfgPath, "checklist")
	if err != nil {
		t.Fatalf("checklist: %v", err)
	}
	for _, item := range def.Items() {
		if !strings.Contains(out, item.ID) {
			t.Fatalf("expected %s in output:\n%s", item.ID, out)
		}
	}

	var b strings.Builder
	for _, item := range def.Items() {
		if item.Required {
			b.WriteString(item.ID + ":\n  verdict: pass\n")
		}
	}
	resultPath := filepath.Join(t.TempDir(), "result.yaml")
	if err := os.WriteFile(resultPath, []byte(b.String()), 0o600); err != nil {
		t.Fatalf("write result: %v", err)
	}

	out, err = runCLI(t, "--config", cfgPath, "checklist", "--result", resultPath)
	if err != nil {
		t.Fatalf("checklist --result: %v", err)
	}
	if !strings.Contains(out, "100%") || !strings.Contains(out, "yes") {
		t.Fatalf("unexpected evaluation output:\n%s", out)
	}
}

func TestHistoryCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")
	cfgPath := writeConfig(t, "database:\n  driver: sqlite\n  dsn: "+dbPath+"\n")

	repo, err := storage.Open(context.Background(), config.DriverSQLite, dbPath)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	entries := []domain.HistoryEntry{
		{ID: "h1", ContentID: "exp-1", Seq: 1, ActorID: "author", Action: "create", Timestamp: at, ToStatus: domain.StatusDraft},
		{ID: "h2", ContentID: "exp-1", Seq: 2, ActorID: "author", Action: "submit", Timestamp: at.Add(time.Minute),
			FromStatus: domain.StatusDraft, ToStatus: domain.StatusPending, Comment: "first pass"},
	}
	for _, e := range entries {
		if err := repo.AppendHistory(context.Background(), e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	_ = repo.Close()

	out, err := runCLI(t, "--config", cfgPath, "history", "exp-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, want := range []string{"create", "draft -> pending", "first pass"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	out, err = runCLI(t, "--config", cfgPath, "history", "ghost")
	if err != nil {
		t.Fatalf("history ghost: %v", err)
	}
	if !strings.Contains(out, "No history for ghost") {
		t.Fatalf("unexpected output: %s", out)
	}
}
