package main

import (
	"context"
	"strings"
	"testing"

	"serenote/internal/app"
	"serenote/internal/config"
	"serenote/internal/domain"
	"serenote/internal/logging"
)

func TestConsoleSession(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	store, err := app.OpenStore(ctx, t.TempDir(), cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	c := newConsole(store, cfg, logging.Discard(), "7")
	input := strings.Join([]string{
		`+task <@42> Ship it\nchangelog and tag`,
		"react 1002 ✅",
		"as 42",
		"+tasks",
		"react 9999 ✅",
		"delete 1002",
		"exit",
		"+task never reached",
	}, "\n")
	var out strings.Builder
	if err := c.Run(ctx, strings.NewReader(input), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"+ [1002]",
		"🔲 Ship it",
		"changelog and tag",
		"<@42>",
		"~ [1002]",
		"✅ Ship it",
		"now posting as 42",
		"Tasks assigned to **42**",
		"- [1002] deleted",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "error:") {
		t.Fatalf("unexpected error output:\n%s", got)
	}
	if strings.Contains(got, "never reached") {
		t.Fatalf("input after exit was processed:\n%s", got)
	}
	if _, err := store.GetTask(ctx, "1002"); err == nil {
		t.Fatalf("task should be removed with its message")
	}
	tasks, err := store.ListTasks(ctx, domain.TaskFilter{})
	if err != nil || len(tasks) != 0 {
		t.Fatalf("tasks left: %v %+v", err, tasks)
	}
}

func TestConsoleUsageErrors(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	store, err := app.OpenStore(ctx, t.TempDir(), cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	c := newConsole(store, cfg, logging.Discard(), "7")
	var out strings.Builder
	if err := c.Run(ctx, strings.NewReader("react 1\ndelete\n+task <@42>\n"), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	for _, want := range []string{"usage: react", "usage: delete", "Usage:"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}
