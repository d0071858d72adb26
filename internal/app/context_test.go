package app_test

import (
	"context"
	"os"
	"testing"

	"serenote/internal/app"
	"serenote/internal/config"
	"serenote/internal/db"
	"serenote/internal/domain"
)

func TestOpenWorkspaceDefaultsToSQLite(t *testing.T) {
	dir := t.TempDir()
	ws, err := app.OpenWorkspace(context.Background(), dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ws.Close()
	if ws.Config.Store.Driver != config.DriverSQLite {
		t.Fatalf("driver %q", ws.Config.Store.Driver)
	}
	if _, err := os.Stat(db.Path(dir)); err != nil {
		t.Fatalf("database not created: %v", err)
	}
	tasks, err := ws.Store.ListTasks(context.Background(), domain.TaskFilter{})
	if err != nil || len(tasks) != 0 {
		t.Fatalf("fresh store: %v %v", tasks, err)
	}
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = "etcd"
	if _, err := app.OpenStore(context.Background(), t.TempDir(), cfg); err == nil {
		t.Fatalf("expected error")
	}
}
