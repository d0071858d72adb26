package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"serenote/internal/config"
	"serenote/internal/db"
	"serenote/internal/domain"
	"serenote/internal/engine"
	"serenote/internal/logging"
	"serenote/internal/migrate"
	"serenote/internal/repo"
	serenotesdk "serenote/sdk/go"
)

const testSecret = "test-secret"

type testServer struct {
	URL  string
	Repo repo.Repo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	r := repo.Repo{DB: conn}
	e := engine.New(r, nil, config.Default())
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v0",
		Auth:     AuthConfig{JWTSecret: testSecret, EnableDevLogin: true},
		Log:      logging.Discard(),
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		conn.Close()
	})
	return &testServer{URL: srv.URL, Repo: r}
}

func (s *testServer) seed(t *testing.T, id, author string, status domain.Status, assignees ...string) {
	t.Helper()
	err := s.Repo.InsertTask(context.Background(), domain.Task{
		MessageID:   id,
		ChannelID:   "chan",
		GuildID:     "guild",
		AuthorID:    author,
		Title:       "task " + id,
		AssigneeIDs: assignees,
		Status:      status,
		CreatedAt:   "2024-01-01T00:00:0" + id + "Z",
		UpdatedAt:   "2024-01-01T00:00:0" + id + "Z",
	})
	if err != nil {
		t.Fatalf("seed task: %v", err)
	}
	if _, err := s.Repo.AppendEvent(context.Background(), domain.Event{
		TS: "2024-01-01T00:00:00Z", Type: domain.EventTaskCreated, MessageID: id, ActorID: author, Payload: `{"title":"task ` + id + `"}`,
	}); err != nil {
		t.Fatalf("seed event: %v", err)
	}
}

func (s *testServer) client(t *testing.T, userID string, perms ...string) *serenotesdk.Client {
	t.Helper()
	token, err := SignToken(testSecret, userID, perms, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return serenotesdk.New(s.URL, token)
}

func statusOf(err error) int {
	var apiErr *serenotesdk.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func TestHealthIsPublic(t *testing.T) {
	srv := newTestServer(t)
	res, err := http.Get(srv.URL + "/v0/health")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", res.StatusCode)
	}
}

func TestOpenAPIIsPublic(t *testing.T) {
	srv := newTestServer(t)
	res, err := http.Get(srv.URL + "/v0/openapi.json")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	var doc struct {
		Paths      map[string]map[string]json.RawMessage `json:"paths"`
		Components struct {
			SecuritySchemes map[string]json.RawMessage `json:"securitySchemes"`
		} `json:"components"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		t.Fatalf("decode openapi: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	if _, ok := doc.Paths["/v0/tasks/{message_id}"]; !ok {
		t.Fatalf("missing task path in %v", doc.Paths)
	}
	if _, ok := doc.Components.SecuritySchemes["bearerAuth"]; !ok {
		t.Fatalf("missing bearer scheme")
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)
	res, err := http.Get(srv.URL + "/v0/tasks")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	var body struct {
		Error apiErrorBody `json:"error"`
	}
	data, _ := io.ReadAll(res.Body)
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, data)
	}
	if res.StatusCode != http.StatusUnauthorized || body.Error.Code != "unauthorized" {
		t.Fatalf("status %d body %s", res.StatusCode, data)
	}
	bad := serenotesdk.New(srv.URL, "not-a-jwt")
	if _, err := bad.ListTasks(context.Background(), serenotesdk.TaskQuery{}); statusOf(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %v", err)
	}
}

func TestListTasksScopedToCaller(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t, "1", "ada", domain.StatusOpen, "ada")
	srv.seed(t, "2", "ada", domain.StatusCompleted, "ada", "bob")
	srv.seed(t, "3", "bob", domain.StatusOpen, "bob")
	ctx := context.Background()

	ada := srv.client(t, "ada")
	tasks, err := ada.ListTasks(ctx, serenotesdk.TaskQuery{})
	if err != nil {
		t.Fatalf("list own: %v", err)
	}
	if len(tasks) != 2 || tasks[0].MessageID != "1" || tasks[1].Status != "completed" {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
	if !strings.HasSuffix(tasks[0].URL, "/guild/chan/1") {
		t.Fatalf("url %q", tasks[0].URL)
	}
	open, err := ada.ListTasks(ctx, serenotesdk.TaskQuery{Status: "open"})
	if err != nil || len(open) != 1 {
		t.Fatalf("status filter: %v %+v", err, open)
	}
	if _, err := ada.ListTasks(ctx, serenotesdk.TaskQuery{AssigneeID: "bob"}); statusOf(err) != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}

	admin := srv.client(t, "root", "tasks.read.any")
	bobs, err := admin.ListTasks(ctx, serenotesdk.TaskQuery{AssigneeID: "bob"})
	if err != nil || len(bobs) != 2 {
		t.Fatalf("read.any: %v %+v", err, bobs)
	}
}

func TestGetTask(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t, "1", "ada", domain.StatusOpen, "ada")
	ctx := context.Background()
	task, err := srv.client(t, "ada").GetTask(ctx, "1")
	if err != nil || task.Title != "task 1" {
		t.Fatalf("get: %v %+v", err, task)
	}
	if _, err := srv.client(t, "eve").GetTask(ctx, "1"); statusOf(err) != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
	if _, err := srv.client(t, "ada").GetTask(ctx, "404"); statusOf(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestEventsPagination(t *testing.T) {
	srv := newTestServer(t)
	for _, id := range []string{"1", "2", "3"} {
		srv.seed(t, id, "ada", domain.StatusOpen, "ada")
	}
	ctx := context.Background()
	admin := srv.client(t, "root", "tasks.read.any")
	page, err := admin.EventsPage(ctx, "", 2, "")
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].MessageID != "3" || page.NextCursor == "" {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Items[0].Payload["title"] != "task 3" {
		t.Fatalf("payload %+v", page.Items[0].Payload)
	}
	next, err := admin.EventsPage(ctx, "", 2, page.NextCursor)
	if err != nil || len(next.Items) != 1 || next.Items[0].MessageID != "1" || next.NextCursor != "" {
		t.Fatalf("page 2: %v %+v", err, next)
	}

	ada := srv.client(t, "ada")
	if _, err := ada.Events(ctx, 10); statusOf(err) != http.StatusForbidden {
		t.Fatalf("unscoped events without read.any: %v", err)
	}
	own, err := ada.EventsPage(ctx, "2", 10, "")
	if err != nil || len(own.Items) != 1 {
		t.Fatalf("own task events: %v %+v", err, own)
	}
}

func TestDevLogin(t *testing.T) {
	srv := newTestServer(t)
	res, err := http.Post(srv.URL+"/v0/auth/dev/login", "application/json", strings.NewReader(`{"user_id":"ada"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	var body DevLoginResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil || body.Token == "" {
		t.Fatalf("dev login: %d %v %+v", res.StatusCode, err, body)
	}
	p, err := authenticateJWT(body.Token, testSecret)
	if err != nil || p.UserID != "ada" {
		t.Fatalf("token: %v %+v", err, p)
	}
}

func TestWebhookDispatcher(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t, "1", "ada", domain.StatusOpen, "ada")

	var mu sync.Mutex
	var got []webhookEvent
	var headers []http.Header
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt webhookEvent
		_ = json.NewDecoder(r.Body).Decode(&evt)
		mu.Lock()
		got = append(got, evt)
		headers = append(headers, r.Header.Clone())
		mu.Unlock()
	}))
	defer hook.Close()

	ctx := context.Background()
	d := NewWebhookDispatcher(srv.Repo, []config.WebhookConfig{
		{URL: hook.URL, Events: []string{domain.EventTaskCompleted}, Secret: "s3cret"},
	}, logging.Discard())
	d.Prime(ctx)
	for _, typ := range []string{domain.EventTaskReopened, domain.EventTaskCompleted} {
		if _, err := srv.Repo.AppendEvent(ctx, domain.Event{TS: "2024-01-02T00:00:00Z", Type: typ, MessageID: "1", ActorID: "bob", Payload: `{"title":"task 1"}`}); err != nil {
			t.Fatal(err)
		}
	}
	d.DispatchAll(ctx)
	d.DispatchAll(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("expected exactly one delivery, got %+v", got)
	}
	if got[0].Type != domain.EventTaskCompleted || got[0].MessageID != "1" || string(got[0].Payload) != `{"title":"task 1"}` {
		t.Fatalf("unexpected delivery %+v", got[0])
	}
	if headers[0].Get("X-Serenote-Event") != domain.EventTaskCompleted || headers[0].Get("X-Serenote-Secret") != "s3cret" || headers[0].Get("X-Serenote-Delivery") == "" {
		t.Fatalf("headers %v", headers[0])
	}
}
