package panel_test

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"serenote/internal/domain"
	"serenote/internal/panel"
)

func task(id, title string, status domain.Status) domain.Task {
	return domain.Task{MessageID: id, ChannelID: "c1", GuildID: "g1", Title: title, Status: status}
}

func TestTaskListPartitions(t *testing.T) {
	tasks := []domain.Task{
		task("1", "one", domain.StatusOpen),
		task("2", "two", domain.StatusCompleted),
		task("3", "three", domain.StatusOpen),
	}
	style := panel.Style{OpenIcon: "[ ]", CompletedIcon: "[x]"}
	open := strings.Split(panel.TaskList(tasks, false, style), "\n")
	if len(open) != 2 {
		t.Fatalf("expected 2 open lines, got %d: %v", len(open), open)
	}
	if open[0] != "[ ] [one](https://discord.com/channels/g1/c1/1)" {
		t.Fatalf("unexpected line %q", open[0])
	}
	if !strings.Contains(open[1], "[three]") {
		t.Fatalf("order not kept: %v", open)
	}
	done := strings.Split(panel.TaskList(tasks, true, style), "\n")
	if len(done) != 1 || !strings.HasPrefix(done[0], "[x] [two]") {
		t.Fatalf("unexpected completed lines %v", done)
	}
}

func TestTaskListPlaceholder(t *testing.T) {
	p := panel.ForTaskList("ada", nil, panel.Style{})
	if p.Description != panel.EmptyListText {
		t.Fatalf("description %q", p.Description)
	}
	f, ok := p.Field(panel.CompletedFieldName)
	if !ok || f.Value != panel.EmptyListText {
		t.Fatalf("completed field %+v", f)
	}
	if p.Title != "Tasks assigned to **ada**" {
		t.Fatalf("title %q", p.Title)
	}
}

func TestForTask(t *testing.T) {
	tk := domain.Task{
		MessageID:       "9",
		ChannelID:       "c",
		Title:           "Ship it",
		Details:         "today",
		AssigneeIDs:     []string{"1", "2"},
		AssigneeRoleIDs: []string{"7"},
		Status:          domain.StatusCompleted,
	}
	p := panel.ForTask(tk, panel.Style{Color: 0x123456})
	if p.Title != "✅ Ship it" || p.Description != "today" || p.Color != 0x123456 {
		t.Fatalf("unexpected panel %+v", p)
	}
	f, _ := p.Field(panel.AssigneesFieldName)
	if f.Value != "<@1> <@2> <@&7>" {
		t.Fatalf("assignees %q", f.Value)
	}
	if p.Footer() != "Status: completed" {
		t.Fatalf("footer %q", p.Footer())
	}
	if tk.JumpURL() != "https://discord.com/channels/@me/c/9" {
		t.Fatalf("jump url %q", tk.JumpURL())
	}
}

func TestSetMetaReplaces(t *testing.T) {
	p := panel.New("Task", "t", "")
	p.SetMeta("Status", "open")
	p.SetMeta("Owner", "a", "b")
	p.SetMeta("Status", "completed")
	if p.Footer() != "Status: completed\nOwner: a, b" {
		t.Fatalf("footer %q", p.Footer())
	}
}

func TestForTaskListStaysWithinEmbedLimits(t *testing.T) {
	var tasks []domain.Task
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("10000000000000%05d", i)
		tasks = append(tasks, task(id, fmt.Sprintf("finished chore number %d", i), domain.StatusCompleted))
	}
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("20000000000000%05d", i)
		tasks = append(tasks, task(id, fmt.Sprintf("open chore number %d", i), domain.StatusOpen))
	}
	p := panel.ForTaskList("ada", tasks, panel.Style{})

	f, ok := p.Field(panel.CompletedFieldName)
	if !ok {
		t.Fatalf("completed field missing")
	}
	if n := utf8.RuneCountInString(f.Value); n > panel.MaxFieldValueLength {
		t.Fatalf("completed field has %d characters", n)
	}
	lines := strings.Split(f.Value, "\n")
	more := lines[len(lines)-1]
	if want := fmt.Sprintf("*…and %d more*", 40-(len(lines)-1)); more != want {
		t.Fatalf("last line %q, want %q", more, want)
	}
	for _, line := range lines[:len(lines)-1] {
		if !strings.HasPrefix(line, "✅ [finished chore number ") || !strings.HasSuffix(line, ")") {
			t.Fatalf("partial line %q", line)
		}
	}

	if n := utf8.RuneCountInString(p.Description); n > panel.MaxDescriptionLength {
		t.Fatalf("description has %d characters", n)
	}
	if !strings.Contains(p.Description, "more*") {
		t.Fatalf("description not capped: %d characters", utf8.RuneCountInString(p.Description))
	}
}

func TestForTaskListKeepsShortLists(t *testing.T) {
	tasks := []domain.Task{task("1", "one", domain.StatusCompleted), task("2", "two", domain.StatusCompleted)}
	f, _ := panel.ForTaskList("ada", tasks, panel.Style{}).Field(panel.CompletedFieldName)
	if strings.Contains(f.Value, "more") || len(strings.Split(f.Value, "\n")) != 2 {
		t.Fatalf("short list changed: %q", f.Value)
	}
}

func TestForTaskTruncatesLongTitle(t *testing.T) {
	tk := task("9", strings.Repeat("a", 300), domain.StatusOpen)
	p := panel.ForTask(tk, panel.Style{})
	if n := utf8.RuneCountInString(p.Title); n != panel.MaxTitleLength {
		t.Fatalf("title has %d characters", n)
	}
	if !strings.HasPrefix(p.Title, "🔲 aaa") || !strings.HasSuffix(p.Title, "…") {
		t.Fatalf("title %q", p.Title)
	}
}

func TestTruncate(t *testing.T) {
	if got := panel.Truncate("héllo", 5); got != "héllo" {
		t.Fatalf("fits: %q", got)
	}
	if got := panel.Truncate("héllo", 3); got != "hé…" {
		t.Fatalf("cut: %q", got)
	}
}
