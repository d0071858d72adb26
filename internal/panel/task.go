package panel

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"serenote/internal/command"
	"serenote/internal/domain"
)

const (
	EmptyListText       = "> *You don't have any tasks, make some!*"
	CompletedFieldName  = "Completed Tasks"
	AssigneesFieldName  = "Assignees"
	defaultOpenIcon     = "🔲"
	defaultCompleteIcon = "✅"
)

// Discord embed limits, counted in characters.
const (
	MaxTitleLength       = 256
	MaxDescriptionLength = 4096
	MaxFieldValueLength  = 1024
)

// Style carries the configurable look of task panels.
type Style struct {
	Color         int
	TaskIconURL   string
	OpenIcon      string
	CompletedIcon string
}

func (s Style) icon(status domain.Status) string {
	if status == domain.StatusCompleted {
		if s.CompletedIcon != "" {
			return s.CompletedIcon
		}
		return defaultCompleteIcon
	}
	if s.OpenIcon != "" {
		return s.OpenIcon
	}
	return defaultOpenIcon
}

func (s Style) color() int {
	if s.Color == 0 {
		return Blurple
	}
	return s.Color
}

// ForTask renders the backing message of a task.
func ForTask(t domain.Task, s Style) Panel {
	p := New("Task", Truncate(fmt.Sprintf("%s %s", s.icon(t.Status), t.Title), MaxTitleLength), Truncate(t.Details, MaxDescriptionLength))
	p.TypeIconURL = s.TaskIconURL
	p.Color = s.color()
	p.AddField(AssigneesFieldName, Truncate(assigneeMentions(t), MaxFieldValueLength), false)
	p.SetMeta("Status", string(t.Status))
	return p
}

func assigneeMentions(t domain.Task) string {
	var parts []string
	for _, id := range t.AssigneeIDs {
		parts = append(parts, command.UserMention(id))
	}
	for _, id := range t.AssigneeRoleIDs {
		parts = append(parts, command.RoleMention(id))
	}
	if len(parts) == 0 {
		return "*Nobody*"
	}
	return strings.Join(parts, " ")
}

// TaskLine renders one task as a list entry linking back to its message.
func TaskLine(t domain.Task, s Style) string {
	return fmt.Sprintf("%s [%s](%s)", s.icon(t.Status), t.Title, t.JumpURL())
}

// TaskList renders the tasks whose completion matches completed, one per line,
// or the placeholder when none match.
func TaskList(tasks []domain.Task, completed bool, s Style) string {
	return capLines(taskLines(tasks, completed, s), -1)
}

func taskLines(tasks []domain.Task, completed bool, s Style) []string {
	var lines []string
	for _, t := range tasks {
		if t.Completed() != completed {
			continue
		}
		lines = append(lines, TaskLine(t, s))
	}
	return lines
}

// capLines joins whole lines until limit characters, replacing the rest with a
// count of what was left out. A negative limit keeps every line.
func capLines(lines []string, limit int) string {
	if len(lines) == 0 {
		return EmptyListText
	}
	out := strings.Join(lines, "\n")
	if limit < 0 || utf8.RuneCountInString(out) <= limit {
		return out
	}
	kept := make([]string, 0, len(lines))
	used := 0
	for _, line := range lines {
		n := utf8.RuneCountInString(line)
		if len(kept) > 0 {
			n++
		}
		if used+n > limit {
			break
		}
		kept = append(kept, line)
		used += n
	}
	for {
		note := fmt.Sprintf("*…and %d more*", len(lines)-len(kept))
		if len(kept) == 0 {
			return Truncate(note, limit)
		}
		if used+1+utf8.RuneCountInString(note) <= limit {
			return strings.Join(kept, "\n") + "\n" + note
		}
		last := kept[len(kept)-1]
		kept = kept[:len(kept)-1]
		used -= utf8.RuneCountInString(last)
		if len(kept) > 0 {
			used--
		}
	}
}

// Truncate shortens s to at most limit characters, ending it with an ellipsis when cut.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}

// ForTaskList renders the "tasks" command reply: open tasks in the description and
// completed tasks in a field, each cut to whole lines within the embed limits.
func ForTaskList(userName string, tasks []domain.Task, s Style) Panel {
	title := Truncate(fmt.Sprintf("Tasks assigned to **%s**", userName), MaxTitleLength)
	p := New("Tasks", title, capLines(taskLines(tasks, false, s), MaxDescriptionLength))
	p.Color = s.color()
	p.AddField(CompletedFieldName, capLines(taskLines(tasks, true, s), MaxFieldValueLength), false)
	return p
}

// Help renders the usage panel.
func Help(prefix, completeEmoji, deleteEmoji string, s Style) Panel {
	usage := strings.ReplaceAll(command.TaskUsage, "+", prefix)
	p := New("Help", "Serenote", "Create and track tasks in this channel.")
	p.Color = s.color()
	p.AddField("Create a task", "```\n"+usage+"\n```", false)
	p.AddField("List your tasks", fmt.Sprintf("`%stasks`", prefix), false)
	p.AddField("Reactions", fmt.Sprintf("React with %s to complete a task and remove it to reopen. React with %s to delete a task you created or are assigned to.", completeEmoji, deleteEmoji), false)
	return p
}
