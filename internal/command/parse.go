package command

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrMissingArgument means the command lacks a required argument (the task title).
var ErrMissingArgument = errors.New("missing required argument")

// ErrTitleTooLong means the task title would not fit a panel title.
var ErrTitleTooLong = errors.New("task name is too long")

// MaxTitleLength leaves room for the status icon within Discord's 256 character title.
const MaxTitleLength = 250

const TaskUsage = "+task [<assignees>] <name>\n[<details>]"

// TaskArgs is the parsed form of a task command.
type TaskArgs struct {
	Title           string
	Details         string
	AssigneeIDs     []string
	AssigneeRoleIDs []string
}

// Split recognizes "<prefix><name> <args>" and returns the lowercased name and the
// raw argument text with its line breaks intact.
func Split(prefix, content string) (string, string, bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", "", false
	}
	rest := content[len(prefix):]
	end := strings.IndexFunc(rest, unicode.IsSpace)
	if end == 0 {
		return "", "", false
	}
	if end < 0 {
		return strings.ToLower(rest), "", rest != ""
	}
	name := strings.ToLower(rest[:end])
	args := strings.TrimLeftFunc(rest[end:], unicode.IsSpace)
	return name, args, true
}

// ParseTask parses the argument text of a task command.
//
// Leading mentions on the first line are assignees; the first text word starts the
// title. The author is assigned unless they mention themselves, which toggles them
// off once. Later lines are details.
func ParseTask(authorID, input string) (TaskArgs, error) {
	lines := strings.Split(input, "\n")
	users, roles, rest := leadingAssignees(authorID, Tokenize(lines[0]))
	args := TaskArgs{
		AssigneeIDs:     users,
		AssigneeRoleIDs: roles,
	}
	words := make([]string, 0, len(rest))
	for _, tok := range rest {
		words = append(words, tok.Raw)
	}
	args.Title = strings.Join(words, " ")
	if args.Title == "" {
		return TaskArgs{}, ErrMissingArgument
	}
	if n := utf8.RuneCountInString(args.Title); n > MaxTitleLength {
		return TaskArgs{}, fmt.Errorf("%w (%d characters, at most %d)", ErrTitleTooLong, n, MaxTitleLength)
	}
	if len(lines) > 1 {
		details := strings.Join(lines[1:], "\n")
		if strings.TrimSpace(details) != "" {
			args.Details = strings.TrimRight(details, "\r\n")
		}
	}
	return args, nil
}

func leadingAssignees(authorID string, tokens []Token) ([]string, []string, []Token) {
	users := []string{authorID}
	var roles []string
	toggled := false
	i := 0
loop:
	for ; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Kind {
		case TokenUserMention:
			if tok.ID == authorID && !toggled {
				users = remove(users, authorID)
				toggled = true
				continue
			}
			users = appendUnique(users, tok.ID)
		case TokenRoleMention:
			roles = appendUnique(roles, tok.ID)
		default:
			break loop
		}
	}
	return users, roles, tokens[i:]
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
