package command_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"serenote/internal/command"
)

func TestTokenize(t *testing.T) {
	got := command.Tokenize("<@1> <@!22> <@&333> <@x> buy milk")
	want := []command.Token{
		{Kind: command.TokenUserMention, Raw: "<@1>", ID: "1"},
		{Kind: command.TokenUserMention, Raw: "<@!22>", ID: "22"},
		{Kind: command.TokenRoleMention, Raw: "<@&333>", ID: "333"},
		{Kind: command.TokenText, Raw: "<@x>"},
		{Kind: command.TokenText, Raw: "buy"},
		{Kind: command.TokenText, Raw: "milk"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestSplit(t *testing.T) {
	cases := []struct {
		content string
		name    string
		args    string
		ok      bool
	}{
		{"+task Buy milk\nsoon", "task", "Buy milk\nsoon", true},
		{"+TASKS", "tasks", "", true},
		{"+task\n<@1> title", "task", "<@1> title", true},
		{"task nope", "", "", false},
		{"+ task", "", "", false},
		{"+", "", "", false},
	}
	for _, c := range cases {
		name, args, ok := command.Split("+", c.content)
		if name != c.name || args != c.args || ok != c.ok {
			t.Errorf("Split(%q) = %q,%q,%v want %q,%q,%v", c.content, name, args, ok, c.name, c.args, c.ok)
		}
	}
}

func TestParseTaskAssignsAuthorByDefault(t *testing.T) {
	args, err := command.ParseTask("10", "Buy milk")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if args.Title != "Buy milk" || args.Details != "" {
		t.Fatalf("unexpected title/details: %+v", args)
	}
	if !reflect.DeepEqual(args.AssigneeIDs, []string{"10"}) {
		t.Fatalf("expected author assigned, got %v", args.AssigneeIDs)
	}
	if len(args.AssigneeRoleIDs) != 0 {
		t.Fatalf("expected no roles, got %v", args.AssigneeRoleIDs)
	}
}

func TestParseTaskMentionsAndDetails(t *testing.T) {
	args, err := command.ParseTask("10", "<@20> <@&30> <@!21> Fix   the <@40> build\nfirst line\nsecond line")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if args.Title != "Fix the <@40> build" {
		t.Fatalf("title %q", args.Title)
	}
	if args.Details != "first line\nsecond line" {
		t.Fatalf("details %q", args.Details)
	}
	if !reflect.DeepEqual(args.AssigneeIDs, []string{"10", "20", "21"}) {
		t.Fatalf("users %v", args.AssigneeIDs)
	}
	if !reflect.DeepEqual(args.AssigneeRoleIDs, []string{"30"}) {
		t.Fatalf("roles %v", args.AssigneeRoleIDs)
	}
}

func TestParseTaskSelfMentionTogglesOnce(t *testing.T) {
	args, err := command.ParseTask("10", "<@10> <@20> Review")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(args.AssigneeIDs, []string{"20"}) {
		t.Fatalf("expected author toggled off, got %v", args.AssigneeIDs)
	}

	// a second self-mention is an ordinary mention again
	args, err = command.ParseTask("10", "<@!10> <@10> Review")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(args.AssigneeIDs, []string{"10"}) {
		t.Fatalf("expected author re-added, got %v", args.AssigneeIDs)
	}
}

func TestParseTaskDuplicateMentionsCollapse(t *testing.T) {
	args, err := command.ParseTask("10", "<@20> <@!20> <@&5> <@&5> Ship")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(args.AssigneeIDs, []string{"10", "20"}) {
		t.Fatalf("users %v", args.AssigneeIDs)
	}
	if !reflect.DeepEqual(args.AssigneeRoleIDs, []string{"5"}) {
		t.Fatalf("roles %v", args.AssigneeRoleIDs)
	}
}

func TestParseTaskEmptyTitle(t *testing.T) {
	for _, input := range []string{"", "   ", "<@20>", "<@10> <@&3>\ndetails only"} {
		if _, err := command.ParseTask("10", input); !errors.Is(err, command.ErrMissingArgument) {
			t.Errorf("ParseTask(%q) err = %v, want ErrMissingArgument", input, err)
		}
	}
}

func TestParseTaskBlankDetailsDropped(t *testing.T) {
	args, err := command.ParseTask("10", "Title\n  \n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if args.Details != "" {
		t.Fatalf("expected no details, got %q", args.Details)
	}
}

func TestTokenizeMentionWithTrailingPunctuation(t *testing.T) {
	got := command.Tokenize("<@1>, <@&2>: <@3>x <@4>>")
	want := []command.Token{
		{Kind: command.TokenUserMention, Raw: "<@1>,", ID: "1"},
		{Kind: command.TokenRoleMention, Raw: "<@&2>:", ID: "2"},
		{Kind: command.TokenText, Raw: "<@3>x"},
		{Kind: command.TokenText, Raw: "<@4>>"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestParseTaskCommaSeparatedMentions(t *testing.T) {
	args, err := command.ParseTask("10", "<@1>, <@2> Ship")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(args.AssigneeIDs, []string{"10", "1", "2"}) || args.Title != "Ship" {
		t.Fatalf("unexpected args %+v", args)
	}
}

func TestParseTaskTitleTooLong(t *testing.T) {
	if _, err := command.ParseTask("10", strings.Repeat("é", command.MaxTitleLength)); err != nil {
		t.Fatalf("title at the limit rejected: %v", err)
	}
	_, err := command.ParseTask("10", strings.Repeat("a", 300)+"\ndetails")
	if !errors.Is(err, command.ErrTitleTooLong) {
		t.Fatalf("expected ErrTitleTooLong, got %v", err)
	}
}
