package notify

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const shortIDLen = 7

// Commit is a commit of a push event.
type Commit struct {
	ID      string
	Message string
	URL     string
}

// Message is a plain-text notification mail.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// ShortID returns the first 7 characters of id.
// Shorter ids are returned unchanged.
func ShortID(id string) string {
	if utf8.RuneCountInString(id) <= shortIDLen {
		return id
	}

	return string([]rune(id)[:shortIDLen])
}

// Subject returns the subject of a notification about commits pushed by
// pusher to repository.
func Subject(repository, pusher string) string {
	return fmt.Sprintf("[%s] New commit(s) by %s", repository, pusher)
}

// Body returns the text of a notification.
// It contains one block per commit, in the order of commits.
func Body(commits []*Commit, repository, pusher string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "User %s pushed to %s:\n\n", pusher, repository)

	for _, c := range commits {
		fmt.Fprintf(&sb, "- [%s] %s\n  %s\n\n", ShortID(c.ID), c.Message, c.URL)
	}

	return sb.String()
}
