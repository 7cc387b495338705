package editor

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/khoahotran/profile-editor/internal/domain/profile"
)

var (
	ErrOutOfRange    = errors.New("project index out of range")
	ErrEntryNotFound = errors.New("project entry not found")
)

// Entry is one project block. ID is stable for the entry's lifetime; the
// positional key is always its current index in the list.
type Entry struct {
	ID      uuid.UUID
	Project profile.Project
}

// ProjectList is the ordered set of project blocks on the edit form.
type ProjectList struct {
	entries []Entry
}

func NewProjectList(projects ...profile.Project) *ProjectList {
	l := &ProjectList{}
	for _, p := range projects {
		l.Append(p)
	}
	return l
}

func (l *ProjectList) Len() int { return len(l.entries) }

// Append adds p at the end. Its positional key is the length before insertion.
func (l *ProjectList) Append(p profile.Project) Entry {
	e := Entry{ID: uuid.New(), Project: p}
	l.entries = append(l.entries, e)
	return e
}

func (l *ProjectList) Get(index int) (Entry, error) {
	if index < 0 || index >= len(l.entries) {
		return Entry{}, fmt.Errorf("get %d of %d: %w", index, len(l.entries), ErrOutOfRange)
	}
	return l.entries[index], nil
}

func (l *ProjectList) Set(index int, p profile.Project) error {
	if index < 0 || index >= len(l.entries) {
		return fmt.Errorf("set %d of %d: %w", index, len(l.entries), ErrOutOfRange)
	}
	l.entries[index].Project = p
	return nil
}

// RemoveAt deletes the entry at index. Later entries shift down by one, so
// keys stay 0..Len()-1 without gaps.
func (l *ProjectList) RemoveAt(index int) (Entry, error) {
	if index < 0 || index >= len(l.entries) {
		return Entry{}, fmt.Errorf("remove %d of %d: %w", index, len(l.entries), ErrOutOfRange)
	}
	removed := l.entries[index]
	l.entries = append(l.entries[:index], l.entries[index+1:]...)
	return removed, nil
}

// Remove deletes the entry with the given stable id.
func (l *ProjectList) Remove(id uuid.UUID) (int, error) {
	index := l.IndexOf(id)
	if index < 0 {
		return -1, fmt.Errorf("remove %s: %w", id, ErrEntryNotFound)
	}
	_, err := l.RemoveAt(index)
	return index, err
}

func (l *ProjectList) IndexOf(id uuid.UUID) int {
	for i, e := range l.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Entries returns a copy in order.
func (l *ProjectList) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *ProjectList) Projects() []profile.Project {
	out := make([]profile.Project, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Project
	}
	return out
}

// Positional field identifiers of a project block.
const (
	ProjectFieldTitle       = "title"
	ProjectFieldDescription = "description"
	ProjectFieldURL         = "url"
)

var projectFields = []string{ProjectFieldTitle, ProjectFieldDescription, ProjectFieldURL}

func BlockID(index int) string { return fmt.Sprintf("project-%d", index) }

func ProjectFieldID(field string, index int) string {
	return fmt.Sprintf("project-%s-%d", field, index)
}

// ProjectEntryKey names the hidden input that carries the entry id of block
// index, so posted values can follow the entry rather than its position.
func ProjectEntryKey(index int) string { return fmt.Sprintf("project-id-%d", index) }

// ParseProjectFieldID is the inverse of ProjectFieldID.
func ParseProjectFieldID(id string) (field string, index int, ok bool) {
	for _, f := range projectFields {
		var i int
		prefix := "project-" + f + "-"
		if len(id) <= len(prefix) || id[:len(prefix)] != prefix {
			continue
		}
		if _, err := fmt.Sscanf(id[len(prefix):], "%d", &i); err != nil || i < 0 || ProjectFieldID(f, i) != id {
			return "", 0, false
		}
		return f, i, true
	}
	return "", 0, false
}
