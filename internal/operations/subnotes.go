package operations

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"aitasks/backend"
)

// AddSubNote returns a patch that appends a sub-note to task. Orders are
// renumbered from zero.
func AddSubNote(task backend.Task, content string, kind backend.SubNoteKind, now time.Time) (backend.TaskPatch, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return backend.TaskPatch{}, fmt.Errorf("sub-note content cannot be empty")
	}
	if kind == "" {
		kind = backend.SubNoteChecklist
	}

	notes := orderedSubNotes(task.SubNotes)
	notes = append(notes, backend.SubNote{
		ID:      fmt.Sprintf("note-%d-%d", now.UnixMilli(), len(notes)),
		Content: content,
		Kind:    kind,
	})
	renumber(notes)
	return backend.TaskPatch{SubNotes: &notes}, nil
}

// ToggleSubNote returns a patch flipping the completion of the sub-note
// referenced by ref: its id or its 1-based position.
func ToggleSubNote(task backend.Task, ref string) (backend.TaskPatch, error) {
	notes := orderedSubNotes(task.SubNotes)
	idx := findSubNote(notes, ref)
	if idx < 0 {
		return backend.TaskPatch{}, fmt.Errorf("no sub-note '%s' on task '%s'", ref, task.Title)
	}
	notes[idx].Completed = !notes[idx].Completed
	renumber(notes)
	return backend.TaskPatch{SubNotes: &notes}, nil
}

// RemoveSubNote returns a patch without the referenced sub-note.
func RemoveSubNote(task backend.Task, ref string) (backend.TaskPatch, error) {
	notes := orderedSubNotes(task.SubNotes)
	idx := findSubNote(notes, ref)
	if idx < 0 {
		return backend.TaskPatch{}, fmt.Errorf("no sub-note '%s' on task '%s'", ref, task.Title)
	}
	notes = append(notes[:idx], notes[idx+1:]...)
	renumber(notes)
	return backend.TaskPatch{SubNotes: &notes}, nil
}

// SubNoteProgress returns completed and total sub-note counts.
func SubNoteProgress(task backend.Task) (done, total int) {
	for _, n := range task.SubNotes {
		if n.Completed {
			done++
		}
	}
	return done, len(task.SubNotes)
}

func orderedSubNotes(in []backend.SubNote) []backend.SubNote {
	notes := make([]backend.SubNote, len(in))
	copy(notes, in)
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].Order < notes[j].Order })
	return notes
}

func findSubNote(notes []backend.SubNote, ref string) int {
	ref = strings.TrimSpace(ref)
	for i, n := range notes {
		if n.ID == ref {
			return i
		}
	}
	if pos, err := strconv.Atoi(ref); err == nil && pos >= 1 && pos <= len(notes) {
		return pos - 1
	}
	return -1
}

func renumber(notes []backend.SubNote) {
	for i := range notes {
		notes[i].Order = i
	}
}
