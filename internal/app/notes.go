package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/five82/voicesync/internal/voicebrain"
)

// Every operation here replaces the whole note list through the poller, so
// a poll that was in flight cannot overwrite the edit with stale data.

// Search sets the list query and reloads the notes. An empty query lists
// everything.
func (r *Runtime) Search(ctx context.Context, query string) error {
	r.Store.SetQuery(strings.TrimSpace(query))
	return r.Poller.Refresh(ctx)
}

// Note returns one note, preferring a fresh copy from the server.
func (r *Runtime) Note(ctx context.Context, id string) (voicebrain.Note, error) {
	note, err := r.Client.GetNote(ctx, id)
	if err == nil {
		r.applyNote(note)
		return note, nil
	}
	if voicebrain.IsNotFound(err) {
		return voicebrain.Note{}, err
	}
	for _, n := range r.Store.Notes() {
		if n.ID == id {
			r.Logger.Warn("showing cached note", "id", id, "error", err)
			return n, nil
		}
	}
	return voicebrain.Note{}, err
}

// UpdateNote saves changes to a note.
func (r *Runtime) UpdateNote(ctx context.Context, id string, update voicebrain.NoteUpdate) (voicebrain.Note, error) {
	if update.IsEmpty() {
		return voicebrain.Note{}, fmt.Errorf("nothing to update")
	}
	note, err := r.Client.UpdateNote(ctx, id, update)
	if err != nil {
		return voicebrain.Note{}, err
	}
	r.applyNote(note)
	r.Logger.Info("note updated", "id", id)
	return note, nil
}

// AddTag appends tag to the note's tags unless it is already present.
func (r *Runtime) AddTag(ctx context.Context, note voicebrain.Note, tag string) (voicebrain.Note, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return note, fmt.Errorf("tag is empty")
	}
	if slices.Contains(note.Tags, tag) {
		return note, nil
	}
	tags := append(slices.Clone(note.Tags), tag)
	return r.UpdateNote(ctx, note.ID, voicebrain.NoteUpdate{Tags: tags})
}

// DeleteNotes removes notes on the server and from the local list.
func (r *Runtime) DeleteNotes(ctx context.Context, ids ...string) error {
	var err error
	switch len(ids) {
	case 0:
		return nil
	case 1:
		err = r.Client.DeleteNote(ctx, ids[0])
	default:
		err = r.Client.DeleteNotes(ctx, ids)
	}
	if err != nil {
		return err
	}

	notes := slices.DeleteFunc(r.Store.Notes(), func(n voicebrain.Note) bool {
		return slices.Contains(ids, n.ID)
	})
	r.Poller.ReplaceNotes(notes)
	r.Logger.Info("notes deleted", "count", len(ids))
	return nil
}

// applyNote swaps note into the current list if it is listed.
func (r *Runtime) applyNote(note voicebrain.Note) {
	notes := r.Store.Notes()
	idx := slices.IndexFunc(notes, func(n voicebrain.Note) bool { return n.ID == note.ID })
	if idx < 0 {
		return
	}
	notes[idx] = note
	r.Poller.ReplaceNotes(notes)
}
