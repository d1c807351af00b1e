package state

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/five82/voicesync/internal/voicebrain"
)

func TestStore_ReplaceNotesAndSnapshotClone(t *testing.T) {
	var s Store

	notes := []voicebrain.Note{{ID: "a", Tags: []string{"x"}}, {ID: "b"}}

	before := time.Now()
	s.ReplaceNotes(notes)

	snap := s.Snapshot()
	if len(snap.Notes) != 2 || snap.Notes[0].ID != "a" {
		t.Fatalf("snapshot notes = %#v, want 2 notes", snap.Notes)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError != nil {
		t.Fatalf("LastError = %v, want nil", snap.LastError)
	}

	// Returned snapshot should be independent of the stored one.
	snap.Notes[0].ID = "zzz"
	snap.Notes[0].Tags[0] = "y"
	snap2 := s.Snapshot()
	if snap2.Notes[0].ID != "a" || snap2.Notes[0].Tags[0] != "x" {
		t.Fatalf("Snapshot should clone notes; got %#v", snap2.Notes[0])
	}

	// The caller's slice is not retained either.
	notes[1].ID = "changed"
	if s.Notes()[1].ID != "b" {
		t.Fatalf("store kept caller slice")
	}
}

func TestStore_RecordErrorKeepsPreviousData(t *testing.T) {
	var s Store

	s.ReplaceNotes([]voicebrain.Note{{ID: "a"}})

	before := time.Now()
	origErr := errors.New("boom")
	s.RecordError(origErr)

	snap := s.Snapshot()
	if len(snap.Notes) != 1 || snap.Notes[0].ID != "a" {
		t.Fatalf("notes changed on error: got %#v", snap.Notes)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	if s.Snapshot().IsStale() {
		t.Fatal("IsStale() = true, want false with 0 failures")
	}

	for i := 1; i <= 3; i++ {
		s.RecordError(fmt.Errorf("fail %d", i))
		snap := s.Snapshot()
		if snap.ConsecutiveFailures != i {
			t.Fatalf("ConsecutiveFailures = %d, want %d", snap.ConsecutiveFailures, i)
		}
		if want := i >= 2; snap.IsStale() != want {
			t.Fatalf("IsStale() = %v, want %v with %d failures", snap.IsStale(), want, i)
		}
	}

	s.MarkFresh()
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 0 || snap.IsStale() {
		t.Fatalf("after MarkFresh failures = %d, want 0", snap.ConsecutiveFailures)
	}

	s.RecordError(errors.New("again"))
	s.ReplaceNotes(nil)
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 0 {
		t.Fatalf("ConsecutiveFailures = %d, want 0 after success", snap.ConsecutiveFailures)
	}
}

func TestStore_PatchAndRemoveNotes(t *testing.T) {
	var s Store
	s.ReplaceNotes([]voicebrain.Note{{ID: "a", Title: "old"}, {ID: "b"}, {ID: "c"}})

	if !s.PatchNote(voicebrain.Note{ID: "a", Title: "new"}) {
		t.Fatalf("PatchNote(a) = false, want true")
	}
	if s.PatchNote(voicebrain.Note{ID: "missing"}) {
		t.Fatalf("PatchNote(missing) = true, want false")
	}
	s.RemoveNotes("b", "c")

	notes := s.Notes()
	if len(notes) != 1 || notes[0].Title != "new" {
		t.Fatalf("notes = %#v, want only patched a", notes)
	}
}

func TestStore_NoticesAreBounded(t *testing.T) {
	var s Store
	for i := 0; i < maxNotices+3; i++ {
		s.Notify(NoticeInfo, fmt.Sprintf("n%d", i))
	}
	s.Notify(NoticeError, "last")

	snap := s.Snapshot()
	if len(snap.Notices) != maxNotices {
		t.Fatalf("len(Notices) = %d, want %d", len(snap.Notices), maxNotices)
	}
	latest, ok := snap.LatestNotice()
	if !ok || latest.Message != "last" || latest.Level != NoticeError {
		t.Fatalf("LatestNotice = %#v, want error 'last'", latest)
	}
}

func TestStore_StatusFields(t *testing.T) {
	var s Store

	if s.Snapshot().Offline {
		t.Fatalf("zero Store reports offline")
	}
	s.SetConnectivity(false, true)
	s.SetPending(3)
	s.SetSyncing(true)
	s.SetUploadProgress(true, 140)
	s.SetPollState(true, 4500*time.Millisecond)
	s.SetUser(voicebrain.User{Tier: "pro"})
	s.SetQuery("milk")

	snap := s.Snapshot()
	if !snap.Offline || !snap.WorkOffline {
		t.Fatalf("Offline/WorkOffline = %v/%v, want true/true", snap.Offline, snap.WorkOffline)
	}
	if snap.PendingCount != 3 || !snap.Syncing {
		t.Fatalf("pending/syncing = %d/%v, want 3/true", snap.PendingCount, snap.Syncing)
	}
	if !snap.Uploading || snap.UploadProgress != 100 {
		t.Fatalf("upload = %v/%d, want true/100", snap.Uploading, snap.UploadProgress)
	}
	if !snap.Polling || snap.PollDelay != 4500*time.Millisecond {
		t.Fatalf("poll = %v/%v, want true/4.5s", snap.Polling, snap.PollDelay)
	}
	if !snap.HasUser || snap.Query != "milk" {
		t.Fatalf("user/query = %v/%q", snap.HasUser, snap.Query)
	}
}

func TestSnapshot_ActiveCount(t *testing.T) {
	snap := Snapshot{Notes: []voicebrain.Note{
		{Status: voicebrain.StatusPending},
		{Status: voicebrain.StatusProcessing},
		{Status: voicebrain.StatusCompleted},
		{},
	}}
	if got := snap.ActiveCount(); got != 2 {
		t.Fatalf("ActiveCount = %d, want 2", got)
	}
}

func TestStore_ConcurrentReadersNeverSeeTornList(t *testing.T) {
	var s Store
	listA := []voicebrain.Note{{ID: "a1"}, {ID: "a2"}}
	listB := []voicebrain.Note{{ID: "b1"}, {ID: "b2"}, {ID: "b3"}}
	s.ReplaceNotes(listA)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if i%2 == 0 {
				s.ReplaceNotes(listB)
			} else {
				s.ReplaceNotes(listA)
			}
		}
		close(stop)
	}()

	for {
		select {
		case <-stop:
			wg.Wait()
			return
		default:
		}
		notes := s.Notes()
		switch len(notes) {
		case 2:
			if notes[0].ID != "a1" || notes[1].ID != "a2" {
				t.Fatalf("torn list: %#v", notes)
			}
		case 3:
			if notes[0].ID != "b1" || notes[2].ID != "b3" {
				t.Fatalf("torn list: %#v", notes)
			}
		default:
			t.Fatalf("unexpected list: %#v", notes)
		}
	}
}
