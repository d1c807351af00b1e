package voicebrain

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := NewClient(server.URL, "secret")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != defaultBaseURL {
		t.Fatalf("url = %q, want %q", u.String(), defaultBaseURL)
	}

	u, err = parseBaseURL("example.com:8000/api/?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "https" {
		t.Fatalf("scheme = %q, want https", u.Scheme)
	}
	if u.Path != "/api" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}

	if _, err := parseBaseURL("http://"); err == nil {
		t.Fatalf("expected error for missing host")
	}
}

func TestClient_ListNotesSendsAuthAndQuery(t *testing.T) {
	t.Parallel()

	var gotAuth, gotQuery, gotPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("q")
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode([]Note{{ID: "n1", Status: StatusProcessing}, {ID: "n2"}})
	}))

	notes, err := c.ListNotes(testContext(t), "  groceries ")
	if err != nil {
		t.Fatalf("ListNotes returned error: %v", err)
	}
	if len(notes) != 2 || notes[0].ID != "n1" {
		t.Fatalf("notes = %#v, want n1,n2", notes)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("Authorization = %q, want Bearer secret", gotAuth)
	}
	if gotQuery != "groceries" {
		t.Fatalf("q = %q, want groceries", gotQuery)
	}
	if gotPath != "/notes" {
		t.Fatalf("path = %q, want /notes", gotPath)
	}
}

func TestClient_KeepsBasePathPrefix(t *testing.T) {
	t.Parallel()

	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(User{Email: "a@b.c"})
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL+"/api/", "")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if _, err := c.FetchUser(testContext(t)); err != nil {
		t.Fatalf("FetchUser returned error: %v", err)
	}
	if gotPath != "/api/auth/me" {
		t.Fatalf("path = %q, want /api/auth/me", gotPath)
	}
}

func TestClient_NoteMutations(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var calls []string
	var updateBody map[string]any
	var batchBody struct {
		NoteIDs []string `json:"note_ids"`
	}

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/notes/n1":
			_ = json.NewDecoder(r.Body).Decode(&updateBody)
			_ = json.NewEncoder(w).Encode(Note{ID: "n1", Title: "New"})
		case r.Method == http.MethodGet && r.URL.Path == "/notes/n1":
			_ = json.NewEncoder(w).Encode(Note{ID: "n1", Title: "Old"})
		case r.Method == http.MethodDelete && r.URL.Path == "/notes/n1":
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPost && r.URL.Path == "/notes/batch/delete":
			_ = json.NewDecoder(r.Body).Decode(&batchBody)
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	ctx := testContext(t)

	note, err := c.GetNote(ctx, "n1")
	if err != nil || note.Title != "Old" {
		t.Fatalf("GetNote = %#v, %v; want Old", note, err)
	}

	title := "New"
	updated, err := c.UpdateNote(ctx, "n1", NoteUpdate{Title: &title, Tags: []string{"x"}})
	if err != nil {
		t.Fatalf("UpdateNote returned error: %v", err)
	}
	if updated.Title != "New" {
		t.Fatalf("updated title = %q, want New", updated.Title)
	}
	if updateBody["title"] != "New" {
		t.Fatalf("update body = %#v, want title New", updateBody)
	}
	if _, ok := updateBody["summary"]; ok {
		t.Fatalf("update body carries untouched summary: %#v", updateBody)
	}

	if err := c.DeleteNote(ctx, "n1"); err != nil {
		t.Fatalf("DeleteNote returned error: %v", err)
	}
	if err := c.DeleteNotes(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("DeleteNotes returned error: %v", err)
	}
	if strings.Join(batchBody.NoteIDs, ",") != "a,b" {
		t.Fatalf("batch ids = %v, want [a b]", batchBody.NoteIDs)
	}

	if _, err := c.UpdateNote(ctx, "n1", NoteUpdate{}); err == nil {
		t.Fatalf("expected error for empty update")
	}
	if err := c.DeleteNote(ctx, " "); err == nil {
		t.Fatalf("expected error for blank id")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 4 {
		t.Fatalf("calls = %v, want 4 requests", calls)
	}
}

func TestClient_ServerErrorCarriesDetail(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Note not found"}`)
	}))

	_, err := c.GetNote(testContext(t), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsNotFound(err) {
		t.Fatalf("IsNotFound(%v) = false, want true", err)
	}
	if !strings.Contains(err.Error(), "Note not found") {
		t.Fatalf("error = %q, want detail", err.Error())
	}
}

func TestClient_TransportFailureIsNetworkError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c, err := NewClient(url, "")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = c.ListNotes(testContext(t), "")
	if !IsNetwork(err) {
		t.Fatalf("IsNetwork(%v) = false, want true", err)
	}
}

func TestReadDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "string detail", body: `{"detail":"Limit reached"}`, want: "Limit reached"},
		{name: "structured detail", body: `{"detail":[{"msg":"bad"}]}`, want: `[{"msg":"bad"}]`},
		{name: "plain text", body: "gateway timeout\n", want: "gateway timeout"},
		{name: "empty", body: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := readDetail(strings.NewReader(tt.body)); got != tt.want {
				t.Fatalf("readDetail = %q, want %q", got, tt.want)
			}
		})
	}
}
