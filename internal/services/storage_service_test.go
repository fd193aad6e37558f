package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestAttachmentStorage(t *testing.T, handler http.HandlerFunc) (*SupabaseAttachmentStorage, *int) {
	t.Helper()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if got := r.Header.Get("Authorization"); got != "Bearer service-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	storage := NewSupabaseAttachmentStorage(server.URL+"/", "notes", "service-key")
	storage.newName = func() string { return "obj-1" }
	return storage, &calls
}

func TestSupabaseUploadWritesIntoAppointmentFolder(t *testing.T) {
	var gotPath, gotBody string
	storage, _ := newTestAttachmentStorage(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	})

	ref, err := storage.Upload(context.Background(), 42, strings.NewReader("pdf-bytes"), "Intake Form.PDF")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if ref != "session-notes/42/obj-1.pdf" {
		t.Fatalf("unexpected reference %q", ref)
	}
	if gotPath != "/storage/v1/object/notes/session-notes/42/obj-1.pdf" {
		t.Fatalf("unexpected upload path %q", gotPath)
	}
	if gotBody != "pdf-bytes" {
		t.Fatalf("unexpected body %q", gotBody)
	}
}

func TestSupabaseUploadReportsStatus(t *testing.T) {
	storage, _ := newTestAttachmentStorage(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bucket missing", http.StatusNotFound)
	})

	_, err := storage.Upload(context.Background(), 42, strings.NewReader("x"), "a.txt")
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestSupabaseSignedURL(t *testing.T) {
	var gotPath string
	storage, calls := newTestAttachmentStorage(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"signedURL":"/object/sign/notes/session-notes/42/obj-1.pdf?token=t"}`)
	})
	ctx := context.Background()

	signed, err := storage.SignedURL(ctx, 42, "session-notes/42/obj-1.pdf")
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}
	if gotPath != "/storage/v1/object/sign/notes/session-notes/42/obj-1.pdf" {
		t.Fatalf("unexpected sign path %q", gotPath)
	}
	if !strings.HasSuffix(signed, "/storage/v1/object/sign/notes/session-notes/42/obj-1.pdf?token=t") {
		t.Fatalf("unexpected signed url %q", signed)
	}

	for _, ref := range []string{
		"session-notes/7/obj-1.pdf",
		"session-notes/42/../7/obj-1.pdf",
		"https://example.com/storage/v1/object/public/notes/session-notes/42/obj-1.pdf",
	} {
		if _, err := storage.SignedURL(ctx, 42, ref); !errors.Is(err, errForeignAttachment) {
			t.Fatalf("%q: expected errForeignAttachment, got %v", ref, err)
		}
	}
	if *calls != 1 {
		t.Fatalf("foreign references must not reach storage, got %d calls", *calls)
	}
}

func TestAttachmentAppointment(t *testing.T) {
	tests := []struct {
		ref    string
		wantID int64
		wantOK bool
	}{
		{ref: "session-notes/3/a.pdf", wantID: 3, wantOK: true},
		{ref: "session-notes/3/", wantOK: false},
		{ref: "session-notes/3/..", wantOK: false},
		{ref: "session-notes/-3/a.pdf", wantOK: false},
		{ref: "session-notes/+3/a.pdf", wantOK: false},
		{ref: "session-notes/3/a.pdf?x=1", wantOK: false},
		{ref: "session-notes/3/sub/a.pdf", wantOK: false},
		{ref: "/session-notes/3/a.pdf", wantOK: false},
	}

	for _, tt := range tests {
		id, ok := attachmentAppointment(tt.ref)
		if ok != tt.wantOK || id != tt.wantID {
			t.Fatalf("%q: got (%d, %t), want (%d, %t)", tt.ref, id, ok, tt.wantID, tt.wantOK)
		}
	}
}
