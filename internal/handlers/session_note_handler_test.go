package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/saeid-a/CounselBack/internal/models"
	"github.com/saeid-a/CounselBack/internal/services"
)

type stubSessionNoteService struct {
	appendResult    *models.SessionNote
	appendErr       error
	listResult      []models.SessionNote
	listErr         error
	uploadRef       string
	uploadErr       error
	signedURL       string
	signedErr       error
	lastAppend      services.AppendNoteInput
	lastAppointment int64
	lastFilename    string
	lastContent     string
	lastIndex       int
}

func (s *stubSessionNoteService) Append(_ context.Context, _ services.Requester, input services.AppendNoteInput) (*models.SessionNote, error) {
	s.lastAppend = input
	return s.appendResult, s.appendErr
}

func (s *stubSessionNoteService) ListForAppointment(_ context.Context, _ services.Requester, appointmentID int64) ([]models.SessionNote, error) {
	s.lastAppointment = appointmentID
	return s.listResult, s.listErr
}

func (s *stubSessionNoteService) UploadAttachment(_ context.Context, _ services.Requester, appointmentID int64, file io.Reader, filename string) (string, error) {
	content, _ := io.ReadAll(file)
	s.lastAppointment = appointmentID
	s.lastFilename = filename
	s.lastContent = string(content)
	return s.uploadRef, s.uploadErr
}

func (s *stubSessionNoteService) AttachmentURL(_ context.Context, _ services.Requester, _ int64, index int) (string, error) {
	s.lastIndex = index
	return s.signedURL, s.signedErr
}

func TestCreateSessionNote(t *testing.T) {
	service := &stubSessionNoteService{appendResult: &models.SessionNote{ID: 1, Notes: "progress"}}
	handler := NewSessionNoteHandler(service, nil)
	app := newAuthedApp("20", "counselor")
	app.Post("/api/session-notes", handler.Create)

	resp := doJSON(t, app, http.MethodPost, "/api/session-notes", `{"appointment":4,"notes":"progress","attachments":["ref-1"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastAppend.AppointmentID != 4 || len(service.lastAppend.Attachments) != 1 {
		t.Fatalf("unexpected append input %+v", service.lastAppend)
	}
}

func TestCreateSessionNoteRequiresNotes(t *testing.T) {
	handler := NewSessionNoteHandler(&stubSessionNoteService{}, nil)
	app := newAuthedApp("20", "counselor")
	app.Post("/api/session-notes", handler.Create)

	resp := doJSON(t, app, http.MethodPost, "/api/session-notes", `{"appointment":4,"notes":"  "}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if got := decodeError(t, resp); got != "Notes are required" {
		t.Fatalf("unexpected error %q", got)
	}
}

func TestListSessionNotesForbidden(t *testing.T) {
	service := &stubSessionNoteService{listErr: services.ErrForbidden}
	handler := NewSessionNoteHandler(service, nil)
	app := newAuthedApp("99", "client")
	app.Get("/api/session-notes/appointment/:id", handler.ListForAppointment)

	resp := doJSON(t, app, http.MethodGet, "/api/session-notes/appointment/4", "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if service.lastAppointment != 4 {
		t.Fatalf("expected appointment 4, got %d", service.lastAppointment)
	}
}

func TestUploadAttachmentMultipart(t *testing.T) {
	service := &stubSessionNoteService{uploadRef: "session-notes/1/a.pdf"}
	handler := NewSessionNoteHandler(service, nil)
	app := newAuthedApp("20", "counselor")
	app.Post("/api/session-notes/attachments", handler.UploadAttachment)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("appointment", "4"); err != nil {
		t.Fatalf("WriteField: %v", err)
	}
	part, err := writer.CreateFormFile("file", "intake.pdf")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte("pdf-bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/session-notes/attachments", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastAppointment != 4 || service.lastFilename != "intake.pdf" || service.lastContent != "pdf-bytes" {
		t.Fatalf("unexpected upload call: %d %q %q", service.lastAppointment, service.lastFilename, service.lastContent)
	}
}

func TestAttachmentURLStorageDisabled(t *testing.T) {
	service := &stubSessionNoteService{signedErr: services.ErrStorageUnavailable}
	handler := NewSessionNoteHandler(service, nil)
	app := newAuthedApp("20", "counselor")
	app.Get("/api/session-notes/:id/attachments/:index", handler.AttachmentURL)

	resp := doJSON(t, app, http.MethodGet, "/api/session-notes/1/attachments/2", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	if service.lastIndex != 2 {
		t.Fatalf("expected index 2, got %d", service.lastIndex)
	}
}
