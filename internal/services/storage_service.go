package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// attachmentRoot is the bucket folder holding one sub-folder per appointment.
// A reference is the object key "session-notes/<appointment id>/<object>".
const attachmentRoot = "session-notes"

const (
	signedURLTTLSeconds = 3600
	maxErrorBodyBytes   = 2048
)

var errForeignAttachment = errors.New("attachment is outside the appointment folder")

// AttachmentStorage keeps session-note files. Upload returns the reference
// stored on the note; SignedURL exchanges it for a short-lived link.
type AttachmentStorage interface {
	Upload(ctx context.Context, appointmentID int64, file io.Reader, filename string) (string, error)
	SignedURL(ctx context.Context, appointmentID int64, ref string) (string, error)
}

func attachmentFolder(appointmentID int64) string {
	return attachmentRoot + "/" + strconv.FormatInt(appointmentID, 10)
}

// attachmentAppointment returns the appointment id encoded in ref. Only
// keys of exactly the form written by Upload are accepted.
func attachmentAppointment(ref string) (int64, bool) {
	parts := strings.Split(ref, "/")
	if len(parts) != 3 || parts[0] != attachmentRoot {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 || strconv.FormatInt(id, 10) != parts[1] {
		return 0, false
	}
	name := parts[2]
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `\?#%`) {
		return 0, false
	}
	return id, true
}

func attachmentBelongsTo(ref string, appointmentID int64) bool {
	id, ok := attachmentAppointment(ref)
	return ok && id == appointmentID
}

// SupabaseAttachmentStorage talks to Supabase Storage over its REST API.
// Objects are private and only reachable through signed URLs.
type SupabaseAttachmentStorage struct {
	baseURL    string
	bucket     string
	serviceKey string
	httpClient *http.Client
	newName    func() string
}

func NewSupabaseAttachmentStorage(baseURL, bucket, serviceKey string) *SupabaseAttachmentStorage {
	return &SupabaseAttachmentStorage{
		baseURL:    strings.TrimRight(baseURL, "/"),
		bucket:     bucket,
		serviceKey: serviceKey,
		httpClient: http.DefaultClient,
		newName:    uuid.NewString,
	}
}

// Upload stores the file under the appointment's folder with a generated
// name; only the original extension is kept.
func (s *SupabaseAttachmentStorage) Upload(ctx context.Context, appointmentID int64, file io.Reader, filename string) (string, error) {
	if appointmentID <= 0 {
		return "", fmt.Errorf("%w: appointment is required", ErrInvalidInput)
	}
	ref := attachmentFolder(appointmentID) + "/" + s.newName() + strings.ToLower(filepath.Ext(filename))

	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("read attachment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL("object", ref), bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", http.DetectContentType(content))

	resp, err := s.do(req)
	if err != nil {
		return "", fmt.Errorf("upload attachment %s: %w", ref, err)
	}
	resp.Body.Close()
	return ref, nil
}

// SignedURL signs ref after checking it lives in the appointment's folder.
func (s *SupabaseAttachmentStorage) SignedURL(ctx context.Context, appointmentID int64, ref string) (string, error) {
	if !attachmentBelongsTo(ref, appointmentID) {
		return "", errForeignAttachment
	}

	body, err := json.Marshal(map[string]int{"expiresIn": signedURLTTLSeconds})
	if err != nil {
		return "", fmt.Errorf("marshal signed url payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL("object/sign", ref), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build signed url request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.do(req)
	if err != nil {
		return "", fmt.Errorf("sign attachment %s: %w", ref, err)
	}
	defer resp.Body.Close()

	var signed struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&signed); err != nil {
		return "", fmt.Errorf("decode signed url response: %w", err)
	}
	if signed.SignedURL == "" {
		return "", errors.New("signed url missing from response")
	}
	return s.baseURL + "/storage/v1" + signed.SignedURL, nil
}

func (s *SupabaseAttachmentStorage) objectURL(endpoint, ref string) string {
	return fmt.Sprintf("%s/storage/v1/%s/%s/%s", s.baseURL, endpoint, s.bucket, ref)
}

// do sends an authorized request and turns non-2xx answers into errors.
func (s *SupabaseAttachmentStorage) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}
