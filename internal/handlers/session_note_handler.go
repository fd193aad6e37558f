package handlers

import (
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CounselBack/internal/models"
	"github.com/saeid-a/CounselBack/internal/services"
	"go.uber.org/zap"
)

const maxAttachmentBytes = 10 << 20

type sessionNoteApplicationService interface {
	Append(ctx context.Context, requester services.Requester, input services.AppendNoteInput) (*models.SessionNote, error)
	ListForAppointment(ctx context.Context, requester services.Requester, appointmentID int64) ([]models.SessionNote, error)
	UploadAttachment(ctx context.Context, requester services.Requester, appointmentID int64, file io.Reader, filename string) (string, error)
	AttachmentURL(ctx context.Context, requester services.Requester, noteID int64, index int) (string, error)
}

type SessionNoteHandler struct {
	service sessionNoteApplicationService
	logger  *zap.Logger
}

func NewSessionNoteHandler(service sessionNoteApplicationService, logger *zap.Logger) *SessionNoteHandler {
	return &SessionNoteHandler{service: service, logger: nopIfNil(logger)}
}

type sessionNoteRequest struct {
	Appointment int64    `json:"appointment"`
	Notes       string   `json:"notes"`
	Attachments []string `json:"attachments"`
}

func (h *SessionNoteHandler) Create(c *fiber.Ctx) error {
	requester, err := parseRequester(c)
	if err != nil {
		return invalidToken(c)
	}

	var req sessionNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	if msg := validateSessionNoteRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	note, err := h.service.Append(c.Context(), requester, services.AppendNoteInput{
		AppointmentID: req.Appointment,
		Notes:         req.Notes,
		Attachments:   req.Attachments,
	})
	if err != nil {
		return h.mapNoteError(c, err)
	}
	return c.JSON(note)
}

func (h *SessionNoteHandler) ListForAppointment(c *fiber.Ctx) error {
	requester, err := parseRequester(c)
	if err != nil {
		return invalidToken(c)
	}

	appointmentID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid appointment id"})
	}

	notes, err := h.service.ListForAppointment(c.Context(), requester, appointmentID)
	if err != nil {
		return h.mapNoteError(c, err)
	}
	return c.JSON(notes)
}

// UploadAttachment accepts a multipart form with an "appointment" field and
// a "file" part.
func (h *SessionNoteHandler) UploadAttachment(c *fiber.Ctx) error {
	requester, err := parseRequester(c)
	if err != nil {
		return invalidToken(c)
	}

	appointmentID, err := strconv.ParseInt(c.FormValue("appointment"), 10, 64)
	if err != nil || appointmentID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Appointment ID is required"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}
	if fileHeader.Size > maxAttachmentBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "file must be 10MB or smaller"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to read file"})
	}
	defer file.Close()

	ref, err := h.service.UploadAttachment(c.Context(), requester, appointmentID, file, fileHeader.Filename)
	if err != nil {
		return h.mapNoteError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"attachment": ref})
}

func (h *SessionNoteHandler) AttachmentURL(c *fiber.Ctx) error {
	requester, err := parseRequester(c)
	if err != nil {
		return invalidToken(c)
	}

	noteID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session note id"})
	}
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil || index < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid attachment index"})
	}

	url, err := h.service.AttachmentURL(c.Context(), requester, noteID, index)
	if err != nil {
		return h.mapNoteError(c, err)
	}
	return c.JSON(fiber.Map{"url": url})
}

func (h *SessionNoteHandler) mapNoteError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrAppointmentNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Appointment not found"})
	case errors.Is(err, services.ErrNoteNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session note not found"})
	case errors.Is(err, services.ErrStorageUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Attachments are not available"})
	default:
		return internalError(c, h.logger, "Failed to process session note request", err)
	}
}
