package handlers

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-ticket-service/internal/api/dto"
	"github.com/spec-kit/field-ticket-service/internal/auth"
	"github.com/spec-kit/field-ticket-service/internal/domain"
	"github.com/spec-kit/field-ticket-service/internal/service"
	apperrors "github.com/spec-kit/field-ticket-service/pkg/util/errorutil"
)

// WorkflowHandler exposes the activity log and workflow actions.
type WorkflowHandler struct {
	service   *service.WorkflowService
	presenter *Presenter
}

// NewWorkflowHandler constructs handler.
func NewWorkflowHandler(workflowService *service.WorkflowService, presenter *Presenter) *WorkflowHandler {
	return &WorkflowHandler{service: workflowService, presenter: presenter}
}

// Timeline GET /tickets/:id/timeline.
func (h *WorkflowHandler) Timeline(c *fiber.Ctx) error {
	timeline, err := h.service.Timeline(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.presenter.Timeline(c.UserContext(), timeline)})
}

// ListActivities GET /tickets/:id/activities.
func (h *WorkflowHandler) ListActivities(c *fiber.Ctx) error {
	activities, err := h.service.ListActivities(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.presenter.Activities(c.UserContext(), activities, nil)})
}

// AppendActivity POST /tickets/:id/activities.
func (h *WorkflowHandler) AppendActivity(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	activity, err := h.service.AppendActivity(c.UserContext(), principal.UserID(), c.Params("id"), req.Input())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": h.presenter.Activity(c.UserContext(), activity)})
}

// EndWorking POST /tickets/:id/end-working (multipart).
func (h *WorkflowHandler) EndWorking(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	form, err := multipartForm(c)
	if err != nil {
		return err
	}

	ticket, activity, err := h.service.EndWorking(c.UserContext(), principal.UserID(), c.Params("id"), service.EndWorkingInput{
		Files: formDocuments(form),
		Notes: formValue(form, "notes"),
	})
	if err != nil {
		return err
	}
	return h.transition(c, principal, ticket, activity)
}

// Complete POST /tickets/:id/complete (multipart, every field optional).
func (h *WorkflowHandler) Complete(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	form, err := multipartForm(c)
	if err != nil {
		return err
	}

	ticket, activity, err := h.service.Complete(c.UserContext(), principal.UserID(), c.Params("id"), service.CompleteInput{
		Files:           formDocuments(form),
		CompletionNotes: formValue(form, "completion_notes"),
	})
	if err != nil {
		return err
	}
	return h.transition(c, principal, ticket, activity)
}

// Revisit POST /tickets/:id/revisit.
func (h *WorkflowHandler) Revisit(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RevisitRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	ticket, activity, err := h.service.Revisit(c.UserContext(), principal.UserID(), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return h.transition(c, principal, ticket, activity)
}

func (h *WorkflowHandler) transition(c *fiber.Ctx, principal *auth.Principal, ticket *domain.Ticket, activity *domain.Activity) error {
	details, err := h.service.Describe(c.UserContext(), ticket)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.presenter.Transition(c.UserContext(), details, activity, principal.User)})
}

// multipartForm returns the parsed form, or nil when the request is not multipart.
func multipartForm(c *fiber.Ctx) (*multipart.Form, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.NewValidationError("invalid multipart payload", nil)
	}
	return form, nil
}

func formDocuments(form *multipart.Form) service.Documents {
	return service.Documents{
		CTBadPart:  formFile(form, "ct_bad_part"),
		CTGoodPart: formFile(form, "ct_good_part"),
		BAPFile:    formFile(form, "bap_file"),
	}
}

func formFile(form *multipart.Form, field string) *multipart.FileHeader {
	if form == nil || len(form.File[field]) == 0 {
		return nil
	}
	return form.File[field][0]
}

func formValue(form *multipart.Form, field string) string {
	if form == nil || len(form.Value[field]) == 0 {
		return ""
	}
	return form.Value[field][0]
}
