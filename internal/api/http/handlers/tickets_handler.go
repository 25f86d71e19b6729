package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-ticket-service/internal/api/dto"
	"github.com/spec-kit/field-ticket-service/internal/auth"
	"github.com/spec-kit/field-ticket-service/internal/service"
	apperrors "github.com/spec-kit/field-ticket-service/pkg/util/errorutil"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TicketsHandler manages ticket record endpoints.
type TicketsHandler struct {
	service   *service.TicketService
	presenter *Presenter
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, presenter *Presenter) *TicketsHandler {
	return &TicketsHandler{service: ticketService, presenter: presenter}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.TicketRequest
	if err := parseTicketRequest(c, &req); err != nil {
		return err
	}

	ticket, err := h.service.Create(c.UserContext(), principal.UserID(), req.Input())
	if err != nil {
		return err
	}
	details, err := h.service.Describe(c.UserContext(), ticket)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": h.presenter.Details(c.UserContext(), details)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	page, err := h.service.List(c.UserContext(), listParams(c))
	if err != nil {
		return err
	}
	return c.JSON(h.presenter.Page(c.UserContext(), page))
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	details, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.presenter.Details(c.UserContext(), details)})
}

// UpdateTicket PUT and PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.TicketRequest
	if err := parseTicketRequest(c, &req); err != nil {
		return err
	}

	ticket, err := h.service.Update(c.UserContext(), principal.UserID(), c.Params("id"), req.Input())
	if err != nil {
		return err
	}
	details, err := h.service.Describe(c.UserContext(), ticket)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.presenter.Details(c.UserContext(), details)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), principal.UserID(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ExportTickets GET /tickets/export streams the filtered listing as xlsx.
func (h *TicketsHandler) ExportTickets(c *fiber.Ctx) error {
	var buf bytes.Buffer
	name, err := h.service.Export(c.UserContext(), &buf, listParams(c))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
	return c.Send(buf.Bytes())
}

// parseTicketRequest decodes a JSON body. Other encodings cannot tell an
// omitted field from a cleared one, so they are refused.
func parseTicketRequest(c *fiber.Ctx, req *dto.TicketRequest) error {
	if !c.Is("json") {
		return apperrors.NewUnsupportedMediaType("ticket requests must be sent as application/json")
	}
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func listParams(c *fiber.Ctx) service.ListParams {
	return service.ListParams{
		Search:   c.Query("search"),
		Status:   c.Query("status"),
		Filter:   c.Query("filter"),
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("page_size"), 0),
	}
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
