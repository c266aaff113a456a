package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-settlement/internal/middleware"
	"github.com/iliyamo/event-ticket-settlement/internal/model"
	"github.com/iliyamo/event-ticket-settlement/internal/service"
)

// CatalogHandler serves events, users and address lookups.
type CatalogHandler struct {
	Catalog *service.Catalog
}

// NewCatalogHandler panics on a nil catalog.
func NewCatalogHandler(c *service.Catalog) *CatalogHandler {
	if c == nil {
		panic("nil catalog passed to NewCatalogHandler")
	}
	return &CatalogHandler{Catalog: c}
}

// CreateEvent handles POST /v1/events. The caller becomes the seller.
func (h *CatalogHandler) CreateEvent(c echo.Context) error {
	caller, ok := middleware.Identity(c)
	if !ok {
		return unauthorized(c)
	}
	var p model.EventPayload
	if err := c.Bind(&p); err != nil {
		return badRequest(c, "invalid request body")
	}
	e, err := h.Catalog.CreateEvent(c.Request().Context(), caller, p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, e)
}

// ListEvents handles GET /v1/events.
func (h *CatalogHandler) ListEvents(c echo.Context) error {
	events, err := h.Catalog.ListEvents(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, events)
}

// GetEvent handles GET /v1/events/:id.
func (h *CatalogHandler) GetEvent(c echo.Context) error {
	e, err := h.Catalog.GetEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// UpdateEvent handles PUT /v1/events/:id. Only the seller may edit.
func (h *CatalogHandler) UpdateEvent(c echo.Context) error {
	caller, ok := middleware.Identity(c)
	if !ok {
		return unauthorized(c)
	}
	var p model.EventPayload
	if err := c.Bind(&p); err != nil {
		return badRequest(c, "invalid request body")
	}
	e, err := h.Catalog.UpdateEvent(c.Request().Context(), caller, c.Param("id"), p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// DeleteEvent handles DELETE /v1/events/:id. Only the seller may delete.
func (h *CatalogHandler) DeleteEvent(c echo.Context) error {
	caller, ok := middleware.Identity(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.Catalog.DeleteEvent(c.Request().Context(), caller, c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateUser handles POST /v1/users.
func (h *CatalogHandler) CreateUser(c echo.Context) error {
	var p model.UserPayload
	if err := c.Bind(&p); err != nil {
		return badRequest(c, "invalid request body")
	}
	u, err := h.Catalog.CreateUser(c.Request().Context(), p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// ListUsers handles GET /v1/users.
func (h *CatalogHandler) ListUsers(c echo.Context) error {
	users, err := h.Catalog.ListUsers(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// UpdateUser handles PUT /v1/users/:id.
func (h *CatalogHandler) UpdateUser(c echo.Context) error {
	var p model.UserPayload
	if err := c.Bind(&p); err != nil {
		return badRequest(c, "invalid request body")
	}
	u, err := h.Catalog.UpdateUser(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// GetUser handles GET /v1/users/:id.
func (h *CatalogHandler) GetUser(c echo.Context) error {
	u, err := h.Catalog.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Address handles GET /v1/address/:principal.
func (h *CatalogHandler) Address(c echo.Context) error {
	principal := c.Param("principal")
	account, err := service.AddressOf(principal)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"principal": principal, "account": account})
}
