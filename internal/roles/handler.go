package roles

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gatehouse-api/gatehouse/internal/platform/httpx"
	"github.com/gatehouse-api/gatehouse/internal/rbac"
	"github.com/gatehouse-api/gatehouse/internal/shared"
)

// Handler wires HTTP endpoints for role management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		rbac:      rbacMW,
		validator: validator.New(),
	}
}

// MountRoutes registers role routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePrivilege("roles", "read"))
		r.Get("/", h.list)
		r.Get("/count", h.count)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePrivilege("roles", "insert"))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePrivilege("roles", "update"))
		r.Patch("/{id}", h.update)
		r.Post("/{id}/restore", h.restore)
		r.Post("/{id}/privileges", h.grantPrivilege)
		r.Delete("/{id}/privileges/{privilegeID}", h.revokePrivilege)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePrivilege("roles", "delete"))
		r.Delete("/{id}", h.remove)
	})
}

// MountLinkRoutes registers the superuser-only role-privilege link routes.
func (h *Handler) MountLinkRoutes(r chi.Router) {
	r.Use(h.rbac.RequireSuperuser)
	r.Get("/", h.listLinks)
	r.Get("/count", h.countLinks)
	r.Get("/{id}/{privilegeID}", h.getLink)
	r.Post("/", h.createLink)
	r.Delete("/{id}/{privilegeID}", h.deleteLink)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.List(r.Context(), shared.PageRequestFromQuery(r))
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summaries)
}

func (h *Handler) count(w http.ResponseWriter, r *http.Request) {
	includeDeleted := r.URL.Query().Get("include_deleted") == "true"
	count, err := h.service.Count(r.Context(), includeDeleted)
	if err != nil {
		h.logger.Error("count roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, CountResponse{Count: count})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed payload", shared.ErrInvalidInput))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", shared.ErrInvalidInput, err.Error()))
		return
	}
	role, err := h.service.Create(r.Context(), req.Name, req.IsSuperuser, req.Privileges)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed payload", shared.ErrInvalidInput))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", shared.ErrInvalidInput, err.Error()))
		return
	}
	role, err := h.service.Update(r.Context(), id, req.Name, req.IsSuperuser, req.Privileges)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	hard := r.URL.Query().Get("hard") == "true"
	if err := h.service.Delete(r.Context(), id, hard); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.Restore(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) grantPrivilege(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var spec PrivilegeSpec
	if err := httpx.DecodeJSON(r, &spec); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed payload", shared.ErrInvalidInput))
		return
	}
	if err := h.validator.Struct(spec); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", shared.ErrInvalidInput, err.Error()))
		return
	}
	role, err := h.service.GrantPrivilege(r.Context(), id, spec.Resource, spec.Action)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) revokePrivilege(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	privID, err := pathID(r, "privilegeID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.RevokePrivilege(r.Context(), id, privID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) listLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.ListLinks(r.Context(), shared.PageRequestFromQuery(r))
	if err != nil {
		h.logger.Error("list role privileges", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, links)
}

func (h *Handler) countLinks(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.CountLinks(r.Context())
	if err != nil {
		h.logger.Error("count role privileges", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, CountResponse{Count: count})
}

func (h *Handler) getLink(w http.ResponseWriter, r *http.Request) {
	roleID, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	privID, err := pathID(r, "privilegeID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	link, err := h.service.GetLink(r.Context(), roleID, privID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, link)
}

func (h *Handler) createLink(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed payload", shared.ErrInvalidInput))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", shared.ErrInvalidInput, err.Error()))
		return
	}
	link, err := h.service.CreateLink(r.Context(), req.RoleID, req.PrivilegeID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, link)
}

func (h *Handler) deleteLink(w http.ResponseWriter, r *http.Request) {
	roleID, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	privID, err := pathID(r, "privilegeID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteLink(r.Context(), roleID, privID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func pathID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", shared.ErrInvalidInput, param)
	}
	return id, nil
}
