package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/example/incident-desk/clock"
	"github.com/example/incident-desk/domain/casework"
	"github.com/example/incident-desk/modules/account"
	"github.com/example/incident-desk/modules/audit"
	"github.com/example/incident-desk/modules/lifecycle"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	tasks    lifecycle.LifecyclePort
	accounts account.AccountPort
	trail    audit.AuditPort
	clock    clock.Clock
	loc      *time.Location
	logger   types.Logger
}

// NewHandlers creates a new Handlers instance. Timestamps are rendered in loc.
func NewHandlers(
	tasks lifecycle.LifecyclePort,
	accounts account.AccountPort,
	trail audit.AuditPort,
	clk clock.Clock,
	loc *time.Location,
	logger types.Logger,
) *Handlers {
	return &Handlers{
		tasks:    tasks,
		accounts: accounts,
		trail:    trail,
		clock:    clk,
		loc:      loc,
		logger:   logger,
	}
}

// Register handles POST /api/v1/auth/register.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Code == "" || req.Email == "" || req.Password == "" {
		return badRequest(c, "Code, email and password are required")
	}

	profile, err := h.accounts.Register(c.UserContext(), &account.RegisterRequest{
		Code:      req.Code,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(profile)
}

// Login handles POST /api/v1/auth/login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Code == "" || req.Password == "" {
		return badRequest(c, "Code and password are required")
	}

	tokens, err := h.accounts.Login(c.UserContext(), req.Code, req.Password)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(tokens)
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.RefreshToken == "" {
		return badRequest(c, "Refresh token is required")
	}

	tokens, err := h.accounts.RefreshTokens(c.UserContext(), req.RefreshToken)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(tokens)
}

// Me handles GET /api/v1/me.
func (h *Handlers) Me(c *fiber.Ctx) error {
	claims, _ := actorFrom(c)
	profile, err := h.accounts.GetActor(c.UserContext(), claims.ActorID)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(profile)
}

// Mediators handles GET /api/v1/mediators.
func (h *Handlers) Mediators(c *fiber.Ctx) error {
	profiles, err := h.accounts.ListMediators(c.UserContext())
	if err != nil {
		return writeError(c, h.logger, err)
	}
	if profiles == nil {
		profiles = []*account.Profile{}
	}
	return c.JSON(ProfileListResponse{Profiles: profiles, Total: len(profiles)})
}

// CreateTask handles POST /api/v1/tasks.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	claims, _ := actorFrom(c)
	task, err := h.tasks.CreateTask(c.UserContext(), claims.ActorID, req.Location)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toTaskResponse(task, h.loc))
}

// MyTasks handles GET /api/v1/tasks/mine?state=&limit=&offset=.
func (h *Handlers) MyTasks(c *fiber.Ctx) error {
	limit, offset, err := pageParams(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	claims, _ := actorFrom(c)
	state := casework.State(strings.TrimSpace(c.Query("state")))
	tasks, err := h.tasks.ListActorTasks(c.UserContext(), claims.ActorID, state, limit, offset)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(toTaskList(tasks, h.loc, limit, offset))
}

// GetTask handles GET /api/v1/tasks/:id. A task is visible to its requester,
// its mediator, any mediator while it is Open, and admins.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	id, ok := taskID(c)
	if !ok {
		return badRequest(c, "Task ID must be a positive integer")
	}

	task, err := h.tasks.GetTask(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	claims, _ := actorFrom(c)
	if !canView(claims, task) {
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   string(casework.KindForbiddenRole),
			Message: "You cannot view this task",
		})
	}
	return c.JSON(toTaskResponse(task, h.loc))
}

// Queue handles GET /api/v1/queue?limit=&offset=.
func (h *Handlers) Queue(c *fiber.Ctx) error {
	limit, offset, err := pageParams(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	tasks, err := h.tasks.ListOpenTasks(c.UserContext(), limit, offset)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(toTaskList(tasks, h.loc, limit, offset))
}

// ClaimTask handles POST /api/v1/tasks/:id/claim.
func (h *Handlers) ClaimTask(c *fiber.Ctx) error {
	id, ok := taskID(c)
	if !ok {
		return badRequest(c, "Task ID must be a positive integer")
	}

	claims, _ := actorFrom(c)
	task, err := h.tasks.ClaimOpenTask(c.UserContext(), claims.ActorID, id)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(toTaskResponse(task, h.loc))
}

// ResolveTask handles POST /api/v1/tasks/:id/resolve.
func (h *Handlers) ResolveTask(c *fiber.Ctx) error {
	id, ok := taskID(c)
	if !ok {
		return badRequest(c, "Task ID must be a positive integer")
	}

	claims, _ := actorFrom(c)
	task, err := h.tasks.ResolveTask(c.UserContext(), claims.ActorID, id)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(toTaskResponse(task, h.loc))
}

// CompleteTask handles POST /api/v1/tasks/:id/complete. The body is optional.
func (h *Handlers) CompleteTask(c *fiber.Ctx) error {
	id, ok := taskID(c)
	if !ok {
		return badRequest(c, "Task ID must be a positive integer")
	}

	var req CompleteTaskRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	claims, _ := actorFrom(c)
	task, err := h.tasks.CompleteTask(c.UserContext(), claims.ActorID, id, req.FinalNote)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(toTaskResponse(task, h.loc))
}

// ActiveCase handles GET /api/v1/active-case.
func (h *Handlers) ActiveCase(c *fiber.Ctx) error {
	claims, _ := actorFrom(c)
	task, err := h.tasks.ActiveCase(c.UserContext(), claims.ActorID)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(toTaskResponse(task, h.loc))
}

// Integrity handles GET /api/v1/admin/integrity.
func (h *Handlers) Integrity(c *fiber.Ctx) error {
	divs, err := h.tasks.CheckIntegrity(c.UserContext())
	if err != nil {
		return writeError(c, h.logger, err)
	}
	if divs == nil {
		divs = []lifecycle.Divergence{}
	}
	return c.JSON(IntegrityResponse{
		Divergences: divs,
		Total:       len(divs),
		CheckedAt:   h.clock.Now(),
	})
}

// Audit handles GET /api/v1/admin/audit?limit=&task_id=.
func (h *Handlers) Audit(c *fiber.Ctx) error {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = n
	}

	var task uint64
	if raw := c.Query("task_id"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return badRequest(c, "task_id must be a positive integer")
		}
		task = n
	}

	resp, err := h.trail.RecentEntries(c.UserContext(), limit, task)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	entries := resp.Entries
	if entries == nil {
		entries = []audit.Entry{}
	}
	return c.JSON(AuditResponse{Entries: entries, Recorded: resp.Recorded})
}

func canView(claims *account.Claims, task *casework.Task) bool {
	switch claims.Role {
	case casework.RoleAdmin:
		return true
	case casework.RoleRequester:
		return task.RequesterID == claims.ActorID
	case casework.RoleMediator:
		return task.MediatorID == claims.ActorID || task.State == casework.StateOpen
	}
	return false
}

func taskID(c *fiber.Ctx) (uint64, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// pageParams reads limit and offset. Absent values are zero; range checks
// belong to the lifecycle engine.
func pageParams(c *fiber.Ctx) (limit, offset int, err error) {
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return 0, 0, errInvalidLimit
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil {
			return 0, 0, errInvalidOffset
		}
	}
	return limit, offset, nil
}
