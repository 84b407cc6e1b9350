package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"liftbay/internal/config"
	"liftbay/internal/domain"
	"liftbay/internal/engine"
	"liftbay/internal/engine/auth"
	"liftbay/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"elevator_unavailable"`
	Message string         `json:"message" example:"elevator not available"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Liftbay API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema validation failures are the caller's fault, plain 400.
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(metricsMiddleware)
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Liftbay API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerElevators(group, cfg.Engine)
	registerRepairs(group, cfg.Engine)
	registerStock(group, cfg.Engine)
	registerActors(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerShopConfig(group, cfg.Engine)
	registerMetrics(router)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// handleError maps domain errors onto the envelope. Messages stay generic
// for lookups so error text never confirms which internal ids exist.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var fe auth.ForbiddenError
	if errors.As(err, &fe) {
		return newAPIError(http.StatusForbidden, "forbidden", fe.Error(), nil)
	}
	var te engine.InvalidTransitionError
	if errors.As(err, &te) {
		return newAPIError(http.StatusConflict, "invalid_transition", te.Error(), map[string]any{"from": te.From, "to": te.To})
	}
	var ae engine.AssigneeMismatchError
	if errors.As(err, &ae) {
		return newAPIError(http.StatusConflict, "assignee_mismatch", ae.Error(), nil)
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", "not found", nil)
	case errors.Is(err, engine.ErrElevatorUnavailable):
		return newAPIError(http.StatusConflict, "elevator_unavailable", err.Error(), nil)
	case errors.Is(err, engine.ErrInvalidAmount):
		return newAPIError(http.StatusBadRequest, "invalid_amount", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required") || strings.Contains(lowered, "unknown role") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", nil)
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	default:
		return "error"
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, input *struct{}) (*struct {
		Body struct {
			Status string `json:"status" example:"ok"`
		}
	}, error) {
		resp := &struct {
			Body struct {
				Status string `json:"status" example:"ok"`
			}
		}{}
		resp.Body.Status = "ok"
		return resp, nil
	})
}

func registerElevators(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-elevators",
		Method:      http.MethodGet,
		Path:        "/elevators",
		Summary:     "List elevators",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status" enum:"Available,Occupied,Maintenance,"`
	}) (*struct {
		Body []domain.Elevator `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListElevators(ctx, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Elevator `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-elevator",
		Method:        http.MethodPost,
		Path:          "/elevators",
		Summary:       "Provision elevator",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body AddElevatorRequest `json:"body"`
	}) (*struct {
		Body domain.Elevator `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		el, err := e.AddElevator(ctx, input.Body.Category, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Elevator `json:"body"`
		}{Body: el}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "block-elevator",
		Method:      http.MethodPost,
		Path:        "/elevators/{id}/block",
		Summary:     "Block elevator for maintenance",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Elevator `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		el, err := e.BlockElevator(ctx, input.ID, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Elevator `json:"body"`
		}{Body: el}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unblock-elevator",
		Method:      http.MethodPost,
		Path:        "/elevators/{id}/unblock",
		Summary:     "Return elevator to service",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Elevator `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		el, err := e.UnblockElevator(ctx, input.ID, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Elevator `json:"body"`
		}{Body: el}, nil
	})
}

func registerRepairs(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-repairs",
		Method:      http.MethodGet,
		Path:        "/repairs",
		Summary:     "List repairs",
	}, func(ctx context.Context, input *struct {
		Status     string `query:"status" enum:"Pending,Approved,InProgress,Completed,Cancelled,"`
		ClientID   string `query:"client_id"`
		MechanicID string `query:"mechanic_id"`
		Limit      int    `query:"limit"`
	}) (*struct {
		Body []domain.Repair `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		f := repo.RepairFilters{
			Status:     input.Status,
			ClientID:   input.ClientID,
			MechanicID: input.MechanicID,
			Limit:      input.Limit,
		}
		// Clients see only their own repairs.
		if actor.Role == domain.RoleClient {
			f.ClientID = actor.ID
		}
		items, err := e.Repo.ListRepairs(ctx, f)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Repair `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-repair",
		Method:      http.MethodGet,
		Path:        "/repairs/{id}",
		Summary:     "Get repair",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Repair `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rep, err := e.Repo.GetRepair(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		// A client asking about someone else's repair learns nothing.
		if actor.Role == domain.RoleClient && rep.ClientID != actor.ID {
			return nil, handleError(repo.ErrNotFound)
		}
		return &struct {
			Body domain.Repair `json:"body"`
		}{Body: rep}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "schedule-repair",
		Method:        http.MethodPost,
		Path:          "/repairs",
		Summary:       "Schedule repair",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body ScheduleRepairRequest `json:"body"`
	}) (*struct {
		Body domain.Repair `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rep, err := e.ScheduleRepair(ctx, engine.ScheduleOptions{
			ElevatorID:  input.Body.ElevatorID,
			Description: input.Body.Description,
			ScheduledAt: input.Body.ScheduledAt,
		}, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Repair `json:"body"`
		}{Body: rep}, nil
	})

	type repairAction func(ctx context.Context, id string, actor domain.Actor) (domain.Repair, error)
	registerRepairAction := func(opID, pathSuffix, summary string, errs []int, fn repairAction) {
		huma.Register(api, huma.Operation{
			OperationID: opID,
			Method:      http.MethodPost,
			Path:        "/repairs/{id}/" + pathSuffix,
			Summary:     summary,
			Errors:      errs,
		}, func(ctx context.Context, input *struct {
			ID string `path:"id"`
		}) (*struct {
			Body domain.Repair `json:"body"`
		}, error) {
			actor, authErr := actorFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			rep, err := fn(ctx, input.ID, actor)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body domain.Repair `json:"body"`
			}{Body: rep}, nil
		})
	}

	registerRepairAction("approve-repair", "approve", "Approve repair",
		[]int{http.StatusForbidden, http.StatusNotFound, http.StatusConflict}, e.ApproveRepair)
	registerRepairAction("claim-repair", "claim", "Claim repair",
		[]int{http.StatusForbidden, http.StatusNotFound, http.StatusConflict}, e.ClaimRepair)
	registerRepairAction("cancel-repair", "cancel", "Cancel repair",
		[]int{http.StatusForbidden, http.StatusNotFound, http.StatusConflict}, e.CancelRepair)

	huma.Register(api, huma.Operation{
		OperationID: "reschedule-repair",
		Method:      http.MethodPost,
		Path:        "/repairs/{id}/reschedule",
		Summary:     "Reschedule repair onto another elevator",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string                  `path:"id"`
		Body RescheduleRepairRequest `json:"body"`
	}) (*struct {
		Body domain.Repair `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rep, err := e.RescheduleRepair(ctx, engine.RescheduleOptions{
			RepairID:    input.ID,
			ElevatorID:  input.Body.ElevatorID,
			ScheduledAt: input.Body.ScheduledAt,
		}, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Repair `json:"body"`
		}{Body: rep}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-mechanic",
		Method:      http.MethodPost,
		Path:        "/repairs/{id}/assign",
		Summary:     "Assign mechanic",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string                `path:"id"`
		Body AssignMechanicRequest `json:"body"`
	}) (*struct {
		Body domain.Repair `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rep, err := e.AssignMechanic(ctx, input.ID, input.Body.MechanicID, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Repair `json:"body"`
		}{Body: rep}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "record-usage",
		Method:      http.MethodPost,
		Path:        "/repairs/{id}/usage",
		Summary:     "Record parts used",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string             `path:"id"`
		Body RecordUsageRequest `json:"body"`
	}) (*struct {
		Body domain.Repair `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rep, err := e.RecordUsage(ctx, input.ID, input.Body.Note, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Repair `json:"body"`
		}{Body: rep}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-repair",
		Method:      http.MethodPost,
		Path:        "/repairs/{id}/complete",
		Summary:     "Complete repair",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string                `path:"id"`
		Body CompleteRepairRequest `json:"body"`
	}) (*struct {
		Body domain.Repair `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rep, err := e.CompleteRepair(ctx, input.ID, input.Body.Cost, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Repair `json:"body"`
		}{Body: rep}, nil
	})
}

func registerStock(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-stock",
		Method:      http.MethodGet,
		Path:        "/stock",
		Summary:     "List consumables",
	}, func(ctx context.Context, input *struct{}) (*struct {
		Body []domain.Consumable `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListConsumables(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Consumable `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-low-stock",
		Method:      http.MethodGet,
		Path:        "/stock/low",
		Summary:     "List consumables at or below threshold",
	}, func(ctx context.Context, input *struct{}) (*struct {
		Body []domain.Consumable `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListLowConsumables(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Consumable `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-consumable",
		Method:        http.MethodPost,
		Path:          "/stock",
		Summary:       "Add consumable",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body AddConsumableRequest `json:"body"`
	}) (*struct {
		Body domain.Consumable `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.AddConsumable(ctx, engine.ConsumableOptions{
			Name:      input.Body.Name,
			Quantity:  input.Body.Quantity,
			UnitPrice: input.Body.UnitPrice,
			Threshold: input.Body.Threshold,
		}, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Consumable `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "replenish-stock",
		Method:      http.MethodPost,
		Path:        "/stock/{id}/replenish",
		Summary:     "Replenish consumable",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string                `path:"id"`
		Body ReplenishStockRequest `json:"body"`
	}) (*struct {
		Body domain.Consumable `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.ReplenishStock(ctx, input.ID, input.Body.Amount, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Consumable `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "replenish-all-low",
		Method:      http.MethodPost,
		Path:        "/stock/replenish-low",
		Summary:     "Replenish every low consumable",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct{}) (*struct {
		Body []domain.Consumable `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ReplenishAllLow(ctx, actor)
		if err != nil {
			var fe auth.ForbiddenError
			if errors.As(err, &fe) {
				return nil, handleError(err)
			}
			// Partial failures: some items were still replenished.
			return nil, newAPIError(http.StatusInternalServerError, "partial_failure", err.Error(), map[string]any{
				"replenished": len(items),
			})
		}
		return &struct {
			Body []domain.Consumable `json:"body"`
		}{Body: items}, nil
	})
}

func registerActors(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-actors",
		Method:      http.MethodGet,
		Path:        "/actors",
		Summary:     "List directory actors",
	}, func(ctx context.Context, input *struct {
		Role string `query:"role" enum:"Client,Manager,Receptionist,Mechanic,StockKeeper,"`
	}) (*struct {
		Body []domain.Actor `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListActors(ctx, domain.Role(input.Role))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Actor `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "register-actor",
		Method:        http.MethodPost,
		Path:          "/actors",
		Summary:       "Register directory actor",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body RegisterActorRequest `json:"body"`
	}) (*struct {
		Body domain.Actor `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.ActorOptions{
			Name: input.Body.Name,
			Role: domain.Role(input.Body.Role),
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		a, err := e.RegisterActor(ctx, opts, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Actor `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "remove-actor",
		Method:        http.MethodDelete,
		Path:          "/actors/{id}",
		Summary:       "Remove directory actor",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.RemoveActor(ctx, input.ID, actor); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Tail the audit log",
	}, func(ctx context.Context, input *struct {
		Limit      int    `query:"limit"`
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.LatestEvents(ctx, input.Limit, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: items}, nil
	})
}

func registerShopConfig(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-config",
		Method:      http.MethodGet,
		Path:        "/config",
		Summary:     "Show shop config",
	}, func(ctx context.Context, input *struct{}) (*struct {
		Body *config.Config `json:"body"`
	}, error) {
		if _, authErr := actorFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		cfg, err := e.Repo.GetShopConfig(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body *config.Config `json:"body"`
		}{Body: cfg}, nil
	})
}
