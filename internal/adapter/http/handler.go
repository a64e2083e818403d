package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/admitiq/internal/app"
	"github.com/neomorfeo/admitiq/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

// EventResponse is the API representation of an event.
type EventResponse struct {
	ID               string  `json:"id" doc:"Unique identifier"`
	Name             string  `json:"name" doc:"Display name"`
	OrganizerID      string  `json:"organizer_id" doc:"Organizer user ID"`
	CapacityMax      int     `json:"capacity_max" doc:"Maximum admitted participants"`
	AdmittedCount    int     `json:"admitted_count" doc:"Currently admitted participants"`
	RequiresApproval bool    `json:"requires_approval" doc:"Manual approval required"`
	WaitlistEnabled  bool    `json:"waitlist_enabled" doc:"Waitlist on full event"`
	WindowOpen       string  `json:"window_open,omitempty" doc:"Registration window opens (ISO 8601)"`
	WindowClose      string  `json:"window_close,omitempty" doc:"Registration window closes (ISO 8601)"`
	Free             bool    `json:"free" doc:"Free event"`
	Price            float64 `json:"price,omitempty" doc:"Price for paid events"`
	Currency         string  `json:"currency,omitempty" doc:"Price currency"`
	CreatedAt        string  `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
}

func toEventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:               e.ID,
		Name:             e.Name,
		OrganizerID:      e.OrganizerID,
		CapacityMax:      e.CapacityMax,
		AdmittedCount:    e.AdmittedCount,
		RequiresApproval: e.RequiresApproval,
		WaitlistEnabled:  e.WaitlistEnabled,
		WindowOpen:       formatTime(e.WindowOpen),
		WindowClose:      formatTime(e.WindowClose),
		Free:             e.Free,
		Price:            e.Price,
		Currency:         e.Currency,
		CreatedAt:        formatTime(e.CreatedAt),
	}
}

// RegistrationResponse is the API representation of a registration.
type RegistrationResponse struct {
	ID               string  `json:"id" doc:"Unique identifier"`
	EventID          string  `json:"event_id" doc:"Event"`
	UserID           string  `json:"user_id" doc:"Registrant"`
	Status           string  `json:"status" doc:"Lifecycle state"`
	Type             string  `json:"registration_type" doc:"How the entry was admitted"`
	ApprovalStatus   string  `json:"approval_status" doc:"Why the status is what it is"`
	WaitlistPosition int     `json:"waitlist_position,omitempty" doc:"FIFO rank while waitlisted"`
	PaymentRequired  bool    `json:"payment_required" doc:"Paid event"`
	PaymentAmount    float64 `json:"payment_amount,omitempty" doc:"Amount due after discount"`
	DiscountApplied  float64 `json:"discount_applied,omitempty" doc:"Discount from coupon"`
	CouponCode       string  `json:"coupon_code,omitempty" doc:"Applied coupon"`
	PaymentLink      string  `json:"payment_link,omitempty" doc:"Payment link for paid events"`
	CancelReason     string  `json:"cancel_reason,omitempty" doc:"Why cancelled or rejected"`
	CreatedAt        string  `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt        string  `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toRegistrationResponse(r domain.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:               r.ID,
		EventID:          r.EventID,
		UserID:           r.UserID,
		Status:           string(r.Status),
		Type:             string(r.Type),
		ApprovalStatus:   string(r.ApprovalStatus),
		WaitlistPosition: r.WaitlistPosition,
		PaymentRequired:  r.PaymentRequired,
		PaymentAmount:    r.PaymentAmount,
		DiscountApplied:  r.DiscountApplied,
		CouponCode:       r.CouponCode,
		PaymentLink:      r.PaymentLink,
		CancelReason:     r.CancelReason,
		CreatedAt:        formatTime(r.CreatedAt),
		UpdatedAt:        formatTime(r.UpdatedAt),
	}
}

// --- Create Event ---

type CouponInput struct {
	Code          string  `json:"code" minLength:"1" doc:"Coupon code"`
	DiscountType  string  `json:"discount_type" enum:"percentage,fixed" doc:"How the value applies"`
	DiscountValue float64 `json:"discount_value" minimum:"0" doc:"Percentage or fixed amount"`
	MaxUses       int     `json:"max_uses" minimum:"1" doc:"Redemption limit"`
}

type CreateEventInput struct {
	Body struct {
		Name             string        `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
		OrganizerID      string        `json:"organizer_id" minLength:"1" doc:"Organizer user ID"`
		CapacityMax      int           `json:"capacity_max" minimum:"1" doc:"Maximum admitted participants"`
		RequiresApproval bool          `json:"requires_approval,omitempty" doc:"Manual approval required"`
		WaitlistEnabled  bool          `json:"waitlist_enabled,omitempty" doc:"Waitlist on full event"`
		WindowOpen       string        `json:"window_open,omitempty" doc:"Registration window opens (RFC 3339)"`
		WindowClose      string        `json:"window_close,omitempty" doc:"Registration window closes (RFC 3339)"`
		Free             bool          `json:"free,omitempty" doc:"Free event"`
		Price            float64       `json:"price,omitempty" minimum:"0" doc:"Price for paid events"`
		Currency         string        `json:"currency,omitempty" maxLength:"3" doc:"Price currency"`
		Coupons          []CouponInput `json:"coupons,omitempty" doc:"Discount coupons"`
	}
}

type CreateEventOutput struct {
	Body EventResponse
}

// --- Get / List Events ---

type GetEventInput struct {
	ID string `path:"id" doc:"Event ID"`
}

type GetEventOutput struct {
	Body EventResponse
}

type ListEventsInput struct {
	Limit  int `query:"limit" required:"false" default:"50" doc:"Max results"`
	Offset int `query:"offset" required:"false" default:"0" doc:"Pagination offset"`
}

type ListEventsOutput struct {
	Body []EventResponse
}

// --- Register ---

type RegisterInput struct {
	EventID string `path:"id" doc:"Event ID"`
	Body    struct {
		UserID           string            `json:"user_id" minLength:"1" doc:"Registrant user ID"`
		CouponCode       string            `json:"coupon_code,omitempty" doc:"Discount coupon"`
		CustomFields     map[string]string `json:"custom_fields,omitempty" doc:"Event-specific answers"`
		Accommodations   string            `json:"accommodations,omitempty" doc:"Accessibility needs"`
		EmergencyContact string            `json:"emergency_contact,omitempty" doc:"Emergency contact"`
		Referrer         string            `json:"referrer,omitempty" doc:"How the registrant heard of the event"`
	}
}

type RegistrationOutput struct {
	Body RegistrationResponse
}

// --- Cancel ---

type CancelInput struct {
	ID   string `path:"id" doc:"Registration ID"`
	Body struct {
		ActorID string `json:"actor_id" minLength:"1" doc:"User or organizer performing the cancellation"`
		Reason  string `json:"reason,omitempty" doc:"Cancellation reason"`
	}
}

// --- Approve / Reject ---

type ApproveInput struct {
	ID   string `path:"id" doc:"Registration ID"`
	Body struct {
		ApproverID string `json:"approver_id" minLength:"1" doc:"Organizer approving"`
	}
}

type RejectInput struct {
	ID   string `path:"id" doc:"Registration ID"`
	Body struct {
		RejectorID string `json:"rejector_id" minLength:"1" doc:"Organizer rejecting"`
		Reason     string `json:"reason,omitempty" doc:"Rejection reason"`
	}
}

// --- Check-in / No-show ---

type CheckInInput struct {
	ID   string `path:"id" doc:"Registration ID"`
	Body struct {
		Method   string `json:"method,omitempty" default:"manual" doc:"Check-in method (qr, manual)"`
		Location string `json:"location,omitempty" doc:"Where the check-in happened"`
	}
}

type NoShowInput struct {
	ID string `path:"id" doc:"Registration ID"`
}

// --- Close out ---

type CloseOutInput struct {
	EventID string `path:"id" doc:"Event ID"`
}

type CloseOutItem struct {
	RegistrationID string `json:"registration_id" doc:"Affected registration"`
	Error          string `json:"error,omitempty" doc:"Failure reason, empty on success"`
}

type CloseOutOutput struct {
	Body []CloseOutItem
}

// --- Listing / Statistics / Waitlist ---

type ListRegistrationsInput struct {
	EventID string `path:"id" doc:"Event ID"`
	Status  string `query:"status" required:"false" doc:"Filter by status"`
	Limit   int    `query:"limit" required:"false" default:"50" doc:"Max results"`
	Offset  int    `query:"offset" required:"false" default:"0" doc:"Pagination offset"`
}

type ListRegistrationsOutput struct {
	Body []RegistrationResponse
}

type EventStatsInput struct {
	EventID string `path:"id" doc:"Event ID"`
}

type UserStatsInput struct {
	UserID string `path:"id" doc:"User ID"`
}

type StatsOutput struct {
	Body map[string]int
}

type WaitlistPositionInput struct {
	EventID string `path:"id" doc:"Event ID"`
	UserID  string `path:"userId" doc:"User ID"`
}

type WaitlistPositionOutput struct {
	Body struct {
		Position int `json:"position" doc:"1-based FIFO rank"`
	}
}

// Register adds all registration API routes to the Huma API.
func Register(api huma.API, events *app.EventService, regs *app.RegistrationService, stats *app.StatisticsService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-event",
		Method:      http.MethodPost,
		Path:        "/api/v1/events",
		Summary:     "Create a new event",
		Tags:        []string{"Events"},
	}, func(ctx context.Context, input *CreateEventInput) (*CreateEventOutput, error) {
		coupons := make([]domain.Coupon, len(input.Body.Coupons))
		for i, c := range input.Body.Coupons {
			coupons[i] = domain.Coupon{
				Code:          c.Code,
				DiscountType:  domain.DiscountType(c.DiscountType),
				DiscountValue: c.DiscountValue,
				MaxUses:       c.MaxUses,
				Active:        true,
			}
		}

		event, err := events.Create(ctx, app.CreateEventInput{
			Name:             input.Body.Name,
			OrganizerID:      input.Body.OrganizerID,
			CapacityMax:      input.Body.CapacityMax,
			RequiresApproval: input.Body.RequiresApproval,
			WaitlistEnabled:  input.Body.WaitlistEnabled,
			WindowOpen:       input.Body.WindowOpen,
			WindowClose:      input.Body.WindowClose,
			Free:             input.Body.Free,
			Price:            input.Body.Price,
			Currency:         input.Body.Currency,
			Coupons:          coupons,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateEventOutput{Body: toEventResponse(event)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-event",
		Method:      http.MethodGet,
		Path:        "/api/v1/events/{id}",
		Summary:     "Get an event by ID",
		Tags:        []string{"Events"},
	}, func(ctx context.Context, input *GetEventInput) (*GetEventOutput, error) {
		event, err := events.GetByID(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetEventOutput{Body: toEventResponse(event)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/api/v1/events",
		Summary:     "List events",
		Tags:        []string{"Events"},
	}, func(ctx context.Context, input *ListEventsInput) (*ListEventsOutput, error) {
		list, err := events.List(ctx, domain.ListFilter{Limit: input.Limit, Offset: input.Offset})
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]EventResponse, len(list))
		for i, e := range list {
			resp[i] = toEventResponse(e)
		}
		return &ListEventsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "register-for-event",
		Method:      http.MethodPost,
		Path:        "/api/v1/events/{id}/registrations",
		Summary:     "Register a user for an event",
		Tags:        []string{"Registrations"},
	}, func(ctx context.Context, input *RegisterInput) (*RegistrationOutput, error) {
		reg, err := regs.RegisterForEvent(ctx, input.EventID, input.Body.UserID, app.RegisterInput{
			CustomFields:     input.Body.CustomFields,
			Accommodations:   input.Body.Accommodations,
			EmergencyContact: input.Body.EmergencyContact,
			Referrer:         input.Body.Referrer,
			CouponCode:       input.Body.CouponCode,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RegistrationOutput{Body: toRegistrationResponse(reg)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-registration",
		Method:      http.MethodDelete,
		Path:        "/api/v1/registrations/{id}",
		Summary:     "Cancel a registration",
		Tags:        []string{"Registrations"},
	}, func(ctx context.Context, input *CancelInput) (*RegistrationOutput, error) {
		reg, err := regs.CancelRegistration(ctx, input.ID, input.Body.ActorID, input.Body.Reason)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RegistrationOutput{Body: toRegistrationResponse(reg)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "approve-registration",
		Method:      http.MethodPost,
		Path:        "/api/v1/registrations/{id}/approve",
		Summary:     "Approve a pending registration",
		Tags:        []string{"Registrations"},
	}, func(ctx context.Context, input *ApproveInput) (*RegistrationOutput, error) {
		reg, err := regs.ApproveRegistration(ctx, input.ID, input.Body.ApproverID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RegistrationOutput{Body: toRegistrationResponse(reg)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reject-registration",
		Method:      http.MethodPost,
		Path:        "/api/v1/registrations/{id}/reject",
		Summary:     "Reject a pending registration",
		Tags:        []string{"Registrations"},
	}, func(ctx context.Context, input *RejectInput) (*RegistrationOutput, error) {
		reg, err := regs.RejectRegistration(ctx, input.ID, input.Body.RejectorID, input.Body.Reason)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RegistrationOutput{Body: toRegistrationResponse(reg)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "check-in",
		Method:      http.MethodPost,
		Path:        "/api/v1/registrations/{id}/checkin",
		Summary:     "Check in an approved registration",
		Tags:        []string{"Registrations"},
	}, func(ctx context.Context, input *CheckInInput) (*RegistrationOutput, error) {
		reg, err := regs.CheckIn(ctx, input.ID, input.Body.Method, input.Body.Location)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RegistrationOutput{Body: toRegistrationResponse(reg)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "mark-no-show",
		Method:      http.MethodPost,
		Path:        "/api/v1/registrations/{id}/no-show",
		Summary:     "Mark an approved registration as a no-show",
		Tags:        []string{"Registrations"},
	}, func(ctx context.Context, input *NoShowInput) (*RegistrationOutput, error) {
		reg, err := regs.MarkNoShow(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RegistrationOutput{Body: toRegistrationResponse(reg)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "close-out-event",
		Method:      http.MethodPost,
		Path:        "/api/v1/events/{id}/close-out",
		Summary:     "Mark all still-approved registrations as no-shows",
		Tags:        []string{"Registrations"},
	}, func(ctx context.Context, input *CloseOutInput) (*CloseOutOutput, error) {
		results, err := regs.CloseOutEvent(ctx, input.EventID)
		if err != nil {
			return nil, toHumaError(err)
		}
		items := make([]CloseOutItem, len(results))
		for i, r := range results {
			items[i] = CloseOutItem{RegistrationID: r.RegistrationID}
			if r.Err != nil {
				items[i].Error = r.Err.Error()
			}
		}
		return &CloseOutOutput{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-registrations",
		Method:      http.MethodGet,
		Path:        "/api/v1/events/{id}/registrations",
		Summary:     "List an event's registrations",
		Tags:        []string{"Registrations"},
	}, func(ctx context.Context, input *ListRegistrationsInput) (*ListRegistrationsOutput, error) {
		filter := domain.ListFilter{Limit: input.Limit, Offset: input.Offset}
		if input.Status != "" {
			s := domain.Status(input.Status)
			filter.Status = &s
		}

		list, err := regs.ListRegistrations(ctx, input.EventID, filter)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]RegistrationResponse, len(list))
		for i, r := range list {
			resp[i] = toRegistrationResponse(r)
		}
		return &ListRegistrationsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "event-statistics",
		Method:      http.MethodGet,
		Path:        "/api/v1/events/{id}/statistics",
		Summary:     "Registration counts by status for an event",
		Tags:        []string{"Statistics"},
	}, func(ctx context.Context, input *EventStatsInput) (*StatsOutput, error) {
		counts, err := stats.CountsByStatus(ctx, input.EventID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &StatsOutput{Body: statusCounts(counts)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "user-statistics",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}/statistics",
		Summary:     "Registration counts by status for a user",
		Tags:        []string{"Statistics"},
	}, func(ctx context.Context, input *UserStatsInput) (*StatsOutput, error) {
		counts, err := stats.CountsByUser(ctx, input.UserID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &StatsOutput{Body: statusCounts(counts)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "waitlist-position",
		Method:      http.MethodGet,
		Path:        "/api/v1/events/{id}/waitlist/{userId}",
		Summary:     "Current waitlist position for a user",
		Tags:        []string{"Statistics"},
	}, func(ctx context.Context, input *WaitlistPositionInput) (*WaitlistPositionOutput, error) {
		position, err := stats.WaitlistPosition(ctx, input.EventID, input.UserID)
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &WaitlistPositionOutput{}
		out.Body.Position = position
		return out, nil
	})
}

func statusCounts(counts map[domain.Status]int) map[string]int {
	out := make(map[string]int, len(counts))
	for status, count := range counts {
		out[string(status)] = count
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeFormat)
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrEventNotFound) {
		return huma.Error404NotFound("event not found")
	}
	if errors.Is(err, domain.ErrRegistrationNotFound) {
		return huma.Error404NotFound("registration not found")
	}

	var dupErr *domain.DuplicateRegistrationError
	if errors.As(err, &dupErr) {
		return huma.Error409Conflict(dupErr.Error())
	}

	var permErr *domain.PermissionError
	if errors.As(err, &permErr) {
		return huma.Error403Forbidden(permErr.Error())
	}

	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		return huma.Error422UnprocessableEntity(valErr.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}

	var confErr *domain.CapacityConflictError
	if errors.As(err, &confErr) {
		return huma.Error409Conflict(confErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
