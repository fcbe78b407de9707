// Package appointments is the booking core: the CRUD surface over the
// backend's appointment endpoints and the status state machine every
// mutation passes through.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"salonbook/internal/domain"
	"salonbook/internal/httpapi"
	"salonbook/internal/session"
)

const appointmentsPath = "/appointments"

// resolver is the availability check run before any date/time/employee
// change is committed.
type resolver interface {
	Hours(ctx context.Context, date string, employeeID int64, known []domain.Appointment) (domain.Slots, error)
}

// sessionInfo exposes the signed-in user without coupling to the full
// session manager. Expire is invoked when the backend rejects the token so
// the session tears itself down instead of retrying with a dead bearer.
type sessionInfo interface {
	Current() (domain.User, bool)
	Expire(ctx context.Context)
}

type Service struct {
	api      *httpapi.Client
	resolver resolver
	session  sessionInfo
	log      *slog.Logger

	names *nameCache
}

func NewService(api *httpapi.Client, res resolver, sess sessionInfo, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "appointments"))
	return &Service{
		api:      api,
		resolver: res,
		session:  sess,
		log:      log,
		names:    newNameCache(api, log),
	}
}

type SortOrder int

const (
	// OrderDefault picks ascending for clients and descending for staff,
	// matching the two list presentations.
	OrderDefault SortOrder = iota
	OrderAscending
	OrderDescending
)

type ListScope int

const (
	// ScopeMine lists the caller's own appointments: bookings made by a
	// client, or the agenda of the signed-in employee.
	ScopeMine ListScope = iota
	// ScopeAll lists every appointment; admin only.
	ScopeAll
)

type ListOptions struct {
	Scope ListScope
	Order SortOrder
}

// List fetches appointments for the signed-in user, applies the role filter
// client-side, and sorts by combined date and time.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]domain.Appointment, error) {
	user, ok := s.session.Current()
	if !ok {
		return nil, session.ErrNotAuthenticated
	}
	if opts.Scope == ScopeAll && !user.IsAdmin() {
		return nil, ErrPermission
	}

	appts, err := s.fetch(ctx, user)
	if err != nil {
		return nil, s.backendErr(ctx, err)
	}

	filtered := filterByRole(appts, user, opts.Scope)

	order := opts.Order
	if order == OrderDefault {
		if user.IsAdmin() || user.IsEmployee() {
			order = OrderDescending
		} else {
			order = OrderAscending
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if order == OrderDescending {
			return filtered[i].SortKey() > filtered[j].SortKey()
		}
		return filtered[i].SortKey() < filtered[j].SortKey()
	})

	return filtered, nil
}

func (s *Service) fetch(ctx context.Context, user domain.User) ([]domain.Appointment, error) {
	if user.IsAdmin() || user.IsEmployee() {
		return httpapi.GetCached[[]domain.Appointment](ctx, s.api, appointmentsPath+"/all", nil, httpapi.CacheOptions{})
	}
	params := urlValues("userId", user.ID)
	return httpapi.GetCached[[]domain.Appointment](ctx, s.api, appointmentsPath, params, httpapi.CacheOptions{})
}

func filterByRole(appts []domain.Appointment, user domain.User, scope ListScope) []domain.Appointment {
	out := make([]domain.Appointment, 0, len(appts))
	for _, a := range appts {
		switch {
		case user.IsAdmin() && scope == ScopeAll:
			out = append(out, a)
		case user.IsAdmin() || user.IsEmployee():
			// Staff "mine" view: only appointments assigned to the caller.
			if employeeMatches(a, user.ID) {
				out = append(out, a)
			}
		default:
			// A client never sees another client's appointment, whatever the
			// backend returned.
			if a.Client != nil && a.Client.UserID == user.ID {
				out = append(out, a)
			}
		}
	}
	return out
}

func employeeMatches(a domain.Appointment, userID int64) bool {
	if a.Employee != nil && a.Employee.ID == userID {
		return true
	}
	return a.Employee == nil && a.EmployeeID == userID
}

type BookInput struct {
	Date       string
	Hour       string
	EmployeeID int64
	ClientID   int64
	ServiceID  int64

	// Slots is the current offer set for (Date, EmployeeID), as returned by
	// the resolver. Booking an hour outside it is rejected locally.
	Slots domain.Slots
}

// Book validates locally, then submits the booking. The hour must be a
// member of the current offer set; nothing is sent otherwise. On success the
// cached appointment lists are invalidated. The local offer set is not
// mutated before confirmation; apply Slots.MarkReserved on the returned
// success.
func (s *Service) Book(ctx context.Context, in BookInput) (domain.Appointment, error) {
	if _, ok := s.session.Current(); !ok {
		return domain.Appointment{}, session.ErrNotAuthenticated
	}

	in.Date = strings.TrimSpace(in.Date)
	in.Hour = domain.NormalizeClock(in.Hour)
	switch {
	case in.Date == "":
		return domain.Appointment{}, validationError("date is required")
	case in.Hour == "":
		return domain.Appointment{}, validationError("time is required")
	case in.EmployeeID == 0:
		return domain.Appointment{}, validationError("employee is required")
	case in.ClientID == 0:
		return domain.Appointment{}, validationError("client is required")
	case in.ServiceID == 0:
		return domain.Appointment{}, validationError("service is required")
	}

	if !in.Slots.Contains(in.Hour) {
		return domain.Appointment{}, fmt.Errorf("%w: %s %s", ErrSlotTaken, in.Date, in.Hour)
	}

	body := map[string]any{
		"employeeId": in.EmployeeID,
		"clientId":   in.ClientID,
		"date":       in.Date,
		"time":       in.Hour,
		"status":     domain.StatusPending,
		"serviceId":  in.ServiceID,
	}

	header := http.Header{"Idempotency-Key": {bookingKey(in)}}
	var created domain.Appointment
	if err := s.api.PostWithHeader(ctx, appointmentsPath, header, body, &created); err != nil {
		return domain.Appointment{}, s.backendErr(ctx, err)
	}

	s.invalidateLists()
	s.log.Info("appointment booked",
		slog.Int64("appointment_id", created.ID),
		slog.String("date", in.Date),
		slog.String("time", in.Hour),
		slog.Int64("employee_id", in.EmployeeID),
	)
	return created, nil
}

// bookingKey derives a deterministic idempotency key so a retried submit of
// the same slot cannot double-book.
func bookingKey(in BookInput) string {
	seed := fmt.Sprintf("salonbook:book:%d:%d:%d:%s:%s", in.ClientID, in.EmployeeID, in.ServiceID, in.Date, in.Hour)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

type RescheduleInput struct {
	Date       string
	Hour       string
	EmployeeID int64
	ServiceID  int64
}

// Reschedule moves an appointment to a new date/time/employee (empty fields
// keep their current values). It re-validates availability against the new
// target and aborts with ErrSlotTaken, issuing no PUT, when the hour is
// gone. Only non-terminal appointments can move.
func (s *Service) Reschedule(ctx context.Context, id int64, in RescheduleInput) (domain.Appointment, error) {
	if _, ok := s.session.Current(); !ok {
		return domain.Appointment{}, session.ErrNotAuthenticated
	}

	current, err := s.get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !current.Status.Editable() {
		return domain.Appointment{}, fmt.Errorf("%w: %s", ErrTerminalStatus, current.Status)
	}

	target := current
	if d := strings.TrimSpace(in.Date); d != "" {
		target.Date = d
	}
	if h := domain.NormalizeClock(in.Hour); h != "" {
		target.Time = h
	}
	if in.EmployeeID != 0 {
		target.EmployeeID = in.EmployeeID
	}
	if in.ServiceID != 0 {
		target.ServiceID = in.ServiceID
	}

	moved := target.Date != current.Date ||
		target.ClockTime() != current.ClockTime() ||
		target.EmployeeID != current.EmployeeID
	if moved {
		known, listErr := s.List(ctx, ListOptions{})
		if listErr != nil {
			// The conflict check degrades to backend-reported slots only.
			s.log.Warn("appointment list unavailable for conflict check", slog.Any("err", listErr))
			known = nil
		}
		slots, err := s.resolver.Hours(ctx, target.Date, target.EmployeeID, known)
		if err != nil {
			return domain.Appointment{}, err
		}
		if !slots.Contains(target.ClockTime()) {
			return domain.Appointment{}, fmt.Errorf("%w: %s %s", ErrSlotTaken, target.Date, target.ClockTime())
		}
	}

	body := map[string]any{
		"date":       target.Date,
		"time":       target.ClockTime(),
		"employeeId": target.EmployeeID,
		"serviceId":  target.ServiceID,
		"status":     current.Status,
	}
	var updated domain.Appointment
	if err := s.api.Put(ctx, appointmentPath(id), body, &updated); err != nil {
		return domain.Appointment{}, s.backendErr(ctx, err)
	}

	s.invalidateLists()
	s.log.Info("appointment rescheduled",
		slog.Int64("appointment_id", id),
		slog.String("date", target.Date),
		slog.String("time", target.ClockTime()),
	)
	return updated, nil
}

// Confirm moves a pending appointment to confirmed.
func (s *Service) Confirm(ctx context.Context, id int64) (domain.Appointment, error) {
	return s.transition(ctx, id, domain.StatusConfirmed)
}

// Complete marks an appointment done. Staff only; terminal afterwards.
func (s *Service) Complete(ctx context.Context, id int64) (domain.Appointment, error) {
	return s.transition(ctx, id, domain.StatusCompleted)
}

// Cancel cancels via a status update. All cancellations route through here;
// the backend's legacy DELETE path is not used.
func (s *Service) Cancel(ctx context.Context, id int64) (domain.Appointment, error) {
	return s.transition(ctx, id, domain.StatusCancelled)
}

func (s *Service) transition(ctx context.Context, id int64, next domain.Status) (domain.Appointment, error) {
	user, ok := s.session.Current()
	if !ok {
		return domain.Appointment{}, session.ErrNotAuthenticated
	}
	if !user.IsAdmin() && !user.IsEmployee() {
		return domain.Appointment{}, fmt.Errorf("%w: %s requires staff", ErrPermission, next)
	}

	current, err := s.get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !current.Status.CanTransitionTo(next) {
		if current.Status.IsTerminal() {
			return domain.Appointment{}, fmt.Errorf("%w: %s", ErrTerminalStatus, current.Status)
		}
		return domain.Appointment{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, next)
	}

	var updated domain.Appointment
	if err := s.api.Put(ctx, appointmentPath(id), map[string]any{"status": next}, &updated); err != nil {
		return domain.Appointment{}, s.backendErr(ctx, err)
	}

	s.invalidateLists()
	s.log.Info("appointment status changed",
		slog.Int64("appointment_id", id),
		slog.String("from", string(current.Status)),
		slog.String("to", string(next)),
	)
	return updated, nil
}

// get reads the authoritative record, bypassing the cache: transitions must
// not be decided on stale status.
func (s *Service) get(ctx context.Context, id int64) (domain.Appointment, error) {
	var appt domain.Appointment
	if err := s.api.Get(ctx, appointmentPath(id), nil, &appt); err != nil {
		return domain.Appointment{}, s.backendErr(ctx, err)
	}
	return appt, nil
}

// backendErr passes a backend error through, notifying the session when the
// token was rejected.
func (s *Service) backendErr(ctx context.Context, err error) error {
	if errors.Is(err, httpapi.ErrUnauthorized) {
		s.session.Expire(ctx)
	}
	return err
}

// EmployeeName resolves an employee's display name from the memo, starting a
// background fetch and returning a placeholder on first miss.
func (s *Service) EmployeeName(employeeID int64) string {
	return s.names.get(employeeID)
}

// ResolveEmployeeNames fetches the display names for every employee
// referenced by appts concurrently, merged by id.
func (s *Service) ResolveEmployeeNames(ctx context.Context, appts []domain.Appointment) (map[int64]string, error) {
	ids := make([]int64, 0, len(appts))
	seen := make(map[int64]struct{}, len(appts))
	for _, a := range appts {
		id := a.EmployeeID
		if a.Employee != nil {
			id = a.Employee.ID
		}
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return s.names.resolveAll(ctx, ids)
}

func (s *Service) invalidateLists() {
	s.api.Cache().Invalidate(appointmentsPath)
}

func appointmentPath(id int64) string {
	return fmt.Sprintf("%s/%d", appointmentsPath, id)
}

func urlValues(key string, id int64) url.Values {
	return url.Values{key: {strconv.FormatInt(id, 10)}}
}
