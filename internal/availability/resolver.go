// Package availability turns the backend's availability answers into a
// normalized offer set per (date, employee) pair.
package availability

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"sync/atomic"

	"salonbook/internal/domain"
)

// ErrStaleRequest marks a response that arrived after a newer request for a
// different selection was already issued. Callers discard it and keep the
// state of the latest request.
var ErrStaleRequest = errors.New("stale availability request")

// Getter is the slice of the HTTP client the resolver needs.
type Getter interface {
	Get(ctx context.Context, path string, params url.Values, out any) error
}

type Resolver struct {
	api Getter
	log *slog.Logger
	seq atomic.Uint64
}

func NewResolver(api Getter, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		api: api,
		log: log.With(slog.String("component", "availability")),
	}
}

// Hours fetches bookable versus reserved hours for one (date, employee)
// pair. Results are never served from cache: a stale offer set is worse than
// a round-trip. Known appointments supply the reserved set when the backend
// answers with the flat shape, which carries no reservation data itself.
func (r *Resolver) Hours(ctx context.Context, date string, employeeID int64, known []domain.Appointment) (domain.Slots, error) {
	gen := r.seq.Add(1)

	params := url.Values{
		"date":       {date},
		"employeeId": {strconv.FormatInt(employeeID, 10)},
	}
	var raw json.RawMessage
	if err := r.api.Get(ctx, "/availability", params, &raw); err != nil {
		return domain.Slots{}, err
	}

	if r.seq.Load() != gen {
		return domain.Slots{}, ErrStaleRequest
	}

	return r.normalize(raw, date, employeeID, known), nil
}

// normalize accepts both known payload shapes: a flat array of free hours,
// or {availableSlots, reservedSlots}. Anything else yields empty sets with a
// logged warning rather than an error.
func (r *Resolver) normalize(raw json.RawMessage, date string, employeeID int64, known []domain.Appointment) domain.Slots {
	var flat []string
	if err := json.Unmarshal(raw, &flat); err == nil {
		return domain.NewSlots(flat, reservedFromKnown(date, employeeID, known))
	}

	var obj struct {
		AvailableSlots []string `json:"availableSlots"`
		ReservedSlots  []string `json:"reservedSlots"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && (obj.AvailableSlots != nil || obj.ReservedSlots != nil) {
		return domain.NewSlots(obj.AvailableSlots, obj.ReservedSlots)
	}

	r.log.Warn("unexpected availability payload shape",
		slog.String("date", date),
		slog.Int64("employee_id", employeeID),
	)
	return domain.NewSlots(nil, nil)
}

func reservedFromKnown(date string, employeeID int64, known []domain.Appointment) []string {
	var reserved []string
	for _, a := range known {
		if a.Date != date || a.EmployeeID != employeeID {
			continue
		}
		if a.Status == domain.StatusCancelled {
			continue
		}
		reserved = append(reserved, a.ClockTime())
	}
	return reserved
}
