package domain

import (
	"strings"
)

type Appointment struct {
	ID         int64  `json:"id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Status     Status `json:"status"`
	EmployeeID int64  `json:"employeeId"`
	ClientID   int64  `json:"clientId"`
	ServiceID  int64  `json:"serviceId"`

	Employee *Employee `json:"employee,omitempty"`
	Client   *Client   `json:"client,omitempty"`
	Service  *Service  `json:"service,omitempty"`
}

// ClockTime returns the appointment hour as "HH:MM", dropping the trailing
// seconds component when the backend sends "HH:MM:SS".
func (a Appointment) ClockTime() string {
	return NormalizeClock(a.Time)
}

// SortKey combines date and time into a lexicographically orderable key;
// "2006-01-02 15:04" sorts the same way the instants themselves would.
func (a Appointment) SortKey() string {
	return a.Date + " " + a.ClockTime()
}

func NormalizeClock(clock string) string {
	clock = strings.TrimSpace(clock)
	if len(clock) == 8 && strings.Count(clock, ":") == 2 {
		return clock[:5]
	}
	return clock
}

type Employee struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
	User *struct {
		Name string `json:"name"`
	} `json:"user,omitempty"`
}

// DisplayName prefers the nested user record's name, then the flat name
// field, then the placeholder shown for nameless staff.
func (e Employee) DisplayName() string {
	if e.User != nil && strings.TrimSpace(e.User.Name) != "" {
		return strings.TrimSpace(e.User.Name)
	}
	if strings.TrimSpace(e.Name) != "" {
		return strings.TrimSpace(e.Name)
	}
	return "Sin nombre"
}

type Client struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"id_user"`
	Name   string `json:"name,omitempty"`
}

type Service struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Duration int     `json:"duration"`
}
