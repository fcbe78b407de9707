package domain

import (
	"encoding/json"
	"testing"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusPending, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusConfirmed, false},
		{StatusConfirmed, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusCompleted, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.ok {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestStatusTerminalAndEditable(t *testing.T) {
	if !StatusCompleted.IsTerminal() || !StatusCancelled.IsTerminal() {
		t.Fatalf("completed and cancelled must be terminal")
	}
	if StatusPending.IsTerminal() || StatusConfirmed.IsTerminal() {
		t.Fatalf("pending and confirmed must not be terminal")
	}
	if !StatusPending.Editable() || !StatusConfirmed.Editable() {
		t.Fatalf("pending and confirmed must be editable")
	}
	if StatusCancelled.Editable() || StatusCompleted.Editable() {
		t.Fatalf("terminal statuses must not be editable")
	}
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus("  Confirmed ")
	if !ok || s != StatusConfirmed {
		t.Fatalf("ParseStatus = %q, %v", s, ok)
	}
	if _, ok := ParseStatus("rescheduled"); ok {
		t.Fatalf("unknown status must not parse")
	}
}

func TestNewSlotsDisjointAndNormalized(t *testing.T) {
	s := NewSlots([]string{"09:00:00", "09:30", "10:00", "09:30"}, []string{"09:30:00"})
	if len(s.Available) != 2 || s.Available[0] != "09:00" || s.Available[1] != "10:00" {
		t.Fatalf("available = %v", s.Available)
	}
	if len(s.Reserved) != 1 || s.Reserved[0] != "09:30" {
		t.Fatalf("reserved = %v", s.Reserved)
	}
	for _, h := range s.Available {
		if s.IsReserved(h) {
			t.Fatalf("hour %q present in both sets", h)
		}
	}
}

func TestSlotsMarkReserved(t *testing.T) {
	s := NewSlots([]string{"09:00", "10:00"}, nil)
	s = s.MarkReserved("09:00:00")
	if s.Contains("09:00") {
		t.Fatalf("09:00 still offered after MarkReserved")
	}
	if !s.IsReserved("09:00") {
		t.Fatalf("09:00 not reserved after MarkReserved")
	}
	if !s.Contains("10:00") {
		t.Fatalf("10:00 dropped by MarkReserved")
	}
}

func TestEmployeeDisplayName(t *testing.T) {
	var nested Employee
	if err := json.Unmarshal([]byte(`{"id":4,"user":{"name":"Ana"}}`), &nested); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := nested.DisplayName(); got != "Ana" {
		t.Fatalf("display name = %q, want %q", got, "Ana")
	}

	flat := Employee{ID: 5, Name: "Luis"}
	if got := flat.DisplayName(); got != "Luis" {
		t.Fatalf("display name = %q, want %q", got, "Luis")
	}

	empty := Employee{ID: 6}
	if got := empty.DisplayName(); got != "Sin nombre" {
		t.Fatalf("display name = %q, want %q", got, "Sin nombre")
	}
}

func TestRoleUnmarshalShapes(t *testing.T) {
	var u User
	if err := json.Unmarshal([]byte(`{"id":1,"role":"ADMIN"}`), &u); err != nil {
		t.Fatalf("unmarshal string role: %v", err)
	}
	if !u.IsAdmin() {
		t.Fatalf("role = %q, want admin", u.Role)
	}

	if err := json.Unmarshal([]byte(`{"id":2,"role":{"name":" Employee "}}`), &u); err != nil {
		t.Fatalf("unmarshal object role: %v", err)
	}
	if !u.IsEmployee() {
		t.Fatalf("role = %q, want employee", u.Role)
	}
}

func TestAppointmentSortKey(t *testing.T) {
	early := Appointment{Date: "2026-03-01", Time: "09:00:00"}
	late := Appointment{Date: "2026-03-01", Time: "10:30"}
	if !(early.SortKey() < late.SortKey()) {
		t.Fatalf("sort keys not ordered: %q vs %q", early.SortKey(), late.SortKey())
	}
	if early.ClockTime() != "09:00" {
		t.Fatalf("clock time = %q", early.ClockTime())
	}
}
