package domain

import "sort"

// Slots is the normalized offer set for one (date, employee) pair.
// Available and Reserved are disjoint by construction.
type Slots struct {
	Available []string
	Reserved  []string
}

// NewSlots normalizes both hour lists ("HH:MM:SS" becomes "HH:MM"),
// deduplicates, sorts, and removes reserved hours from the offer set.
func NewSlots(available, reserved []string) Slots {
	res := normalizeHours(reserved)
	taken := make(map[string]struct{}, len(res))
	for _, h := range res {
		taken[h] = struct{}{}
	}

	avail := make([]string, 0, len(available))
	seen := make(map[string]struct{}, len(available))
	for _, h := range normalizeHours(available) {
		if _, ok := taken[h]; ok {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		avail = append(avail, h)
	}

	return Slots{Available: avail, Reserved: res}
}

func (s Slots) Contains(hour string) bool {
	hour = NormalizeClock(hour)
	for _, h := range s.Available {
		if h == hour {
			return true
		}
	}
	return false
}

func (s Slots) IsReserved(hour string) bool {
	hour = NormalizeClock(hour)
	for _, h := range s.Reserved {
		if h == hour {
			return true
		}
	}
	return false
}

// MarkReserved returns a copy with hour moved from the offer set to the
// reserved set. Callers apply it only after the backend confirmed a booking.
func (s Slots) MarkReserved(hour string) Slots {
	hour = NormalizeClock(hour)
	avail := make([]string, 0, len(s.Available))
	for _, h := range s.Available {
		if h != hour {
			avail = append(avail, h)
		}
	}
	reserved := append(append([]string(nil), s.Reserved...), hour)
	return NewSlots(avail, reserved)
}

func normalizeHours(hours []string) []string {
	out := make([]string, 0, len(hours))
	seen := make(map[string]struct{}, len(hours))
	for _, h := range hours {
		n := NormalizeClock(h)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
