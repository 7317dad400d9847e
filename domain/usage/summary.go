package usage

import "time"

// Summary is aggregated usage for one identity over a window (value type).
type Summary struct {
	Identity    string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Quantity    int64
	Bytes       int64
	Entries     int64
	Failed      int64
}

// SumWithin returns the total quantity of entries owned by identity whose
// timestamp lies in [start, end].
// This is a PURE function.
func SumWithin(entries []Entry, identity string, start, end time.Time) int64 {
	var total int64
	for _, e := range entries {
		if e.Identity == identity && within(e.Timestamp, start, end) {
			total += e.Quantity
		}
	}
	return total
}

// Summarize aggregates entries owned by identity inside [start, end].
// This is a PURE function.
func Summarize(entries []Entry, identity string, start, end time.Time) Summary {
	s := Summary{
		Identity:    identity,
		PeriodStart: start,
		PeriodEnd:   end,
	}
	for _, e := range entries {
		if e.Identity != identity || !within(e.Timestamp, start, end) {
			continue
		}
		s.Quantity += e.Quantity
		s.Bytes += e.Bytes
		s.Entries++
		if e.Status == StatusFailed {
			s.Failed++
		}
	}
	return s
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
