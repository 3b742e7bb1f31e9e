package models

// Status is an order's manufacturing status
type Status string

// Order statuses
const (
	StatusNew           Status = "New"
	StatusManufacturing Status = "manufacturing"
	StatusDone          Status = "Done"
	StatusFinished      Status = "finished"
)

// Statuses lists every status in lifecycle order
var Statuses = []Status{
	StatusNew,
	StatusManufacturing,
	StatusDone,
	StatusFinished,
}

// IsValid checks if the status is one of the declared values
func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusManufacturing, StatusDone, StatusFinished:
		return true
	default:
		return false
	}
}

// Severity is the aging color of an order in its current status
type Severity string

const (
	SeverityNone   Severity = "none"
	SeverityGreen  Severity = "green"
	SeverityOrange Severity = "orange"
	SeverityRed    Severity = "red"
)

// Rank orders severities for comparison; none and green share the lowest rank.
func (s Severity) Rank() int {
	switch s {
	case SeverityOrange:
		return 1
	case SeverityRed:
		return 2
	default:
		return 0
	}
}

// SlaThresholds are day counts bounding how long an order may sit in a status.
// A nil field means "not configured at this level".
type SlaThresholds struct {
	GreenDays  *int `json:"greenDays,omitempty"`
	OrangeDays *int `json:"orangeDays,omitempty"`
	RedDays    *int `json:"redDays,omitempty"`
}

// IsEmpty reports whether no field is set
func (t *SlaThresholds) IsEmpty() bool {
	return t == nil || (t.GreenDays == nil && t.OrangeDays == nil && t.RedDays == nil)
}

// StatusSla holds thresholds for the statuses that age
type StatusSla struct {
	New           *SlaThresholds `json:"New,omitempty"`
	Manufacturing *SlaThresholds `json:"manufacturing,omitempty"`
	Done          *SlaThresholds `json:"Done,omitempty"`
}

// SlaStatuses are the statuses that carry thresholds
var SlaStatuses = []Status{StatusNew, StatusManufacturing, StatusDone}

// For returns the thresholds configured for status, or nil
func (s *StatusSla) For(status Status) *SlaThresholds {
	if s == nil {
		return nil
	}
	switch status {
	case StatusNew:
		return s.New
	case StatusManufacturing:
		return s.Manufacturing
	case StatusDone:
		return s.Done
	default:
		return nil
	}
}

// Set stores thresholds for status; statuses without thresholds are ignored
func (s *StatusSla) Set(status Status, t *SlaThresholds) {
	switch status {
	case StatusNew:
		s.New = t
	case StatusManufacturing:
		s.Manufacturing = t
	case StatusDone:
		s.Done = t
	}
}

// Normalize drops empty per-status tables and returns nil when nothing is set
func (s *StatusSla) Normalize() *StatusSla {
	if s == nil {
		return nil
	}
	out := &StatusSla{}
	empty := true
	for _, status := range SlaStatuses {
		t := s.For(status)
		if t.IsEmpty() {
			continue
		}
		cp := *t
		out.Set(status, &cp)
		empty = false
	}
	if empty {
		return nil
	}
	return out
}

// Days is a convenience for building threshold literals
func Days(n int) *int {
	return &n
}
