package shared

// RecordStatus is the closed status set vendor ticket/alert vocabularies map into.
type RecordStatus string

// Record statuses.
const (
	StatusOpen       RecordStatus = "open"
	StatusInProgress RecordStatus = "in_progress"
	StatusResolved   RecordStatus = "resolved"
	StatusClosed     RecordStatus = "closed"
	StatusDismissed  RecordStatus = "dismissed"
)

// IsValid checks if the status is a known value.
func (s RecordStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed, StatusDismissed:
		return true
	default:
		return false
	}
}

// String returns the status as a string.
func (s RecordStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status represents finished work.
func (s RecordStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusClosed || s == StatusDismissed
}
