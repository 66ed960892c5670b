package domain

type AvailabilityEvent struct {
	EventType string
	Payload   any
}

const (
	EventRecurringRuleCreated = "RecurringRuleCreated"
	EventRecurringRuleDeleted = "RecurringRuleDeleted"
	EventDateOverridden       = "DateOverridden"
	EventDateBlackedOut       = "DateBlackedOut"
	EventSlotRemoved          = "SlotRemoved"
	EventOverrideDeleted      = "OverrideDeleted"
)

type RecurringRuleChangedPayload struct {
	DoctorID string `json:"doctor_id"`
	RuleID   string `json:"rule_id"`
}

type DateChangedPayload struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"`
}

type SlotRemovedPayload struct {
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}
