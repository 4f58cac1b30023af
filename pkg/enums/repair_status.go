package enums

import "fmt"

// RepairStatus tracks a device through the workshop.
type RepairStatus string

const (
	RepairStatusReceived   RepairStatus = "received"
	RepairStatusDiagnosing RepairStatus = "diagnosing"
	RepairStatusInRepair   RepairStatus = "in_repair"
	RepairStatusReady      RepairStatus = "ready"
	RepairStatusDelivered  RepairStatus = "delivered"
	RepairStatusCancelled  RepairStatus = "cancelled"
)

var validRepairStatuses = []RepairStatus{
	RepairStatusReceived,
	RepairStatusDiagnosing,
	RepairStatusInRepair,
	RepairStatusReady,
	RepairStatusDelivered,
	RepairStatusCancelled,
}

var repairTransitions = map[RepairStatus][]RepairStatus{
	RepairStatusReceived:   {RepairStatusDiagnosing, RepairStatusInRepair, RepairStatusReady, RepairStatusCancelled},
	RepairStatusDiagnosing: {RepairStatusInRepair, RepairStatusReady, RepairStatusCancelled},
	RepairStatusInRepair:   {RepairStatusDiagnosing, RepairStatusReady, RepairStatusCancelled},
	RepairStatusReady:      {RepairStatusInRepair, RepairStatusDelivered},
}

func (s RepairStatus) String() string {
	return string(s)
}

func (s RepairStatus) IsValid() bool {
	for _, candidate := range validRepairStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s RepairStatus) IsTerminal() bool {
	return s == RepairStatusDelivered || s == RepairStatusCancelled
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s RepairStatus) CanTransitionTo(next RepairStatus) bool {
	for _, candidate := range repairTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

func ParseRepairStatus(value string) (RepairStatus, error) {
	for _, candidate := range validRepairStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid repair status %q", value)
}
