package orders

import "github.com/printflow-erp/printflow-erp/internal/shared"

// Status is one of the 21 fixed order workflow states. The set and the
// transition graph are hand-coded; this is deliberately not a configurable
// workflow engine.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusPendingCEOReview  Status = "pending_ceo_review"
	StatusRejectedByCEO     Status = "rejected_by_ceo"
	StatusReturnedToSales   Status = "returned_to_sales"
	StatusPendingDesign     Status = "pending_design"
	StatusInDesign          Status = "in_design"
	StatusDesignReview      Status = "design_review"
	StatusDesignCompleted   Status = "design_completed"
	StatusPendingMaterials  Status = "pending_materials"
	StatusMaterialsProgress Status = "materials_in_progress"
	StatusMaterialsReady    Status = "materials_ready"
	StatusPendingPrinting   Status = "pending_printing"
	StatusInPrinting        Status = "in_printing"
	StatusPrintingCompleted Status = "printing_completed"
	StatusPendingPayment    Status = "pending_payment"
	StatusPaymentConfirmed  Status = "payment_confirmed"
	StatusReadyForDispatch  Status = "ready_for_dispatch"
	StatusInDispatch        Status = "in_dispatch"
	StatusDelivered         Status = "delivered"
	StatusCancelled         Status = "cancelled"
	StatusOnHold            Status = "on_hold"
)

// AllStatuses lists every workflow state.
func AllStatuses() []Status {
	return []Status{
		StatusDraft, StatusPendingCEOReview, StatusRejectedByCEO, StatusReturnedToSales,
		StatusPendingDesign, StatusInDesign, StatusDesignReview, StatusDesignCompleted,
		StatusPendingMaterials, StatusMaterialsProgress, StatusMaterialsReady,
		StatusPendingPrinting, StatusInPrinting, StatusPrintingCompleted,
		StatusPendingPayment, StatusPaymentConfirmed,
		StatusReadyForDispatch, StatusInDispatch, StatusDelivered,
		StatusCancelled, StatusOnHold,
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusDepartments[s]
	return ok
}

// Terminal reports whether s is absorbing: no further transitions exist.
func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusRejectedByCEO:
		return true
	}
	return false
}

// Forward edges of the canonical path plus side branches. Escape hatches to
// cancelled and on_hold, and resumption out of on_hold, are handled in
// CanTransition rather than enumerated here.
var statusGraph = map[Status][]Status{
	StatusDraft:             {StatusPendingCEOReview},
	StatusPendingCEOReview:  {StatusPendingDesign, StatusRejectedByCEO, StatusReturnedToSales},
	StatusReturnedToSales:   {StatusPendingCEOReview},
	StatusPendingDesign:     {StatusInDesign},
	StatusInDesign:          {StatusDesignReview},
	StatusDesignReview:      {StatusDesignCompleted},
	StatusDesignCompleted:   {StatusPendingMaterials},
	StatusPendingMaterials:  {StatusMaterialsProgress},
	StatusMaterialsProgress: {StatusMaterialsReady},
	StatusMaterialsReady:    {StatusPendingPrinting},
	StatusPendingPrinting:   {StatusInPrinting},
	StatusInPrinting:        {StatusPrintingCompleted},
	StatusPrintingCompleted: {StatusPendingPayment},
	StatusPendingPayment:    {StatusPaymentConfirmed},
	StatusPaymentConfirmed:  {StatusReadyForDispatch},
	StatusReadyForDispatch:  {StatusInDispatch},
	StatusInDispatch:        {StatusDelivered},
}

// statusDepartments maps each status to the department that owns it: only
// actors of that department (or the CEO) may advance an order out of it.
var statusDepartments = map[Status]shared.Department{
	StatusDraft:             shared.DepartmentSales,
	StatusReturnedToSales:   shared.DepartmentSales,
	StatusPendingMaterials:  shared.DepartmentSales,
	StatusMaterialsProgress: shared.DepartmentSales,
	StatusMaterialsReady:    shared.DepartmentSales,
	StatusPendingCEOReview:  shared.DepartmentManagement,
	StatusRejectedByCEO:     shared.DepartmentManagement,
	StatusCancelled:         shared.DepartmentManagement,
	StatusOnHold:            shared.DepartmentManagement,
	StatusPendingDesign:     shared.DepartmentDesign,
	StatusInDesign:          shared.DepartmentDesign,
	StatusDesignReview:      shared.DepartmentDesign,
	StatusDesignCompleted:   shared.DepartmentDesign,
	StatusPendingPrinting:   shared.DepartmentPrinting,
	StatusInPrinting:        shared.DepartmentPrinting,
	StatusPrintingCompleted: shared.DepartmentPrinting,
	StatusPendingPayment:    shared.DepartmentAccounting,
	StatusPaymentConfirmed:  shared.DepartmentAccounting,
	StatusReadyForDispatch:  shared.DepartmentDispatch,
	StatusInDispatch:        shared.DepartmentDispatch,
	StatusDelivered:         shared.DepartmentDispatch,
}

// DepartmentFor returns the department gating transitions out of s.
func DepartmentFor(s Status) shared.Department {
	return statusDepartments[s]
}

// StatusesFor returns the statuses owned by one department, used as the
// read-side visibility subset for non-head department members.
func StatusesFor(dept shared.Department) []Status {
	var out []Status
	for _, s := range AllStatuses() {
		if statusDepartments[s] == dept {
			out = append(out, s)
		}
	}
	return out
}

// CanTransition reports whether from → to is an edge of the state graph.
// Any non-terminal state may escape to cancelled or on_hold; on_hold may
// resume to any non-terminal state. There is no separate revert operation.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() || from == to {
		return false
	}
	if from.Terminal() {
		return false
	}
	if to == StatusCancelled || to == StatusOnHold {
		return true
	}
	if from == StatusOnHold {
		return !to.Terminal()
	}
	for _, next := range statusGraph[from] {
		if next == to {
			return true
		}
	}
	return false
}
