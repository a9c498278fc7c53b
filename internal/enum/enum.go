package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	ScheduledStatusScheduled = "scheduled"
	ScheduledStatusProcessed = "processed"
)

const (
	OrderStatusPending           = "pending"
	OrderStatusBillingPending    = "billing_pending"
	OrderStatusBillingSuccessful = "billing_successful"
	OrderStatusBillingFailed     = "billing_failed"
)

const (
	BillingStatusPending    = "pending"
	BillingStatusSuccessful = "successful"
	BillingStatusFailed     = "failed"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	ServiceTypeFood   = "Food"
	ServiceTypeMeal   = "Meal"
	ServiceTypeBoxes  = "Boxes"
	ServiceTypeCustom = "Custom"
)

const (
	UserRoleAdmin     = "ADMIN"
	UserRoleNavigator = "NAVIGATOR"
	UserRoleVendor    = "VENDOR"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	HistoryTypeOrderCreated = "order_created"
	HistoryTypeConfigSaved  = "config_saved"
)

const (
	ValidationValid         = "valid"
	ValidationInvalidVendor = "invalid_vendor"
	ValidationInvalidDay    = "invalid_day"
	ValidationMissingVendor = "missing_vendor"
	ValidationNoOrderData   = "no_order_data"
)

// MealTypeDefault is the meal type for headers that are not keyed by a meal.
// Meal keys are trimmed and empty ones dropped, so no meal can take it.
const MealTypeDefault = ""

// IsServiceType reports whether s is one of the fixed service types.
func IsServiceType(s string) bool {
	switch s {
	case ServiceTypeFood, ServiceTypeMeal, ServiceTypeBoxes, ServiceTypeCustom:
		return true
	}
	return false
}
