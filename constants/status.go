package constants

// RunStatus is the canonical status for rows in import_run.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED" // every item purchased
	RunStatusPartial   RunStatus = "PARTIAL"   // some items skipped
	RunStatusFailed    RunStatus = "FAILED"    // receipt-level failure
)

// ItemStatus is the outcome of one receipt line.
type ItemStatus string

const (
	ItemStatusPurchased ItemStatus = "PURCHASED"
	ItemStatusSkipped   ItemStatus = "SKIPPED"
)
