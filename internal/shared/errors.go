package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing Tautulli credentials")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNoData             = fmt.Errorf("no data returned")

	// Store errors
	ErrDatabaseLocked  = fmt.Errorf("database is locked")
	ErrTransactionOpen = fmt.Errorf("transaction already open")
	ErrNoTransaction   = fmt.Errorf("no open transaction")
	ErrNotFound        = fmt.Errorf("record not found")

	// Sync errors
	ErrSyncAborted = fmt.Errorf("sync aborted")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
