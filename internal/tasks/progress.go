package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase (0 when unknown)
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchLibraries Phase = iota
	FetchMedia
	FetchChildren
	FetchHistory
	Cleanup
	Finalize
)

func (p Phase) String() string {
	switch p {
	case FetchLibraries:
		return "fetch_libraries"
	case FetchMedia:
		return "fetch_media"
	case FetchChildren:
		return "fetch_children"
	case FetchHistory:
		return "fetch_history"
	case Cleanup:
		return "cleanup"
	case Finalize:
		return "finalize"
	default:
		return ""
	}
}

func librariesUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLibraries,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d library sections", count),
	}
}

func sectionUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchMedia,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Syncing library: %s", step, total, name),
	}
}

func mediaPageUpdate(fetched, total int, section string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchMedia,
		Step:    fetched,
		Total:   total,
		Message: fmt.Sprintf("%s: %d/%d items", section, fetched, total),
	}
}

func childrenUpdate(key, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchChildren,
		Message: fmt.Sprintf("Expanding %s (%s)", title, key),
	}
}

func historyPageUpdate(fetched, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchHistory,
		Step:    fetched,
		Total:   total,
		Message: fmt.Sprintf("History: %d/%d records", fetched, total),
	}
}

func cleanupUpdate(removed int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Cleanup,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Removed %d stale items", removed),
	}
}

func finalizeUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   Finalize,
		Step:    1,
		Total:   1,
		Message: "Committing changes...",
	}
}
