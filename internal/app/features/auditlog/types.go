// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/campusboard/internal/app/store/audit"
	"github.com/dalemusser/campusboard/internal/app/system/paging"
)

// listItem is a single audit event with names resolved for display.
type listItem struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"eventType"`
	ActorName     string            `json:"actorName,omitempty"`  // resolved from ActorID
	TargetName    string            `json:"targetName,omitempty"` // resolved from UserID
	GroupName     string            `json:"groupName,omitempty"`  // resolved from GroupID
	RequestID     string            `json:"requestId,omitempty"`
	IP            string            `json:"ip"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failureReason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

// listResponse is the body of GET /audit.
type listResponse struct {
	Items []listItem `json:"items"`

	// Filters
	Category  string `json:"category,omitempty"`
	EventType string `json:"eventType,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`

	// Filter options
	Categories []categoryOption `json:"categories"`
	EventTypes []string         `json:"eventTypes"`

	paging.Result
}

// categoryOption represents a category for the filter dropdown.
type categoryOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// allCategories returns the available categories for filtering.
func allCategories() []categoryOption {
	return []categoryOption{
		{Value: audit.CategoryAuth, Label: "Authentication"},
		{Value: audit.CategoryGroup, Label: "Groups"},
		{Value: audit.CategoryRequest, Label: "Requests"},
		// Security category has no events yet - add back when implemented
	}
}

// eventTypesForCategory returns the event types for a given category.
// If category is empty, returns all event types.
func eventTypesForCategory(category string) []string {
	authEvents := []string{
		audit.EventRegistered,
		audit.EventRegistrationCodeSent,
		audit.EventLoginSuccess,
		audit.EventLoginMFARequired,
		audit.EventLoginFailedUserNotFound,
		audit.EventLoginFailedWrongPassword,
		audit.EventLoginFailedRateLimit,
		audit.EventVerificationCodeFailed,
		audit.EventLogout,
	}

	groupEvents := []string{
		audit.EventGroupCreated,
		audit.EventGroupUpdated,
		audit.EventMemberJoined,
		audit.EventMemberLevelGranted,
		audit.EventPostCreated,
	}

	requestEvents := []string{
		audit.EventRequestSubmitted,
		audit.EventRequestApproved,
		audit.EventRequestRejected,
	}

	switch category {
	case audit.CategoryAuth:
		return authEvents
	case audit.CategoryGroup:
		return groupEvents
	case audit.CategoryRequest:
		return requestEvents
	case "":
		// Return all event types when no category selected
		all := make([]string, 0, len(authEvents)+len(groupEvents)+len(requestEvents))
		all = append(all, authEvents...)
		all = append(all, groupEvents...)
		all = append(all, requestEvents...)
		return all
	default:
		return []string{}
	}
}
