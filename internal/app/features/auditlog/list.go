// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/campusboard/internal/app/store/audit"
	"github.com/dalemusser/campusboard/internal/app/system/apperr"
	"github.com/dalemusser/campusboard/internal/app/system/httpjson"
	"github.com/dalemusser/campusboard/internal/app/system/paging"
	"github.com/dalemusser/campusboard/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ServeList handles GET /audit - returns a page of audit events with filtering.
//
// Query parameters: category, event_type, start_date and end_date
// (YYYY-MM-DD, end date inclusive), user_id, group_id, page.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	q := r.URL.Query()
	category := strings.TrimSpace(q.Get("category"))
	eventType := strings.TrimSpace(q.Get("event_type"))
	startDate := strings.TrimSpace(q.Get("start_date"))
	endDate := strings.TrimSpace(q.Get("end_date"))

	page := paging.Parse(r, paging.PageSize)

	filter := audit.QueryFilter{
		Category:  category,
		EventType: eventType,
		Limit:     page.Limit(),
		Offset:    page.Skip(),
	}

	if startDate != "" {
		t, err := time.Parse("2006-01-02", startDate)
		if err != nil {
			httpjson.WriteErr(w, r, h.Log, apperr.Invalid("start_date must be YYYY-MM-DD"))
			return
		}
		filter.StartTime = &t
	}
	if endDate != "" {
		t, err := time.Parse("2006-01-02", endDate)
		if err != nil {
			httpjson.WriteErr(w, r, h.Log, apperr.Invalid("end_date must be YYYY-MM-DD"))
			return
		}
		// End of day
		endOfDay := t.Add(24*time.Hour - time.Second)
		filter.EndTime = &endOfDay
	}
	if v := strings.TrimSpace(q.Get("user_id")); v != "" {
		oid, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			httpjson.WriteErr(w, r, h.Log, apperr.Invalid("bad user_id"))
			return
		}
		filter.UserID = &oid
	}
	if v := strings.TrimSpace(q.Get("group_id")); v != "" {
		oid, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			httpjson.WriteErr(w, r, h.Log, apperr.Invalid("bad group_id"))
			return
		}
		filter.GroupID = &oid
	}

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}
	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		httpjson.WriteErr(w, r, h.Log, err)
		return
	}

	// Collect unique user and group IDs for name resolution
	userIDs := make(map[primitive.ObjectID]struct{})
	groupIDs := make(map[primitive.ObjectID]struct{})
	for _, e := range events {
		if e.ActorID != nil {
			userIDs[*e.ActorID] = struct{}{}
		}
		if e.UserID != nil {
			userIDs[*e.UserID] = struct{}{}
		}
		if e.GroupID != nil {
			groupIDs[*e.GroupID] = struct{}{}
		}
	}

	// Name lookups are best effort; the raw id is shown when one fails.
	userNames := make(map[primitive.ObjectID]string)
	if len(userIDs) > 0 {
		users, err := h.Users.ListByIDs(ctx, keys(userIDs))
		if err != nil {
			h.Log.Warn("failed to fetch user names for audit log", zap.Error(err))
		} else {
			for id, u := range users {
				userNames[id] = u.Username
			}
		}
	}
	groupNames := make(map[primitive.ObjectID]string)
	if len(groupIDs) > 0 {
		groups, err := h.Groups.ListByIDs(ctx, keys(groupIDs))
		if err != nil {
			h.Log.Warn("failed to fetch group names for audit log", zap.Error(err))
		} else {
			for _, g := range groups {
				groupNames[g.ID] = g.Name
			}
		}
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		item := listItem{
			ID:            e.ID.Hex(),
			Timestamp:     e.Timestamp,
			Category:      e.Category,
			EventType:     e.EventType,
			IP:            e.IP,
			CorrelationID: e.CorrelationID,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		}
		if e.ActorID != nil {
			item.ActorName = nameOr(userNames, *e.ActorID)
		}
		if e.UserID != nil {
			item.TargetName = nameOr(userNames, *e.UserID)
		}
		if e.GroupID != nil {
			item.GroupName = nameOr(groupNames, *e.GroupID)
		}
		if e.RequestID != nil {
			item.RequestID = e.RequestID.Hex()
		}
		items = append(items, item)
	}

	httpjson.Write(w, http.StatusOK, listResponse{
		Items:      items,
		Category:   category,
		EventType:  eventType,
		StartDate:  startDate,
		EndDate:    endDate,
		Categories: allCategories(),
		EventTypes: eventTypesForCategory(category),
		Result:     page.Describe(total),
	})
}

func keys(m map[primitive.ObjectID]struct{}) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}

func nameOr(names map[primitive.ObjectID]string, id primitive.ObjectID) string {
	if name, ok := names[id]; ok {
		return name
	}
	return id.Hex()
}
