package summarization

import (
	"strings"

	"recap/internal/meeting"
)

const (
	summaryMarker     = "SUMMARY:"
	actionItemsMarker = "ACTION ITEMS:"
)

// parseResponse splits the model reply into a narrative summary and action
// items. A reply without the section marker is treated as pure summary; a
// malformed item line is dropped rather than failing the stage.
func parseResponse(response string) (string, []meeting.ActionItem) {
	parts := strings.SplitN(response, actionItemsMarker, 2)
	if len(parts) != 2 {
		return strings.TrimSpace(response), nil
	}

	summary := strings.TrimSpace(strings.Replace(parts[0], summaryMarker, "", 1))
	itemsPart := strings.TrimSpace(parts[1])
	if strings.EqualFold(itemsPart, "none") {
		return summary, nil
	}

	var items []meeting.ActionItem
	for _, line := range strings.Split(itemsPart, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "•") {
			continue
		}
		line = strings.TrimSpace(strings.TrimLeft(line, "-•"))

		item := meeting.ActionItem{
			Owner:   meeting.UnassignedOwner,
			DueDate: meeting.UnspecifiedDue,
		}
		for _, field := range strings.Split(line, "|") {
			field = strings.TrimSpace(field)
			switch {
			case strings.HasPrefix(field, "Action:"):
				item.Action = strings.TrimSpace(strings.TrimPrefix(field, "Action:"))
			case strings.HasPrefix(field, "Owner:"):
				if owner := strings.TrimSpace(strings.TrimPrefix(field, "Owner:")); owner != "" {
					item.Owner = owner
				}
			case strings.HasPrefix(field, "Due:"):
				if due := strings.TrimSpace(strings.TrimPrefix(field, "Due:")); due != "" {
					item.DueDate = due
				}
			}
		}
		if item.Action == "" {
			continue
		}
		items = append(items, item)
	}
	return summary, items
}
