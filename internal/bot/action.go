// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bot

import "regexp"

// ActionKind classifies an interactive action by its display label.
type ActionKind int

const (
	ActionOther ActionKind = iota
	ActionRequest
	ActionDownload
	ActionPagination
)

var (
	// paginationHandlePattern is the reserved handle shape for "more
	// results" actions.
	paginationHandlePattern = regexp.MustCompile(`(?i)^(?:page|more|next)[_:/-]`)

	requestLabelPattern  = regexp.MustCompile(`(?i)\brequest\b`)
	downloadLabelPattern = regexp.MustCompile(`(?i)\b(download|get|fetch)\b|⬇`)
	moreLabelPattern     = regexp.MustCompile(`(?i)\bmore\b|\bnext\b|»`)
)

// Classify determines what pressing the action would do. Handles
// matching the reserved pagination pattern are pagination regardless of
// label.
func Classify(a Action) ActionKind {
	switch {
	case paginationHandlePattern.MatchString(a.Handle):
		return ActionPagination
	case requestLabelPattern.MatchString(a.Label):
		return ActionRequest
	case downloadLabelPattern.MatchString(a.Label):
		return ActionDownload
	case moreLabelPattern.MatchString(a.Label):
		return ActionPagination
	default:
		return ActionOther
	}
}

// paginationAction returns the first untried pagination action in
// discovery order, or nil when none remains.
func paginationAction(m Message, tried map[string]bool) *Action {
	for i := range m.Actions {
		a := &m.Actions[i]
		if Classify(*a) == ActionPagination && !tried[a.Handle] {
			return a
		}
	}
	return nil
}

// firstInteractive returns the first action on the message, or nil.
// Only the first action is ever classified for the request/download
// decision.
func firstInteractive(m Message) *Action {
	if len(m.Actions) == 0 {
		return nil
	}
	return &m.Actions[0]
}
