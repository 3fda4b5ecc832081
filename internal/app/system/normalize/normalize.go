// Package normalize trims and case-folds user-supplied values before they
// are validated or stored.
package normalize

import "strings"

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display value, preserving case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Username trims a login name, preserving case. Uniqueness is checked on
// the folded form.
func Username(s string) string {
	return strings.TrimSpace(s)
}

// Mode trims and uppercases a join mode, post mode, request type or review
// action ("open" -> "OPEN").
func Mode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Level trims and lowercases a permission level or system role.
func Level(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam trims a query-string value, preserving case.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
