package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

type authView struct {
	Registering bool
	Email       string
	Error       string
}

type entryRow struct {
	ClockIn  string
	ClockOut string
	Hours    string
	Open     bool
}

type dashboardView struct {
	UserID    string
	Email     string
	Anonymous bool
	Message   string
	ClockedIn bool
	Entries   []entryRow
	Accrued   string
	Used      string
	Balance   string
}
