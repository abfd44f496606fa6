// Package export renders project status reports and converts them to PDF
// with headless Chrome.
package export

import (
	"errors"
	"time"
)

// ReportData is everything the project report template needs, pre-resolved
// by the caller so the renderer stays free of storage concerns.
type ReportData struct {
	ProjectName string
	Description string
	Status      string
	Color       string
	Progress    int
	GeneratedAt time.Time
	Members     []MemberRow
	Tasks       []TaskRow
	Reports     []DailyReportRow
}

type MemberRow struct {
	Name string
	Role string
}

type TaskRow struct {
	Title    string
	Status   string
	Priority string
	Progress int
	Assignee string
	Due      string
	Subtasks []SubtaskRow
}

type SubtaskRow struct {
	Title    string
	Status   string
	Progress int
}

type DailyReportRow struct {
	Date     string
	Author   string
	Summary  string
	Blockers string
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
var ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
