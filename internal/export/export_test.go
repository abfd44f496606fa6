package export

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestResolveBrowserHonorsOverride(t *testing.T) {
	t.Setenv("TANDEM_BROWSER_BIN", "no-such-browser-binary")
	_, err := resolveBrowser()
	if !errors.Is(err, ErrPDFDependencyMissing) {
		t.Fatalf("err = %v, want ErrPDFDependencyMissing", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello-World"},
		{"Launch v1.2", "Launch-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "project-report"},
		{"Very Long Project Name That Exceeds Fifty Character Limit", "Very-Long-Project-Name-That-Exceeds-Fifty-Characte"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},
		{"test+sign", "test%2Bsign"},
		{"special<>", "special%3C%3E"},
		{"normal-text.txt", "normal-text.txt"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := percentEncodeForDataURL(tt.input)
			if result != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRenderReportHTML(t *testing.T) {
	data := ReportData{
		ProjectName: "Launch",
		Description: "The big release",
		Status:      "active",
		Color:       "#6366f1",
		Progress:    42,
		GeneratedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Members: []MemberRow{
			{Name: "Olive", Role: "owner"},
			{Name: "Ed", Role: "editor"},
		},
		Tasks: []TaskRow{
			{
				Title:    "Build backend",
				Status:   "in_progress",
				Priority: "high",
				Progress: 50,
				Assignee: "Ed",
				Due:      "Mar 20, 2026",
				Subtasks: []SubtaskRow{
					{Title: "Write handlers", Status: "done", Progress: 100},
				},
			},
		},
		Reports: []DailyReportRow{
			{Date: "Mar 13, 2026", Author: "Ed", Summary: "Handlers landed", Blockers: "Waiting on schema review"},
		},
	}

	html, err := RenderReportHTML(data)
	if err != nil {
		t.Fatalf("RenderReportHTML() error = %v", err)
	}

	for _, want := range []string{
		"Launch",
		"The big release",
		"42%",
		"Mar 14, 2026 09:30",
		"Olive",
		"Build backend",
		"Write handlers",
		"Handlers landed",
		"Blockers: Waiting on schema review",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}

	// Status classes drive the styling, keep them lowercased.
	if !strings.Contains(html, `class="status in_progress"`) {
		t.Error("HTML missing lowercased status class")
	}
	// The accent color flows into the inline styles.
	if !strings.Contains(html, "#6366f1") {
		t.Error("HTML missing project color")
	}
}

func TestRenderReportHTMLEmptyTasks(t *testing.T) {
	html, err := RenderReportHTML(ReportData{
		ProjectName: "Empty",
		Status:      "active",
		Color:       "#6366f1",
		GeneratedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("RenderReportHTML() error = %v", err)
	}
	if !strings.Contains(html, "No tasks yet.") {
		t.Error("HTML should note the empty task list")
	}
}
