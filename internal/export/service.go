package export

import "fmt"

// Service turns pre-assembled report data into downloadable artifacts.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// ProjectReport renders the report template and prints it to PDF.
func (s *Service) ProjectReport(data ReportData) (*Result, error) {
	html, err := RenderReportHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return exportPDF(html, data.ProjectName)
}
