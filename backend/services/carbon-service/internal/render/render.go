package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"carboncheck/backend/services/carbon-service/internal/models"
)

// LabelLayout formats x-axis labels of the Chart.js view.
const LabelLayout = "2006-01-02 15:04:05"

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// GraphPage feeds the Google Charts view.
type GraphPage struct {
	Banner      string
	Description string
	Threshold   int
	// Rows are [row key, intensity, threshold] triples, oldest first.
	Rows [][]interface{}
}

// ChartPage feeds the Chart.js view.
type ChartPage struct {
	Banner    string
	Threshold int
	Labels    []string
	Values    []int
}

// Banner returns the heading shown for an environment. Production and unnamed
// environments get none.
func Banner(environment string) string {
	environment = strings.TrimSpace(environment)
	if strings.EqualFold(environment, "Production") {
		return ""
	}
	return environment
}

// NewGraphPage builds the Google Charts view from readings ordered oldest first.
func NewGraphPage(readings []models.Reading, threshold, maxRecords int, environment string) GraphPage {
	rows := make([][]interface{}, 0, len(readings))
	for _, r := range readings {
		rows = append(rows, []interface{}{r.RowKey, r.Intensity, threshold})
	}
	return GraphPage{
		Banner:      Banner(environment),
		Description: fmt.Sprintf("Last %d records with threshold of %d", maxRecords, threshold),
		Threshold:   threshold,
		Rows:        rows,
	}
}

// NewChartPage builds the Chart.js view from readings ordered oldest first.
func NewChartPage(readings []models.Reading, threshold int, environment string) ChartPage {
	page := ChartPage{
		Banner:    Banner(environment),
		Threshold: threshold,
		Labels:    make([]string, 0, len(readings)),
		Values:    make([]int, 0, len(readings)),
	}
	for _, r := range readings {
		page.Labels = append(page.Labels, r.CreatedTime.UTC().Format(LabelLayout))
		page.Values = append(page.Values, r.Intensity)
	}
	return page
}

// Graph writes the Google Charts page.
func Graph(w io.Writer, page GraphPage) error {
	return templates.ExecuteTemplate(w, "graph.html", page)
}

// Chart writes the Chart.js page.
func Chart(w io.Writer, page ChartPage) error {
	return templates.ExecuteTemplate(w, "chart.html", page)
}
