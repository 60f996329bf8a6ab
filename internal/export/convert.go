package export

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/peterpeterparker/leancow/internal/models"
)

// LineItem is one billable row of an export. Line items are derived from
// tasks per invocation and never persisted.
type LineItem struct {
	ProjectID   string
	ProjectName string
	ClientName  string // empty on the project-scoped path
	Description string
	From        time.Time
	To          time.Time
	Duration    time.Duration // rounded
	Rate        decimal.Decimal
	Amount      decimal.Decimal
}

// RoundDuration rounds d half-up to the nearest granularity in minutes.
// A granularity of zero leaves d untouched.
func RoundDuration(d time.Duration, roundMinutes int) time.Duration {
	if roundMinutes <= 0 {
		return d
	}
	g := time.Duration(roundMinutes) * time.Minute
	return (d + g/2) / g * g
}

// ConvertTask turns one task into a line item. It reports false for tasks
// that are not open anymore or reference an unknown project; both are
// filtered upstream but guarded here as well. When clients is nil the client
// name stays empty.
func ConvertTask(task models.Task, projects map[string]models.Project, clients map[string]models.Client, roundMinutes int) (LineItem, bool) {
	if task.Status != models.StatusOpen {
		return LineItem{}, false
	}

	project, ok := projects[task.ProjectID]
	if !ok {
		return LineItem{}, false
	}

	duration := RoundDuration(task.Duration(), roundMinutes)
	rate := decimal.NewFromFloat(project.Rate.Hourly)
	amount := decimal.NewFromFloat(duration.Hours()).Mul(rate).Round(2)

	item := LineItem{
		ProjectID:   project.ID,
		ProjectName: project.Name,
		Description: task.Description,
		From:        task.From,
		To:          task.To,
		Duration:    duration,
		Rate:        rate,
		Amount:      amount,
	}

	if clients != nil {
		if client, ok := clients[project.ClientID]; ok {
			item.ClientName = client.Name
		}
	}

	return item, true
}

// ProjectMap indexes projects by id.
func ProjectMap(projects []models.Project) map[string]models.Project {
	m := make(map[string]models.Project, len(projects))
	for _, p := range projects {
		m[p.ID] = p
	}
	return m
}

// ClientMap indexes clients by id.
func ClientMap(clients []models.Client) map[string]models.Client {
	m := make(map[string]models.Client, len(clients))
	for _, c := range clients {
		m[c.ID] = c
	}
	return m
}
