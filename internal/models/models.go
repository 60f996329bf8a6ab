package models

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceStatus tracks whether a task has been billed yet.
type InvoiceStatus string

const (
	StatusOpen   InvoiceStatus = "open"
	StatusBilled InvoiceStatus = "billed"
)

// Task represents a single tracked time interval. Tasks are persisted in
// per-invoice buckets under the key "tasks-<invoice-id>".
type Task struct {
	ID          string        `json:"id"`
	ProjectID   string        `json:"project_id"`
	Status      InvoiceStatus `json:"status"`
	From        time.Time     `json:"from"`
	To          time.Time     `json:"to"`
	Description string        `json:"description,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// NewTask creates an open task for the given project and interval.
func NewTask(projectID string, from, to time.Time, description string) Task {
	return Task{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Status:      StatusOpen,
		From:        from,
		To:          to,
		Description: description,
		UpdatedAt:   time.Now(),
	}
}

// Duration is the raw tracked time, stop minus start.
func (t Task) Duration() time.Duration {
	return t.To.Sub(t.From)
}

// Rate is the billing rate attached to a project.
type Rate struct {
	Hourly float64 `json:"hourly"`
	VAT    bool    `json:"vat"`
}

// Budget tracks how much of a project's envelope has been billed so far.
type Budget struct {
	Total  float64 `json:"total"`
	Billed float64 `json:"billed"`
}

// Project represents a billable engagement for a client.
type Project struct {
	ID       string     `json:"id"`
	ClientID string     `json:"client_id"`
	Name     string     `json:"name"`
	From     time.Time  `json:"from"`
	To       *time.Time `json:"to,omitempty"`
	Rate     Rate       `json:"rate"`
	Budget   *Budget    `json:"budget,omitempty"`
}

// ActiveAt reports whether the project is active at the given time.
// A project without an end date is active indefinitely.
func (p Project) ActiveAt(t time.Time) bool {
	if t.Before(p.From) {
		return false
	}
	return p.To == nil || t.Before(*p.To)
}

// NewProject creates a project for a client, active from now on.
func NewProject(clientID, name string, rate Rate) Project {
	return Project{
		ID:       uuid.NewString(),
		ClientID: clientID,
		Name:     name,
		From:     time.Now(),
		Rate:     rate,
	}
}

// Client represents a customer. The color is only used for document
// styling, never for aggregation.
type Client struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// NewClient creates a client.
func NewClient(name, color string) Client {
	return Client{
		ID:    uuid.NewString(),
		Name:  name,
		Color: color,
	}
}
