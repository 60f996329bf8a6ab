package export

import (
	"github.com/shopspring/decimal"

	"github.com/peterpeterparker/leancow/internal/models"
)

// Labels is the caller-supplied localization set for generated documents.
type Labels struct {
	Title       string
	Date        string
	Client      string
	Project     string
	Description string
	Duration    string
	Amount      string
	Total       string
	VAT         string
	Signature   string
}

// DefaultLabels is the built-in English set.
func DefaultLabels() *Labels {
	return &Labels{
		Title:       "Invoice",
		Date:        "Date",
		Client:      "Client",
		Project:     "Project",
		Description: "Description",
		Duration:    "Duration",
		Amount:      "Amount",
		Total:       "Total",
		VAT:         "VAT",
		Signature:   "Signature",
	}
}

// Params carries the formatting context shared by both generators.
type Params struct {
	Currency  string
	VAT       *float64 // percent, nil disables the VAT summary
	Client    *models.Client
	Labels    *Labels
	Locale    string
	Signature string
}

// Generator produces one binary document from a flat list of line items.
// Implementations must tolerate an empty list.
type Generator interface {
	Generate(items []LineItem, p Params) ([]byte, error)
}

// total sums the billable amounts.
func total(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Amount)
	}
	return sum
}

// vatAmount is the VAT share of sum at the given percentage.
func vatAmount(sum decimal.Decimal, vat float64) decimal.Decimal {
	return sum.Mul(decimal.NewFromFloat(vat)).Div(decimal.NewFromInt(100)).Round(2)
}

// withClientColumn reports whether any line item resolved a client name.
// The project-scoped path leaves client fields empty and drops the column.
func withClientColumn(items []LineItem) bool {
	for _, item := range items {
		if item.ClientName != "" {
			return true
		}
	}
	return false
}

// headerRow builds the translated column captions.
func headerRow(labels *Labels, withClient bool) []string {
	headers := []string{labels.Date}
	if withClient {
		headers = append(headers, labels.Client)
	}
	return append(headers, labels.Project, labels.Description, labels.Duration, labels.Amount)
}

// itemRow renders one line item with the same column layout as headerRow.
func itemRow(item LineItem, p Params, withClient bool) []string {
	row := []string{item.From.Format("2006-01-02")}
	if withClient {
		row = append(row, item.ClientName)
	}
	return append(row,
		item.ProjectName,
		item.Description,
		FormatDuration(item.Duration),
		FormatAmount(item.Amount, p.Currency, p.Locale),
	)
}

// documentTitle is the heading of both document formats.
func documentTitle(p Params) string {
	if p.Client != nil && p.Client.Name != "" {
		return p.Labels.Title + " - " + p.Client.Name
	}
	return p.Labels.Title
}
