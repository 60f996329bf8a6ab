package export

import (
	"sync"

	"github.com/peterpeterparker/leancow/internal/models"
	"github.com/peterpeterparker/leancow/internal/store"
)

// Aggregate fans out one fetch-and-convert per invoice id and concatenates
// the results in input order, keeping each bucket's own task order. Only
// open tasks contribute; with a non-empty projectID the bucket is further
// narrowed to that project. A missing bucket, a bucket with nothing left
// after filtering, or a failed fetch contributes nothing. A nil result is
// the empty signal, never an error.
func Aggregate(st store.Store, invoiceIDs []string, projects map[string]models.Project, clients map[string]models.Client, projectID string, roundMinutes int) []LineItem {
	results := make([][]LineItem, len(invoiceIDs))

	var wg sync.WaitGroup
	for i, invoiceID := range invoiceIDs {
		wg.Add(1)
		go func(i int, invoiceID string) {
			defer wg.Done()
			results[i] = collect(st, invoiceID, projects, clients, projectID, roundMinutes)
		}(i, invoiceID)
	}
	wg.Wait()

	var items []LineItem
	for _, r := range results {
		items = append(items, r...)
	}
	return items
}

func collect(st store.Store, invoiceID string, projects map[string]models.Project, clients map[string]models.Client, projectID string, roundMinutes int) []LineItem {
	tasks, err := store.Tasks(st, invoiceID)
	if err != nil || len(tasks) == 0 {
		return nil
	}

	var items []LineItem
	for _, task := range tasks {
		if task.Status != models.StatusOpen {
			continue
		}
		if projectID != "" && task.ProjectID != projectID {
			continue
		}
		if item, ok := ConvertTask(task, projects, clients, roundMinutes); ok {
			items = append(items, item)
		}
	}
	return items
}
