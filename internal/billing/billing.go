// Package billing flips exported tasks from open to billed.
package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/peterpeterparker/leancow/internal/models"
	"github.com/peterpeterparker/leancow/internal/store"
)

// Bill transitions every open task matching projectID (empty matches all)
// to billed in each named invoice bucket, stamping the transition time. It
// runs against every bucket the caller named, whether or not the bucket
// contributed to the exported document. When bill is false nothing is
// touched. Buckets are written back independently and concurrently; missing
// buckets are skipped. Already billed tasks are left alone, so a second run
// changes nothing.
func Bill(st store.Store, invoiceIDs []string, projectID string, bill bool, now time.Time) error {
	if !bill {
		return nil
	}

	errs := make([]error, len(invoiceIDs))

	var wg sync.WaitGroup
	for i, invoiceID := range invoiceIDs {
		wg.Add(1)
		go func(i int, invoiceID string) {
			defer wg.Done()
			errs[i] = billBucket(st, invoiceID, projectID, now)
		}(i, invoiceID)
	}
	wg.Wait()

	return errors.Join(errs...)
}

func billBucket(st store.Store, invoiceID, projectID string, now time.Time) error {
	key := store.TaskKey(invoiceID)

	return st.Update(key, func(value []byte) ([]byte, error) {
		if value == nil {
			return nil, nil
		}

		var tasks []models.Task
		if err := json.Unmarshal(value, &tasks); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}

		changed := false
		for i, task := range tasks {
			if task.Status != models.StatusOpen {
				continue
			}
			if projectID != "" && task.ProjectID != projectID {
				continue
			}
			tasks[i].Status = models.StatusBilled
			tasks[i].UpdatedAt = now
			changed = true
		}

		if !changed {
			return nil, nil
		}

		next, err := json.MarshalIndent(tasks, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		return next, nil
	})
}
