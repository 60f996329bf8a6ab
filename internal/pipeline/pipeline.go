// Package pipeline drives the export and backup jobs. A Pipeline owns one
// background worker fed through a job channel; callers exchange a request
// for a single-shot result channel, mirroring a worker message boundary
// without shared state.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/peterpeterparker/leancow/internal/backup"
	"github.com/peterpeterparker/leancow/internal/billing"
	"github.com/peterpeterparker/leancow/internal/delivery"
	"github.com/peterpeterparker/leancow/internal/export"
	"github.com/peterpeterparker/leancow/internal/models"
	"github.com/peterpeterparker/leancow/internal/store"
)

// Format selects the export document type.
type Format string

const (
	FormatExcel Format = "xlsx"
	FormatPDF   Format = "pdf"
)

// ExportRequest describes one export job. From and To only feed the
// suggested filename; the invoice ids drive the aggregation.
type ExportRequest struct {
	Invoices  []string
	ProjectID string // empty exports all open tasks across projects
	Currency  string
	VAT       *float64
	Bill      bool
	Client    *models.Client
	Labels    *export.Labels
	Locale    string
	Format    Format
	Signature string
	RoundTime int // minutes
	From      *time.Time
	To        *time.Time
}

// BackupRequest describes one store snapshot job.
type BackupRequest struct {
	Format backup.Format
}

// Result is the single response of a job. Nil Data with nil Err is the
// empty signal: nothing matched, which is a normal outcome and never an
// error.
type Result struct {
	Data     []byte
	Filename string
	Err      error
}

// Empty reports whether the job completed without producing a document.
func (r Result) Empty() bool {
	return r.Err == nil && len(r.Data) == 0
}

// ErrClosed rejects jobs submitted after Close.
var ErrClosed = errors.New("pipeline closed")

type job struct {
	run  func() Result
	resp chan Result
}

// Pipeline runs jobs one at a time on its own goroutine. Construct it with
// New and release it with Close; there is no package-level instance.
type Pipeline struct {
	store store.Store
	log   *slog.Logger

	jobs chan job
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New starts the worker. The logger must not be nil.
func New(st store.Store, log *slog.Logger) *Pipeline {
	p := &Pipeline{
		store: st,
		log:   log,
		jobs:  make(chan job, 16),
	}

	p.wg.Add(1)
	go p.worker()

	return p
}

func (p *Pipeline) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		j.resp <- j.run()
	}
}

// Close stops the worker after draining queued jobs. Further Close calls
// are no-ops; further submissions fail with ErrClosed instead of panicking.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pipeline) submit(run func() Result) <-chan Result {
	resp := make(chan Result, 1)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		resp <- Result{Err: ErrClosed}
		return resp
	}
	p.jobs <- job{run: run, resp: resp}
	p.mu.Unlock()

	return resp
}

// Export queues an export job and returns its single-shot result channel.
func (p *Pipeline) Export(req ExportRequest) <-chan Result {
	return p.submit(func() Result { return p.runExport(req) })
}

// Backup queues a snapshot job and returns its single-shot result channel.
func (p *Pipeline) Backup(req BackupRequest) <-chan Result {
	return p.submit(func() Result { return p.runBackup(req) })
}

func (p *Pipeline) runExport(req ExportRequest) Result {
	p.log.Info("export started", "invoices", len(req.Invoices), "project", req.ProjectID, "format", req.Format, "bill", req.Bill)

	if len(req.Invoices) == 0 || req.Labels == nil {
		p.log.Info("nothing to export", "reason", "missing invoices or labels")
		return Result{}
	}

	if req.Format == "" {
		req.Format = FormatExcel
	}

	projectList, err := store.Projects(p.store)
	if err != nil {
		return Result{Err: err}
	}
	if len(projectList) == 0 {
		p.log.Info("nothing to export", "reason", "no projects")
		return Result{}
	}
	projects := export.ProjectMap(projectList)

	// Client columns are only resolved on the unfiltered path; the
	// project-scoped path carries the client with the request. An absent
	// client collection drops the column but never blocks the export.
	var clients map[string]models.Client
	if req.ProjectID == "" {
		clientList, err := store.Clients(p.store)
		if err != nil {
			return Result{Err: err}
		}
		if len(clientList) > 0 {
			clients = export.ClientMap(clientList)
		}
	}

	items := export.Aggregate(p.store, req.Invoices, projects, clients, req.ProjectID, req.RoundTime)

	var data []byte
	if len(items) > 0 {
		gen, err := generatorFor(req.Format)
		if err != nil {
			return Result{Err: err}
		}

		data, err = gen.Generate(items, export.Params{
			Currency:  req.Currency,
			VAT:       req.VAT,
			Client:    req.Client,
			Labels:    req.Labels,
			Locale:    req.Locale,
			Signature: req.Signature,
		})
		if err != nil {
			return Result{Err: err}
		}
	}

	// The billed amounts are settled on the project budgets before the
	// status transition, in the exported line items' terms.
	if err := billing.UpdateBudget(p.store, items, req.Bill); err != nil {
		return Result{Err: err}
	}

	// Billing covers every named bucket, also the ones that contributed
	// no line item. The document above was generated first, so it always
	// reflects the pre-transition state.
	if err := billing.Bill(p.store, req.Invoices, req.ProjectID, req.Bill, time.Now()); err != nil {
		return Result{Err: err}
	}

	if data == nil {
		p.log.Info("nothing to export", "reason", "no matching tasks")
		return Result{}
	}

	clientName := ""
	if req.Client != nil {
		clientName = req.Client.Name
	}

	p.log.Info("export completed", "bytes", len(data))
	return Result{
		Data:     data,
		Filename: delivery.Filename(clientName, req.From, req.To, string(req.Format)),
	}
}

func (p *Pipeline) runBackup(req BackupRequest) Result {
	p.log.Info("backup started", "format", req.Format)

	data, err := backup.Archive(p.store, req.Format)
	if err != nil {
		return Result{Err: err}
	}
	if data == nil {
		p.log.Info("nothing to backup", "reason", "empty store")
		return Result{}
	}

	format := req.Format
	if format == "" {
		format = backup.FormatZip
	}

	p.log.Info("backup completed", "bytes", len(data))
	return Result{
		Data:     data,
		Filename: delivery.BackupFilename(time.Now(), format.Ext()),
	}
}

func generatorFor(format Format) (export.Generator, error) {
	switch format {
	case FormatPDF:
		return export.PDF{}, nil
	case FormatExcel, "":
		return export.Excel{}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// Interval expands a date range into the day-keyed invoice id sequence,
// inclusive on both ends.
func Interval(from, to time.Time) []string {
	if to.Before(from) {
		return nil
	}

	var ids []string
	for current := from; !current.After(to); current = current.AddDate(0, 0, 1) {
		ids = append(ids, current.Format("2006-01-02"))
	}
	return ids
}
