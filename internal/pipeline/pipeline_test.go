package pipeline

import (
	"archive/zip"
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/peterpeterparker/leancow/internal/backup"
	"github.com/peterpeterparker/leancow/internal/export"
	"github.com/peterpeterparker/leancow/internal/models"
	"github.com/peterpeterparker/leancow/internal/store"
)

func newPipeline(t *testing.T, s store.Store) *Pipeline {
	t.Helper()

	p := New(s, slog.Default())
	t.Cleanup(p.Close)
	return p
}

func seededStore(t *testing.T) store.Store {
	t.Helper()

	s := store.NewStorage(t.TempDir())

	client := models.Client{ID: "c1", Name: "Acme"}
	project := models.Project{ID: "p1", ClientID: "c1", Name: "Acme", Rate: models.Rate{Hourly: 100}}
	task := models.Task{
		ID:        "t1",
		ProjectID: "p1",
		Status:    models.StatusOpen,
		From:      time.UnixMilli(0),
		To:        time.UnixMilli(3600000),
	}

	if err := store.SaveClients(s, []models.Client{client}); err != nil {
		t.Fatalf("SaveClients failed: %v", err)
	}
	if err := store.SaveProjects(s, []models.Project{project}); err != nil {
		t.Fatalf("SaveProjects failed: %v", err)
	}
	if err := store.SaveTasks(s, "inv1", []models.Task{task}); err != nil {
		t.Fatalf("SaveTasks failed: %v", err)
	}
	return s
}

func exportRequest(invoices ...string) ExportRequest {
	return ExportRequest{
		Invoices:  invoices,
		Currency:  "USD",
		Labels:    export.DefaultLabels(),
		Locale:    "en",
		Format:    FormatExcel,
		RoundTime: 15,
	}
}

func TestExportProducesDocument(t *testing.T) {
	// One open one-hour task, no project filter
	s := seededStore(t)
	p := newPipeline(t, s)

	result := <-p.Export(exportRequest("inv1"))
	if result.Err != nil {
		t.Fatalf("Export failed: %v", result.Err)
	}
	if result.Empty() {
		t.Fatal("Expected a document, got empty signal")
	}
	if result.Filename != "export.xlsx" {
		t.Errorf("Expected export.xlsx, got %s", result.Filename)
	}
}

func TestExportBillMarksTasks(t *testing.T) {
	s := seededStore(t)
	p := newPipeline(t, s)

	req := exportRequest("inv1")
	req.Bill = true

	result := <-p.Export(req)
	if result.Err != nil {
		t.Fatalf("Export failed: %v", result.Err)
	}

	tasks, err := store.Tasks(s, "inv1")
	if err != nil {
		t.Fatalf("Tasks failed: %v", err)
	}
	if tasks[0].Status != models.StatusBilled {
		t.Errorf("Expected billed after export, got %s", tasks[0].Status)
	}
}

func TestExportWithoutBillLeavesTasksOpen(t *testing.T) {
	s := seededStore(t)
	p := newPipeline(t, s)

	result := <-p.Export(exportRequest("inv1"))
	if result.Err != nil {
		t.Fatalf("Export failed: %v", result.Err)
	}

	tasks, _ := store.Tasks(s, "inv1")
	if tasks[0].Status != models.StatusOpen {
		t.Errorf("Expected open after export without bill, got %s", tasks[0].Status)
	}
}

func TestExportMissingBucket(t *testing.T) {
	// The named invoice bucket does not exist: empty signal, no mutation
	s := store.NewStorage(t.TempDir())
	if err := store.SaveClients(s, []models.Client{{ID: "c1", Name: "Acme"}}); err != nil {
		t.Fatalf("SaveClients failed: %v", err)
	}
	if err := store.SaveProjects(s, []models.Project{{ID: "p1", ClientID: "c1", Name: "Acme"}}); err != nil {
		t.Fatalf("SaveProjects failed: %v", err)
	}
	p := newPipeline(t, s)

	req := exportRequest("inv1")
	req.Bill = true

	result := <-p.Export(req)
	if result.Err != nil {
		t.Fatalf("Export failed: %v", result.Err)
	}
	if !result.Empty() {
		t.Error("Expected empty signal for a missing bucket")
	}

	value, _ := s.Get(store.TaskKey("inv1"))
	if value != nil {
		t.Errorf("Export must not create the bucket, got %q", value)
	}
}

func TestExportValidation(t *testing.T) {
	s := seededStore(t)
	p := newPipeline(t, s)

	// No invoices
	result := <-p.Export(ExportRequest{Labels: export.DefaultLabels()})
	if !result.Empty() {
		t.Error("Expected empty signal without invoices")
	}

	// No labels
	req := exportRequest("inv1")
	req.Labels = nil
	result = <-p.Export(req)
	if !result.Empty() {
		t.Error("Expected empty signal without labels")
	}
}

func TestExportNoProjects(t *testing.T) {
	s := store.NewStorage(t.TempDir())
	p := newPipeline(t, s)

	result := <-p.Export(exportRequest("inv1"))
	if result.Err != nil {
		t.Fatalf("Export failed: %v", result.Err)
	}
	if !result.Empty() {
		t.Error("Expected empty signal without projects")
	}
}

func TestExportProjectScopedFilename(t *testing.T) {
	s := seededStore(t)
	p := newPipeline(t, s)

	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)

	req := exportRequest("inv1")
	req.ProjectID = "p1"
	req.Client = &models.Client{ID: "c1", Name: "Acme"}
	req.Format = FormatPDF
	req.From = &from
	req.To = &to

	result := <-p.Export(req)
	if result.Err != nil {
		t.Fatalf("Export failed: %v", result.Err)
	}
	if result.Filename != "Acme-2023-01-01-2023-01-31.pdf" {
		t.Errorf("Unexpected filename %s", result.Filename)
	}
	if !bytes.HasPrefix(result.Data, []byte("%PDF")) {
		t.Error("Expected a PDF document")
	}
}

func TestExportWithoutClientCollection(t *testing.T) {
	// Only projects and one task bucket exist: the unfiltered export
	// still produces a document, just without client columns.
	s := store.NewStorage(t.TempDir())
	if err := store.SaveProjects(s, []models.Project{
		{ID: "p1", Name: "Acme", Rate: models.Rate{Hourly: 100}},
	}); err != nil {
		t.Fatalf("SaveProjects failed: %v", err)
	}
	if err := store.SaveTasks(s, "inv1", []models.Task{{
		ID:        "t1",
		ProjectID: "p1",
		Status:    models.StatusOpen,
		From:      time.UnixMilli(0),
		To:        time.UnixMilli(3600000),
	}}); err != nil {
		t.Fatalf("SaveTasks failed: %v", err)
	}
	p := newPipeline(t, s)

	result := <-p.Export(exportRequest("inv1"))
	if result.Err != nil {
		t.Fatalf("Export failed: %v", result.Err)
	}
	if result.Empty() {
		t.Fatal("Expected a document without a client collection, got the empty signal")
	}

	f, err := excelize.OpenReader(bytes.NewReader(result.Data))
	if err != nil {
		t.Fatalf("Workbook unreadable: %v", err)
	}
	defer f.Close()

	header, _ := f.GetCellValue("Sheet1", "B3")
	if header == "Client" {
		t.Error("Expected no client column without a client collection")
	}
	project, _ := f.GetCellValue("Sheet1", "B4")
	if project != "Acme" {
		t.Errorf("Expected project Acme, got %q", project)
	}
	duration, _ := f.GetCellValue("Sheet1", "D4")
	if duration != "01:00:00" {
		t.Errorf("Expected a one hour row, got %q", duration)
	}
}

func TestExportBillUpdatesBudget(t *testing.T) {
	s := seededStore(t)
	p := newPipeline(t, s)

	req := exportRequest("inv1")
	req.Bill = true

	result := <-p.Export(req)
	if result.Err != nil {
		t.Fatalf("Export failed: %v", result.Err)
	}

	projects, err := store.Projects(s)
	if err != nil {
		t.Fatalf("Projects failed: %v", err)
	}
	if projects[0].Budget == nil {
		t.Fatal("Expected a budget after billing")
	}
	if projects[0].Budget.Billed != 100 {
		t.Errorf("Expected billed 100, got %v", projects[0].Budget.Billed)
	}
}

func TestExportWithoutBillLeavesBudget(t *testing.T) {
	s := seededStore(t)
	p := newPipeline(t, s)

	result := <-p.Export(exportRequest("inv1"))
	if result.Err != nil {
		t.Fatalf("Export failed: %v", result.Err)
	}

	projects, _ := store.Projects(s)
	if projects[0].Budget != nil {
		t.Errorf("Expected untouched budget without bill, got %+v", projects[0].Budget)
	}
}

func TestSubmitAfterClose(t *testing.T) {
	s := seededStore(t)
	p := New(s, slog.Default())

	p.Close()
	p.Close() // second Close is a no-op

	result := <-p.Export(exportRequest("inv1"))
	if !errors.Is(result.Err, ErrClosed) {
		t.Errorf("Expected ErrClosed after Close, got %v", result.Err)
	}

	result = <-p.Backup(BackupRequest{})
	if !errors.Is(result.Err, ErrClosed) {
		t.Errorf("Expected ErrClosed after Close, got %v", result.Err)
	}
}

func TestBackup(t *testing.T) {
	s := seededStore(t)
	p := newPipeline(t, s)

	result := <-p.Backup(BackupRequest{Format: backup.FormatZip})
	if result.Err != nil {
		t.Fatalf("Backup failed: %v", result.Err)
	}
	if result.Empty() {
		t.Fatal("Expected an archive")
	}

	r, err := zip.NewReader(bytes.NewReader(result.Data), int64(len(result.Data)))
	if err != nil {
		t.Fatalf("Archive unreadable: %v", err)
	}
	if len(r.File) != 3 {
		t.Errorf("Expected 3 members, got %d", len(r.File))
	}
}

func TestBackupEmptyStore(t *testing.T) {
	s := store.NewStorage(t.TempDir())
	p := newPipeline(t, s)

	result := <-p.Backup(BackupRequest{})
	if result.Err != nil {
		t.Fatalf("Backup failed: %v", result.Err)
	}
	if !result.Empty() {
		t.Error("Expected empty signal for an empty store")
	}
}

func TestInterval(t *testing.T) {
	from := time.Date(2023, 1, 30, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)

	ids := Interval(from, to)
	want := []string{"2023-01-30", "2023-01-31", "2023-02-01"}
	if len(ids) != len(want) {
		t.Fatalf("Expected %d ids, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Expected %s at %d, got %s", want[i], i, ids[i])
		}
	}

	if ids := Interval(to, from); ids != nil {
		t.Errorf("Expected nil for a reversed range, got %v", ids)
	}

	if ids := Interval(from, from); len(ids) != 1 {
		t.Errorf("Expected a single day, got %v", ids)
	}
}
