package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"

	"github.com/peterpeterparker/leancow/internal/backup"
	"github.com/peterpeterparker/leancow/internal/delivery"
	"github.com/peterpeterparker/leancow/internal/export"
	"github.com/peterpeterparker/leancow/internal/models"
	"github.com/peterpeterparker/leancow/internal/pipeline"
	"github.com/peterpeterparker/leancow/internal/store"
)

var userConfigFilePath string

func setupViper() error {
	viper.SetConfigName("leancow")
	viper.SetConfigType("yaml")

	// Determine the user config directory
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error getting user home directory: %w", err)
		}
		if runtime.GOOS == "windows" {
			configHome = filepath.Join(homeDir, "AppData", "Roaming")
		} else {
			configHome = filepath.Join(homeDir, ".config")
		}
	}

	userConfigFilePath = filepath.Join(configHome, "leancow", "leancow.yml")
	viper.SetConfigFile(userConfigFilePath)

	err := os.MkdirAll(filepath.Dir(userConfigFilePath), 0755)
	if err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	viper.SetDefault("data_folder", "./data")
	viper.SetDefault("storage", "file")
	viper.SetDefault("out_folder", ".")
	viper.SetDefault("currency", "USD")
	viper.SetDefault("vat", 0.0)
	viper.SetDefault("round_time", 15)
	viper.SetDefault("locale", "en")
	viper.SetDefault("signature", "")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
			if err := viper.WriteConfigAs(userConfigFilePath); err != nil {
				return fmt.Errorf("error creating config file: %w", err)
			}
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func openStore() (store.Store, error) {
	dataFolder := viper.GetString("data_folder")
	if viper.GetString("storage") == "sqlite" {
		if err := os.MkdirAll(dataFolder, 0755); err != nil {
			return nil, fmt.Errorf("error creating data folder: %w", err)
		}
		return store.NewSQLStorage(filepath.Join(dataFolder, "leancow.db"))
	}
	return store.NewStorage(dataFolder), nil
}

func labelsFromConfig() *export.Labels {
	labels := export.DefaultLabels()

	label := func(key string, target *string) {
		if v := viper.GetString("labels." + key); v != "" {
			*target = v
		}
	}

	label("title", &labels.Title)
	label("date", &labels.Date)
	label("client", &labels.Client)
	label("project", &labels.Project)
	label("description", &labels.Description)
	label("duration", &labels.Duration)
	label("amount", &labels.Amount)
	label("total", &labels.Total)
	label("vat", &labels.VAT)
	label("signature", &labels.Signature)

	return labels
}

func main() {
	log := slog.Default()

	if err := setupViper(); err != nil {
		log.Error("configuration failed", "err", err)
		os.Exit(1)
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	st, err := openStore()
	if err != nil {
		log.Error("store unavailable", "err", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "export":
		runExport(log, st, os.Args[2:])
	case "backup":
		runBackup(log, st, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: leancow export|backup [flags]")
}

func runExport(log *slog.Logger, st store.Store, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	projectID := fs.String("project", "", "limit the export to one project id")
	fromArg := fs.String("from", "", "first day to export (2006-01-02)")
	toArg := fs.String("to", "", "last day to export (2006-01-02), defaults to today")
	format := fs.String("format", string(pipeline.FormatExcel), "output format: xlsx or pdf")
	bill := fs.Bool("bill", false, "mark the exported tasks as billed")
	out := fs.String("out", viper.GetString("out_folder"), "output folder")
	fs.Parse(args)

	if *fromArg == "" {
		log.Error("missing -from date")
		os.Exit(2)
	}
	from, err := time.Parse("2006-01-02", *fromArg)
	if err != nil {
		log.Error("invalid -from date", "err", err)
		os.Exit(2)
	}

	to := time.Now()
	if *toArg != "" {
		to, err = time.Parse("2006-01-02", *toArg)
		if err != nil {
			log.Error("invalid -to date", "err", err)
			os.Exit(2)
		}
	}

	req := pipeline.ExportRequest{
		Invoices:  pipeline.Interval(from, to),
		ProjectID: *projectID,
		Currency:  viper.GetString("currency"),
		Bill:      *bill,
		Labels:    labelsFromConfig(),
		Locale:    viper.GetString("locale"),
		Format:    pipeline.Format(*format),
		Signature: viper.GetString("signature"),
		RoundTime: viper.GetInt("round_time"),
		From:      &from,
		To:        &to,
	}

	if vat := viper.GetFloat64("vat"); vat > 0 {
		req.VAT = &vat
	}

	if *projectID != "" {
		client, err := lookupClient(st, *projectID)
		if err != nil {
			log.Error("client lookup failed", "err", err)
			os.Exit(1)
		}
		req.Client = client
	}

	p := pipeline.New(st, log)
	defer p.Close()

	result := <-p.Export(req)
	deliver(log, result, *out, "nothing to export")
}

func runBackup(log *slog.Logger, st store.Store, args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	format := fs.String("format", string(backup.FormatZip), "archive format: zip or tar.xz")
	out := fs.String("out", viper.GetString("out_folder"), "output folder")
	fs.Parse(args)

	p := pipeline.New(st, log)
	defer p.Close()

	result := <-p.Backup(pipeline.BackupRequest{Format: backup.Format(*format)})
	deliver(log, result, *out, "nothing to backup")
}

func deliver(log *slog.Logger, result pipeline.Result, out, emptyMessage string) {
	if result.Err != nil {
		log.Error("job failed", "err", result.Err)
		os.Exit(1)
	}
	if result.Empty() {
		log.Info(emptyMessage)
		return
	}

	path, err := delivery.Save(out, result.Filename, result.Data)
	if err != nil {
		log.Error("saving failed", "err", err)
		os.Exit(1)
	}
	log.Info("saved", "path", path)
}

// lookupClient resolves the client of a project for the document title and
// the suggested filename. Missing references are not an error; the export
// then falls back to a generic name.
func lookupClient(st store.Store, projectID string) (*models.Client, error) {
	projects, err := store.Projects(st)
	if err != nil {
		return nil, err
	}

	var clientID string
	for _, project := range projects {
		if project.ID == projectID {
			clientID = project.ClientID
			break
		}
	}
	if clientID == "" {
		return nil, nil
	}

	clients, err := store.Clients(st)
	if err != nil {
		return nil, err
	}
	for _, client := range clients {
		if client.ID == clientID {
			return &client, nil
		}
	}
	return nil, nil
}
