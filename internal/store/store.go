package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/peterpeterparker/leancow/internal/models"
)

// Well-known collection keys.
const (
	KeyProjects = "projects"
	KeyClients  = "clients"

	taskKeyPrefix = "tasks-"
)

// TaskKey returns the bucket key for an invoice id.
func TaskKey(invoiceID string) string {
	return taskKeyPrefix + invoiceID
}

// Entry is one key with its raw stored value.
type Entry struct {
	Key   string
	Value []byte
}

// Store is string-keyed access to the persisted collections. Get returns
// (nil, nil) when the key is absent; absence is not an error. Update applies
// a read-modify-write atomically with respect to other calls on the same
// store, so two writers cannot interleave on one bucket.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Update(key string, fn func(value []byte) ([]byte, error)) error
	Entries() ([]Entry, error)
}

// Storage keeps every key as one JSON file under a base directory.
type Storage struct {
	BaseDir string
	mu      sync.Mutex
}

// NewStorage creates the base directory if needed.
func NewStorage(baseDir string) *Storage {
	os.MkdirAll(baseDir, 0755)
	return &Storage{BaseDir: baseDir}
}

func (s *Storage) path(key string) string {
	return filepath.Join(s.BaseDir, key+".json")
}

func (s *Storage) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read(key)
}

func (s *Storage) read(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (s *Storage) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(key, value)
}

func (s *Storage) write(key string, value []byte) error {
	if err := os.WriteFile(s.path(key), value, 0644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Update reads the current value (nil when absent), applies fn and persists
// the result. Returning the input unchanged skips the write.
func (s *Storage) Update(key string, fn func(value []byte) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(key)
	if err != nil {
		return err
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	if next == nil || bytes.Equal(next, current) {
		return nil
	}
	return s.write(key, next)
}

// Entries lists every stored key with its value, sorted by key.
func (s *Storage) Entries() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := os.ReadDir(s.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.BaseDir, err)
	}

	var entries []Entry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		key := strings.TrimSuffix(f.Name(), ".json")
		value, err := s.read(key)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: key, Value: value})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Projects decodes the project collection. Absent key yields nil.
func Projects(s Store) ([]models.Project, error) {
	data, err := s.Get(KeyProjects)
	if err != nil || data == nil {
		return nil, err
	}

	var projects []models.Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}
	return projects, nil
}

// Clients decodes the client collection. Absent key yields nil.
func Clients(s Store) ([]models.Client, error) {
	data, err := s.Get(KeyClients)
	if err != nil || data == nil {
		return nil, err
	}

	var clients []models.Client
	if err := json.Unmarshal(data, &clients); err != nil {
		return nil, fmt.Errorf("decode clients: %w", err)
	}
	return clients, nil
}

// Tasks decodes one invoice bucket. Absent key yields nil.
func Tasks(s Store, invoiceID string) ([]models.Task, error) {
	data, err := s.Get(TaskKey(invoiceID))
	if err != nil || data == nil {
		return nil, err
	}

	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("decode %s: %w", TaskKey(invoiceID), err)
	}
	return tasks, nil
}

// SaveTasks persists one invoice bucket.
func SaveTasks(s Store, invoiceID string, tasks []models.Task) error {
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", TaskKey(invoiceID), err)
	}
	return s.Set(TaskKey(invoiceID), data)
}

// SaveProjects persists the project collection.
func SaveProjects(s Store, projects []models.Project) error {
	data, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return fmt.Errorf("encode projects: %w", err)
	}
	return s.Set(KeyProjects, data)
}

// SaveClients persists the client collection.
func SaveClients(s Store, clients []models.Client) error {
	data, err := json.MarshalIndent(clients, "", "  ")
	if err != nil {
		return fmt.Errorf("encode clients: %w", err)
	}
	return s.Set(KeyClients, data)
}
