package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/servicehub/backoffice/internal/config"
	"github.com/servicehub/backoffice/internal/db/models"
)

// Entry is the wire form of an audit log entry sent to external destinations
type Entry struct {
	ID            string         `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	Table         string         `json:"table"`
	Action        string         `json:"action"`
	RecordID      string         `json:"record_id"`
	ActorID       string         `json:"actor_id,omitempty"`
	ChangedFields map[string]any `json:"changed_fields"`
}

// EntryFromLog converts a persisted audit log row into its wire form
func EntryFromLog(log *models.AuditLog) *Entry {
	e := &Entry{
		ID:            log.ID,
		Timestamp:     log.CreatedAt,
		Table:         log.TableName,
		Action:        log.Action,
		RecordID:      log.RecordID,
		ChangedFields: log.ChangedFields,
	}
	if log.UserID != nil {
		e.ActorID = *log.UserID
	}
	return e
}

// Shipper forwards audit entries to a destination outside the database
type Shipper interface {
	// Ship sends an audit entry to the destination
	Ship(ctx context.Context, entry *Entry) error
	// Close releases any resources held by the shipper
	Close() error
}

// MultiShipper fans entries out to every configured destination
type MultiShipper struct {
	shippers []Shipper
	mu       sync.RWMutex
}

// NewMultiShipper builds shippers for every enabled configuration entry
func NewMultiShipper(configs []config.AuditShipperConfig) (*MultiShipper, error) {
	ms := &MultiShipper{shippers: make([]Shipper, 0, len(configs))}

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		var shipper Shipper
		var err error
		switch cfg.Type {
		case "webhook":
			shipper, err = NewWebhookShipper(cfg.URL, cfg.Headers, cfg.Timeout)
		case "file":
			shipper, err = NewFileShipper(cfg.Path)
		default:
			err = fmt.Errorf("unknown shipper type: %s", cfg.Type)
		}
		if err != nil {
			ms.Close()
			return nil, fmt.Errorf("failed to create %s shipper: %w", cfg.Type, err)
		}
		ms.shippers = append(ms.shippers, shipper)
	}

	return ms, nil
}

// Len reports how many destinations are configured
func (ms *MultiShipper) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.shippers)
}

// Ship sends an entry to every destination. One destination failing does not
// stop delivery to the others; all failures are returned joined.
func (ms *MultiShipper) Ship(ctx context.Context, entry *Entry) error {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var errs []error
	for _, shipper := range ms.shippers {
		if err := shipper.Ship(ctx, entry); err != nil {
			slog.Warn("audit shipper error", "entry_id", entry.ID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every destination
func (ms *MultiShipper) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var errs []error
	for _, shipper := range ms.shippers {
		if err := shipper.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WebhookShipper POSTs each entry as JSON to an HTTP endpoint
type WebhookShipper struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewWebhookShipper creates a webhook shipper. A zero timeout means 10s.
func NewWebhookShipper(url string, headers map[string]string, timeout time.Duration) (*WebhookShipper, error) {
	if url == "" {
		return nil, errors.New("webhook url is required")
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &WebhookShipper{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Ship sends an entry to the webhook
func (ws *WebhookShipper) Ship(ctx context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range ws.headers {
		req.Header.Set(k, v)
	}

	resp, err := ws.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Close is a no-op; the HTTP client holds no per-shipper resources
func (ws *WebhookShipper) Close() error { return nil }

// FileShipper appends entries to a file as JSON lines
type FileShipper struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewFileShipper opens (or creates) path for appending
func NewFileShipper(path string) (*FileShipper, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	return &FileShipper{path: path, file: file}, nil
}

// Ship appends one JSON line
func (fs *FileShipper) Ship(_ context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, err := fs.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry to %s: %w", fs.path, err)
	}
	return nil
}

// Close closes the underlying file
func (fs *FileShipper) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.file.Close()
}
