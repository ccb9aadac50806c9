// Package export archives dashboard reports to a blob store.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ContentType of every exported report.
const ContentType = "application/json"

// BlobStore persists report bytes and returns their URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// IDGenerator names report objects.
type IDGenerator interface {
	NewID() (string, error)
}

// Hasher digests report bytes.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock stamps reports.
type Clock interface {
	Now() time.Time
}

// Result describes one stored report.
type Result struct {
	ID          string    `json:"id"`
	URI         string    `json:"uri"`
	Path        string    `json:"path"`
	SHA256      string    `json:"sha256"`
	Bytes       int       `json:"bytes"`
	GeneratedAt time.Time `json:"generated_at"`
}

// envelope is the stored document.
type envelope struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Report      any       `json:"report"`
}

// Exporter writes reports under <prefix>/<yyyy-mm-dd>/<id>.json.
type Exporter struct {
	blobs  BlobStore
	ids    IDGenerator
	hasher Hasher
	clock  Clock
	prefix string
	logger *zap.Logger
}

// New builds an Exporter.
func New(blobs BlobStore, ids IDGenerator, hasher Hasher, clock Clock, prefix string, logger *zap.Logger) (*Exporter, error) {
	if blobs == nil || ids == nil || hasher == nil || clock == nil {
		return nil, fmt.Errorf("exporter dependencies are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		blobs:  blobs,
		ids:    ids,
		hasher: hasher,
		clock:  clock,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}, nil
}

// Export marshals report into an envelope and stores it.
func (e *Exporter) Export(ctx context.Context, report any) (Result, error) {
	id, err := e.ids.NewID()
	if err != nil {
		return Result{}, fmt.Errorf("generate report id: %w", err)
	}
	now := e.clock.Now().UTC()
	body, err := json.MarshalIndent(envelope{ID: id, GeneratedAt: now, Report: report}, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("marshal report: %w", err)
	}
	digest, err := e.hasher.Hash(body)
	if err != nil {
		return Result{}, fmt.Errorf("hash report: %w", err)
	}

	objectPath := path.Join(e.prefix, now.Format("2006-01-02"), id+".json")
	uri, err := e.blobs.PutObject(ctx, objectPath, ContentType, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("store report: %w", err)
	}

	e.logger.Info("report exported",
		zap.String("uri", uri),
		zap.String("sha256", digest),
		zap.Int("bytes", len(body)),
	)
	return Result{
		ID:          id,
		URI:         uri,
		Path:        objectPath,
		SHA256:      digest,
		Bytes:       len(body),
		GeneratedAt: now,
	}, nil
}
