// Package ingest loads source policy documents into the vector store:
// purpose paragraphs are embedded and indexed, policy+procedure sections are
// stored whole for adjudication.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/viant/afs"

	"policyaudit/docio"
	"policyaudit/embeddings"
	"policyaudit/schema"
	"policyaudit/segmenter"
	"policyaudit/vectordb"
)

// Store is the subset of the vector store ingestion writes to.
type Store interface {
	AddParagraphs(ctx context.Context, records []schema.ParagraphRecord, embedder embeddings.Embedder) ([]string, error)
	AddSections(ctx context.Context, records []schema.SectionRecord) error
}

// Service ingests documents.
type Service struct {
	fs       afs.Service
	store    Store
	embedder embeddings.Embedder
	logf     func(format string, args ...any)
}

// Option configures the ingestion service.
type Option func(*Service)

// WithLogf sets the progress log sink.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(s *Service) {
		if logf != nil {
			s.logf = logf
		}
	}
}

// New constructs an ingestion service over the default AFS service.
func New(store Store, embedder embeddings.Embedder, opts ...Option) *Service {
	s := &Service{
		fs:       afs.New(),
		store:    store,
		embedder: embedder,
		logf:     func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary reports the outcome of a directory ingestion.
type Summary struct {
	Ingested int
	Skipped  []string
}

// File ingests a single document: segments its text, indexes the merged
// purpose paragraphs and stores the whole policy+procedure sections.
func (s *Service) File(ctx context.Context, location string) error {
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return fmt.Errorf("download %s: %w", location, err)
	}
	return s.ingestText(ctx, path.Base(location), docio.Text(data))
}

// Directory ingests every PDF under the location. A document that does not
// match the section template is logged and skipped; ingestion continues with
// the remaining documents.
func (s *Service) Directory(ctx context.Context, location string) (*Summary, error) {
	objects, err := s.fs.List(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", location, err)
	}
	summary := &Summary{}
	total := 0
	for _, object := range objects {
		if object.IsDir() || !strings.EqualFold(path.Ext(object.Name()), ".pdf") {
			continue
		}
		total++
	}
	processed := 0
	for _, object := range objects {
		if object.IsDir() || !strings.EqualFold(path.Ext(object.Name()), ".pdf") {
			continue
		}
		processed++
		s.logf("processing %s (%d/%d)", object.Name(), processed, total)
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			return summary, fmt.Errorf("download %s: %w", object.URL(), err)
		}
		if err := s.ingestText(ctx, object.Name(), docio.Text(data)); err != nil {
			if errors.Is(err, segmenter.ErrSectionNotFound) {
				s.logf("skipping %s: %v", object.Name(), err)
				summary.Skipped = append(summary.Skipped, object.Name())
				continue
			}
			return summary, err
		}
		summary.Ingested++
	}
	return summary, nil
}

func (s *Service) ingestText(ctx context.Context, fileName, text string) error {
	paragraphs, err := segmenter.PurposeParagraphs(fileName, text)
	if err != nil {
		return err
	}
	sections, err := segmenter.PolicyProcedure(fileName, text)
	if err != nil {
		return err
	}
	if _, err := s.store.AddParagraphs(ctx, paragraphs, s.embedder); err != nil {
		return fmt.Errorf("index paragraphs for %s: %w", fileName, err)
	}
	if err := s.store.AddSections(ctx, sections); err != nil {
		return fmt.Errorf("store sections for %s: %w", fileName, err)
	}
	s.logf("ingested %s: %d purpose paragraphs, %d sections", fileName, len(paragraphs), len(sections))
	return nil
}

var _ Store = (*vectordb.Store)(nil)
