// Package meta loads process definitions and information-model schemas from
// any afs-supported storage (file, embed, s3, ...).
package meta

import (
	"context"
	"fmt"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"

	"github.com/meronig/egsm-worker/model"
)

// Service resolves and downloads definition assets relative to a base URL.
type Service struct {
	fs      afs.Service
	baseURL string
	options []storage.Option
}

// New creates a meta service. With an empty baseURL every URI must be
// absolute.
func New(fs afs.Service, baseURL string, options ...storage.Option) *Service {
	return &Service{fs: fs, baseURL: baseURL, options: options}
}

// Load downloads the asset identified by URI, resolved against the base URL
// unless the URI already carries a scheme or is absolute.
func (s *Service) Load(ctx context.Context, URI string) ([]byte, error) {
	URL := URI
	if s.baseURL != "" && !strings.Contains(URI, "://") && !strings.HasPrefix(URI, "/") {
		URL = url.Join(s.baseURL, URI)
	}
	data, err := s.fs.DownloadWithURL(ctx, URL, s.options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", URL, err)
	}
	return data, nil
}

// LoadProcessModel downloads and parses a process definition.
func (s *Service) LoadProcessModel(ctx context.Context, URI string) (*model.ProcessModel, error) {
	data, err := s.Load(ctx, URI)
	if err != nil {
		return nil, err
	}
	return model.ParseProcessModel(data)
}

// LoadInfoSchema downloads and parses an information-model schema.
func (s *Service) LoadInfoSchema(ctx context.Context, URI string) (*model.InfoSchema, error) {
	data, err := s.Load(ctx, URI)
	if err != nil {
		return nil, err
	}
	return model.ParseInfoSchema(data)
}
