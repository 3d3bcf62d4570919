package amplifi

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// LiveSource polls a router through a Client and holds the current Session.
type LiveSource struct {
	client  *Client
	session *Session
}

// NewLiveSource wraps c. Connect must succeed before the first Fetch.
func NewLiveSource(c *Client) *LiveSource {
	return &LiveSource{client: c}
}

// Name identifies the source in logs.
func (s *LiveSource) Name() string { return "live:" + s.client.base.String() }

// Connect replaces the current session with a freshly authenticated one.
func (s *LiveSource) Connect(ctx context.Context) error {
	s.session = nil
	sess, err := s.client.Connect(ctx)
	if err != nil {
		return err
	}
	s.session = sess
	return nil
}

// Fetch pulls one snapshot using the current session.
func (s *LiveSource) Fetch(ctx context.Context) (*Snapshot, error) {
	if s.session == nil {
		return nil, errors.New("amplifi: fetch before connect")
	}
	return s.client.Fetch(ctx, s.session)
}

// FileSource replays a snapshot stored on disk. The file is re-read on
// every Fetch so it can be edited while the exporter runs.
type FileSource struct {
	path string
}

// NewFileSource returns a source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name identifies the source in logs.
func (s *FileSource) Name() string { return "file:" + s.path }

// Connect is a no-op; files need no session.
func (s *FileSource) Connect(context.Context) error { return nil }

// Fetch reads and decodes the file.
func (s *FileSource) Fetch(context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("amplifi: read snapshot file: %w", err)
	}
	return DecodeSnapshot(data)
}
