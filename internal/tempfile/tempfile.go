// Package tempfile owns ephemeral on-disk artifacts of a pipeline invocation.
//
// Every Handle is removed exactly once. Files that only live for internal
// processing are released when the invocation's Scope closes; the output file
// of an audio mode is detached from the Scope and released by the response
// layer once the body has been streamed.
package tempfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"lingua-flow-go/internal/logger"
)

type Kind string

const (
	KindUpload Kind = "upload"
	KindWAV    Kind = "wav"
	KindMP3    Kind = "mp3"
)

func (k Kind) ext() string {
	switch k {
	case KindWAV:
		return ".wav"
	case KindMP3:
		return ".mp3"
	default:
		return ".bin"
	}
}

// Manager creates ephemeral files under a single directory.
type Manager struct {
	dir string
	log *logrus.Entry
}

func NewManager(dir string, log *logrus.Entry) *Manager {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Manager{
		dir: dir,
		log: logger.OrDefault(log, "tempfile").WithField("component", "tempfile"),
	}
}

func (m *Manager) Dir() string {
	return m.dir
}

// Acquire creates an empty file of the given kind using the kind's extension.
func (m *Manager) Acquire(kind Kind) (*Handle, error) {
	return m.AcquireExt(kind, kind.ext())
}

// AcquireExt creates an empty file of the given kind with an explicit extension,
// used for raw uploads whose extension tells the transcoder the source format.
func (m *Manager) AcquireExt(kind Kind, ext string) (*Handle, error) {
	if ext == "" {
		ext = kind.ext()
	}
	if ext[0] != '.' {
		ext = "." + ext
	}
	path := filepath.Join(m.dir, fmt.Sprintf("linguaflow-%s-%s%s", kind, uuid.New().String(), ext))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create %s file: %w", kind, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close %s file: %w", kind, err)
	}
	m.log.WithFields(logrus.Fields{"kind": kind, "path": path}).Debug("ephemeral file acquired")
	return &Handle{Path: path, Kind: kind, log: m.log}, nil
}

// Handle is one ephemeral file with a single owner.
type Handle struct {
	Path string
	Kind Kind

	log  *logrus.Entry
	once sync.Once
}

// Release deletes the file. Only the first call has an effect; failures are logged.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		err := os.Remove(h.Path)
		switch {
		case err == nil:
			h.log.WithFields(logrus.Fields{"kind": h.Kind, "path": h.Path}).Debug("ephemeral file released")
		case errors.Is(err, fs.ErrNotExist):
			h.log.WithFields(logrus.Fields{"kind": h.Kind, "path": h.Path}).Warn("ephemeral file already removed")
		default:
			h.log.WithFields(logrus.Fields{"kind": h.Kind, "path": h.Path, "error": err.Error()}).Error("cleanup error")
		}
	})
}

// Write replaces the file's content.
func (h *Handle) Write(data []byte) error {
	if err := os.WriteFile(h.Path, data, 0o600); err != nil {
		return fmt.Errorf("write %s file: %w", h.Kind, err)
	}
	return nil
}

func (h *Handle) ReadAll() ([]byte, error) {
	data, err := os.ReadFile(h.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s file: %w", h.Kind, err)
	}
	return data, nil
}

// Scope tracks the handles of one invocation. Close releases every handle still owned.
type Scope struct {
	m       *Manager
	mu      sync.Mutex
	handles []*Handle
}

func (m *Manager) NewScope() *Scope {
	return &Scope{m: m}
}

func (s *Scope) Acquire(kind Kind) (*Handle, error) {
	return s.AcquireExt(kind, kind.ext())
}

func (s *Scope) AcquireExt(kind Kind, ext string) (*Handle, error) {
	h, err := s.m.AcquireExt(kind, ext)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.handles = append(s.handles, h)
	s.mu.Unlock()
	return h, nil
}

// Detach removes h from the scope; the caller becomes responsible for h.Release.
func (s *Scope) Detach(h *Handle) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, owned := range s.handles {
		if owned == h {
			s.handles = append(s.handles[:i], s.handles[i+1:]...)
			break
		}
	}
	return h
}

// Close releases every owned handle in reverse acquisition order.
func (s *Scope) Close() {
	s.mu.Lock()
	handles := s.handles
	s.handles = nil
	s.mu.Unlock()
	for i := len(handles) - 1; i >= 0; i-- {
		handles[i].Release()
	}
}
