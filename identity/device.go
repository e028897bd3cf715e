package identity

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"planlux/hale-sync/log"

	"github.com/google/uuid"
)

const (
	FileName  = "device-id"
	minLength = 8
	idLength  = 16
)

// Provider hands out the per-installation device identifier. The value is
// read from disk once and then kept for the lifetime of the process.
type Provider struct {
	path string
	mu   sync.Mutex
	id   string
}

// NewProvider returns a provider backed by the file at path.
func NewProvider(path string) *Provider {
	return &Provider{path: path}
}

func (p *Provider) GetDeviceID() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.id != "" {
		return p.id
	}

	if id, ok := p.read(); ok {
		p.id = id
		return id
	}

	p.id = generate()
	if err := p.persist(p.id); err != nil {
		log.Logger.WithError(err).WithField("path", p.path).Warn("unable to persist device id, using an in-memory value for this process")
	}

	return p.id
}

func (p *Provider) read() (string, bool) {
	b, err := os.ReadFile(p.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Logger.WithError(err).WithField("path", p.path).Warn("unable to read device id")
		}
		return "", false
	}

	id := strings.TrimSpace(string(b))
	if len(id) < minLength {
		log.Logger.WithField("path", p.path).Warn("stored device id is too short, regenerating")
		return "", false
	}

	return id, true
}

func (p *Provider) persist(id string) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}

	return os.WriteFile(p.path, []byte(id), 0o600)
}

func generate() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(raw[:idLength])
}
