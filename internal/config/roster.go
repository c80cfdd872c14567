package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iammadab/chessbench/internal/domain"
)

var (
	ErrEmptyRoster     = errors.New("engine list is empty")
	ErrEmptyEngineID   = errors.New("engine id is empty")
	ErrEmptyEnginePath = errors.New("engine path is empty")
	ErrDuplicateEngine = errors.New("duplicate engine id")
)

type EngineEntry struct {
	ID         string   `yaml:"id"`
	Path       string   `yaml:"path"`
	Args       []string `yaml:"args"`
	WorkingDir string   `yaml:"working_dir"`
}

type RosterFile struct {
	Engines []EngineEntry `yaml:"engines"`
}

// LoadRoster reads and validates a roster file. Relative engine paths and
// working directories are resolved against the file's directory.
func LoadRoster(path string) ([]domain.EngineHandle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	handles, err := ParseRoster(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i := range handles {
		handles[i].Path = resolve(base, handles[i].Path)
		if handles[i].WorkingDir != "" {
			handles[i].WorkingDir = resolve(base, handles[i].WorkingDir)
		}
	}
	return handles, nil
}

func ParseRoster(data []byte) ([]domain.EngineHandle, error) {
	var file RosterFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	out := make([]domain.EngineHandle, 0, len(file.Engines))
	for _, e := range file.Engines {
		out = append(out, domain.EngineHandle{
			ID:         strings.TrimSpace(e.ID),
			Path:       strings.TrimSpace(e.Path),
			Args:       append([]string(nil), e.Args...),
			WorkingDir: strings.TrimSpace(e.WorkingDir),
		})
	}
	return out, nil
}

func (f RosterFile) Validate() error {
	if len(f.Engines) == 0 {
		return ErrEmptyRoster
	}
	seen := make(map[string]struct{}, len(f.Engines))
	for i, e := range f.Engines {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			return fmt.Errorf("engine #%d: %w", i+1, ErrEmptyEngineID)
		}
		if strings.TrimSpace(e.Path) == "" {
			return fmt.Errorf("engine %q: %w", id, ErrEmptyEnginePath)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateEngine, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// resolve leaves bare command names alone so they are looked up on PATH.
func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) || !strings.ContainsRune(p, filepath.Separator) {
		return p
	}
	return filepath.Join(base, p)
}
