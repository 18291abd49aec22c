package export

import (
	"fmt"
	"os"
	"path/filepath"
)

// Saver hands an artifact to a save-file mechanism
type Saver interface {
	// Save stores the artifact and returns where it went
	Save(artifact Artifact) (string, error)
}

// DirSaver writes artifacts into a directory on local disk
type DirSaver struct {
	basePath string
}

// NewDirSaver creates a DirSaver, creating the directory if needed
func NewDirSaver(basePath string) (*DirSaver, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}

	return &DirSaver{
		basePath: basePath,
	}, nil
}

// Save writes the artifact under its own name, replacing any earlier export
func (d *DirSaver) Save(artifact Artifact) (string, error) {
	path := filepath.Join(d.basePath, filepath.Base(artifact.Name))
	if err := os.WriteFile(path, artifact.Data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return path, nil
}

// MultiSaver saves to every saver in order and stops at the first failure
type MultiSaver []Saver

// Save returns the location reported by the first saver
func (m MultiSaver) Save(artifact Artifact) (string, error) {
	var first string
	for i, s := range m {
		location, err := s.Save(artifact)
		if err != nil {
			return "", err
		}
		if i == 0 {
			first = location
		}
	}
	return first, nil
}
