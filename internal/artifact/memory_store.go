package artifact

import (
	"context"
	"errors"
	"path"
	"sort"
	"strings"
	"sync"

	"devforge/internal/types"
)

// MemoryStore keeps project trees in process memory. It backs tests and
// deployments that run without an S3 endpoint.
type MemoryStore struct {
	mu    sync.RWMutex
	trees map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{trees: make(map[string]map[string]string)}
}

func (m *MemoryStore) SaveProject(ctx context.Context, projectID string, files []types.ProjectFile) error {
	if m == nil {
		return errors.New("artifact: store is nil")
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return errors.New("artifact: project_id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	tree := m.trees[projectID]
	if tree == nil {
		tree = make(map[string]string, len(files))
		m.trees[projectID] = tree
	}
	for _, f := range files {
		p := cleanPath(f.Path)
		if p == "" {
			continue
		}
		tree[p] = f.Content
	}
	return nil
}

func (m *MemoryStore) File(ctx context.Context, projectID, filePath string) (types.ProjectFile, error) {
	if m == nil {
		return types.ProjectFile{}, errors.New("artifact: store is nil")
	}
	p := cleanPath(filePath)

	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.trees[strings.TrimSpace(projectID)][p]
	if !ok {
		return types.ProjectFile{}, ErrNotFound
	}
	return types.ProjectFile{
		Name:    path.Base(p),
		Path:    p,
		Content: content,
	}, nil
}

func (m *MemoryStore) ListFiles(ctx context.Context, projectID string) ([]string, error) {
	if m == nil {
		return nil, errors.New("artifact: store is nil")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	tree := m.trees[strings.TrimSpace(projectID)]
	paths := make([]string, 0, len(tree))
	for p := range tree {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

func (m *MemoryStore) FileURL(ctx context.Context, projectID, filePath string) (string, error) {
	if m == nil {
		return "", errors.New("artifact: store is nil")
	}
	p := cleanPath(filePath)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.trees[strings.TrimSpace(projectID)][p]; !ok {
		return "", ErrNotFound
	}
	return "memory://" + objectKey(projectID, p), nil
}
