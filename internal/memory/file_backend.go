package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"devforge/internal/types"
)

// fileState is the full JSON snapshot written to disk.
type fileState struct {
	Requests     map[string]types.ClarificationRequest    `json:"clarificationRequests"`
	Responses    map[string]types.ClarificationResponse   `json:"clarificationResponses"`
	Patterns     types.PatternSet                         `json:"patterns"`
	Interactions []types.Interaction                      `json:"interactions"`
	Performance  map[string]*types.AgentPerformanceRecord `json:"agentPerformance"`
	Projects     map[string]types.Project                 `json:"projects"`
}

func newFileState() *fileState {
	return &fileState{
		Requests:    map[string]types.ClarificationRequest{},
		Responses:   map[string]types.ClarificationResponse{},
		Patterns:    types.PatternSet{},
		Performance: map[string]*types.AgentPerformanceRecord{},
		Projects:    map[string]types.Project{},
	}
}

func (s *Store) ensureLoadedFile() {
	s.loadOnce.Do(func() {
		b, err := os.ReadFile(s.path)
		if err != nil {
			return
		}
		loaded := newFileState()
		if err := json.Unmarshal(b, loaded); err != nil {
			return
		}
		if loaded.Requests == nil {
			loaded.Requests = map[string]types.ClarificationRequest{}
		}
		if loaded.Responses == nil {
			loaded.Responses = map[string]types.ClarificationResponse{}
		}
		if loaded.Patterns == nil {
			loaded.Patterns = types.PatternSet{}
		}
		if loaded.Performance == nil {
			loaded.Performance = map[string]*types.AgentPerformanceRecord{}
		}
		if loaded.Projects == nil {
			loaded.Projects = map[string]types.Project{}
		}
		s.mu.Lock()
		s.file = loaded
		s.mu.Unlock()
	})
}

func (s *Store) saveFile() error {
	s.mu.RLock()
	b, err := json.MarshalIndent(s.file, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o644)
}

func (s *Store) putClarificationRequestFile(req types.ClarificationRequest) error {
	s.ensureLoadedFile()
	s.mu.Lock()
	s.file.Requests[req.ID] = req
	s.mu.Unlock()
	return s.saveFile()
}

func (s *Store) getClarificationRequestFile(id string) (types.ClarificationRequest, error) {
	s.ensureLoadedFile()
	s.mu.RLock()
	req, ok := s.file.Requests[id]
	s.mu.RUnlock()
	if !ok {
		return types.ClarificationRequest{}, ErrNotFound
	}
	return req, nil
}

func (s *Store) putClarificationResponseFile(resp types.ClarificationResponse) error {
	s.ensureLoadedFile()
	s.mu.Lock()
	s.file.Responses[resp.InteractionID] = resp
	s.mu.Unlock()
	return s.saveFile()
}

func (s *Store) clarificationHistoryFile(projectType string) ([]types.ClarificationExchange, error) {
	s.ensureLoadedFile()
	t := strings.TrimSpace(projectType)
	s.mu.RLock()
	var out []types.ClarificationExchange
	for id, resp := range s.file.Responses {
		req, ok := s.file.Requests[id]
		if !ok || req.Kind != types.TaskCreation {
			continue
		}
		if req.Requirements == nil || req.Requirements.Type != t {
			continue
		}
		out = append(out, types.ClarificationExchange{
			InteractionID:       id,
			Questions:           req.Questions,
			Ambiguities:         req.Ambiguities,
			ContextualMatches:   req.ContextualMatches,
			Responses:           resp.Responses,
			UpdatedRequirements: resp.UpdatedRequirements,
			Timestamp:           resp.Timestamp,
		})
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > 10 {
		out = out[:10]
	}
	return out, nil
}

func (s *Store) savePatternsFile(kind types.TaskKind, patterns map[string]*types.LearnedPattern) error {
	s.ensureLoadedFile()
	s.mu.Lock()
	s.file.Patterns[kind] = patterns
	s.mu.Unlock()
	return s.saveFile()
}

func (s *Store) learningPatternsFile() (types.PatternSet, error) {
	s.ensureLoadedFile()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := types.PatternSet{}
	for kind, byType := range s.file.Patterns {
		m := make(map[string]*types.LearnedPattern, len(byType))
		for k, v := range byType {
			m[k] = clonePatternRow(v)
		}
		out[kind] = m
	}
	return out, nil
}

// clonePatternRow keeps callers from sharing pattern pointers with the
// retained file state, which saveFile marshals on every write.
func clonePatternRow(p *types.LearnedPattern) *types.LearnedPattern {
	if p == nil {
		return nil
	}
	out := &types.LearnedPattern{
		Roles:            make(map[string]string, len(p.Roles)),
		SuccessRate:      p.SuccessRate,
		Uses:             p.Uses,
		AgentPerformance: make(map[string]*types.AgentStats, len(p.AgentPerformance)),
		AgentOrder:       append([]string(nil), p.AgentOrder...),
	}
	for role, agent := range p.Roles {
		out.Roles[role] = agent
	}
	for agent, stats := range p.AgentPerformance {
		st := *stats
		out.AgentPerformance[agent] = &st
	}
	return out
}

func (s *Store) appendInteractionFile(in types.Interaction) error {
	s.ensureLoadedFile()
	s.mu.Lock()
	replaced := false
	for i := range s.file.Interactions {
		if s.file.Interactions[i].ID == in.ID {
			s.file.Interactions[i] = in
			replaced = true
			break
		}
	}
	if !replaced {
		s.file.Interactions = append(s.file.Interactions, in)
	}
	s.mu.Unlock()
	return s.saveFile()
}

func (s *Store) recentInteractionsFile(projectType string, limit int) ([]types.Interaction, error) {
	s.ensureLoadedFile()
	t := strings.TrimSpace(projectType)
	s.mu.RLock()
	var out []types.Interaction
	for _, in := range s.file.Interactions {
		if in.ProjectType == t {
			out = append(out, in)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func performanceKey(agent, taskType, projectType string) string {
	return agent + "\x00" + taskType + "\x00" + projectType
}

func (s *Store) incrementAgentPerformanceFile(agent, taskType, projectType string, success bool) error {
	s.ensureLoadedFile()
	agent = strings.TrimSpace(agent)
	taskType = strings.TrimSpace(taskType)
	projectType = strings.TrimSpace(projectType)

	s.mu.Lock()
	key := performanceKey(agent, taskType, projectType)
	r := s.file.Performance[key]
	if r == nil {
		r = &types.AgentPerformanceRecord{
			AgentName:   agent,
			TaskType:    taskType,
			ProjectType: projectType,
		}
		s.file.Performance[key] = r
	}
	r.Uses++
	if success {
		r.Successes++
	}
	r.SuccessRate = float64(r.Successes) / float64(r.Uses)
	s.mu.Unlock()
	return s.saveFile()
}

func (s *Store) agentPerformanceFile(agent, taskType, projectType string) ([]types.AgentPerformanceRecord, error) {
	s.ensureLoadedFile()
	agent = strings.TrimSpace(agent)
	taskType = strings.TrimSpace(taskType)
	projectType = strings.TrimSpace(projectType)

	s.mu.RLock()
	var out []types.AgentPerformanceRecord
	for _, r := range s.file.Performance {
		if agent != "" && r.AgentName != agent {
			continue
		}
		if taskType != "" && r.TaskType != taskType {
			continue
		}
		if projectType != "" && r.ProjectType != projectType {
			continue
		}
		out = append(out, *r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Uses != out[j].Uses {
			return out[i].Uses > out[j].Uses
		}
		return out[i].SuccessRate > out[j].SuccessRate
	})
	return out, nil
}

func (s *Store) putProjectFile(p types.Project) error {
	s.ensureLoadedFile()
	s.mu.Lock()
	s.file.Projects[p.ID] = p
	s.mu.Unlock()
	return s.saveFile()
}

func (s *Store) recentProjectsFile(projectType string, limit int) ([]types.Project, error) {
	s.ensureLoadedFile()
	t := strings.TrimSpace(projectType)
	s.mu.RLock()
	var out []types.Project
	for _, p := range s.file.Projects {
		if t != "" && p.Type != t {
			continue
		}
		out = append(out, p)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
