package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"devforge/internal/types"
)

func (s *Store) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS interactions (
  id SERIAL PRIMARY KEY,
  interaction_id TEXT UNIQUE NOT NULL,
  type TEXT NOT NULL,
  project_type TEXT NOT NULL DEFAULT '',
  strategy JSONB,
  result JSONB,
  success BOOLEAN NOT NULL DEFAULT FALSE,
  timestamp TIMESTAMP WITH TIME ZONE NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interactions_project_type ON interactions (project_type);

CREATE TABLE IF NOT EXISTS patterns (
  id SERIAL PRIMARY KEY,
  pattern_type TEXT NOT NULL,
  project_type TEXT NOT NULL,
  pattern_data JSONB NOT NULL,
  success_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
  uses INTEGER NOT NULL DEFAULT 0,
  updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
  UNIQUE (pattern_type, project_type)
);

CREATE TABLE IF NOT EXISTS clarification_requests (
  id SERIAL PRIMARY KEY,
  interaction_id TEXT UNIQUE NOT NULL,
  type TEXT NOT NULL,
  original_interaction_id TEXT NOT NULL DEFAULT '',
  requirements JSONB,
  files JSONB,
  project_context JSONB,
  questions JSONB NOT NULL,
  ambiguities JSONB,
  contextual_matches JSONB,
  is_follow_up BOOLEAN NOT NULL DEFAULT FALSE,
  timestamp TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE TABLE IF NOT EXISTS clarification_responses (
  id SERIAL PRIMARY KEY,
  interaction_id TEXT UNIQUE NOT NULL,
  responses JSONB NOT NULL,
  updated_requirements JSONB,
  updated_project_context JSONB,
  timestamp TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE TABLE IF NOT EXISTS agent_performance (
  id SERIAL PRIMARY KEY,
  agent_name TEXT NOT NULL,
  task_type TEXT NOT NULL,
  project_type TEXT NOT NULL DEFAULT '',
  uses INTEGER NOT NULL DEFAULT 0,
  successes INTEGER NOT NULL DEFAULT 0,
  success_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
  updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
  UNIQUE (agent_name, task_type, project_type)
);

CREATE TABLE IF NOT EXISTS projects (
  id SERIAL PRIMARY KEY,
  project_id TEXT UNIQUE NOT NULL,
  name TEXT NOT NULL,
  type TEXT NOT NULL,
  technologies JSONB,
  features JSONB,
  files JSONB,
  validation JSONB,
  timestamp TIMESTAMP WITH TIME ZONE NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projects_type ON projects (type);
`)
	})
	return s.schemaErr
}

// marshalNullable keeps NULL in jsonb columns for absent values.
func marshalNullable(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return b, nil
}

func unmarshalInto(b []byte, dst any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}

func (s *Store) putClarificationRequestDB(ctx context.Context, req types.ClarificationRequest) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	requirements, err := marshalNullable(req.Requirements)
	if err != nil {
		return err
	}
	files, err := marshalNullable(req.Files)
	if err != nil {
		return err
	}
	projectContext, err := marshalNullable(req.ProjectContext)
	if err != nil {
		return err
	}
	questions, err := json.Marshal(req.Questions)
	if err != nil {
		return err
	}
	ambiguities, err := marshalNullable(req.Ambiguities)
	if err != nil {
		return err
	}
	matches, err := marshalNullable(req.ContextualMatches)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO clarification_requests (
  interaction_id, type, original_interaction_id, requirements, files,
  project_context, questions, ambiguities, contextual_matches, is_follow_up, timestamp
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (interaction_id)
DO UPDATE SET type=EXCLUDED.type,
  original_interaction_id=EXCLUDED.original_interaction_id,
  requirements=EXCLUDED.requirements,
  files=EXCLUDED.files,
  project_context=EXCLUDED.project_context,
  questions=EXCLUDED.questions,
  ambiguities=EXCLUDED.ambiguities,
  contextual_matches=EXCLUDED.contextual_matches,
  is_follow_up=EXCLUDED.is_follow_up,
  timestamp=EXCLUDED.timestamp`,
		req.ID, string(req.Kind), req.OriginalInteractionID, requirements, files,
		projectContext, questions, ambiguities, matches, req.IsFollowUp, req.Timestamp)
	return err
}

func (s *Store) getClarificationRequestDB(ctx context.Context, id string) (types.ClarificationRequest, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return types.ClarificationRequest{}, err
	}
	row := s.db.QueryRowContext(ctx, `
SELECT interaction_id, type, original_interaction_id, requirements, files,
  project_context, questions, ambiguities, contextual_matches, is_follow_up, timestamp
FROM clarification_requests WHERE interaction_id = $1`, id)

	var (
		req            types.ClarificationRequest
		kind           string
		requirements   []byte
		files          []byte
		projectContext []byte
		questions      []byte
		ambiguities    []byte
		matches        []byte
	)
	err := row.Scan(&req.ID, &kind, &req.OriginalInteractionID, &requirements, &files,
		&projectContext, &questions, &ambiguities, &matches, &req.IsFollowUp, &req.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ClarificationRequest{}, ErrNotFound
	}
	if err != nil {
		return types.ClarificationRequest{}, err
	}
	req.Kind = types.TaskKind(kind)
	if err := unmarshalInto(requirements, &req.Requirements); err != nil {
		return types.ClarificationRequest{}, err
	}
	if err := unmarshalInto(files, &req.Files); err != nil {
		return types.ClarificationRequest{}, err
	}
	if err := unmarshalInto(projectContext, &req.ProjectContext); err != nil {
		return types.ClarificationRequest{}, err
	}
	if err := unmarshalInto(questions, &req.Questions); err != nil {
		return types.ClarificationRequest{}, err
	}
	if err := unmarshalInto(ambiguities, &req.Ambiguities); err != nil {
		return types.ClarificationRequest{}, err
	}
	if err := unmarshalInto(matches, &req.ContextualMatches); err != nil {
		return types.ClarificationRequest{}, err
	}
	return req, nil
}

func (s *Store) putClarificationResponseDB(ctx context.Context, resp types.ClarificationResponse) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	responses, err := json.Marshal(resp.Responses)
	if err != nil {
		return err
	}
	requirements, err := marshalNullable(resp.UpdatedRequirements)
	if err != nil {
		return err
	}
	projectContext, err := marshalNullable(resp.UpdatedProjectContext)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO clarification_responses (
  interaction_id, responses, updated_requirements, updated_project_context, timestamp
)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (interaction_id)
DO UPDATE SET responses=EXCLUDED.responses,
  updated_requirements=EXCLUDED.updated_requirements,
  updated_project_context=EXCLUDED.updated_project_context,
  timestamp=EXCLUDED.timestamp`,
		resp.InteractionID, responses, requirements, projectContext, resp.Timestamp)
	return err
}

func (s *Store) clarificationHistoryDB(ctx context.Context, projectType string) ([]types.ClarificationExchange, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT resp.interaction_id, req.questions, req.ambiguities, req.contextual_matches,
  resp.responses, resp.updated_requirements, resp.timestamp
FROM clarification_responses resp
JOIN clarification_requests req ON resp.interaction_id = req.interaction_id
WHERE req.type = 'creation'
  AND req.requirements->>'type' = $1
ORDER BY resp.timestamp DESC
LIMIT 10`, strings.TrimSpace(projectType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.ClarificationExchange
	for rows.Next() {
		var (
			ex           types.ClarificationExchange
			questions    []byte
			ambiguities  []byte
			matches      []byte
			responses    []byte
			requirements []byte
		)
		if err := rows.Scan(&ex.InteractionID, &questions, &ambiguities, &matches,
			&responses, &requirements, &ex.Timestamp); err != nil {
			return nil, err
		}
		if err := unmarshalInto(questions, &ex.Questions); err != nil {
			return nil, err
		}
		if err := unmarshalInto(ambiguities, &ex.Ambiguities); err != nil {
			return nil, err
		}
		if err := unmarshalInto(matches, &ex.ContextualMatches); err != nil {
			return nil, err
		}
		if err := unmarshalInto(responses, &ex.Responses); err != nil {
			return nil, err
		}
		if err := unmarshalInto(requirements, &ex.UpdatedRequirements); err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

func (s *Store) savePatternsDB(ctx context.Context, kind types.TaskKind, patterns map[string]*types.LearnedPattern) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	for projectType, p := range patterns {
		if p == nil {
			continue
		}
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		_, err = s.db.ExecContext(ctx, `
INSERT INTO patterns (pattern_type, project_type, pattern_data, success_rate, uses)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (pattern_type, project_type)
DO UPDATE SET pattern_data=EXCLUDED.pattern_data,
  success_rate=EXCLUDED.success_rate,
  uses=EXCLUDED.uses,
  updated_at=NOW()`,
			string(kind), projectType, data, p.SuccessRate, p.Uses)
		if err != nil {
			return fmt.Errorf("save pattern %s/%s: %w", kind, projectType, err)
		}
	}
	return nil
}

func (s *Store) learningPatternsDB(ctx context.Context) (types.PatternSet, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT pattern_type, project_type, pattern_data
FROM patterns
ORDER BY uses DESC, success_rate DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := types.PatternSet{}
	for rows.Next() {
		var (
			kind        string
			projectType string
			data        []byte
		)
		if err := rows.Scan(&kind, &projectType, &data); err != nil {
			return nil, err
		}
		var p types.LearnedPattern
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		k := types.TaskKind(kind)
		if out[k] == nil {
			out[k] = map[string]*types.LearnedPattern{}
		}
		out[k][projectType] = &p
	}
	return out, rows.Err()
}

func (s *Store) appendInteractionDB(ctx context.Context, in types.Interaction) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	strategy, err := marshalNullable(in.Strategy)
	if err != nil {
		return err
	}
	result, err := marshalNullable(in.Result)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO interactions (interaction_id, type, project_type, strategy, result, success, timestamp)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (interaction_id)
DO UPDATE SET type=EXCLUDED.type,
  project_type=EXCLUDED.project_type,
  strategy=EXCLUDED.strategy,
  result=EXCLUDED.result,
  success=EXCLUDED.success,
  timestamp=EXCLUDED.timestamp`,
		in.ID, string(in.Kind), in.ProjectType, strategy, result, in.Success, in.Timestamp)
	return err
}

func (s *Store) recentInteractionsDB(ctx context.Context, projectType string, limit int) ([]types.Interaction, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT interaction_id, type, project_type, strategy, result, success, timestamp
FROM interactions
WHERE project_type = $1
ORDER BY timestamp DESC
LIMIT $2`, strings.TrimSpace(projectType), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Interaction
	for rows.Next() {
		var (
			in       types.Interaction
			kind     string
			strategy []byte
			result   []byte
		)
		if err := rows.Scan(&in.ID, &kind, &in.ProjectType, &strategy, &result, &in.Success, &in.Timestamp); err != nil {
			return nil, err
		}
		in.Kind = types.TaskKind(kind)
		if len(strategy) > 0 {
			in.Strategy = json.RawMessage(strategy)
		}
		if len(result) > 0 {
			in.Result = json.RawMessage(result)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *Store) incrementAgentPerformanceDB(ctx context.Context, agent, taskType, projectType string, success bool) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	win := 0
	if success {
		win = 1
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO agent_performance (agent_name, task_type, project_type, uses, successes, success_rate)
VALUES ($1,$2,$3,1,$4,$4)
ON CONFLICT (agent_name, task_type, project_type)
DO UPDATE SET uses = agent_performance.uses + 1,
  successes = agent_performance.successes + $4,
  success_rate = (agent_performance.successes + $4)::float / (agent_performance.uses + 1)::float,
  updated_at = NOW()`,
		strings.TrimSpace(agent), strings.TrimSpace(taskType), strings.TrimSpace(projectType), win)
	return err
}

func (s *Store) agentPerformanceDB(ctx context.Context, agent, taskType, projectType string) ([]types.AgentPerformanceRecord, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	query := `SELECT agent_name, task_type, project_type, uses, successes, success_rate FROM agent_performance`
	var (
		conds []string
		args  []any
	)
	for _, f := range []struct {
		col string
		val string
	}{
		{"agent_name", agent},
		{"task_type", taskType},
		{"project_type", projectType},
	} {
		if v := strings.TrimSpace(f.val); v != "" {
			args = append(args, v)
			conds = append(conds, fmt.Sprintf("%s = $%d", f.col, len(args)))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY uses DESC, success_rate DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.AgentPerformanceRecord
	for rows.Next() {
		var r types.AgentPerformanceRecord
		if err := rows.Scan(&r.AgentName, &r.TaskType, &r.ProjectType, &r.Uses, &r.Successes, &r.SuccessRate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) putProjectDB(ctx context.Context, p types.Project) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	technologies, err := marshalNullable(p.Technologies)
	if err != nil {
		return err
	}
	features, err := marshalNullable(p.Features)
	if err != nil {
		return err
	}
	files, err := marshalNullable(p.Files)
	if err != nil {
		return err
	}
	validation, err := marshalNullable(p.Validation)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO projects (project_id, name, type, technologies, features, files, validation, timestamp)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (project_id)
DO UPDATE SET name=EXCLUDED.name,
  type=EXCLUDED.type,
  technologies=EXCLUDED.technologies,
  features=EXCLUDED.features,
  files=EXCLUDED.files,
  validation=EXCLUDED.validation,
  timestamp=EXCLUDED.timestamp`,
		p.ID, p.Name, p.Type, technologies, features, files, validation, p.Timestamp)
	return err
}

func (s *Store) recentProjectsDB(ctx context.Context, projectType string, limit int) ([]types.Project, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	var (
		rows *sql.Rows
		err  error
	)
	if t := strings.TrimSpace(projectType); t != "" {
		rows, err = s.db.QueryContext(ctx, `
SELECT project_id, name, type, technologies, features, files, validation, timestamp
FROM projects WHERE type = $1 ORDER BY timestamp DESC LIMIT $2`, t, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
SELECT project_id, name, type, technologies, features, files, validation, timestamp
FROM projects ORDER BY timestamp DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Project
	for rows.Next() {
		var (
			p            types.Project
			technologies []byte
			features     []byte
			files        []byte
			validation   []byte
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Type, &technologies, &features, &files, &validation, &p.Timestamp); err != nil {
			return nil, err
		}
		if err := unmarshalInto(technologies, &p.Technologies); err != nil {
			return nil, err
		}
		if err := unmarshalInto(features, &p.Features); err != nil {
			return nil, err
		}
		if err := unmarshalInto(files, &p.Files); err != nil {
			return nil, err
		}
		if err := unmarshalInto(validation, &p.Validation); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
