// Package memory persists interactions, learned patterns, clarification
// exchanges and project snapshots. A store backed by Postgres is used when
// a DSN is configured; otherwise everything lives in a single JSON file.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"devforge/internal/types"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("memory: not found")

// clarificationCacheSize bounds the pending-request read cache.
const clarificationCacheSize = 1024

type Store struct {
	path string
	db   *sql.DB

	loadOnce sync.Once
	mu       sync.RWMutex
	file     *fileState

	schemaOnce sync.Once
	schemaErr  error

	requestCache *lru.Cache[string, types.ClarificationRequest]
}

// New builds a file-backed store persisting to path.
func New(path string) *Store {
	return &Store{
		path: path,
		file: newFileState(),
	}
}

// NewPostgres connects to Postgres and verifies the connection.
func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := lru.New[string, types.ClarificationRequest](clarificationCacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{
		db:           db,
		requestCache: cache,
	}, nil
}

// NewFromEnv picks Postgres when MEMORY_PG_DSN or DATABASE_URL is set and
// reachable, and falls back to the file store at path otherwise.
func NewFromEnv(path string) *Store {
	dsn := strings.TrimSpace(os.Getenv("MEMORY_PG_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		return New(path)
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		return New(path)
	}
	return s
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PutClarificationRequest upserts a pending request keyed by interaction id.
func (s *Store) PutClarificationRequest(ctx context.Context, req types.ClarificationRequest) error {
	if s == nil || strings.TrimSpace(req.ID) == "" {
		return nil
	}
	if s.db != nil {
		if err := s.putClarificationRequestDB(ctx, req); err != nil {
			return err
		}
		s.requestCache.Remove(req.ID)
		return nil
	}
	return s.putClarificationRequestFile(req)
}

// GetClarificationRequest looks a pending request up by interaction id.
func (s *Store) GetClarificationRequest(ctx context.Context, id string) (types.ClarificationRequest, error) {
	if s == nil {
		return types.ClarificationRequest{}, ErrNotFound
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return types.ClarificationRequest{}, ErrNotFound
	}
	if s.db != nil {
		if cached, ok := s.requestCache.Get(id); ok {
			return cached, nil
		}
		req, err := s.getClarificationRequestDB(ctx, id)
		if err != nil {
			return types.ClarificationRequest{}, err
		}
		s.requestCache.Add(id, req)
		return req, nil
	}
	return s.getClarificationRequestFile(id)
}

// PutClarificationResponse upserts the answers for an interaction id.
func (s *Store) PutClarificationResponse(ctx context.Context, resp types.ClarificationResponse) error {
	if s == nil || strings.TrimSpace(resp.InteractionID) == "" {
		return nil
	}
	if s.db != nil {
		return s.putClarificationResponseDB(ctx, resp)
	}
	return s.putClarificationResponseFile(resp)
}

// ClarificationHistory returns the last ten answered creation-task
// clarifications whose requirements targeted projectType, newest first.
func (s *Store) ClarificationHistory(ctx context.Context, projectType string) ([]types.ClarificationExchange, error) {
	if s == nil {
		return nil, nil
	}
	if s.db != nil {
		return s.clarificationHistoryDB(ctx, projectType)
	}
	return s.clarificationHistoryFile(projectType)
}

// SavePatterns replaces the stored pattern rows for one kind.
func (s *Store) SavePatterns(ctx context.Context, kind types.TaskKind, patterns map[string]*types.LearnedPattern) error {
	if s == nil {
		return nil
	}
	if s.db != nil {
		return s.savePatternsDB(ctx, kind, patterns)
	}
	return s.savePatternsFile(kind, patterns)
}

// LearningPatterns loads every stored pattern grouped by kind and
// project type.
func (s *Store) LearningPatterns(ctx context.Context) (types.PatternSet, error) {
	if s == nil {
		return types.PatternSet{}, nil
	}
	if s.db != nil {
		return s.learningPatternsDB(ctx)
	}
	return s.learningPatternsFile()
}

// AppendInteraction upserts one interaction record by id.
func (s *Store) AppendInteraction(ctx context.Context, in types.Interaction) error {
	if s == nil || strings.TrimSpace(in.ID) == "" {
		return nil
	}
	if s.db != nil {
		return s.appendInteractionDB(ctx, in)
	}
	return s.appendInteractionFile(in)
}

// RecentInteractions returns up to limit interactions for projectType,
// newest first.
func (s *Store) RecentInteractions(ctx context.Context, projectType string, limit int) ([]types.Interaction, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	if s.db != nil {
		return s.recentInteractionsDB(ctx, projectType, limit)
	}
	return s.recentInteractionsFile(projectType, limit)
}

// IncrementAgentPerformance bumps the (agent, task type, project type)
// ledger row in one atomic statement.
func (s *Store) IncrementAgentPerformance(ctx context.Context, agent, taskType, projectType string, success bool) error {
	if s == nil || strings.TrimSpace(agent) == "" {
		return nil
	}
	if s.db != nil {
		return s.incrementAgentPerformanceDB(ctx, agent, taskType, projectType, success)
	}
	return s.incrementAgentPerformanceFile(agent, taskType, projectType, success)
}

// AgentPerformance lists ledger rows; empty filter arguments match
// everything. Rows come back ordered by uses, then success rate.
func (s *Store) AgentPerformance(ctx context.Context, agent, taskType, projectType string) ([]types.AgentPerformanceRecord, error) {
	if s == nil {
		return nil, nil
	}
	if s.db != nil {
		return s.agentPerformanceDB(ctx, agent, taskType, projectType)
	}
	return s.agentPerformanceFile(agent, taskType, projectType)
}

// PutProject upserts a project snapshot by project id.
func (s *Store) PutProject(ctx context.Context, p types.Project) error {
	if s == nil || strings.TrimSpace(p.ID) == "" {
		return nil
	}
	if s.db != nil {
		return s.putProjectDB(ctx, p)
	}
	return s.putProjectFile(p)
}

// RecentProjects returns up to limit project snapshots, newest first.
// An empty projectType matches all types.
func (s *Store) RecentProjects(ctx context.Context, projectType string, limit int) ([]types.Project, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	if s.db != nil {
		return s.recentProjectsDB(ctx, projectType, limit)
	}
	return s.recentProjectsFile(projectType, limit)
}
