package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"devforge/internal/agents"
	"devforge/internal/learning"
	"devforge/internal/orchestrator"
	"devforge/internal/types"
)

// History is the read-side of the clarification store the API exposes.
// *memory.Store satisfies it.
type History interface {
	ClarificationHistory(ctx context.Context, projectType string) ([]types.ClarificationExchange, error)
}

// Handler holds the collaborators behind the API routes.
type Handler struct {
	orch     *orchestrator.Orchestrator
	learning *learning.Engine
	history  History
	log      *logrus.Entry
}

func NewHandler(orch *orchestrator.Orchestrator, learningEngine *learning.Engine, history History, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		orch:     orch,
		learning: learningEngine,
		history:  history,
		log:      logger.WithField("component", "api"),
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   "devforge",
		"timestamp": time.Now().UTC(),
	})
}

type analyzeBody struct {
	Files   []types.ProjectFile   `json:"files"`
	Context *types.ProjectContext `json:"context"`
}

func (h *Handler) Analyze(c *gin.Context) {
	files, projectContext, err := readFilesAndContext(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.orch.AnalyzeCode(c.Request.Context(), files, projectContext)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type createBody struct {
	Requirements *types.Requirements   `json:"requirements"`
	Context      *types.ProjectContext `json:"context"`
}

func (h *Handler) Create(c *gin.Context) {
	var body createBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.Requirements == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "requirements are required"})
		return
	}
	out, err := h.orch.CreateProgram(c.Request.Context(), body.Requirements, body.Context)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type extendBody struct {
	Files        []types.ProjectFile   `json:"files"`
	Requirements *types.Requirements   `json:"requirements"`
	Context      *types.ProjectContext `json:"context"`
}

func (h *Handler) Extend(c *gin.Context) {
	var (
		files          []types.ProjectFile
		req            *types.Requirements
		projectContext *types.ProjectContext
	)
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		files, err = formProjectFiles(form.File["files"])
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if raw := strings.TrimSpace(c.PostForm("requirements")); raw != "" {
			req = &types.Requirements{}
			if err := json.Unmarshal([]byte(raw), req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid requirements: " + err.Error()})
				return
			}
		}
		projectContext, err = formContext(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	} else {
		var body extendBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		files = body.Files
		req = body.Requirements
		projectContext = body.Context
	}
	if req == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "requirements are required"})
		return
	}
	out, err := h.orch.ExtendProject(c.Request.Context(), files, req, projectContext)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type clarificationBody struct {
	InteractionID string   `json:"interactionId"`
	Responses     []string `json:"responses"`
}

func (h *Handler) ClarificationResponse(c *gin.Context) {
	var body clarificationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(body.InteractionID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interactionId is required"})
		return
	}
	out, err := h.orch.SubmitClarificationResponse(c.Request.Context(), body.InteractionID, body.Responses)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) ClarificationHistory(c *gin.Context) {
	history, err := h.history.ClarificationHistory(c.Request.Context(), c.Param("projectType"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

func (h *Handler) Learning(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"patterns":         h.learning.Patterns(),
		"agentPerformance": h.learning.AggregateAgentPerformance(),
	})
}

func (h *Handler) Templates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"templates": h.orch.Templates()})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrClarificationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, agents.ErrUnknownAgent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

// readFilesAndContext accepts either a multipart upload (file parts under
// "files", context as a JSON form field) or a JSON body.
func readFilesAndContext(c *gin.Context) ([]types.ProjectFile, *types.ProjectContext, error) {
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return nil, nil, err
		}
		files, err := formProjectFiles(form.File["files"])
		if err != nil {
			return nil, nil, err
		}
		projectContext, err := formContext(c)
		if err != nil {
			return nil, nil, err
		}
		return files, projectContext, nil
	}
	var body analyzeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, nil, err
	}
	return body.Files, body.Context, nil
}

func formContext(c *gin.Context) (*types.ProjectContext, error) {
	raw := strings.TrimSpace(c.PostForm("context"))
	if raw == "" {
		return nil, nil
	}
	projectContext := &types.ProjectContext{}
	if err := json.Unmarshal([]byte(raw), projectContext); err != nil {
		return nil, errors.New("invalid context: " + err.Error())
	}
	return projectContext, nil
}

func formProjectFiles(headers []*multipart.FileHeader) ([]types.ProjectFile, error) {
	files := make([]types.ProjectFile, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, types.ProjectFile{
			Name:    header.Filename,
			Path:    header.Filename,
			Content: string(content),
		})
	}
	return files, nil
}
