package handlers

import (
	"archive/zip"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/vibecode-backend/internal/http/response"
	"github.com/yungbote/vibecode-backend/internal/platform/apierr"
	"github.com/yungbote/vibecode-backend/internal/services"
)

type ProjectHandler struct {
	projects services.ProjectService
}

func NewProjectHandler(projects services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

type generateReq struct {
	Description string `json:"description"`
	Name        string `json:"name"`
	ProjectID   string `json:"project_id"`
}

// POST /project/generate
func (h *ProjectHandler) Generate(c *gin.Context) {
	var req generateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondInvalid(c, err)
		return
	}
	gen, err := h.projects.Generate(c.Request.Context(), services.GenerateInput{
		Description: req.Description,
		Name:        req.Name,
		ProjectID:   req.ProjectID,
		Author:      services.AuthorUser,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"project_id":   gen.ProjectID,
		"revision_id":  gen.RevisionID,
		"files_count":  len(gen.Files),
		"project_kind": gen.Kind,
		"summary":      gen.Summary,
	})
}

// GET /project/:id/revisions
func (h *ProjectHandler) Revisions(c *gin.Context) {
	revs, err := h.projects.Revisions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"revisions": revs})
}

type rollbackReq struct {
	RevisionID string `json:"revision_id"`
}

// POST /project/:id/rollback
func (h *ProjectHandler) Rollback(c *gin.Context) {
	var req rollbackReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondInvalid(c, err)
		return
	}
	e, err := h.projects.Rollback(c.Request.Context(), c.Param("id"), req.RevisionID, services.AuthorUser)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"new_revision_id": e.RevisionID})
}

// GET /project/:id/diff?a=&b=
func (h *ProjectHandler) Diff(c *gin.Context) {
	d, err := h.projects.Diff(c.Request.Context(), c.Param("id"), c.Query("a"), c.Query("b"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, d)
}

// GET /project/:id/files?revision_id=
func (h *ProjectHandler) Files(c *gin.Context) {
	e, files, err := h.projects.Files(c.Request.Context(), c.Param("id"), c.Query("revision_id"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"revision": e, "files": files})
}

// GET /project/:id/download?revision_id=
// Streams one revision (latest when unset) as a zip archive.
func (h *ProjectHandler) Download(c *gin.Context) {
	e, files, err := h.projects.Files(c.Request.Context(), c.Param("id"), c.Query("revision_id"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.zip"`, e.ProjectID))
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)

	zw := zip.NewWriter(c.Writer)
	for _, p := range e.FilePaths {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: p, Method: zip.Deflate, Modified: e.Timestamp})
		if err == nil {
			_, err = w.Write([]byte(files[p]))
		}
		if err != nil {
			_ = c.Error(fmt.Errorf("zip %s: %w", p, err))
			return
		}
	}
	if err := zw.Close(); err != nil {
		_ = c.Error(fmt.Errorf("zip close: %w", err))
	}
}

// GET /projects?limit=50
func (h *ProjectHandler) List(c *gin.Context) {
	limit := 50
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			response.RespondError(c, apierr.Newf(apierr.KindValidation, "limit must be a positive integer"))
			return
		}
		limit = n
	}
	rows, err := h.projects.List(c.Request.Context(), limit)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"projects": rows})
}
