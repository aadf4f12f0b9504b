package handlers

import (
	"fmt"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/vibecode-backend/internal/domain/project"
	"github.com/yungbote/vibecode-backend/internal/http/response"
	"github.com/yungbote/vibecode-backend/internal/platform/apierr"
	"github.com/yungbote/vibecode-backend/internal/services"
)

// PreviewAssetsPrefix is where a preview page resolves its relative links.
const PreviewAssetsPrefix = "/preview-assets/"

var headOpen = regexp.MustCompile(`(?i)<head[^>]*>`)

type PreviewHandler struct {
	projects services.ProjectService
}

func NewPreviewHandler(projects services.ProjectService) *PreviewHandler {
	return &PreviewHandler{projects: projects}
}

// GET /preview/:project_id
func (h *PreviewHandler) Page(c *gin.Context) {
	id := c.Param("project_id")
	_, files, err := h.projects.Files(c.Request.Context(), id, c.Query("revision_id"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	page, ok := files[project.EntryFile]
	if !ok {
		response.RespondError(c, apierr.Newf(apierr.KindProjectNotFound, "project %s has no %s", id, project.EntryFile))
		return
	}
	response.RespondFile(c, "text/html; charset=utf-8", withBase(page, PreviewAssetsPrefix+id+"/"))
}

// GET /preview-assets/:project_id/*path
func (h *PreviewHandler) Asset(c *gin.Context) {
	id := c.Param("project_id")
	p := strings.TrimPrefix(path.Clean("/"+c.Param("path")), "/")
	_, files, err := h.projects.Files(c.Request.Context(), id, c.Query("revision_id"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	body, ok := files[p]
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, response.ErrorEnvelope{
			Error:   apierr.KindProjectNotFound,
			Message: fmt.Sprintf("file %s not found in project %s", p, id),
		})
		return
	}
	ct := mime.TypeByExtension(path.Ext(p))
	if ct == "" {
		ct = "text/plain; charset=utf-8"
	}
	response.RespondFile(c, ct, body)
}

// withBase points relative links of page at base. Pages without a head get one.
func withBase(page, base string) string {
	tag := `<base href="` + base + `">`
	if loc := headOpen.FindStringIndex(page); loc != nil {
		return page[:loc[1]] + tag + page[loc[1]:]
	}
	return tag + page
}
