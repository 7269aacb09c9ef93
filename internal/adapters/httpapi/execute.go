package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/kodesesh/backend/internal/core"
)

// ExecuteHandler runs a snippet through the execution collaborator and
// returns its output. Sharing the result with the room happens client-side
// via the execution-result socket event.
type ExecuteHandler struct {
	Executor core.Executor
}

func (h *ExecuteHandler) Execute(c *gin.Context) {
	var req struct {
		Language string `json:"language"`
		Code     string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}
	if req.Language == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "language is required"})
		return
	}
	if req.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "code is required"})
		return
	}

	output, err := h.Executor.Execute(c.Request.Context(), req.Language, req.Code)
	if err != nil {
		log.Warn().Err(err).Str("module", "httpapi").Str("language", req.Language).Msg("code execution failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "output": output})
}
