package http

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// browserHistory serves a recorded browser trace. Only bare `.gif` filenames
// inside the history directory are reachable.
func (h *handler) browserHistory(c *gin.Context) {
	filename := c.Param("filename")

	if !strings.HasSuffix(filename, ".gif") || filename != filepath.Base(filename) || strings.Contains(filename, "..") {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}

	path := filepath.Join(h.historyDir, filename)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return
	}

	c.Header("Content-Disposition", "inline; filename="+filename)
	c.Header("Content-Type", "image/gif")
	c.File(path)
}
