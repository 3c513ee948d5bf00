package api

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"go-kuensel-scraper/internal/archive"
	"go-kuensel-scraper/internal/models"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const defaultCategory = "general"

// Handler serves the archive file. It is re-read on every request so a
// running scraper's saves show up without a restart.
type Handler struct {
	archivePath string
	now         func() time.Time
}

func NewHandler(archivePath string) *Handler {
	return &Handler{archivePath: archivePath, now: time.Now}
}

// NewRouter wires the read-only archive routes.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/", h.root)
	api := r.Group("/api")
	{
		api.GET("/health", h.health)
		api.GET("/posts", h.listPosts)
		api.GET("/posts/:id", h.getPost)
		api.GET("/categories", h.categories)
		api.GET("/stats", h.stats)
	}
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("request")
	}
}

// load writes the error response itself and returns nil when the archive
// cannot be served.
func (h *Handler) load(c *gin.Context) *models.Archive {
	a, err := archive.Read(h.archivePath)
	switch {
	case errors.Is(err, archive.ErrNoArchive):
		c.JSON(http.StatusNotFound, gin.H{"error": "No data files found"})
		return nil
	case err != nil:
		log.Errorf("❌ Failed to read archive: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil
	}
	return a
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Kuensel Posts API is running!",
		"status":  "healthy",
	})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": h.now().Format(time.RFC3339),
	})
}

func (h *Handler) listPosts(c *gin.Context) {
	a := h.load(c)
	if a == nil {
		return
	}

	posts := a.Posts
	if category := c.Query("category"); category != "" {
		filtered := make([]models.Post, 0, len(posts))
		for _, p := range posts {
			if p.Category == category {
				filtered = append(filtered, p)
			}
		}
		posts = filtered
	}
	//an unparsable limit is ignored
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit >= 0 && limit < len(posts) {
		posts = posts[:limit]
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"total_posts":      len(posts),
		"scraping_session": a.ScrapingSession,
		"posts":            posts,
	})
}

func (h *Handler) getPost(c *gin.Context) {
	a := h.load(c)
	if a == nil {
		return
	}

	id := c.Param("id")
	for _, p := range a.Posts {
		if p.ID == id {
			c.JSON(http.StatusOK, gin.H{"success": true, "post": p})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
}

func (h *Handler) categories(c *gin.Context) {
	a := h.load(c)
	if a == nil {
		return
	}

	counts := countCategories(a.Posts)
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	c.JSON(http.StatusOK, gin.H{"success": true, "categories": names})
}

func (h *Handler) stats(c *gin.Context) {
	a := h.load(c)
	if a == nil {
		return
	}

	images, videos := 0, 0
	for _, p := range a.Posts {
		images += len(p.Attachment.Images)
		videos += len(p.Attachment.Videos)
	}
	lastUpdated := a.ScrapingSession.Timestamp
	if lastUpdated == "" {
		lastUpdated = "Unknown"
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats": gin.H{
			"total_posts":  len(a.Posts),
			"categories":   countCategories(a.Posts),
			"total_images": images,
			"total_videos": videos,
			"last_updated": lastUpdated,
		},
	})
}

func countCategories(posts []models.Post) map[string]int {
	counts := make(map[string]int)
	for _, p := range posts {
		category := p.Category
		if category == "" {
			category = defaultCategory
		}
		counts[category]++
	}
	return counts
}
