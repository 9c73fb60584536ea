package server

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docupull/pdf2excel/internal/common"
)

type Router struct {
	uploadHandler     *UploadHandler
	extractionHandler *ExtractionHandler
	exportHandler     *ExportHandler
	cfg               *common.Config
}

func NewRouter(
	uploadHandler *UploadHandler,
	extractionHandler *ExtractionHandler,
	exportHandler *ExportHandler,
	cfg *common.Config,
) *Router {
	return &Router{
		uploadHandler:     uploadHandler,
		extractionHandler: extractionHandler,
		exportHandler:     exportHandler,
		cfg:               cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(CORS(r.cfg.Server.CORSOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	upload := engine.Group("/upload")
	{
		upload.POST("", r.uploadHandler.Upload)
		upload.GET("/list", r.uploadHandler.List)
		upload.DELETE("/:file_id", r.uploadHandler.Delete)
	}

	extract := engine.Group("/extract")
	{
		extract.POST("/start", r.extractionHandler.Start)
		extract.GET("/status/:job_id", r.extractionHandler.Status)
		extract.GET("/result/:job_id", r.extractionHandler.Result)
		extract.DELETE("/:job_id", r.extractionHandler.Delete)
	}

	export := engine.Group("/export")
	{
		export.GET("/download/:job_id", r.exportHandler.Download)
		export.GET("/download/:job_id/csv", r.exportHandler.DownloadCSV)
		export.GET("/info/:job_id", r.exportHandler.Info)
		export.GET("/list", r.exportHandler.List)
	}

	return engine
}

// CORS allows the configured browser origins. OPTIONS preflights short-circuit.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		for _, allowed := range allowedOrigins {
			if origin == allowed {
				c.Header("Access-Control-Allow-Origin", origin)
				break
			}
		}

		c.Header("Access-Control-Allow-Methods", strings.Join([]string{"GET", "POST", "DELETE", "OPTIONS"}, ", "))
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
