package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"timeclock/internal/afd"
	"timeclock/internal/auth"
	"timeclock/internal/clock"
	"timeclock/internal/config"
	"timeclock/internal/consolidation"
	"timeclock/internal/httpmiddleware"
	"timeclock/internal/metrics"
	"timeclock/internal/queue"
	"timeclock/internal/store"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

func newLogger(env string) *zap.Logger {
	if env == "production" || env == "prod" {
		logger, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return logger
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.Migrate(context.Background()); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "timeclock:consolidation")
	}

	loc := cfg.Location()
	repo := clock.NewPostgresRepository(db.Client)
	signing := clock.NewService(repo, consolidation.NewTrigger(q), cfg.DedupWindow, loc, logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/clients/register", func(c *gin.Context) {
		var req struct {
			ClientID string `json:"client_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		tokens, err := auth.Issue(req.ClientID, "terminal", cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}

		_ = repo.SaveRefreshToken(c.Request.Context(), req.ClientID, tokens.RefreshToken, tokens.RefreshExp)

		c.JSON(http.StatusCreated, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	authGroup := r.Group("/v1", auth.ClientAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	authGroup.POST("/clock-events", func(c *gin.Context) {
		var req struct {
			EmployeeID string   `json:"employee_id" binding:"required"`
			CompanyID  string   `json:"company_id" binding:"required"`
			Action     string   `json:"action" binding:"required"`
			Source     string   `json:"source"`
			Latitude   *float64 `json:"latitude"`
			Longitude  *float64 `json:"longitude"`
			PhotoURL   string   `json:"photo_url"`
			Note       string   `json:"note"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		action, err := clock.ParseAction(req.Action)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		claimsAny, _ := c.Get("claims")
		claims, _ := claimsAny.(auth.Claims)

		rec, err := signing.RecordEvent(c.Request.Context(), clock.EventInput{
			EmployeeID: req.EmployeeID,
			CompanyID:  req.CompanyID,
			Action:     action,
			Source:     req.Source,
			Latitude:   req.Latitude,
			Longitude:  req.Longitude,
			PhotoURL:   req.PhotoURL,
			Note:       req.Note,
			CreatedBy:  claims.Subject,
		})
		if err != nil {
			writeSigningError(c, err)
			return
		}

		metrics.ClockEvents.WithLabelValues("recorded").Inc()
		c.JSON(http.StatusCreated, gin.H{
			"id":          rec.ID,
			"employee_id": rec.EmployeeID,
			"action":      rec.Action,
			"occurred_at": rec.OccurredAt,
			"status":      clock.StatusAfter(rec.Action),
		})
	})

	authGroup.GET("/employees/:id/status", func(c *gin.Context) {
		status, err := signing.StatusNow(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeSigningError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"employee_id": c.Param("id"), "status": status})
	})

	authGroup.GET("/employees/:id/clock-events", func(c *gin.Context) {
		day := time.Now().In(loc)
		if v := c.Query("date"); v != "" {
			parsed, err := time.ParseInLocation("2006-01-02", v, loc)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
				return
			}
			day = parsed
		}
		from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
		events, err := repo.EventsBetween(c.Request.Context(), c.Param("id"), from, from.AddDate(0, 0, 1))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	})

	gen := &afdGenerator{cfg: cfg, repo: repo, loc: loc, logger: logger.Named("afd")}

	authGroup.GET("/companies/:id/afd", func(c *gin.Context) {
		gen.handle(c, afdRequest{
			Start:    c.Query("start"),
			End:      c.Query("end"),
			Encoding: c.Query("encoding"),
			Layout:   c.Query("layout"),
		})
	})

	authGroup.POST("/companies/:id/afd", func(c *gin.Context) {
		var req afdRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		gen.handle(c, req)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}

	logger.Info("server exited")
	return nil
}

// writeSigningError maps the signing error taxonomy onto HTTP statuses:
// validation 400, duplicate 409, sequence violation 422.
func writeSigningError(c *gin.Context, err error) {
	if verr, ok := clock.AsValidation(err); ok {
		metrics.ClockEvents.WithLabelValues("invalid_input").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "fields": verr.Fields})
		return
	}
	if d, ok := clock.AsDenial(err); ok {
		status := http.StatusUnprocessableEntity
		result := "invalid_sequence"
		if d.Code == clock.CodeDuplicate {
			status = http.StatusConflict
			result = "duplicate"
		}
		metrics.ClockEvents.WithLabelValues(result).Inc()
		c.JSON(status, gin.H{
			"code":   d.Code,
			"status": d.Status,
			"action": d.Action,
			"reason": d.Reason,
		})
		return
	}
	metrics.ClockEvents.WithLabelValues("error").Inc()
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// afdRequest is the generation request; the POST body may carry
// manually-curated corrections.
type afdRequest struct {
	Start       string          `json:"start" binding:"required"`
	End         string          `json:"end" binding:"required"`
	Encoding    string          `json:"encoding"`
	Layout      string          `json:"layout"`
	Adjustments []afdAdjustment `json:"adjustments"`
	Inclusions  []afdInclusion  `json:"inclusions"`
}

type afdAdjustment struct {
	EmployeeID  string    `json:"employee_id" binding:"required"`
	Original    time.Time `json:"original_at" binding:"required"`
	Adjusted    time.Time `json:"adjusted_at" binding:"required"`
	AdjustedAt  time.Time `json:"adjustment_at" binding:"required"`
	Responsible string    `json:"responsible"`
}

type afdInclusion struct {
	EmployeeID  string    `json:"employee_id" binding:"required"`
	OccurredAt  time.Time `json:"occurred_at" binding:"required"`
	IncludedAt  time.Time `json:"included_at" binding:"required"`
	Responsible string    `json:"responsible"`
}

type afdGenerator struct {
	cfg    config.App
	repo   *clock.PostgresRepository
	loc    *time.Location
	logger *zap.Logger
}

func (g *afdGenerator) handle(c *gin.Context, req afdRequest) {
	companyID := c.Param("id")

	layoutParam := req.Layout
	if layoutParam == "" {
		layoutParam = g.cfg.AFDLayout
	}
	layout, err := afd.ParseLayoutVersion(layoutParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	encParam := req.Encoding
	if encParam == "" {
		encParam = g.cfg.AFDEncoding
	}
	enc, err := afd.ParseEncoding(encParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, err := time.ParseInLocation("2006-01-02", req.Start, g.loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be YYYY-MM-DD"})
		return
	}
	end, err := time.ParseInLocation("2006-01-02", req.End, g.loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be YYYY-MM-DD"})
		return
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must not precede start"})
		return
	}

	ctx := c.Request.Context()
	company, err := g.repo.GetCompany(ctx, companyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if company == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "company not found"})
		return
	}

	roster, err := g.repo.EmployeesByCompany(ctx, companyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// End date is inclusive.
	events, err := g.repo.CompanyEventsBetween(ctx, companyID, start, end.AddDate(0, 0, 1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	input := afd.BuildInput{
		Company:     afd.Company{CNPJ: company.CNPJ, LegalName: company.LegalName},
		Start:       start,
		End:         end,
		Layout:      layout,
		GeneratedAt: time.Now().In(g.loc),
	}
	for _, e := range roster {
		pis := ""
		if e.PIS != nil {
			pis = *e.PIS
		}
		input.Employees = append(input.Employees, afd.Employee{
			ID:       e.ID,
			FullName: e.FullName,
			PIS:      pis,
			Active:   e.Status == clock.EmployeeStatusActive,
		})
	}
	for _, ev := range events {
		input.Events = append(input.Events, afd.Event{EmployeeID: ev.EmployeeID, OccurredAt: ev.OccurredAt})
	}
	for _, a := range req.Adjustments {
		input.Adjustments = append(input.Adjustments, afd.Adjustment{
			EmployeeID:  a.EmployeeID,
			Original:    a.Original,
			Adjusted:    a.Adjusted,
			AdjustedAt:  a.AdjustedAt,
			Responsible: a.Responsible,
		})
	}
	for _, i := range req.Inclusions {
		input.Inclusions = append(input.Inclusions, afd.Inclusion{
			EmployeeID:  i.EmployeeID,
			OccurredAt:  i.OccurredAt,
			IncludedAt:  i.IncludedAt,
			Responsible: i.Responsible,
		})
	}

	records, err := afd.Build(input)
	if err != nil {
		if errors.Is(err, afd.ErrNoEligibleEmployees) || errors.Is(err, afd.ErrFieldOverflow) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	res, err := afd.Encode(records, afd.EncodeConfig{
		Encoding: enc,
		Policy:   afd.Latin1Policy(g.cfg.AFDLatin1Policy),
		CNPJ:     company.CNPJ,
		Start:    start,
		End:      end,
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	metrics.AFDFiles.WithLabelValues(string(layout), string(enc)).Inc()
	g.logger.Info("afd file generated",
		zap.String("company_id", companyID),
		zap.String("filename", res.Filename),
		zap.Int("detail_records", res.RecordCount),
	)

	c.Header("Content-Disposition", `attachment; filename="`+res.Filename+`"`)
	c.Header("X-Total-Records", strconv.Itoa(res.RecordCount))
	c.Data(http.StatusOK, enc.ContentType(), res.Bytes)
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
