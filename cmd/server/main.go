// Command server hosts the in-scope HTTP surface of the itinerary core:
// HMAC-verified admin triggers for the micro-stop inserter and the
// shadow-ranking comparison, plus the public share-link create/resolve
// endpoints (share creation is rate-limited). It is deliberately NOT a general API
// gateway — trip CRUD, auth, and the rest of the client-facing surface
// live in the Next.js/Prisma layer this core was distilled from.
package main

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"iaros/itinerary_core/internal/adminauth"
	"iaros/itinerary_core/internal/apperr"
	"iaros/itinerary_core/internal/config"
	"iaros/itinerary_core/internal/dbx"
	"iaros/itinerary_core/internal/logging"
	"iaros/itinerary_core/internal/microstops"
	"iaros/itinerary_core/internal/ratelimit"
	"iaros/itinerary_core/internal/shadow"
	"iaros/itinerary_core/internal/tokens"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		panic(err)
	}

	logger := logging.Must(cfg.Env)
	defer logger.Sync()

	db, err := dbx.Connect(cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(cfg.Database, cfg.MigrationsDir); err != nil {
		logger.Fatal("failed to migrate schema", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	microstopService := microstops.NewService(db.Gorm, logger)
	shadowRunner := shadow.NewRunner(db.Gorm, logger, nil, cfg.Features.ShadowRankingEnabled)
	tokenService := tokens.NewService(db.Gorm, logger)
	shareLimiter := ratelimit.NewLimiter(redisClient, logger, "ratelimit:share:ip", 30, time.Minute)

	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.GinMiddleware(logger))

	router.GET("/healthz", func(c *gin.Context) {
		if err := db.HealthCheck(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	admin := router.Group("/admin")
	admin.Use(adminauth.Middleware(cfg.AdminHMAC.Secret, logger))
	{
		admin.POST("/trips/:tripId/days/:dayNumber/microstops", handleMicrostopSuggest(microstopService))
		admin.POST("/shadow/compare", handleShadowCompare(shadowRunner))
	}

	public := router.Group("/")
	{
		public.POST("/trips/:tripId/share", handleCreateShareLink(tokenService, shareLimiter))
		public.GET("/shared/:token", handleGetSharedTrip(tokenService))
	}

	addr := ":8080"
	logger.Info("server listening", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func handleMicrostopSuggest(svc *microstops.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID, err := uuid.Parse(c.Param("tripId"))
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid trip id"})
			return
		}
		dayNumber, err := strconv.Atoi(c.Param("dayNumber"))
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid day number"})
			return
		}

		result, err := svc.SuggestForDay(c.Request.Context(), tripID.String(), dayNumber)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"inserted": result.InsertedCount(), "warnings": result.Warnings})
	}
}

func handleShadowCompare(runner *shadow.Runner) gin.HandlerFunc {
	type request struct {
		UserID             string   `json:"userId" binding:"required"`
		Candidates         []string `json:"candidates" binding:"required"`
		ProductionRankings []string `json:"productionRankings" binding:"required"`
	}
	return func(c *gin.Context) {
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		runner.RunDetached(c.Request.Context(), req.UserID, req.Candidates, req.ProductionRankings)
		c.JSON(http.StatusAccepted, gin.H{"accepted": true})
	}
}

func handleCreateShareLink(svc *tokens.Service, limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.Request.Context(), c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many share link requests"})
			return
		}

		tripID, err := uuid.Parse(c.Param("tripId"))
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid trip id"})
			return
		}
		actorUserID, err := uuid.Parse(c.GetHeader("X-User-Id"))
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid user id"})
			return
		}

		shared, err := svc.CreateShareLink(c.Request.Context(), tripID, actorUserID)
		if err != nil {
			writeTokenError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id": shared.ID, "token": shared.Token, "tripId": shared.TripID,
			"expiresAt": shared.ExpiresAt, "shareUrl": "/s/" + shared.Token,
		})
	}
}

func handleGetSharedTrip(svc *tokens.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		trip, err := svc.ResolveShareLink(c.Request.Context(), c.Param("token"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   gin.H{"code": "NOT_FOUND", "message": "Shared trip not found."},
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"trip": trip}})
	}
}

func writeTokenError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	if ae, ok := err.(*apperr.Error); ok {
		status = ae.Kind.HTTPStatus()
		message = ae.Message
	}
	c.JSON(status, gin.H{"error": message})
}
