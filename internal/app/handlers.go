package app

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abitlab/itmo-advisor-go/internal/advisor"
	"github.com/abitlab/itmo-advisor-go/internal/config"
	"github.com/abitlab/itmo-advisor-go/internal/ctxutil"
	domerrors "github.com/abitlab/itmo-advisor-go/internal/errors"
	"github.com/abitlab/itmo-advisor-go/internal/kb"
	"github.com/abitlab/itmo-advisor-go/internal/qa"
	"github.com/abitlab/itmo-advisor-go/internal/recommend"
)

// respondError writes a JSON error payload and records the failure. The
// route template, not the raw path, keeps the metric label cardinality
// bounded.
func (a *Application) respondError(c *gin.Context, status int, errorType, message string) {
	if a.metrics != nil {
		a.metrics.RecordHTTPError(errorType, c.FullPath())
	}
	c.JSON(status, gin.H{"error": message})
}

type askRequest struct {
	Text   string `json:"text" binding:"required"`
	UserID int64  `json:"user_id"`
}

// handleAsk answers an applicant question through the provider chain.
// When user_id names a stored profile, the answer is personalized.
func (a *Application) handleAsk(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.respondError(c, http.StatusBadRequest, "bad_request", "text is required")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		a.respondError(c, http.StatusBadRequest, "bad_request", "text is required")
		return
	}

	ctx := c.Request.Context()
	qctx := advisor.QueryContext{}
	if req.UserID != 0 {
		ctx = ctxutil.WithUserID(ctx, req.UserID)
		profile, err := a.db.GetUserByTelegramID(ctx, req.UserID)
		switch {
		case err == nil:
			qctx.Profile = profile
		case !errors.Is(err, domerrors.ErrNotFound):
			a.logger.WithError(err).WithField("user_id", req.UserID).Warn("Profile lookup failed")
		}
	}

	result := a.chain.Answer(ctx, text, qctx)
	c.JSON(http.StatusOK, result)
}

// handleRelated returns questions similar to the query text. top_k
// overrides the configured default when positive.
func (a *Application) handleRelated(c *gin.Context) {
	text := strings.TrimSpace(c.Query("text"))
	if text == "" {
		a.respondError(c, http.StatusBadRequest, "bad_request", "text query parameter is required")
		return
	}

	topK := a.cfg.Matching.RelatedTopK
	if raw := c.Query("top_k"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			topK = v
		}
	}

	related := a.matcher.Related(c.Request.Context(), text, topK)
	if related == nil {
		related = []qa.RelatedQuestion{}
	}

	c.JSON(http.StatusOK, gin.H{
		"related": related,
		"count":   len(related),
	})
}

type addQARequest struct {
	Question string `json:"question" binding:"required"`
	Answer   string `json:"answer" binding:"required"`
	Category string `json:"category"`
}

// handleAddQA stores a curated question/answer pair and reindexes.
func (a *Application) handleAddQA(c *gin.Context) {
	var req addQARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.respondError(c, http.StatusBadRequest, "bad_request", "question and answer are required")
		return
	}

	id, err := a.matcher.AddPair(c.Request.Context(), req.Question, req.Answer, req.Category)
	if err != nil {
		var verr *domerrors.ValidationError
		if errors.As(err, &verr) {
			a.respondError(c, http.StatusBadRequest, "bad_request", verr.Error())
			return
		}
		a.logger.WithError(err).Error("Failed to add QA pair")
		a.respondError(c, http.StatusInternalServerError, "internal", "failed to store QA pair")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// handleStats reports corpus and catalog totals.
func (a *Application) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"qa":        a.matcher.Stats(),
		"knowledge": a.getKnowledgeStats(c.Request.Context()),
	})
}

type interestsRequest struct {
	Text string `json:"text" binding:"required"`
}

// handleInterests extracts weighted interest categories from free text.
func (a *Application) handleInterests(c *gin.Context) {
	var req interestsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.respondError(c, http.StatusBadRequest, "bad_request", "text is required")
		return
	}

	interests := a.extractor.Extract(req.Text)
	c.JSON(http.StatusOK, gin.H{
		"interests": interests,
		"count":     len(interests),
	})
}

type profileRequest struct {
	TelegramID       int64  `json:"telegram_id" binding:"required"`
	Username         string `json:"username"`
	FirstName        string `json:"first_name"`
	Text             string `json:"text" binding:"required"`
	PreferredProgram string `json:"preferred_program"`
}

// handleProfile analyzes an applicant's background text and upserts the
// resulting profile. Without an explicit preferred_program the program
// is inferred from the text when it leans one way.
func (a *Application) handleProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.respondError(c, http.StatusBadRequest, "bad_request", "telegram_id and text are required")
		return
	}

	ctx := ctxutil.WithUserID(c.Request.Context(), req.TelegramID)
	background := a.extractor.AnalyzeBackground(req.Text)

	preferred := req.PreferredProgram
	if preferred == "" {
		preferred = recommend.DetectProgram(req.Text)
	}

	profile := &kb.UserProfile{
		TelegramID:       req.TelegramID,
		Username:         req.Username,
		FirstName:        req.FirstName,
		ExperienceLevel:  background.ExperienceLevel,
		TechnicalSkills:  background.TechnicalSkills,
		Interests:        background.Interests,
		PreferredProgram: preferred,
	}
	if err := a.db.SaveProfile(ctx, profile); err != nil {
		a.logger.WithError(err).WithField("user_id", req.TelegramID).Error("Failed to save profile")
		a.respondError(c, http.StatusInternalServerError, "internal", "failed to save profile")
		return
	}

	// Read back for the timestamps the upsert filled in.
	stored, err := a.db.GetUserByTelegramID(ctx, req.TelegramID)
	if err != nil {
		stored = profile
	}

	c.JSON(http.StatusOK, gin.H{"profile": stored})
}

type recommendationsRequest struct {
	TelegramID       int64              `json:"telegram_id"`
	Interests        map[string]float64 `json:"interests"`
	Text             string             `json:"text"`
	PreferredProgram string             `json:"preferred_program"`
	TopK             int                `json:"top_k"`
	MinScore         float64            `json:"min_score"`
}

// handleRecommendations ranks catalog courses for the applicant.
// Interests come from the request body, the stored profile, or free
// text, in that order; with none of those the general ranking applies.
func (a *Application) handleRecommendations(c *gin.Context) {
	var req recommendationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.respondError(c, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = a.cfg.Recommend.TopK
	}
	minScore := req.MinScore
	if minScore <= 0 {
		minScore = a.cfg.Recommend.MinScore
	}

	ctx := c.Request.Context()
	interests := req.Interests
	preferred := req.PreferredProgram
	source := "interests"

	if req.TelegramID != 0 {
		ctx = ctxutil.WithUserID(ctx, req.TelegramID)
		profile, err := a.db.GetUserByTelegramID(ctx, req.TelegramID)
		switch {
		case err == nil:
			if len(interests) == 0 && len(profile.Interests) > 0 {
				interests = profile.Interests
				source = "profile"
			}
			if preferred == "" {
				preferred = profile.PreferredProgram
			}
		case !errors.Is(err, domerrors.ErrNotFound):
			a.logger.WithError(err).WithField("user_id", req.TelegramID).Warn("Profile lookup failed")
		}
	}

	var recs []recommend.Recommendation
	var err error
	switch {
	case len(interests) > 0:
		recs, err = a.recommender.Recommend(ctx, interests, preferred, topK, minScore)
	case strings.TrimSpace(req.Text) != "":
		source = "text"
		recs, err = a.recommender.RecommendFromText(ctx, req.Text, preferred, topK)
	default:
		source = "general"
		recs, err = a.recommender.General(ctx, preferred, topK)
	}
	if err != nil {
		a.logger.WithError(err).Error("Recommendation failed")
		a.respondError(c, http.StatusInternalServerError, "internal", "failed to build recommendations")
		return
	}
	if recs == nil {
		recs = []recommend.Recommendation{}
	}

	if req.TelegramID != 0 && len(recs) > 0 {
		// Detach from the request context so a client disconnect during
		// serialization cannot abort the history write.
		saveCtx, cancel := context.WithTimeout(ctxutil.PreserveTracing(ctx), config.HistoryWrite)
		defer cancel()
		if err := a.recommender.SaveForUser(saveCtx, req.TelegramID, recs); err != nil {
			a.logger.WithError(err).WithField("user_id", req.TelegramID).Warn("Failed to save recommendation history")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"recommendations": recs,
		"count":           len(recs),
		"source":          source,
	})
}

// handlePrograms lists the master's programs in the catalog.
func (a *Application) handlePrograms(c *gin.Context) {
	programs, err := a.db.GetAllPrograms(c.Request.Context())
	if err != nil {
		a.logger.WithError(err).Error("Failed to list programs")
		a.respondError(c, http.StatusInternalServerError, "internal", "failed to list programs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"programs": programs,
		"count":    len(programs),
	})
}

// handleProgramCourses lists the courses of one program, addressed by
// its key ("AI", "AI_Product").
func (a *Application) handleProgramCourses(c *gin.Context) {
	ctx := c.Request.Context()
	key := c.Param("program")

	program, err := a.db.GetProgramByKey(ctx, key)
	if err != nil {
		if errors.Is(err, domerrors.ErrNotFound) {
			a.respondError(c, http.StatusNotFound, "not_found", "unknown program: "+key)
			return
		}
		a.logger.WithError(err).WithField("program", key).Error("Failed to load program")
		a.respondError(c, http.StatusInternalServerError, "internal", "failed to load program")
		return
	}

	courses, err := a.db.GetCoursesByProgram(ctx, program.ID)
	if err != nil {
		a.logger.WithError(err).WithField("program", key).Error("Failed to list courses")
		a.respondError(c, http.StatusInternalServerError, "internal", "failed to list courses")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"program": program,
		"courses": courses,
		"count":   len(courses),
	})
}
