package discovery

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sparkmatch/backend/internal/api"
	"sparkmatch/backend/internal/models"
)

// Handler exposes the discovery routes over the shared service.
type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/discovery/candidates", h.Candidates)
	r.POST("/discovery/like", h.Like)
	r.POST("/discovery/pass", h.Pass)
	r.GET("/discovery/matches", h.Matches)
	r.POST("/discovery/favorites", h.AddFavorite)
	r.DELETE("/discovery/favorites/:target_id", h.RemoveFavorite)
	r.GET("/discovery/favorites", h.Favorites)
}

func (h *Handler) Candidates(c *gin.Context) {
	params, apiErr := parseCandidatesParams(c)
	if apiErr != nil {
		api.Fail(c, apiErr)
		return
	}
	views, next, err := h.Service.Candidates(api.UserID(c), params)
	if err != nil {
		api.Fail(c, err)
		return
	}
	body := gin.H{"candidates": views}
	if next != "" {
		body["next_cursor"] = next
	}
	api.OK(c, http.StatusOK, body)
}

func parseCandidatesParams(c *gin.Context) (CandidatesParams, *api.Error) {
	p := CandidatesParams{Cursor: c.Query("cursor")}
	details := map[string]string{}

	intParam := func(name string, dst *int) {
		raw := c.Query(name)
		if raw == "" {
			return
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			details[name] = "must be a non-negative integer"
			return
		}
		*dst = v
	}
	boolParam := func(name string, dst **bool) {
		raw := c.Query(name)
		if raw == "" {
			return
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			details[name] = "must be a boolean"
			return
		}
		*dst = &v
	}

	intParam("limit", &p.Limit)
	intParam("age_min", &p.AgeMin)
	intParam("age_max", &p.AgeMax)
	intParam("height_min", &p.HeightMin)
	intParam("height_max", &p.HeightMax)
	boolParam("has_children", &p.HasChildren)
	boolParam("wants_children", &p.WantsChildren)
	boolParam("smoking", &p.Smoking)
	boolParam("drinking", &p.Drinking)

	if raw := c.Query("verified_only"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			details["verified_only"] = "must be a boolean"
		} else {
			p.VerifiedOnly = v
		}
	}
	if raw := c.Query("max_distance_km"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			details["max_distance_km"] = "must be a positive number"
		} else {
			p.MaxDistanceKm = v
		}
	}
	if p.Goal = c.Query("goal"); p.Goal != "" && !contains(models.Goals, p.Goal) {
		details["goal"] = "unknown goal"
	}
	if p.Education = c.Query("education"); p.Education != "" && !contains(models.Educations, p.Education) {
		details["education"] = "unknown education"
	}
	if p.AgeMin > 0 && p.AgeMax > 0 && p.AgeMin > p.AgeMax {
		details["age_min"] = "must not exceed age_max"
	}

	if len(details) > 0 {
		return p, api.Validation(details)
	}
	return p, nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

type swipeRequest struct {
	TargetID int64  `json:"target_id"`
	Kind     string `json:"kind"`
}

func (h *Handler) Like(c *gin.Context) {
	var in swipeRequest
	if err := c.ShouldBindJSON(&in); err != nil || in.TargetID == 0 {
		api.Fail(c, api.Validation(map[string]string{"target_id": "required"}))
		return
	}
	kind := models.KindLike
	switch in.Kind {
	case "", models.KindLike:
	case models.KindSuperlike:
		kind = models.KindSuperlike
	default:
		api.Fail(c, api.Validation(map[string]string{"kind": "must be like or superlike"}))
		return
	}
	resp, err := h.Service.Swipe(c.Request.Context(), api.UserID(c), in.TargetID, kind)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, resp)
}

func (h *Handler) Pass(c *gin.Context) {
	var in swipeRequest
	if err := c.ShouldBindJSON(&in); err != nil || in.TargetID == 0 {
		api.Fail(c, api.Validation(map[string]string{"target_id": "required"}))
		return
	}
	resp, err := h.Service.Swipe(c.Request.Context(), api.UserID(c), in.TargetID, models.KindPass)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, resp)
}

func (h *Handler) Matches(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			api.Fail(c, api.Validation(map[string]string{"limit": "must be a non-negative integer"}))
			return
		}
		limit = v
	}
	views, next, err := h.Service.Matches(api.UserID(c), limit, c.Query("cursor"))
	if err != nil {
		api.Fail(c, err)
		return
	}
	body := gin.H{"matches": views}
	if next != "" {
		body["next_cursor"] = next
	}
	api.OK(c, http.StatusOK, body)
}

type favoriteRequest struct {
	TargetID int64 `json:"target_id"`
}

func (h *Handler) AddFavorite(c *gin.Context) {
	var in favoriteRequest
	if err := c.ShouldBindJSON(&in); err != nil || in.TargetID == 0 {
		api.Fail(c, api.Validation(map[string]string{"target_id": "required"}))
		return
	}
	if err := h.Service.AddFavorite(api.UserID(c), in.TargetID); err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, gin.H{"success": true})
}

func (h *Handler) RemoveFavorite(c *gin.Context) {
	targetID, err := strconv.ParseInt(c.Param("target_id"), 10, 64)
	if err != nil {
		api.Fail(c, api.Validation(map[string]string{"target_id": "must be an integer"}))
		return
	}
	if err := h.Service.RemoveFavorite(api.UserID(c), targetID); err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Favorites(c *gin.Context) {
	views, err := h.Service.Favorites(api.UserID(c))
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, gin.H{"favorites": views})
}
