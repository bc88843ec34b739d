package profile

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmcloughlin/geohash"
	"github.com/rs/zerolog"

	"sparkmatch/backend/internal/api"
	"sparkmatch/backend/internal/models"
	"sparkmatch/backend/internal/storage"
)

// geohashPrecision 5 gives cells of roughly 5 km, enough for the distance
// features without storing exact coordinates in indexes.
const geohashPrecision = 5

// Handler serves profile CRUD and the photo metadata sub-resource.
type Handler struct {
	Storage       storage.Storage
	NSFWThreshold float64
	Log           zerolog.Logger
}

func NewHandler(s storage.Storage, nsfwThreshold float64, log zerolog.Logger) *Handler {
	return &Handler{Storage: s, NSFWThreshold: nsfwThreshold, Log: log}
}

// Register mounts the profile routes. All of them require a bearer token;
// the auth middleware is applied by the caller.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/profiles/check", h.Check)
	r.GET("/profiles/:user_id", h.Get)
	r.POST("/profiles", h.Create)
	r.PATCH("/profiles/:user_id", h.Update)

	r.POST("/profiles/:user_id/photos", h.AddPhoto)
	r.DELETE("/profiles/:user_id/photos/:photo_id", h.DeletePhoto)
	r.PUT("/profiles/:user_id/photos/order", h.ReorderPhotos)
	r.PUT("/profiles/:user_id/photos/:photo_id/primary", h.SetPrimaryPhoto)
}

// View is the externally visible shape. Privacy flags are applied for
// everyone but the owner.
type View struct {
	UserID            int64          `json:"user_id"`
	Name              string         `json:"name"`
	Age               *int           `json:"age,omitempty"`
	Gender            string         `json:"gender"`
	Orientation       string         `json:"orientation,omitempty"`
	Goal              string         `json:"goal"`
	Bio               string         `json:"bio,omitempty"`
	Interests         []string       `json:"interests"`
	HeightCM          int            `json:"height_cm,omitempty"`
	Education         string         `json:"education,omitempty"`
	HasChildren       *bool          `json:"has_children,omitempty"`
	WantsChildren     *bool          `json:"wants_children,omitempty"`
	Smoking           *bool          `json:"smoking,omitempty"`
	Drinking          *bool          `json:"drinking,omitempty"`
	Country           string         `json:"country,omitempty"`
	City              string         `json:"city,omitempty"`
	IsComplete        bool           `json:"is_complete"`
	IsVisible         bool           `json:"is_visible"`
	AllowMessagesFrom string         `json:"allow_messages_from"`
	Photos            []models.Photo `json:"photos"`
}

// NewView renders a profile for a given requester, hiding what the owner asked
// to hide and filtering photos through moderation.
func NewView(p *models.Profile, requesterID int64, nsfwThreshold float64, now time.Time) View {
	owner := requesterID == p.UserID
	v := View{
		UserID:            p.UserID,
		Name:              p.Name,
		Gender:            p.Gender,
		Goal:              p.Goal,
		Bio:               p.Bio,
		Interests:         p.Interests,
		HeightCM:          p.HeightCM,
		Education:         p.Education,
		HasChildren:       p.HasChildren,
		WantsChildren:     p.WantsChildren,
		Smoking:           p.Smoking,
		Drinking:          p.Drinking,
		Country:           p.Country,
		City:              p.City,
		IsComplete:        p.IsComplete,
		IsVisible:         p.IsVisible,
		AllowMessagesFrom: p.AllowMessagesFrom,
		Photos:            make([]models.Photo, 0, len(p.Photos)),
	}
	if owner {
		v.Orientation = p.Orientation
	}
	if owner || !p.HideAge {
		age := p.Age(now)
		v.Age = &age
	}
	for _, photo := range p.Photos {
		if owner || photo.VisibleTo(nsfwThreshold) {
			v.Photos = append(v.Photos, photo)
		}
	}
	return v
}

func (h *Handler) Get(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		api.Fail(c, err)
		return
	}
	p, getErr := h.Storage.GetProfile(userID)
	if errors.Is(getErr, storage.ErrNotFound) {
		api.Fail(c, api.NotFound("profile not found"))
		return
	}
	if getErr != nil {
		api.Fail(c, getErr)
		return
	}
	api.OK(c, http.StatusOK, NewView(p, api.UserID(c), h.NSFWThreshold, time.Now()))
}

func (h *Handler) Check(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		api.Fail(c, api.Validation(map[string]string{"user_id": "must be an integer"}))
		return
	}
	exists, err := h.Storage.ProfileExists(userID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, gin.H{"exists": exists})
}

func (h *Handler) Create(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		api.Fail(c, api.Validation(map[string]string{"body": "malformed JSON"}))
		return
	}
	now := time.Now()
	if details := validateCreate(&in, now); len(details) > 0 {
		api.Fail(c, api.Validation(details))
		return
	}

	userID := api.UserID(c)
	exists, err := h.Storage.ProfileExists(userID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	if exists {
		api.Fail(c, api.Conflict("profile already exists"))
		return
	}

	birthDate, _ := parseBirthDate(in.BirthDate, now)
	p := &models.Profile{
		UserID:        userID,
		Name:          in.Name,
		BirthDate:     birthDate,
		Gender:        in.Gender,
		Orientation:   in.Orientation,
		Goal:          in.Goal,
		Bio:           in.Bio,
		Interests:     in.Interests,
		HeightCM:      in.HeightCM,
		Education:     in.Education,
		HasChildren:   in.HasChildren,
		WantsChildren: in.WantsChildren,
		Smoking:       in.Smoking,
		Drinking:      in.Drinking,
		Country:       in.Country,
		City:          in.City,
		Lat:           in.Lat,
		Lon:           in.Lon,
		HideAge:       in.HideAge,
		HideDistance:  in.HideDistance,
		HideOnline:    in.HideOnline,
		IsVisible:     true,
	}
	p.AllowMessagesFrom = "matches"
	if in.AllowMessagesFrom != nil {
		p.AllowMessagesFrom = *in.AllowMessagesFrom
	}
	applyGeohash(p)
	p.IsComplete = isComplete(p, now)

	if err := h.Storage.CreateProfile(p); err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusCreated, NewView(p, userID, h.NSFWThreshold, now))
}

func (h *Handler) Update(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		api.Fail(c, err)
		return
	}
	if userID != api.UserID(c) {
		api.Fail(c, api.Forbidden("cannot edit another user's profile"))
		return
	}

	var in UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		api.Fail(c, api.Validation(map[string]string{"body": "malformed JSON"}))
		return
	}
	if details := validateUpdate(&in); len(details) > 0 {
		api.Fail(c, api.Validation(details))
		return
	}

	p, getErr := h.Storage.GetProfile(userID)
	if errors.Is(getErr, storage.ErrNotFound) {
		api.Fail(c, api.NotFound("profile not found"))
		return
	}
	if getErr != nil {
		api.Fail(c, getErr)
		return
	}

	applyUpdate(p, &in)
	applyGeohash(p)
	now := time.Now()
	p.IsComplete = isComplete(p, now)

	if err := h.Storage.SaveProfile(p); err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, NewView(p, userID, h.NSFWThreshold, now))
}

func applyUpdate(p *models.Profile, in *UpdateInput) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Orientation != nil {
		p.Orientation = *in.Orientation
	}
	if in.Goal != nil {
		p.Goal = *in.Goal
	}
	if in.Bio != nil {
		p.Bio = *in.Bio
	}
	if in.Interests != nil {
		p.Interests = *in.Interests
	}
	if in.HeightCM != nil {
		p.HeightCM = *in.HeightCM
	}
	if in.Education != nil {
		p.Education = *in.Education
	}
	if in.HasChildren != nil {
		p.HasChildren = in.HasChildren
	}
	if in.WantsChildren != nil {
		p.WantsChildren = in.WantsChildren
	}
	if in.Smoking != nil {
		p.Smoking = in.Smoking
	}
	if in.Drinking != nil {
		p.Drinking = in.Drinking
	}
	if in.Country != nil {
		p.Country = *in.Country
	}
	if in.City != nil {
		p.City = *in.City
	}
	if in.Lat != nil && in.Lon != nil {
		p.Lat, p.Lon = in.Lat, in.Lon
	}
	if in.HideAge != nil {
		p.HideAge = *in.HideAge
	}
	if in.HideDistance != nil {
		p.HideDistance = *in.HideDistance
	}
	if in.HideOnline != nil {
		p.HideOnline = *in.HideOnline
	}
	if in.AllowMessagesFrom != nil {
		p.AllowMessagesFrom = *in.AllowMessagesFrom
	}
	if in.IsVisible != nil {
		p.IsVisible = *in.IsVisible
	}
}

func applyGeohash(p *models.Profile) {
	if p.Lat != nil && p.Lon != nil {
		p.Geohash = geohash.EncodeWithPrecision(*p.Lat, *p.Lon, geohashPrecision)
	} else {
		p.Geohash = ""
	}
}

func pathUserID(c *gin.Context) (int64, *api.Error) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		return 0, api.Validation(map[string]string{"user_id": "must be an integer"})
	}
	return userID, nil
}
