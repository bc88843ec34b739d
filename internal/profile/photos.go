package profile

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sparkmatch/backend/internal/api"
	"sparkmatch/backend/internal/models"
	"sparkmatch/backend/internal/storage"
)

const maxPhotosPerProfile = 9

type addPhotoRequest struct {
	URL       string  `json:"url"`
	NSFWScore float64 `json:"nsfw_score"`
}

// AddPhoto records metadata for an image already uploaded to the media
// service. New photos start pending moderation.
func (h *Handler) AddPhoto(c *gin.Context) {
	userID, perr := pathUserID(c)
	if perr != nil {
		api.Fail(c, perr)
		return
	}
	if userID != api.UserID(c) {
		api.Fail(c, api.Forbidden("cannot edit another user's photos"))
		return
	}

	var req addPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		api.Fail(c, api.Validation(map[string]string{"url": "required"}))
		return
	}
	if req.NSFWScore < 0 || req.NSFWScore > 1 {
		api.Fail(c, api.Validation(map[string]string{"nsfw_score": "must be within [0,1]"}))
		return
	}

	photos, err := h.Storage.ListPhotos(userID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	if len(photos) >= maxPhotosPerProfile {
		api.Fail(c, api.Validation(map[string]string{"photos": "photo limit reached"}))
		return
	}

	photo := &models.Photo{
		ProfileUserID: userID,
		URL:           req.URL,
		NSFWScore:     req.NSFWScore,
		Status:        models.PhotoPending,
	}
	if err := h.Storage.AddPhoto(photo); err != nil {
		api.Fail(c, err)
		return
	}
	h.Storage.InvalidateCachedProfile(userID)
	api.OK(c, http.StatusCreated, photo)
}

func (h *Handler) DeletePhoto(c *gin.Context) {
	userID, photoID, perr := photoPath(c)
	if perr != nil {
		api.Fail(c, perr)
		return
	}
	if err := h.Storage.DeletePhoto(userID, photoID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			api.Fail(c, api.NotFound("photo not found"))
			return
		}
		api.Fail(c, err)
		return
	}
	h.Storage.InvalidateCachedProfile(userID)
	api.OK(c, http.StatusOK, gin.H{"deleted": true})
}

type reorderRequest struct {
	PhotoIDs []int64 `json:"photo_ids"`
}

func (h *Handler) ReorderPhotos(c *gin.Context) {
	userID, perr := pathUserID(c)
	if perr != nil {
		api.Fail(c, perr)
		return
	}
	if userID != api.UserID(c) {
		api.Fail(c, api.Forbidden("cannot edit another user's photos"))
		return
	}
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.PhotoIDs) == 0 {
		api.Fail(c, api.Validation(map[string]string{"photo_ids": "required"}))
		return
	}
	if err := h.Storage.ReorderPhotos(userID, req.PhotoIDs); err != nil {
		api.Fail(c, err)
		return
	}
	photos, err := h.Storage.ListPhotos(userID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	h.Storage.InvalidateCachedProfile(userID)
	api.OK(c, http.StatusOK, gin.H{"photos": photos})
}

func (h *Handler) SetPrimaryPhoto(c *gin.Context) {
	userID, photoID, perr := photoPath(c)
	if perr != nil {
		api.Fail(c, perr)
		return
	}
	if err := h.Storage.SetPrimaryPhoto(userID, photoID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			api.Fail(c, api.NotFound("photo not found"))
			return
		}
		api.Fail(c, err)
		return
	}
	h.Storage.InvalidateCachedProfile(userID)
	api.OK(c, http.StatusOK, gin.H{"primary": photoID})
}

func photoPath(c *gin.Context) (int64, int64, *api.Error) {
	userID, perr := pathUserID(c)
	if perr != nil {
		return 0, 0, perr
	}
	if userID != api.UserID(c) {
		return 0, 0, api.Forbidden("cannot edit another user's photos")
	}
	photoID, err := strconv.ParseInt(c.Param("photo_id"), 10, 64)
	if err != nil {
		return 0, 0, api.Validation(map[string]string{"photo_id": "must be an integer"})
	}
	return userID, photoID, nil
}
