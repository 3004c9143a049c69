package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"guestlist-backend/services"
	"guestlist-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var errorMessages = map[error]string{
	services.ErrLinkInvalid:     "This signup link is not valid",
	services.ErrLinkFull:        "This signup link is full",
	services.ErrLinkAlreadyUsed: "This signup link has already been used",
	services.ErrEventAtCapacity: "This event is at capacity",
	services.ErrUnauthorized:    "You are not allowed to do this",
	services.ErrNotFound:        "Not found",
	services.ErrSlugTaken:       "This slug is already taken",
	services.ErrEmailTaken:      "A user with this email already exists",
	services.ErrNotCheckedIn:    "Guest is not checked in",
	services.ErrInvalidCount:    "Invalid count",
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidCount):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrLinkInvalid):
		return http.StatusNotFound
	case errors.Is(err, services.ErrLinkFull),
		errors.Is(err, services.ErrLinkAlreadyUsed),
		errors.Is(err, services.ErrEventAtCapacity),
		errors.Is(err, services.ErrDuplicateGuest),
		errors.Is(err, services.ErrSlugTaken),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrNotCheckedIn):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes the failure body for a service error. extra is merged
// into the body (the door uses it for the current state).
func respondError(ctx *gin.Context, err error, extra gin.H) {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		body := gin.H{"fields": ve.Fields}
		for k, v := range extra {
			body[k] = v
		}
		utils.JSONFailure(ctx, http.StatusBadRequest, "validation", "Please fix the highlighted fields", body)
		return
	}

	var dup *services.DuplicateGuestError
	if errors.As(err, &dup) {
		body := gin.H{"existingGuestId": dup.Existing}
		for k, v := range extra {
			body[k] = v
		}
		utils.JSONFailure(ctx, http.StatusConflict, services.ErrDuplicateGuest.Error(),
			"A similar guest is already on the list: "+dup.Name, body)
		return
	}

	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", ctx.FullPath()).Msg("request failed")
		utils.JSONFailure(ctx, code, "storage_error", "Something went wrong, please try again", extra)
		return
	}

	for sentinel, msg := range errorMessages {
		if errors.Is(err, sentinel) {
			if errors.Is(err, services.ErrInvalidCount) {
				msg = err.Error()
			}
			utils.JSONFailure(ctx, code, sentinel.Error(), msg, extra)
			return
		}
	}
	utils.JSONFailure(ctx, code, "error", err.Error(), extra)
}

// paramID parses a positive numeric path parameter, answering 400 itself
// when it is malformed.
func paramID(ctx *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || n == 0 {
		utils.JSONFailure(ctx, http.StatusBadRequest, "validation", "Invalid "+name, nil)
		return 0, false
	}
	return uint(n), true
}

func badPayload(ctx *gin.Context, err error) {
	utils.JSONFailure(ctx, http.StatusBadRequest, "validation", "Invalid payload", gin.H{"detail": err.Error()})
}
