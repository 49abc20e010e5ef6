package http

import (
	"errors"
	"net/http"
	"strconv"

	"autopost/domain/dto"
	"autopost/domain/model"
	"autopost/infrastructure/logger"
	"autopost/interfaces/middleware"
	"autopost/usecase"

	"github.com/gin-gonic/gin"
)

const ErrorUnmarshal = "Error while unmarshal"

type IGroupPostHandler interface {
	Create(ctx *gin.Context)
	List(ctx *gin.Context)
	Get(ctx *gin.Context)
	Delete(ctx *gin.Context)
	History(ctx *gin.Context)
}

type GroupPostHandler struct {
	groupPostUsecase usecase.IGroupPostUsecase
}

func NewGroupPostHandler(groupPostUsecase usecase.IGroupPostUsecase) IGroupPostHandler {
	return &GroupPostHandler{groupPostUsecase: groupPostUsecase}
}

func (h *GroupPostHandler) Create(ctx *gin.Context) {
	caller, ok := middleware.CallerFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing user_id"})
		return
	}
	var req dto.CreateGroupPostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.groupPostUsecase.Submit(ctx.Request.Context(), caller, req)
	if err != nil {
		logger.GetLogger().WithField("user_id", caller.UserID).WithField("error", err.Error()).Warn("group post submission failed")
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, job)
}

func (h *GroupPostHandler) List(ctx *gin.Context) {
	caller, ok := middleware.CallerFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing user_id"})
		return
	}
	jobs, err := h.groupPostUsecase.List(ctx.Request.Context(), caller)
	if err != nil {
		writeError(ctx, err)
		return
	}
	if jobs == nil {
		jobs = []*model.GroupPostJob{}
	}
	ctx.JSON(http.StatusOK, jobs)
}

func (h *GroupPostHandler) Get(ctx *gin.Context) {
	caller, ok := middleware.CallerFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing user_id"})
		return
	}
	job, err := h.groupPostUsecase.Get(ctx.Request.Context(), caller, ctx.Param("id"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, job)
}

func (h *GroupPostHandler) Delete(ctx *gin.Context) {
	caller, ok := middleware.CallerFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing user_id"})
		return
	}
	id := ctx.Param("id")
	res, err := h.groupPostUsecase.Cancel(ctx.Request.Context(), caller, id)
	if err != nil {
		logger.GetLogger().WithField("jobId", id).WithField("user_id", caller.UserID).WithField("error", err.Error()).Warn("group post delete failed")
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

func (h *GroupPostHandler) History(ctx *gin.Context) {
	caller, ok := middleware.CallerFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing user_id"})
		return
	}
	entries, err := h.groupPostUsecase.History(ctx.Request.Context(), caller, queryLimit(ctx))
	if err != nil {
		writeError(ctx, err)
		return
	}
	if entries == nil {
		entries = []*model.PostHistory{}
	}
	ctx.JSON(http.StatusOK, gin.H{"history": entries})
}

func queryLimit(ctx *gin.Context) int {
	if v := ctx.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidRequest), errors.Is(err, model.ErrInsufficientBalance):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUserNotFound), errors.Is(err, model.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func writeError(ctx *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.GetLogger().WithField("path", ctx.FullPath()).WithField("error", err).Error("request failed")
		ctx.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}
