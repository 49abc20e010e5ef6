package http

import (
	"net/http"

	"autopost/domain/dto"
	"autopost/domain/model"
	"autopost/interfaces/middleware"
	"autopost/usecase"

	"github.com/gin-gonic/gin"
)

type IPointsHandler interface {
	Balance(ctx *gin.Context)
	Transactions(ctx *gin.Context)
}

type PointsHandler struct {
	ledgerUsecase usecase.ILedgerUsecase
}

func NewPointsHandler(ledgerUsecase usecase.ILedgerUsecase) IPointsHandler {
	return &PointsHandler{ledgerUsecase: ledgerUsecase}
}

func (h *PointsHandler) Balance(ctx *gin.Context) {
	caller, ok := middleware.CallerFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing user_id"})
		return
	}
	balance, err := h.ledgerUsecase.Balance(ctx.Request.Context(), caller.UserID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.BalanceResponse{UserID: caller.UserID, Balance: balance})
}

func (h *PointsHandler) Transactions(ctx *gin.Context) {
	caller, ok := middleware.CallerFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing user_id"})
		return
	}
	list, err := h.ledgerUsecase.Transactions(ctx.Request.Context(), caller.UserID, queryLimit(ctx))
	if err != nil {
		writeError(ctx, err)
		return
	}
	if list == nil {
		list = []*model.PointTransaction{}
	}
	ctx.JSON(http.StatusOK, gin.H{"transactions": list})
}
