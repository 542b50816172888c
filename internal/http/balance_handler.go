package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/bridge-engine/internal/engine"
	"github.com/hxuan190/bridge-engine/internal/http/httputil"
)

type BalanceHandler struct {
	engineSvc *engine.Service
}

func NewBalanceHandler(engineSvc *engine.Service) *BalanceHandler {
	return &BalanceHandler{engineSvc: engineSvc}
}

func (h *BalanceHandler) Root() string {
	return "/balance"
}

func (h *BalanceHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getBalance)
}

// @Summary Get tracked balances
// @Description Latest native and origin-token balance snapshot for the session's user. Empty strings mean the balance is not yet known.
// @Tags balance
// @Produce json
// @Param sessionId query string true "Session identifier"
// @Success 200 {object} httputil.Response
// @Failure 400 {object} httputil.Response
// @Router /api/v1/balance [get]
func (h *BalanceHandler) getBalance(c *gin.Context) {
	sess, err := h.engineSvc.Session(c.Query("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	httputil.Success(c, sess.Tracker.Snapshot())
}
