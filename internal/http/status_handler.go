package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/bridge-engine/internal/engine"
	"github.com/hxuan190/bridge-engine/internal/http/httputil"
)

type StatusHandler struct {
	engineSvc *engine.Service
}

func NewStatusHandler(engineSvc *engine.Service) *StatusHandler {
	return &StatusHandler{engineSvc: engineSvc}
}

func (h *StatusHandler) Root() string {
	return "/status"
}

func (h *StatusHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/:signature", h.getStatus)
}

// @Summary Get transaction status
// @Description One-shot on-chain status lookup for a transaction signature, without waiting for confirmation.
// @Tags status
// @Produce json
// @Param signature path string true "Base58 transaction signature"
// @Success 200 {object} httputil.Response
// @Failure 400 {object} httputil.Response
// @Router /api/v1/status/{signature} [get]
func (h *StatusHandler) getStatus(c *gin.Context) {
	result, err := h.engineSvc.PollStatus(c.Request.Context(), c.Param("signature"))
	if err != nil {
		respondError(c, err)
		return
	}
	httputil.Success(c, result)
}
