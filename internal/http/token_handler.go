package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/bridge-engine/internal/engine"
	"github.com/hxuan190/bridge-engine/internal/http/httputil"
)

type TokenHandler struct {
	engineSvc *engine.Service
}

func NewTokenHandler(engineSvc *engine.Service) *TokenHandler {
	return &TokenHandler{engineSvc: engineSvc}
}

func (h *TokenHandler) Root() string {
	return "/token"
}

func (h *TokenHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/:mint/fees", h.getFees)
}

// @Summary Get token transfer-fee info
// @Description Token-2022 transfer-fee metadata for a mint. Regular SPL mints and unparseable accounts report no fee.
// @Tags token
// @Produce json
// @Param mint path string true "Token mint address"
// @Success 200 {object} httputil.Response
// @Router /api/v1/token/{mint}/fees [get]
func (h *TokenHandler) getFees(c *gin.Context) {
	info := h.engineSvc.InspectToken(c.Request.Context(), c.Param("mint"))
	httputil.Success(c, info)
}
