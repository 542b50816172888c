package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/bridge-engine/internal/domain"
	"github.com/hxuan190/bridge-engine/internal/engine"
	"github.com/hxuan190/bridge-engine/internal/http/httputil"
)

type SessionHandler struct {
	engineSvc *engine.Service
}

func NewSessionHandler(engineSvc *engine.Service) *SessionHandler {
	return &SessionHandler{engineSvc: engineSvc}
}

func (h *SessionHandler) Root() string {
	return "/session"
}

func (h *SessionHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("/params", h.setParams)
	pub.GET("/quote", h.getQuote)
	pub.POST("/refresh", h.refresh)
}

// SwapParamsRequest carries the full parameter set for a quote session.
// Every change, however small, supersedes all in-flight quote work.
type SwapParamsRequest struct {
	// Client-chosen session identifier; one session per active swap form.
	SessionID string `json:"sessionId" binding:"required" example:"f3b2c1"`

	OriginChainID uint64 `json:"originChainId" binding:"required" example:"7565164"`

	// Origin token mint or contract address.
	OriginToken string `json:"originToken" binding:"required" example:"So11111111111111111111111111111111111111112"`

	DestinationChainID uint64 `json:"destinationChainId" binding:"required" example:"1"`

	DestinationToken string `json:"destinationToken" binding:"required" example:"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"`

	// Amount in the origin token's smallest units.
	Amount string `json:"amount" binding:"required" example:"1000000000"`

	// ExactIn or ExactOut.
	TradeType string `json:"tradeType" binding:"required" enums:"ExactIn,ExactOut" example:"ExactIn"`

	UserAddress string `json:"userAddress" binding:"required"`

	// Required when the destination chain is EVM; defaults to userAddress
	// for Solana destinations.
	RecipientAddress string `json:"recipientAddress"`

	DestinationTokenDecimals uint8 `json:"destinationTokenDecimals" example:"6"`
}

// @Summary Set swap parameters
// @Description Record the session's swap parameters and start the debounced quote fan-out across all providers.
// @Tags session
// @Accept json
// @Produce json
// @Param request body SwapParamsRequest true "Swap parameters"
// @Success 200 {object} httputil.Response
// @Failure 400 {object} httputil.Response
// @Router /api/v1/session/params [post]
func (h *SessionHandler) setParams(c *gin.Context) {
	var req SwapParamsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	params := domain.SwapParams{
		OriginChainID:            req.OriginChainID,
		OriginToken:              req.OriginToken,
		DestinationChainID:       req.DestinationChainID,
		DestinationToken:         req.DestinationToken,
		Amount:                   req.Amount,
		TradeType:                domain.TradeType(req.TradeType),
		UserAddress:              req.UserAddress,
		RecipientAddress:         req.RecipientAddress,
		DestinationTokenDecimals: req.DestinationTokenDecimals,
	}

	sess, err := h.engineSvc.UpsertParams(req.SessionID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	httputil.Success(c, sess.Orchestrator.Snapshot())
}

// @Summary Get current quote state
// @Description Snapshot of the session's quote fan-out: state, per-provider results, selected best quote, and freshness flags.
// @Tags session
// @Produce json
// @Param sessionId query string true "Session identifier"
// @Success 200 {object} httputil.Response
// @Failure 400 {object} httputil.Response
// @Router /api/v1/session/quote [get]
func (h *SessionHandler) getQuote(c *gin.Context) {
	sess, err := h.engineSvc.Session(c.Query("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	httputil.Success(c, sess.Orchestrator.Snapshot())
}

// @Summary Force a quote re-fetch
// @Description Re-dispatch the session's current parameters to all providers immediately, skipping the debounce window. Any in-flight fetch is superseded.
// @Tags session
// @Produce json
// @Param sessionId query string true "Session identifier"
// @Success 200 {object} httputil.Response
// @Failure 400 {object} httputil.Response
// @Router /api/v1/session/refresh [post]
func (h *SessionHandler) refresh(c *gin.Context) {
	sess, err := h.engineSvc.Session(c.Query("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	sess.Orchestrator.Refresh()
	httputil.Success(c, sess.Orchestrator.Snapshot())
}
