package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/bridge-engine/internal/engine"
	"github.com/hxuan190/bridge-engine/internal/http/httputil"
)

type ExecuteHandler struct {
	engineSvc *engine.Service
}

func NewExecuteHandler(engineSvc *engine.Service) *ExecuteHandler {
	return &ExecuteHandler{engineSvc: engineSvc}
}

func (h *ExecuteHandler) Root() string {
	return "/execute"
}

func (h *ExecuteHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("/prepare", h.prepare)
	pub.POST("", h.execute)
	pub.POST("/reset", h.reset)
}

type PrepareRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// PrepareResponse pins the selected quote and hands the unsigned payload to
// the client for signing.
type PrepareResponse struct {
	Phase     string `json:"phase"`
	Provider  string `json:"provider"`
	TxPayload string `json:"txPayload"`
	RequestID string `json:"requestId"`
}

type ExecuteRequest struct {
	SessionID         string `json:"sessionId" binding:"required"`
	SignedTransaction string `json:"signedTransaction" binding:"required"`
}

type ResetRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// @Summary Prepare execution
// @Description Pin the session's selected quote and move the execution machine to awaiting_signature. Fails if the quote expired.
// @Tags execute
// @Accept json
// @Produce json
// @Param request body PrepareRequest true "Session"
// @Success 200 {object} httputil.Response{data=PrepareResponse}
// @Failure 400 {object} httputil.Response
// @Router /api/v1/execute/prepare [post]
func (h *ExecuteHandler) prepare(c *gin.Context) {
	var req PrepareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	sess, err := h.engineSvc.Session(req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	quote, err := sess.Orchestrator.SelectedQuote()
	if err != nil {
		respondError(c, err)
		return
	}
	state, err := sess.Controller.Begin(quote)
	if err != nil {
		respondError(c, err)
		return
	}

	httputil.Success(c, PrepareResponse{
		Phase:     string(state.Phase),
		Provider:  string(quote.Provider),
		TxPayload: quote.TxPayload,
		RequestID: quote.RequestID,
	})
}

// @Summary Submit signed transaction
// @Description Submit the signed transaction to the selected provider and block through bounded confirmation polling. Returns the terminal execution state.
// @Tags execute
// @Accept json
// @Produce json
// @Param request body ExecuteRequest true "Signed transaction"
// @Success 200 {object} httputil.Response
// @Failure 400 {object} httputil.Response
// @Failure 422 {object} httputil.Response
// @Failure 504 {object} httputil.Response
// @Router /api/v1/execute [post]
func (h *ExecuteHandler) execute(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	sess, err := h.engineSvc.Session(req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	state, err := sess.Controller.Execute(c.Request.Context(), req.SignedTransaction)
	if err != nil {
		respondError(c, err)
		return
	}
	httputil.Success(c, state)
}

// @Summary Reset execution
// @Description Return the session's execution machine to idle. Only settled or failed executions can be reset.
// @Tags execute
// @Accept json
// @Produce json
// @Param request body ResetRequest true "Session"
// @Success 200 {object} httputil.Response
// @Failure 400 {object} httputil.Response
// @Router /api/v1/execute/reset [post]
func (h *ExecuteHandler) reset(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	sess, err := h.engineSvc.Session(req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := sess.Controller.Reset(); err != nil {
		respondError(c, err)
		return
	}
	httputil.Success(c, sess.Controller.State())
}
