package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/swap-engine/internal/engine"
	"github.com/hxuan190/swap-engine/internal/http/httputil"
	"github.com/hxuan190/swap-engine/internal/swap/steps"
	"github.com/hxuan190/swap-engine/internal/tradingapi"
)

// SessionHandler exposes stateful swap sessions: debounced input, quote
// acceptance and step execution.
type SessionHandler struct {
	engine *engine.Engine
}

func NewSessionHandler(e *engine.Engine) *SessionHandler {
	return &SessionHandler{engine: e}
}

func (h *SessionHandler) Root() string {
	return "/sessions"
}

func (h *SessionHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("", h.create)
	pub.GET("/:id", h.withSession(h.get))
	pub.DELETE("/:id", h.close)
	pub.PUT("/:id/input", h.withSession(h.input))
	pub.POST("/:id/refresh", h.withSession(h.refresh))
	pub.POST("/:id/accept", h.withSession(h.accept))
	pub.POST("/:id/prepare", h.withSession(h.prepare))
	pub.POST("/:id/abort", h.withSession(h.abort))

	pub.POST("/:id/steps/:index/begin", h.withSession(h.withStep(h.beginStep)))
	pub.POST("/:id/steps/:index/complete", h.withSession(h.withStep(h.completeStep)))
	pub.POST("/:id/steps/:index/fail", h.withSession(h.withStep(h.failStep)))
	pub.POST("/:id/steps/:index/retry", h.withSession(h.withStep(h.retryStep)))

	admin.GET("/count", h.count)
}

type sessionFunc func(c *gin.Context, s *engine.Session)

type stepFunc func(c *gin.Context, s *engine.Session, index int)

func (h *SessionHandler) withSession(fn sessionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := h.engine.Session(c.Param("id"))
		if err != nil {
			handleError(c, err)
			return
		}
		fn(c, s)
	}
}

func (h *SessionHandler) withStep(fn stepFunc) sessionFunc {
	return func(c *gin.Context, s *engine.Session) {
		index, err := strconv.Atoi(c.Param("index"))
		if err != nil || index < 0 {
			httputil.BadRequest(c, "invalid step index")
			return
		}
		fn(c, s, index)
	}
}

func (h *SessionHandler) respond(c *gin.Context, v engine.View, err error) {
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.Success(c, v)
}

// create godoc
// @Summary Open a swap session
// @Tags session
// @Accept json
// @Produce json
// @Param request body CreateSessionRequest true "Session owner"
// @Success 200 {object} httputil.Response{data=engine.View}
// @Failure 400 {object} httputil.Response
// @Router /api/v1/sessions [post]
func (h *SessionHandler) create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	s := h.engine.NewSession(req.Account)
	httputil.Success(c, s.View())
}

// get godoc
// @Summary Read a session
// @Description Current trade, indicative trade, accepted trade, acceptance state and steps.
// @Tags session
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} httputil.Response{data=engine.View}
// @Failure 404 {object} httputil.Response
// @Router /api/v1/sessions/{id} [get]
func (h *SessionHandler) get(c *gin.Context, s *engine.Session) {
	httputil.Success(c, s.View())
}

// close godoc
// @Summary Close a session
// @Description Stops polling, cancels in-flight quotes and abandons any step flow.
// @Tags session
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} httputil.Response
// @Failure 404 {object} httputil.Response
// @Router /api/v1/sessions/{id} [delete]
func (h *SessionHandler) close(c *gin.Context) {
	if err := h.engine.CloseSession(c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	httputil.Success(c, gin.H{"id": c.Param("id")})
}

// input godoc
// @Summary Update the swap input
// @Description With debounce=true the input is coalesced with other keystrokes and the
// @Description quote refreshes in the background (202). Otherwise the quote is fetched
// @Description before responding.
// @Tags session
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param debounce query bool false "Coalesce with other updates"
// @Param request body TradeInputRequest true "Swap input"
// @Success 200 {object} httputil.Response{data=engine.View}
// @Success 202 {object} httputil.Response{data=engine.View}
// @Failure 400 {object} httputil.Response
// @Failure 404 {object} httputil.Response
// @Failure 502 {object} httputil.Response
// @Router /api/v1/sessions/{id}/input [put]
func (h *SessionHandler) input(c *gin.Context, s *engine.Session) {
	var req TradeInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	args, err := req.toArgs()
	if err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	if c.Query("debounce") == "true" {
		s.UpdateInput(args)
		httputil.Accepted(c, s.View())
		return
	}
	v, err := s.SetInput(c.Request.Context(), args)
	h.respond(c, v, err)
}

// refresh godoc
// @Summary Refetch the quote
// @Tags session
// @Produce json
// @Param id path string true "Session id"
// @Param force query bool false "Bypass the quote cache"
// @Success 200 {object} httputil.Response{data=engine.View}
// @Failure 404 {object} httputil.Response
// @Failure 502 {object} httputil.Response
// @Router /api/v1/sessions/{id}/refresh [post]
func (h *SessionHandler) refresh(c *gin.Context, s *engine.Session) {
	v, err := s.Refresh(c.Request.Context(), c.Query("force") == "true")
	h.respond(c, v, err)
}

// accept godoc
// @Summary Accept the updated trade
// @Description Promotes a trade whose price moved beyond tolerance to the accepted trade.
// @Tags session
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} httputil.Response{data=engine.View}
// @Failure 404 {object} httputil.Response
// @Failure 409 {object} httputil.Response "No trade to accept"
// @Router /api/v1/sessions/{id}/accept [post]
func (h *SessionHandler) accept(c *gin.Context, s *engine.Session) {
	v, err := s.Accept()
	h.respond(c, v, err)
}

// prepare godoc
// @Summary Prepare the swap
// @Description Checks approvals, builds transactions and gas estimates for the accepted
// @Description trade and returns the ordered steps. The first step is Active.
// @Tags session
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param request body PrepareSwapRequest false "Gas urgency"
// @Success 200 {object} httputil.Response{data=engine.View}
// @Failure 404 {object} httputil.Response
// @Failure 409 {object} httputil.Response "Trade must be accepted first"
// @Failure 500 {object} httputil.Response
// @Router /api/v1/sessions/{id}/prepare [post]
func (h *SessionHandler) prepare(c *gin.Context, s *engine.Session) {
	var req PrepareSwapRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}
	urgency := tradingapi.Urgency(req.Urgency)
	switch urgency {
	case "", tradingapi.UrgencyNormal, tradingapi.UrgencyFast, tradingapi.UrgencyUrgent:
	default:
		httputil.BadRequest(c, "urgency must be normal, fast or urgent")
		return
	}
	v, err := s.PrepareSwap(c.Request.Context(), urgency)
	h.respond(c, v, err)
}

// abort godoc
// @Summary Abandon the current steps
// @Tags session
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} httputil.Response{data=engine.View}
// @Failure 404 {object} httputil.Response
// @Router /api/v1/sessions/{id}/abort [post]
func (h *SessionHandler) abort(c *gin.Context, s *engine.Session) {
	httputil.Success(c, s.Abort())
}

// beginStep godoc
// @Summary Mark a step as in progress
// @Description Called when the wallet prompt opens. Stops the step's countdown.
// @Tags steps
// @Produce json
// @Param id path string true "Session id"
// @Param index path int true "Step index"
// @Success 200 {object} httputil.Response{data=engine.View}
// @Failure 409 {object} httputil.Response "Not the current step"
// @Failure 410 {object} httputil.Response "Step timed out"
// @Router /api/v1/sessions/{id}/steps/{index}/begin [post]
func (h *SessionHandler) beginStep(c *gin.Context, s *engine.Session, index int) {
	v, err := s.BeginStep(index)
	h.respond(c, v, err)
}

// completeStep godoc
// @Summary Complete a step
// @Description Signature steps must include the signature. The next step becomes Active.
// @Tags steps
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param index path int true "Step index"
// @Param request body CompleteStepRequest true "Step result"
// @Success 200 {object} httputil.Response{data=engine.View}
// @Failure 409 {object} httputil.Response
// @Router /api/v1/sessions/{id}/steps/{index}/complete [post]
func (h *SessionHandler) completeStep(c *gin.Context, s *engine.Session, index int) {
	var req CompleteStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	v, err := s.CompleteStep(c.Request.Context(), index, steps.Result{Signature: req.Signature, TxHash: req.TxHash})
	h.respond(c, v, err)
}

// failStep godoc
// @Summary Fail a step
// @Description Records a rejected prompt or a failed submission. The step can be retried.
// @Tags steps
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param index path int true "Step index"
// @Param request body FailStepRequest false "Failure reason"
// @Success 200 {object} httputil.Response{data=engine.View}
// @Failure 409 {object} httputil.Response
// @Router /api/v1/sessions/{id}/steps/{index}/fail [post]
func (h *SessionHandler) failStep(c *gin.Context, s *engine.Session, index int) {
	var req FailStepRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}
	v, err := s.FailStep(index, req.Reason)
	h.respond(c, v, err)
}

// retryStep godoc
// @Summary Retry a failed step
// @Tags steps
// @Produce json
// @Param id path string true "Session id"
// @Param index path int true "Step index"
// @Success 200 {object} httputil.Response{data=engine.View}
// @Failure 409 {object} httputil.Response
// @Failure 410 {object} httputil.Response "Timed out steps need a new quote"
// @Router /api/v1/sessions/{id}/steps/{index}/retry [post]
func (h *SessionHandler) retryStep(c *gin.Context, s *engine.Session, index int) {
	v, err := s.RetryStep(index)
	h.respond(c, v, err)
}

func (h *SessionHandler) count(c *gin.Context) {
	httputil.Success(c, gin.H{"sessions": h.engine.SessionCount()})
}
