package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/swap-engine/internal/engine"
	"github.com/hxuan190/swap-engine/internal/http/httputil"
	"github.com/hxuan190/swap-engine/internal/metrics"
)

type QuoteHandler struct {
	engine *engine.Engine
}

func NewQuoteHandler(e *engine.Engine) *QuoteHandler {
	return &QuoteHandler{engine: e}
}

func (h *QuoteHandler) Root() string {
	return "/quote"
}

func (h *QuoteHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("", h.getQuote)
	pub.POST("/indicative", h.getIndicativeQuote)
}

// getQuote godoc
// @Summary Get a definitive quote
// @Description Validates the swap input and returns an executable trade. Incomplete or
// @Description invalid input returns a null trade rather than an error, and so does a pair
// @Description with no route. Account settings fill slippage, routing preference and
// @Description protocols that the request leaves unset.
// @Tags quote
// @Accept json
// @Produce json
// @Param request body TradeInputRequest true "Swap input"
// @Success 200 {object} httputil.Response{data=QuoteResponse}
// @Failure 400 {object} httputil.Response "Malformed request"
// @Failure 502 {object} httputil.Response "Pricing API failure"
// @Router /api/v1/quote [post]
func (h *QuoteHandler) getQuote(c *gin.Context) {
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

	res, err := h.engine.Quote(c.Request.Context(), args)
	if err != nil {
		handleError(c, err)
		return
	}

	out := QuoteResponse{Trade: res.Trade, LatencyMs: res.Latency.Milliseconds()}
	if res.Input != nil {
		out.Fingerprint = res.Input.Fingerprint()
	}
	if res.Trade != nil {
		out.Routing = string(res.Trade.Routing())
		metrics.QuoteServed.WithLabelValues(out.Routing).Inc()
	}
	httputil.Success(c, out)
}

// getIndicativeQuote godoc
// @Summary Get an indicative quote
// @Description Fast, non-executable price used to render output while the definitive
// @Description quote loads. USD reference requests never get one.
// @Tags quote
// @Accept json
// @Produce json
// @Param request body TradeInputRequest true "Swap input"
// @Success 200 {object} httputil.Response{data=domain.IndicativeTrade}
// @Failure 400 {object} httputil.Response "Malformed request"
// @Failure 502 {object} httputil.Response "Pricing API failure"
// @Router /api/v1/quote/indicative [post]
func (h *QuoteHandler) getIndicativeQuote(c *gin.Context) {
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

	ind, err := h.engine.IndicativeQuote(c.Request.Context(), args)
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.Success(c, ind)
}
