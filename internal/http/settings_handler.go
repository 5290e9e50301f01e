package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/swap-engine/internal/adapters/persistence"
	"github.com/hxuan190/swap-engine/internal/domain"
	"github.com/hxuan190/swap-engine/internal/engine"
	"github.com/hxuan190/swap-engine/internal/http/httputil"
)

type SettingsHandler struct {
	engine *engine.Engine
}

func NewSettingsHandler(e *engine.Engine) *SettingsHandler {
	return &SettingsHandler{engine: e}
}

func (h *SettingsHandler) Root() string {
	return "/settings"
}

func (h *SettingsHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/:account", h.get)
	pub.PUT("/:account", h.put)
	admin.POST("/import", h.importAll)
}

// get godoc
// @Summary Read swap settings
// @Description Returns defaults when nothing is stored for the account.
// @Tags settings
// @Produce json
// @Param account path string true "Wallet address"
// @Success 200 {object} httputil.Response{data=persistence.Settings}
// @Router /api/v1/settings/{account} [get]
func (h *SettingsHandler) get(c *gin.Context) {
	httputil.Success(c, h.engine.Settings(c.Param("account")))
}

// put godoc
// @Summary Update swap settings
// @Description Omitted fields reset to their defaults.
// @Tags settings
// @Accept json
// @Produce json
// @Param account path string true "Wallet address"
// @Param request body SettingsRequest true "Settings"
// @Success 200 {object} httputil.Response{data=persistence.Settings}
// @Failure 400 {object} httputil.Response
// @Router /api/v1/settings/{account} [put]
func (h *SettingsHandler) put(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	s, err := req.toSettings(c.Param("account"))
	if err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}
	saved, err := h.engine.PutSettings(s)
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.Success(c, saved)
}

// importAll godoc
// @Summary Import settings in bulk
// @Description Nothing is written unless every entry is valid.
// @Tags admin
// @Accept json
// @Produce json
// @Param request body []persistence.Settings true "Settings"
// @Success 200 {object} httputil.Response
// @Failure 400 {object} httputil.Response
// @Router /api/v1/admin/settings/import [post]
func (h *SettingsHandler) importAll(c *gin.Context) {
	var all []persistence.Settings
	if err := c.ShouldBindJSON(&all); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if err := h.engine.ImportSettings(all); err != nil {
		handleError(c, err)
		return
	}
	httputil.Success(c, gin.H{"imported": len(all)})
}

func (r SettingsRequest) toSettings(account string) (persistence.Settings, error) {
	s := persistence.DefaultSettings(account)
	if r.Slippage != nil {
		v := *r.Slippage
		s.CustomSlippage = &v
	}
	if r.DeadlineMinutes != 0 {
		s.TxDeadline = time.Duration(r.DeadlineMinutes) * time.Minute
	}
	if r.RoutingPreference != "" {
		p, ok := domain.ParseRoutingPreference(strings.ToUpper(r.RoutingPreference))
		if !ok {
			return s, fmt.Errorf("unknown routingPreference %q", r.RoutingPreference)
		}
		s.RoutingPreference = p
	}
	if len(r.Protocols) > 0 {
		s.Protocols = append([]string(nil), r.Protocols...)
	}
	return s, nil
}
