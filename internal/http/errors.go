package http

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/swap-engine/internal/common"
	"github.com/hxuan190/swap-engine/internal/engine"
	"github.com/hxuan190/swap-engine/internal/http/httputil"
	"github.com/hxuan190/swap-engine/internal/swap/steps"
	"github.com/hxuan190/swap-engine/internal/swap/txinfo"
	"github.com/hxuan190/swap-engine/internal/tradingapi"
)

// toHttpError maps engine and step errors onto HTTP statuses.
func toHttpError(err error) *common.HttpError {
	var apiErr *tradingapi.APIError
	switch {
	case errors.Is(err, engine.ErrSessionNotFound):
		return common.HTTPErrorNotFound(err.Error())
	case errors.Is(err, engine.ErrInvalidSettings):
		return common.HTTPErrorBadRequest(err.Error())
	case errors.Is(err, steps.ErrStepTimedOut):
		return common.HTTPErrorGone(err.Error())
	case errors.Is(err, engine.ErrNoAcceptedTrade),
		errors.Is(err, engine.ErrAcceptanceRequired),
		errors.Is(err, engine.ErrNoFlow),
		errors.Is(err, steps.ErrOutOfOrder),
		errors.Is(err, steps.ErrInvalidTransition),
		errors.Is(err, steps.ErrSignatureRequired),
		errors.Is(err, steps.ErrFlowAborted),
		errors.Is(err, steps.ErrFlowDone):
		return common.HTTPErrorResourceConflict(err.Error())
	case errors.Is(err, txinfo.ErrMissingRoutingService),
		errors.Is(err, txinfo.ErrRoutingMismatch),
		errors.Is(err, steps.ErrRoutingMismatch):
		return common.HTTPErrorInternalError(err.Error())
	case errors.As(err, &apiErr), errors.Is(err, context.DeadlineExceeded):
		return common.HTTPErrorBadGateway(err.Error())
	}
	return common.AsHttpError(err)
}

func handleError(c *gin.Context, err error) {
	he := toHttpError(err)
	if he.StatusCode >= 500 {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("[http] request failed")
	}
	httputil.HttpError(c, he)
}
