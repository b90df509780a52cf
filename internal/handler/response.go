package handler

import (
	"encoding/json"
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type ErrorResponse struct {
	Error           string          `json:"error"`
	Kind            string          `json:"kind"`
	GatewayResponse json.RawMessage `json:"gateway_response,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		if he.Kind == usecase.KindInternal || he.Kind == usecase.KindGatewayUnavailable {
			zerolog.Ctx(c.Request().Context()).Error().
				Err(he.Err).
				Str("kind", string(he.Kind)).
				Msg(he.Message)
		}
		return c.JSON(he.Status, ErrorResponse{
			Error:           he.Message,
			Kind:            string(he.Kind),
			GatewayResponse: he.GatewayResponse,
		})
	}

	//500（原因はログだけ）
	zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("unhandled error")
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: "internal error",
		Kind:  string(usecase.KindInternal),
	})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Kind: string(usecase.KindValidation)})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Kind: string(usecase.KindUnauthorized)})
}

// AuthJWT が入れた user_id
func getUserIDFromContext(c echo.Context) (int64, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}
