package handler

import (
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/realcbb/Dify2OpenAI/internal/domain"
	"github.com/realcbb/Dify2OpenAI/internal/handler/dto"
)

// ErrorResponse maps a domain error onto the error document of the
// OpenAI-compatible surface. Upstream failures forward the backend status and
// body verbatim so clients see what the backend said.
func ErrorResponse(c *app.RequestContext, err error) {
	var upstream *domain.UpstreamError
	switch {
	case errors.As(err, &upstream):
		contentType := "application/json; charset=utf-8"
		c.Data(upstream.StatusCode, contentType, []byte(upstream.Body))
	case domain.IsInvalidInput(err):
		c.JSON(consts.StatusBadRequest, dto.ErrorResponse{Error: errorMessage(err)})
	case domain.IsBackendSignaled(err):
		c.JSON(consts.StatusInternalServerError, dto.ErrorResponse{Error: errorMessage(err)})
	default:
		// Internal errors expose no details.
		c.JSON(consts.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}
}

// errorMessage returns the user-facing message of a domain error, or a
// generic one for everything else.
func errorMessage(err error) string {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.UserMessage()
	}
	return "an error occurred"
}
