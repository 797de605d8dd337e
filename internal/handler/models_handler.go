package handler

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/realcbb/Dify2OpenAI/internal/handler/dto"
)

// ModelsHandler reports the single model this gateway fronts.
type ModelsHandler struct {
	model   string
	created int64
}

// NewModelsHandler creates the models handler.
func NewModelsHandler(model string) *ModelsHandler {
	return &ModelsHandler{
		model:   model,
		created: time.Now().Unix(),
	}
}

// ListModels handles GET /v1/models.
//
//	@Summary	List models
//	@Tags		Models
//	@Produce	json
//	@Success	200	{object}	dto.ModelList
//	@Router		/models [get]
func (h *ModelsHandler) ListModels(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, dto.ModelList{
		Object: "list",
		Data: []dto.Model{
			{
				ID:      h.model,
				Object:  "model",
				Created: h.created,
				OwnedBy: "dify",
			},
		},
	})
}
