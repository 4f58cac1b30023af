package controllers

import (
	"cmp"
	"net/http"

	"github.com/angelmondragon/repairshop-backend/api/responses"
	"github.com/angelmondragon/repairshop-backend/api/validators"
	"github.com/angelmondragon/repairshop-backend/internal/pattern"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

type traceRequest struct {
	GridSize   float64         `json:"grid_size" validate:"omitempty,gt=0"`
	NodeRadius float64         `json:"node_radius" validate:"omitempty,gt=0"`
	Events     []pattern.Event `json:"events" validate:"required,max=2000"`
}

// PatternTrace replays recorded pointer samples through the lock tracker so a
// thin client can render the canvas and learn the captured sequence.
func PatternTrace(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body traceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		grid := pattern.DefaultGrid()
		if body.GridSize > 0 || body.NodeRadius > 0 {
			g, err := pattern.NewGrid(cmp.Or(body.GridSize, grid.Size()), body.NodeRadius)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid grid"))
				return
			}
			grid = g
		}

		result, err := pattern.Trace(grid, body.Events)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid events"))
			return
		}
		responses.WriteSuccess(w, result)
	}
}
