package retention

import (
	"net/http"

	"pulsewatch/internal/httpapi"
)

// Handler exposes the sweep as an HTTP trigger for external schedulers.
// The route must sit behind the shared-secret middleware.
type Handler struct {
	sweeper *Sweeper
}

// NewHandler returns a retention trigger handler.
func NewHandler(s *Sweeper) *Handler {
	return &Handler{sweeper: s}
}

// Cleanup runs one synchronous sweep and reports the result.
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	res, err := h.sweeper.Run(r.Context())
	if err != nil {
		httpapi.Internal(w, "retention sweep", err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"projectsProcessed": res.ProjectsProcessed,
		"visitsDeleted":     res.VisitsDeleted,
		"failed":            res.Failed,
	})
}
