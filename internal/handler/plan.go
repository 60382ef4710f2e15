package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/skillshare/internal/service"
)

type PlanHandler struct {
	plans  *service.PlanService
	logger *slog.Logger
}

func NewPlanHandler(plans *service.PlanService, logger *slog.Logger) *PlanHandler {
	return &PlanHandler{plans: plans, logger: logger}
}

func (h *PlanHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	me, ok := principal(w, r)
	if !ok {
		return
	}
	var in service.PlanInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	p, err := h.plans.Create(r.Context(), me, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *PlanHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (h *PlanHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.ListByUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (h *PlanHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.plans.Get(r.Context(), chi.URLParam(r, "planId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PlanHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	me, ok := principal(w, r)
	if !ok {
		return
	}
	var in service.PlanInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	p, err := h.plans.Update(r.Context(), me, chi.URLParam(r, "planId"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PlanHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	me, ok := principal(w, r)
	if !ok {
		return
	}
	if err := h.plans.Delete(r.Context(), me, chi.URLParam(r, "planId")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Learning plan deleted successfully"})
}
