package server

import (
	"net/http"

	"github.com/ashita-ai/hyoka/internal/model"
	"github.com/ashita-ai/hyoka/internal/service/evaluation"
)

// HandleScoreDecision handles POST /v1/decisions.
func (h *Handlers) HandleScoreDecision(w http.ResponseWriter, r *http.Request) {
	var req model.ScoreRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	date, err := model.ParseTime("decision_date", req.DecisionDate, false)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	ratings, err := model.ParseRatings(req.Ratings)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	scored, err := h.svc.ScoreDecision(r.Context(), evaluation.ScoreInput{
		ScorecardInput: model.ScorecardInput{
			Decision:      req.Decision,
			DecisionDate:  date,
			DecisionMaker: req.DecisionMaker,
			Category:      req.Category,
			Ratings:       ratings,
		},
		WeightProfile: req.WeightProfile,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/decisions/"+scored.Scorecard.DecisionID.String())
	writeJSON(w, r, http.StatusCreated, scored)
}

// HandleGetDecision handles GET /v1/decisions/{id}.
func (h *Handlers) HandleGetDecision(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	scored, err := h.svc.GetDecision(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, scored)
}

// HandleDecisionHistory handles GET /v1/decisions/{id}/history.
func (h *Handlers) HandleDecisionHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	history, err := h.svc.DecisionHistory(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, history)
}

// HandleRerateDecision handles POST /v1/decisions/{id}/rerate.
func (h *Handlers) HandleRerateDecision(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req model.RerateRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	ratings, err := model.ParseRatings(req.Ratings)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	scored, err := h.svc.RerateDecision(r.Context(), id, ratings, req.WeightProfile)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, scored)
}

// HandleRecordOutcome handles POST /v1/decisions/{id}/outcome.
func (h *Handlers) HandleRecordOutcome(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req model.OutcomeRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.OutcomeValue == nil {
		h.writeServiceError(w, r, model.Invalid("outcome_value", nil, "is required"))
		return
	}

	assessment, err := h.svc.RecordOutcome(r.Context(), model.DecisionOutcome{
		DecisionID:   id,
		Chosen:       req.Chosen,
		OutcomeValue: *req.OutcomeValue,
		Alternatives: req.Alternatives,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, assessment)
}

// HandleRegret handles GET /v1/decisions/{id}/regret.
func (h *Handlers) HandleRegret(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	assessment, err := h.svc.Regret(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, assessment)
}
