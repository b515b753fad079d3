package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ashita-ai/hyoka/internal/model"
	"github.com/ashita-ai/hyoka/internal/service/evaluation"
)

// HandleRecordPrediction handles POST /v1/predictions.
func (h *Handlers) HandleRecordPrediction(w http.ResponseWriter, r *http.Request) {
	var req model.PredictionRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.Actual == nil {
		h.writeServiceError(w, r, model.Invalid("actual", nil, "is required"))
		return
	}

	in := evaluation.PredictionInput{
		Statement:       req.Statement,
		Confidence:      req.Confidence,
		Actual:          *req.Actual,
		PredictionMaker: req.PredictionMaker,
	}
	if req.DecisionID != "" {
		id, err := uuid.Parse(req.DecisionID)
		if err != nil {
			h.writeServiceError(w, r, model.Invalid("decision_id", req.DecisionID, "must be a UUID"))
			return
		}
		in.DecisionID = &id
	}

	p, err := h.svc.RecordPrediction(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, p)
}

// HandleCalibration handles GET /v1/calibration.
// Query params: prediction_maker, decision_id, since, until, limit.
func (h *Handlers) HandleCalibration(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.PredictionFilter{PredictionMaker: strings.TrimSpace(q.Get("prediction_maker"))}

	if raw := q.Get("decision_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.writeServiceError(w, r, model.Invalid("decision_id", raw, "must be a UUID"))
			return
		}
		f.DecisionID = &id
	}
	var err error
	if raw := q.Get("since"); raw != "" {
		if f.Since, err = model.ParseTime("since", raw, false); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
	}
	if raw := q.Get("until"); raw != "" {
		if f.Until, err = model.ParseTime("until", raw, true); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if f.Limit, err = strconv.Atoi(raw); err != nil || f.Limit < 0 {
			h.writeServiceError(w, r, model.Invalid("limit", raw, "must be a non-negative integer"))
			return
		}
	}

	report, err := h.svc.Calibration(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

// HandlePortfolio handles GET /v1/portfolio.
// Query params: start, end (required), category, periods.
func (h *Handlers) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := model.ParseTime("start", q.Get("start"), false)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	end, err := model.ParseTime("end", q.Get("end"), true)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	query := evaluation.PortfolioQuery{
		Timeframe: model.Timeframe{Start: start, End: end},
		Category:  q.Get("category"),
	}
	if raw := q.Get("periods"); raw != "" {
		if query.Periods, err = strconv.Atoi(raw); err != nil || query.Periods < 1 {
			h.writeServiceError(w, r, model.Invalid("periods", raw, "must be a positive integer"))
			return
		}
	}

	p, err := h.svc.Portfolio(r.Context(), query)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

// HandleGetWeights handles GET /v1/weights/{name}.
func (h *Handlers) HandleGetWeights(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	weights, err := h.svc.WeightProfile(r.Context(), name)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"name": name, "weights": weights})
}

// HandleSaveWeights handles PUT /v1/weights/{name}.
func (h *Handlers) HandleSaveWeights(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req model.WeightProfileRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	weights, err := model.ParseWeights(req.Weights)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err := h.svc.SaveWeightProfile(r.Context(), name, weights); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"name": name, "weights": weights})
}
