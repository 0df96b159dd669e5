// Package api exposes the campaign pipeline over HTTP: lifecycle endpoints,
// feedback, regeneration, and a websocket stream of stage events.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"campaignforge/internal/models"
	"campaignforge/internal/pipeline"
	"campaignforge/internal/store"
)

// Service is the subset of the run manager the handlers need.
type Service interface {
	Start(ctx context.Context, goal, domain, provider string) (*models.Campaign, error)
	Get(ctx context.Context, campaignID string) (*models.Campaign, []*models.StageOutput, error)
	List(ctx context.Context, offset, limit int) ([]*models.Campaign, error)
	Cancel(campaignID string) error
	IsRunning(campaignID string) bool
	Subscribe(campaignID string) (<-chan pipeline.Event, error)
	Feedback(ctx context.Context, campaignID, stage string, rating models.FeedbackRating) (*models.FeedbackEntry, error)
	Regenerate(ctx context.Context, campaignID, stage string) (*models.StageOutput, error)
}

type CampaignHandler struct {
	svc Service
}

func NewCampaignHandler(svc Service) *CampaignHandler {
	return &CampaignHandler{svc: svc}
}

type createCampaignRequest struct {
	Goal     string `json:"goal"`
	Domain   string `json:"domain"`
	Provider string `json:"provider"`
}

type campaignResponse struct {
	Campaign *models.Campaign      `json:"campaign"`
	Stages   []*models.StageOutput `json:"stages,omitempty"`
	Running  bool                  `json:"running"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *CampaignHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Goal == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("goal is required"))
		return
	}

	campaign, err := h.svc.Start(r.Context(), req.Goal, req.Domain, req.Provider)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, campaignResponse{Campaign: campaign, Running: true})
}

func (h *CampaignHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := mux.Vars(r)["campaignID"]

	campaign, outputs, err := h.svc.Get(r.Context(), campaignID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, campaignResponse{
		Campaign: campaign,
		Stages:   outputs,
		Running:  h.svc.IsRunning(campaignID),
	})
}

func (h *CampaignHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	offset, limit := 0, 50
	if s := r.URL.Query().Get("offset"); s != "" {
		fmt.Sscanf(s, "%d", &offset)
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		fmt.Sscanf(s, "%d", &limit)
	}

	campaigns, err := h.svc.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"campaigns": campaigns})
}

func (h *CampaignHandler) CancelCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := mux.Vars(r)["campaignID"]

	if err := h.svc.Cancel(campaignID); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Campaign cancelled"})
}

type feedbackRequest struct {
	Rating models.FeedbackRating `json:"rating"`
}

func (h *CampaignHandler) PostFeedback(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	campaignID := vars["campaignID"]
	stage := vars["stage"]

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	entry, err := h.svc.Feedback(r.Context(), campaignID, stage, req.Rating)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *CampaignHandler) RegenerateStage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	campaignID := vars["campaignID"]
	stage := vars["stage"]

	output, err := h.svc.Regenerate(r.Context(), campaignID, stage)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, output)
}
