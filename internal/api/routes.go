package api

import (
	"github.com/gorilla/mux"
)

func SetupRoutes(handler *CampaignHandler, streamHandler *StreamHandler, feOrigin string) *mux.Router {
	r := mux.NewRouter()

	r.Use(CORSMiddleware(feOrigin))
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.HandleFunc("/api/v1/campaigns", handler.CreateCampaign).Methods("POST")
	r.HandleFunc("/api/v1/campaigns", handler.ListCampaigns).Methods("GET")
	r.HandleFunc("/api/v1/campaigns/{campaignID}", handler.GetCampaign).Methods("GET")
	r.HandleFunc("/api/v1/campaigns/{campaignID}/cancel", handler.CancelCampaign).Methods("POST")
	r.HandleFunc("/api/v1/campaigns/{campaignID}/stages/{stage}/feedback", handler.PostFeedback).Methods("POST")
	r.HandleFunc("/api/v1/campaigns/{campaignID}/stages/{stage}/regenerate", handler.RegenerateStage).Methods("POST")

	// Live stage events for a running campaign.
	r.HandleFunc("/api/v1/campaigns/{campaignID}/stream", streamHandler.StreamCampaign)

	return r
}
