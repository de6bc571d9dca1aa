package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"voice-campaigns-go/internal/campaign"
	"voice-campaigns-go/internal/config"
	"voice-campaigns-go/internal/history"
	"voice-campaigns-go/internal/logger"
	"voice-campaigns-go/internal/monade"
	"voice-campaigns-go/internal/session"
	"voice-campaigns-go/internal/types"
)

type startRequest struct {
	UserID         string          `json:"user_id"`
	SessionKey     string          `json:"session_key"`
	APIKey         string          `json:"api_key"`
	AssistantID    string          `json:"assistant_id"`
	AssistantName  string          `json:"assistant_name"`
	Trunk          string          `json:"trunk"`
	OutputFileName string          `json:"output_file_name"`
	Contacts       []types.Contact `json:"contacts"`
}

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "voice-campaigns-go").Info("starting service")

	cfg, err := config.Load(envOr("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if cfg.Monade.BaseURL == "" {
		log.Fatal("MONADE_BASE_URL not set")
	}

	client := monade.NewClient(cfg.Monade.BaseURL, log)
	snapshots := session.NewFileStore(cfg.Storage.DataDir)
	histories := history.NewFileStore(cfg.Storage.DataDir)

	manager := campaign.NewManager(func(userID string) (*campaign.Runner, error) {
		return campaign.NewRunner(campaign.Options{
			UserID:      userID,
			APIKey:      cfg.Monade.APIKey,
			Config:      cfg.Campaign,
			Placer:      client,
			Transcripts: client,
			Analytics:   client,
			Snapshots:   snapshots,
			Histories:   histories,
			Log:         log,
		})
	})

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		logger.New().WithRequest(r).Info("health check")
		fmt.Fprint(w, "ok")
	})

	mux.HandleFunc("/campaigns/start", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "start")
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			reqLog.WithError(err).Warn("bad request body")
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if req.UserID == "" {
			http.Error(w, "missing user_id", http.StatusBadRequest)
			return
		}
		runner, err := manager.Runner(req.UserID)
		if err != nil {
			reqLog.WithError(err).Error("runner init failed")
			http.Error(w, "runner init failed", http.StatusInternalServerError)
			return
		}
		if len(req.Contacts) > 0 {
			runner.SetContacts(req.Contacts)
		}
		if req.AssistantID != "" {
			runner.SetSelectedAssistantID(req.AssistantID)
		}
		if req.AssistantName != "" {
			runner.SetAssistantName(req.AssistantName)
		}
		if req.Trunk != "" {
			runner.SetSelectedTrunk(req.Trunk)
		}
		if req.OutputFileName != "" {
			runner.SetOutputFileName(req.OutputFileName)
		}
		if req.SessionKey != "" {
			runner.SetSessionKey(req.SessionKey)
		}
		if req.APIKey != "" {
			runner.SetAPIKey(req.APIKey)
		}

		// Detached from the request context: the run outlives the request
		// and stops only through /campaigns/stop.
		go func() {
			if err := runner.StartCampaign(context.Background()); err != nil {
				reqLog.WithError(err).Warn("campaign did not start")
			}
		}()
		reqLog.WithField("user_id", req.UserID).WithField("contacts", len(req.Contacts)).Info("campaign start requested")
		w.WriteHeader(http.StatusAccepted)
		writeJSON(w, runner.State())
	})

	mux.HandleFunc("/campaigns/status", func(w http.ResponseWriter, r *http.Request) {
		runner, ok := userRunner(w, r, manager)
		if !ok {
			return
		}
		writeJSON(w, runner.State())
	})

	mux.HandleFunc("/campaigns/stop", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		runner, ok := userRunner(w, r, manager)
		if !ok {
			return
		}
		runner.StopCampaign()
		writeJSON(w, runner.State())
	})

	mux.HandleFunc("/campaigns/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		runner, ok := userRunner(w, r, manager)
		if !ok {
			return
		}
		runner.ResetCampaign()
		writeJSON(w, runner.State())
	})

	mux.HandleFunc("/campaigns/history", func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			http.Error(w, "missing user_id", http.StatusBadRequest)
			return
		}
		records, err := histories.List(userID)
		if err != nil {
			logger.New().WithRequest(r).WithError(err).Error("history read failed")
			http.Error(w, "history read failed", http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []types.CampaignRecord{}
		}
		writeJSON(w, records)
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

func userRunner(w http.ResponseWriter, r *http.Request, manager *campaign.Manager) (*campaign.Runner, bool) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "missing user_id", http.StatusBadRequest)
		return nil, false
	}
	runner, err := manager.Runner(userID)
	if err != nil {
		logger.New().WithRequest(r).WithError(err).Error("runner init failed")
		http.Error(w, "runner init failed", http.StatusInternalServerError)
		return nil, false
	}
	return runner, true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.New().WithError(err).Error("failed to write response")
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
