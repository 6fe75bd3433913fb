package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"oncology-console/internal/agent"
	"oncology-console/internal/platform/telegram"
	"oncology-console/internal/report"
	"oncology-console/internal/timeline"
	"oncology-console/internal/triage"
)

func main() {
	// 1. Store
	snapshotPath := os.Getenv("SNAPSHOT_PATH")
	if snapshotPath == "" {
		snapshotPath = "data/console_state.json"
	}

	store, err := timeline.NewStore(timeline.NewFilePersister(snapshotPath))
	if err != nil {
		log.Fatalf("Could not load store: %v", err)
	}
	log.Printf("Store ready: %d profile(s) loaded from %s.", len(store.ListProfiles()), snapshotPath)

	// 2. Clients
	tgToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	tgClient := telegram.NewClient(tgToken)

	careTeamChatIDStr := os.Getenv("CARE_TEAM_CHAT_ID")
	careTeamChatID, _ := strconv.ParseInt(careTeamChatIDStr, 10, 64)
	if careTeamChatID == 0 {
		log.Println("Warning: CARE_TEAM_CHAT_ID is not set or invalid. Escalations will not be delivered.")
	}

	// 3. Services
	reportSvc := report.NewService(tgClient, careTeamChatID)
	engine := agent.NewRuleEngine()
	triageSvc := triage.NewService(store, engine, reportSvc)

	storeHandler := timeline.NewHandler(store)
	triageHandler := triage.NewHandler(triageSvc)

	// 4. Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS for frontend
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, PATCH, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
			if r.Method == "OPTIONS" {
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"message": "Oncology RPM Console API is running"})
	})
	r.Route("/api", func(r chi.Router) {
		timeline.RegisterRoutes(r, storeHandler)
		triage.RegisterRoutes(r, triageHandler)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	fmt.Printf("Server starting on port %s...\n", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal(err)
	}
}
