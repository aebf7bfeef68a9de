package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/lixrry/lemon-metrics/scheduler"
)

// JobsListHandler handles GET /api/debug/jobs - lists all scheduled jobs
func JobsListHandler(sched *scheduler.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if sched == nil {
			http.Error(w, "Scheduler not initialized", http.StatusServiceUnavailable)
			return
		}

		jobs := sched.Jobs()

		// Build response with next run times
		type JobInfo struct {
			Name    string `json:"name"`
			NextRun string `json:"next_run,omitempty"`
		}

		jobInfos := make([]JobInfo, 0, len(jobs))
		for _, name := range jobs {
			info := JobInfo{Name: name}
			if nextRun, err := sched.NextRun(name); err == nil {
				info.NextRun = nextRun.Format(time.RFC3339)
			}
			jobInfos = append(jobInfos, info)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{
			"jobs": jobInfos,
		}); err != nil {
			log.Printf("Error encoding jobs response: %v", err)
		}
	}
}

// JobsTriggerHandler handles POST /api/debug/jobs/{name}/trigger - triggers a job immediately
func JobsTriggerHandler(sched *scheduler.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if sched == nil {
			http.Error(w, "Scheduler not initialized", http.StatusServiceUnavailable)
			return
		}

		// Extract job name from URL path
		// Expected: /api/debug/jobs/{name}/trigger
		path := r.URL.Path
		var jobName string

		const prefix = "/api/debug/jobs/"
		const suffix = "/trigger"
		if len(path) > len(prefix)+len(suffix) {
			jobName = path[len(prefix) : len(path)-len(suffix)]
		}

		if jobName == "" {
			http.Error(w, "Job name required", http.StatusBadRequest)
			return
		}

		log.Printf("[jobs-api] Triggering job: %s", jobName)

		if err := sched.RunJobNow(jobName); err != nil {
			log.Printf("[jobs-api] Failed to trigger job %s: %v", jobName, err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "triggered",
			"job":     jobName,
			"message": "Job has been queued for immediate execution",
		}); err != nil {
			log.Printf("Error encoding trigger response: %v", err)
		}
	}
}

// RegisterJobsHandlers registers the jobs debug endpoints
func RegisterJobsHandlers(mux *http.ServeMux, sched *scheduler.Scheduler) {
	mux.HandleFunc("/api/debug/jobs", JobsListHandler(sched))
	mux.HandleFunc("/api/debug/jobs/", JobsTriggerHandler(sched)) // Matches /api/debug/jobs/{name}/trigger
	log.Println("Jobs debug handlers registered at /api/debug/jobs")
}
