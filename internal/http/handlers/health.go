package handlers

import (
	"net/http"
)

// Health reports liveness and which queue mode this process runs in.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	mode := "inline"
	if a.Queue != nil && a.Queue.Durable() {
		mode = "durable"
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok", "queue": mode})
}
