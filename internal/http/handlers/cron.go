package handlers

import (
	"net/http"
)

type cronResponse struct {
	Due       int  `json:"due"`
	Orphaned  int  `json:"orphaned"`
	Requeued  int  `json:"requeued"`
	Failed    int  `json:"failed"`
	Pushed    int  `json:"pushed"`
	Processed bool `json:"processed"`
}

// CronImageJobs runs one scheduler tick for external cron triggers.
func (a *App) CronImageJobs(w http.ResponseWriter, r *http.Request) {
	res, err := a.Scheduler.Tick(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("http: cron tick failed")
		a.error(w, http.StatusInternalServerError, "internal", "scheduler tick failed")
		return
	}
	a.json(w, http.StatusOK, cronResponse{
		Due:       len(res.Swept.Due),
		Orphaned:  len(res.Swept.Orphaned),
		Requeued:  len(res.Swept.Requeued),
		Failed:    len(res.Swept.Failed),
		Pushed:    res.Pushed,
		Processed: res.Processed,
	})
}
