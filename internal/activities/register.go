package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.CheckDuplicateActivity)
	w.RegisterActivity(a.ProcessDocumentActivity)
	w.RegisterActivity(a.PersistSummaryActivity)
	w.RegisterActivity(a.PersistFailureActivity)
	w.RegisterActivity(a.CleanupSourceActivity)
}
