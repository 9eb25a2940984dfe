package workflows

import (
	"time"

	"tendersum/internal/activities"
	"tendersum/internal/models"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const QueryGetJobStatus = "GetJobStatus"

// TenderIngestWorkflow drives one tender document through duplicate check,
// processing, persistence, and source cleanup. The source file is removed
// exactly once, on both the success and the failure path.
func TenderIngestWorkflow(ctx workflow.Context, input TenderIngestInput) (JobStatus, error) {
	status := JobStatus{
		TenderAddress: input.Request.TenderAddress,
		State:         models.StatusProcessing,
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetJobStatus, func() (JobStatus, error) {
		return status, nil
	}); err != nil {
		return status, err
	}

	retryInitial := input.RetryInitial
	if retryInitial <= 0 {
		retryInitial = 5
	}
	retryMax := input.RetryMax
	if retryMax <= 0 {
		retryMax = 3
	}
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Duration(retryInitial) * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    int32(retryMax),
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	if err := workflow.ExecuteActivity(ctx, "CheckDuplicateActivity", activities.CheckDuplicateInput{
		TenderAddress: input.Request.TenderAddress,
	}).Get(ctx, nil); err != nil {
		return failAndCleanup(ctx, &status, input.Request, err)
	}
	status.Progress = 10

	var processed activities.ProcessDocumentOutput
	if err := workflow.ExecuteActivity(ctx, "ProcessDocumentActivity", activities.ProcessDocumentInput{
		Request: input.Request,
	}).Get(ctx, &processed); err != nil {
		return failAndCleanup(ctx, &status, input.Request, err)
	}
	status.Progress = 80

	var persisted activities.PersistSummaryOutput
	if err := workflow.ExecuteActivity(ctx, "PersistSummaryActivity", activities.PersistSummaryInput{
		Record: processed.Record,
	}).Get(ctx, &persisted); err != nil {
		return failAndCleanup(ctx, &status, input.Request, err)
	}
	status.Progress = 95
	status.SummaryID = persisted.SummaryID

	_ = workflow.ExecuteActivity(ctx, "CleanupSourceActivity", activities.CleanupSourceInput{
		FilePath: input.Request.FilePath,
	}).Get(ctx, nil)
	status.Progress = 100
	status.State = models.StatusCompleted
	return status, nil
}

// failAndCleanup records the terminal failure, persists the failed record, and
// removes the source file. It runs on a disconnected context so cancellation
// cannot skip the bookkeeping. A cancellation that arrives before the job
// produced anything must leave no record behind, so only the source file is
// removed in that case.
func failAndCleanup(ctx workflow.Context, status *JobStatus, req models.IngestionRequest, cause error) (JobStatus, error) {
	status.State = models.StatusFailed
	status.FailReason = cause.Error()

	dctx, cancel := workflow.NewDisconnectedContext(ctx)
	defer cancel()
	dctx = workflow.WithActivityOptions(dctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    3,
		},
	})

	if !temporal.IsCanceledError(cause) {
		var failOut activities.PersistFailureOutput
		_ = workflow.ExecuteActivity(dctx, "PersistFailureActivity", activities.PersistFailureInput{
			Request: req,
			Errors: []models.ErrorEntry{{
				Timestamp: workflow.Now(ctx).UTC(),
				Message:   cause.Error(),
			}},
		}).Get(dctx, &failOut)
		status.SummaryID = failOut.SummaryID
	}

	_ = workflow.ExecuteActivity(dctx, "CleanupSourceActivity", activities.CleanupSourceInput{
		FilePath: req.FilePath,
	}).Get(dctx, nil)

	return *status, cause
}
