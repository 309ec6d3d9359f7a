package study

import (
	"context"

	models "neurostudy/internal/domain/models/study"
)

// ViewStateService holds per-user navigation state. It references studies by
// id and is updated when they disappear.
type ViewStateService interface {
	Get(ctx context.Context, userID string) models.ViewState
	Open(ctx context.Context, userID, studyID string, tab models.Tab) models.ViewState
	Set(ctx context.Context, userID string, state models.ViewState) (models.ViewState, error)

	// Forget clears the active study if it is one of studyIDs.
	Forget(ctx context.Context, userID string, studyIDs ...string)
}
