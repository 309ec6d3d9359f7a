package study

import (
	"context"
	"fmt"
	"sync"

	"neurostudy/internal/domain"
	models "neurostudy/internal/domain/models/study"
	studyRepo "neurostudy/internal/domain/repositories/study"
	studySvc "neurostudy/internal/domain/services/study"
)

// viewStateService keeps each user's navigation state in memory. It is kept
// apart from the store and only holds ids into it.
type viewStateService struct {
	sessionRepo studyRepo.SessionRepository

	mu     sync.RWMutex
	states map[string]models.ViewState
}

// NewViewStateService creates a new view state service
func NewViewStateService(sessionRepo studyRepo.SessionRepository) studySvc.ViewStateService {
	return &viewStateService{
		sessionRepo: sessionRepo,
		states:      make(map[string]models.ViewState),
	}
}

func defaultViewState() models.ViewState {
	return models.ViewState{ActiveTab: models.TabSources}
}

// Get returns the user's view state
func (s *viewStateService) Get(ctx context.Context, userID string) models.ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[userID]
	if !ok {
		return defaultViewState()
	}
	return copyViewState(state)
}

// Open makes studyID the active study on tab
func (s *viewStateService) Open(ctx context.Context, userID, studyID string, tab models.Tab) models.ViewState {
	if !tab.Valid() {
		tab = models.TabSources
	}
	id := studyID
	state := models.ViewState{ActiveStudyID: &id, ActiveTab: tab}

	s.mu.Lock()
	s.states[userID] = state
	s.mu.Unlock()

	return copyViewState(state)
}

// Set replaces the view state after checking the referenced study exists
func (s *viewStateService) Set(ctx context.Context, userID string, state models.ViewState) (models.ViewState, error) {
	if state.ActiveTab == "" {
		state.ActiveTab = models.TabSources
	}
	if !state.ActiveTab.Valid() {
		return models.ViewState{}, fmt.Errorf("%w: unknown tab %q", domain.ErrValidation, state.ActiveTab)
	}
	if state.ActiveStudyID != nil {
		if _, err := s.sessionRepo.GetByID(ctx, userID, *state.ActiveStudyID); err != nil {
			return models.ViewState{}, fmt.Errorf("active study: %w", err)
		}
	}

	state = copyViewState(state)

	s.mu.Lock()
	s.states[userID] = state
	s.mu.Unlock()

	return copyViewState(state), nil
}

// Forget clears the active study if it is one of studyIDs
func (s *viewStateService) Forget(ctx context.Context, userID string, studyIDs ...string) {
	if len(studyIDs) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[userID]
	if !ok || state.ActiveStudyID == nil {
		return
	}
	for _, id := range studyIDs {
		if *state.ActiveStudyID == id {
			s.states[userID] = defaultViewState()
			return
		}
	}
}

func copyViewState(v models.ViewState) models.ViewState {
	if v.ActiveStudyID != nil {
		id := *v.ActiveStudyID
		v.ActiveStudyID = &id
	}
	return v
}
