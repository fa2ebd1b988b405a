package assignment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"origo/internal/progression/models"
	id "origo/pkg/domain"
	"origo/pkg/platform/sentinel"
)

type AssignmentStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *AssignmentStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestAssignmentStoreSuite(t *testing.T) {
	suite.Run(t, new(AssignmentStoreSuite))
}

func (s *AssignmentStoreSuite) assign(entityID id.EntityID, workflow, stage string, ordinal int) *models.StageAssignment {
	got, err := s.store.Transition(s.ctx, entityID, workflow,
		func(_ *models.StageAssignment) (*models.StageAssignment, error) {
			return &models.StageAssignment{
				EntityID:   entityID,
				Workflow:   workflow,
				Stage:      stage,
				Ordinal:    ordinal,
				AssignedAt: time.Now(),
				AssignedBy: "worker@example.com",
			}, nil
		})
	s.Require().NoError(err)
	return got
}

func (s *AssignmentStoreSuite) TestTransitionAndHistory() {
	entityID := id.EntityID(uuid.New())

	s.Run("no current assignment before entry", func() {
		_, err := s.store.FindCurrent(s.ctx, entityID, "translation")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("transition sees nil current on first entry", func() {
		_, err := s.store.Transition(s.ctx, entityID, "translation",
			func(current *models.StageAssignment) (*models.StageAssignment, error) {
				s.Nil(current)
				return &models.StageAssignment{EntityID: entityID, Workflow: "translation", Stage: "requirements_set", Ordinal: 1}, nil
			})
		s.Require().NoError(err)
	})

	s.Run("later transitions see the previous assignment", func() {
		_, err := s.store.Transition(s.ctx, entityID, "translation",
			func(current *models.StageAssignment) (*models.StageAssignment, error) {
				s.Require().NotNil(current)
				s.Equal("requirements_set", current.Stage)
				return &models.StageAssignment{EntityID: entityID, Workflow: "translation", Stage: "documents_selected", Ordinal: 2}, nil
			})
		s.Require().NoError(err)

		current, err := s.store.FindCurrent(s.ctx, entityID, "translation")
		s.Require().NoError(err)
		s.Equal("documents_selected", current.Stage)
	})

	s.Run("decide error aborts without writing", func() {
		_, err := s.store.Transition(s.ctx, entityID, "translation",
			func(_ *models.StageAssignment) (*models.StageAssignment, error) {
				return nil, models.ErrStageOrderViolation
			})
		s.Require().ErrorIs(err, models.ErrStageOrderViolation)

		history, err := s.store.ListHistory(s.ctx, entityID, "translation")
		s.Require().NoError(err)
		s.Len(history, 2)
	})

	s.Run("workflows are independent", func() {
		s.assign(entityID, "passport", "appointment_booked", 1)
		history, err := s.store.ListHistory(s.ctx, entityID, "translation")
		s.Require().NoError(err)
		s.Len(history, 2)
	})
}

func (s *AssignmentStoreSuite) TestCountByStage() {
	a := id.EntityID(uuid.New())
	b := id.EntityID(uuid.New())
	c := id.EntityID(uuid.New())

	s.assign(a, "translation", "review", 6)
	s.assign(b, "translation", "review", 6)
	s.assign(c, "translation", "submitted", 8)
	s.assign(c, "passport", "issued", 4)

	s.Run("counts current stages only", func() {
		counts, err := s.store.CountByStage(s.ctx, "translation", nil)
		s.Require().NoError(err)
		s.Equal(map[string]int{"review": 2, "submitted": 1}, counts)
	})

	s.Run("entity filter", func() {
		counts, err := s.store.CountByStage(s.ctx, "translation", []id.EntityID{a})
		s.Require().NoError(err)
		s.Equal(map[string]int{"review": 1}, counts)
	})

	s.Run("advancing moves the count", func() {
		s.assign(a, "translation", "sworn_certification", 7)
		counts, err := s.store.CountByStage(s.ctx, "translation", nil)
		s.Require().NoError(err)
		s.Equal(map[string]int{"review": 1, "sworn_certification": 1, "submitted": 1}, counts)
	})
}

// TestAggregateConsistencyUnderContention interleaves transitions with
// aggregate reads and checks the counts always sum to the entity total.
func (s *AssignmentStoreSuite) TestAggregateConsistencyUnderContention() {
	const entities = 16
	ids := make([]id.EntityID, entities)
	for i := range ids {
		ids[i] = id.EntityID(uuid.New())
		s.assign(ids[i], "citizenship", "eligibility_confirmed", 1)
	}

	var wg sync.WaitGroup
	for _, entityID := range ids {
		wg.Add(1)
		go func(entityID id.EntityID) {
			defer wg.Done()
			for ordinal := 2; ordinal <= 4; ordinal++ {
				_, err := s.store.Transition(s.ctx, entityID, "citizenship",
					func(current *models.StageAssignment) (*models.StageAssignment, error) {
						return &models.StageAssignment{
							EntityID: entityID, Workflow: "citizenship",
							Stage: "stage_" + string(rune('0'+ordinal)), Ordinal: ordinal,
						}, nil
					})
				s.NoError(err)
			}
		}(entityID)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			counts, err := s.store.CountByStage(s.ctx, "citizenship", nil)
			s.NoError(err)
			total := 0
			for _, n := range counts {
				total += n
			}
			s.Equal(entities, total)
		}
	}()

	wg.Wait()
	<-done
}
