package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	entitymodels "origo/internal/entity/models"
	entitystore "origo/internal/entity/store/entity"
	"origo/internal/progression/models"
	"origo/internal/progression/registry"
	"origo/internal/progression/store/assignment"
	id "origo/pkg/domain"
	dErrors "origo/pkg/domain-errors"
	"origo/pkg/testutil"
)

type recordingAuditor struct {
	mu      sync.Mutex
	changes []*models.StageAssignment
}

func (a *recordingAuditor) StageChanged(_ context.Context, sa *models.StageAssignment) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.changes = append(a.changes, sa)
}

type ProgressionSuite struct {
	suite.Suite
	entities *entitystore.InMemory
	store    *assignment.InMemory
	audit    *recordingAuditor
	svc      *Service

	entityID id.EntityID
	caseID   id.CaseID
	now      time.Time
	ctx      context.Context
}

func (s *ProgressionSuite) SetupTest() {
	s.entities = entitystore.NewInMemory()
	s.store = assignment.NewInMemory()
	s.audit = &recordingAuditor{}
	s.svc = New(registry.Default(), s.store, s.entities, s.audit, nil)

	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.ctx = testutil.Context("worker@example.com", s.now)
	s.caseID = id.CaseID(uuid.New())
	s.entityID = s.newEntity(s.caseID)
}

func (s *ProgressionSuite) newEntity(caseID id.CaseID) id.EntityID {
	e, err := entitymodels.NewEntity(id.EntityID(uuid.New()), caseID, entitymodels.KindCase, "Jan Kowalski", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.entities.Create(s.ctx, e))
	return e.ID
}

func TestProgressionSuite(t *testing.T) {
	suite.Run(t, new(ProgressionSuite))
}

func (s *ProgressionSuite) TestAdvanceForward() {
	a, err := s.svc.Advance(s.ctx, s.entityID, "translation", "requirements_set", AdvanceOptions{})
	s.Require().NoError(err)
	s.Equal(1, a.Ordinal)
	s.Equal("worker@example.com", a.AssignedBy)
	s.False(a.Reverted)

	s.Run("skipping stages forward is allowed", func() {
		a, err := s.svc.Advance(s.ctx, s.entityID, "translation", "translator_assigned", AdvanceOptions{})
		s.Require().NoError(err)
		s.Equal(4, a.Ordinal)
	})

	s.Run("re-assigning the current stage is a no-op", func() {
		before, err := s.svc.History(s.ctx, s.entityID, "translation")
		s.Require().NoError(err)

		a, err := s.svc.Advance(s.ctx, s.entityID, "translation", "translator_assigned", AdvanceOptions{})
		s.Require().NoError(err)
		s.Equal(4, a.Ordinal)

		after, err := s.svc.History(s.ctx, s.entityID, "translation")
		s.Require().NoError(err)
		s.Len(after, len(before), "no history entry for a no-op")
	})

	s.Len(s.audit.changes, 2)
}

func (s *ProgressionSuite) TestValidation() {
	s.Run("unknown workflow", func() {
		_, err := s.svc.Advance(s.ctx, s.entityID, "naturalization", "filed", AdvanceOptions{})
		s.Require().ErrorIs(err, models.ErrUnknownWorkflow)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown stage", func() {
		_, err := s.svc.Advance(s.ctx, s.entityID, "translation", "notarized", AdvanceOptions{})
		s.Require().ErrorIs(err, models.ErrUnknownStage)
	})

	s.Run("unknown entity", func() {
		_, err := s.svc.Advance(s.ctx, id.EntityID(uuid.New()), "translation", "requirements_set", AdvanceOptions{})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ProgressionSuite) TestRevert() {
	_, err := s.svc.Advance(s.ctx, s.entityID, "civil_registry", "filed", AdvanceOptions{})
	s.Require().NoError(err)

	s.Run("backward without the flag is blocked", func() {
		_, err := s.svc.Advance(s.ctx, s.entityID, "civil_registry", "application_drafted", AdvanceOptions{})
		s.Require().ErrorIs(err, models.ErrStageOrderViolation)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		current, err := s.svc.Current(s.ctx, s.entityID, "civil_registry")
		s.Require().NoError(err)
		s.Equal("filed", current.Stage)
	})

	s.Run("explicit revert is permitted and flagged", func() {
		a, err := s.svc.Advance(s.ctx, s.entityID, "civil_registry", "application_drafted",
			AdvanceOptions{AllowRevert: true, RevertReason: "office returned the filing"})
		s.Require().NoError(err)
		s.True(a.Reverted)
		s.Equal("office returned the filing", a.RevertReason)
	})

	s.Run("history shows the full path including the revert", func() {
		history, err := s.svc.History(s.ctx, s.entityID, "civil_registry")
		s.Require().NoError(err)
		s.Require().Len(history, 2)
		s.Equal("filed", history[0].Stage)
		s.True(history[1].Reverted)
	})
}

func (s *ProgressionSuite) TestAggregate() {
	otherCase := id.CaseID(uuid.New())
	b := s.newEntity(s.caseID)
	c := s.newEntity(otherCase)

	for _, pair := range []struct {
		entity id.EntityID
		stage  string
	}{
		{s.entityID, "queries_sent"},
		{b, "queries_sent"},
		{c, "records_found"},
	} {
		_, err := s.svc.Advance(s.ctx, pair.entity, "archive_search", pair.stage, AdvanceOptions{})
		s.Require().NoError(err)
	}

	s.Run("counts with zero-filled stages", func() {
		counts, err := s.svc.Aggregate(s.ctx, "archive_search", nil)
		s.Require().NoError(err)
		s.Equal(2, counts["queries_sent"])
		s.Equal(1, counts["records_found"])
		s.Equal(0, counts["complete"])
		s.Len(counts, 6, "every stage is present")
	})

	s.Run("case filter", func() {
		counts, err := s.svc.Aggregate(s.ctx, "archive_search", &s.caseID)
		s.Require().NoError(err)
		s.Equal(2, counts["queries_sent"])
		s.Equal(0, counts["records_found"])
	})

	s.Run("overview covers all workflows", func() {
		overview, err := s.svc.Overview(s.ctx)
		s.Require().NoError(err)
		s.Len(overview, 6)
		s.Equal("document_collection", overview[0].Workflow.Name)
	})
}

// TestAggregateDuringConcurrentAdvance checks the aggregate read stays
// consistent while entities move between stages.
func (s *ProgressionSuite) TestAggregateDuringConcurrentAdvance() {
	const n = 12
	ids := make([]id.EntityID, n)
	for i := range ids {
		ids[i] = s.newEntity(s.caseID)
		_, err := s.svc.Advance(s.ctx, ids[i], "passport", "appointment_booked", AdvanceOptions{})
		s.Require().NoError(err)
	}

	var wg sync.WaitGroup
	for _, entityID := range ids {
		wg.Add(1)
		go func(entityID id.EntityID) {
			defer wg.Done()
			for _, stage := range []string{"application_submitted", "biometrics_taken", "issued", "delivered"} {
				_, err := s.svc.Advance(s.ctx, entityID, "passport", stage, AdvanceOptions{})
				s.NoError(err)
			}
		}(entityID)
	}

	for i := 0; i < 30; i++ {
		counts, err := s.svc.Aggregate(s.ctx, "passport", nil)
		s.Require().NoError(err)
		total := 0
		for _, c := range counts {
			total += c
		}
		s.Equal(n, total)
	}
	wg.Wait()
}
