package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	entitymodels "origo/internal/entity/models"
	entitystore "origo/internal/entity/store/entity"
	"origo/internal/reconcile/models"
	conflictstore "origo/internal/reconcile/store/conflict"
	fieldvaluestore "origo/internal/reconcile/store/fieldvalue"
	id "origo/pkg/domain"
	dErrors "origo/pkg/domain-errors"
	"origo/pkg/platform/sentinel"
	"origo/pkg/testutil"
)

type ResolverSuite struct {
	suite.Suite
	entities  *entitystore.InMemory
	values    *fieldvaluestore.InMemory
	conflicts *conflictstore.InMemory
	notifier  *recordingNotifier
	audit     *recordingAuditor
	svc       *Service

	entityID id.EntityID
	now      time.Time
	ctx      context.Context
}

func (s *ResolverSuite) SetupTest() {
	s.entities = entitystore.NewInMemory()
	s.values = fieldvaluestore.NewInMemory()
	s.conflicts = conflictstore.NewInMemory()
	s.notifier = &recordingNotifier{}
	s.audit = &recordingAuditor{}
	s.svc = New(s.entities, s.values, s.conflicts, s.notifier, s.audit, nil)

	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.ctx = testutil.Context("reviewer@example.com", s.now)

	e, err := entitymodels.NewEntity(id.EntityID(uuid.New()), id.CaseID(uuid.New()), entitymodels.KindCase, "Jan Kowalski", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.entities.Create(s.ctx, e))
	s.entityID = e.ID
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

// openBirthPlaceConflict seeds a manual WARSAW value and an OCR Warszawa
// candidate, returning the open conflict between them.
func (s *ResolverSuite) openBirthPlaceConflict() *models.Conflict {
	_, err := s.svc.Detect(s.ctx, s.entityID, "birth_place",
		models.Candidate{Value: "WARSAW", Source: id.SourceManual})
	s.Require().NoError(err)

	res, err := s.svc.Detect(testutil.Context("scanner", s.now.Add(time.Minute)), s.entityID, "birth_place",
		models.Candidate{Value: "Warszawa", Source: id.SourceOCR, DocumentID: id.DocumentID(uuid.New())})
	s.Require().NoError(err)
	s.Require().Equal(OutcomeConflicted, res.Outcome)
	return res.Conflict
}

func (s *ResolverSuite) TestAcceptOCR() {
	conflict := s.openBirthPlaceConflict()

	resolved, err := s.svc.Resolve(s.ctx, conflict.ID, models.DecisionAcceptOCR, "certificate is legible", "reviewer@example.com")
	s.Require().NoError(err)
	s.Equal(models.ConflictResolved, resolved.State)
	s.Equal("reviewer@example.com", resolved.ResolvedBy)

	s.Run("candidate becomes current with ocr provenance", func() {
		current, err := s.values.FindCurrent(s.ctx, s.entityID, "birth_place")
		s.Require().NoError(err)
		s.Equal("Warszawa", current.Value)
		s.Equal(id.SourceOCR, current.Source)
		s.Equal(int64(2), current.Revision)
	})

	s.Run("history keeps the superseded manual value", func() {
		history, err := s.values.ListHistory(s.ctx, s.entityID, "birth_place")
		s.Require().NoError(err)
		s.Require().Len(history, 2)
		s.Equal("WARSAW", history[0].Value)
	})

	s.Run("second resolve is rejected", func() {
		_, err := s.svc.Resolve(s.ctx, conflict.ID, models.DecisionKeepManual, "", "reviewer@example.com")
		s.Require().ErrorIs(err, models.ErrAlreadyResolved)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("terminal state is immutable", func() {
		stored, err := s.conflicts.FindByID(s.ctx, conflict.ID)
		s.Require().NoError(err)
		s.Equal(models.DecisionAcceptOCR, stored.Decision)
		s.Equal("certificate is legible", stored.Notes)
	})

	s.Len(s.audit.resolved, 1)
	s.Len(s.notifier.changes, 2, "initial write plus resolution write")
}

func (s *ResolverSuite) TestKeepManual() {
	conflict := s.openBirthPlaceConflict()

	resolved, err := s.svc.Resolve(s.ctx, conflict.ID, models.DecisionKeepManual, "document is a mistranscription", "reviewer@example.com")
	s.Require().NoError(err)
	s.Equal(models.ConflictResolved, resolved.State)

	current, err := s.values.FindCurrent(s.ctx, s.entityID, "birth_place")
	s.Require().NoError(err)
	s.Equal("WARSAW", current.Value)
	s.Equal(id.SourceSystem, current.Source, "re-assertion is recorded under the system source")
	s.Equal(int64(2), current.Revision, "re-assertion appends a revision")
}

func (s *ResolverSuite) TestIgnore() {
	conflict := s.openBirthPlaceConflict()

	resolved, err := s.svc.Resolve(s.ctx, conflict.ID, models.DecisionIgnore, "duplicate scan", "reviewer@example.com")
	s.Require().NoError(err)
	s.Equal(models.ConflictIgnored, resolved.State)

	current, err := s.values.FindCurrent(s.ctx, s.entityID, "birth_place")
	s.Require().NoError(err)
	s.Equal("WARSAW", current.Value)
	s.Equal(int64(1), current.Revision, "ignore writes nothing")

	s.Run("field can conflict again afterwards", func() {
		res, err := s.svc.Detect(s.ctx, s.entityID, "birth_place",
			models.Candidate{Value: "Krakow", Source: id.SourceOCR})
		s.Require().NoError(err)
		s.Equal(OutcomeConflicted, res.Outcome)
		s.NotEqual(conflict.ID, res.Conflict.ID)
	})
}

func (s *ResolverSuite) TestUnknownConflict() {
	_, err := s.svc.Resolve(s.ctx, id.ConflictID(uuid.New()), models.DecisionIgnore, "", "reviewer@example.com")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// racingValues fails the next n appends with a concurrent-modification
// sentinel, simulating a writer that slips in between the reviewer loading
// the conflict and the resolved value landing.
type racingValues struct {
	*fieldvaluestore.InMemory
	failures int
}

func (v *racingValues) Append(ctx context.Context, fv *models.FieldValue, expectedRevision int64) error {
	if v.failures > 0 {
		v.failures--
		return sentinel.ErrConcurrentModification
	}
	return v.InMemory.Append(ctx, fv, expectedRevision)
}

func (s *ResolverSuite) TestLostRevisionRaceKeepsConflictOpen() {
	conflict := s.openBirthPlaceConflict()

	values := &racingValues{InMemory: s.values, failures: 1}
	svc := New(s.entities, values, s.conflicts, s.notifier, s.audit, nil)

	_, err := svc.Resolve(s.ctx, conflict.ID, models.DecisionAcceptOCR, "certificate is legible", "reviewer@example.com")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	s.Run("conflict stays open and the value is untouched", func() {
		found, err := s.conflicts.FindByID(s.ctx, conflict.ID)
		s.Require().NoError(err)
		s.Equal(models.ConflictOpen, found.State)

		current, err := s.values.FindCurrent(s.ctx, s.entityID, "birth_place")
		s.Require().NoError(err)
		s.Equal("WARSAW", current.Value)
	})

	s.Run("retrying the decision succeeds", func() {
		resolved, err := svc.Resolve(s.ctx, conflict.ID, models.DecisionAcceptOCR, "certificate is legible", "reviewer@example.com")
		s.Require().NoError(err)
		s.Equal(models.ConflictResolved, resolved.State)

		current, err := s.values.FindCurrent(s.ctx, s.entityID, "birth_place")
		s.Require().NoError(err)
		s.Equal("Warszawa", current.Value)
	})
}
