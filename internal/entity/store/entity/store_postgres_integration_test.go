//go:build integration

package entity_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"origo/internal/entity/models"
	"origo/internal/entity/store/entity"
	id "origo/pkg/domain"
	"origo/pkg/platform/sentinel"
	"origo/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *entity.PostgresStore
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = entity.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "entities"))
}

func (s *PostgresStoreSuite) newEntity(caseID id.CaseID, name string) *models.Entity {
	e, err := models.NewEntity(id.EntityID(uuid.New()), caseID, models.KindFamilyMember, name, time.Now().UTC())
	s.Require().NoError(err)
	return e
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	caseID := id.CaseID(uuid.New())
	e := s.newEntity(caseID, "Maria Kowalska")
	s.Require().NoError(s.store.Create(s.ctx, e))

	found, err := s.store.FindByID(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal("Maria Kowalska", found.DisplayName)
	s.Equal(caseID, found.CaseID)
	s.Equal(models.KindFamilyMember, found.Kind)
	s.Nil(found.DeletedAt)
}

func (s *PostgresStoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(s.ctx, id.EntityID(uuid.New()))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByCase() {
	caseID := id.CaseID(uuid.New())
	s.Require().NoError(s.store.Create(s.ctx, s.newEntity(caseID, "Maria Kowalska")))
	s.Require().NoError(s.store.Create(s.ctx, s.newEntity(caseID, "Jan Kowalski")))
	s.Require().NoError(s.store.Create(s.ctx, s.newEntity(id.CaseID(uuid.New()), "Other Person")))

	entities, err := s.store.ListByCase(s.ctx, caseID)
	s.Require().NoError(err)
	s.Len(entities, 2)
}

func (s *PostgresStoreSuite) TestExecuteSoftDelete() {
	e := s.newEntity(id.CaseID(uuid.New()), "Maria Kowalska")
	s.Require().NoError(s.store.Create(s.ctx, e))

	now := time.Now().UTC()
	deleted, err := s.store.Execute(s.ctx, e.ID,
		func(e *models.Entity) error { return e.CanDelete() },
		func(e *models.Entity) { e.ApplyDelete(now) },
	)
	s.Require().NoError(err)
	s.Require().NotNil(deleted.DeletedAt)

	// A second delete fails validation against the stored row.
	_, err = s.store.Execute(s.ctx, e.ID,
		func(e *models.Entity) error { return e.CanDelete() },
		func(e *models.Entity) { e.ApplyDelete(now) },
	)
	s.Require().Error(err)
}
