package gormrepo

import (
	"context"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/organization"
	"github.com/trezcool/chuo/storage/database"
	"github.com/trezcool/chuo/storage/database/models"
)

type organizationRepository struct {
	store *database.Store
}

var _ organization.Repository = (*organizationRepository)(nil) // interface compliance check

func NewOrganizationRepository(store *database.Store) *organizationRepository {
	return &organizationRepository{store: store}
}

func toOrganization(o models.Organization) organization.Organization {
	return organization.Organization{
		ID:          o.ID,
		Name:        o.Name,
		Code:        o.Code,
		AdminID:     o.AdminID,
		Description: o.Description,
		Location:    o.Location,
		IsActive:    o.IsActive,
		CreatedAt:   o.CreatedAt,
	}
}

func (repo organizationRepository) CreateOrganization(ctx context.Context, o organization.Organization) (organization.Organization, error) {
	row := models.Organization{
		Name:        o.Name,
		Code:        o.Code,
		AdminID:     o.AdminID,
		Description: o.Description,
		Location:    o.Location,
		IsActive:    o.IsActive,
		CreatedAt:   o.CreatedAt.UTC(),
	}
	if err := repo.store.Conn(ctx).Create(&row).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return organization.Organization{}, organization.ErrCodeExists
		}
		return organization.Organization{}, core.NewStorageError(err, "inserting organization")
	}
	return toOrganization(row), nil
}

func (repo organizationRepository) QueryOrganizations(ctx context.Context, filter organization.Filter) ([]organization.Organization, error) {
	q := repo.store.Conn(ctx).Model(&models.Organization{})
	if filter.AdminID != "" {
		q = q.Where("admin_id = ?", filter.AdminID)
	}
	if filter.OnlyActive {
		q = q.Where("is_active = ?", true)
	}
	var rows []models.Organization
	if err := q.Order("name, id").Find(&rows).Error; err != nil {
		return nil, core.NewStorageError(err, "querying organizations")
	}
	orgs := make([]organization.Organization, 0, len(rows))
	for _, o := range rows {
		orgs = append(orgs, toOrganization(o))
	}
	return orgs, nil
}

func (repo organizationRepository) GetByCode(ctx context.Context, code string) (organization.Organization, error) {
	var row models.Organization
	if err := repo.store.Conn(ctx).Where("code = ?", code).Take(&row).Error; err != nil {
		return organization.Organization{}, trapNotFound(err, organization.ErrNotFound, "finding organization")
	}
	return toOrganization(row), nil
}
