package repository

import (
	"github.com/linggong-dev/shift-dispatch/backend/internal/domain"
)

func (r *Repository) CreateOrganization(org *domain.Organization) error {
	query := `
		INSERT INTO organizations (name, contact_email)
		VALUES ($1, $2)
		RETURNING id, created_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	dst := []any{&org.ID, &org.CreatedAt, &org.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, org.Name, org.ContactEmail).Scan(dst...); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetOrganizationByID(id int64) (*domain.Organization, error) {
	query := `
		SELECT name, contact_email, created_at, version
		FROM organizations WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	org := &domain.Organization{
		ID: id,
	}

	dst := []any{&org.Name, &org.ContactEmail, &org.CreatedAt, &org.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return org, nil
}

func (r *Repository) GetAllOrganizations() ([]*domain.Organization, error) {
	query := `
		SELECT id, name, contact_email, created_at, version
		FROM organizations
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orgs := []*domain.Organization{}
	for rows.Next() {
		var org domain.Organization
		dst := []any{&org.ID, &org.Name, &org.ContactEmail, &org.CreatedAt, &org.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		orgs = append(orgs, &org)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orgs, nil
}

func (r *Repository) UpsertBlock(block *domain.OrganizationBlock) error {
	query := `
		INSERT INTO organization_blocks (organization_id, worker_id, direction, reason)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (organization_id, worker_id, direction) DO UPDATE SET reason = EXCLUDED.reason
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	params := []any{block.OrganizationID, block.WorkerID, block.Direction, block.Reason}
	if _, err := r.dbpool.ExecContext(ctx, query, params...); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteBlock(organizationID int64, workerID int64, direction domain.BlockDirection) error {
	query := `
		DELETE FROM organization_blocks
		WHERE organization_id = $1 AND worker_id = $2 AND direction = $3
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, organizationID, workerID, direction); err != nil {
		return err
	}

	return nil
}

// ListBlockedWorkerIDs 返回与某个用人方存在任意方向拉黑关系的工人 ID 集合
func (r *Repository) ListBlockedWorkerIDs(organizationID int64) (map[int64]bool, error) {
	query := `
		SELECT DISTINCT worker_id FROM organization_blocks WHERE organization_id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blocked := map[int64]bool{}
	for rows.Next() {
		var workerID int64
		if err := rows.Scan(&workerID); err != nil {
			return nil, err
		}
		blocked[workerID] = true
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return blocked, nil
}
