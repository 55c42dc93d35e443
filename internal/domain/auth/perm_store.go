package auth

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PermissionChecker answers role/permission lookups for the RBAC
// middleware.
type PermissionChecker struct {
	DB *pgxpool.Pool
}

func NewPermissionChecker(db *pgxpool.Pool) *PermissionChecker {
	return &PermissionChecker{DB: db}
}

func (c *PermissionChecker) HasPermission(ctx context.Context, roleID, permission string) (bool, error) {
	var count int
	err := c.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM role_permissions rp
    JOIN permissions p ON rp.permission_id = p.id
    WHERE rp.role_id = $1 AND p.key = $2
  `, roleID, permission).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
