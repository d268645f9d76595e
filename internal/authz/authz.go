// Package authz models the role hierarchy the API layer consults before
// calling the engine. The ancestor/descendant inheritance is flattened into
// a transitive closure once at package init, so HasPermission is a map
// lookup with no database involved.
package authz

import (
	"github.com/campuspoints/backend/internal/models"
)

// Permissions the engine's operations require.
const (
	PermCreatePurchase    = "transactions:create_purchase"
	PermCreateAdjustment  = "transactions:create_adjustment"
	PermCreateTransfer    = "transactions:create_transfer"
	PermRequestRedemption = "transactions:request_redemption"
	PermProcessRedemption = "transactions:process_redemption"
	PermToggleSuspicious  = "transactions:toggle_suspicious"
	PermViewTransactions  = "transactions:view_all"
	PermAwardEventPoints  = "events:award_points"
	PermManagePromotions  = "promotions:manage"
	PermManageUsers       = "users:manage"
)

// parent maps each role to the role it inherits from.
var parent = map[string]string{
	models.RoleCashier:   models.RoleRegular,
	models.RoleManager:   models.RoleCashier,
	models.RoleSuperuser: models.RoleManager,
}

// direct grants per role, before inheritance.
var direct = map[string][]string{
	models.RoleRegular: {
		PermCreateTransfer,
		PermRequestRedemption,
	},
	models.RoleCashier: {
		PermCreatePurchase,
		PermProcessRedemption,
	},
	models.RoleManager: {
		PermCreateAdjustment,
		PermToggleSuspicious,
		PermViewTransactions,
		PermAwardEventPoints,
		PermManagePromotions,
	},
	models.RoleSuperuser: {
		PermManageUsers,
	},
}

// closure[role][permission], including everything inherited.
var closure = buildClosure()

func buildClosure() map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(direct))
	for role := range direct {
		perms := make(map[string]bool)
		for r := role; r != ""; r = parent[r] {
			for _, p := range direct[r] {
				perms[p] = true
			}
		}
		out[role] = perms
	}
	return out
}

// HasPermission reports whether role holds permission, directly or through
// inheritance. Unknown roles hold nothing.
func HasPermission(role, permission string) bool {
	return closure[role][permission]
}

// Roles returns the known roles, lowest to highest.
func Roles() []string {
	return []string{models.RoleRegular, models.RoleCashier, models.RoleManager, models.RoleSuperuser}
}
