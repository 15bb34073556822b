package feed

import (
	"fmt"

	"github.com/hvu/crmdesk/internal/model"
)

// entityRoutes maps an entity type to its destination view path. The
// actual view transition belongs to the router; this table only computes
// destinations.
var entityRoutes = map[model.EntityType]string{
	model.EntityTask:    "/tasks",
	model.EntityDeal:    "/deals",
	model.EntityContact: "/contacts",
	model.EntityLead:    "/leads",
}

// ResolveRoute returns the destination path for the business object a
// notification references. It returns ok=false when the notification has
// no entity reference or the entity type is unknown.
func ResolveRoute(n model.Notification) (string, bool) {
	if n.EntityType == "" || n.EntityID == 0 {
		return "", false
	}

	base, ok := entityRoutes[n.EntityType]
	if !ok {
		return "", false
	}

	return fmt.Sprintf("%s/%d", base, n.EntityID), true
}
