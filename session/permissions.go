package session

// Roles with special meaning to the site.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Permission names used across the site.
const (
	PermViewDashboard         = "view_dashboard"
	PermCreateArticles        = "create_articles"
	PermEditArticles          = "edit_articles"
	PermDeleteArticles        = "delete_articles"
	PermPublishArticles       = "publish_articles"
	PermCreatePodcasts        = "create_podcasts"
	PermEditPodcasts          = "edit_podcasts"
	PermDeletePodcasts        = "delete_podcasts"
	PermPublishPodcasts       = "publish_podcasts"
	PermCreateEconomicReports = "create_economic_reports"
	PermCreateIndices         = "create_indices"
	PermManageUsers           = "manage_users"
	PermViewAnalytics         = "view_analytics"
	PermManageSettings        = "manage_settings"
	PermEditOwnArticles       = "edit_own_articles"
)

// adminPermissions is the full administrative set. An admin always holds
// exactly this set, never a subset.
var adminPermissions = []string{
	PermViewDashboard,
	PermCreateArticles,
	PermEditArticles,
	PermDeleteArticles,
	PermPublishArticles,
	PermCreatePodcasts,
	PermEditPodcasts,
	PermDeletePodcasts,
	PermPublishPodcasts,
	PermCreateEconomicReports,
	PermCreateIndices,
	PermManageUsers,
	PermViewAnalytics,
	PermManageSettings,
}

// authorPermissions is the reduced default granted by the login background
// merge when the provider declared no permission list.
var authorPermissions = []string{
	PermViewDashboard,
	PermCreateArticles,
	PermEditOwnArticles,
	PermViewAnalytics,
}

// AdminPermissions returns a copy of the full administrative set.
func AdminPermissions() []string {
	return copyStrings(adminPermissions)
}

func copyStrings(values []string) []string {
	return append([]string(nil), values...)
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
