package subcourse

import (
	"context"
	"strings"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/models"
)

const (
	CapView         = "mod/subcourse:view"
	CapFetchGrades  = "mod/subcourse:fetchgrades"
	CapAddInstance  = "mod/subcourse:addinstance"
	CapCourseView   = "moodle/course:view"
	CapGraderReport = "gradereport/grader:view"
	CapGradeViewAll = "moodle/grade:viewall"
	CapUserReport   = "gradereport/user:view"
	CapGradeView    = "moodle/grade:view"
)

// DefaultGrants follows the standard Moodle role archetypes.
func DefaultGrants() map[int64][]string {
	return map[int64][]string{
		1: {"*"},
		3: {"mod/subcourse:*", CapGraderReport, CapGradeViewAll, CapUserReport, CapGradeView},
		4: {CapView, CapFetchGrades, CapGraderReport, CapGradeViewAll, CapUserReport, CapGradeView},
		5: {CapView, CapUserReport, CapGradeView},
	}
}

type RoleLookup interface {
	RolesInCourse(ctx context.Context, courseID, userID int64) ([]int64, error)
}

// Capabilities resolves a capability through the roles the viewer holds in
// one course. Site admins hold everything.
type Capabilities struct {
	roles  RoleLookup
	grants map[int64][]string
}

func NewCapabilities(roles RoleLookup, grants map[int64][]string) *Capabilities {
	if grants == nil {
		grants = DefaultGrants()
	}
	return &Capabilities{roles: roles, grants: grants}
}

func (c *Capabilities) Has(ctx context.Context, viewer *models.Viewer, courseID int64, capability string) (bool, error) {
	return c.HasAll(ctx, viewer, courseID, capability)
}

func (c *Capabilities) HasAll(ctx context.Context, viewer *models.Viewer, courseID int64, capabilities ...string) (bool, error) {
	if viewer.SiteAdmin {
		return true, nil
	}

	roles, err := c.roles.RolesInCourse(ctx, courseID, viewer.UserID)
	if err != nil {
		return false, err
	}

	for _, capability := range capabilities {
		if !c.granted(roles, capability) {
			return false, nil
		}
	}
	return true, nil
}

func (c *Capabilities) granted(roles []int64, capability string) bool {
	for _, role := range roles {
		for _, pattern := range c.grants[role] {
			if matchCapability(pattern, capability) {
				return true
			}
		}
	}
	return false
}

func matchCapability(pattern, capability string) bool {
	if pattern == "*" || pattern == capability {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(capability, strings.TrimSuffix(pattern, "*"))
	}
	return false
}
