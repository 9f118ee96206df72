package subcourse

const (
	FeatureGroups                = "groups"
	FeatureGroupings             = "groupings"
	FeatureModIntro              = "mod_intro"
	FeatureCompletionTracksViews = "completion_tracks_views"
	FeatureCompletionHasRules    = "completion_has_rules"
	FeatureGradeHasGrade         = "grade_has_grade"
	FeatureGradeOutcomes         = "outcomes"
	FeatureBackupMoodle2         = "backup_moodle2"
	FeatureShowDescription       = "showdescription"
	FeatureComment               = "comment"
	FeatureModArchetype          = "mod_archetype"
	FeatureModPurpose            = "mod_purpose"
)

const (
	ArchetypeResource    = 1
	PurposeCollaboration = "collaboration"
)

// Supports answers the host feature query. Unknown features yield nil.
func Supports(feature string) interface{} {
	switch feature {
	case FeatureGroups,
		FeatureGroupings,
		FeatureModIntro,
		FeatureCompletionTracksViews,
		FeatureCompletionHasRules,
		FeatureGradeHasGrade,
		FeatureGradeOutcomes,
		FeatureBackupMoodle2,
		FeatureShowDescription,
		FeatureComment:
		return true
	case FeatureModArchetype:
		return ArchetypeResource
	case FeatureModPurpose:
		return PurposeCollaboration
	default:
		return nil
	}
}
