package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewPage(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	t.Run("configured", func(t *testing.T) {
		html, err := r.ViewPage(ViewPage{
			Lang:    "en",
			Title:   "Linked",
			Heading: "Host course",
			Info: &SubcourseInfo{
				HasPercentage: true,
				Percentage:    66,
				ProgressLabel: "Your progress 66%",
				HasStrGrade:   true,
				StrGrade:      "40.00",
				GradeLabel:    "Current grade: 40.00",
			},
			Buttons: []Link{
				{URL: "/mod/subcourse/view.php?id=5&instantredirect=1", Label: "Go to <Ref>", Class: "btn btn-primary", Target: "_blank"},
			},
			FetchInfo: "The grades have not been fetched yet",
		})
		require.NoError(t, err)
		assert.Contains(t, html, "Your progress 66%")
		assert.Contains(t, html, "Current grade: 40.00")
		assert.Contains(t, html, `target="_blank"`)
		assert.Contains(t, html, "Go to &lt;Ref&gt;")
		assert.Contains(t, html, "dimmed_text")
		assert.NotContains(t, html, "alert-warning")
	})

	t.Run("notice only", func(t *testing.T) {
		html, err := r.ViewPage(ViewPage{Lang: "en", Title: "Linked", Notice: "No referenced course configured"})
		require.NoError(t, err)
		assert.Contains(t, html, "alert-warning")
		assert.NotContains(t, html, "actionbuttons")
	})

	t.Run("empty page", func(t *testing.T) {
		html, err := r.ViewPage(ViewPage{Lang: "en", Title: "Linked"})
		require.NoError(t, err)
		assert.NotContains(t, html, "alert-warning")
		assert.NotContains(t, html, "subcourseinfo")
	})
}

func TestMobileView(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	html, err := r.MobileView(MobileView{
		CMID:          5,
		RefCourse:     &MobileRefCourse{ID: 3, FullName: "Ref", URL: "https://lms.example/course/view.php?id=3"},
		HasProgress:   true,
		Progress:      50,
		ProgressLabel: "Your progress 50%",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "course/view.php?id=3")
	assert.Contains(t, html, `progress="50"`)
	assert.NotContains(t, html, "core-warning-card")
}

func TestUnknownTemplate(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	_, err = r.Render("nope", nil)
	assert.Error(t, err)
}
