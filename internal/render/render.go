package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

type Link struct {
	URL    string
	Label  string
	Class  string
	Target string
}

type SubcourseInfo struct {
	HasPercentage bool
	Percentage    int
	ProgressLabel string
	HasStrGrade   bool
	StrGrade      string
	GradeLabel    string
}

type ViewPage struct {
	Lang      string
	Title     string
	Heading   string
	Notice    string
	Info      *SubcourseInfo
	Buttons   []Link
	FetchInfo string
}

type MobileRefCourse struct {
	ID       int64
	FullName string
	URL      string
}

type MobileView struct {
	CMID          int64
	Name          string
	Intro         string
	Warning       string
	RefCourse     *MobileRefCourse
	HasProgress   bool
	Progress      int
	ProgressLabel string
	HasGrade      bool
	CurrentGrade  string
	GradeLabel    string
}

type Renderer struct {
	tpl *template.Template
}

func New() (*Renderer, error) {
	tpl, err := template.ParseFS(files, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tpl: tpl}, nil
}

func (r *Renderer) Render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (r *Renderer) ViewPage(page ViewPage) (string, error) {
	return r.Render("view_page", page)
}

func (r *Renderer) MobileView(view MobileView) (string, error) {
	return r.Render("mobile_view", view)
}
