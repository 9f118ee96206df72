// Package moodlews reads referenced course grades from a remote Moodle site
// through its REST web service.
package moodlews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/models"
)

const gradeItemsFunction = "gradereport_user_get_grade_items"

type Client struct {
	base  string
	token string
	http  *http.Client
}

func NewClient(base, token string, timeout time.Duration) *Client {
	if base != "" && !strings.HasSuffix(base, "/") {
		base = base + "/"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base:  base,
		token: token,
		http:  &http.Client{Timeout: timeout},
	}
}

type gradeItem struct {
	ItemType string   `json:"itemtype"`
	ScaleID  *int64   `json:"scaleid"`
	GradeRaw *float64 `json:"graderaw"`
}

type userGrades struct {
	UserID     int64       `json:"userid"`
	GradeItems []gradeItem `json:"gradeitems"`
}

type gradeItemsResponse struct {
	UserGrades []userGrades `json:"usergrades"`
}

type wsError struct {
	Exception string `json:"exception"`
	ErrorCode string `json:"errorcode"`
	Message   string `json:"message"`
}

// FetchRefGrades implements the grade source on top of the user grade report.
// A course total graded on a scale cannot be mapped to points and is
// reported as LocalRemoteScale.
func (c *Client) FetchRefGrades(ctx context.Context, courseID, userID int64) (*models.RefGrades, error) {
	params := url.Values{}
	params.Set("courseid", strconv.FormatInt(courseID, 10))
	if userID != 0 {
		params.Set("userid", strconv.FormatInt(userID, 10))
	}

	body, err := c.call(ctx, gradeItemsFunction, params)
	if err != nil {
		return nil, err
	}

	var resp gradeItemsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("server returned unexpected response: %w", err)
	}

	result := &models.RefGrades{Grades: map[int64]float64{}}
	for _, ug := range resp.UserGrades {
		for _, item := range ug.GradeItems {
			if item.ItemType != models.ItemTypeCourse {
				continue
			}
			if item.ScaleID != nil && *item.ScaleID > 0 {
				result.LocalRemoteScale = true
			}
			if item.GradeRaw != nil {
				result.Grades[ug.UserID] = *item.GradeRaw
			}
		}
	}

	return result, nil
}

func (c *Client) call(ctx context.Context, function string, params url.Values) ([]byte, error) {
	params.Set("wstoken", c.token)
	params.Set("wsfunction", function)
	params.Set("moodlewsrestformat", "json")

	// parameters travel in the body so the token never shows up in a URL
	endpoint := c.base + "webservice/rest/server.php"
	logger.Debug.Printf("Fetch: %s", function)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", function, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", function, err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", function, res.StatusCode)
	}

	if strings.HasPrefix(string(body), `{"exception":`) {
		return nil, readError(body)
	}

	return body, nil
}

func readError(body []byte) error {
	var e wsError
	if err := json.Unmarshal(body, &e); err != nil {
		return errors.New(string(body))
	}
	if e.Message != "" {
		return fmt.Errorf("moodle %s: %s", e.ErrorCode, e.Message)
	}
	return fmt.Errorf("moodle exception %s", e.Exception)
}
