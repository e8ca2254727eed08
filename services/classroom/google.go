package classroomsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"

	"github.com/trezcool/darasa/core/classroom"
)

var defaultBaseURL = "https://classroom.googleapis.com/v1"

type googleClient struct {
	baseURL string
	http    *http.Client
}

var _ classroom.Client = (*googleClient)(nil)

func NewGoogleClient() classroom.Client {
	return &googleClient{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type (
	courseList struct {
		Courses       []classroom.Course `json:"courses"`
		NextPageToken string             `json:"nextPageToken"`
	}

	studentEntry struct {
		UserID string `json:"userId"`
	}

	studentList struct {
		Students      []studentEntry `json:"students"`
		NextPageToken string         `json:"nextPageToken"`
	}

	profileName struct {
		FullName string `json:"fullName"`
	}

	profile struct {
		ID           string      `json:"id"`
		Name         profileName `json:"name"`
		EmailAddress string      `json:"emailAddress"`
	}

	apiErrorBody struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
)

func (c *googleClient) ListCourses(ctx context.Context, token string) ([]classroom.Course, error) {
	courses := make([]classroom.Course, 0)
	pageToken := ""
	for {
		q := url.Values{"teacherId": {"me"}, "courseStates": {"ACTIVE"}}
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var page courseList
		if err := c.do(ctx, token, http.MethodGet, "/courses?"+q.Encode(), nil, &page); err != nil {
			return nil, err
		}
		courses = append(courses, page.Courses...)

		if page.NextPageToken == "" {
			return courses, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *googleClient) GetCourse(ctx context.Context, token, courseID string) (classroom.Course, error) {
	var course classroom.Course
	err := c.do(ctx, token, http.MethodGet, "/courses/"+url.PathEscape(courseID), nil, &course)
	return course, err
}

func (c *googleClient) CreateCourse(ctx context.Context, token string, nc classroom.NewCourse) (classroom.Course, error) {
	body := map[string]string{
		"name":        nc.Name,
		"section":     nc.Section,
		"description": nc.Description,
		"ownerId":     "me",
		"courseState": "PROVISIONED",
	}
	var course classroom.Course
	err := c.do(ctx, token, http.MethodPost, "/courses", body, &course)
	return course, err
}

func (c *googleClient) ListStudents(ctx context.Context, token, courseID string) ([]classroom.CourseStudent, error) {
	students := make([]classroom.CourseStudent, 0)
	pageToken := ""
	for {
		path := "/courses/" + url.PathEscape(courseID) + "/students"
		if pageToken != "" {
			path += "?pageToken=" + url.QueryEscape(pageToken)
		}

		var page studentList
		if err := c.do(ctx, token, http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}
		for _, st := range page.Students {
			students = append(students, classroom.CourseStudent{UserID: st.UserID})
		}

		if page.NextPageToken == "" {
			return students, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *googleClient) GetProfile(ctx context.Context, token, userID string) (classroom.Profile, error) {
	var p profile
	if err := c.do(ctx, token, http.MethodGet, "/userProfiles/"+url.PathEscape(userID), nil, &p); err != nil {
		return classroom.Profile{}, err
	}
	return classroom.Profile{ID: p.ID, Name: p.Name.FullName, Email: p.EmailAddress}, nil
}

func (c *googleClient) CreateInvitation(ctx context.Context, token, courseID, email string) error {
	body := map[string]string{
		"courseId": courseID,
		"userId":   email,
		"role":     "STUDENT",
	}
	return c.do(ctx, token, http.MethodPost, "/invitations", body, nil)
}

func (c *googleClient) do(ctx context.Context, token, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return &classroom.TransientError{Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	resBody, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return &classroom.TransientError{Err: err}
	}

	if res.StatusCode >= http.StatusBadRequest {
		return mapError(res.StatusCode, resBody)
	}
	if out != nil {
		if err = json.Unmarshal(resBody, out); err != nil {
			return &classroom.TransientError{Err: err}
		}
	}
	return nil
}

func mapError(code int, body []byte) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return classroom.ErrUnauthorized
	case http.StatusNotFound:
		return classroom.ErrNotFound
	}

	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return &classroom.APIError{Code: parsed.Error.Code, Message: parsed.Error.Message}
	}
	return &classroom.APIError{Code: code, Message: fmt.Sprintf("unexpected response: %s", body)}
}
