package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/quota"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testDeps struct {
	app     *Server
	usrRepo user.Repository
	clsRepo class.Repository
	usrSvc  *user.Service
	gc      *fakeClassroom
}

func setup(t *testing.T) testDeps {
	conf := &core.Config{
		TestMode:                  true,
		AppName:                   "Darasa",
		SecretKey:                 "secret",
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromName:           "Darasa",
		DefaultFromEmail:          "noreply@localhost",
		JWTExpirationDelta:        10 * time.Minute,
		JWTRefreshExpirationDelta: 4 * time.Hour,
		DefaultLimits:             core.LimitsConfig{Classes: 5, Evaluators: 5, Evaluations: 100},
	}

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	usrRepo := inmemdb.NewUserRepository(db)
	clsRepo := inmemdb.NewClassRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)

	gc := newFakeClassroom()
	clsSvc := class.NewService(clsRepo, gc, fakeTokens{token: "tok"}, quota.NewGate(), nopLogger{})

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	app := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     nopLogger{},
		UserSvc:    usrSvc,
		ClassSvc:   clsSvc,
		Vault:      classroom.NewVault(conf, usrRepo),
		Classroom:  gc,
		Validate:   validate,
		Translator: translator,
	})

	return testDeps{app: app, usrRepo: usrRepo, clsRepo: clsRepo, usrSvc: usrSvc, gc: gc}
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

type fakeTokens struct {
	token string
	err   error
}

func (f fakeTokens) Token(ctx context.Context, ownerID string) (string, error) {
	return f.token, f.err
}

// fakeClassroom serves a small fixed course catalogue.
type fakeClassroom struct {
	courses    map[string]classroom.Course
	rosters    map[string][]classroom.CourseStudent
	profiles   map[string]classroom.Profile
	inviteErrs map[string]error
	invited    []string
}

func newFakeClassroom() *fakeClassroom {
	return &fakeClassroom{
		courses: map[string]classroom.Course{
			"c1": {ID: "c1", Name: "Maths", Section: "A", Description: "Algebra"},
		},
		rosters: map[string][]classroom.CourseStudent{
			"c1": {{UserID: "g1"}, {UserID: "g2"}},
		},
		profiles: map[string]classroom.Profile{
			"g1": {ID: "g1", Name: "Awa Cisse", Email: "awa@test.cd"},
			"g2": {ID: "g2", Name: "Beni Kalala", Email: "beni@test.cd"},
		},
		inviteErrs: make(map[string]error),
	}
}

func (c *fakeClassroom) ListCourses(ctx context.Context, token string) ([]classroom.Course, error) {
	courses := make([]classroom.Course, 0, len(c.courses))
	for _, course := range c.courses {
		courses = append(courses, course)
	}
	return courses, nil
}

func (c *fakeClassroom) GetCourse(ctx context.Context, token, courseID string) (classroom.Course, error) {
	course, ok := c.courses[courseID]
	if !ok {
		return classroom.Course{}, classroom.ErrNotFound
	}
	return course, nil
}

func (c *fakeClassroom) CreateCourse(ctx context.Context, token string, nc classroom.NewCourse) (classroom.Course, error) {
	course := classroom.Course{ID: "new-course", Name: nc.Name, Section: nc.Section, Description: nc.Description}
	c.courses[course.ID] = course
	return course, nil
}

func (c *fakeClassroom) ListStudents(ctx context.Context, token, courseID string) ([]classroom.CourseStudent, error) {
	return c.rosters[courseID], nil
}

func (c *fakeClassroom) GetProfile(ctx context.Context, token, userID string) (classroom.Profile, error) {
	p, ok := c.profiles[userID]
	if !ok {
		return classroom.Profile{}, classroom.ErrNotFound
	}
	return p, nil
}

func (c *fakeClassroom) CreateInvitation(ctx context.Context, token, courseID, email string) error {
	if err := c.inviteErrs[email]; err != nil {
		return err
	}
	c.invited = append(c.invited, email)
	return nil
}

func createUser(t *testing.T, repo user.Repository, name, email, pwd string, isAdmin bool) user.User {
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Email:     email,
		IsAdmin:   isAdmin,
		IsActive:  true,
		Limits:    user.Limits{Classes: 5, Evaluators: 5, Evaluations: 100},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword(): %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
