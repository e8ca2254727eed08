package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/classroom"
)

func Test_classApi_crud(t *testing.T) {
	deps := setup(t)
	owner := createUser(t, deps.usrRepo, "Mwalimu", "mwalimu@test.cd", "g00d&Plenty", false)
	token := getToken(t, owner)

	t.Run("no token", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/classes")
		deps.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	var created class.Class
	t.Run("create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes", token,
			[]byte(`{"name":"Maths","section":"A","subject":"Algebra"}`))
		deps.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.Equal(t, owner.ID, created.OwnerID)
		assert.False(t, created.IsGoogleClassroom)
		assert.Empty(t, created.Students)
	})

	t.Run("create: missing fields", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes", token, []byte(`{"name":"Maths"}`))
		deps.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"section": "this field is required",
				"subject": "this field is required",
			}),
		}, rec)
	})

	t.Run("retrieve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/"+created.ID, token)
		deps.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, created)}, rec)
	})

	t.Run("retrieve: other owner's class", func(t *testing.T) {
		other := createUser(t, deps.usrRepo, "Other", "other@test.cd", "g00d&Plenty", false)
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/"+created.ID, getToken(t, other))
		deps.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/classes/"+created.ID, token,
			[]byte(`{"name":"Maths II","section":"B","subject":"Geometry"}`))
		deps.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated class.Class
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, "Maths II", updated.Name)
	})

	t.Run("destroy", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/classes/"+created.ID, token)
		deps.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		_, err := deps.clsRepo.GetClass(context.Background(), class.GetFilter{ID: created.ID})
		assert.Equal(t, class.ErrNotFound, err)
	})
}

func Test_classApi_importCourse(t *testing.T) {
	deps := setup(t)
	owner := createUser(t, deps.usrRepo, "Mwalimu", "mwalimu@test.cd", "g00d&Plenty", false)
	token := getToken(t, owner)

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes/google/import", token,
			[]byte(`{"course_id":"c1"}`))
		deps.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var cls class.Class
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cls))
		assert.Equal(t, "Maths", cls.Name)
		assert.True(t, cls.IsGoogleClassroom)
		assert.Equal(t, []class.Student{
			{RollNo: 1, Name: "Awa Cisse", Email: "awa@test.cd"},
			{RollNo: 2, Name: "Beni Kalala", Email: "beni@test.cd"},
		}, cls.Students)
	})

	t.Run("already imported", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes/google/import", token,
			[]byte(`{"course_id":"c1"}`))
		deps.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: class.ErrAlreadyImported.Error()}),
		}, rec)
	})

	t.Run("unknown course", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes/google/import", token,
			[]byte(`{"course_id":"nope"}`))
		deps.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: classroom.ErrNotFound.Error()}),
		}, rec)
	})

	t.Run("missing course id", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes/google/import", token, []byte(`{}`))
		deps.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"course_id": "this field is required"}),
		}, rec)
	})
}

func Test_classApi_students(t *testing.T) {
	deps := setup(t)
	owner := createUser(t, deps.usrRepo, "Mwalimu", "mwalimu@test.cd", "g00d&Plenty", false)
	token := getToken(t, owner)

	importCourse := func(t *testing.T) class.Class {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes/google/import", token,
			[]byte(`{"course_id":"c1"}`))
		deps.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var cls class.Class
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cls))
		return cls
	}
	cls := importCourse(t)

	t.Run("add students dedups by email", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes/"+cls.ID+"/students", token,
			[]byte(`{"students":[{"name":"Awa Again","email":"awa@test.cd"},{"name":"Didi Moke","email":"didi@test.cd"}]}`))
		deps.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res class.SyncResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		require.Len(t, res.Students, 3)
		assert.Equal(t, class.Student{RollNo: 3, Name: "Didi Moke", Email: "didi@test.cd"}, res.Students[2])
		assert.Empty(t, res.InvitationFailures)
	})

	t.Run("add with propagate reports invitation failures", func(t *testing.T) {
		deps.gc.inviteErrs["bad@test.cd"] = &classroom.APIError{Code: 409, Message: "already invited"}

		req, rec := newAuthRequest(http.MethodPost, "/v1/classes/"+cls.ID+"/students", token,
			[]byte(`{"students":[{"name":"Bad Apple","email":"bad@test.cd"},{"name":"Eli Okito","email":"eli@test.cd"}],"propagate":true}`))
		deps.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res class.SyncResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Len(t, res.Students, 5)
		assert.Equal(t, []string{"bad@test.cd"}, res.InvitationFailures)
		assert.Contains(t, deps.gc.invited, "eli@test.cd")
	})

	t.Run("merge overwrites by roll number", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/classes/"+cls.ID+"/students", token,
			[]byte(`{"students":[{"roll_no":1,"name":"Awa Corrected","email":"awa@test.cd"}]}`))
		deps.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res class.SyncResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, "Awa Corrected", res.Students[0].Name)
		assert.Len(t, res.Students, 5)
	})

	t.Run("sync replaces the roster from the remote", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes/"+cls.ID+"/sync", token)
		deps.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res class.SyncResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, []class.Student{
			{RollNo: 1, Name: "Awa Cisse", Email: "awa@test.cd"},
			{RollNo: 2, Name: "Beni Kalala", Email: "beni@test.cd"},
		}, res.Students)
	})

	t.Run("remove student by roll number", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/classes/"+cls.ID+"/students/1", token)
		deps.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var students []class.Student
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &students))
		assert.Equal(t, []class.Student{
			{RollNo: 2, Name: "Beni Kalala", Email: "beni@test.cd"},
		}, students)
	})

	t.Run("remove unknown roll number", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/classes/"+cls.ID+"/students/9", token)
		deps.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: class.ErrStudentNotFound.Error()}),
		}, rec)
	})

	t.Run("remove with a bad roll number", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/classes/"+cls.ID+"/students/nope", token)
		deps.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"rollNo": "must be a number"}),
		}, rec)
	})

	t.Run("sync on an unlinked class", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes", token,
			[]byte(`{"name":"Local","section":"A","subject":"Art"}`))
		deps.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var local class.Class
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &local))

		req, rec = newAuthRequest(http.MethodPost, "/v1/classes/"+local.ID+"/sync", token)
		deps.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: class.ErrNotLinked.Error()}),
		}, rec)
	})
}

func Test_classApi_googleCourses(t *testing.T) {
	deps := setup(t)
	owner := createUser(t, deps.usrRepo, "Mwalimu", "mwalimu@test.cd", "g00d&Plenty", false)
	token := getToken(t, owner)

	t.Run("list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/google/courses", token)
		deps.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var courses []classroom.Course
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &courses))
		require.Len(t, courses, 1)
		assert.Equal(t, "Maths", courses[0].Name)
	})

	t.Run("preview a course roster", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/google/courses/c1/students", token)
		deps.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var students []class.Student
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &students))
		assert.Equal(t, []class.Student{
			{RollNo: 1, Name: "Awa Cisse", Email: "awa@test.cd"},
			{RollNo: 2, Name: "Beni Kalala", Email: "beni@test.cd"},
		}, students)
	})

	t.Run("create course creates a linked class", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes/google/courses", token,
			[]byte(`{"name":"Physics","section":"C","subject":"Mechanics"}`))
		deps.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var cls class.Class
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cls))
		assert.True(t, cls.IsGoogleClassroom)
		assert.Equal(t, "new-course", cls.GoogleCourseID)
	})
}
