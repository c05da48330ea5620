package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/notification"
	testutil "github.com/trezcool/attendance/tests"
)

func Test_attendanceApi_record(t *testing.T) {
	a := setup(t)
	testutil.MockNow(t, wednesdayMorning)

	math := testutil.CreateSection(t, a.svcs.Sections, "MATH101", "monday,wednesday,friday", "08:00", "09:30")
	hero := testutil.CreateStudent(t, a.svcs.Guardians, "Hero")
	testutil.CreateGuardian(t, a.svcs.Guardians, "Mum", "mum@test.cd", "", "", hero.ID)
	testutil.CreateGuardian(t, a.svcs.Guardians, "Dad", "dad@test.cd", "+243812345678", "", hero.ID)

	body := func(date, extra string) []byte {
		return []byte(`{"student_id": "` + hero.ID + `", "section_id": "` + math.ID + `", "date": "` + date + `"` + extra + `}`)
	}

	a.run(t, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/attendances", body: body("2026-10-14", `, "status": "absent"`), wantCode: http.StatusUnauthorized},
		{
			name: "Bad date", method: http.MethodPost, path: "/v1/attendances", body: body("14/10/2026", `, "status": "absent"`), token: a.userToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"date": "invalid date, expected YYYY-MM-DD"}),
		},
		{
			name: "Bad status", method: http.MethodPost, path: "/v1/attendances", body: body("2026-10-14", `, "status": "sick"`), token: a.userToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"status": "must be one of present, late, absent or excused"}),
		},
		{
			name: "No status nor check-in", method: http.MethodPost, path: "/v1/attendances", body: body("2026-10-14", ""), token: a.userToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"status": "this field is required when checked_in_at is not given"}),
		},
		{
			name: "No class that day", method: http.MethodPost, path: "/v1/attendances", body: body("2026-10-13", `, "status": "absent"`), token: a.userToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"date": "the section does not meet on this day"}),
		},
		{
			name: "Unknown student", method: http.MethodPost, path: "/v1/attendances", token: a.userToken,
			body:     []byte(`{"student_id": "` + uuid.New().String() + `", "section_id": "` + math.ID + `", "date": "2026-10-14", "status": "absent"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"student_id": "student not found"}),
		},
		{
			name: "Unknown section", method: http.MethodPost, path: "/v1/attendances", token: a.userToken,
			body:     []byte(`{"student_id": "` + hero.ID + `", "section_id": "` + uuid.New().String() + `", "date": "2026-10-14", "status": "absent"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"section_id": "section not found"}),
		},
	})

	var attID string
	t.Run("Late check-in creates and notifies", func(t *testing.T) {
		rec := a.do(httpTest{
			method: http.MethodPost, path: "/v1/attendances", token: a.userToken,
			body: body("2026-10-14", `, "checked_in_at": "2026-10-14T08:25:00Z"`),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var got attendance.Recorded
		unmarshal(t, rec, &got)
		attID = got.Attendance.ID
		assert.True(t, got.Created)
		assert.Equal(t, attendance.StatusLate, got.Attendance.Status)
		require.Len(t, got.Notifications, 2)
		methods := []notification.Method{got.Notifications[0].Method, got.Notifications[1].Method}
		assert.ElementsMatch(t, []notification.Method{notification.MethodEmail, notification.MethodSMS}, methods)
		for _, n := range got.Notifications {
			assert.Equal(t, notification.TypeLate, n.Type)
			assert.Equal(t, notification.StatusPending, n.Status)
			assert.Equal(t, attID, n.AttendanceID)
		}
	})

	t.Run("Status change to present updates silently", func(t *testing.T) {
		rec := a.do(httpTest{method: http.MethodPost, path: "/v1/attendances", token: a.userToken, body: body("2026-10-14", `, "status": "present"`)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got attendance.Recorded
		unmarshal(t, rec, &got)
		assert.False(t, got.Created)
		assert.Equal(t, attID, got.Attendance.ID)
		assert.Equal(t, attendance.StatusPresent, got.Attendance.Status)
		assert.Empty(t, got.Notifications)
	})

	t.Run("Same status is not notified twice", func(t *testing.T) {
		for i, wantLen := range []int{2, 0} {
			rec := a.do(httpTest{method: http.MethodPost, path: "/v1/attendances", token: a.userToken, body: body("2026-10-14", `, "status": "absent"`)})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var got attendance.Recorded
			unmarshal(t, rec, &got)
			assert.Len(t, got.Notifications, wantLen, "call %d", i)
		}
	})
}

func Test_attendanceApi_query(t *testing.T) {
	a := setup(t)
	testutil.MockNow(t, wednesdayMorning)

	math := testutil.CreateSection(t, a.svcs.Sections, "MATH101", "monday,wednesday,friday", "08:00", "09:30")
	hero := testutil.CreateStudent(t, a.svcs.Guardians, "Hero")
	other := testutil.CreateStudent(t, a.svcs.Guardians, "Other")

	record := func(studentID, date string, status attendance.Status) attendance.Attendance {
		rec, err := a.svcs.Attendances.Record(context.Background(), attendance.NewAttendance{
			StudentID: studentID, SectionID: math.ID, Date: date, Status: status,
		})
		require.NoError(t, err)
		return rec.Attendance
	}
	heroMon := record(hero.ID, "2026-10-12", attendance.StatusAbsent)
	heroWed := record(hero.ID, "2026-10-14", attendance.StatusPresent)
	otherWed := record(other.ID, "2026-10-14", attendance.StatusLate)

	a.run(t, []httpTest{
		{name: "Get all", path: "/v1/attendances", token: a.userToken, wantCode: http.StatusOK, wantData: marchallList(t, heroMon, heroWed, otherWed)},
		{
			name: "student_id", path: "/v1/attendances?student_id=" + hero.ID, token: a.userToken,
			wantCode: http.StatusOK, wantData: marchallList(t, heroMon, heroWed),
		},
		{name: "status", path: "/v1/attendances?status=late", token: a.userToken, wantCode: http.StatusOK, wantData: marchallList(t, otherWed)},
		{
			name: "date range", path: "/v1/attendances?date_from=2026-10-13&date_to=2026-10-14", token: a.userToken,
			wantCode: http.StatusOK, wantData: marchallList(t, heroWed, otherWed),
		},
		{name: "Retrieve", path: "/v1/attendances/" + heroMon.ID, token: a.userToken, wantCode: http.StatusOK, wantData: marchallObj(t, heroMon)},
		{
			name: "Retrieve (unknown)", path: "/v1/attendances/" + uuid.New().String(), token: a.userToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: attendance.ErrNotFound.Error()}),
		},
	})
}
