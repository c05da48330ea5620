package section

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/schedule"
)

func newValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)
	return validate
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func mathSection(t *testing.T) Section {
	sch, err := schedule.Parse("monday,wednesday,friday", "08:00", "09:30")
	require.NoError(t, err)
	return Section{ID: "math", CourseCode: "MATH101", Name: "Algebra", Room: "B12", Capacity: 30, Schedule: sch, Version: 3}
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	verr, ok := err.(*core.ValidationError)
	require.True(t, ok, "not a validation error: %v", err)
	flds := make(map[string]string)
	for _, f := range verr.Fields {
		flds[f.Field] = f.Error
	}
	return flds
}

func TestNewSection_Validate(t *testing.T) {
	validate := newValidator()

	ns := NewSection{
		CourseCode: " math101 ", Name: "  Algebra ", Capacity: 30,
		Days: []string{" Monday", "wednesday "}, StartTime: "08:00 ", EndTime: "09:30",
	}
	require.NoError(t, ns.Validate(validate))
	assert.Equal(t, "MATH101", ns.CourseCode)
	assert.Equal(t, "Algebra", ns.Name)
	assert.Equal(t, []string{"monday", "wednesday"}, ns.Days)

	sch, err := ns.schedule()
	require.NoError(t, err)
	assert.Equal(t, "monday,wednesday", sch.FormatDays())

	ns.EndTime = "07:00"
	err = ns.Validate(validate)
	assert.Equal(t, map[string]string{"end_time": "end time must be after start time"}, fieldErrors(t, err))
}

func TestUpdateSection_Validate(t *testing.T) {
	validate := newValidator()
	orig := mathSection(t)

	tests := []struct {
		name     string
		us       UpdateSection
		wantErr  error
		wantFlds map[string]string
		check    func(t *testing.T, sec Section)
	}{
		{
			name: "nothing",
			check: func(t *testing.T, sec Section) {
				assert.Equal(t, orig, sec)
			},
		},
		{
			name: "plain fields",
			us:   UpdateSection{CourseCode: strPtr(" math102"), Room: strPtr(""), Capacity: intPtr(12)},
			check: func(t *testing.T, sec Section) {
				assert.Equal(t, "MATH102", sec.CourseCode)
				assert.Equal(t, "", sec.Room)
				assert.Equal(t, 12, sec.Capacity)
				assert.True(t, orig.Schedule.Equal(sec.Schedule))
			},
		},
		{
			name: "end time merged with the current start",
			us:   UpdateSection{EndTime: strPtr("10:00")},
			check: func(t *testing.T, sec Section) {
				assert.Equal(t, schedule.Clock(8, 0, 0), sec.Schedule.Start())
				assert.Equal(t, "10:00:00", sec.Schedule.End().String())
				assert.Equal(t, orig.Schedule.Days(), sec.Schedule.Days())
			},
		},
		{
			name: "days replaced",
			us:   UpdateSection{Days: &[]string{"Friday", "tuesday"}},
			check: func(t *testing.T, sec Section) {
				assert.Equal(t, "tuesday,friday", sec.Schedule.FormatDays())
				assert.Equal(t, orig.Schedule.Duration(), sec.Schedule.Duration())
			},
		},
		{
			name:     "end before the current start",
			us:       UpdateSection{EndTime: strPtr("07:59")},
			wantFlds: map[string]string{"end_time": "end time must be after start time"},
		},
		{
			name:     "no days left",
			us:       UpdateSection{Days: &[]string{}},
			wantFlds: map[string]string{"days": "at least one weekday is required"},
		},
		{name: "matching version", us: UpdateSection{Version: intPtr(3)}},
		{name: "stale version", us: UpdateSection{Version: intPtr(2)}, wantErr: ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.us.Validate(orig, validate)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
				return
			case tt.wantFlds != nil:
				assert.Equal(t, tt.wantFlds, fieldErrors(t, err))
				return
			}
			require.NoError(t, err)

			sec, err := tt.us.apply(orig)
			require.NoError(t, err)
			assert.Equal(t, orig.Version, sec.Version)
			if tt.check != nil {
				tt.check(t, sec)
			}
		})
	}
}

func TestQueryFilter(t *testing.T) {
	sec := mathSection(t)
	sec.TeacherName = "Mme Kabila"

	tests := []struct {
		name   string
		filter QueryFilter
		want   bool
	}{
		{name: "empty", want: true},
		{name: "course code", filter: QueryFilter{CourseCode: " math101"}, want: true},
		{name: "other course code", filter: QueryFilter{CourseCode: "MATH102"}},
		{name: "teacher", filter: QueryFilter{TeacherName: "mme kabila"}, want: true},
		{name: "day", filter: QueryFilter{Day: "Wednesday"}, want: true},
		{name: "day off", filter: QueryFilter{Day: "tuesday"}},
		{name: "unknown day is dropped", filter: QueryFilter{Day: "someday"}, want: true},
		{name: "search name", filter: QueryFilter{Search: "alg"}, want: true},
		{name: "search room", filter: QueryFilter{Search: "b1"}, want: true},
		{name: "search miss", filter: QueryFilter{Search: "physics"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.Clean()
			assert.Equal(t, tt.want, tt.filter.Match(sec))
		})
	}
}

func TestSection_ViewAt(t *testing.T) {
	sec := mathSection(t)

	// 2026-10-14 is a Wednesday
	v := sec.ViewAt(time.Date(2026, time.October, 14, 8, 30, 0, 0, time.UTC))
	assert.True(t, v.InSession)
	assert.Equal(t, time.Date(2026, time.October, 16, 8, 0, 0, 0, time.UTC), v.NextClass.Time)

	v = sec.ViewAt(time.Date(2026, time.October, 14, 7, 0, 0, 0, time.UTC))
	assert.False(t, v.InSession)
	assert.Equal(t, time.Date(2026, time.October, 14, 8, 0, 0, 0, time.UTC), v.NextClass.Time)
	assert.Equal(t, sec, v.Section)
}
