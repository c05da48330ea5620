// Package inmemdb implements the repositories in memory, for tests and local runs.
package inmemdb

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/guardian"
	"github.com/trezcool/attendance/core/notification"
	"github.com/trezcool/attendance/core/section"
	"github.com/trezcool/attendance/core/setting"
)

type (
	DB struct {
		setting      *settingTable
		guardian     *guardianTable
		section      *sectionTable
		attendance   *attendanceTable
		notification *notificationTable
	}

	settingTable struct {
		sync.RWMutex
		row *setting.Settings
	}

	guardianTable struct {
		sync.RWMutex
		students  map[string]*guardian.Student
		guardians map[string]*guardian.Guardian
		links     map[string]map[string]bool // student ID -> guardian IDs
	}

	sectionTable struct {
		sync.RWMutex
		table map[string]*section.Section
	}

	attendanceTable struct {
		sync.RWMutex
		table map[string]*attendance.Attendance
	}

	notificationTable struct {
		sync.RWMutex
		table map[string]*notification.Notification
	}
)

func Open() *DB {
	return &DB{
		setting: &settingTable{},
		guardian: &guardianTable{
			students:  make(map[string]*guardian.Student),
			guardians: make(map[string]*guardian.Guardian),
			links:     make(map[string]map[string]bool),
		},
		section:      &sectionTable{table: make(map[string]*section.Section)},
		attendance:   &attendanceTable{table: make(map[string]*attendance.Attendance)},
		notification: &notificationTable{table: make(map[string]*notification.Notification)},
	}
}

// comparator compares the elements i and j of a slice on `field`: -1, 0 or 1.
type comparator func(i, j int, field string) int

// sortSlice sorts `slice` by the `allowed` fields of `ordering`, falling back to `fallback` when none is left.
func sortSlice(slice interface{}, ordering, fallback []core.DBOrdering, allowed []string, cmp comparator) {
	ordering = core.CleanOrdering(ordering, allowed...)
	if len(ordering) == 0 {
		ordering = fallback
	}
	sort.SliceStable(slice, func(i, j int) bool {
		for _, ord := range ordering {
			c := cmp(i, j, ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func cmpStrings(a, b string) int {
	return strings.Compare(a, b)
}

func cmpInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
