package models

import (
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
)

// Employee represents a member of the production staff
type Employee struct {
	gorm.Model
	OwnerID        string                 `gorm:"index;not null"`
	Name           string
	Role           EmployeeRole           `gorm:"type:varchar(32)"`
	Active         bool
	Shifts         []Shift                `gorm:"foreignkey:EmployeeID"`
	Certifications []MachineCertification `gorm:"foreignkey:EmployeeID"`
}

// EmployeeRole represents the role of an employee
type EmployeeRole string

const (
	RoleAdmin    EmployeeRole = "admin"
	RoleManager  EmployeeRole = "manager"
	RoleOperator EmployeeRole = "operator"
	RoleTrainee  EmployeeRole = "trainee"
)

// Shift is a recurring weekly working window, times as HH:MM
type Shift struct {
	gorm.Model
	EmployeeID uint   `gorm:"index"`
	DayOfWeek  string // lowercase English day name
	StartTime  string
	EndTime    string
}

// MachineCertification records that an employee may operate a machine
type MachineCertification struct {
	gorm.Model
	EmployeeID        uint `gorm:"index"`
	MachineID         uint `gorm:"index"`
	CertificationDate time.Time
}

// ValidateEmployee validates an employee
func ValidateEmployee(e *Employee) error {
	if e.Name == "" {
		return fmt.Errorf("employee name is required")
	}
	switch e.Role {
	case RoleAdmin, RoleManager, RoleOperator, RoleTrainee:
	default:
		return fmt.Errorf("unknown employee role %q", e.Role)
	}
	for _, s := range e.Shifts {
		if _, ok := ParseWeekday(s.DayOfWeek); !ok {
			return fmt.Errorf("unknown shift day %q", s.DayOfWeek)
		}
		start, err := ParseClock(s.StartTime)
		if err != nil {
			return err
		}
		end, err := ParseClock(s.EndTime)
		if err != nil {
			return err
		}
		if end <= start {
			return fmt.Errorf("shift on %s must end after it starts", s.DayOfWeek)
		}
	}
	return nil
}

// IsCertifiedFor checks if the employee holds a certification for the machine
func (e *Employee) IsCertifiedFor(machineID uint) bool {
	for _, c := range e.Certifications {
		if c.MachineID == machineID {
			return true
		}
	}
	return false
}

// CoversWindow reports whether the employee is on shift for the whole of
// [start, end). Employees without any shifts are treated as always available.
func (e *Employee) CoversWindow(start, end time.Time) bool {
	if len(e.Shifts) == 0 {
		return true
	}
	y1, m1, d1 := start.Date()
	y2, m2, d2 := end.Add(-time.Nanosecond).Date()
	if y1 != y2 || m1 != m2 || d1 != d2 {
		return false
	}
	from := start.Hour()*60 + start.Minute()
	to := from + int(end.Sub(start).Minutes())
	for _, s := range e.Shifts {
		day, ok := ParseWeekday(s.DayOfWeek)
		if !ok || day != start.Weekday() {
			continue
		}
		shiftStart, err := ParseClock(s.StartTime)
		if err != nil {
			continue
		}
		shiftEnd, err := ParseClock(s.EndTime)
		if err != nil {
			continue
		}
		if shiftStart <= from && to <= shiftEnd {
			return true
		}
	}
	return false
}
