package models

import (
	"fmt"

	"github.com/jinzhu/gorm"
)

// Machine represents a batch freezer or similar production machine
type Machine struct {
	gorm.Model
	OwnerID            string        `gorm:"index;not null"`
	Name               string
	TubCapacity        int           // tubs per batch the machine can hold
	ProductionTime     int           // minutes per batch
	Status             MachineStatus `gorm:"type:varchar(32)"`
	AssignedEmployeeID *uint
	Notes              string
}

// MachineStatus represents the operational status of a machine
type MachineStatus string

const (
	MachineStatusAvailable   MachineStatus = "available"
	MachineStatusInUse       MachineStatus = "in-use"
	MachineStatusMaintenance MachineStatus = "maintenance"
)

// IsValid reports whether the status is a known machine status
func (s MachineStatus) IsValid() bool {
	switch s {
	case MachineStatusAvailable, MachineStatusInUse, MachineStatusMaintenance:
		return true
	}
	return false
}

// ValidateMachine validates a machine
func ValidateMachine(m *Machine) error {
	if m.Name == "" {
		return fmt.Errorf("machine name is required")
	}
	if m.TubCapacity < 1 {
		return fmt.Errorf("machine tub capacity must be at least 1")
	}
	if m.ProductionTime < 1 {
		return fmt.Errorf("machine production time must be at least 1 minute")
	}
	if !m.Status.IsValid() {
		return fmt.Errorf("unknown machine status %q", m.Status)
	}
	return nil
}

// IsSchedulable reports whether the auto-generator may place work on the machine
func (m *Machine) IsSchedulable() bool {
	return m.Status == MachineStatusAvailable
}
