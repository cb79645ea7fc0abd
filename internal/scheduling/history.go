package scheduling

import (
	"reflect"
	"strings"
	"time"

	"creamery/internal/models"
)

// TrackedBlockFields are the block fields recorded in revisions
var TrackedBlockFields = []string{"StartTime", "EndTime", "MachineID", "EmployeeID", "RecipeID", "Quantity", "Status", "Notes"}

// DiffFields compares the named exported fields of two values of the same
// struct type and returns the ones that differ. Pointer fields are compared
// by the values they point to.
func DiffFields(before, after interface{}, fields []string) models.ChangeSet {
	bv, av := structValue(before), structValue(after)
	changes := models.ChangeSet{}
	if !bv.IsValid() || !av.IsValid() || bv.Type() != av.Type() {
		return changes
	}

	for _, name := range fields {
		bf, af := bv.FieldByName(name), av.FieldByName(name)
		if !bf.IsValid() || !af.IsValid() {
			continue
		}
		oldValue, newValue := plain(bf), plain(af)
		if equalValues(oldValue, newValue) {
			continue
		}
		changes = append(changes, models.FieldChange{Field: fieldKey(name), Old: oldValue, New: newValue})
	}
	return changes
}

func structValue(v interface{}) reflect.Value {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}
	}
	return rv
}

func plain(v reflect.Value) interface{} {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch value := v.Interface().(type) {
	case time.Time:
		return value.UTC()
	case models.BlockStatus:
		return string(value)
	default:
		return value
	}
}

func equalValues(a, b interface{}) bool {
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok && bok {
		return at.Equal(bt)
	}
	return reflect.DeepEqual(a, b)
}

// fieldKey turns a Go field name into its wire name, e.g. MachineID -> machineId
func fieldKey(name string) string {
	if strings.HasSuffix(name, "ID") {
		name = strings.TrimSuffix(name, "ID") + "Id"
	}
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}
