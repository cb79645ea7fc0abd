package scheduling

import (
	"sync"
	"testing"
	"time"

	"github.com/jinzhu/gorm"

	"creamery/internal/config"
	"creamery/internal/database"
	"creamery/internal/models"
	"creamery/internal/testutil"
)

type recordedEvent struct {
	owner     string
	eventType string
	payload   interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) Publish(owner, eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{owner: owner, eventType: eventType, payload: payload})
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.eventType)
	}
	return types
}

type fakeRecorder struct {
	mu          sync.Mutex
	created     map[string]int
	unscheduled map[string]int
	conflicts   map[string]int
	forced      int
	runs        int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{created: map[string]int{}, unscheduled: map[string]int{}, conflicts: map[string]int{}}
}

func (r *fakeRecorder) BlocksCreated(source string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created[source] += n
}

func (r *fakeRecorder) RecipeUnscheduled(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unscheduled[reason]++
}

func (r *fakeRecorder) ConflictRejected(resource string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts[resource]++
}

func (r *fakeRecorder) ForcedAssignment() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forced++
}

func (r *fakeRecorder) GenerationFinished(float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
}

type fixture struct {
	store     *database.Store
	scheduler *Scheduler
	publisher *fakePublisher
	recorder  *fakeRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewTestStore(t)
	f := &fixture{store: store, publisher: &fakePublisher{}, recorder: newFakeRecorder()}
	f.scheduler = NewScheduler(store, config.Default().Schedule, WithPublisher(f.publisher), WithRecorder(f.recorder))
	return f
}

func at(day, hour, minute int) time.Time {
	return testutil.Monday().AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func machine(id uint, capacity, productionTime int) models.Machine {
	return models.Machine{
		Model:          gorm.Model{ID: id},
		Name:           "machine",
		TubCapacity:    capacity,
		ProductionTime: productionTime,
		Status:         models.MachineStatusAvailable,
	}
}

func block(id, machineID uint, start, end time.Time, status models.BlockStatus) models.ProductionBlock {
	return models.ProductionBlock{
		Model:     gorm.Model{ID: id},
		PlanID:    1,
		BlockType: models.BlockTypeCleaning,
		MachineID: machineID,
		StartTime: start,
		EndTime:   end,
		Status:    status,
	}
}
