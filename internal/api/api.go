package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"creamery/internal/apperr"
	"creamery/internal/config"
	"creamery/internal/database"
	"creamery/internal/logger"
	"creamery/internal/models"
	"creamery/internal/monitoring"
	"creamery/internal/realtime"
	"creamery/internal/scheduling"
)

// SchedulingAPI represents the HTTP surface of the production scheduler
type SchedulingAPI struct {
	Router    *gin.Engine
	Scheduler *scheduling.Scheduler
	Store     *database.Store
	Hub       *realtime.Hub
	Metrics   *monitoring.MetricsCollector

	log  *logger.Logger
	auth config.AuthConfig
}

// NewSchedulingAPI creates the router and registers every route. Hub and
// metrics are optional.
func NewSchedulingAPI(scheduler *scheduling.Scheduler, store *database.Store, hub *realtime.Hub,
	metrics *monitoring.MetricsCollector, auth config.AuthConfig, log *logger.Logger) *SchedulingAPI {
	if log == nil {
		log = logger.Nop()
	}
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(log), RequestLogger(log), Metrics(metrics))

	api := &SchedulingAPI{
		Router:    router,
		Scheduler: scheduler,
		Store:     store,
		Hub:       hub,
		Metrics:   metrics,
		log:       log.With("component", "api"),
		auth:      auth,
	}

	api.setupRoutes()
	return api
}

// setupRoutes configures all API endpoints
func (s *SchedulingAPI) setupRoutes() {
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.Router.Group("/api/v1", OwnerAuth(s.auth))
	{
		// Resources
		v1.GET("/machines", s.ListMachines)
		v1.GET("/machines/:id/production-time", s.CalculateProductionTime)
		v1.GET("/employees", s.ListEmployees)
		v1.GET("/recipes/:id/yields/:machineId", s.GetYield)

		// Plans
		v1.POST("/plans", s.CreatePlan)
		v1.GET("/plans/:id", s.GetPlan)
		v1.PUT("/plans/:id/status", s.UpdatePlanStatus)
		v1.POST("/plans/:id/generate", s.GenerateSchedule)

		// Scheduling
		v1.POST("/schedule/suggest", s.SuggestSchedule)
		v1.POST("/schedule/availability", s.CheckAvailability)
		v1.POST("/production-sets", s.CreateProductionSet)

		// Blocks
		v1.POST("/blocks", s.CreateBlock)
		v1.PUT("/blocks/:id", s.UpdateBlock)
		v1.PUT("/blocks/:id/status", s.TransitionBlock)
		v1.DELETE("/blocks/:id", s.DeleteBlock)
		v1.GET("/blocks/:id/revisions", s.ListRevisions)

		v1.GET("/stats", s.GetStats)
		v1.GET("/ws", s.Subscribe)
	}
}

func owner(c *gin.Context) string { return c.GetString(ctxOwner) }
func actor(c *gin.Context) string { return c.GetString(ctxActor) }

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondBadRequest(c, apperr.Validation("invalid %s %q", name, c.Param(name)))
		return 0, false
	}
	return uint(id), true
}

// Resource handlers

func (s *SchedulingAPI) ListMachines(c *gin.Context) {
	filter := database.MachineFilter{Status: models.MachineStatus(c.Query("status"))}
	machines, err := s.Store.ListMachines(c.Request.Context(), owner(c), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	views := make([]MachineView, 0, len(machines))
	for i := range machines {
		views = append(views, machineView(&machines[i]))
	}
	c.JSON(http.StatusOK, views)
}

func (s *SchedulingAPI) CalculateProductionTime(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	quantity, err := strconv.ParseFloat(c.Query("quantity"), 64)
	if err != nil {
		respondBadRequest(c, apperr.Validation("quantity must be a number"))
		return
	}
	durations, err := s.Scheduler.CalculateProductionTime(c.Request.Context(), owner(c), id, quantity)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, durations)
}

func (s *SchedulingAPI) ListEmployees(c *gin.Context) {
	filter := database.EmployeeFilter{ActiveOnly: c.Query("active") == "true"}
	if raw := c.Query("certifiedFor"); raw != "" {
		machineID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondBadRequest(c, apperr.Validation("invalid certifiedFor %q", raw))
			return
		}
		filter.CertifiedFor = uint(machineID)
	}
	employees, err := s.Store.ListEmployees(c.Request.Context(), owner(c), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	views := make([]EmployeeView, 0, len(employees))
	for i := range employees {
		views = append(views, employeeView(&employees[i]))
	}
	c.JSON(http.StatusOK, views)
}

func (s *SchedulingAPI) GetYield(c *gin.Context) {
	recipeID, ok := idParam(c, "id")
	if !ok {
		return
	}
	machineID, ok := idParam(c, "machineId")
	if !ok {
		return
	}
	yield, err := s.Scheduler.Yields().Lookup(c.Request.Context(), owner(c), recipeID, machineID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recipeId":     recipeID,
		"machineId":    machineID,
		"tubsPerBatch": yield.TubsPerBatch,
		"source":       yield.Source,
	})
}

// Plan handlers

type createPlanRequest struct {
	Name          string            `json:"name" binding:"required"`
	WeekStartDate time.Time         `json:"weekStartDate" binding:"required"`
	Status        models.PlanStatus `json:"status"`
	Notes         string            `json:"notes"`
}

func (s *SchedulingAPI) CreatePlan(c *gin.Context) {
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	plan := &models.ProductionPlan{
		OwnerID:       owner(c),
		Name:          req.Name,
		WeekStartDate: req.WeekStartDate,
		Status:        req.Status,
		Notes:         req.Notes,
	}
	if err := s.Store.CreatePlan(c.Request.Context(), plan); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, planView(plan, []models.ProductionBlock{}))
}

func (s *SchedulingAPI) GetPlan(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	plan, err := s.Store.GetPlan(ctx, owner(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	blocks, err := s.Store.ListPlanBlocks(ctx, owner(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, planView(plan, blocks))
}

type planStatusRequest struct {
	Status models.PlanStatus `json:"status" binding:"required"`
}

func (s *SchedulingAPI) UpdatePlanStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req planStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	plan, err := s.Store.UpdatePlanStatus(c.Request.Context(), owner(c), id, req.Status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, planView(plan, nil))
}

func (s *SchedulingAPI) GenerateSchedule(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	opts := s.Scheduler.DefaultGenerateOptions()
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&opts); err != nil {
			respondBadRequest(c, err)
			return
		}
	}

	result, err := s.Scheduler.Generate(c.Request.Context(), owner(c), actor(c), id, opts)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if s.Metrics != nil {
		s.Metrics.Monitor().RecordGeneration(owner(c), id, len(result.CreatedBlocks), len(result.UnscheduledRecipes))
	}
	c.JSON(http.StatusOK, generateView(result))
}

// Scheduling handlers

func (s *SchedulingAPI) SuggestSchedule(c *gin.Context) {
	var req scheduling.SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	suggestion, err := s.Scheduler.SuggestSchedule(c.Request.Context(), owner(c), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestionView(suggestion))
}

type availabilityRequest struct {
	MachineID      uint      `json:"machineId"`
	EmployeeID     uint      `json:"employeeId"`
	StartTime      time.Time `json:"startTime" binding:"required"`
	EndTime        time.Time `json:"endTime" binding:"required"`
	ExcludeBlockID uint      `json:"excludeBlockId"`
}

func (s *SchedulingAPI) CheckAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	report, err := s.Scheduler.Conflicts(c.Request.Context(), owner(c),
		req.MachineID, req.EmployeeID, req.StartTime, req.EndTime, req.ExcludeBlockID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"available": !report.HasConflict,
		"conflicts": report,
	})
}

func (s *SchedulingAPI) CreateProductionSet(c *gin.Context) {
	var req scheduling.ProductionSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	set, err := s.Scheduler.CreateProductionSet(c.Request.Context(), owner(c), actor(c), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, blockSetView(set))
}

// Block handlers

func (s *SchedulingAPI) CreateBlock(c *gin.Context) {
	var req scheduling.BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	block, err := s.Scheduler.CreateBlock(c.Request.Context(), owner(c), actor(c), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, blockView(block))
}

func (s *SchedulingAPI) UpdateBlock(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var update scheduling.BlockUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondBadRequest(c, err)
		return
	}
	block, err := s.Scheduler.UpdateBlock(c.Request.Context(), owner(c), actor(c), id, update)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, blockView(block))
}

type blockStatusRequest struct {
	Status models.BlockStatus `json:"status" binding:"required"`
}

func (s *SchedulingAPI) TransitionBlock(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req blockStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	block, err := s.Scheduler.TransitionBlock(c.Request.Context(), owner(c), actor(c), id, req.Status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, blockView(block))
}

func (s *SchedulingAPI) DeleteBlock(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := s.Scheduler.DeleteBlock(c.Request.Context(), owner(c), actor(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *SchedulingAPI) ListRevisions(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := s.Store.GetBlock(ctx, owner(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	revisions, err := s.Store.ListRevisions(ctx, owner(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, revisionViews(revisions))
}

// Live updates and stats

func (s *SchedulingAPI) GetStats(c *gin.Context) {
	stats := gin.H{}
	if s.Metrics != nil {
		stats["metrics"] = s.Metrics.Monitor().GetMetrics()
	}
	if s.Hub != nil {
		stats["subscribers"] = s.Hub.ClientCount()
	}
	c.JSON(http.StatusOK, stats)
}

func (s *SchedulingAPI) Subscribe(c *gin.Context) {
	if s.Hub == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorEnvelope{Error: APIError{Message: "live updates are disabled"}})
		return
	}
	s.Hub.Serve(c, owner(c))
}
