package delivery

import (
	"net/http"

	"pmchat-backend/internal/project/usecase"
	"pmchat-backend/pkg/apperror"
	"pmchat-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// ProjectHandler handles project and stage HTTP requests
type ProjectHandler struct {
	projectUsecase usecase.ProjectUsecase
}

func NewProjectHandler(projectUsecase usecase.ProjectUsecase) *ProjectHandler {
	return &ProjectHandler{projectUsecase: projectUsecase}
}

// RegisterRoutes mounts the project and stage routes on rg
func (h *ProjectHandler) RegisterRoutes(rg gin.IRoutes) {
	rg.GET("/projects", h.ListProjects)
	rg.POST("/projects", h.CreateProject)
	rg.GET("/projects/:id", h.GetProject)
	rg.PATCH("/projects/:id", h.UpdateProject)
	rg.DELETE("/projects/:id", h.DeleteProject)
	rg.POST("/projects/:id/progress", h.RecomputeProgress)

	rg.GET("/projects/:id/stages", h.ListStages)
	rg.POST("/projects/:id/stages", h.AddStage)
	rg.PATCH("/projects/:id/stages/:stageId", h.UpdateStage)
	rg.DELETE("/projects/:id/stages/:stageId", h.DeleteStage)
	rg.GET("/stages", h.ListStagesByQuery)
}

// GET /projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	projects, err := h.projectUsecase.ListProjects(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// POST /projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req usecase.CreateProjectRequest
	if err := response.BindStrict(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	project, err := h.projectUsecase.CreateProject(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// GET /projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.projectUsecase.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// PATCH /projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	var req usecase.ProjectUpdateRequest
	if err := response.BindStrict(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	project, err := h.projectUsecase.UpdateProject(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// DELETE /projects/:id
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	if err := h.projectUsecase.DeleteProject(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// POST /projects/:id/progress
func (h *ProjectHandler) RecomputeProgress(c *gin.Context) {
	project, err := h.projectUsecase.RecomputeProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// GET /projects/:id/stages
func (h *ProjectHandler) ListStages(c *gin.Context) {
	h.listStages(c, c.Param("id"))
}

// GET /stages?projectId=
func (h *ProjectHandler) ListStagesByQuery(c *gin.Context) {
	projectID := c.Query("projectId")
	if projectID == "" {
		response.Error(c, apperror.Validation("stage.List", "projectId is required"))
		return
	}
	h.listStages(c, projectID)
}

func (h *ProjectHandler) listStages(c *gin.Context, projectID string) {
	stages, err := h.projectUsecase.ListStages(c.Request.Context(), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, stages)
}

// POST /projects/:id/stages
func (h *ProjectHandler) AddStage(c *gin.Context) {
	var req usecase.StageRequest
	if err := response.BindStrict(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	stage, err := h.projectUsecase.AddStage(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, stage)
}

// PATCH /projects/:id/stages/:stageId
func (h *ProjectHandler) UpdateStage(c *gin.Context) {
	var req usecase.StageUpdateRequest
	if err := response.BindStrict(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	stage, err := h.projectUsecase.UpdateStage(c.Request.Context(), c.Param("id"), c.Param("stageId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, stage)
}

// DELETE /projects/:id/stages/:stageId
func (h *ProjectHandler) DeleteStage(c *gin.Context) {
	if err := h.projectUsecase.DeleteStage(c.Request.Context(), c.Param("id"), c.Param("stageId")); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
