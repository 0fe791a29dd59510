package delivery

import (
	"net/http"

	"pmchat-backend/internal/project/usecase"
	"pmchat-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type EmployeeHandler struct {
	employeeUsecase usecase.EmployeeUsecase
}

func NewEmployeeHandler(employeeUsecase usecase.EmployeeUsecase) *EmployeeHandler {
	return &EmployeeHandler{employeeUsecase: employeeUsecase}
}

func (h *EmployeeHandler) RegisterRoutes(rg gin.IRoutes) {
	rg.GET("/employees", h.ListEmployees)
	rg.POST("/employees", h.CreateEmployee)
	rg.GET("/employees/:id", h.GetEmployee)
	rg.PATCH("/employees/:id", h.UpdateEmployee)
	rg.DELETE("/employees/:id", h.DeleteEmployee)
}

func (h *EmployeeHandler) ListEmployees(c *gin.Context) {
	employees, err := h.employeeUsecase.ListEmployees(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, employees)
}

func (h *EmployeeHandler) CreateEmployee(c *gin.Context) {
	var req usecase.CreateEmployeeRequest
	if err := response.BindStrict(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	employee, err := h.employeeUsecase.CreateEmployee(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, employee)
}

func (h *EmployeeHandler) GetEmployee(c *gin.Context) {
	employee, err := h.employeeUsecase.GetEmployee(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, employee)
}

func (h *EmployeeHandler) UpdateEmployee(c *gin.Context) {
	var req usecase.EmployeeUpdateRequest
	if err := response.BindStrict(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	employee, err := h.employeeUsecase.UpdateEmployee(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, employee)
}

func (h *EmployeeHandler) DeleteEmployee(c *gin.Context) {
	if err := h.employeeUsecase.DeleteEmployee(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
