package delivery

import (
	"net/http"

	"pmchat-backend/internal/project/usecase"
	"pmchat-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// RiskHandler serves the risk register
type RiskHandler struct {
	riskUsecase usecase.RiskUsecase
}

func NewRiskHandler(riskUsecase usecase.RiskUsecase) *RiskHandler {
	return &RiskHandler{riskUsecase: riskUsecase}
}

func (h *RiskHandler) RegisterRoutes(rg gin.IRoutes) {
	rg.GET("/risks", h.ListRisks)
	rg.POST("/risks", h.CreateRisk)
	rg.GET("/risks/:id", h.GetRisk)
	rg.PATCH("/risks/:id", h.UpdateRisk)
	rg.DELETE("/risks/:id", h.DeleteRisk)
}

// GET /risks?projectId=
func (h *RiskHandler) ListRisks(c *gin.Context) {
	risks, err := h.riskUsecase.ListRisks(c.Request.Context(), c.Query("projectId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, risks)
}

func (h *RiskHandler) CreateRisk(c *gin.Context) {
	var req usecase.CreateRiskRequest
	if err := response.BindStrict(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	risk, err := h.riskUsecase.CreateRisk(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, risk)
}

func (h *RiskHandler) GetRisk(c *gin.Context) {
	risk, err := h.riskUsecase.GetRisk(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, risk)
}

func (h *RiskHandler) UpdateRisk(c *gin.Context) {
	var req usecase.RiskUpdateRequest
	if err := response.BindStrict(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	risk, err := h.riskUsecase.UpdateRisk(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, risk)
}

func (h *RiskHandler) DeleteRisk(c *gin.Context) {
	if err := h.riskUsecase.DeleteRisk(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
