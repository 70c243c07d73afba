package api

import (
	"net/http"

	"github.com/Domenick1991/airport/internal/service/luggage"
	"github.com/gin-gonic/gin"
)

type LuggageHandler struct {
	service luggage.LuggageUseCase
}

type lostResponse struct {
	TrackingID string `json:"tracking_id"`
	Found      bool   `json:"found"`
}

type withdrawableResponse struct {
	FlightID string `json:"flight_id"`
	Moved    int64  `json:"moved"`
}

func NewLuggageHandler(service luggage.LuggageUseCase) *LuggageHandler {
	return &LuggageHandler{service: service}
}

func (h *LuggageHandler) Register(router *gin.RouterGroup) {
	router.GET("/luggage/lost", h.lostReport)
	router.POST("/luggage/lost/:tracking", h.reportLost)
	router.POST("/luggage/:tracking/load", h.load)
	router.POST("/flights/:id/luggage/withdrawable", h.withdrawable)
}

// reportLost answers 200 with found=false for an unknown tag.
func (h *LuggageHandler) reportLost(c *gin.Context) {
	tracking := c.Param("tracking")
	found, err := h.service.ReportLuggageLost(c.Request.Context(), tracking)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lostResponse{TrackingID: tracking, Found: found})
}

func (h *LuggageHandler) lostReport(c *gin.Context) {
	report, err := h.service.LostLuggageReport(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *LuggageHandler) load(c *gin.Context) {
	bag, err := h.service.LoadLuggage(c.Request.Context(), c.Param("tracking"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bag)
}

func (h *LuggageHandler) withdrawable(c *gin.Context) {
	id := c.Param("id")
	moved, err := h.service.MarkWithdrawable(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, withdrawableResponse{FlightID: id, Moved: moved})
}
