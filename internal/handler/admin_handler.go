package handler

import (
	"github.com/gin-gonic/gin"

	"dc-purchase-api/internal/dto"
	"dc-purchase-api/internal/service"
	"dc-purchase-api/internal/utils"
)

type AdminHandler struct {
	orders *service.OrderService
	proc   *service.Processor
}

func NewAdminHandler(orders *service.OrderService, proc *service.Processor) *AdminHandler {
	return &AdminHandler{orders: orders, proc: proc}
}

// Resume 清除错误并同步驱动订单，返回驱动结束时的状态
func (h *AdminHandler) Resume(c *gin.Context) {
	o, err := h.proc.Resume(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	utils.OK(c, dto.ResumeOrderResp{OrderID: o.ID, Status: string(o.Status)})
}

// Events 订单审计事件
func (h *AdminHandler) Events(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.orders.GetOrder(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	events, err := h.orders.ListEvents(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	utils.OK(c, service.ToEventViews(events))
}
