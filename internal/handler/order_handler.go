package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"dc-purchase-api/internal/constant"
	"dc-purchase-api/internal/dto"
	"dc-purchase-api/internal/service"
	"dc-purchase-api/internal/utils"
)

type OrderHandler struct{ svc *service.OrderService }

func NewOrderHandler(svc *service.OrderService) *OrderHandler { return &OrderHandler{svc: svc} }

// Create 下单并返回收银台地址
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, constant.CodeInvalidParams, err.Error())
		return
	}
	usd, err := decimal.NewFromString(req.Usd.String())
	if err != nil {
		utils.Fail(c, constant.CodeOrderAmountInvalid, "")
		return
	}
	resp, err := h.svc.CreateOrder(c.Request.Context(), service.CreateOrderInput{
		Oui:      req.Oui,
		Usd:      usd,
		Email:    req.Email,
		ClientIP: utils.GetClientIP(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	utils.OK(c, resp)
}

func (h *OrderHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		utils.Fail(c, constant.CodeOrderNotFound, "")
		return
	}
	view, err := h.svc.GetOrderView(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	utils.OK(c, view)
}
