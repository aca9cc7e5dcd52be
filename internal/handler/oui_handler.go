package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"dc-purchase-api/internal/constant"
	"dc-purchase-api/internal/service"
	"dc-purchase-api/internal/utils"
)

type OuiHandler struct{ svc *service.OrderService }

func NewOuiHandler(svc *service.OrderService) *OuiHandler { return &OuiHandler{svc: svc} }

// Resolve 查询 OUI 的 payer、托管账户与当前 DC 余额
func (h *OuiHandler) Resolve(c *gin.Context) {
	oui, err := strconv.ParseInt(c.Param("oui"), 10, 64)
	if err != nil || oui <= 0 {
		utils.Fail(c, constant.CodeBeneficiaryInvalid, "")
		return
	}
	resp, err := h.svc.ResolveBeneficiary(c.Request.Context(), oui)
	if err != nil {
		writeError(c, err)
		return
	}
	utils.OK(c, resp)
}
