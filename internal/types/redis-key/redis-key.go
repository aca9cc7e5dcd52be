package rediskey

import "strconv"

const prefix = "dcp"

// OuiKey OUI 目录缓存
func OuiKey(oui int64) string {
	return prefix + ":oui:" + strconv.FormatInt(oui, 10)
}

// OrderViewKey 订单查询投影缓存
func OrderViewKey(orderID string) string {
	return prefix + ":order:view:" + orderID
}

// OrderViewGenKey 订单投影版本号，每次状态写入自增
func OrderViewGenKey(orderID string) string {
	return prefix + ":order:view-gen:" + orderID
}

// OrderLockKey 订单处理租约
func OrderLockKey(orderID string) string {
	return prefix + ":order:lock:" + orderID
}
