package wallet

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/wallets", ListWallets)
	router.POST("/wallets/:id/freeze", FreezeWallet)
	router.POST("/wallets/:id/unfreeze", UnfreezeWallet)
}
