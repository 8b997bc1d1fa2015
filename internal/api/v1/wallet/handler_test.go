package wallet

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"degentalk-backend/config"
	"degentalk-backend/internal/database"
	"degentalk-backend/internal/models"
	"degentalk-backend/internal/services"
	"degentalk-backend/internal/utils"
	"degentalk-backend/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupWalletTest(t *testing.T) (*gin.Engine, *miniredis.Miniredis) {
	os.Setenv("JWT_SECRET", "test_secret")
	gin.SetMode(gin.TestMode)
	logger.Log = zap.NewNop()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	db.Migrator().DropTable(
		&models.User{}, &models.Wallet{}, &models.Transaction{},
		&models.RateUsageRecord{}, &models.FeatureGate{},
	)
	db.AutoMigrate(
		&models.User{}, &models.Wallet{}, &models.Transaction{},
		&models.RateUsageRecord{}, &models.FeatureGate{},
	)
	database.DB = db

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	database.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})

	services.SeedFeatureGates()
	evaluator, _ := services.LoadGateEvaluator()

	cfg := config.LoadEconomyConfig()
	econ := services.NewEconomyService(
		cfg,
		services.NewLedgerService("test_secret", cfg.SettleRetries),
		services.NewRateGuard(cfg),
		evaluator,
		nil,
		services.NoopXPReporter{},
		services.AlwaysEligible{},
	)

	router := gin.New()
	v1 := router.Group("/api/v1")
	RegisterRoutes(v1, econ)

	return router, mr
}

func tokenFor(userID uint, role string) string {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tString, _ := token.SignedString([]byte("test_secret"))
	return tString
}

func seedWalletUser(username, role string, balance int64) *models.User {
	user := models.User{Username: username, Password: "x", Role: role, Level: 5, IsActive: true, Version: 1}
	database.DB.Create(&user)
	database.DB.Create(&models.Wallet{
		UserID: user.ID, Balance: balance,
		Status: models.WalletStatusActive, Version: 1,
	})
	return &user
}

func TestGetOwnWallet(t *testing.T) {
	router, mr := setupWalletTest(t)
	defer mr.Close()

	user := seedWalletUser("owner", "user", 1500)

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(user.ID, "user"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp utils.Response
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	data := resp.Data.(map[string]interface{})
	owner := data["owner"].(map[string]interface{})
	assert.Equal(t, float64(1500), owner["balance"])
	assert.Equal(t, "active", owner["status"])
	assert.NotNil(t, owner["allowances"])
	_, hasAdmin := data["admin"]
	assert.False(t, hasAdmin)
}

func TestGetUserWalletAnonymous(t *testing.T) {
	router, mr := setupWalletTest(t)
	defer mr.Close()

	user := seedWalletUser("public_profile", "user", 1500)

	req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/users/%d/wallet", user.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp utils.Response
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(user.ID), data["user_id"])
	_, hasOwner := data["owner"]
	assert.False(t, hasOwner)
	assert.NotContains(t, w.Body.String(), "1500")
}

func TestGetUserWalletAsAdmin(t *testing.T) {
	router, mr := setupWalletTest(t)
	defer mr.Close()

	user := seedWalletUser("inspected", "user", 1500)
	admin := seedWalletUser("overseer", "admin", 0)

	req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/users/%d/wallet", user.ID), nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(admin.ID, "admin"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp utils.Response
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	data := resp.Data.(map[string]interface{})
	owner := data["owner"].(map[string]interface{})
	assert.Equal(t, float64(1500), owner["balance"])
	adminView := data["admin"].(map[string]interface{})
	assert.NotNil(t, adminView["wallet_id"])
}

func TestWalletRequiresAuth(t *testing.T) {
	router, mr := setupWalletTest(t)
	defer mr.Close()

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
