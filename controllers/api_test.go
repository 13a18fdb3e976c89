// file: controllers/api_test.go
package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"CASCTF/database"
	"CASCTF/models"
	"CASCTF/routes"
	"CASCTF/services"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupAPI 用独立的 SQLite 库替换全局 DB 并构建完整路由；
// Redis 不启动，走 RDB == nil 的降级路径
func setupAPI(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := filepath.Join(t.TempDir(), "casctf_api_test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Challenge{},
		&models.ChallengeSolve{},
		&models.ChallengeInstance{},
		&models.ChallengeFile{},
		&models.AppConfig{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	database.DB = db
	database.RDB = nil
	return routes.SetupRouter()
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not json: %v (%s)", err, w.Body.String())
	}
	return body
}

func signupAndLogin(t *testing.T, r *gin.Engine, username string) string {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/api/auth/signup", "", gin.H{
		"username": username, "password": "password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup failed with %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": username, "password": "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login failed with %d: %s", w.Code, w.Body.String())
	}
	data := decodeBody(t, w)["data"].(map[string]interface{})
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatal("login response has no token")
	}
	return token
}

// openCTFWindow 把比赛窗口设为当前时间前后各一小时
func openCTFWindow(t *testing.T) {
	t.Helper()
	cfg, err := services.GetOrCreateAppConfig(database.DB)
	if err != nil {
		t.Fatal(err)
	}
	start, end := services.NowTS()-3600, services.NowTS()+3600
	cfg.DurationStartTS = &start
	cfg.DurationEndTS = &end
	if err := database.DB.Save(cfg).Error; err != nil {
		t.Fatal(err)
	}
}

func TestSignupValidation(t *testing.T) {
	r := setupAPI(t)

	w := doJSON(t, r, http.MethodPost, "/api/auth/signup", "", gin.H{
		"username": "short", "password": "1234567",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("7-char password should fail validation, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/auth/signup", "", gin.H{
		"username": "player1", "password": "password123",
	})
	if w.Code != http.StatusCreated {
		t.Errorf("signup = %d, want 201", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/auth/signup", "", gin.H{
		"username": "player1", "password": "differentpass",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("duplicate username should fail, got %d", w.Code)
	}
}

func TestLoginAndMe(t *testing.T) {
	r := setupAPI(t)
	token := signupAndLogin(t, r, "player1")

	w := doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "player1", "password": "wrongpassword",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password login = %d, want 401", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/auth/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me = %d: %s", w.Code, w.Body.String())
	}
	data := decodeBody(t, w)["data"].(map[string]interface{})
	if data["username"] != "player1" || data["role"] != "player" {
		t.Errorf("unexpected me payload: %v", data)
	}

	w = doJSON(t, r, http.MethodGet, "/api/auth/me", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("me without token = %d, want 401", w.Code)
	}
}

func TestAdminRoutesRejectPlayers(t *testing.T) {
	r := setupAPI(t)
	token := signupAndLogin(t, r, "player1")

	w := doJSON(t, r, http.MethodGet, "/api/challenges/admin", token, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("player on admin route = %d, want 403", w.Code)
	}
	w = doJSON(t, r, http.MethodPost, "/api/challenges", token, gin.H{"name": "x"})
	if w.Code != http.StatusForbidden {
		t.Errorf("player creating challenge = %d, want 403", w.Code)
	}
}

func TestPublicConfig(t *testing.T) {
	r := setupAPI(t)

	w := doJSON(t, r, http.MethodGet, "/api/config/public", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("public config = %d", w.Code)
	}
	data := decodeBody(t, w)["data"].(map[string]interface{})
	if data["ctf_name"] != "CASCTF" {
		t.Errorf("ctf_name = %v, want CASCTF", data["ctf_name"])
	}
	if data["is_active"] != false {
		t.Errorf("fresh config should not be active: %v", data)
	}
}

func TestSubmitFlagEndpoint(t *testing.T) {
	r := setupAPI(t)
	token := signupAndLogin(t, r, "player1")

	challenge := models.Challenge{
		Name: "web-1", Category: "web", Message: "m", Point: 100,
		ScoreType: models.ScoreTypeBasic, State: models.ChallengeStateVisible,
		Flag: "CASCTF{test}",
	}
	if err := database.DB.Create(&challenge).Error; err != nil {
		t.Fatal(err)
	}
	path := fmt.Sprintf("/api/challenges/%d/submit-flag", challenge.ID)

	// 比赛未开始时不接受提交
	w := doJSON(t, r, http.MethodPost, path, token, gin.H{"flag": "CASCTF{test}"})
	if w.Code != http.StatusForbidden {
		t.Errorf("submit outside window = %d, want 403", w.Code)
	}

	openCTFWindow(t)

	w = doJSON(t, r, http.MethodPost, path, token, gin.H{"flag": "CASCTF{test}"})
	if w.Code != http.StatusOK {
		t.Fatalf("submit = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["success"] != true || body["awarded_point"] != float64(100) {
		t.Errorf("unexpected submit result: %v", body)
	}

	w = doJSON(t, r, http.MethodPost, path, token, gin.H{"flag": "CASCTF{test}"})
	body = decodeBody(t, w)
	if body["success"] != true || body["message"] != "Already solved." || body["awarded_point"] != float64(0) {
		t.Errorf("duplicate submit should be idempotent: %v", body)
	}
}

func TestServerAccessExpiry(t *testing.T) {
	r := setupAPI(t)
	token := signupAndLogin(t, r, "player1")

	challenge := models.Challenge{
		Name: "docker-1", Category: "pwn", Message: "m", Point: 100,
		ScoreType: models.ScoreTypeBasic, State: models.ChallengeStateVisible,
		Flag: "CASCTF{d}", DockerEnabled: true,
	}
	if err := database.DB.Create(&challenge).Error; err != nil {
		t.Fatal(err)
	}

	var user models.User
	if err := database.DB.Where("username = ?", "player1").First(&user).Error; err != nil {
		t.Fatal(err)
	}

	now := services.NowTS()
	instance := models.ChallengeInstance{
		UserID: user.ID, ChallengeID: challenge.ID, DockerProjectName: "expired-api-p",
		RuntimeComposePath: filepath.Join(t.TempDir(), "gone.yml"), ServiceName: "web",
		HostPort: 40050, ContainerPort: 80, CreatedTS: now - 7200, ExpiresTS: now - 1,
	}
	if err := database.DB.Create(&instance).Error; err != nil {
		t.Fatal(err)
	}

	path := fmt.Sprintf("/api/challenges/%d/server/access", challenge.ID)
	w := doJSON(t, r, http.MethodGet, path, token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expired instance should be invisible, got %d: %s", w.Code, w.Body.String())
	}

	// 查询本身要触发过期实例的拆除
	var count int64
	database.DB.Model(&models.ChallengeInstance{}).Count(&count)
	if count != 0 {
		t.Errorf("expired instance should be torn down by the read, %d rows remain", count)
	}

	// 主动停止没有实例时也保持幂等 204
	stopPath := fmt.Sprintf("/api/challenges/%d/server/stop", challenge.ID)
	if w := doJSON(t, r, http.MethodPost, stopPath, token, nil); w.Code != http.StatusNoContent {
		t.Errorf("stop without instance = %d, want 204", w.Code)
	}
}

func TestScoreboardEndpoint(t *testing.T) {
	r := setupAPI(t)
	openCTFWindow(t)
	token := signupAndLogin(t, r, "player1")

	challenge := models.Challenge{
		Name: "board-1", Category: "misc", Message: "m", Point: 100,
		ScoreType: models.ScoreTypeBasic, State: models.ChallengeStateVisible,
		Flag: "CASCTF{board}",
	}
	if err := database.DB.Create(&challenge).Error; err != nil {
		t.Fatal(err)
	}
	path := fmt.Sprintf("/api/challenges/%d/submit-flag", challenge.ID)
	if w := doJSON(t, r, http.MethodPost, path, token, gin.H{"flag": "CASCTF{board}"}); w.Code != http.StatusOK {
		t.Fatalf("submit failed: %s", w.Body.String())
	}

	w := doJSON(t, r, http.MethodGet, "/api/scoreboard", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("scoreboard = %d", w.Code)
	}
	data, ok := decodeBody(t, w)["data"].([]interface{})
	if !ok || len(data) != 1 {
		t.Fatalf("expected 1 scoreboard row, got %v", data)
	}
	row := data[0].(map[string]interface{})
	if row["username"] != "player1" || row["score"] != float64(100) || row["rank"] != float64(1) {
		t.Errorf("unexpected scoreboard row: %v", row)
	}
}
