package controllers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"mathboard/backend/config"
	"mathboard/backend/gamification"
	"mathboard/backend/models"
	"mathboard/backend/routes"
	"mathboard/backend/services"
	"mathboard/backend/store"
	"mathboard/backend/store/mock"
	"mathboard/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:         "testsecret",
		DefaultLanguage:   "en",
		LocalizedLanguage: "ru",
	}
}

func setupApp(t *testing.T, st store.ProgressStore) (*fiber.App, *config.Config) {
	t.Helper()
	cfg := testConfig()

	levels, err := gamification.LoadLevelTable("")
	require.NoError(t, err)

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, loc)

	svc, err := services.NewProgressService(st, levels, gamification.CalendarIn(loc), services.Options{
		Clock:     gamification.ClockFunc(func() time.Time { return now }),
		CacheSize: 16,
	})
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: utils.ErrorHandler})
	require.NoError(t, routes.SetupRoutes(app, svc, cfg, nil))
	return app, cfg
}

func bearer(t *testing.T, cfg *config.Config, userID string) string {
	t.Helper()
	token, err := utils.GenerateJWTToken(userID, cfg)
	require.NoError(t, err)
	return "Bearer " + token
}

func do(t *testing.T, app *fiber.App, method, path, auth string, body []byte, headers ...string) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestHealth(t *testing.T) {
	app, _ := setupApp(t, store.NewMemoryStore())

	status, env := do(t, app, "GET", "/api/health", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"status":"ok","today":"2024-03-10"}`, string(env.Data))
}

func TestProgressRequiresAuth(t *testing.T) {
	app, cfg := setupApp(t, store.NewMemoryStore())

	other := *cfg
	other.JWTSecret = "someone-else"

	tests := []struct {
		name string
		auth string
	}{
		{"missing", ""},
		{"garbage", "Bearer not-a-jwt"},
		{"wrong secret", bearer(t, &other, "u1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, app, "GET", "/api/progress", tt.auth, nil)
			assert.Equal(t, fiber.StatusUnauthorized, status)
			assert.False(t, env.Success)
		})
	}
}

func TestGetProgressNewUser(t *testing.T) {
	app, cfg := setupApp(t, store.NewMemoryStore())

	status, env := do(t, app, "GET", "/api/progress", bearer(t, cfg, "u1"), nil)
	require.Equal(t, fiber.StatusOK, status)

	var summary services.ProfileSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, "u1", summary.UserID)
	assert.Equal(t, int64(0), summary.TotalXP)
	assert.Equal(t, 0, summary.ActiveStreak)
	assert.Equal(t, 1, summary.Level.CurrentLevel)
	assert.Equal(t, int64(100), summary.Level.XPToNextLevel)
	assert.Equal(t, gamification.DateKey("2024-03-10"), summary.Today)
}

func TestRecordCompletion(t *testing.T) {
	app, cfg := setupApp(t, store.NewMemoryStore())
	auth := bearer(t, cfg, "u1")

	status, env := do(t, app, "POST", "/api/progress/completions", auth, []byte(`{"xp":120}`))
	require.Equal(t, fiber.StatusCreated, status)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &raw))
	assert.Equal(t, "started", raw["streakChange"])
	assert.Equal(t, true, raw["leveledUp"])
	assert.Equal(t, float64(120), raw["xpAwarded"])
	assert.Equal(t, float64(120), raw["totalXp"])
	assert.Equal(t, "2024-03-10", raw["lastActiveDate"])

	status, env = do(t, app, "GET", "/api/progress", auth, nil)
	require.Equal(t, fiber.StatusOK, status)
	var summary services.ProfileSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, int64(120), summary.TotalXP)
	assert.Equal(t, 1, summary.CurrentStreak)
	assert.Equal(t, 2, summary.Level.CurrentLevel)
}

func TestRecordCompletionRejectsBadInput(t *testing.T) {
	app, cfg := setupApp(t, store.NewMemoryStore())
	auth := bearer(t, cfg, "u1")

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"negative xp", `{"xp":-5}`, fiber.StatusUnprocessableEntity},
		{"xp over cap", `{"xp":100001}`, fiber.StatusUnprocessableEntity},
		{"xp near int64 max", `{"xp":9223372036854775807}`, fiber.StatusUnprocessableEntity},
		{"missing xp", `{}`, fiber.StatusUnprocessableEntity},
		{"malformed json", `{"xp":`, fiber.StatusBadRequest},
		{"xp not a number", `{"xp":"ten"}`, fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, app, "POST", "/api/progress/completions", auth, []byte(tt.body))
			assert.Equal(t, tt.status, status)
			assert.False(t, env.Success)
		})
	}

	status, env := do(t, app, "POST", "/api/progress/completions", auth, []byte(`{"xp":-5}`))
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, env.Details, "xp")
}

func TestRecordCompletionAtCapKeepsTotal(t *testing.T) {
	app, cfg := setupApp(t, store.NewMemoryStore())
	auth := bearer(t, cfg, "u1")

	for i := 0; i < 2; i++ {
		status, _ := do(t, app, "POST", "/api/progress/completions", auth, []byte(`{"xp":100000}`))
		require.Equal(t, fiber.StatusCreated, status)
	}
	status, _ := do(t, app, "POST", "/api/progress/completions", auth, []byte(`{"xp":9223372036854775807}`))
	require.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, env := do(t, app, "GET", "/api/progress", auth, nil)
	require.Equal(t, fiber.StatusOK, status)
	var summary services.ProfileSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, int64(200000), summary.TotalXP)
	assert.True(t, summary.Level.MaxLevel)
}

func TestRecordCompletionConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mock.NewMockProgressStore(ctrl)
	st.EXPECT().
		Update(gomock.Any(), "u1", gomock.Any()).
		Return(models.UserProgress{}, store.ErrConflict)

	app, cfg := setupApp(t, st)
	status, env := do(t, app, "POST", "/api/progress/completions", bearer(t, cfg, "u1"), []byte(`{"xp":10}`))
	assert.Equal(t, fiber.StatusConflict, status)
	assert.False(t, env.Success)
}

func TestLegacyUserIDClaim(t *testing.T) {
	app, cfg := setupApp(t, store.NewMemoryStore())

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)

	status, env := do(t, app, "GET", "/api/progress", "Bearer "+signed, nil)
	require.Equal(t, fiber.StatusOK, status)

	var summary services.ProfileSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, "42", summary.UserID)
}

func TestListLevelsLanguage(t *testing.T) {
	app, cfg := setupApp(t, store.NewMemoryStore())
	auth := bearer(t, cfg, "u1")

	tests := []struct {
		name     string
		query    string
		header   string
		language string
		first    string
	}{
		{"no header", "", "", "en", "Counter"},
		{"english", "", "en-US,en;q=0.9", "en", "Counter"},
		{"russian", "", "ru-RU,ru;q=0.9,en;q=0.5", "ru", "Счётовод"},
		{"unsupported", "", "fr-FR", "en", "Counter"},
		{"malformed", "", ";;;", "en", "Counter"},
		{"query wins", "?lang=ru", "en-US", "ru", "Счётовод"},
		{"bad query falls back", "?lang=%21%21", "ru", "ru", "Счётовод"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, app, "GET", "/api/levels"+tt.query, auth, nil, "Accept-Language", tt.header)
			require.Equal(t, fiber.StatusOK, status)

			var got struct {
				Language string `json:"language"`
				Levels   []struct {
					Level      int    `json:"level"`
					Title      string `json:"title"`
					XPRequired int64  `json:"xpRequired"`
				} `json:"levels"`
			}
			require.NoError(t, json.Unmarshal(env.Data, &got))
			assert.Equal(t, tt.language, got.Language)
			require.Len(t, got.Levels, 10)
			assert.Equal(t, tt.first, got.Levels[0].Title)
			assert.Equal(t, int64(0), got.Levels[0].XPRequired)
		})
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	app, _ := setupApp(t, store.NewMemoryStore())

	status, env := do(t, app, "GET", "/api/nope", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.False(t, env.Success)
	assert.Equal(t, "Not Found", env.Error)
}
