package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gevengood/red-esperanza-backend/internal/auth"
	"github.com/gevengood/red-esperanza-backend/internal/repository"
	"github.com/gevengood/red-esperanza-backend/internal/service"
	"github.com/gevengood/red-esperanza-backend/internal/store"
)

type testAPI struct {
	handler http.Handler
	auth    service.AuthService
}

func newTestAPI(t *testing.T, rateLimit int) *testAPI {
	t.Helper()
	logger := zap.NewNop()
	st := repository.NewMemoryStore()
	kv := store.NewMemoryKV()
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	tokens := auth.NewTokenService("test-secret", time.Hour)

	authSvc := service.NewAuthService(st, tokens, hasher, auth.NewRevocations(kv), logger)
	caseSvc := service.NewCaseService(st, st, nil, 1<<20, logger)
	clueSvc := service.NewClueService(st, st, logger)
	userSvc := service.NewUserService(st, st, st, hasher, logger)

	base := NewBaseHandler(authSvc, logger, 1<<20, false)
	router := NewRouter(logger)
	router.RegisterAuthRoutes(NewAuthHandler(base, authSvc))
	router.RegisterCaseRoutes(NewCaseHandler(base, caseSvc))
	router.RegisterClueRoutes(NewClueHandler(base, clueSvc))
	router.RegisterUserRoutes(NewUserHandler(base, userSvc))
	router.RegisterSystemRoutes(NewSystemHandler(base, "test", "v1"))

	h := Chain(router,
		Recover(logger, false),
		CORS("http://localhost:3000"),
		RateLimit(kv, time.Minute, rateLimit, logger),
	)
	return &testAPI{handler: h, auth: authSvc}
}

type apiResponse struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Error      string          `json:"error"`
	Pagination *struct {
		Pagina int `json:"pagina"`
		Limite int `json:"limite"`
		Total  int `json:"total"`
	} `json:"pagination"`
	Path string `json:"path"`
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var res apiResponse
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	}
	return rec, res
}

func (a *testAPI) register(t *testing.T, nombre, correo string) (token, userID string) {
	t.Helper()
	rec, res := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"nombre": nombre, "correo": correo, "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var data struct {
		Token   string `json:"token"`
		Usuario struct {
			ID string `json:"id_usuario"`
		} `json:"usuario"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &data))
	return data.Token, data.Usuario.ID
}

func (a *testAPI) adminToken(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, a.auth.SeedAdmin(ctx, "Admin", "admin@x.com", "adminpw"))
	resp, err := a.auth.Login(ctx, service.LoginRequest{Correo: "admin@x.com", Password: "adminpw"})
	require.NoError(t, err)
	return resp.Token
}

func casePayload(edad any) map[string]any {
	return map[string]any{
		"nombre_desaparecido": "Lucía Pérez",
		"edad_desaparecido":   edad,
		"sexo_desaparecido":   "FEMENINO",
		"descripcion_hechos":  "Salió de la escuela y no regresó",
		"fecha_desaparicion":  "2025-03-01",
		"ubicacion_latitud":   4.6097,
		"ubicacion_longitud":  -74.0817,
		"direccion_texto":     "Calle 10 #5-20",
		"nombre_contacto":     "María Pérez",
		"telefono_contacto":   "3001234567",
		"correo_contacto":     "maria@x.com",
		"parentesco":          "Madre",
	}
}

func (a *testAPI) createCase(t *testing.T, token string) string {
	t.Helper()
	rec, res := a.do(t, http.MethodPost, "/api/v1/cases", token, casePayload(9))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c struct {
		ID     string `json:"id_caso"`
		Estado string `json:"estado_caso"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &c))
	require.Equal(t, "PENDIENTE_REVISION", c.Estado)
	return c.ID
}

func (a *testAPI) setCaseState(t *testing.T, admin, caseID, estado string) {
	t.Helper()
	rec, _ := a.do(t, http.MethodPut, "/api/v1/cases/"+caseID, admin, map[string]any{"estado_caso": estado})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

// ============================================
// Auth
// ============================================

func TestAPI_RegisterThenDuplicate(t *testing.T) {
	api := newTestAPI(t, 0)
	api.register(t, "Ana", "ana@x.com")

	rec, res := api.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"nombre": "Ana 2", "correo": "ANA@x.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, res.Success)
	assert.Equal(t, "El correo ya está registrado", res.Error)
}

func TestAPI_LoginFailuresAreIndistinguishable(t *testing.T) {
	api := newTestAPI(t, 0)
	api.register(t, "Ana", "ana@x.com")

	recWrong, resWrong := api.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"correo": "ana@x.com", "password": "nope123"})
	recUnknown, resUnknown := api.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"correo": "ghost@x.com", "password": "nope123"})

	assert.Equal(t, http.StatusUnauthorized, recWrong.Code)
	assert.Equal(t, recWrong.Code, recUnknown.Code)
	assert.Equal(t, resWrong.Error, resUnknown.Error)
}

func TestAPI_MeAndLogout(t *testing.T) {
	api := newTestAPI(t, 0)
	token, userID := api.register(t, "Ana", "ana@x.com")

	rec, res := api.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(res.Data), userID)

	rec, res = api.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Sesión cerrada correctamente", res.Message)

	rec, res = api.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, service.MsgTokenRevoked, res.Error)
}

func TestAPI_TokenMissingAndMalformed(t *testing.T) {
	api := newTestAPI(t, 0)

	rec, res := api.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, service.MsgTokenMissing, res.Error)

	rec, res = api.do(t, http.MethodGet, "/api/v1/auth/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, service.MsgTokenInvalid, res.Error)
}

func TestAPI_MalformedBody(t *testing.T) {
	api := newTestAPI(t, 0)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString("{nope"))
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), service.MsgInvalidBody)
}

// ============================================
// Cases
// ============================================

func TestAPI_PublicCaseListOnlyActive(t *testing.T) {
	api := newTestAPI(t, 0)
	admin := api.adminToken(t)
	token, _ := api.register(t, "Ana", "ana@x.com")

	active := api.createCase(t, token)
	api.createCase(t, token)
	api.setCaseState(t, admin, active, "ACTIVO")

	// estado is ignored for non-admins
	rec, res := api.do(t, http.MethodGet, "/api/v1/cases?estado=PENDIENTE_REVISION", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []struct {
		ID     string `json:"id_caso"`
		Estado string `json:"estado_caso"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, active, items[0].ID)
	assert.Equal(t, "ACTIVO", items[0].Estado)
	require.NotNil(t, res.Pagination)
	assert.Equal(t, 1, res.Pagination.Total)

	rec, res = api.do(t, http.MethodGet, "/api/v1/cases?estado=PENDIENTE_REVISION", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(res.Data, &items))
	assert.Len(t, items, 1)
	assert.NotEqual(t, active, items[0].ID)
}

func TestAPI_CreateCaseRejectsAdultAge(t *testing.T) {
	api := newTestAPI(t, 0)
	token, _ := api.register(t, "Ana", "ana@x.com")

	rec, res := api.do(t, http.MethodPost, "/api/v1/cases", token, casePayload(20))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "La edad debe estar entre 0 y 18 años", res.Error)

	rec, _ = api.do(t, http.MethodPost, "/api/v1/cases", "", casePayload(9))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_PendingCaseHiddenFromStrangers(t *testing.T) {
	api := newTestAPI(t, 0)
	owner, _ := api.register(t, "Ana", "ana@x.com")
	other, _ := api.register(t, "Beto", "beto@x.com")
	caseID := api.createCase(t, owner)

	rec, _ := api.do(t, http.MethodGet, "/api/v1/cases/"+caseID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = api.do(t, http.MethodGet, "/api/v1/cases/"+caseID, other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = api.do(t, http.MethodGet, "/api/v1/cases/"+caseID, owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_AdminRoutesRequireAdmin(t *testing.T) {
	api := newTestAPI(t, 0)
	token, _ := api.register(t, "Ana", "ana@x.com")
	caseID := api.createCase(t, token)

	rec, res := api.do(t, http.MethodGet, "/api/v1/cases/pending", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, msgAdminRequired, res.Error)

	rec, _ = api.do(t, http.MethodDelete, "/api/v1/cases/"+caseID, token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := api.adminToken(t)
	rec, res = api.do(t, http.MethodDelete, "/api/v1/cases/"+caseID, admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Caso eliminado exitosamente", res.Message)
}

func TestAPI_ExportCasesXLSX(t *testing.T) {
	api := newTestAPI(t, 0)
	admin := api.adminToken(t)
	token, _ := api.register(t, "Ana", "ana@x.com")
	api.createCase(t, token)

	rec, _ := api.do(t, http.MethodGet, "/api/v1/cases/export", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "casos_")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Casos")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

// ============================================
// Clues
// ============================================

func TestAPI_ClueLifecycle(t *testing.T) {
	api := newTestAPI(t, 0)
	admin := api.adminToken(t)
	owner, _ := api.register(t, "Ana", "ana@x.com")
	helper, _ := api.register(t, "Beto", "beto@x.com")
	stranger, _ := api.register(t, "Caro", "caro@x.com")
	caseID := api.createCase(t, owner)

	// pending case does not accept clues
	rec, res := api.do(t, http.MethodPost, "/api/v1/clues", helper, map[string]any{"id_caso": caseID, "mensaje": "La vi en el parque"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Solo se pueden agregar pistas a casos activos", res.Error)

	api.setCaseState(t, admin, caseID, "ACTIVO")
	rec, res = api.do(t, http.MethodPost, "/api/v1/clues", helper, map[string]any{"id_caso": caseID, "mensaje": "La vi en el parque"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var clue struct {
		ID     string `json:"id_pista"`
		Estado string `json:"estado_pista"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &clue))
	assert.Equal(t, "PENDIENTE_REVISION", clue.Estado)

	path := "/api/v1/clues/case/" + caseID
	rec, res = api.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Debes iniciar sesión para ver las pistas", res.Error)

	rec, res = api.do(t, http.MethodGet, path, stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "No tienes permiso para ver estas pistas", res.Error)

	rec, _ = api.do(t, http.MethodGet, path, owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = api.do(t, http.MethodGet, path, admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// contributors cannot verify their own clue
	rec, res = api.do(t, http.MethodPut, "/api/v1/clues/"+clue.ID, helper, map[string]any{"estado_pista": "VERIFICADA"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.MsgNothingToUpdate, res.Error)
	rec, _ = api.do(t, http.MethodPut, "/api/v1/clues/"+clue.ID, stranger, map[string]any{"mensaje": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, res = api.do(t, http.MethodPut, "/api/v1/clues/"+clue.ID, admin, map[string]any{"estado_pista": "verificada"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(res.Data, &clue))
	assert.Equal(t, "VERIFICADA", clue.Estado)
}

// ============================================
// Users
// ============================================

func TestAPI_UserProfileAndStats(t *testing.T) {
	api := newTestAPI(t, 0)
	token, userID := api.register(t, "Ana", "ana@x.com")
	other, _ := api.register(t, "Beto", "beto@x.com")
	api.createCase(t, token)

	rec, res := api.do(t, http.MethodGet, "/api/v1/users/"+userID+"/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Casos struct {
			Total      int `json:"total"`
			Pendientes int `json:"pendientes"`
		} `json:"casos"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &stats))
	assert.Equal(t, 1, stats.Casos.Total)
	assert.Equal(t, 1, stats.Casos.Pendientes)

	rec, _ = api.do(t, http.MethodGet, "/api/v1/users/"+userID, other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, res = api.do(t, http.MethodPut, "/api/v1/users/"+userID, token, map[string]any{"telefono": "3009998877"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Perfil actualizado exitosamente", res.Message)

	rec, res = api.do(t, http.MethodPut, "/api/v1/users/"+userID+"/password", token, map[string]any{
		"currentPassword": "wrong", "newPassword": "another1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "La contraseña actual es incorrecta", res.Error)

	rec, _ = api.do(t, http.MethodGet, "/api/v1/users", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// ============================================
// Cross-cutting
// ============================================

func TestAPI_NotFoundEnvelope(t *testing.T) {
	api := newTestAPI(t, 0)
	rec, res := api.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, res.Success)
	assert.Equal(t, "Ruta no encontrada", res.Message)
	assert.Equal(t, "/api/v1/nope", res.Path)
}

func TestAPI_HealthAndBanner(t *testing.T) {
	api := newTestAPI(t, 0)
	rec, res := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, res.Success)
	assert.Equal(t, "Red Esperanza API está funcionando correctamente", res.Message)

	rec, res = api.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bienvenido a Red Esperanza API", res.Message)
}

func TestAPI_RateLimit(t *testing.T) {
	api := newTestAPI(t, 3)
	for i := 0; i < 3; i++ {
		rec, _ := api.do(t, http.MethodGet, "/api/v1/cases", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, res := api.do(t, http.MethodGet, "/api/v1/cases", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, service.MsgTooManyRequests, res.Error)
	assert.Equal(t, "0", rec.Header().Get("RateLimit-Remaining"))

	// health sits outside /api/
	rec, _ = api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_RateLimitIgnoresForwardedForByDefault(t *testing.T) {
	api := newTestAPI(t, 2)
	hit := func(fwd string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cases", nil)
		req.Header.Set("X-Forwarded-For", fwd)
		rec := httptest.NewRecorder()
		api.handler.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.2"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.3"))
}

func TestRealIP_UsesNearestProxyHop(t *testing.T) {
	var seen []string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, clientIP(r))
	}), RealIP())

	serve := func(fwd string) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cases", nil)
		req.RemoteAddr = "172.16.0.9:41000"
		if fwd != "" {
			req.Header.Set("X-Forwarded-For", fwd)
		}
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	serve("1.2.3.4, 203.0.113.7")
	serve("spoofed, not-an-ip")
	serve("")
	serve("2001:db8::1")

	assert.Equal(t, []string{"203.0.113.7", "172.16.0.9", "172.16.0.9", "2001:db8::1"}, seen)
}

func TestAPI_CasesHugePageIsEmpty(t *testing.T) {
	api := newTestAPI(t, 0)
	rec, res := api.do(t, http.MethodGet, "/api/v1/cases?pagina=4611686018427387904&limite=4", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, "[]", string(res.Data))
	require.NotNil(t, res.Pagination)
	assert.Equal(t, 4, res.Pagination.Limite)

	rec, res = api.do(t, http.MethodGet, "/api/v1/cases?limite=100000", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.MaxCasePageSize, res.Pagination.Limite)
}

func TestAPI_MalformedIDsAreNotFound(t *testing.T) {
	api := newTestAPI(t, 0)
	token, _ := api.register(t, "Ana", "ana@x.com")
	admin := api.adminToken(t)

	rec, _ := api.do(t, http.MethodGet, "/api/v1/cases/abc", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = api.do(t, http.MethodPost, "/api/v1/clues", token, map[string]any{"id_caso": "123", "mensaje": "la vi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = api.do(t, http.MethodDelete, "/api/v1/users/x", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_RegisterPasswordOverBcryptLimit(t *testing.T) {
	api := newTestAPI(t, 0)
	rec, res := api.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"nombre": "Ana", "correo": "ana@x.com", "password": strings.Repeat("a", 80),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.MsgPasswordTooLong, res.Error)
}

func TestAPI_CORSPreflight(t *testing.T) {
	api := newTestAPI(t, 0)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cases", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRecover_PanicBecomes500(t *testing.T) {
	h := Recover(zap.NewNop(), true)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error interno del servidor")
	assert.NotContains(t, rec.Body.String(), "boom")
}
