package extension

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/salesdoc"
	"github.com/xraph/salesdoc/store/memory"
)

func TestMergeWithDefaults(t *testing.T) {
	e := New()
	cfg := e.mergeWithDefaults(Config{NumberWidth: 6})

	assert.Equal(t, "/salesdoc", cfg.BasePath)
	assert.Equal(t, 3, cfg.ConflictRetries)
	assert.Equal(t, 6, cfg.NumberWidth)
	assert.Equal(t, 5*time.Second, cfg.PluginTimeout)
}

func TestMergeConfigurations(t *testing.T) {
	e := New()
	file := Config{BasePath: "/docs", ConflictRetries: 5}
	programmatic := Config{
		BasePath:       "/ignored",
		DisableMigrate: true,
		NumberWidth:    5,
		PluginTimeout:  time.Second,
	}

	cfg := e.mergeConfigurations(file, programmatic)
	assert.Equal(t, "/docs", cfg.BasePath, "file config wins")
	assert.Equal(t, 5, cfg.ConflictRetries)
	assert.Equal(t, 5, cfg.NumberWidth, "programmatic fills gaps")
	assert.Equal(t, time.Second, cfg.PluginTimeout)
	assert.True(t, cfg.DisableMigrate)
	assert.False(t, cfg.DisableRoutes)
}

func TestOptions(t *testing.T) {
	s := memory.New()
	e := New(
		WithStore(s),
		WithBasePath("/sales"),
		WithDisableRoutes(),
		WithConflictRetries(7),
		WithEngineOption(salesdoc.WithNumberWidth(6)),
	)

	assert.Same(t, s, e.store)
	assert.Equal(t, "/sales", e.config.BasePath)
	assert.True(t, e.config.DisableRoutes)
	assert.Equal(t, 7, e.config.ConflictRetries)
	assert.Len(t, e.engineOpts, 1)
	assert.Len(t, e.buildEngineOpts(), 4)
}

func TestHandlerMountsUnderBasePath(t *testing.T) {
	gin.SetMode(gin.TestMode)

	e := New(WithBasePath("/sales"))
	e.config = e.mergeWithDefaults(e.config)
	e.engine = salesdoc.New(memory.New(), e.buildEngineOpts()...)
	h := e.buildHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales/estimates", nil))
	require.Equal(t, http.StatusForbidden, rec.Code, "routes need an actor")

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sales/estimates", nil)
	req.Header.Set("X-Actor-ID", "staff_1")
	req.Header.Set("X-Actor-Role", "staff")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
