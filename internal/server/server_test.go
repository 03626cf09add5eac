package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/market-screener/internal/config"
	"github.com/aristath/market-screener/internal/modules/screening"
)

func newTestServer(presets map[string]screening.Preset) *Server {
	return New(Config{
		Port:     0,
		Log:      zerolog.Nop(),
		Cfg:      &config.Config{CommissionRate: 0.001, MinCommission: 5, RiskFreeRate: 0.03},
		Screener: screening.NewSchlossScreener(),
		Presets:  presets,
		DevMode:  true,
	})
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestServer_ListPresetsSorted(t *testing.T) {
	srv := newTestServer(map[string]screening.Preset{
		"deep-value": {Name: "deep-value", Params: screening.Params{PBMax: screening.Float(1)}},
		"classic":    {Name: "classic", Params: screening.DefaultParams()},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/presets", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Presets []screening.Preset `json:"presets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Presets, 2)
	assert.Equal(t, "classic", body.Presets[0].Name)
	assert.Equal(t, "deep-value", body.Presets[1].Name)
}

func TestServer_ResolveParams(t *testing.T) {
	preset := screening.Preset{
		Name:   "cheap",
		Params: screening.Params{PEMax: screening.Float(10)},
	}
	srv := newTestServer(map[string]screening.Preset{"cheap": preset})

	t.Run("preset name wins", func(t *testing.T) {
		params, err := srv.resolveParams("cheap", nil)
		require.NoError(t, err)
		require.NotNil(t, params.PEMax)
		assert.Equal(t, 10.0, *params.PEMax)
	})

	t.Run("unknown preset rejected", func(t *testing.T) {
		_, err := srv.resolveParams("nope", nil)
		assert.Error(t, err)
	})

	t.Run("preset plus explicit params rejected", func(t *testing.T) {
		explicit := screening.DefaultParams()
		_, err := srv.resolveParams("cheap", &explicit)
		assert.Error(t, err)
	})

	t.Run("explicit params pass through", func(t *testing.T) {
		explicit := screening.Params{PBMax: screening.Float(2)}
		params, err := srv.resolveParams("", &explicit)
		require.NoError(t, err)
		require.NotNil(t, params.PBMax)
		assert.Equal(t, 2.0, *params.PBMax)
	})

	t.Run("neither falls back to defaults", func(t *testing.T) {
		params, err := srv.resolveParams("", nil)
		require.NoError(t, err)
		require.NotNil(t, params.PEMax)
		assert.Equal(t, 15.0, *params.PEMax)
	})
}

func TestServer_ScreenRejectsBadDate(t *testing.T) {
	srv := newTestServer(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/screen",
		strings.NewReader(`{"as_of": "not-a-date"}`))
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
