package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appliance-warranty-backend/config"
)

func newTestService(url string) *Service {
	return NewService(config.CatalogConfig{
		SearchURL:      url,
		UserAgent:      "test-agent",
		TimeoutSeconds: 2,
	}, nil)
}

func TestLookup_FindsImage(t *testing.T) {
	var gotQuery, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`<html><img src="//img1.kakaku.k-img.com/images/productimage/l/K0001234567.jpg"></html>`))
	}))
	defer server.Close()

	res := newTestService(server.URL).Lookup(context.Background(), " na-lx129al ")

	assert.Equal(t, "NA-LX129AL", gotQuery)
	assert.Equal(t, "test-agent", gotUA)
	require.NotNil(t, res.ImageURL)
	assert.Equal(t, "https://img1.kakaku.k-img.com/images/productimage/l/K0001234567.jpg", *res.ImageURL)
	require.NotNil(t, res.Brand)
	assert.Equal(t, "Panasonic", *res.Brand)
}

func TestLookup_Degrades(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Query().Get("query") {
		case "XYZ-1":
			w.Write([]byte("<html>no results</html>"))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()
	svc := newTestService(server.URL)
	ctx := context.Background()

	assert.Equal(t, Result{}, svc.Lookup(ctx, "ab"))
	assert.Zero(t, calls, "short models are not searched")

	res := svc.Lookup(ctx, "XYZ-1")
	assert.Nil(t, res.ImageURL)
	assert.Nil(t, res.Brand)

	res = svc.Lookup(ctx, "MR-WX52H")
	assert.Nil(t, res.ImageURL)
	require.NotNil(t, res.Brand)
	assert.Equal(t, "Mitsubishi", *res.Brand)

	unreachable := newTestService("http://127.0.0.1:1/search")
	assert.Nil(t, unreachable.Lookup(ctx, "ES-X11B").ImageURL)
}

func TestNormalizeModel(t *testing.T) {
	assert.Equal(t, "NA-LX129AL", NormalizeModel("ＮＡ－ＬＸ１２９ＡＬ"))
	assert.Equal(t, "SJ-W 90", NormalizeModel("  sj-w   90 "))
	assert.Equal(t, "MR-WX52H", NormalizeModel("MRーWX52H"))
}

func TestGuessBrand(t *testing.T) {
	cases := map[string]string{
		"NA-LX129AL": "Panasonic",
		"MSZ-ZW4022": "Mitsubishi",
		"RAS-X40M":   "Hitachi",
		"GR-V500GZ":  "Toshiba",
		"SV18":       "Dyson",
	}
	for model, want := range cases {
		got, ok := GuessBrand(model)
		assert.True(t, ok, model)
		assert.Equal(t, want, got, model)
	}
	_, ok := GuessBrand("QQ-123")
	assert.False(t, ok)
}
