package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/herofit/storefront/internal/cart"
	"github.com/herofit/storefront/internal/checkout"
	"github.com/herofit/storefront/internal/config"
	"github.com/herofit/storefront/internal/prefs"
)

func TestBuildWiresServices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/carrito/estado":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{{"producto_id": 8, "cantidad": 2, "precio_unitario": 2500}},
				"total": 5000,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.APIURL = server.URL
	p := prefs.Open(filepath.Join(t.TempDir(), "prefs.toml"))
	if err := p.SetPendingOrder("91"); err != nil {
		t.Fatalf("SetPendingOrder returned error: %v", err)
	}
	log, _ := test.NewNullLogger()

	svc, err := Build(cfg, p, log)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if err := svc.Cart.Refresh(context.Background(), cart.Silent()); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if snap := svc.Cart.Snapshot(); snap.Count != 2 || snap.Total != 5000 {
		t.Fatalf("cart = %d/%v, want 2/5000", snap.Count, snap.Total)
	}

	ret, err := svc.Checkout.ParseReturn("https://shop.example/checkout/pending?status=null")
	if err != nil {
		t.Fatalf("ParseReturn returned error: %v", err)
	}
	if ret.Kind != checkout.ReturnPending || ret.OrderID != "91" {
		t.Fatalf("return = %+v, want pending order 91", ret)
	}
}

func TestBuildRejectsBadURL(t *testing.T) {
	cfg := config.Default()
	cfg.APIURL = "://nope"
	log, _ := test.NewNullLogger()
	if _, err := Build(cfg, prefs.Open(filepath.Join(t.TempDir(), "p.toml")), log); err == nil {
		t.Fatalf("Build accepted an invalid api url")
	}
}
