// Command ratefeed-stub serves simulated market hotel rates in the format the
// rate feed client expects, for local development against RATE_FEED_URL.
package main

import (
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-quote/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-quote/internal/pricing"
)

func main() {
	addr := getenv("STUB_ADDR", ":8090")
	sim := pricing.NewMarketSimulator(pricing.DefaultCostTable())

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/rates", func(w http.ResponseWriter, r *http.Request) {
		location := pricing.Location(r.URL.Query().Get("location"))
		stars, err := strconv.Atoi(r.URL.Query().Get("stars"))
		if err != nil || !location.Supported() {
			httpx.Error(w, http.StatusBadRequest, "location and stars are required")
			return
		}
		rate, err := sim.QuoteExternalRate(r.Context(), location, stars)
		if err != nil {
			httpx.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"rate": rate, "currency": "JPY"})
	})

	log.Printf("serving simulated rates on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("listen: %v", err)
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
