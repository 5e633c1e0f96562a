package enrichment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDecoder(t *testing.T, h http.HandlerFunc) (IdentifierDecoder, *httptest.Server) {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	d := NewVPICDecoder(VPICOptions{
		BaseURL:     srv.URL + "/api",
		RatePerSec:  1000,
		MaxAttempts: 3,
		Now:         func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) },
	})
	d.(*vpicDecoder).retry.InitialWait = time.Millisecond
	return d, srv
}

func TestVPICDecoder_DecodeVIN(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		d, _ := newTestDecoder(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/vehicles/DecodeVinValues/JF2BT9KL3SG078266", r.URL.Path)
			assert.Equal(t, "json", r.URL.Query().Get("format"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"Count":1,"Results":[{"Make":"SUBARU","Model":"Outback","ModelYear":"2025","Trim":"","BodyClass":"Wagon","ErrorCode":"0"}]}`))
		})

		patch, err := d.DecodeVIN(ctx, "JF2BT9KL3SG078266")
		require.NoError(t, err)
		assert.Equal(t, "SUBARU", *patch.Make)
		assert.Equal(t, "OUTBACK", *patch.Model)
		assert.Equal(t, "2025", *patch.Year)
		assert.Equal(t, "WAGON", *patch.Trim)
		assert.Nil(t, patch.Colour)
	})

	t.Run("Year from VIN", func(t *testing.T) {
		d, _ := newTestDecoder(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"Count":1,"Results":[{"Make":"SUBARU","Model":"OUTBACK","ModelYear":"","Trim":"Touring","BodyClass":"Sport Utility Vehicle (SUV)/Multi-Purpose Vehicle (MPV)"}]}`))
		})

		patch, err := d.DecodeVIN(ctx, "JF2BT9KL3SG078266")
		require.NoError(t, err)
		assert.Equal(t, "2025", *patch.Year)
		assert.Equal(t, "TOURING", *patch.Trim)
	})

	t.Run("Unknown VIN", func(t *testing.T) {
		d, _ := newTestDecoder(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"Count":1,"Results":[{"Make":"","Model":"","ModelYear":"","ErrorCode":"8"}]}`))
		})

		_, err := d.DecodeVIN(ctx, "JF2BT9KL3SG078266")
		assert.ErrorIs(t, err, ErrNoResult)
	})

	t.Run("Retries server errors", func(t *testing.T) {
		var calls int32
		d, _ := newTestDecoder(t, func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(`{"Count":1,"Results":[{"Make":"MAZDA","Model":"CX-5","ModelYear":"2021"}]}`))
		})

		patch, err := d.DecodeVIN(ctx, "JM3KFBDM1M0123456")
		require.NoError(t, err)
		assert.Equal(t, "MAZDA", *patch.Make)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("Does not retry client errors", func(t *testing.T) {
		var calls int32
		d, _ := newTestDecoder(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadRequest)
		})

		_, err := d.DecodeVIN(ctx, "JF2BT9KL3SG078266")
		assert.Error(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("Cancelled", func(t *testing.T) {
		d, _ := newTestDecoder(t, func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		})
		cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		_, err := d.DecodeVIN(cctx, "JF2BT9KL3SG078266")
		assert.Error(t, err)
	})
}

func TestBodyType(t *testing.T) {
	assert.Equal(t, "SUV", bodyType("Sport Utility Vehicle (SUV)/Multi-Purpose Vehicle (MPV)"))
	assert.Equal(t, "Sedan", bodyType("Sedan/Saloon"))
	assert.Equal(t, "", bodyType(" "))
}
