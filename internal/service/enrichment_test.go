package service_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"autograde-backend/internal/domain"
	"autograde-backend/internal/enrichment"
	"autograde-backend/internal/service"
)

const testVIN = "JF2BT9KL3SG078266"

type enrichmentFixture struct {
	appraisals service.AppraisalService
	enrich     service.EnrichmentService
	provider   *gatedProvider
	notifier   *MockNotifier
	photos     *memoryPhotos
}

func newEnrichmentFixture(opts service.EnrichmentOptions) *enrichmentFixture {
	store := service.NewSessionStore()
	clock := newTestClock()
	f := &enrichmentFixture{
		provider: newGatedProvider(),
		notifier: new(MockNotifier),
		photos:   newMemoryPhotos(),
	}
	f.appraisals = service.NewAppraisalService(store, new(MockAppraisalRepo), f.photos, nil, service.AppraisalOptions{
		Now:   clock.Now,
		NewID: idSequence("id"),
	})
	if opts.Now == nil {
		opts.Now = clock.Now
	}
	f.enrich = service.NewEnrichmentService(store, f.provider, f.provider, f.provider, f.photos, f.notifier, opts)
	return f
}

func waitFlight(t *testing.T, fl *service.Flight) service.FlightOutcome {
	t.Helper()
	select {
	case <-fl.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("flight did not settle")
	}
	return fl.Outcome()
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		for y := 0; y < 30; y++ {
			img.Set(x, y, color.RGBA{R: 20, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestEnrichment_VINDecodeKeepsOtherFields(t *testing.T) {
	f := newEnrichmentFixture(service.EnrichmentOptions{})
	ctx := context.Background()
	snap, _ := f.appraisals.Start(ctx, 1)
	_, _ = f.appraisals.SetField(ctx, 1, snap.ID, domain.SectionVehicle, domain.VehicleColour, "GREEN")

	fl, err := f.enrich.TriggerVIN(ctx, 1, snap.ID, strings.ToLower(testVIN))
	require.NoError(t, err)
	assert.Equal(t, domain.EnrichmentVIN, fl.Kind)

	busy, _ := f.appraisals.Get(ctx, 1, snap.ID)
	assert.True(t, busy.InFlight[domain.EnrichmentVIN])

	call := f.provider.next()
	assert.Equal(t, testVIN, call.arg)
	call.respond(patchOf(domain.VehicleMake, "SUBARU", domain.VehicleModel, "OUTBACK", domain.VehicleYear, "2025"), nil)

	out := waitFlight(t, fl)
	assert.False(t, out.Superseded)
	assert.Equal(t, []string{domain.VehicleMake, domain.VehicleModel, domain.VehicleYear}, out.Applied)

	got, err := f.appraisals.Get(ctx, 1, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, "SUBARU", got.State.Vehicle.Make)
	assert.Equal(t, "OUTBACK", got.State.Vehicle.Model)
	assert.Equal(t, "2025", got.State.Vehicle.Year)
	assert.Equal(t, "GREEN", got.State.Vehicle.Colour)
	assert.False(t, got.InFlight[domain.EnrichmentVIN])
	assert.Empty(t, got.Notices)
}

func TestEnrichment_VINCheckDigit(t *testing.T) {
	f := newEnrichmentFixture(service.EnrichmentOptions{})
	ctx := context.Background()
	snap, _ := f.appraisals.Start(ctx, 1)

	t.Run("MismatchStillDecodes", func(t *testing.T) {
		fl, err := f.enrich.TriggerVIN(ctx, 1, snap.ID, testVIN)
		require.NoError(t, err)
		assert.True(t, fl.CheckDigitMismatch)

		call := f.provider.next()
		assert.Equal(t, testVIN, call.arg)
		call.respond(patchOf(domain.VehicleMake, "SUBARU"), nil)
		out := waitFlight(t, fl)
		assert.Equal(t, []string{domain.VehicleMake}, out.Applied)
	})

	t.Run("ValidCheckDigit", func(t *testing.T) {
		fl, err := f.enrich.TriggerVIN(ctx, 1, snap.ID, "1M8GDM9AXKP042788")
		require.NoError(t, err)
		assert.False(t, fl.CheckDigitMismatch)

		f.provider.next().respond(patchOf(domain.VehicleModel, "COACH"), nil)
		waitFlight(t, fl)
	})
}

func TestEnrichment_VINGating(t *testing.T) {
	f := newEnrichmentFixture(service.EnrichmentOptions{})
	ctx := context.Background()
	snap, _ := f.appraisals.Start(ctx, 1)

	t.Run("NoIdentifier", func(t *testing.T) {
		_, err := f.enrich.TriggerVIN(ctx, 1, snap.ID, "")
		assert.ErrorIs(t, err, service.ErrNoIdentifier)
	})

	t.Run("InvalidVIN", func(t *testing.T) {
		_, err := f.enrich.TriggerVIN(ctx, 1, snap.ID, "ABC")
		assert.ErrorIs(t, err, domain.ErrInvalidVIN)
	})

	t.Run("FallsBackToChassisNo", func(t *testing.T) {
		_, _ = f.appraisals.SetField(ctx, 1, snap.ID, domain.SectionVehicle, domain.VehicleChassisNo, testVIN)
		fl, err := f.enrich.TriggerVIN(ctx, 1, snap.ID, "")
		require.NoError(t, err)

		call := f.provider.next()
		assert.Equal(t, testVIN, call.arg)
		call.respond(patchOf(domain.VehicleMake, "SUBARU"), nil)
		waitFlight(t, fl)
	})

	t.Run("Forbidden", func(t *testing.T) {
		_, err := f.enrich.TriggerVIN(ctx, 2, snap.ID, testVIN)
		assert.ErrorIs(t, err, service.ErrForbidden)
	})
}

func TestEnrichment_ProviderUnavailable(t *testing.T) {
	store := service.NewSessionStore()
	svc := service.NewEnrichmentService(store, nil, nil, nil, nil, nil, service.EnrichmentOptions{})
	ctx := context.Background()

	_, err := svc.TriggerVIN(ctx, 1, "s", testVIN)
	assert.ErrorIs(t, err, service.ErrProviderUnavailable)
	_, err = svc.TriggerRegistration(ctx, 1, "s", "VIC", "DMH427")
	assert.ErrorIs(t, err, service.ErrProviderUnavailable)
	_, err = svc.TriggerImage(ctx, 1, "s", []byte("x"))
	assert.ErrorIs(t, err, service.ErrProviderUnavailable)
}

func TestEnrichment_ManualEditWins(t *testing.T) {
	f := newEnrichmentFixture(service.EnrichmentOptions{})
	ctx := context.Background()
	snap, _ := f.appraisals.Start(ctx, 1)

	fl, err := f.enrich.TriggerRegistration(ctx, 1, snap.ID, "vic", "dmh 427")
	require.NoError(t, err)
	call := f.provider.next()
	assert.Equal(t, "VIC/DMH427", call.arg)

	// The appraiser types a make while the lookup is running.
	_, err = f.appraisals.SetField(ctx, 1, snap.ID, domain.SectionVehicle, domain.VehicleMake, "TOYOTA")
	require.NoError(t, err)

	call.respond(patchOf(domain.VehicleMake, "SUBARU", domain.VehicleModel, "OUTBACK"), nil)
	out := waitFlight(t, fl)
	assert.Equal(t, []string{domain.VehicleModel}, out.Applied)
	assert.Equal(t, []string{domain.VehicleMake}, out.Skipped)

	got, _ := f.appraisals.Get(ctx, 1, snap.ID)
	assert.Equal(t, "TOYOTA", got.State.Vehicle.Make)
	assert.Equal(t, "OUTBACK", got.State.Vehicle.Model)
}

func TestEnrichment_LastIssuedWinsAcrossKinds(t *testing.T) {
	f := newEnrichmentFixture(service.EnrichmentOptions{})
	ctx := context.Background()
	snap, _ := f.appraisals.Start(ctx, 1)

	vinFlight, err := f.enrich.TriggerVIN(ctx, 1, snap.ID, testVIN)
	require.NoError(t, err)
	regoFlight, err := f.enrich.TriggerRegistration(ctx, 1, snap.ID, "VIC", "DMH427")
	require.NoError(t, err)
	assert.Greater(t, regoFlight.Sequence, vinFlight.Sequence)

	calls := map[string]*providerCall{}
	for i := 0; i < 2; i++ {
		c := f.provider.next()
		calls[c.arg] = c
	}

	// The newer registration lookup answers first; the older VIN decode
	// must not overwrite what it wrote.
	calls["VIC/DMH427"].respond(patchOf(domain.VehicleMake, "SUBARU"), nil)
	waitFlight(t, regoFlight)
	calls[testVIN].respond(patchOf(domain.VehicleMake, "FUJI", domain.VehicleYear, "2024"), nil)
	out := waitFlight(t, vinFlight)

	assert.Equal(t, []string{domain.VehicleYear}, out.Applied)
	assert.Equal(t, []string{domain.VehicleMake}, out.Skipped)

	got, _ := f.appraisals.Get(ctx, 1, snap.ID)
	assert.Equal(t, "SUBARU", got.State.Vehicle.Make)
	assert.Equal(t, "2024", got.State.Vehicle.Year)
}

func TestEnrichment_SupersededBySameKind(t *testing.T) {
	f := newEnrichmentFixture(service.EnrichmentOptions{})
	ctx := context.Background()
	snap, _ := f.appraisals.Start(ctx, 1)

	first, err := f.enrich.TriggerVIN(ctx, 1, snap.ID, testVIN)
	require.NoError(t, err)
	firstCall := f.provider.next()

	second, err := f.enrich.TriggerVIN(ctx, 1, snap.ID, "JF2BT9KL3SG078267")
	require.NoError(t, err)
	assert.Equal(t, first.Generation+1, second.Generation)

	out := waitFlight(t, first)
	assert.True(t, out.Superseded)
	assert.Error(t, firstCall.ctx.Err())

	secondCall := f.provider.next()
	secondCall.respond(patchOf(domain.VehicleModel, "FORESTER"), nil)
	out = waitFlight(t, second)
	assert.False(t, out.Superseded)

	got, _ := f.appraisals.Get(ctx, 1, snap.ID)
	assert.Equal(t, "FORESTER", got.State.Vehicle.Model)
	assert.Empty(t, got.Notices)
}

func TestEnrichment_EndDiscardsResults(t *testing.T) {
	f := newEnrichmentFixture(service.EnrichmentOptions{})
	ctx := context.Background()
	snap, _ := f.appraisals.Start(ctx, 1)

	fl, err := f.enrich.TriggerRegistration(ctx, 1, snap.ID, "VIC", "DMH427")
	require.NoError(t, err)
	call := f.provider.next()

	require.NoError(t, f.appraisals.End(ctx, 1, snap.ID))
	out := waitFlight(t, fl)
	assert.True(t, out.Superseded)
	assert.Error(t, call.ctx.Err())
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEnrichment_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("ProviderError", func(t *testing.T) {
		f := newEnrichmentFixture(service.EnrichmentOptions{})
		snap, _ := f.appraisals.Start(ctx, 1)
		f.notifier.On("Notify", mock.Anything, int32(1), snap.ID, mock.MatchedBy(func(n domain.Notice) bool {
			return n.Kind == domain.EnrichmentVIN && n.Level == domain.NoticeError
		})).Return(nil)

		fl, err := f.enrich.TriggerVIN(ctx, 1, snap.ID, testVIN)
		require.NoError(t, err)
		f.provider.next().respond(domain.VehiclePatch{}, errors.New("503 from upstream"))

		out := waitFlight(t, fl)
		require.NotNil(t, out.Notice)
		assert.Equal(t, "VIN decode lookup failed", out.Notice.Message)

		got, _ := f.appraisals.Get(ctx, 1, snap.ID)
		require.Len(t, got.Notices, 1)
		assert.False(t, got.InFlight[domain.EnrichmentVIN])
		assert.Empty(t, got.State.Vehicle.Make)
		f.notifier.AssertExpectations(t)
	})

	t.Run("NoResultIsWarning", func(t *testing.T) {
		f := newEnrichmentFixture(service.EnrichmentOptions{})
		snap, _ := f.appraisals.Start(ctx, 1)
		f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("no device"))

		fl, _ := f.enrich.TriggerRegistration(ctx, 1, snap.ID, "NSW", "ZZZ999")
		f.provider.next().respond(domain.VehiclePatch{}, enrichment.ErrNoResult)

		out := waitFlight(t, fl)
		require.NotNil(t, out.Notice)
		assert.Equal(t, domain.NoticeWarn, out.Notice.Level)
		assert.Equal(t, "Registration not found", out.Notice.Message)
	})

	t.Run("EmptyPatchIsNoResult", func(t *testing.T) {
		f := newEnrichmentFixture(service.EnrichmentOptions{})
		snap, _ := f.appraisals.Start(ctx, 1)
		f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		fl, _ := f.enrich.TriggerVIN(ctx, 1, snap.ID, testVIN)
		f.provider.next().respond(domain.VehiclePatch{}, nil)

		out := waitFlight(t, fl)
		require.NotNil(t, out.Notice)
		assert.Equal(t, "VIN could not be decoded", out.Notice.Message)
	})

	t.Run("Timeout", func(t *testing.T) {
		f := newEnrichmentFixture(service.EnrichmentOptions{Timeout: 30 * time.Millisecond})
		snap, _ := f.appraisals.Start(ctx, 1)
		f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		fl, _ := f.enrich.TriggerVIN(ctx, 1, snap.ID, testVIN)
		out := waitFlight(t, fl)
		require.NotNil(t, out.Notice)
		assert.Equal(t, "VIN decode lookup timed out", out.Notice.Message)
	})

	t.Run("NoticesAreCapped", func(t *testing.T) {
		f := newEnrichmentFixture(service.EnrichmentOptions{MaxNotices: 2})
		snap, _ := f.appraisals.Start(ctx, 1)
		f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		for i := 0; i < 3; i++ {
			fl, err := f.enrich.TriggerVIN(ctx, 1, snap.ID, testVIN)
			require.NoError(t, err)
			f.provider.next().respond(domain.VehiclePatch{}, errors.New("boom"))
			waitFlight(t, fl)
		}
		got, _ := f.appraisals.Get(ctx, 1, snap.ID)
		assert.Len(t, got.Notices, 2)
	})
}

type panickingDecoder struct{}

func (panickingDecoder) DecodeVIN(ctx context.Context, vin string) (domain.VehiclePatch, error) {
	panic("decoder bug")
}

func TestEnrichment_ProviderPanicBecomesNotice(t *testing.T) {
	store := service.NewSessionStore()
	appraisals := service.NewAppraisalService(store, new(MockAppraisalRepo), nil, nil, service.AppraisalOptions{})
	svc := service.NewEnrichmentService(store, nil, panickingDecoder{}, nil, nil, nil, service.EnrichmentOptions{})
	ctx := context.Background()
	snap, _ := appraisals.Start(ctx, 1)

	fl, err := svc.TriggerVIN(ctx, 1, snap.ID, testVIN)
	require.NoError(t, err)
	out := waitFlight(t, fl)
	require.NotNil(t, out.Notice)
	assert.Equal(t, domain.NoticeError, out.Notice.Level)
}

func TestEnrichment_Image(t *testing.T) {
	f := newEnrichmentFixture(service.EnrichmentOptions{ImageMaxDim: 20})
	ctx := context.Background()
	snap, _ := f.appraisals.Start(ctx, 1)

	t.Run("Success", func(t *testing.T) {
		fl, err := f.enrich.TriggerImage(ctx, 1, snap.ID, testPNG(t))
		require.NoError(t, err)

		call := f.provider.next()
		assert.Equal(t, "image", call.arg)
		call.respond(patchOf(domain.VehicleMake, "SUBARU", domain.VehicleColour, "GREEN"), nil)
		waitFlight(t, fl)

		got, _ := f.appraisals.Get(ctx, 1, snap.ID)
		assert.Equal(t, "SUBARU", got.State.Vehicle.Make)
		assert.Equal(t, "GREEN", got.State.Vehicle.Colour)
		require.Len(t, got.Photos, 1)
		assert.True(t, strings.HasPrefix(got.Photos[0], "/photos/appraisers/1/sessions/"+snap.ID+"/"))
		assert.Len(t, f.photos.files, 1)
	})

	t.Run("NotAnImage", func(t *testing.T) {
		_, err := f.enrich.TriggerImage(ctx, 1, snap.ID, []byte("plain text"))
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("ForbiddenStoresNothing", func(t *testing.T) {
		before := len(f.photos.files)
		_, err := f.enrich.TriggerImage(ctx, 7, snap.ID, testPNG(t))
		assert.ErrorIs(t, err, service.ErrForbidden)
		assert.Len(t, f.photos.files, before)
	})

	t.Run("EndDeletesPhotos", func(t *testing.T) {
		require.NoError(t, f.appraisals.End(ctx, 1, snap.ID))
		assert.Empty(t, f.photos.files)
	})
}
