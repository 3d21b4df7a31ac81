package controller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/daurin/internal/boundary"
	"github.com/joeblew999/daurin/internal/mapview"
	"github.com/joeblew999/daurin/internal/model"
	"github.com/joeblew999/daurin/internal/routing"
	"github.com/joeblew999/daurin/internal/search"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// fakeSource serves fixed records. A non-nil release channel holds the
// facility fetch until it is closed.
type fakeSource struct {
	facilities    *model.Facilities
	facilitiesErr error
	release       chan struct{}
	facilityCalls atomic.Int32

	pengepuls   []model.CollectorRecord
	pengepulErr error
	pengrajins  []model.CrafterRecord
	offers      []model.WasteOfferRecord
}

func (f *fakeSource) Facilities(ctx context.Context) (*model.Facilities, error) {
	f.facilityCalls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.facilitiesErr != nil {
		return nil, f.facilitiesErr
	}
	return f.facilities, nil
}

func (f *fakeSource) Pengepuls(context.Context) ([]model.CollectorRecord, error) {
	return f.pengepuls, f.pengepulErr
}

func (f *fakeSource) Pengrajins(context.Context) ([]model.CrafterRecord, error) {
	return f.pengrajins, nil
}

func (f *fakeSource) WasteOffers(context.Context) ([]model.WasteOfferRecord, error) {
	return f.offers, nil
}

func price(v int64) *int64 { return &v }

func newSource() *fakeSource {
	return &fakeSource{
		facilities: &model.Facilities{
			BankSampah: []model.FacilityRecord{
				{ID: "b1", Name: "Bank Sampah Induk Surabaya", Address: "Jl. Ngagel Timur", Coordinates: model.At(-7.2891, 112.7378)},
				{ID: "b2", Name: "Bank Sampah Bintang Mangrove", Coordinates: model.At(-7.3012, 112.8011)},
				{ID: "b3", Name: "Bank Sampah Tanpa Koordinat"},
			},
			TPA: []model.FacilityRecord{
				{ID: "t1", Name: "TPA Benowo", Coordinates: model.At(-7.2275, 112.6190)},
			},
			TPST3R: []model.FacilityRecord{
				{ID: "r1", Name: "TPST 3R Jambangan", Coordinates: model.At(-7.3205, 112.7140)},
			},
		},
		pengepuls: []model.CollectorRecord{
			{ID: "p1", CompanyName: "Toko Hijau", Rating: model.RatingOf(4.3), ReviewCount: 12, WhatsApp: "081234567890", Coordinates: model.At(-7.2654, 112.7688)},
			{ID: "p2", CompanyName: "CV Rongsok Jaya", Coordinates: model.At(-7.2501, 112.7402)},
			{ID: "p3", CompanyName: "Pengepul Tanpa Lokasi"},
		},
		pengrajins: []model.CrafterRecord{
			{ID: "c1", Name: "Toko Hijau", Portfolio: []string{"/img/tas.jpg"}, Coordinates: model.At(-7.2801, 112.7555)},
		},
		offers: []model.WasteOfferRecord{
			{ID: "w1", Title: "Kardus bekas 20kg", OfferType: model.OfferSell, Price: price(15000), Coordinates: model.At(-7.2702, 112.7501)},
			{ID: "w2", Title: "Botol plastik", OfferType: model.OfferDonate, Coordinates: model.At(-7.2711, 112.7522)},
		},
	}
}

var regions = boundary.Static{
	{Name: "Gubeng", Level: "kecamatan", Bound: orb.Bound{Min: orb.Point{112.74, -7.28}, Max: orb.Point{112.77, -7.26}}},
	{Name: "Wonokromo", Level: "kecamatan", Bound: orb.Bound{Min: orb.Point{112.72, -7.31}, Max: orb.Point{112.75, -7.28}}},
}

func newController(t *testing.T, src *fakeSource, mutate ...func(*Options)) *Controller {
	t.Helper()
	opts := Options{
		ID:       "test",
		Source:   src,
		Regions:  search.NewResolver(regions, nil),
		Engine:   routing.StraightLine{},
		BasePath: "/api/v1/maps/test",
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	c, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func attached(t *testing.T, src *fakeSource, mutate ...func(*Options)) *Controller {
	c := newController(t, src, mutate...)
	c.Attach(context.Background())
	return c
}

// notifications drains the subscription and returns the toasts seen.
func notifications(ch chan mapview.Event) []mapview.Notification {
	var out []mapview.Notification
	for {
		select {
		case e, open := <-ch:
			if !open {
				return out
			}
			if e.Kind == mapview.EventNotify {
				out = append(out, *e.Notification)
			}
		default:
			return out
		}
	}
}
