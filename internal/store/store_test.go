package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/daurin/internal/db"
	"github.com/joeblew999/daurin/internal/model"
)

const seedYAML = `
facilities:
  bankSampah:
    - id: b1
      name: Bank Sampah Induk Surabaya
      address: Jl. Ngagel Timur No. 1
      type: Bank Sampah Induk
      subDistrict: Gubeng
      latitude: -7.2891
      longitude: 112.7378
  tpa:
    - id: t1
      name: TPA Benowo
      capacity: 1600 ton/hari
pengepuls:
  - id: p1
    companyName: Toko Hijau
    rating: 4.3
    reviewCount: 12
    materials: [Plastik, Kardus]
    whatsapp: "081234567890"
    latitude: -7.2654
    longitude: 112.7688
  - id: p2
    companyName: Belum Disetujui
    rating: N/A
    status: PENDING
pengrajins:
  - id: c1
    name: Sanggar Daur
    rating: null
    craftTypes: [Tas]
    portfolio: [/img/tas.jpg]
wasteOffers:
  - id: w1
    title: Kardus bekas
    offerType: SELL
    price: 15000
    weightKg: 20
  - id: w2
    title: Botol plastik
    offerType: DONATE
  - id: w3
    title: Sudah diambil
    offerType: DONATE
    status: TAKEN
`

func newStore(t *testing.T) *Store {
	t.Helper()
	d, err := db.Open(db.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	s := New(d, nil)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seeded(t *testing.T) *Store {
	t.Helper()
	s := newStore(t)
	seed, err := ParseSeed([]byte(seedYAML))
	require.NoError(t, err)
	_, err = s.Load(context.Background(), seed)
	require.NoError(t, err)
	return s
}

func TestFacilities(t *testing.T) {
	s := seeded(t)
	f, err := s.Facilities(context.Background())
	require.NoError(t, err)

	require.Len(t, f.BankSampah, 1)
	b := f.BankSampah[0]
	assert.Equal(t, "Gubeng", b.SubDistrict)
	_, ok := b.Location()
	assert.True(t, ok)

	require.Len(t, f.TPA, 1)
	_, ok = f.TPA[0].Location()
	assert.False(t, ok, "missing coordinates stay null")
	assert.Equal(t, "1600 ton/hari", f.TPA[0].Capacity)
	assert.Empty(t, f.TPST3R)
	assert.NotNil(t, f.TPST3R)
}

func TestPengepulsOnlyApproved(t *testing.T) {
	s := seeded(t)
	recs, err := s.Pengepuls(context.Background())
	require.NoError(t, err)

	require.Len(t, recs, 1)
	assert.Equal(t, "Toko Hijau", recs[0].CompanyName)
	assert.Equal(t, "4.3", recs[0].Rating.String())
	assert.Equal(t, []string{"Plastik", "Kardus"}, recs[0].Materials)
	assert.Equal(t, []string{}, recs[0].OperatingAreas)
}

func TestPengrajinsWithoutRating(t *testing.T) {
	s := seeded(t)
	recs, err := s.Pengrajins(context.Background())
	require.NoError(t, err)

	require.Len(t, recs, 1)
	assert.False(t, recs[0].Rating.Valid)
	assert.Equal(t, []string{"/img/tas.jpg"}, recs[0].Portfolio)
}

func TestWasteOffersOnlyAvailable(t *testing.T) {
	s := seeded(t)
	recs, err := s.WasteOffers(context.Background())
	require.NoError(t, err)

	require.Len(t, recs, 2)
	byID := map[string]model.WasteOfferRecord{}
	for _, r := range recs {
		byID[r.ID] = r
	}
	require.NotNil(t, byID["w1"].Price)
	assert.Equal(t, int64(15000), *byID["w1"].Price)
	assert.Nil(t, byID["w2"].Price)
	assert.Equal(t, model.OfferDonate, byID["w2"].OfferType)
}

func TestLoadIsIdempotent(t *testing.T) {
	s := seeded(t)
	seed, err := ParseSeed([]byte(seedYAML))
	require.NoError(t, err)

	_, err = s.Load(context.Background(), seed)
	require.NoError(t, err)

	recs, err := s.Pengepuls(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestSampleSeedFile(t *testing.T) {
	seed, err := ReadSeed("../../configs/seed.yaml")
	require.NoError(t, err)

	s := newStore(t)
	counts, err := s.Load(context.Background(), seed)
	require.NoError(t, err)
	assert.Equal(t, SeedCounts{Facilities: 3, Pengepuls: 1, Pengrajins: 1, WasteOffers: 2}, counts)

	recs, err := s.Pengrajins(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Rating.Valid)
}
