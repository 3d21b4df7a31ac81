package controller

import "github.com/joeblew999/daurin/internal/entity"

// Toast texts shown to the user.
const (
	msgUnknownLayer     = "Layer %q tidak dikenal"
	msgLayerFailed      = "Gagal memuat data %s"
	msgEntityFailed     = "Gagal memuat data %s"
	msgEntityShown      = "%d %s ditampilkan"
	msgEmptyQuery       = "Masukkan kata kunci pencarian"
	msgLocationNotFound = "Lokasi %q tidak ditemukan"
	msgEntityNotFound   = "%q tidak ditemukan di peta"
	msgSearchFailed     = "Pencarian gagal, coba lagi"
	msgLocateDenied     = "Izin lokasi ditolak"
	msgLocateUnsupp     = "Browser tidak mendukung geolokasi"
	msgLocateTimeout    = "Waktu habis saat mencari lokasi"
	msgLocateFailed     = "Lokasi tidak tersedia"
	msgLocated          = "Lokasi Anda ditemukan"
	msgRouteDisabled    = "Fitur rute tidak tersedia"
	msgRouteFailed      = "Gagal menghitung rute ke %s"
	msgRouteShown       = "Rute ke %s ditampilkan"
)

var kindLabels = map[entity.Kind]string{
	entity.KindPengepul:    "pengepul",
	entity.KindPengrajin:   "pengrajin",
	entity.KindWasteOffers: "penawaran sampah",
}
