// Package store serves the collaborator records (facilities, pengepul,
// pengrajin, waste offers) from SQL. It implements directory.Source, so a
// map session can read it in-process.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/joeblew999/daurin/internal/model"
)

// Record statuses. Only approved partners and available offers are listed.
const (
	StatusApproved  = "APPROVED"
	StatusPending   = "PENDING"
	StatusAvailable = "AVAILABLE"
	StatusTaken     = "TAKEN"
)

// jsonList is a string slice stored as a JSON array in a text column.
type jsonList []string

func (l jsonList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	return string(b), err
}

func (l *jsonList) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("jsonList: unsupported type %T", src)
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("jsonList: %w", err)
	}
	*l = out
	return nil
}

func nullRating(r model.Rating) sql.NullFloat64 {
	return sql.NullFloat64{Float64: r.Value, Valid: r.Valid}
}

func ratingOf(n sql.NullFloat64) model.Rating {
	return model.Rating{Value: n.Float64, Valid: n.Valid}
}

type facilityRow struct {
	Category string `db:"category"`
	model.FacilityRecord
}

type collectorRow struct {
	ID               string          `db:"id"`
	CompanyName      string          `db:"company_name"`
	OwnerName        string          `db:"owner_name"`
	Rating           sql.NullFloat64 `db:"rating"`
	ReviewCount      int             `db:"review_count"`
	Materials        jsonList        `db:"materials"`
	OperatingAreas   jsonList        `db:"operating_areas"`
	TotalCollections int             `db:"total_collections"`
	TotalWeightKg    float64         `db:"total_weight_kg"`
	WorkingHours     string          `db:"working_hours"`
	WhatsApp         string          `db:"whatsapp"`
	Address          string          `db:"address"`
	Status           string          `db:"status"`
	model.Coordinates
}

func (r collectorRow) record() model.CollectorRecord {
	return model.CollectorRecord{
		ID:               r.ID,
		CompanyName:      r.CompanyName,
		OwnerName:        r.OwnerName,
		Rating:           ratingOf(r.Rating),
		ReviewCount:      r.ReviewCount,
		Materials:        nonNil(r.Materials),
		OperatingAreas:   nonNil(r.OperatingAreas),
		TotalCollections: r.TotalCollections,
		TotalWeightKg:    r.TotalWeightKg,
		WorkingHours:     r.WorkingHours,
		WhatsApp:         r.WhatsApp,
		Address:          r.Address,
		Coordinates:      r.Coordinates,
	}
}

type crafterRow struct {
	ID              string          `db:"id"`
	Name            string          `db:"name"`
	Rating          sql.NullFloat64 `db:"rating"`
	ReviewCount     int             `db:"review_count"`
	CraftTypes      jsonList        `db:"craft_types"`
	Materials       jsonList        `db:"materials"`
	Portfolio       jsonList        `db:"portfolio"`
	ExperienceYears int             `db:"experience_years"`
	TotalSales      int             `db:"total_sales"`
	TotalProducts   int             `db:"total_products"`
	WhatsApp        string          `db:"whatsapp"`
	WorkshopAddress string          `db:"workshop_address"`
	Status          string          `db:"status"`
	model.Coordinates
}

func (r crafterRow) record() model.CrafterRecord {
	return model.CrafterRecord{
		ID:              r.ID,
		Name:            r.Name,
		Rating:          ratingOf(r.Rating),
		ReviewCount:     r.ReviewCount,
		CraftTypes:      nonNil(r.CraftTypes),
		Materials:       nonNil(r.Materials),
		Portfolio:       nonNil(r.Portfolio),
		ExperienceYears: r.ExperienceYears,
		TotalSales:      r.TotalSales,
		TotalProducts:   r.TotalProducts,
		WhatsApp:        r.WhatsApp,
		WorkshopAddress: r.WorkshopAddress,
		Coordinates:     r.Coordinates,
	}
}

type offerRow struct {
	ID           string          `db:"id"`
	Title        string          `db:"title"`
	MaterialType string          `db:"material_type"`
	WeightKg     float64         `db:"weight_kg"`
	OfferType    model.OfferType `db:"offer_type"`
	Price        sql.NullInt64   `db:"price"`
	Address      string          `db:"address"`
	OwnerID      string          `db:"owner_id"`
	OwnerName    string          `db:"owner_name"`
	WhatsApp     string          `db:"whatsapp"`
	Description  string          `db:"description"`
	Images       jsonList        `db:"images"`
	Status       string          `db:"status"`
	model.Coordinates
}

func (r offerRow) record() model.WasteOfferRecord {
	rec := model.WasteOfferRecord{
		ID:           r.ID,
		Title:        r.Title,
		MaterialType: r.MaterialType,
		WeightKg:     r.WeightKg,
		OfferType:    r.OfferType,
		Address:      r.Address,
		OwnerID:      r.OwnerID,
		OwnerName:    r.OwnerName,
		WhatsApp:     r.WhatsApp,
		Description:  r.Description,
		Images:       nonNil(r.Images),
		Coordinates:  r.Coordinates,
	}
	if r.Price.Valid {
		p := r.Price.Int64
		rec.Price = &p
	}
	return rec
}

func nonNil(l jsonList) []string {
	if l == nil {
		return []string{}
	}
	return l
}

// Store is safe for concurrent use.
type Store struct {
	db  *sqlx.DB
	log *slog.Logger
}

// New wraps an open database.
func New(db *sqlx.DB, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: db, log: log}
}

// DB returns the underlying handle.
func (s *Store) DB() *sqlx.DB { return s.db }

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
	}
	return nil
}

// Facilities returns every facility keyed by category.
func (s *Store) Facilities(ctx context.Context) (*model.Facilities, error) {
	var rows []facilityRow
	err := s.db.SelectContext(ctx, &rows, `SELECT id, category, name, address, type, village,
		sub_district, capacity, latitude, longitude FROM facilities ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("querying facilities: %w", err)
	}

	out := &model.Facilities{
		BankSampah: []model.FacilityRecord{},
		LembagaTPA: []model.FacilityRecord{},
		TPA:        []model.FacilityRecord{},
		TPST3R:     []model.FacilityRecord{},
	}
	for _, r := range rows {
		if err := out.Put(r.Category, r.FacilityRecord); err != nil {
			s.log.Warn("skipping facility", "id", r.ID, "error", err)
		}
	}
	return out, nil
}

// Pengepuls returns approved collectors.
func (s *Store) Pengepuls(ctx context.Context) ([]model.CollectorRecord, error) {
	var rows []collectorRow
	q := s.db.Rebind(`SELECT * FROM pengepuls WHERE status = ? ORDER BY company_name`)
	if err := s.db.SelectContext(ctx, &rows, q, StatusApproved); err != nil {
		return nil, fmt.Errorf("querying pengepuls: %w", err)
	}
	out := make([]model.CollectorRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

// Pengrajins returns approved crafters.
func (s *Store) Pengrajins(ctx context.Context) ([]model.CrafterRecord, error) {
	var rows []crafterRow
	q := s.db.Rebind(`SELECT * FROM pengrajins WHERE status = ? ORDER BY name`)
	if err := s.db.SelectContext(ctx, &rows, q, StatusApproved); err != nil {
		return nil, fmt.Errorf("querying pengrajins: %w", err)
	}
	out := make([]model.CrafterRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

// WasteOffers returns offers still available.
func (s *Store) WasteOffers(ctx context.Context) ([]model.WasteOfferRecord, error) {
	var rows []offerRow
	q := s.db.Rebind(`SELECT * FROM waste_offers WHERE status = ? ORDER BY title`)
	if err := s.db.SelectContext(ctx, &rows, q, StatusAvailable); err != nil {
		return nil, fmt.Errorf("querying waste offers: %w", err)
	}
	out := make([]model.WasteOfferRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}
