package store

// Text columns are NOT NULL so they scan into plain strings. List columns
// hold JSON arrays.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS facilities (
		id           TEXT PRIMARY KEY,
		category     TEXT NOT NULL,
		name         TEXT NOT NULL,
		address      TEXT NOT NULL DEFAULT '',
		type         TEXT NOT NULL DEFAULT '',
		village      TEXT NOT NULL DEFAULT '',
		sub_district TEXT NOT NULL DEFAULT '',
		capacity     TEXT NOT NULL DEFAULT '',
		latitude     DOUBLE PRECISION,
		longitude    DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS pengepuls (
		id                TEXT PRIMARY KEY,
		company_name      TEXT NOT NULL,
		owner_name        TEXT NOT NULL DEFAULT '',
		rating            DOUBLE PRECISION,
		review_count      INTEGER NOT NULL DEFAULT 0,
		materials         TEXT NOT NULL DEFAULT '[]',
		operating_areas   TEXT NOT NULL DEFAULT '[]',
		total_collections INTEGER NOT NULL DEFAULT 0,
		total_weight_kg   DOUBLE PRECISION NOT NULL DEFAULT 0,
		working_hours     TEXT NOT NULL DEFAULT '',
		whatsapp          TEXT NOT NULL DEFAULT '',
		address           TEXT NOT NULL DEFAULT '',
		latitude          DOUBLE PRECISION,
		longitude         DOUBLE PRECISION,
		status            TEXT NOT NULL DEFAULT 'PENDING'
	)`,
	`CREATE TABLE IF NOT EXISTS pengrajins (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		rating           DOUBLE PRECISION,
		review_count     INTEGER NOT NULL DEFAULT 0,
		craft_types      TEXT NOT NULL DEFAULT '[]',
		materials        TEXT NOT NULL DEFAULT '[]',
		portfolio        TEXT NOT NULL DEFAULT '[]',
		experience_years INTEGER NOT NULL DEFAULT 0,
		total_sales      INTEGER NOT NULL DEFAULT 0,
		total_products   INTEGER NOT NULL DEFAULT 0,
		whatsapp         TEXT NOT NULL DEFAULT '',
		workshop_address TEXT NOT NULL DEFAULT '',
		latitude         DOUBLE PRECISION,
		longitude        DOUBLE PRECISION,
		status           TEXT NOT NULL DEFAULT 'PENDING'
	)`,
	`CREATE TABLE IF NOT EXISTS waste_offers (
		id            TEXT PRIMARY KEY,
		title         TEXT NOT NULL,
		material_type TEXT NOT NULL DEFAULT '',
		weight_kg     DOUBLE PRECISION NOT NULL DEFAULT 0,
		offer_type    TEXT NOT NULL,
		price         BIGINT,
		address       TEXT NOT NULL DEFAULT '',
		owner_id      TEXT NOT NULL DEFAULT '',
		owner_name    TEXT NOT NULL DEFAULT '',
		whatsapp      TEXT NOT NULL DEFAULT '',
		description   TEXT NOT NULL DEFAULT '',
		images        TEXT NOT NULL DEFAULT '[]',
		latitude      DOUBLE PRECISION,
		longitude     DOUBLE PRECISION,
		status        TEXT NOT NULL DEFAULT 'AVAILABLE'
	)`,
}
