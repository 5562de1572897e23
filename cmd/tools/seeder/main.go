package main

import (
	"context"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedMerchants(ctx, pool)
	seedPromos(ctx, pool)
	seedSettings(ctx, pool)

	log.Println("Seeding completed successfully!")
}

func seedMerchants(ctx context.Context, pool *pgxpool.Pool) {
	merchants := []struct {
		id, name   string
		lat, lng   float64
		gstEnabled bool
		gstBps     int32
	}{
		{"punjabi-rasoi", "Punjabi Rasoi", 28.6315, 77.2167, true, 500},
		{"dosa-corner", "Dosa Corner", 28.5494, 77.2001, true, 500},
		{"chaat-gali", "Chaat Gali", 28.6129, 77.2295, false, 0},
	}
	for _, m := range merchants {
		_, err := pool.Exec(ctx, `
			INSERT INTO merchants (id, name, lat, lng, gst_enabled, gst_bps)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, lat = EXCLUDED.lat, lng = EXCLUDED.lng,
				gst_enabled = EXCLUDED.gst_enabled, gst_bps = EXCLUDED.gst_bps
		`, m.id, m.name, m.lat, m.lng, m.gstEnabled, m.gstBps)
		if err != nil {
			log.Fatalf("Failed to seed merchant %s: %v", m.id, err)
		}
	}
	log.Printf("Seeded %d merchants", len(merchants))
}

func seedPromos(ctx context.Context, pool *pgxpool.Pool) {
	type promoRow struct {
		code, description, scope, kind, deal string
		merchantID                           *string
		value                                int64
		percentBps                           int32
		minOrder, maxDiscount                *int64
		buyQty, getQty, maxSets              *int32
		perUserLimit                         *int32
		autoApply                            bool
		priority                             int32
	}
	dosa := "dosa-corner"
	minOrder := int64(50_000)
	maxDiscount := int64(8_000)
	once := int32(1)
	two, one := int32(2), int32(1)
	threeSets := int32(3)

	promos := []promoRow{
		{
			code: "SAVE20", description: "20% off orders above ₹500, up to ₹80",
			scope: "global", kind: "percentage", deal: "standard",
			percentBps: 2000, minOrder: &minOrder, maxDiscount: &maxDiscount,
			autoApply: true, priority: 10,
		},
		{
			code: "FLAT50", description: "Flat ₹50 off, once per customer",
			scope: "global", kind: "flat", deal: "standard",
			value: 5_000, perUserLimit: &once, priority: 5,
		},
		{
			code: "DOSA21", description: "Buy 2 get 1 free at Dosa Corner",
			scope: "merchant", merchantID: &dosa, kind: "flat", deal: "bxgy",
			buyQty: &two, getQty: &one, maxSets: &threeSets, priority: 20,
		},
	}
	for _, p := range promos {
		_, err := pool.Exec(ctx, `
			INSERT INTO promo_codes
				(code, description, scope, merchant_id, kind, value, percent_bps,
				 min_order, max_discount, deal_type, buy_qty, get_qty, max_sets,
				 per_user_limit, auto_apply, priority)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			ON CONFLICT (code) DO NOTHING
		`, p.code, p.description, p.scope, p.merchantID, p.kind, p.value, p.percentBps,
			p.minOrder, p.maxDiscount, p.deal, p.buyQty, p.getQty, p.maxSets,
			p.perUserLimit, p.autoApply, p.priority)
		if err != nil {
			log.Fatalf("Failed to seed promo %s: %v", p.code, err)
		}
	}
	log.Printf("Seeded %d promo codes", len(promos))
}

func seedSettings(ctx context.Context, pool *pgxpool.Pool) {
	settings := map[string]string{
		"delivery_fee_enabled":    "true",
		"delivery_base_fee":       "3500",
		"delivery_base_radius_km": "3",
		"delivery_per_km_fee":     "1500",
	}
	for key, value := range settings {
		_, err := pool.Exec(ctx, `
			INSERT INTO app_settings (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
		`, key, value)
		if err != nil {
			log.Fatalf("Failed to seed setting %s: %v", key, err)
		}
	}
	log.Printf("Seeded %d app settings", len(settings))
}
