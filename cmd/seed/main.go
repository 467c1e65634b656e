// Seed loads a demo venue with a menu, tables, customers and a supplier so
// the API can be exercised locally right after the migrations run.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/resto-pos/api/internal/config"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	conn, err := pgx.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("ERROR: connect: %v", err)
	}
	defer conn.Close(ctx)

	venueID := uuid.New()
	if _, err := conn.Exec(ctx,
		`INSERT INTO venues (id, name, address) VALUES ($1, $2, $3)`,
		venueID, "Pho 24 Demo", "12 Nguyen Hue, District 1"); err != nil {
		log.Fatalf("ERROR: seed venue: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("ERROR: hash password: %v", err)
	}
	for _, u := range []struct {
		email, name, role string
	}{
		{"owner@demo.local", "Demo Owner", "OWNER"},
		{"manager@demo.local", "Demo Manager", "MANAGER"},
		{"cashier@demo.local", "Demo Cashier", "CASHIER"},
		{"waiter@demo.local", "Demo Waiter", "WAITER"},
	} {
		if _, err := conn.Exec(ctx,
			`INSERT INTO users (venue_id, email, hashed_password, full_name, role) VALUES ($1, $2, $3, $4, $5)`,
			venueID, u.email, string(hash), u.name, u.role); err != nil {
			log.Fatalf("ERROR: seed user %s: %v", u.email, err)
		}
	}

	var foodCat, drinkCat uuid.UUID
	if err := conn.QueryRow(ctx,
		`INSERT INTO categories (venue_id, name, sort_order) VALUES ($1, 'Food', 1) RETURNING id`,
		venueID).Scan(&foodCat); err != nil {
		log.Fatalf("ERROR: seed category: %v", err)
	}
	if err := conn.QueryRow(ctx,
		`INSERT INTO categories (venue_id, name, sort_order) VALUES ($1, 'Drinks', 2) RETURNING id`,
		venueID).Scan(&drinkCat); err != nil {
		log.Fatalf("ERROR: seed category: %v", err)
	}

	for _, p := range []struct {
		category              uuid.UUID
		name, price, afterTax string
	}{
		{foodCat, "Pho Bo", "55000", "60500"},
		{foodCat, "Banh Mi", "30000", "33000"},
		{foodCat, "Com Tam", "45000", "49500"},
		{drinkCat, "Ca Phe Sua Da", "25000", ""},
		{drinkCat, "Tra Da", "5000", ""},
	} {
		var afterTax interface{}
		if p.afterTax != "" {
			afterTax = p.afterTax
		}
		if _, err := conn.Exec(ctx,
			`INSERT INTO products (venue_id, category_id, name, price, after_tax_price) VALUES ($1, $2, $3, $4, $5)`,
			venueID, p.category, p.name, p.price, afterTax); err != nil {
			log.Fatalf("ERROR: seed product %s: %v", p.name, err)
		}
	}

	for i := 1; i <= 8; i++ {
		if _, err := conn.Exec(ctx,
			`INSERT INTO tables (venue_id, number, capacity) VALUES ($1, $2, 4)`,
			venueID, fmt.Sprintf("T%d", i)); err != nil {
			log.Fatalf("ERROR: seed table %d: %v", i, err)
		}
	}

	for _, c := range []struct {
		name, phone string
		points      int64
	}{
		{"Nguyen Van A", "0901000001", 25},
		{"Tran Thi B", "0901000002", 10},
		{"Le Van C", "0901000003", 0},
	} {
		if _, err := conn.Exec(ctx,
			`INSERT INTO customers (venue_id, name, phone, points) VALUES ($1, $2, $3, $4)`,
			venueID, c.name, c.phone, c.points); err != nil {
			log.Fatalf("ERROR: seed customer %s: %v", c.name, err)
		}
	}

	if _, err := conn.Exec(ctx,
		`INSERT INTO suppliers (venue_id, name, phone, email) VALUES ($1, $2, $3, $4)`,
		venueID, "Saigon Fresh Produce", "0281234567", "orders@sgfresh.local"); err != nil {
		log.Fatalf("ERROR: seed supplier: %v", err)
	}

	log.Printf("seeded venue %s (login owner@demo.local / password123)", venueID)
}
